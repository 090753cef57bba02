package asm

import (
	"fmt"
	"strings"
)

// Print renders a Module in the structured textual form described by
// §4.4/§6.2: a stable, parseable debug format that round-trips through
// Parse modulo whitespace (Testable Property #1).
func Print(m *Module) string {
	var b strings.Builder

	fmt.Fprintf(&b, "export %s {", m.ExportDefault.String())
	if m.ExportStarProps != nil {
		for i, k := range m.ExportStarProps.Keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", k, m.ExportStarProps.Values[i].String())
		}
	}
	b.WriteString("}")
	for _, inc := range m.ExportStarIncludes {
		fmt.Fprintf(&b, " include %s", inc.String())
	}
	b.WriteString("\n\n")

	for _, def := range m.Definitions {
		printDefinition(&b, def)
		b.WriteString("\n")
	}

	return b.String()
}

func printDefinition(b *strings.Builder, def *Definition) {
	switch {
	case def.Function != nil:
		printFunction(b, def.Name, def.Function)
	case def.Class != nil:
		printClass(b, def.Name, def.Class)
	case def.Meta != nil:
		fmt.Fprintf(b, "@%s = meta %q\n", def.Name, def.Meta.Name)
	case def.Lazy != nil:
		fmt.Fprintf(b, "@%s = lazy {\n", def.Name)
		printBody(b, def.Lazy.Body, "  ")
		b.WriteString("}\n")
	default:
		fmt.Fprintf(b, "@%s = %s\n", def.Name, def.Value.String())
	}
}

func printFunction(b *strings.Builder, name string, fn *Function) {
	kind := "function"
	if fn.IsGenerator {
		kind = "function*"
	}
	params := make([]string, len(fn.Parameters))
	for i, p := range fn.Parameters {
		params[i] = p.String()
	}
	meta := ""
	if fn.Meta != nil {
		meta = " meta = " + fn.Meta.String()
	}
	fmt.Fprintf(b, "@%s = %s%s(%s) {\n", name, kind, meta, strings.Join(params, ", "))
	printBody(b, fn.Body, "  ")
	b.WriteString("}\n")
}

func printClass(b *strings.Builder, name string, c *ClassDef) {
	fmt.Fprintf(b, "@%s = class %q {\n", name, c.Name)
	fmt.Fprintf(b, "  constructor: %s\n", c.Constructor.String())
	fmt.Fprintf(b, "  instance: %s\n", c.InstancePrototype.String())
	fmt.Fprintf(b, "  static: %s\n", c.Static.String())
	if c.SuperClass != nil {
		fmt.Fprintf(b, "  super: %s\n", c.SuperClass.String())
	}
	b.WriteString("}\n")
}

func printBody(b *strings.Builder, body []FnLine, indent string) {
	for _, line := range body {
		switch line.Kind {
		case LineInstruction:
			fmt.Fprintf(b, "%s%s\n", indent, line.Instruction.String())
		case LineLabel:
			fmt.Fprintf(b, "%s.%s:\n", indent[:maxInt(0, len(indent)-2)], line.Label)
		case LineRelease:
			fmt.Fprintf(b, "%srelease %s\n", indent, line.Release.String())
		case LineComment:
			fmt.Fprintf(b, "%s; %s\n", indent, line.Comment)
		case LineEmpty:
			b.WriteString("\n")
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
