package asm

import "fmt"

// Parse reads the textual Assembly IR form produced by Print back into
// a Module. It round-trips Print's output modulo whitespace/comments,
// satisfying the compiler-entry-point contract `parse_assembly`.
func Parse(text string) (*Module, error) {
	p := &parser{lex: newLexer(text)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseModule()
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expectIdent(text string) error {
	if p.tok.kind != tokIdent || p.tok.text != text {
		return fmt.Errorf("asm: expected %q at line %d, got %q", text, p.tok.line, p.tok.text)
	}
	return p.advance()
}

func (p *parser) expectPunct(text string) error {
	if p.tok.kind != tokPunct || p.tok.text != text {
		return fmt.Errorf("asm: expected %q at line %d, got %q", text, p.tok.line, p.tok.text)
	}
	return p.advance()
}

func (p *parser) parseModule() (*Module, error) {
	m := &Module{}

	if err := p.expectIdent("export"); err != nil {
		return nil, err
	}
	def, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	m.ExportDefault = def

	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	props := &ObjectLit{}
	for p.tok.kind != tokPunct || p.tok.text != "}" {
		if p.tok.kind != tokIdent && p.tok.kind != tokString {
			return nil, fmt.Errorf("asm: expected export property name at line %d", p.tok.line)
		}
		key := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		val, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		props.Keys = append(props.Keys, key)
		props.Values = append(props.Values, val)
		if p.tok.kind == tokPunct && p.tok.text == "," {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if len(props.Keys) > 0 {
		m.ExportStarProps = props
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}

	for p.tok.kind == tokIdent && p.tok.text == "include" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokPointer {
			return nil, fmt.Errorf("asm: expected pointer after include at line %d", p.tok.line)
		}
		m.ExportStarIncludes = append(m.ExportStarIncludes, Ptr(p.tok.text))
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	for p.tok.kind == tokPointer {
		d, err := p.parseDefinition()
		if err != nil {
			return nil, err
		}
		m.Add(d)
	}

	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("asm: unexpected trailing token %q at line %d", p.tok.text, p.tok.line)
	}

	return m, nil
}

func (p *parser) parseDefinition() (*Definition, error) {
	name := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("="); err != nil {
		return nil, err
	}

	switch {
	case p.tok.kind == tokIdent && (p.tok.text == "function" || p.tok.text == "function*"):
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		return &Definition{Name: name, Function: fn}, nil
	case p.tok.kind == tokIdent && p.tok.text == "class":
		c, err := p.parseClass()
		if err != nil {
			return nil, err
		}
		return &Definition{Name: name, Class: c}, nil
	case p.tok.kind == tokIdent && p.tok.text == "meta":
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokString {
			return nil, fmt.Errorf("asm: expected meta name string at line %d", p.tok.line)
		}
		md := &MetaDef{Name: p.tok.text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Definition{Name: name, Meta: md}, nil
	case p.tok.kind == tokIdent && p.tok.text == "lazy":
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct("{"); err != nil {
			return nil, err
		}
		body, err := p.parseBody()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("}"); err != nil {
			return nil, err
		}
		return &Definition{Name: name, Lazy: &LazyDef{Body: body}}, nil
	default:
		val, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &Definition{Name: name, Value: val}, nil
	}
}

func (p *parser) parseFunction() (*Function, error) {
	isGen := p.tok.text == "function*"
	if err := p.advance(); err != nil {
		return nil, err
	}
	var meta *Pointer
	if p.tok.kind == tokIdent && p.tok.text == "meta" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		if p.tok.kind != tokPointer {
			return nil, fmt.Errorf("asm: expected meta pointer at line %d", p.tok.line)
		}
		ptr := Ptr(p.tok.text)
		meta = &ptr
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var params []Register
	for p.tok.kind != tokPunct || p.tok.text != ")" {
		if p.tok.kind != tokRegister && p.tok.kind != tokTakeRegister {
			return nil, fmt.Errorf("asm: expected parameter register at line %d", p.tok.line)
		}
		params = append(params, Register{Name: p.tok.text, Take: p.tok.kind == tokTakeRegister})
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokPunct && p.tok.text == "," {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return &Function{Parameters: params, Body: body, IsGenerator: isGen, Meta: meta}, nil
}

func (p *parser) parseClass() (*ClassDef, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind != tokString {
		return nil, fmt.Errorf("asm: expected class name string at line %d", p.tok.line)
	}
	name := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	c := &ClassDef{Name: name}
	for p.tok.kind != tokPunct || p.tok.text != "}" {
		if p.tok.kind != tokIdent {
			return nil, fmt.Errorf("asm: expected class field name at line %d", p.tok.line)
		}
		field := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		switch field {
		case "constructor":
			if p.tok.kind != tokPointer {
				return nil, fmt.Errorf("asm: expected constructor pointer at line %d", p.tok.line)
			}
			c.Constructor = Ptr(p.tok.text)
			if err := p.advance(); err != nil {
				return nil, err
			}
		case "instance":
			obj, err := p.parseObjectLit()
			if err != nil {
				return nil, err
			}
			c.InstancePrototype = obj
		case "static":
			obj, err := p.parseObjectLit()
			if err != nil {
				return nil, err
			}
			c.Static = obj
		case "super":
			if p.tok.kind != tokPointer {
				return nil, fmt.Errorf("asm: expected super pointer at line %d", p.tok.line)
			}
			ptr := Ptr(p.tok.text)
			c.SuperClass = &ptr
			if err := p.advance(); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("asm: unknown class field %q at line %d", field, p.tok.line)
		}
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *parser) parseBody() ([]FnLine, error) {
	var body []FnLine
	for {
		if p.tok.kind == tokPunct && p.tok.text == "}" {
			return body, nil
		}
		if p.tok.kind == tokEOF {
			return nil, fmt.Errorf("asm: unexpected EOF inside function body")
		}
		if p.tok.kind == tokLabel {
			name := p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct(":"); err != nil {
				return nil, err
			}
			body = append(body, LabelLine(name))
			continue
		}
		if p.tok.kind == tokIdent && p.tok.text == "release" {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind != tokRegister {
				return nil, fmt.Errorf("asm: expected register after release at line %d", p.tok.line)
			}
			body = append(body, ReleaseLine(Reg(p.tok.text)))
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		ins, err := p.parseInstruction()
		if err != nil {
			return nil, err
		}
		body = append(body, InstructionLine(ins))
	}
}

func (p *parser) parseInstruction() (*Instruction, error) {
	if p.tok.kind != tokIdent {
		return nil, fmt.Errorf("asm: expected opcode name at line %d, got %q", p.tok.line, p.tok.text)
	}
	op, ok := LookupOpCode(p.tok.text)
	if !ok {
		return nil, fmt.Errorf("asm: unknown opcode %q at line %d", p.tok.text, p.tok.line)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	ins := &Instruction{Op: op}
	for p.tok.kind != tokArrow && !p.isLineEnd() {
		o, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		ins.Operands = append(ins.Operands, o)
		if p.tok.kind == tokPunct && p.tok.text == "," {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if p.tok.kind == tokArrow {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokRegister && p.tok.kind != tokTakeRegister {
			return nil, fmt.Errorf("asm: expected destination register at line %d", p.tok.line)
		}
		dst := Register{Name: p.tok.text, Take: p.tok.kind == tokTakeRegister}
		ins.Dst = &dst
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return ins, nil
}

// isLineEnd reports whether the current token can't start an operand,
// i.e. the instruction's operand list is finished.
func (p *parser) isLineEnd() bool {
	switch p.tok.kind {
	case tokEOF:
		return true
	case tokPunct:
		return p.tok.text == "}"
	case tokLabel:
		return true // a bare ".label:" line always starts a new line
	case tokIdent:
		return p.tok.text == "release"
	default:
		return false
	}
}

func (p *parser) parseOperand() (Operand, error) {
	switch p.tok.kind {
	case tokRegister, tokTakeRegister:
		r := Register{Name: p.tok.text, Take: p.tok.kind == tokTakeRegister}
		return r, p.advance()
	case tokPointer:
		ptr := Ptr(p.tok.text)
		return ptr, p.advance()
	case tokBuiltin:
		b := Builtin{Name: p.tok.text}
		return b, p.advance()
	case tokLabel:
		l := LabelRef{Name: p.tok.text}
		return l, p.advance()
	case tokString:
		s := StringLit(p.tok.text)
		return s, p.advance()
	case tokNumber:
		n := NumberLit(p.tok.num)
		return n, p.advance()
	case tokBigInt:
		b := BigIntLit{Value: p.tok.big}
		return b, p.advance()
	case tokPunct:
		switch p.tok.text {
		case "[":
			return p.parseArrayLit()
		case "{":
			obj, err := p.parseObjectLit()
			return obj, err
		}
	case tokIdent:
		switch p.tok.text {
		case "void":
			return VoidLit{}, p.advance()
		case "undefined":
			return UndefinedLit{}, p.advance()
		case "null":
			return NullLit{}, p.advance()
		case "true":
			return BoolLit(true), p.advance()
		case "false":
			return BoolLit(false), p.advance()
		}
	}
	return nil, fmt.Errorf("asm: unexpected token %q at line %d", p.tok.text, p.tok.line)
}

func (p *parser) parseArrayLit() (Operand, error) {
	if err := p.expectPunct("["); err != nil {
		return nil, err
	}
	lit := ArrayLit{}
	for p.tok.kind != tokPunct || p.tok.text != "]" {
		el, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		lit.Elements = append(lit.Elements, el)
		if p.tok.kind == tokPunct && p.tok.text == "," {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *parser) parseObjectLit() (ObjectLit, error) {
	lit := ObjectLit{}
	if err := p.expectPunct("{"); err != nil {
		return lit, err
	}
	for p.tok.kind != tokPunct || p.tok.text != "}" {
		var key string
		if p.tok.kind == tokString || p.tok.kind == tokIdent {
			key = p.tok.text
		} else {
			return lit, fmt.Errorf("asm: expected object key at line %d", p.tok.line)
		}
		if err := p.advance(); err != nil {
			return lit, err
		}
		if err := p.expectPunct(":"); err != nil {
			return lit, err
		}
		val, err := p.parseOperand()
		if err != nil {
			return lit, err
		}
		lit.Keys = append(lit.Keys, key)
		lit.Values = append(lit.Values, val)
		if p.tok.kind == tokPunct && p.tok.text == "," {
			if err := p.advance(); err != nil {
				return lit, err
			}
		}
	}
	if err := p.expectPunct("}"); err != nil {
		return lit, err
	}
	return lit, nil
}
