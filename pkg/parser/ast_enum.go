package parser

import (
	"bytes"

	"valuescript/pkg/lexer"
)

// EnumDeclaration represents a TypeScript enum declaration. It parses
// as an expression (wrapped in an ExpressionStatement by the statement
// dispatcher) so it can flow through the same top-level handling as
// function and class declarations.
type EnumDeclaration struct {
	BaseExpression
	Token   lexer.Token // The 'enum' token (or 'const' for const enums)
	Name    *Identifier
	Members []*EnumMember
	IsConst bool
}

func (ed *EnumDeclaration) expressionNode()      {}
func (ed *EnumDeclaration) TokenLiteral() string { return ed.Token.Literal }
func (ed *EnumDeclaration) String() string {
	var out bytes.Buffer
	if ed.IsConst {
		out.WriteString("const ")
	}
	out.WriteString("enum ")
	out.WriteString(ed.Name.Value)
	out.WriteString(" { ")
	for i, m := range ed.Members {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(m.String())
	}
	out.WriteString(" }")
	return out.String()
}

// EnumMember is one `Name` or `Name = value` entry.
type EnumMember struct {
	Token lexer.Token // The member name token
	Name  *Identifier
	Value Expression // nil for auto-numbered members
}

func (em *EnumMember) TokenLiteral() string { return em.Token.Literal }
func (em *EnumMember) String() string {
	if em.Value == nil {
		return em.Name.Value
	}
	return em.Name.Value + " = " + em.Value.String()
}
