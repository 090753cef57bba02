package parser

import (
	"valuescript/pkg/lexer"
)

// parseImportStatement parses the module-import forms:
//
//	import def from "./mod";
//	import * as ns from "./mod";
//	import { a, b as c } from "./mod";
//	import def, { a } from "./mod";
//	import type { T } from "./mod";
func (p *Parser) parseImportStatement() Statement {
	decl := &ImportDeclaration{Token: p.curToken}

	if p.peekTokenIs(lexer.TYPE) {
		p.nextToken()
		decl.IsTypeOnly = true
	}

	switch {
	case p.peekTokenIs(lexer.IDENT):
		p.nextToken()
		decl.Specifiers = append(decl.Specifiers, &ImportDefaultSpecifier{
			Token: p.curToken,
			Local: &Identifier{Token: p.curToken, Value: p.curToken.Literal},
		})
		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken() // consume ','
			if !p.parseImportClause(decl) {
				return nil
			}
		}
	case p.peekTokenIs(lexer.ASTERISK), p.peekTokenIs(lexer.LBRACE):
		if !p.parseImportClause(decl) {
			return nil
		}
	default:
		p.addError(p.peekToken, "expected import specifier")
		return nil
	}

	if !p.expectPeek(lexer.FROM) {
		return nil
	}
	if !p.expectPeek(lexer.STRING) {
		return nil
	}
	decl.Source = &StringLiteral{Token: p.curToken, Value: p.curToken.Literal}

	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	return decl
}

// parseImportClause parses the `* as ns` or `{ a, b as c }` half of an
// import; the caller has already handled any default specifier. On
// entry the clause's first token is the peek token.
func (p *Parser) parseImportClause(decl *ImportDeclaration) bool {
	if p.peekTokenIs(lexer.ASTERISK) {
		p.nextToken() // consume '*'
		star := p.curToken
		if !p.expectPeek(lexer.AS) {
			return false
		}
		if !p.expectPeek(lexer.IDENT) {
			return false
		}
		decl.Specifiers = append(decl.Specifiers, &ImportNamespaceSpecifier{
			Token: star,
			Local: &Identifier{Token: p.curToken, Value: p.curToken.Literal},
		})
		return true
	}

	if !p.expectPeek(lexer.LBRACE) {
		return false
	}
	for !p.peekTokenIs(lexer.RBRACE) {
		typeOnly := false
		if p.peekTokenIs(lexer.TYPE) {
			p.nextToken()
			typeOnly = true
		}
		if !p.expectPeek(lexer.IDENT) {
			return false
		}
		spec := &ImportNamedSpecifier{
			Token:      p.curToken,
			Imported:   &Identifier{Token: p.curToken, Value: p.curToken.Literal},
			IsTypeOnly: typeOnly || decl.IsTypeOnly,
		}
		spec.Local = spec.Imported
		if p.peekTokenIs(lexer.AS) {
			p.nextToken() // consume 'as'
			if !p.expectPeek(lexer.IDENT) {
				return false
			}
			spec.Local = &Identifier{Token: p.curToken, Value: p.curToken.Literal}
		}
		decl.Specifiers = append(decl.Specifiers, spec)
		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
		}
	}
	return p.expectPeek(lexer.RBRACE)
}

// parseYieldExpression parses `yield`, `yield value`, and
// `yield* iterable`. Whether the enclosing function is actually a
// generator is the compiler's concern, not the grammar's.
func (p *Parser) parseYieldExpression() Expression {
	ye := &YieldExpression{Token: p.curToken}

	if p.peekTokenIs(lexer.ASTERISK) {
		p.nextToken() // consume '*'
		ye.Delegate = true
	}

	// A bare `yield` has no operand; anything that can't start an
	// expression terminates it.
	switch p.peekToken.Type {
	case lexer.SEMICOLON, lexer.RBRACE, lexer.RPAREN, lexer.RBRACKET, lexer.COMMA, lexer.EOF:
		if ye.Delegate {
			p.addError(p.curToken, "yield* requires an iterable operand")
			return nil
		}
		return ye
	}

	p.nextToken()
	ye.Argument = p.parseExpression(LOWEST)
	return ye
}

// parseExportStatement parses:
//
//	export default <expression>;
//	export function f() {} / export class C {} / export const x = 1;
//	export enum E { ... }
//	export { a, b as c };
func (p *Parser) parseExportStatement() Statement {
	exportToken := p.curToken

	if p.peekTokenIs(lexer.DEFAULT) {
		p.nextToken() // consume 'default'
		p.nextToken() // move to the expression
		expr := p.parseExpression(LOWEST)
		if expr == nil {
			p.addError(p.curToken, "expected expression after export default")
			return nil
		}
		if p.peekTokenIs(lexer.SEMICOLON) {
			p.nextToken()
		}
		return &ExportDefaultDeclaration{Token: exportToken, Declaration: expr}
	}

	if p.peekTokenIs(lexer.LBRACE) {
		decl := &ExportNamedDeclaration{Token: exportToken}
		p.nextToken() // consume '{'
		for !p.peekTokenIs(lexer.RBRACE) {
			if !p.expectPeek(lexer.IDENT) {
				return nil
			}
			spec := &ExportNamedSpecifier{
				Token: p.curToken,
				Local: &Identifier{Token: p.curToken, Value: p.curToken.Literal},
			}
			spec.Exported = spec.Local
			if p.peekTokenIs(lexer.AS) {
				p.nextToken() // consume 'as'
				if !p.expectPeek(lexer.IDENT) {
					return nil
				}
				spec.Exported = &Identifier{Token: p.curToken, Value: p.curToken.Literal}
			}
			decl.Specifiers = append(decl.Specifiers, spec)
			if p.peekTokenIs(lexer.COMMA) {
				p.nextToken()
			}
		}
		if !p.expectPeek(lexer.RBRACE) {
			return nil
		}
		if p.peekTokenIs(lexer.SEMICOLON) {
			p.nextToken()
		}
		return decl
	}

	if p.peekTokenIs(lexer.TYPE) || p.peekTokenIs(lexer.INTERFACE) {
		p.nextToken()
		inner := p.parseStatement()
		return &ExportNamedDeclaration{Token: exportToken, Declaration: inner, IsTypeOnly: true}
	}

	// export <declaration>
	p.nextToken()
	inner := p.parseStatement()
	if inner == nil {
		p.addError(exportToken, "expected declaration after export")
		return nil
	}
	return &ExportNamedDeclaration{Token: exportToken, Declaration: inner}
}
