// Package expr parses and evaluates calculator expressions.
package expr

import (
	"errors"
	"fmt"
)

// ErrSyntax is returned for input that does not form a valid expression.
var ErrSyntax = errors.New("syntax error")

type parser struct {
	l   lexer
	cur token
}

// Parse builds an expression tree from canonical calculator text.
//
// Grammar, loosest binding first:
//
//	sum     = product { ("+" | "-") product }
//	product = unary { ("*" | "/" | "%") unary }
//	unary   = ("+" | "-") (unary | primary) | power
//	power   = primary [ "^" unary ]
//
// A signed operand may not be the base of "^": "-2^2" is rejected rather
// than guessed at, and "(-2)^2" or "-(2^2)" must be written instead.
//	primary = number | constant | func "(" sum ")" | "(" sum ")"
func Parse(s string) (Node, error) {
	p := &parser{l: lexer{s: s}}
	p.next()
	if p.cur.kind == tokEOF {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	n, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokEOF {
		return nil, p.unexpected()
	}
	return n, nil
}

func (p *parser) next() { p.cur = p.l.next() }

func (p *parser) unexpected() error {
	if p.cur.kind == tokEOF {
		return fmt.Errorf("%w: unexpected end of expression", ErrSyntax)
	}
	return fmt.Errorf("%w: unexpected %q", ErrSyntax, p.cur.text)
}

func (p *parser) parseSum() (Node, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokPlus || p.cur.kind == tokMinus {
		op := p.cur.text[0]
		p.next()
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseProduct() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokStar || p.cur.kind == tokSlash || p.cur.kind == tokPercent {
		op := p.cur.text[0]
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.cur.kind == tokPlus || p.cur.kind == tokMinus {
		op := p.cur.text[0]
		p.next()
		if p.cur.kind == tokPlus || p.cur.kind == tokMinus {
			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return unaryNode{op: op, x: x}, nil
		}
		x, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		if p.cur.kind == tokCaret {
			return nil, fmt.Errorf("%w: signed base before %q needs parentheses", ErrSyntax, p.cur.text)
		}
		return unaryNode{op: op, x: x}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.cur.kind == tokCaret {
		p.next()
		// Right-associative: 2^3^2 is 2^(3^2). The exponent may carry a sign.
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return binaryNode{op: '^', left: base, right: exp}, nil
	}
	return base, nil
}

func (p *parser) parsePrimary() (Node, error) {
	switch p.cur.kind {
	case tokNumber:
		v := p.cur.num
		p.next()
		return numberNode{v: v}, nil
	case tokIdent:
		name := p.cur.text
		p.next()
		if fn, ok := functions[name]; ok {
			if p.cur.kind != tokLParen {
				return nil, fmt.Errorf("%w: expected '(' after %s", ErrSyntax, name)
			}
			p.next()
			arg, err := p.parseSum()
			if err != nil {
				return nil, err
			}
			if p.cur.kind != tokRParen {
				return nil, fmt.Errorf("%w: expected ')'", ErrSyntax)
			}
			p.next()
			return callNode{name: name, fn: fn, arg: arg}, nil
		}
		if v, ok := constants[name]; ok {
			return constNode{name: name, v: v}, nil
		}
		return nil, fmt.Errorf("%w: unknown identifier %q", ErrSyntax, name)
	case tokLParen:
		p.next()
		n, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tokRParen {
			return nil, fmt.Errorf("%w: expected ')'", ErrSyntax)
		}
		p.next()
		return n, nil
	default:
		return nil, p.unexpected()
	}
}
