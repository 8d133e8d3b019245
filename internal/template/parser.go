package template

import "fmt"

// The expression grammar is deliberately small; it covers exactly the
// closed surface plus equality comparison and filter chains:
//
//	expr     := pipeline (('==' | '!=') pipeline)?
//	pipeline := primary ('|' ident args?)*
//	primary  := string | number | 'true' | 'false' | 'none'
//	          | ident '(' expr (',' expr)* ')'      function call
//	          | 'states' ('.' ident)+               dotted state access
//	args     := '(' expr (',' expr)* ')'
type node interface{}

// literal is a constant value (string, number, bool, or nil).
type literal struct {
	val any
}

// call is a function invocation from the closed surface.
type call struct {
	name string
	args []node
}

// dotted is call-free attribute-style access rooted at states:
// states.<domain>.<object_id>.state or states.<domain>.<object_id>.attributes.<attr>.
type dotted struct {
	path []string
}

// filterApply pipes a value through a filter from the closed surface.
type filterApply struct {
	expr node
	name string
	args []node
}

// compare is an equality or inequality test between two values.
type compare struct {
	op          string
	left, right node
}

// parser is a recursive-descent parser over the token stream.
type parser struct {
	tokens []token
	pos    int
}

// parseExpression parses a full expression body (the text between {{ }}).
func parseExpression(body string) (node, error) {
	tokens, err := lex(body)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokenEOF {
		return nil, fmt.Errorf("%w: trailing input %q", ErrMalformed, p.peek().text)
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return token{}, fmt.Errorf("%w: expected %s, got %q", ErrMalformed, what, t.text)
	}
	return t, nil
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	switch p.peek().kind {
	case tokenEq, tokenNe:
		op := p.next().text
		right, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		return &compare{op: op, left: left, right: right}, nil
	default:
		return left, nil
	}
}

func (p *parser) parsePipeline() (node, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenPipe {
		p.next()
		name, err := p.expect(tokenIdent, "filter name")
		if err != nil {
			return nil, err
		}
		var args []node
		if p.peek().kind == tokenLParen {
			args, err = p.parseArgs()
			if err != nil {
				return nil, err
			}
		}
		expr = &filterApply{expr: expr, name: name.text, args: args}
	}
	return expr, nil
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokenString:
		return &literal{val: t.text}, nil

	case tokenNumber:
		if t.isInt {
			return &literal{val: int64(t.num)}, nil
		}
		return &literal{val: t.num}, nil

	case tokenIdent:
		switch t.text {
		case "true", "True":
			return &literal{val: true}, nil
		case "false", "False":
			return &literal{val: false}, nil
		case "none", "None":
			return &literal{val: nil}, nil
		}

		if p.peek().kind == tokenLParen {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &call{name: t.text, args: args}, nil
		}

		if p.peek().kind == tokenDot {
			if t.text != "states" {
				return nil, fmt.Errorf("%w: dotted access must be rooted at states, got %q", ErrMalformed, t.text)
			}
			path := []string{t.text}
			for p.peek().kind == tokenDot {
				p.next()
				part, err := p.expect(tokenIdent, "path segment")
				if err != nil {
					return nil, err
				}
				path = append(path, part.text)
			}
			return &dotted{path: path}, nil
		}

		return nil, fmt.Errorf("%w: bare identifier %q", ErrMalformed, t.text)

	default:
		return nil, fmt.Errorf("%w: unexpected token %q", ErrMalformed, t.text)
	}
}

func (p *parser) parseArgs() ([]node, error) {
	if _, err := p.expect(tokenLParen, "'('"); err != nil {
		return nil, err
	}
	var args []node
	if p.peek().kind == tokenRParen {
		p.next()
		return args, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		switch p.peek().kind {
		case tokenComma:
			p.next()
		case tokenRParen:
			p.next()
			return args, nil
		default:
			return nil, fmt.Errorf("%w: expected ',' or ')', got %q", ErrMalformed, p.peek().text)
		}
	}
}
