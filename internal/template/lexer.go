package template

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// tokenKind identifies a lexical token in a template expression.
type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenString
	tokenNumber
	tokenLParen
	tokenRParen
	tokenComma
	tokenPipe
	tokenDot
	tokenEq
	tokenNe
)

// token is one lexical unit of an expression body.
type token struct {
	kind tokenKind
	text string

	// num holds the parsed value for tokenNumber.
	num float64

	// isInt is true when a tokenNumber had no fractional part.
	isInt bool
}

// lex splits an expression body into tokens. It understands single- and
// double-quoted string literals, numbers, identifiers, and the handful of
// punctuation the closed surface needs.
func lex(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "("})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")"})
			i++
		case c == ',':
			tokens = append(tokens, token{kind: tokenComma, text: ","})
			i++
		case c == '|':
			tokens = append(tokens, token{kind: tokenPipe, text: "|"})
			i++
		case c == '.':
			tokens = append(tokens, token{kind: tokenDot, text: "."})
			i++
		case c == '=':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{kind: tokenEq, text: "=="})
				i += 2
				continue
			}
			return nil, fmt.Errorf("%w: stray '=' at offset %d", ErrMalformed, i)
		case c == '!':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{kind: tokenNe, text: "!="})
				i += 2
				continue
			}
			return nil, fmt.Errorf("%w: stray '!' at offset %d", ErrMalformed, i)
		case c == '\'' || c == '"':
			lit, next, err := lexString(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenString, text: lit})
			i = next
		case c >= '0' && c <= '9' || (c == '-' && i+1 < len(input) && input[i+1] >= '0' && input[i+1] <= '9'):
			lit, next := lexNumber(input, i)
			num, err := strconv.ParseFloat(lit, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrMalformed, lit)
			}
			tokens = append(tokens, token{
				kind:  tokenNumber,
				text:  lit,
				num:   num,
				isInt: !strings.Contains(lit, "."),
			})
			i = next
		case isIdentStart(rune(c)):
			start := i
			for i < len(input) && isIdentPart(rune(input[i])) {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: input[start:i]})
		default:
			return nil, fmt.Errorf("%w: unexpected character %q at offset %d", ErrMalformed, c, i)
		}
	}
	tokens = append(tokens, token{kind: tokenEOF})
	return tokens, nil
}

// lexString consumes a quoted string literal starting at i and returns the
// unquoted text and the index past the closing quote.
func lexString(input string, i int) (string, int, error) {
	quote := input[i]
	var b strings.Builder
	j := i + 1
	for j < len(input) {
		c := input[j]
		if c == '\\' && j+1 < len(input) {
			b.WriteByte(input[j+1])
			j += 2
			continue
		}
		if c == quote {
			return b.String(), j + 1, nil
		}
		b.WriteByte(c)
		j++
	}
	return "", 0, fmt.Errorf("%w: unterminated string literal", ErrMalformed)
}

// lexNumber consumes a numeric literal starting at i.
func lexNumber(input string, i int) (string, int) {
	j := i
	if input[j] == '-' {
		j++
	}
	for j < len(input) && (input[j] >= '0' && input[j] <= '9' || input[j] == '.') {
		j++
	}
	return input[i:j], j
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
