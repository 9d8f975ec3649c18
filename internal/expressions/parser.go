package expressions

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError describes a failure to parse an expression
type ParseError struct {
	Message string `json:"message"`
	Index   int    `json:"index"`
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (at index %d)", e.Message, e.Index)
}

// ParseErrors collects the errors of a datetime expression whose date and
// time halves both failed
type ParseErrors []*ParseError

func (e ParseErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Operation is the direction of an adjustment
type Operation int

const (
	Plus Operation = iota
	Minus
)

func (o Operation) String() string {
	if o == Minus {
		return "-"
	}
	return "+"
}

func (o Operation) sign() int {
	if o == Minus {
		return -1
	}
	return 1
}

// Adjustment is one "(+|-) N unit" step of an expression
type Adjustment[U any] struct {
	Operation Operation
	Value     int
	Unit      U
}

// parser is the recursive-descent skeleton shared by the date and time
// grammars
type parser struct {
	tokens []token
	pos    int
}

func newParser(input string) *parser {
	return &parser{tokens: lex(input)}
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorAt(tok token, format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Index: tok.pos}
}

func (p *parser) unexpected(tok token, expected string) *ParseError {
	if tok.kind == tokEOF {
		return p.errorAt(tok, "Unexpected end of expression, expected %s", expected)
	}
	if tok.kind == tokInvalid {
		return p.errorAt(tok, "Invalid character '%s', expected %s", tok.text, expected)
	}
	return p.errorAt(tok, "Unexpected '%s', expected %s", tok.text, expected)
}

func (p *parser) expectInt() (int, *ParseError) {
	tok := p.peek()
	if tok.kind != tokInt {
		return 0, p.unexpected(tok, "a number")
	}
	p.advance()
	n, err := strconv.Atoi(tok.text)
	if err != nil {
		return 0, p.errorAt(tok, "Invalid number '%s'", tok.text)
	}
	return n, nil
}

func (p *parser) expectEOF() *ParseError {
	if tok := p.peek(); tok.kind != tokEOF {
		return p.unexpected(tok, "'+' or '-'")
	}
	return nil
}

// parseAdjustments parses "(+|-) INT unit" repeatedly until the end of input.
// units maps every accepted spelling to its unit value.
func parseAdjustments[U any](p *parser, units map[string]U, unitDesc string) ([]Adjustment[U], *ParseError) {
	var adjustments []Adjustment[U]

	for {
		tok := p.peek()
		var op Operation
		switch tok.kind {
		case tokEOF:
			return adjustments, nil
		case tokPlus:
			op = Plus
		case tokMinus:
			op = Minus
		default:
			return nil, p.unexpected(tok, "'+' or '-'")
		}
		p.advance()

		value, err := p.expectInt()
		if err != nil {
			return nil, err
		}

		unitTok := p.peek()
		if unitTok.kind != tokIdent {
			return nil, p.unexpected(unitTok, unitDesc)
		}
		unit, ok := units[unitTok.text]
		if !ok {
			return nil, p.errorAt(unitTok, "Invalid %s '%s'", unitDesc, unitTok.text)
		}
		p.advance()

		adjustments = append(adjustments, Adjustment[U]{Operation: op, Value: value, Unit: unit})
	}
}
