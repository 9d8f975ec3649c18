package expressions

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokPlus
	tokMinus
	tokInvalid
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex splits an expression into tokens. Identifiers are lower-cased and may
// contain an apostrophe so that "o'clock" is a single token. The returned
// slice always ends with a tokEOF token.
func lex(input string) []token {
	var tokens []token
	runes := []rune(input)
	i := 0

	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsLetter(r):
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || runes[i] == '\'') {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: strings.ToLower(string(runes[start:i])), pos: start})
		case unicode.IsDigit(r):
			start := i
			for i < len(runes) && unicode.IsDigit(runes[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokInt, text: string(runes[start:i]), pos: start})
		case r == '+':
			tokens = append(tokens, token{kind: tokPlus, text: "+", pos: i})
			i++
		case r == '-':
			tokens = append(tokens, token{kind: tokMinus, text: "-", pos: i})
			i++
		default:
			tokens = append(tokens, token{kind: tokInvalid, text: string(r), pos: i})
			i++
		}
	}

	return append(tokens, token{kind: tokEOF, pos: len(runes)})
}
