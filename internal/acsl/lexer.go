package acsl

import (
	"strings"

	"github.com/gnoverse/contractvc/internal/logic"
)

// TokenType defines the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenInt
	// TokenBuiltin is a backslash word such as \result or \forall.
	TokenBuiltin
	TokenPunct
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenIdent:
		return "Ident"
	case TokenInt:
		return "Int"
	case TokenBuiltin:
		return "Builtin"
	case TokenPunct:
		return "Punct"
	default:
		return "Unknown"
	}
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
	Line  int
	Col   int
}

// punctuators are tried longest first.
var punctuators = []string{
	"<==>", "==>", "..",
	"==", "!=", "<=", ">=", "&&", "||",
	"+", "-", "*", "/", "%", "<", ">", "!", "?", ":", ";", ",", "(", ")", "[", "]", "=",
}

// Lex splits annotation text into tokens. Comment markers (/*@, */, //@)
// and the leading @ of continuation lines are skipped.
func Lex(input string) ([]Token, error) {
	var tokens []Token
	line, col := 1, 1
	i := 0

	advance := func(n int) {
		for k := 0; k < n; k++ {
			if input[i] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
			i++
		}
	}

	for i < len(input) {
		c := input[i]
		rest := input[i:]

		switch {
		case isWhitespace(c) || c == '@':
			advance(1)
			continue
		case strings.HasPrefix(rest, "/*"):
			advance(2)
			continue
		case strings.HasPrefix(rest, "*/"):
			advance(2)
			continue
		case strings.HasPrefix(rest, "//"):
			advance(2)
			continue
		}

		startLine, startCol := line, col

		if c == '\\' {
			j := i + 1
			for j < len(input) && isIdentifierChar(input[j]) {
				j++
			}
			if j == i+1 {
				return nil, &logic.MalformedPredicateError{Line: line, Col: col, Msg: "'\\' must start a builtin name"}
			}
			tokens = append(tokens, Token{Type: TokenBuiltin, Value: input[i:j], Line: startLine, Col: startCol})
			advance(j - i)
			continue
		}

		if isDigit(c) {
			j := i
			for j < len(input) && isDigit(input[j]) {
				j++
			}
			if j < len(input) && isIdentifierStart(input[j]) {
				return nil, &logic.MalformedPredicateError{Line: line, Col: col, Msg: "malformed number " + input[i:j+1]}
			}
			tokens = append(tokens, Token{Type: TokenInt, Value: input[i:j], Line: startLine, Col: startCol})
			advance(j - i)
			continue
		}

		if isIdentifierStart(c) {
			j := i
			for j < len(input) && isIdentifierChar(input[j]) {
				j++
			}
			tokens = append(tokens, Token{Type: TokenIdent, Value: input[i:j], Line: startLine, Col: startCol})
			advance(j - i)
			continue
		}

		matched := ""
		for _, p := range punctuators {
			if strings.HasPrefix(rest, p) {
				matched = p
				break
			}
		}
		if matched == "" {
			return nil, &logic.MalformedPredicateError{Line: line, Col: col, Msg: "unexpected character " + string(c)}
		}
		tokens = append(tokens, Token{Type: TokenPunct, Value: matched, Line: startLine, Col: startCol})
		advance(len(matched))
	}

	tokens = append(tokens, Token{Type: TokenEOF, Line: line, Col: col})
	return tokens, nil
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentifierStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentifierChar(c byte) bool {
	return isIdentifierStart(c) || isDigit(c)
}
