/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package dsl

import (
	"fmt"
	"unicode"
)

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenNumber
	TokenHex
	TokenLParen
	TokenRParen
	TokenAnd
	TokenOr
	TokenXor
	TokenArrow
	TokenDot
	TokenColon
	TokenSlash
)

var tokenNames = map[TokenType]string{
	TokenEOF:    "end of input",
	TokenIdent:  "identifier",
	TokenNumber: "number",
	TokenHex:    "hex constant",
	TokenLParen: "'('",
	TokenRParen: "')'",
	TokenAnd:    "'&'",
	TokenOr:     "'|'",
	TokenXor:    "'^'",
	TokenArrow:  "'>->'",
	TokenDot:    "'.'",
	TokenColon:  "':'",
	TokenSlash:  "'/'",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// End returns the offset just past the token.
func (t Token) End() int {
	return t.Pos + len(t.Value)
}

type Lexer struct {
	input string
	pos   int
	ch    rune
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.pos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = rune(l.input[l.pos])
	}
	l.pos++
}

func (l *Lexer) peekChar() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	return rune(l.input[l.pos])
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.ch {
		case ' ', '\t', '\n', '\r':
			l.readChar()
		case '#':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.pos - 1
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' || l.ch == '-' {
		l.readChar()
	}
	return l.input[start : l.pos-1]
}

func (l *Lexer) readNumber() string {
	start := l.pos - 1
	if l.ch == '-' {
		l.readChar()
	}
	for unicode.IsDigit(l.ch) {
		l.readChar()
	}
	return l.input[start : l.pos-1]
}

func (l *Lexer) readHex() (string, error) {
	start := l.pos - 1
	l.readChar()
	l.readChar()
	for isHexDigit(l.ch) {
		l.readChar()
	}
	if l.pos-1-start == 2 {
		return "", &SyntaxError{Pos: start, Msg: "hex constant without digits"}
	}
	return l.input[start : l.pos-1], nil
}

func isHexDigit(ch rune) bool {
	return unicode.IsDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	tok := Token{Pos: l.pos - 1}

	switch l.ch {
	case 0:
		tok.Type = TokenEOF
	case '(':
		tok.Type = TokenLParen
		tok.Value = "("
		l.readChar()
	case ')':
		tok.Type = TokenRParen
		tok.Value = ")"
		l.readChar()
	case '&':
		tok.Type = TokenAnd
		tok.Value = "&"
		l.readChar()
	case '|':
		tok.Type = TokenOr
		tok.Value = "|"
		l.readChar()
	case '^':
		tok.Type = TokenXor
		tok.Value = "^"
		l.readChar()
	case '.':
		tok.Type = TokenDot
		tok.Value = "."
		l.readChar()
	case ':':
		tok.Type = TokenColon
		tok.Value = ":"
		l.readChar()
	case '/':
		tok.Type = TokenSlash
		tok.Value = "/"
		l.readChar()
	case '>':
		if l.pos+1 < len(l.input) && l.input[l.pos:l.pos+2] == "->" {
			tok.Type = TokenArrow
			tok.Value = ">->"
			l.readChar()
			l.readChar()
			l.readChar()
			break
		}
		return tok, &SyntaxError{Pos: tok.Pos, Msg: "unexpected character '>', expected '>->'"}
	case '-':
		if !unicode.IsDigit(l.peekChar()) {
			return tok, &SyntaxError{Pos: tok.Pos, Msg: "unexpected character '-'"}
		}
		tok.Value = l.readNumber()
		tok.Type = TokenNumber
	default:
		switch {
		case l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X'):
			value, err := l.readHex()
			if err != nil {
				return tok, err
			}
			tok.Value = value
			tok.Type = TokenHex
		case unicode.IsLetter(l.ch) || l.ch == '_':
			tok.Value = l.readIdentifier()
			tok.Type = TokenIdent
		case unicode.IsDigit(l.ch):
			tok.Value = l.readNumber()
			tok.Type = TokenNumber
		default:
			return tok, &SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf("unexpected character %q", l.ch)}
		}
	}

	return tok, nil
}
