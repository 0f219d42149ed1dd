package expr

import (
	"errors"
	"strconv"
	"unicode/utf8"

	"github.com/lemonberrylabs/fnplot/pkg/types"
)

// MaxExpressionLength is the maximum allowed length, in characters, of an
// expression string.
const MaxExpressionLength = 1000

// Lexer tokenizes an expression string.
type Lexer struct {
	input  string
	pos    int
	tokens []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize scans input and returns its tokens terminated by TokenEOF.
func Tokenize(input string) ([]Token, error) {
	return NewLexer(input).Tokenize()
}

// Tokenize scans the entire input and returns all tokens. The last token is
// always TokenEOF. Errors are *types.PlotError of kind TokenError.
func (l *Lexer) Tokenize() ([]Token, error) {
	if utf8.RuneCountInString(l.input) > MaxExpressionLength {
		return nil, types.NewLengthError(MaxExpressionLength)
	}
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return l.tokens, nil
}

// next returns the next token from the input.
func (l *Lexer) next() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	ch := l.input[l.pos]

	if isDigit(ch) || (ch == '.' && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1])) {
		return l.readNumber()
	}

	if ch == '*' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '*' {
		l.pos += 2
		return Token{Type: TokenPower, Value: "**", Pos: l.pos - 2}, nil
	}

	switch ch {
	case '+':
		l.pos++
		return Token{Type: TokenPlus, Value: "+", Pos: l.pos - 1}, nil
	case '-':
		l.pos++
		return Token{Type: TokenMinus, Value: "-", Pos: l.pos - 1}, nil
	case '*':
		l.pos++
		return Token{Type: TokenStar, Value: "*", Pos: l.pos - 1}, nil
	case '/':
		l.pos++
		return Token{Type: TokenSlash, Value: "/", Pos: l.pos - 1}, nil
	case '^':
		l.pos++
		return Token{Type: TokenPower, Value: "^", Pos: l.pos - 1}, nil
	case '(':
		l.pos++
		return Token{Type: TokenLParen, Value: "(", Pos: l.pos - 1}, nil
	case ')':
		l.pos++
		return Token{Type: TokenRParen, Value: ")", Pos: l.pos - 1}, nil
	case ',':
		l.pos++
		return Token{Type: TokenComma, Value: ",", Pos: l.pos - 1}, nil
	}

	if isIdentStart(ch) {
		return l.readIdentifier(), nil
	}

	// Everything before pos is ASCII, so the byte offset is also the
	// character offset.
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	if r == utf8.RuneError && size <= 1 {
		return Token{}, types.NewByteError(l.pos, l.input[l.pos])
	}
	return Token{}, types.NewTokenError(l.pos, string(r))
}

// readNumber reads a decimal literal: digits, an optional fraction and an
// optional exponent. An 'e' not followed by digits ends the number.
func (l *Lexer) readNumber() (Token, error) {
	start := l.pos

	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		j := l.pos + 1
		if j < len(l.input) && (l.input[j] == '+' || l.input[j] == '-') {
			j++
		}
		if j < len(l.input) && isDigit(l.input[j]) {
			for j < len(l.input) && isDigit(l.input[j]) {
				j++
			}
			l.pos = j
		}
	}

	raw := l.input[start:l.pos]
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Token{}, types.NewTokenError(start, raw[:1])
	}
	// Out-of-range literals keep the ±Inf ParseFloat returns; the evaluator
	// treats them as non-finite.
	return Token{Type: TokenNumber, Value: raw, FloatVal: f, Pos: start}, nil
}

// readIdentifier reads an identifier. Names are resolved by the parser.
func (l *Lexer) readIdentifier() Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	return Token{Type: TokenIdent, Value: l.input[start:l.pos], Pos: start}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			l.pos++
		default:
			return
		}
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
