// Package expr implements the tokenizer, parser and evaluator for
// single-variable function expressions such as "sin(x)*x**2".
//
// The grammar is closed: the only identifiers accepted are the variable x
// and the names in the stdlib registry. No input string can reach anything
// other than float64 arithmetic and the allow-listed math functions.
package expr

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenNumber TokenType = iota // decimal literal, optional exponent
	TokenIdent                   // x, sin, pi, ...

	// Operators
	TokenPlus  // +
	TokenMinus // -
	TokenStar  // *
	TokenSlash // /
	TokenPower // ** or ^

	// Punctuation
	TokenLParen // (
	TokenRParen // )
	TokenComma  // ,

	// Special
	TokenEOF // end of expression
)

// Token represents a single lexical token.
type Token struct {
	Type     TokenType
	Value    string  // raw text
	FloatVal float64 // parsed value (for TokenNumber)
	Pos      int     // position in source
}

// IsOperator reports whether the token is an arithmetic operator.
func (t Token) IsOperator() bool {
	switch t.Type {
	case TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPower:
		return true
	}
	return false
}

// Kind returns the coarse token category: NUMBER, IDENT, OP, LPAREN,
// RPAREN, COMMA or EOF.
func (t Token) Kind() string {
	switch {
	case t.Type == TokenNumber:
		return "NUMBER"
	case t.Type == TokenIdent:
		return "IDENT"
	case t.IsOperator():
		return "OP"
	case t.Type == TokenLParen:
		return "LPAREN"
	case t.Type == TokenRParen:
		return "RPAREN"
	case t.Type == TokenComma:
		return "COMMA"
	default:
		return "EOF"
	}
}

// String returns a debug-friendly representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenNumber:
		return "NUMBER"
	case TokenIdent:
		return "IDENT"
	case TokenPlus:
		return "PLUS"
	case TokenMinus:
		return "MINUS"
	case TokenStar:
		return "STAR"
	case TokenSlash:
		return "SLASH"
	case TokenPower:
		return "POWER"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	case TokenComma:
		return "COMMA"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}
