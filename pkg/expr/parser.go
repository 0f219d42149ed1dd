package expr

import (
	"fmt"
	"strings"

	"github.com/lemonberrylabs/fnplot/pkg/stdlib"
	"github.com/lemonberrylabs/fnplot/pkg/types"
)

// Variable is the name of the only free variable an expression may use.
const Variable = "x"

// Parser is a recursive descent parser over a token slice.
type Parser struct {
	tokens []Token
	pos    int
	reg    *stdlib.Registry
	open   []int // positions of unclosed '('
}

// Parse tokenizes and parses an expression string.
func Parse(input string) (Node, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	return ParseTokens(tokens)
}

// ParseTokens parses a token slice produced by Tokenize. Every identifier is
// resolved against the registry here, so a returned tree never refers to an
// unknown name or calls a function with the wrong number of arguments.
func ParseTokens(tokens []Token) (Node, error) {
	p := &Parser{tokens: tokens, reg: stdlib.Default()}

	if p.current().Type == TokenEOF {
		return nil, types.NewParseError(types.ReasonEmptyExpression, 0, "expression is empty")
	}

	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	tok := p.current()
	switch tok.Type {
	case TokenEOF:
		return node, nil
	case TokenRParen:
		return nil, types.NewParseError(types.ReasonUnbalancedParens, tok.Pos, "unmatched ')'")
	case TokenNumber, TokenIdent, TokenLParen:
		return nil, types.NewParseError(types.ReasonTrailingInput, tok.Pos,
			fmt.Sprintf("unexpected %q after complete expression (implicit multiplication is not supported, use '*')", tok.Value))
	default:
		return nil, types.NewParseError(types.ReasonTrailingInput, tok.Pos,
			fmt.Sprintf("unexpected %s %q after complete expression", tok.Kind(), tok.Value))
	}
}

// current returns the current token.
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		end := 0
		if n := len(p.tokens); n > 0 {
			end = p.tokens[n-1].Pos
		}
		return Token{Type: TokenEOF, Pos: end}
	}
	return p.tokens[p.pos]
}

// advance consumes the current token and returns it.
func (p *Parser) advance() Token {
	tok := p.current()
	p.pos++
	return tok
}

// openParen consumes a '(' and remembers where it was.
func (p *Parser) openParen() {
	tok := p.advance()
	p.open = append(p.open, tok.Pos)
}

// closeParen consumes the ')' matching the innermost open paren.
func (p *Parser) closeParen(context string) error {
	tok := p.current()
	switch tok.Type {
	case TokenRParen:
		p.advance()
		p.open = p.open[:len(p.open)-1]
		return nil
	case TokenEOF:
		return p.unclosed()
	default:
		return types.NewParseError(types.ReasonUnexpectedToken, tok.Pos,
			fmt.Sprintf("expected %s, got %q", context, tok.Value))
	}
}

// unclosed reports the innermost '(' that never got closed.
func (p *Parser) unclosed() error {
	pos := p.open[len(p.open)-1]
	return types.NewParseError(types.ReasonUnbalancedParens, pos, "'(' is never closed")
}

// parseExpression is the entry point: handles the lowest precedence operators.
// Precedence (low to high):
//
//	+, -        left-associative
//	*, /        left-associative
//	**, ^       right-associative
//	unary -, +
//	number, x, constant, call, parenthesized expression
func (p *Parser) parseExpression() (Node, error) {
	return p.parseAddition()
}

func (p *Parser) parseAddition() (Node, error) {
	left, err := p.parseMultiplication()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenPlus || p.current().Type == TokenMinus {
		op := p.advance().Type
		right, err := p.parseMultiplication()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplication() (Node, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenStar || p.current().Type == TokenSlash {
		op := p.advance().Type
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePower() (Node, error) {
	base, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	if p.current().Type != TokenPower {
		return base, nil
	}
	p.advance()
	exponent, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	return &BinaryNode{Op: TokenPower, Left: base, Right: exponent}, nil
}

func (p *Parser) parseUnary() (Node, error) {
	if p.current().Type == TokenMinus || p.current().Type == TokenPlus {
		op := p.advance().Type
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{Op: op, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Node, error) {
	tok := p.current()

	switch tok.Type {
	case TokenNumber:
		p.advance()
		return &ConstNode{Value: tok.FloatVal}, nil
	case TokenIdent:
		return p.parseIdent()
	case TokenLParen:
		p.openParen()
		node, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.closeParen("')'"); err != nil {
			return nil, err
		}
		return node, nil
	case TokenEOF:
		if len(p.open) > 0 {
			return nil, p.unclosed()
		}
		return nil, types.NewParseError(types.ReasonUnexpectedToken, tok.Pos, "unexpected end of expression")
	case TokenRParen:
		if len(p.open) == 0 {
			return nil, types.NewParseError(types.ReasonUnbalancedParens, tok.Pos, "unmatched ')'")
		}
		return nil, types.NewParseError(types.ReasonUnexpectedToken, tok.Pos, "expected an operand before ')'")
	default:
		return nil, types.NewParseError(types.ReasonUnexpectedToken, tok.Pos,
			fmt.Sprintf("unexpected %s %q, expected an operand", tok.Kind(), tok.Value))
	}
}

// parseIdent resolves an identifier: the variable, a constant, or a call.
func (p *Parser) parseIdent() (Node, error) {
	tok := p.advance()
	name := tok.Value

	if name == Variable {
		if p.current().Type == TokenLParen {
			return nil, types.NewParseError(types.ReasonUnexpectedToken, p.current().Pos,
				"x is a variable and cannot be called (implicit multiplication is not supported, use '*')")
		}
		return &VarNode{}, nil
	}

	fn, ok := p.reg.Lookup(name)
	if !ok {
		return nil, types.NewParseError(types.ReasonUnknownIdentifier, tok.Pos, p.unknownMessage(name))
	}

	if fn.IsConstant() {
		if p.current().Type == TokenLParen {
			return nil, types.NewParseError(types.ReasonWrongArity, tok.Pos,
				fmt.Sprintf("%s is a constant and takes no arguments", name))
		}
		return &ConstNode{Value: fn.Value, Name: name}, nil
	}

	if p.current().Type != TokenLParen {
		return nil, types.NewParseError(types.ReasonWrongArity, tok.Pos,
			fmt.Sprintf("%s is a function and must be called as %s", name, fn.Signature()))
	}

	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	if len(args) != fn.Arity {
		return nil, types.NewParseError(types.ReasonWrongArity, tok.Pos,
			fmt.Sprintf("%s expects %d argument(s), got %d", name, fn.Arity, len(args)))
	}

	return &CallNode{Name: name, Args: args, Fn: fn}, nil
}

// parseArgList parses (expr, expr, ...).
func (p *Parser) parseArgList() ([]Node, error) {
	p.openParen()

	var args []Node
	if p.current().Type == TokenRParen {
		p.advance()
		p.open = p.open[:len(p.open)-1]
		return args, nil
	}

	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}

	if err := p.closeParen("',' or ')' in arguments"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) unknownMessage(name string) string {
	msg := fmt.Sprintf("unknown identifier %q", name)
	hint := p.reg.Suggest(name)
	if strings.EqualFold(name, Variable) {
		hint = Variable
	}
	if hint != "" && hint != name {
		msg += fmt.Sprintf(" (did you mean %q?)", hint)
	}
	return msg
}
