package expr

import (
	"strconv"
	"strings"

	"github.com/lemonberrylabs/fnplot/pkg/stdlib"
)

// Node is the interface for all expression tree nodes. A tree is built by a
// single parse, every node owns its children, and nodes are never mutated
// after parsing.
type Node interface {
	nodeType() string

	// String renders the node in canonical, fully parenthesized form.
	String() string
}

// ConstNode is a numeric literal or a named constant such as pi.
type ConstNode struct {
	Value float64
	Name  string // set for named constants
}

func (n *ConstNode) nodeType() string { return "Const" }

func (n *ConstNode) String() string {
	if n.Name != "" {
		return n.Name
	}
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

// VarNode is a reference to the variable x.
type VarNode struct{}

func (n *VarNode) nodeType() string { return "Var" }

func (n *VarNode) String() string { return "x" }

// UnaryNode is a prefix sign: -a or +a.
type UnaryNode struct {
	Op      TokenType // TokenMinus or TokenPlus
	Operand Node
}

func (n *UnaryNode) nodeType() string { return "Unary" }

func (n *UnaryNode) String() string {
	return "(" + opSymbol(n.Op) + n.Operand.String() + ")"
}

// BinaryNode is an arithmetic operation: +, -, *, / or **.
type BinaryNode struct {
	Op    TokenType
	Left  Node
	Right Node
}

func (n *BinaryNode) nodeType() string { return "Binary" }

func (n *BinaryNode) String() string {
	return "(" + n.Left.String() + " " + opSymbol(n.Op) + " " + n.Right.String() + ")"
}

// CallNode is a call of a registry function. Fn is resolved at parse time.
type CallNode struct {
	Name string
	Args []Node
	Fn   *stdlib.Func
}

func (n *CallNode) nodeType() string { return "Call" }

func (n *CallNode) String() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	return n.Name + "(" + strings.Join(parts, ", ") + ")"
}

func opSymbol(op TokenType) string {
	switch op {
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenStar:
		return "*"
	case TokenSlash:
		return "/"
	case TokenPower:
		return "**"
	default:
		return "?"
	}
}

// Depth returns the height of the tree rooted at n.
func Depth(n Node) int {
	switch n := n.(type) {
	case *UnaryNode:
		return 1 + Depth(n.Operand)
	case *BinaryNode:
		return 1 + max(Depth(n.Left), Depth(n.Right))
	case *CallNode:
		d := 0
		for _, a := range n.Args {
			d = max(d, Depth(a))
		}
		return 1 + d
	default:
		return 1
	}
}

// Canonical returns the whitespace-insensitive form of a token stream, used
// as the key for caching parsed trees.
func Canonical(tokens []Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		if tok.Type == TokenEOF {
			break
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		if tok.Type == TokenPower {
			sb.WriteString("**")
			continue
		}
		sb.WriteString(tok.Value)
	}
	return sb.String()
}
