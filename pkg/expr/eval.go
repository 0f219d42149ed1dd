package expr

import (
	"fmt"
	"math"

	"github.com/lemonberrylabs/fnplot/pkg/stdlib"
	"github.com/lemonberrylabs/fnplot/pkg/types"
)

// UndefinedDomain is the DomainError reason when no sample is valid.
const UndefinedDomain = "entire domain undefined"

// Result holds the sampled curve. X, Y and Valid always have equal length.
// Y[i] is NaN wherever Valid[i] is false.
type Result struct {
	X          []float64
	Y          []float64
	Valid      []bool
	ValidCount int
}

// Evaluate evaluates node at every grid point. A sample whose evaluation
// hits a domain violation, a division by zero or a non-finite intermediate
// value is marked invalid; the remaining samples are unaffected. If no
// sample is valid the whole evaluation fails with a DomainError.
func Evaluate(node Node, grid []float64) (*Result, error) {
	res := &Result{
		X:     grid,
		Y:     make([]float64, len(grid)),
		Valid: make([]bool, len(grid)),
	}

	for i, x := range grid {
		y, ok := EvalAt(node, x)
		if !ok {
			res.Y[i] = math.NaN()
			continue
		}
		res.Y[i] = y
		res.Valid[i] = true
		res.ValidCount++
	}

	if res.ValidCount == 0 {
		return nil, types.NewDomainError(UndefinedDomain)
	}
	return res, nil
}

// EvalAt evaluates node at a single x. ok is false when the expression is
// undefined or non-finite there.
func EvalAt(node Node, x float64) (float64, bool) {
	switch n := node.(type) {
	case *ConstNode:
		return finite(n.Value)
	case *VarNode:
		return finite(x)
	case *UnaryNode:
		return evalUnary(n, x)
	case *BinaryNode:
		return evalBinary(n, x)
	case *CallNode:
		return evalCall(n, x)
	default:
		panic(fmt.Sprintf("expr: unsupported node type %T", node))
	}
}

func evalUnary(n *UnaryNode, x float64) (float64, bool) {
	v, ok := EvalAt(n.Operand, x)
	if !ok {
		return math.NaN(), false
	}
	if n.Op == TokenMinus {
		return -v, true
	}
	return v, true
}

func evalBinary(n *BinaryNode, x float64) (float64, bool) {
	a, ok := EvalAt(n.Left, x)
	if !ok {
		return math.NaN(), false
	}
	b, ok := EvalAt(n.Right, x)
	if !ok {
		return math.NaN(), false
	}

	switch n.Op {
	case TokenPlus:
		return finite(a + b)
	case TokenMinus:
		return finite(a - b)
	case TokenStar:
		return finite(a * b)
	case TokenSlash:
		if b == 0 {
			return math.NaN(), false
		}
		return finite(a / b)
	case TokenPower:
		if !stdlib.PowDomain(a, b) {
			return math.NaN(), false
		}
		return finite(math.Pow(a, b))
	default:
		panic(fmt.Sprintf("expr: unsupported binary operator %s", n.Op))
	}
}

func evalCall(n *CallNode, x float64) (float64, bool) {
	var buf [2]float64
	args := buf[:len(n.Args)]
	for i, arg := range n.Args {
		v, ok := EvalAt(arg, x)
		if !ok {
			return math.NaN(), false
		}
		args[i] = v
	}

	if !n.Fn.InDomain(args) {
		return math.NaN(), false
	}
	return finite(n.Fn.Call(args))
}

func finite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return math.NaN(), false
	}
	return v, true
}
