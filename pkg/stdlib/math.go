package stdlib

import "math"

// registerMath registers the math functions.
func (r *Registry) registerMath() {
	r.register(&Func{Name: "sin", Arity: 1, Fn1: math.Sin})
	r.register(&Func{Name: "cos", Arity: 1, Fn1: math.Cos})
	r.register(&Func{Name: "tan", Arity: 1, Fn1: math.Tan})
	r.register(&Func{Name: "asin", Arity: 1, Fn1: math.Asin, Domain1: unitInterval, DomainDoc: "-1 <= a <= 1"})
	r.register(&Func{Name: "acos", Arity: 1, Fn1: math.Acos, Domain1: unitInterval, DomainDoc: "-1 <= a <= 1"})
	r.register(&Func{Name: "atan", Arity: 1, Fn1: math.Atan})
	r.register(&Func{Name: "exp", Arity: 1, Fn1: math.Exp})
	r.register(&Func{Name: "log", Arity: 1, Fn1: math.Log, Domain1: positive, DomainDoc: "a > 0"})
	r.register(&Func{Name: "log10", Arity: 1, Fn1: math.Log10, Domain1: positive, DomainDoc: "a > 0"})
	r.register(&Func{Name: "sqrt", Arity: 1, Fn1: math.Sqrt, Domain1: nonNegative, DomainDoc: "a >= 0"})
	r.register(&Func{Name: "abs", Arity: 1, Fn1: math.Abs})
	r.register(&Func{Name: "pow", Arity: 2, Fn2: math.Pow, Domain2: PowDomain, DomainDoc: "a >= 0 or b integer; a != 0 when b < 0"})
}

// registerConstants registers the named constants.
func (r *Registry) registerConstants() {
	r.register(&Func{Name: "pi", Arity: 0, Value: math.Pi})
	r.register(&Func{Name: "e", Arity: 0, Value: math.E})
}

func positive(a float64) bool    { return a > 0 }
func nonNegative(a float64) bool { return a >= 0 }
func unitInterval(a float64) bool {
	return a >= -1 && a <= 1
}

// PowDomain reports whether a**b has a real, finite value: a negative base
// needs an integer exponent and zero cannot be raised to a negative power.
// The ** and ^ operators share it with pow.
func PowDomain(a, b float64) bool {
	if a < 0 && b != math.Trunc(b) {
		return false
	}
	if a == 0 && b < 0 {
		return false
	}
	return true
}
