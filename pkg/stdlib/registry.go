// Package stdlib holds the closed allow-list of functions and constants an
// expression may reference.
//
// The registry is built once at package initialization and is read-only
// afterwards, so it is safe for concurrent use without locking. Entries
// cannot be added from outside the package.
package stdlib

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Func is a registry entry: a named constant (Arity 0) or a unary/binary
// numeric function with an optional domain predicate.
type Func struct {
	Name  string
	Arity int

	// Value is the constant value when Arity is 0.
	Value float64

	Fn1 func(float64) float64
	Fn2 func(float64, float64) float64

	// Domain1/Domain2 report whether the arguments are legal. nil means the
	// function is defined everywhere.
	Domain1 func(float64) bool
	Domain2 func(float64, float64) bool

	// DomainDoc describes the domain for listings, e.g. "a > 0".
	DomainDoc string
}

// IsConstant reports whether the entry is a zero-argument value.
func (f *Func) IsConstant() bool {
	return f.Arity == 0
}

// InDomain applies the domain predicate. len(args) must equal Arity.
func (f *Func) InDomain(args []float64) bool {
	switch f.Arity {
	case 1:
		return f.Domain1 == nil || f.Domain1(args[0])
	case 2:
		return f.Domain2 == nil || f.Domain2(args[0], args[1])
	default:
		return true
	}
}

// Call applies the function. len(args) must equal Arity.
func (f *Func) Call(args []float64) float64 {
	switch f.Arity {
	case 1:
		return f.Fn1(args[0])
	case 2:
		return f.Fn2(args[0], args[1])
	default:
		return f.Value
	}
}

// Signature renders the entry as "name(a)", "name(a, b)" or "name".
func (f *Func) Signature() string {
	switch f.Arity {
	case 1:
		return f.Name + "(a)"
	case 2:
		return f.Name + "(a, b)"
	default:
		return f.Name
	}
}

// Registry maps identifier names to entries.
type Registry struct {
	funcs map[string]*Func
	names []string // sorted
}

var builtin = newRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return builtin
}

func newRegistry() *Registry {
	r := &Registry{
		funcs: make(map[string]*Func),
	}
	r.registerMath()
	r.registerConstants()

	r.names = make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

// register adds an entry. Only called while building the registry.
func (r *Registry) register(f *Func) {
	if _, dup := r.funcs[f.Name]; dup {
		panic(fmt.Sprintf("stdlib: duplicate registration of %q", f.Name))
	}
	r.funcs[f.Name] = f
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (*Func, bool) {
	f, ok := r.funcs[name]
	return f, ok
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Funcs returns all entries sorted by name.
func (r *Registry) Funcs() []*Func {
	out := make([]*Func, len(r.names))
	for i, name := range r.names {
		out[i] = r.funcs[name]
	}
	return out
}

// Suggest returns the registered name closest to an unknown identifier, or
// "" when nothing is close enough to be a plausible typo.
func (r *Registry) Suggest(name string) string {
	if name == "" {
		return ""
	}

	ranks := fuzzy.RankFindFold(name, r.names)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	lower := strings.ToLower(name)
	best, bestDist := "", 3
	for _, candidate := range r.names {
		d := fuzzy.LevenshteinDistance(lower, candidate)
		if d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}
