package expr

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/lemonberrylabs/fnplot/pkg/types"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string // "KIND:value"
	}{
		{"42", []string{"NUMBER:42", "EOF:"}},
		{"3.14", []string{"NUMBER:3.14", "EOF:"}},
		{".5", []string{"NUMBER:.5", "EOF:"}},
		{"1e3", []string{"NUMBER:1e3", "EOF:"}},
		{"2.5E-2", []string{"NUMBER:2.5E-2", "EOF:"}},
		{"1e", []string{"NUMBER:1", "IDENT:e", "EOF:"}},
		{"x**2", []string{"IDENT:x", "OP:**", "NUMBER:2", "EOF:"}},
		{"x^2", []string{"IDENT:x", "OP:^", "NUMBER:2", "EOF:"}},
		{"pow(x, 2)", []string{"IDENT:pow", "LPAREN:(", "IDENT:x", "COMMA:,", "NUMBER:2", "RPAREN:)", "EOF:"}},
		{" \t-x\n", []string{"OP:-", "IDENT:x", "EOF:"}},
		{"", []string{"EOF:"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize(%q) error: %v", tt.input, err)
			}
			got := make([]string, len(tokens))
			for i, tok := range tokens {
				got[i] = tok.Kind() + ":" + tok.Value
			}
			if strings.Join(got, " ") != strings.Join(tt.want, " ") {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenizePositions(t *testing.T) {
	tokens, err := Tokenize("sin( x )**2")
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 3, 5, 7, 8, 10, 11}
	for i, tok := range tokens {
		if tok.Pos != want[i] {
			t.Errorf("token %d (%q): pos %d, want %d", i, tok.Value, tok.Pos, want[i])
		}
	}
}

func TestTokenizeNumberValues(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"0", 0},
		{"0.25", 0.25},
		{".5", 0.5},
		{"1e3", 1000},
		{"1.5e-3", 0.0015},
	}
	for _, tt := range tests {
		tokens, err := Tokenize(tt.input)
		if err != nil {
			t.Fatalf("Tokenize(%q): %v", tt.input, err)
		}
		if tokens[0].FloatVal != tt.want {
			t.Errorf("Tokenize(%q) = %v, want %v", tt.input, tokens[0].FloatVal, tt.want)
		}
	}

	tokens, err := Tokenize("1e999")
	if err != nil {
		t.Fatalf("overflowing literal should tokenize: %v", err)
	}
	if !math.IsInf(tokens[0].FloatVal, 1) {
		t.Errorf("expected +Inf, got %v", tokens[0].FloatVal)
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		input    string
		wantPos  int
		wantChar string
	}{
		{"x $ 2", 2, "$"},
		{"__import__('os')", 11, "'"},
		{"x; 1", 1, ";"},
		{"x == 2", 2, "="},
		{"2 × x", 2, "×"},
		{"x.y", 1, "."},
		{"x + \xff", 4, `\xff`},
		{"\xc3(", 0, `\xc3`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			if err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			pe, ok := types.AsPlotError(err)
			if !ok {
				t.Fatalf("expected *PlotError, got %T", err)
			}
			if pe.Kind != types.KindToken {
				t.Errorf("kind = %s, want TokenError", pe.Kind)
			}
			if pe.Pos != tt.wantPos {
				t.Errorf("pos = %d, want %d", pe.Pos, tt.wantPos)
			}
			if pe.Char != tt.wantChar {
				t.Errorf("char = %q, want %q", pe.Char, tt.wantChar)
			}
		})
	}
}

func TestTokenizeLengthLimit(t *testing.T) {
	ok := strings.Repeat("x+", 499) + "x"
	if _, err := Tokenize(ok); err != nil {
		t.Fatalf("expression of %d characters should be accepted: %v", len(ok), err)
	}

	_, err := Tokenize(ok + "+1")
	if !errors.Is(err, types.ErrToken) {
		t.Fatalf("expected TokenError, got %v", err)
	}
	if !strings.Contains(err.Error(), "maximum length") {
		t.Errorf("unexpected message: %v", err)
	}
	if pe, _ := types.AsPlotError(err); pe.HasPos() {
		t.Errorf("length error should have no position, got %d", pe.Pos)
	}
}
