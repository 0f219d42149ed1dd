package grpcapi

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/fnplot/pkg/plot"
	"github.com/lemonberrylabs/fnplot/pkg/store"
	"github.com/lemonberrylabs/fnplot/pkg/types"
)

func startTestServer(t *testing.T) (*Client, *store.Memory) {
	t.Helper()
	p, err := plot.New(plot.Config{Points: 201})
	if err != nil {
		t.Fatalf("plot.New: %v", err)
	}
	history := store.NewMemory(10)
	srv := New(p, history)

	lis := bufconn.Listen(1 << 20)
	go srv.ServeListener(lis)
	t.Cleanup(srv.grpc.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewClient(conn), history
}

func TestPlot(t *testing.T) {
	client, history := startTestServer(t)
	ctx := context.Background()

	data, err := client.Plot(ctx, plot.Request{FunctionString: "1/x", XMin: -1, XMax: 1, Title: "hyperbola"})
	if err != nil {
		t.Fatalf("Plot: %v", err)
	}
	if len(data.X) != 201 {
		t.Fatalf("expected 201 samples, got %d", len(data.X))
	}
	if data.Valid[100] {
		t.Error("expected x=0 to be invalid")
	}
	if data.ValidCount != 200 {
		t.Errorf("expected 200 valid samples, got %d", data.ValidCount)
	}
	if data.Y[0] != -1 {
		t.Errorf("expected y(-1) = -1, got %v", data.Y[0])
	}
	if data.Title != "hyperbola" || data.XLabel != "x" {
		t.Errorf("unexpected labels %q %q", data.Title, data.XLabel)
	}

	entries, _ := history.Recent(ctx, 0)
	if len(entries) != 1 || entries[0].Expression != "1/x" {
		t.Errorf("expected the plot to be recorded, got %+v", entries)
	}
}

func TestPlotErrors(t *testing.T) {
	client, _ := startTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		req      plot.Request
		wantKind types.ErrorKind
		wantMsg  string
	}{
		{"token error", plot.Request{FunctionString: "x @ 1", XMin: 0, XMax: 1}, types.KindToken, `unexpected character "@"`},
		{"parse error", plot.Request{FunctionString: "sin(x, 1)", XMin: 0, XMax: 1}, types.KindParse, ""},
		{"range error", plot.Request{FunctionString: "x", XMin: 1, XMax: 1}, types.KindRange, ""},
		{"domain error", plot.Request{FunctionString: "sqrt(x)", XMin: -3, XMax: -1}, types.KindDomain, "entire domain undefined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Plot(ctx, tt.req)
			pe, ok := types.AsPlotError(err)
			if !ok {
				t.Fatalf("expected a PlotError, got %v", err)
			}
			if pe.Kind != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, pe.Kind)
			}
			if tt.wantMsg != "" && pe.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, pe.Message)
			}
		})
	}
}

func TestPlotMissingFunction(t *testing.T) {
	client, _ := startTestServer(t)

	_, err := client.Plot(context.Background(), plot.Request{XMin: 0, XMax: 1})
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected a status error, got %v", err)
	}
	if st.Code() != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", st.Code())
	}
	if st.Message() != "function string cannot be empty" {
		t.Errorf("unexpected message %q", st.Message())
	}
}

func TestPlotErrorCarriesReasonAndPosition(t *testing.T) {
	client, _ := startTestServer(t)
	req := plot.Request{FunctionString: "x + sin(x", XMin: 0, XMax: 1}

	_, err := client.Plot(context.Background(), req)
	pe, ok := types.AsPlotError(err)
	if !ok {
		t.Fatalf("expected a PlotError, got %v", err)
	}
	if pe.Kind != types.KindParse || pe.Reason != types.ReasonUnbalancedParens {
		t.Errorf("expected ParseError/UnbalancedParens, got %s/%s", pe.Kind, pe.Reason)
	}
	if pe.Pos != 7 {
		t.Errorf("expected position 7, got %d", pe.Pos)
	}

	// The raw status keeps a readable message next to the detail.
	in, _ := structpb.NewStruct(map[string]any{"function_string": req.FunctionString, "x_min": 0, "x_max": 1})
	err = client.cc.Invoke(context.Background(), "/"+ServiceName+"/Plot", in, new(structpb.Struct))
	st, _ := status.FromError(err)
	if st.Message() != "ParseError: '(' is never closed" {
		t.Errorf("unexpected status message %q", st.Message())
	}
	if len(st.Details()) != 1 {
		t.Errorf("expected one status detail, got %d", len(st.Details()))
	}
}

func TestFromStatusLeavesOtherErrors(t *testing.T) {
	plain := status.Error(codes.Unavailable, "down")
	if got := FromStatus(plain); got != plain {
		t.Errorf("expected the status error unchanged, got %v", got)
	}

	pe := FromStatus(toStatus(types.NewRangeError("bad range")))
	if types.KindOf(pe) != types.KindRange {
		t.Fatalf("expected a RangeError, got %v", pe)
	}
	if got := pe.(*types.PlotError); got.HasPos() || got.Message != "bad range" {
		t.Errorf("unexpected %+v", got)
	}
}

func TestListFunctions(t *testing.T) {
	client, _ := startTestServer(t)

	funcs, err := client.ListFunctions(context.Background())
	if err != nil {
		t.Fatalf("ListFunctions: %v", err)
	}

	found := map[string]Function{}
	for _, f := range funcs {
		found[f.Name] = f
	}
	for _, name := range []string{"sin", "cos", "tan", "log", "exp", "sqrt", "abs", "pow", "pi", "e"} {
		if _, ok := found[name]; !ok {
			t.Errorf("expected %q in the registry listing", name)
		}
	}
	if found["pow"].Arity != 2 {
		t.Errorf("expected pow to take 2 arguments, got %d", found["pow"].Arity)
	}
	if found["e"].Kind != "constant" {
		t.Errorf("expected e to be a constant, got %q", found["e"].Kind)
	}
}
