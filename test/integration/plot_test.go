package integration

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/lemonberrylabs/fnplot/pkg/plot"
)

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Kind    string `json:"kind"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// TestPlot_RESTAndGRPCAgree plots the same request over both transports.
func TestPlot_RESTAndGRPCAgree(t *testing.T) {
	s := startServer(t)
	req := plot.Request{FunctionString: "sqrt(x) * sin(x)", XMin: -2, XMax: 6}

	var viaREST plot.Data
	if status := s.postJSON(t, "/v1/plot", req, &viaREST); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}

	viaGRPC, err := s.grpcClient(t).Plot(context.Background(), req)
	if err != nil {
		t.Fatalf("gRPC Plot: %v", err)
	}

	if len(viaREST.X) != len(viaGRPC.X) {
		t.Fatalf("sample counts differ: %d vs %d", len(viaREST.X), len(viaGRPC.X))
	}
	if viaREST.ValidCount != viaGRPC.ValidCount {
		t.Errorf("valid counts differ: %d vs %d", viaREST.ValidCount, viaGRPC.ValidCount)
	}
	for i := range viaREST.X {
		if viaREST.Valid[i] != viaGRPC.Valid[i] {
			t.Fatalf("valid[%d] differs", i)
		}
		if viaREST.Valid[i] && viaREST.Y[i] != viaGRPC.Y[i] {
			t.Fatalf("y[%d] differs: %v vs %v", i, viaREST.Y[i], viaGRPC.Y[i])
		}
	}
	if viaREST.Valid[0] {
		t.Error("sqrt(x) is undefined at x=-2")
	}
}

// TestPlot_HistoryAcrossFrontEnds checks that REST, gRPC and web UI attempts
// all land in the shared history, newest first.
func TestPlot_HistoryAcrossFrontEnds(t *testing.T) {
	s := startServer(t)

	s.postJSON(t, "/v1/plot", plot.Request{FunctionString: "x", XMin: 0, XMax: 1}, nil)
	if _, err := s.grpcClient(t).Plot(context.Background(), plot.Request{FunctionString: "log(x)", XMin: -2, XMax: -1}); err == nil {
		t.Fatal("expected a DomainError over gRPC")
	}
	resp, err := http.PostForm(s.httpURL+"/plot", url.Values{"function_string": {"cos(x)"}, "x_min": {"0"}, "x_max": {"3"}})
	if err != nil {
		t.Fatalf("HTTP error: %v", err)
	}
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(page), "data:image/png;base64,") {
		t.Error("expected the web UI to embed a PNG")
	}

	var listed struct {
		Plots []struct {
			ID         string `json:"id"`
			Expression string `json:"expression"`
			ErrorKind  string `json:"error_kind"`
		} `json:"plots"`
	}
	if status := s.getJSON(t, "/v1/plots", &listed); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(listed.Plots) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(listed.Plots))
	}
	want := []string{"cos(x)", "log(x)", "x"}
	for i, p := range listed.Plots {
		if p.Expression != want[i] {
			t.Errorf("plots[%d] = %q, want %q", i, p.Expression, want[i])
		}
	}
	if listed.Plots[1].ErrorKind != "DomainError" {
		t.Errorf("expected DomainError entry, got %q", listed.Plots[1].ErrorKind)
	}
}

// TestPlot_ErrorKinds exercises each stage's failure over HTTP.
func TestPlot_ErrorKinds(t *testing.T) {
	s := startServer(t)

	tests := []struct {
		name     string
		req      plot.Request
		wantKind string
	}{
		{"token", plot.Request{FunctionString: "x # 1", XMin: 0, XMax: 1}, "TokenError"},
		{"parse", plot.Request{FunctionString: "(x", XMin: 0, XMax: 1}, "ParseError"},
		{"range before parse", plot.Request{FunctionString: "(x", XMin: 1, XMax: 0}, "RangeError"},
		{"domain", plot.Request{FunctionString: "acos(x)", XMin: 2, XMax: 3}, "DomainError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var eb errorBody
			if status := s.postJSON(t, "/v1/plot", tt.req, &eb); status != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", status)
			}
			if eb.Error.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", eb.Error.Kind, tt.wantKind)
			}
		})
	}
}

func TestMetricsExposed(t *testing.T) {
	s := startServer(t)
	s.postJSON(t, "/v1/plot", plot.Request{FunctionString: "x", XMin: 0, XMax: 1}, nil)

	resp, err := http.Get(s.httpURL + "/metrics")
	if err != nil {
		t.Fatalf("HTTP error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `fnplot_plots_total{outcome="ok"} 1`) {
		t.Errorf("expected the plot counter in /metrics, got:\n%s", body)
	}
}
