package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/lemonberrylabs/fnplot/pkg/api"
	grpcapi "github.com/lemonberrylabs/fnplot/pkg/api/grpc"
	"github.com/lemonberrylabs/fnplot/pkg/metrics"
	"github.com/lemonberrylabs/fnplot/pkg/plot"
	"github.com/lemonberrylabs/fnplot/pkg/render"
	"github.com/lemonberrylabs/fnplot/pkg/store"
	"github.com/lemonberrylabs/fnplot/web"
)

// testServer holds the addresses of a running fnplot instance.
type testServer struct {
	httpURL  string
	grpcAddr string
}

// startServer runs the HTTP and gRPC servers the way "fnplot serve" wires
// them, backed by a SQLite history in a temp dir. FNPLOT_URL points the
// HTTP tests at an external instance instead.
func startServer(t *testing.T) *testServer {
	t.Helper()
	zerolog.SetGlobalLevel(zerolog.Disabled)

	if u := os.Getenv("FNPLOT_URL"); u != "" {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			u = "http://" + u
		}
		return &testServer{httpURL: strings.TrimRight(u, "/"), grpcAddr: os.Getenv("FNPLOT_GRPC_ADDR")}
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	p, err := plot.New(plot.Config{Points: 201, CacheSize: 32, Metrics: m})
	if err != nil {
		t.Fatalf("plot.New: %v", err)
	}
	history, err := store.NewSQLite(filepath.Join(t.TempDir(), "history.db"), 20)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { history.Close() })

	r := render.New(render.Options{})
	srv := api.New(p, r, history, api.Options{Metrics: m, Gatherer: reg})
	web.New(p, r, history).Register(srv.App())

	httpLis, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go srv.Serve(httpLis)
	t.Cleanup(func() { srv.Shutdown() })

	grpcLis, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	gs := grpcapi.New(p, history)
	go gs.ServeListener(grpcLis)
	t.Cleanup(gs.GracefulStop)

	return &testServer{
		httpURL:  "http://" + httpLis.Addr().String(),
		grpcAddr: grpcLis.Addr().String(),
	}
}

// postJSON sends body to path and decodes the JSON response into out.
func (s *testServer) postJSON(t *testing.T, path string, body any, out any) int {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(s.httpURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("HTTP error: %v", err)
	}
	defer resp.Body.Close()
	return decode(t, resp, out)
}

// getJSON fetches path and decodes the JSON response into out.
func (s *testServer) getJSON(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(s.httpURL + path)
	if err != nil {
		t.Fatalf("HTTP error: %v", err)
	}
	defer resp.Body.Close()
	return decode(t, resp, out)
}

func decode(t *testing.T, resp *http.Response, out any) int {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decoding %s: %v", string(raw), err)
		}
	}
	return resp.StatusCode
}

// grpcClient dials the server's gRPC endpoint.
func (s *testServer) grpcClient(t *testing.T) *grpcapi.Client {
	t.Helper()
	if s.grpcAddr == "" {
		t.Skip("no gRPC address configured")
	}
	conn, err := grpc.NewClient(s.grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return grpcapi.NewClient(conn)
}

