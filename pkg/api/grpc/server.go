// Package grpcapi exposes the plotter as the gRPC service fnplot.v1.Plotter.
//
// Messages are google.protobuf.Struct values shaped like the REST API's JSON
// bodies, so the service needs no generated code.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/fnplot/pkg/api"
	"github.com/lemonberrylabs/fnplot/pkg/plot"
	"github.com/lemonberrylabs/fnplot/pkg/stdlib"
	"github.com/lemonberrylabs/fnplot/pkg/store"
	"github.com/lemonberrylabs/fnplot/pkg/types"
)

// ServiceName is the fully qualified service name.
const ServiceName = "fnplot.v1.Plotter"

// ErrorDomain is the ErrorInfo domain attached to PlotError statuses.
const ErrorDomain = "fnplot"

// PlotterServer is the server API for the Plotter service.
type PlotterServer interface {
	Plot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListFunctions(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes the Plotter service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PlotterServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Plot", Handler: plotHandler},
		{MethodName: "ListFunctions", Handler: listFunctionsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fnplot/v1/plotter.proto",
}

func plotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PlotterServer).Plot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Plot"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PlotterServer).Plot(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listFunctionsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PlotterServer).ListFunctions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ListFunctions"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PlotterServer).ListFunctions(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// Server implements PlotterServer.
type Server struct {
	plotter *plot.Plotter
	history store.Store
	grpc    *grpc.Server
}

// New creates a new gRPC server. history may be nil.
func New(p *plot.Plotter, history store.Store) *Server {
	srv := &Server{plotter: p, history: history}

	gs := grpc.NewServer(grpc.UnaryInterceptor(logUnary))
	gs.RegisterService(&ServiceDesc, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.ServeListener(lis)
}

// ServeListener serves gRPC requests on lis.
func (s *Server) ServeListener(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

// Plot runs a plot request.
func (s *Server) Plot(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := requestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	data, err := api.Run(ctx, s.plotter, s.history, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return dataToStruct(data)
}

// ListFunctions lists the function registry.
func (s *Server) ListFunctions(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	funcs := api.FunctionsToJSON(stdlib.Default())
	items := make([]any, len(funcs))
	for i, f := range funcs {
		items[i] = map[string]any(f)
	}
	out, err := structpb.NewStruct(map[string]any{"functions": items})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding functions: %v", err)
	}
	return out, nil
}

// --- Helpers ---

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	log.Info().
		Str("method", info.FullMethod).
		Str("code", status.Code(err).String()).
		Dur("duration", time.Since(start)).
		Msg("rpc")
	return resp, err
}

// toStatus maps err to a gRPC status. A PlotError becomes InvalidArgument
// with an ErrorInfo detail carrying its kind, reason and position.
func toStatus(err error) error {
	if pe, ok := types.AsPlotError(err); ok {
		st := status.New(codes.InvalidArgument, fmt.Sprintf("%s: %s", pe.Kind, pe.Message))
		md := map[string]string{"message": pe.Message}
		if pe.Reason != "" {
			md["reason"] = string(pe.Reason)
		}
		if pe.HasPos() {
			md["position"] = strconv.Itoa(pe.Pos)
		}
		if pe.Char != "" {
			md["char"] = pe.Char
		}
		detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
			Reason:   string(pe.Kind),
			Domain:   ErrorDomain,
			Metadata: md,
		})
		if derr != nil {
			log.Warn().Err(derr).Msg("could not attach error details")
			return st.Err()
		}
		return detailed.Err()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func requestFromStruct(in *structpb.Struct) (plot.Request, error) {
	fields := in.GetFields()

	var req plot.Request
	req.FunctionString = fields["function_string"].GetStringValue()
	if req.FunctionString == "" {
		return plot.Request{}, errors.New("function string cannot be empty")
	}

	xMin, okMin := number(fields["x_min"])
	xMax, okMax := number(fields["x_max"])
	if !okMin || !okMax {
		return plot.Request{}, errors.New("both x_min and x_max must be provided")
	}
	req.XMin, req.XMax = xMin, xMax

	req.Title = fields["title"].GetStringValue()
	req.XLabel = fields["xlabel"].GetStringValue()
	req.YLabel = fields["ylabel"].GetStringValue()
	if n, ok := number(fields["points"]); ok {
		req.Points = int(n)
	}
	return req, nil
}

func number(v *structpb.Value) (float64, bool) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	return n.NumberValue, true
}

func dataToStruct(d *plot.Data) (*structpb.Struct, error) {
	xs := make([]any, len(d.X))
	ys := make([]any, len(d.Y))
	valid := make([]any, len(d.Valid))
	for i := range d.X {
		xs[i] = d.X[i]
		valid[i] = d.Valid[i]
		if d.Valid[i] {
			ys[i] = d.Y[i]
		}
	}

	title, xlabel, ylabel := d.Labels()
	out, err := structpb.NewStruct(map[string]any{
		"x":           xs,
		"y":           ys,
		"valid":       valid,
		"valid_count": d.ValidCount,
		"title":       title,
		"xlabel":      xlabel,
		"ylabel":      ylabel,
		"expression":  d.Expression,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding plot: %v", err)
	}
	return out, nil
}
