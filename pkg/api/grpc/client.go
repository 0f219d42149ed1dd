package grpcapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/fnplot/pkg/plot"
	"github.com/lemonberrylabs/fnplot/pkg/types"
)

// Client is a typed client for the Plotter service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Function describes a registry entry as returned by ListFunctions.
type Function struct {
	Name      string `json:"name"`
	Arity     int    `json:"arity"`
	Kind      string `json:"kind"`
	Signature string `json:"signature"`
	Domain    string `json:"domain,omitempty"`
}

// Plot runs req on the server. Pipeline failures are returned as
// *types.PlotError; other failures as gRPC status errors.
func (c *Client) Plot(ctx context.Context, req plot.Request, opts ...grpc.CallOption) (*plot.Data, error) {
	fields := map[string]any{
		"function_string": req.FunctionString,
		"x_min":           req.XMin,
		"x_max":           req.XMax,
	}
	if req.Title != "" {
		fields["title"] = req.Title
	}
	if req.XLabel != "" {
		fields["xlabel"] = req.XLabel
	}
	if req.YLabel != "" {
		fields["ylabel"] = req.YLabel
	}
	if req.Points != 0 {
		fields["points"] = req.Points
	}
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Plot", in, out, opts...); err != nil {
		return nil, FromStatus(err)
	}

	var data plot.Data
	if err := decodeStruct(out, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ListFunctions returns the server's function registry.
func (c *Client) ListFunctions(ctx context.Context, opts ...grpc.CallOption) ([]Function, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ListFunctions", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}

	var listed struct {
		Functions []Function `json:"functions"`
	}
	if err := decodeStruct(out, &listed); err != nil {
		return nil, err
	}
	return listed.Functions, nil
}

func decodeStruct(s *structpb.Struct, v any) error {
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// FromStatus rebuilds the *types.PlotError carried in a status error's
// ErrorInfo detail. Errors without one are returned unchanged.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != ErrorDomain {
			continue
		}
		md := info.GetMetadata()
		pe := &types.PlotError{
			Kind:    types.ErrorKind(info.GetReason()),
			Reason:  types.ParseReason(md["reason"]),
			Message: md["message"],
			Pos:     types.NoPos,
			Char:    md["char"],
		}
		if p, perr := strconv.Atoi(md["position"]); perr == nil {
			pe.Pos = p
		}
		return pe
	}
	return err
}
