// Package grpcdebug exposes read-only bridge and session state over gRPC
// for external tooling (dashboards, health probes) that should never be
// able to mutate the bridge - every method here only observes.
package grpcdebug

import (
	"context"

	"github.com/go-logr/logr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kotlin-lsp/sidecar-bridge/internal/bridge"
	"github.com/kotlin-lsp/sidecar-bridge/internal/session"
)

// serviceName is the gRPC service path external tooling dials. There is no
// .proto in this repo: the request/response shapes are structpb.Struct so
// the wire contract is JSON-shaped without needing generated message
// types, while still riding real protobuf wire encoding and grpc-go's
// service dispatch.
const serviceName = "kotlin_lsp.sidecarbridge.debug.v1.Debug"

// Server implements the debug service's two RPCs directly against a
// Bridge and Session, with no intermediate state of its own.
type Server struct {
	logger  logr.Logger
	bridge  *bridge.Bridge
	session *session.Session
	health  *health.Server
}

func New(logger logr.Logger, br *bridge.Bridge, sess *session.Session) *Server {
	return &Server{logger: logger, bridge: br, session: sess, health: health.NewServer()}
}

// Register mounts the debug service and the standard grpc.health.v1
// service onto grpcServer.
func (s *Server) Register(grpcServer *grpc.Server) {
	grpcServer.RegisterService(&serviceDesc, s)
	healthpb.RegisterHealthServer(grpcServer, s.health)
	s.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
}

// BridgeState returns the bridge's current lifecycle state as
// {"state": "ready"|"degraded"|...}.
func (s *Server) BridgeState(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"state": s.bridge.State().String(),
	})
}

// DocumentDiagnostics returns the cached diagnostics for a document URI,
// passed in the request struct under the "uri" key.
func (s *Server) DocumentDiagnostics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u := req.GetFields()["uri"].GetStringValue()
	diags, _ := s.session.Diagnostics(parseDebugURI(u))

	items := make([]interface{}, 0, len(diags))
	for _, d := range diags {
		items = append(items, map[string]interface{}{
			"message":  d.Message,
			"source":   d.Source,
			"severity": float64(d.Severity),
		})
	}
	return structpb.NewStruct(map[string]interface{}{
		"uri":         u,
		"diagnostics": items,
	})
}

// serviceDesc wires the two methods above onto grpc-go's generic
// dispatch machinery without a generated *_grpc.pb.go file.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*debugServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "BridgeState", Handler: bridgeStateHandler},
		{MethodName: "DocumentDiagnostics", Handler: documentDiagnosticsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sidecarbridge/debug.proto",
}

type debugServiceServer interface {
	BridgeState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DocumentDiagnostics(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func bridgeStateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(debugServiceServer).BridgeState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/BridgeState"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(debugServiceServer).BridgeState(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func documentDiagnosticsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(debugServiceServer).DocumentDiagnostics(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/DocumentDiagnostics"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(debugServiceServer).DocumentDiagnostics(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
