package optd

import (
	"bytes"
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/compression-optimizer/internal/dataset"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/logger"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
)

const (
	// OptimizerServiceName is the fully qualified gRPC service name
	OptimizerServiceName = "compressopt.v1.OptimizerService"
	// OptimizeMethod is the full method name of the unary Optimize call
	OptimizeMethod = "/" + OptimizerServiceName + "/Optimize"
	// RunIDMetadataKey carries the run id in response headers
	RunIDMetadataKey = "x-run-id"
)

// OptimizerServer is the server API of compressopt.v1.OptimizerService. Request
// and response use the JSON shapes of POST /optimise wrapped in a Struct.
type OptimizerServer interface {
	Optimize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// OptimizerServiceDesc describes the service for grpc.Server.RegisterService
var OptimizerServiceDesc = grpc.ServiceDesc{
	ServiceName: OptimizerServiceName,
	HandlerType: (*OptimizerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Optimize",
			Handler:    optimizeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "compressopt/v1/optimizer.proto",
}

func optimizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OptimizerServer).Optimize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: OptimizeMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OptimizerServer).Optimize(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterOptimizerServer registers srv on s
func RegisterOptimizerServer(s grpc.ServiceRegistrar, srv OptimizerServer) {
	s.RegisterService(&OptimizerServiceDesc, srv)
}

// OptimizerClient calls compressopt.v1.OptimizerService
type OptimizerClient struct {
	cc grpc.ClientConnInterface
}

func NewOptimizerClient(cc grpc.ClientConnInterface) *OptimizerClient {
	return &OptimizerClient{cc: cc}
}

func (c *OptimizerClient) Optimize(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, OptimizeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// NewGRPCServer builds a server exposing the optimiser, the standard health
// service and reflection. Call Shutdown on the health server before stopping.
func NewGRPCServer(service *Service, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(opts...)
	RegisterOptimizerServer(s, NewOptimizerGRPCServer(service))

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(OptimizerServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(s)
	return s, hs
}

// OptimizerGRPCServer implements OptimizerServer on top of a Service
type OptimizerGRPCServer struct {
	service *Service
}

func NewOptimizerGRPCServer(service *Service) *OptimizerGRPCServer {
	return &OptimizerGRPCServer{service: service}
}

func (s *OptimizerGRPCServer) Optimize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	body, err := req.MarshalJSON()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	in, err := dataset.DecodeRequest(bytes.NewReader(body))
	if err != nil {
		s.service.metrics.RecordRequest("grpc", "invalid")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	rec, err := s.service.Run(ctx, in)
	if err != nil {
		if IsRequestError(err) {
			s.service.metrics.RecordRequest("grpc", "invalid")
			return nil, status.Error(codes.InvalidArgument, requestErrorMessage(err))
		}
		logger.Error("error processing request", "error", err)
		s.service.metrics.RecordRequest("grpc", "error")
		return nil, status.Error(codes.Internal, err.Error())
	}

	if err := grpc.SetHeader(ctx, metadata.Pairs(RunIDMetadataKey, rec.ID)); err != nil {
		logger.Warn("failed to set run id header", "run_id", rec.ID, "error", err)
	}

	fields, err := optimalToMap(rec.Optimal)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	s.service.metrics.RecordRequest("grpc", "ok")
	logger.Info("optimisation served (gRPC)", "run_id", rec.ID)
	return out, nil
}

// optimalToMap is the JSON object form of OptimalParameters
func optimalToMap(p models.OptimalParameters) (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
