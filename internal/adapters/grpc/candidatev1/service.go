// Package candidatev1 は candidate.v1.CandidateService の gRPC サービス定義です。
// メッセージは google.protobuf.Struct で表現し、フィールド名は lowerCamelCase です。
package candidatev1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName は完全修飾サービス名です。
const ServiceName = "candidate.v1.CandidateService"

const (
	CreateCandidateMethod        = "CreateCandidate"
	GetCandidateMethod           = "GetCandidate"
	RequestTransitionMethod      = "RequestTransition"
	RequestSubStatusUpdateMethod = "RequestSubStatusUpdate"
	ListTimelineMethod           = "ListTimeline"
	GetTransitionOptionsMethod   = "GetTransitionOptions"
	ListDueFollowUpsMethod       = "ListDueFollowUps"
	GetStageGraphMethod          = "GetStageGraph"
)

// FullMethod は "/candidate.v1.CandidateService/<method>" を返します。
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// CandidateServiceServer はサーバー側の実装が満たすインターフェースです。
type CandidateServiceServer interface {
	CreateCandidate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCandidate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RequestTransition(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RequestSubStatusUpdate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTimeline(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTransitionOptions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListDueFollowUps(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStageGraph(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedCandidateServiceServer は未実装メソッドに Unimplemented を返します。
type UnimplementedCandidateServiceServer struct{}

func (UnimplementedCandidateServiceServer) CreateCandidate(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateCandidate not implemented")
}

func (UnimplementedCandidateServiceServer) GetCandidate(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetCandidate not implemented")
}

func (UnimplementedCandidateServiceServer) RequestTransition(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RequestTransition not implemented")
}

func (UnimplementedCandidateServiceServer) RequestSubStatusUpdate(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RequestSubStatusUpdate not implemented")
}

func (UnimplementedCandidateServiceServer) ListTimeline(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListTimeline not implemented")
}

func (UnimplementedCandidateServiceServer) GetTransitionOptions(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetTransitionOptions not implemented")
}

func (UnimplementedCandidateServiceServer) ListDueFollowUps(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListDueFollowUps not implemented")
}

func (UnimplementedCandidateServiceServer) GetStageGraph(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStageGraph not implemented")
}

// RegisterCandidateServiceServer は srv を s に登録します。
func RegisterCandidateServiceServer(s grpc.ServiceRegistrar, srv CandidateServiceServer) {
	s.RegisterService(&CandidateService_ServiceDesc, srv)
}

type unaryMethod func(CandidateServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler は method を grpc.MethodHandler に変換します。インターセプタが設定されていれば経由させます。
func unaryHandler(name string, method unaryMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		impl := srv.(CandidateServiceServer)
		if interceptor == nil {
			return method(impl, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
		return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return method(impl, ctx, req.(*structpb.Struct))
		})
	}
}

// CandidateService_ServiceDesc は CandidateService のサービス記述子です。
var CandidateService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CandidateServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: CreateCandidateMethod, Handler: unaryHandler(CreateCandidateMethod, CandidateServiceServer.CreateCandidate)},
		{MethodName: GetCandidateMethod, Handler: unaryHandler(GetCandidateMethod, CandidateServiceServer.GetCandidate)},
		{MethodName: RequestTransitionMethod, Handler: unaryHandler(RequestTransitionMethod, CandidateServiceServer.RequestTransition)},
		{MethodName: RequestSubStatusUpdateMethod, Handler: unaryHandler(RequestSubStatusUpdateMethod, CandidateServiceServer.RequestSubStatusUpdate)},
		{MethodName: ListTimelineMethod, Handler: unaryHandler(ListTimelineMethod, CandidateServiceServer.ListTimeline)},
		{MethodName: GetTransitionOptionsMethod, Handler: unaryHandler(GetTransitionOptionsMethod, CandidateServiceServer.GetTransitionOptions)},
		{MethodName: ListDueFollowUpsMethod, Handler: unaryHandler(ListDueFollowUpsMethod, CandidateServiceServer.ListDueFollowUps)},
		{MethodName: GetStageGraphMethod, Handler: unaryHandler(GetStageGraphMethod, CandidateServiceServer.GetStageGraph)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "candidate/v1/candidate.proto",
}

// CandidateServiceClient は CandidateService のクライアントです。
type CandidateServiceClient interface {
	Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type candidateServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewCandidateServiceClient は cc を使うクライアントを生成します。
func NewCandidateServiceClient(cc grpc.ClientConnInterface) CandidateServiceClient {
	return &candidateServiceClient{cc: cc}
}

// Call は method (例: RequestTransitionMethod) を呼び出します。
func (c *candidateServiceClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
