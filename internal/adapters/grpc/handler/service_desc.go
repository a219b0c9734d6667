package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ShiftServiceName は gRPC のサービス名です。
const ShiftServiceName = "guardshifts.v1.ShiftService"

// ShiftService のメソッド名。
const (
	MethodRecordAttendance     = "RecordAttendance"
	MethodCalculatePay         = "CalculatePay"
	MethodCancelShift          = "CancelShift"
	MethodCompleteShift        = "CompleteShift"
	MethodNormalizeMessage     = "NormalizeMessage"
	MethodRunConfirmationSweep = "RunConfirmationSweep"
	MethodPaySummary           = "PaySummary"
)

// ShiftServiceServer は ShiftService のサーバー実装が満たすインターフェースです。
// リクエストとレスポンスは google.protobuf.Struct で表現します。
type ShiftServiceServer interface {
	RecordAttendance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CalculatePay(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CancelShift(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CompleteShift(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	NormalizeMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RunConfirmationSweep(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	PaySummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(srv ShiftServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func methodHandler(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ShiftServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ShiftServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ShiftServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ShiftServiceDesc は ShiftService のサービス定義です。
var ShiftServiceDesc = grpc.ServiceDesc{
	ServiceName: ShiftServiceName,
	HandlerType: (*ShiftServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodHandler(MethodRecordAttendance, ShiftServiceServer.RecordAttendance),
		methodHandler(MethodCalculatePay, ShiftServiceServer.CalculatePay),
		methodHandler(MethodCancelShift, ShiftServiceServer.CancelShift),
		methodHandler(MethodCompleteShift, ShiftServiceServer.CompleteShift),
		methodHandler(MethodNormalizeMessage, ShiftServiceServer.NormalizeMessage),
		methodHandler(MethodRunConfirmationSweep, ShiftServiceServer.RunConfirmationSweep),
		methodHandler(MethodPaySummary, ShiftServiceServer.PaySummary),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "guardshifts/v1/shift.proto",
}

// RegisterShiftServiceServer は ShiftService をサーバーに登録します。
func RegisterShiftServiceServer(s grpc.ServiceRegistrar, srv ShiftServiceServer) {
	s.RegisterService(&ShiftServiceDesc, srv)
}

// ShiftServiceClient は ShiftService の呼び出し側です。
type ShiftServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewShiftServiceClient は ShiftServiceClient を生成します。
func NewShiftServiceClient(cc grpc.ClientConnInterface) *ShiftServiceClient {
	return &ShiftServiceClient{cc: cc}
}

// Call は method を呼び出します。
func (c *ShiftServiceClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ShiftServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
