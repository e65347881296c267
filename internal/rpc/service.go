// Package rpc defines the connect.v1.IpmService gRPC contract. Messages are
// protobuf well-known types so the service needs no generated code.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "connect.v1.IpmService"

// Full method names.
const (
	MethodDeliverPush             = "/" + ServiceName + "/DeliverPush"
	MethodReportLifecycle         = "/" + ServiceName + "/ReportLifecycle"
	MethodGetIpm                  = "/" + ServiceName + "/GetIpm"
	MethodHandleAction            = "/" + ServiceName + "/HandleAction"
	MethodHandleDismiss           = "/" + ServiceName + "/HandleDismiss"
	MethodGetStatus               = "/" + ServiceName + "/GetStatus"
	MethodListNotifications       = "/" + ServiceName + "/ListNotifications"
	MethodSetNotificationsEnabled = "/" + ServiceName + "/SetNotificationsEnabled"
	MethodWatchNavigation         = "/" + ServiceName + "/WatchNavigation"
)

// IpmServiceServer is the server API for connect.v1.IpmService.
type IpmServiceServer interface {
	// DeliverPush routes raw push data. The response carries the push kind.
	DeliverPush(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// ReportLifecycle feeds a host screen RESUMED/PAUSED event.
	ReportLifecycle(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	// GetIpm returns the pending IPM fields, or an empty struct.
	GetIpm(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	HandleAction(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	HandleDismiss(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListNotifications(context.Context, *wrapperspb.Int32Value) (*structpb.ListValue, error)
	SetNotificationsEnabled(context.Context, *wrapperspb.BoolValue) (*emptypb.Empty, error)
	// WatchNavigation streams navigation and notification events to hosts.
	WatchNavigation(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// RegisterIpmServiceServer registers srv on s.
func RegisterIpmServiceServer(s grpc.ServiceRegistrar, srv IpmServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes connect.v1.IpmService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IpmServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("DeliverPush", IpmServiceServer.DeliverPush),
		unary("ReportLifecycle", IpmServiceServer.ReportLifecycle),
		unary("GetIpm", IpmServiceServer.GetIpm),
		unary("HandleAction", IpmServiceServer.HandleAction),
		unary("HandleDismiss", IpmServiceServer.HandleDismiss),
		unary("GetStatus", IpmServiceServer.GetStatus),
		unary("ListNotifications", IpmServiceServer.ListNotifications),
		unary("SetNotificationsEnabled", IpmServiceServer.SetNotificationsEnabled),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchNavigation",
			Handler:       watchNavigationHandler,
			ServerStreams: true,
		},
	},
	Metadata: "connect/v1/ipm.proto",
}

func unary[Req, Resp any](name string, call func(IpmServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(IpmServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(IpmServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchNavigationHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(IpmServiceServer).WatchNavigation(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}
