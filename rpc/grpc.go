// Package rpc exposes the host over gRPC.
//
// Requests and responses are the JSON boundary types from package model,
// carried in protobuf well-known wrapper types so this package does not
// require a protoc/codegen toolchain.
//
// Proto definition: host.proto.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// HostServer is the server API for the Host gRPC service.
type HostServer interface {
	// Invoke runs one instruction. The payload is a JSON model.InvokeRequest;
	// the reply is a JSON model.InvokeResponse.
	Invoke(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	// GetManifest returns the manifest document stored under a CID as JSON
	// model.ManifestDocument.
	GetManifest(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	// ListPrograms reports deployed programs as JSON model.ListProgramsResponse.
	// The request string optionally filters by program ID; empty lists all.
	ListPrograms(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedHostServer can be embedded to have forward compatible implementations.
type UnimplementedHostServer struct{}

func (UnimplementedHostServer) Invoke(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Invoke not implemented")
}
func (UnimplementedHostServer) GetManifest(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetManifest not implemented")
}
func (UnimplementedHostServer) ListPrograms(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ListPrograms not implemented")
}

// RegisterHostServer registers the Host service on a gRPC server.
func RegisterHostServer(s grpc.ServiceRegistrar, srv HostServer) {
	s.RegisterService(&Host_ServiceDesc, srv)
}

// HostClient is the client API for the Host gRPC service.
type HostClient interface {
	Invoke(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	GetManifest(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	ListPrograms(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type hostClient struct{ cc grpc.ClientConnInterface }

func NewHostClient(cc grpc.ClientConnInterface) HostClient { return &hostClient{cc: cc} }

func (c *hostClient) Invoke(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/solhost.rpc.v1.Host/Invoke", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *hostClient) GetManifest(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/solhost.rpc.v1.Host/GetManifest", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *hostClient) ListPrograms(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/solhost.rpc.v1.Host/ListPrograms", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func _Host_Invoke_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HostServer).Invoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/solhost.rpc.v1.Host/Invoke"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(HostServer).Invoke(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Host_GetManifest_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HostServer).GetManifest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/solhost.rpc.v1.Host/GetManifest"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(HostServer).GetManifest(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Host_ListPrograms_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HostServer).ListPrograms(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/solhost.rpc.v1.Host/ListPrograms"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(HostServer).ListPrograms(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Host_ServiceDesc is the grpc.ServiceDesc for the Host service.
var Host_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "solhost.rpc.v1.Host",
	HandlerType: (*HostServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Invoke", Handler: _Host_Invoke_Handler},
		{MethodName: "GetManifest", Handler: _Host_GetManifest_Handler},
		{MethodName: "ListPrograms", Handler: _Host_ListPrograms_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "host.proto",
}
