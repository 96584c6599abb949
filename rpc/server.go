package rpc

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"fordefi.com/solhost/model"
	"fordefi.com/solhost/runtime"
	"fordefi.com/solhost/storage"
)

// Server exposes a runtime.Host (and its manifest store) over the Host gRPC service.
type Server struct {
	UnimplementedHostServer

	Host   *runtime.Host
	CAS    storage.CAS
	Logger *zap.Logger
}

func (s *Server) logger() *zap.Logger {
	if s == nil || s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Server) Invoke(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Host == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing host")
	}

	var req model.InvokeRequest
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed invoke request: "+err.Error())
	}

	resp, err := model.Invoke(ctx, s.Host, req)
	if err != nil {
		s.logger().Debug("invoke rejected",
			zap.String("program", req.ProgramID),
			zap.String("instruction", req.Instruction),
			zap.Error(err),
		)
		return nil, statusFromErr(err)
	}

	b, err := json.Marshal(resp)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode invoke response")
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) GetManifest(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if s == nil || s.CAS == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing artifact store")
	}

	doc, err := model.GetManifest(s.CAS, in.GetValue())
	if err != nil {
		return nil, statusFromErr(err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode manifest document")
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) ListPrograms(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if s == nil || s.Host == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing host")
	}

	resp := model.ListPrograms(s.Host)
	if filter := in.GetValue(); filter != "" {
		var kept []model.ProgramInfo
		for _, p := range resp.Programs {
			if p.ProgramID == filter {
				kept = append(kept, p)
			}
		}
		resp.Programs = kept
	}

	b, err := json.Marshal(resp)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode program list")
	}
	return wrapperspb.Bytes(b), nil
}
