package rpc

import (
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fordefi.com/solhost/model"
)

func statusFromErr(err error) error {
	if err == nil {
		return nil
	}
	var ce *model.CodedError
	if !errors.As(err, &ce) {
		return status.Error(codes.Internal, err.Error())
	}
	return status.Error(grpcCode(ce.Code), ce.Error())
}

func grpcCode(code model.ErrorCode) codes.Code {
	switch code {
	case model.ErrInvalidRequest, model.ErrInvalidCID:
		return codes.InvalidArgument
	case model.ErrProgramNotFound, model.ErrUnknownInstruction, model.ErrNotFound:
		return codes.NotFound
	case model.ErrAccountMismatch:
		return codes.FailedPrecondition
	case model.ErrComputeExhausted:
		return codes.ResourceExhausted
	case model.ErrAborted:
		return codes.Aborted
	case model.ErrCIDMismatch:
		return codes.DataLoss
	default:
		return codes.Internal
	}
}

// codedFromRPC recovers a CodedError from a gRPC status.
//
// The server encodes CodedErrors as "CODE: message"; when that prefix is
// present it wins. Otherwise the gRPC code picks a best-effort ErrorCode.
func codedFromRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	msg := st.Message()
	if code, rest, found := strings.Cut(msg, ": "); found {
		switch ec := model.ErrorCode(code); ec {
		case model.ErrInvalidRequest, model.ErrInvalidCID, model.ErrProgramNotFound,
			model.ErrUnknownInstruction, model.ErrAccountMismatch, model.ErrComputeExhausted,
			model.ErrAborted, model.ErrNotFound, model.ErrCIDMismatch, model.ErrInternal:
			return model.NewError(ec, rest)
		}
	}

	switch st.Code() {
	case codes.InvalidArgument:
		return model.NewError(model.ErrInvalidRequest, msg)
	case codes.NotFound:
		return model.NewError(model.ErrNotFound, msg)
	case codes.FailedPrecondition:
		return model.NewError(model.ErrAccountMismatch, msg)
	case codes.ResourceExhausted:
		return model.NewError(model.ErrComputeExhausted, msg)
	case codes.Aborted:
		return model.NewError(model.ErrAborted, msg)
	case codes.DataLoss:
		return model.NewError(model.ErrCIDMismatch, msg)
	default:
		return model.NewError(model.ErrInternal, msg)
	}
}
