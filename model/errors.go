package model

import "fmt"

type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrInvalidCID         ErrorCode = "INVALID_CID"
	ErrProgramNotFound    ErrorCode = "PROGRAM_NOT_FOUND"
	ErrUnknownInstruction ErrorCode = "UNKNOWN_INSTRUCTION"
	ErrAccountMismatch    ErrorCode = "ACCOUNT_MISMATCH"
	ErrComputeExhausted   ErrorCode = "COMPUTE_EXHAUSTED"
	ErrAborted            ErrorCode = "ABORTED"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrCIDMismatch        ErrorCode = "CID_MISMATCH"
	ErrInternal           ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}
