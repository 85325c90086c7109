package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/gotd/td/tgerr"
)

const (
	operationSend   = "send_message"
	operationDelete = "delete_message"
)

// ErrorKind classifies a failed Telegram RPC.
type ErrorKind string

const (
	ErrorKindUnknown     ErrorKind = "unknown"
	ErrorKindRateLimited ErrorKind = "rate_limited"
	ErrorKindTemporary   ErrorKind = "temporary"
	ErrorKindPermanent   ErrorKind = "permanent"
)

// RPCError describes a failed outbound call.
type RPCError struct {
	Operation  string
	Kind       ErrorKind
	Code       int
	Type       string
	RetryAfter time.Duration
	Cause      error
}

func (e *RPCError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("telegram %s %s (%d %s): %v", e.Operation, e.Kind, e.Code, e.Type, e.Cause)
	}

	return fmt.Sprintf("telegram %s %s: %v", e.Operation, e.Kind, e.Cause)
}

func (e *RPCError) Unwrap() error {
	return e.Cause
}

// Temporary reports whether retrying later may succeed.
func (e *RPCError) Temporary() bool {
	return e.Kind == ErrorKindRateLimited || e.Kind == ErrorKindTemporary
}

func mapOutboundError(operation string, err error) error {
	if err == nil {
		return nil
	}

	mapped := &RPCError{
		Operation: operation,
		Kind:      ErrorKindUnknown,
		Cause:     err,
	}

	if retryAfter, ok := tgerr.AsFloodWait(err); ok {
		mapped.Kind = ErrorKindRateLimited
		mapped.RetryAfter = retryAfter
		if rpcErr, hasRPC := tgerr.As(err); hasRPC {
			mapped.Code = rpcErr.Code
			mapped.Type = rpcErr.Type
		}

		return mapped
	}

	rpcErr, ok := tgerr.As(err)
	if !ok {
		return mapped
	}

	mapped.Code = rpcErr.Code
	mapped.Type = rpcErr.Type
	mapped.Kind = classifyRPCError(rpcErr)

	return mapped
}

func classifyRPCError(rpcErr *tgerr.Error) ErrorKind {
	if rpcErr == nil {
		return ErrorKindUnknown
	}

	errorType := strings.ToUpper(strings.TrimSpace(rpcErr.Type))
	if rpcErr.Code == 420 || rpcErr.Code == 429 || strings.Contains(errorType, "FLOOD") {
		return ErrorKindRateLimited
	}

	switch {
	case rpcErr.Code == 303:
		return ErrorKindTemporary
	case rpcErr.Code >= 400 && rpcErr.Code < 500:
		return ErrorKindPermanent
	case rpcErr.Code >= 500:
		return ErrorKindTemporary
	default:
		return ErrorKindUnknown
	}
}
