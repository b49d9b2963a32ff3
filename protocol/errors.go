package protocol

import (
	"errors"

	"github.com/bringyour/syncgraph/graph"
)

// ErrorCode classifies a rejected message on the wire.
type ErrorCode string

const (
	ErrorCodeNone           ErrorCode = ""
	ErrorCodeDuplicateId    ErrorCode = "duplicate_id"
	ErrorCodeUnknownVertex  ErrorCode = "unknown_vertex"
	ErrorCodeUnknownEdge    ErrorCode = "unknown_edge"
	ErrorCodeInvalidValue   ErrorCode = "invalid_value"
	ErrorCodeNotEndpoint    ErrorCode = "not_endpoint"
	ErrorCodeInvalidMessage ErrorCode = "invalid_message"
	ErrorCodeOther          ErrorCode = "other"
)

var ErrInvalidMessage = errors.New("invalid message")

var errorCodes = []struct {
	code ErrorCode
	err  error
}{
	{ErrorCodeDuplicateId, graph.ErrDuplicateId},
	{ErrorCodeUnknownVertex, graph.ErrUnknownVertex},
	{ErrorCodeUnknownEdge, graph.ErrUnknownEdge},
	{ErrorCodeInvalidValue, graph.ErrInvalidValue},
	{ErrorCodeNotEndpoint, graph.ErrNotEndpoint},
	{ErrorCodeInvalidMessage, ErrInvalidMessage},
}

func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return ErrorCodeNone
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return ErrorCodeOther
}

// Err returns the sentinel error for the code, or nil when the code has none.
func (self ErrorCode) Err() error {
	for _, entry := range errorCodes {
		if entry.code == self {
			return entry.err
		}
	}
	return nil
}
