package replica

import (
	"errors"
	"fmt"

	"github.com/bringyour/syncgraph/protocol"
)

var (
	ErrAckTimeout              = errors.New("ack timeout")
	ErrConnectionLost          = errors.New("connection lost")
	ErrUnsupportedOnThinClient = errors.New("operation not supported on a thin client")
	ErrClosed                  = errors.New("closed")
)

// RemoteError is a mutation rejected by the server.
// It unwraps to the graph error for the reported code, e.g. `graph.ErrDuplicateId`.
type RemoteError struct {
	Code  protocol.ErrorCode
	Cause string
}

func remoteErrorFromAck(ack *protocol.Ack) *RemoteError {
	return &RemoteError{
		Code:  ack.ErrorCode,
		Cause: ack.Cause,
	}
}

func (self *RemoteError) Error() string {
	return fmt.Sprintf("remote error (%s): %s", self.Code, self.Cause)
}

func (self *RemoteError) Unwrap() error {
	return self.Code.Err()
}
