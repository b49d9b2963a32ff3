package replica

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/bringyour/syncgraph/graph"
	"github.com/bringyour/syncgraph/protocol"
)

func TestAckDepositBeforeAwait(t *testing.T) {
	acks := NewAckRegistryWithDefaults()
	messageId := protocol.NewId()

	acks.Deposit(protocol.NewSuccessAck(messageId, "V1"))
	ack, err := acks.Await(context.Background(), messageId, time.Second)
	assert.Equal(t, err, nil)
	assert.Equal(t, ack.Payload, "V1")
}

func TestAckDepositAfterAwait(t *testing.T) {
	acks := NewAckRegistryWithDefaults()
	messageId := protocol.NewId()

	go func() {
		time.Sleep(50 * time.Millisecond)
		acks.Deposit(protocol.NewSuccessAck(messageId, ""))
	}()
	ack, err := acks.Await(context.Background(), messageId, 5*time.Second)
	assert.Equal(t, err, nil)
	assert.Equal(t, ack.Success, true)
	assert.Equal(t, acks.PendingCount(), 0)
}

func TestAckLastDepositWins(t *testing.T) {
	acks := NewAckRegistryWithDefaults()
	messageId := protocol.NewId()

	acks.Deposit(protocol.NewSuccessAck(messageId, "first"))
	acks.Deposit(protocol.NewSuccessAck(messageId, "second"))
	ack, err := acks.Await(context.Background(), messageId, time.Second)
	assert.Equal(t, err, nil)
	assert.Equal(t, ack.Payload, "second")
}

func TestAckTimeout(t *testing.T) {
	acks := NewAckRegistryWithDefaults()

	start := time.Now()
	_, err := acks.Await(context.Background(), protocol.NewId(), 100*time.Millisecond)
	assert.Equal(t, errors.Is(err, ErrAckTimeout), true)
	assert.Equal(t, 100*time.Millisecond <= time.Since(start), true)
	assert.Equal(t, acks.PendingCount(), 0)
}

func TestAckRemoteError(t *testing.T) {
	acks := NewAckRegistryWithDefaults()
	messageId := protocol.NewId()

	acks.Deposit(protocol.NewErrorAck(messageId, graph.ErrDuplicateId))
	_, err := acks.Await(context.Background(), messageId, time.Second)

	var remoteErr *RemoteError
	assert.Equal(t, errors.As(err, &remoteErr), true)
	assert.Equal(t, remoteErr.Code, protocol.ErrorCodeDuplicateId)
	assert.Equal(t, remoteErr.Cause, "duplicate id")
	assert.Equal(t, errors.Is(err, graph.ErrDuplicateId), true)
}

func TestAckFailAll(t *testing.T) {
	acks := NewAckRegistryWithDefaults()

	errs := make(chan error, 2)
	for i := 0; i < 2; i += 1 {
		go func() {
			_, err := acks.Await(context.Background(), protocol.NewId(), 5*time.Second)
			errs <- err
		}()
	}
	for acks.PendingCount() < 2 {
		time.Sleep(10 * time.Millisecond)
	}
	acks.FailAll(ErrConnectionLost)

	for i := 0; i < 2; i += 1 {
		err := <-errs
		assert.Equal(t, errors.Is(err, ErrConnectionLost), true)
	}
}

func TestAckContextDone(t *testing.T) {
	acks := NewAckRegistryWithDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := acks.Await(ctx, protocol.NewId(), 5*time.Second)
	assert.Equal(t, errors.Is(err, context.Canceled), true)
}

func TestAckRetention(t *testing.T) {
	acks := NewAckRegistry(50 * time.Millisecond)
	messageId := protocol.NewId()

	acks.Deposit(protocol.NewSuccessAck(messageId, ""))
	time.Sleep(100 * time.Millisecond)
	// a later deposit prunes the expired one
	acks.Deposit(protocol.NewSuccessAck(protocol.NewId(), ""))

	_, err := acks.Await(context.Background(), messageId, 50*time.Millisecond)
	assert.Equal(t, errors.Is(err, ErrAckTimeout), true)
}
