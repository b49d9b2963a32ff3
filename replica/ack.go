package replica

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bringyour/syncgraph/protocol"
)

// AckRegistry correlates sent messages with their acks.
// The receive loop deposits acks while callers wait on a per message slot,
// so waiting never blocks the receive loop.
type AckRegistry struct {
	retention time.Duration

	mutex sync.Mutex
	slots map[protocol.Id]*ackSlot
	// acks that arrived before anyone waited for them
	deposits map[protocol.Id]*ackDeposit
}

type ackSlot struct {
	done chan struct{}
	ack  *protocol.Ack
	err  error
}

type ackDeposit struct {
	ack         *protocol.Ack
	depositTime time.Time
}

func NewAckRegistryWithDefaults() *AckRegistry {
	return NewAckRegistry(DefaultAckTimeout)
}

// `retention` bounds how long an ack with no waiter is kept
func NewAckRegistry(retention time.Duration) *AckRegistry {
	return &AckRegistry{
		retention: retention,
		slots:     map[protocol.Id]*ackSlot{},
		deposits:  map[protocol.Id]*ackDeposit{},
	}
}

// Await blocks until the ack for `messageId` is deposited, the timeout elapses or ctx is done.
// An error ack is returned as a `*RemoteError` alongside the ack.
func (self *AckRegistry) Await(ctx context.Context, messageId protocol.Id, timeout time.Duration) (*protocol.Ack, error) {
	slot, ack := self.slot(messageId)
	if ack != nil {
		return ackResult(ack)
	}

	select {
	case <-slot.done:
		if slot.err != nil {
			return nil, slot.err
		}
		return ackResult(slot.ack)
	case <-ctx.Done():
		self.abandon(messageId, slot)
		return nil, ctx.Err()
	case <-time.After(timeout):
		self.abandon(messageId, slot)
		return nil, fmt.Errorf("%w: %s", ErrAckTimeout, messageId)
	}
}

func (self *AckRegistry) slot(messageId protocol.Id) (*ackSlot, *protocol.Ack) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	if deposit, ok := self.deposits[messageId]; ok {
		delete(self.deposits, messageId)
		return nil, deposit.ack
	}
	slot, ok := self.slots[messageId]
	if !ok {
		slot = &ackSlot{
			done: make(chan struct{}),
		}
		self.slots[messageId] = slot
	}
	return slot, nil
}

func (self *AckRegistry) abandon(messageId protocol.Id, slot *ackSlot) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	if self.slots[messageId] == slot {
		delete(self.slots, messageId)
	}
}

// Deposit stores the ack keyed by the message it answers.
// A later deposit for the same message replaces an uncollected one.
func (self *AckRegistry) Deposit(ack *protocol.Ack) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	messageId := ack.ReferenceMessageId
	if slot, ok := self.slots[messageId]; ok {
		delete(self.slots, messageId)
		slot.ack = ack
		close(slot.done)
		return
	}

	now := time.Now()
	self.deposits[messageId] = &ackDeposit{
		ack:         ack,
		depositTime: now,
	}
	for id, deposit := range self.deposits {
		if self.retention <= now.Sub(deposit.depositTime) {
			delete(self.deposits, id)
		}
	}
}

// FailAll fails every pending wait with `err` and drops uncollected acks.
func (self *AckRegistry) FailAll(err error) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	for messageId, slot := range self.slots {
		slot.err = err
		close(slot.done)
		delete(self.slots, messageId)
	}
	clear(self.deposits)
}

func (self *AckRegistry) PendingCount() int {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return len(self.slots)
}

func ackResult(ack *protocol.Ack) (*protocol.Ack, error) {
	if !ack.Success {
		return ack, remoteErrorFromAck(ack)
	}
	return ack, nil
}
