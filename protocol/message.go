package protocol

import (
	"github.com/bringyour/syncgraph/graph"
)

// MessageHeader is common to every message.
type MessageHeader struct {
	// minted by the sender
	MessageId      Id
	CommitRequired bool
	// set only when the sender suppresses its own echo
	SenderId string
}

func (self *MessageHeader) Header() *MessageHeader {
	return self
}

func (self *MessageHeader) isMessage() {}

// Message is one of the message types in this package.
type Message interface {
	Header() *MessageHeader
	isMessage()
}

type MutationKind string

const (
	KindVertexAdd         MutationKind = "vertex_add"
	KindVertexRemove      MutationKind = "vertex_remove"
	KindVertexAttrSet     MutationKind = "vertex_attr_set"
	KindVertexAttrListSet MutationKind = "vertex_attr_list_set"
	KindVertexAttrRemove  MutationKind = "vertex_attr_remove"
	KindEdgeAdd           MutationKind = "edge_add"
	KindEdgeRemove        MutationKind = "edge_remove"
	KindEdgeAttrSet       MutationKind = "edge_attr_set"
	KindEdgeAttrListSet   MutationKind = "edge_attr_list_set"
	KindEdgeAttrRemove    MutationKind = "edge_attr_remove"
)

// Mutation is a message that changes the graph.
// The variants are closed to this package.
type Mutation interface {
	Message
	Kind() MutationKind
}

// an empty `VertexId` asks the server to generate one
type VertexAdd struct {
	MessageHeader
	VertexId   string
	Attributes graph.Attributes
	// persistent vertices are not removed when the submitting connection is lost
	Persistent bool
}

type VertexRemove struct {
	MessageHeader
	VertexId string
	// with duplicate ids, the number of entries above the removed one. 0 removes the visible entry
	Depth int
}

type VertexAttrSet struct {
	MessageHeader
	VertexId string
	Key      string
	Value    any
}

// merged into the existing attributes
type VertexAttrListSet struct {
	MessageHeader
	VertexId   string
	Attributes graph.Attributes
}

type VertexAttrRemove struct {
	MessageHeader
	VertexId string
	Key      string
}

// an empty `EdgeId` asks the server to generate one
type EdgeAdd struct {
	MessageHeader
	EdgeId     string
	SourceId   string
	TargetId   string
	Undirected bool
	Attributes graph.Attributes
}

type EdgeRemove struct {
	MessageHeader
	EdgeId string
}

type EdgeAttrSet struct {
	MessageHeader
	EdgeId string
	Key    string
	Value  any
}

type EdgeAttrListSet struct {
	MessageHeader
	EdgeId     string
	Attributes graph.Attributes
}

type EdgeAttrRemove struct {
	MessageHeader
	EdgeId string
	Key    string
}

func (self *VertexAdd) Kind() MutationKind { return KindVertexAdd }
func (self *VertexRemove) Kind() MutationKind { return KindVertexRemove }
func (self *VertexAttrSet) Kind() MutationKind { return KindVertexAttrSet }
func (self *VertexAttrListSet) Kind() MutationKind { return KindVertexAttrListSet }
func (self *VertexAttrRemove) Kind() MutationKind { return KindVertexAttrRemove }
func (self *EdgeAdd) Kind() MutationKind { return KindEdgeAdd }
func (self *EdgeRemove) Kind() MutationKind { return KindEdgeRemove }
func (self *EdgeAttrSet) Kind() MutationKind { return KindEdgeAttrSet }
func (self *EdgeAttrListSet) Kind() MutationKind { return KindEdgeAttrListSet }
func (self *EdgeAttrRemove) Kind() MutationKind { return KindEdgeAttrRemove }

type SyncRequest struct {
	MessageHeader
}

type SyncReply struct {
	MessageHeader
	ReferenceMessageId Id
	Snapshot           *graph.Snapshot
}

type Ack struct {
	MessageHeader
	ReferenceMessageId Id
	Success            bool
	// the id of the added vertex or edge, for add mutations
	Payload   string
	ErrorCode ErrorCode
	Cause     string
}

// Delivered confirms to the server that a commit required broadcast was applied
// and reported to the client's listeners.
type Delivered struct {
	MessageHeader
	ReferenceMessageId Id
}

type ClientMode string

const (
	ClientModeFull ClientMode = "full"
	// thin connections receive acks only
	ClientModeThin ClientMode = "thin"
)

// Hello is the first message a client sends on each connection.
type Hello struct {
	MessageHeader
	ClientId Id
	Mode     ClientMode
}

func NewHeader() MessageHeader {
	return MessageHeader{
		MessageId: NewId(),
	}
}

func NewSuccessAck(referenceMessageId Id, payload string) *Ack {
	return &Ack{
		MessageHeader:      NewHeader(),
		ReferenceMessageId: referenceMessageId,
		Success:            true,
		Payload:            payload,
	}
}

func NewErrorAck(referenceMessageId Id, err error) *Ack {
	return &Ack{
		MessageHeader:      NewHeader(),
		ReferenceMessageId: referenceMessageId,
		Success:            false,
		ErrorCode:          ErrorCodeOf(err),
		Cause:              err.Error(),
	}
}
