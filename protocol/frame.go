package protocol

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/bringyour/syncgraph/graph"
)

// a frame is a protobuf `Struct` with a `type` field and the message fields

type MessageType string

const (
	MessageTypeVertexAdd         MessageType = "vertex_add"
	MessageTypeVertexRemove      MessageType = "vertex_remove"
	MessageTypeVertexAttrSet     MessageType = "vertex_attr_set"
	MessageTypeVertexAttrListSet MessageType = "vertex_attr_list_set"
	MessageTypeVertexAttrRemove  MessageType = "vertex_attr_remove"
	MessageTypeEdgeAdd           MessageType = "edge_add"
	MessageTypeEdgeRemove        MessageType = "edge_remove"
	MessageTypeEdgeAttrSet       MessageType = "edge_attr_set"
	MessageTypeEdgeAttrListSet   MessageType = "edge_attr_list_set"
	MessageTypeEdgeAttrRemove    MessageType = "edge_attr_remove"
	MessageTypeSyncRequest       MessageType = "sync_request"
	MessageTypeSyncReply         MessageType = "sync_reply"
	MessageTypeAck               MessageType = "ack"
	MessageTypeHello             MessageType = "hello"
	MessageTypeDelivered         MessageType = "delivered"
)

func ToFrame(message Message) (*structpb.Struct, error) {
	header := message.Header()
	fields := map[string]any{
		"message_id": header.MessageId.String(),
	}
	if header.CommitRequired {
		fields["commit_required"] = true
	}
	if header.SenderId != "" {
		fields["sender_id"] = header.SenderId
	}

	var messageType MessageType
	switch v := message.(type) {
	case *VertexAdd:
		messageType = MessageTypeVertexAdd
		fields["vertex_id"] = v.VertexId
		fields["attributes"] = attributesValue(v.Attributes)
		fields["persistent"] = v.Persistent
	case *VertexRemove:
		messageType = MessageTypeVertexRemove
		fields["vertex_id"] = v.VertexId
		if 0 < v.Depth {
			fields["depth"] = v.Depth
		}
	case *VertexAttrSet:
		messageType = MessageTypeVertexAttrSet
		fields["vertex_id"] = v.VertexId
		fields["key"] = v.Key
		fields["value"] = v.Value
	case *VertexAttrListSet:
		messageType = MessageTypeVertexAttrListSet
		fields["vertex_id"] = v.VertexId
		fields["attributes"] = attributesValue(v.Attributes)
	case *VertexAttrRemove:
		messageType = MessageTypeVertexAttrRemove
		fields["vertex_id"] = v.VertexId
		fields["key"] = v.Key
	case *EdgeAdd:
		messageType = MessageTypeEdgeAdd
		fields["edge_id"] = v.EdgeId
		fields["source_id"] = v.SourceId
		fields["target_id"] = v.TargetId
		fields["undirected"] = v.Undirected
		fields["attributes"] = attributesValue(v.Attributes)
	case *EdgeRemove:
		messageType = MessageTypeEdgeRemove
		fields["edge_id"] = v.EdgeId
	case *EdgeAttrSet:
		messageType = MessageTypeEdgeAttrSet
		fields["edge_id"] = v.EdgeId
		fields["key"] = v.Key
		fields["value"] = v.Value
	case *EdgeAttrListSet:
		messageType = MessageTypeEdgeAttrListSet
		fields["edge_id"] = v.EdgeId
		fields["attributes"] = attributesValue(v.Attributes)
	case *EdgeAttrRemove:
		messageType = MessageTypeEdgeAttrRemove
		fields["edge_id"] = v.EdgeId
		fields["key"] = v.Key
	case *SyncRequest:
		messageType = MessageTypeSyncRequest
	case *SyncReply:
		messageType = MessageTypeSyncReply
		fields["reference_message_id"] = v.ReferenceMessageId.String()
		fields["snapshot"] = snapshotValue(v.Snapshot)
	case *Ack:
		messageType = MessageTypeAck
		fields["reference_message_id"] = v.ReferenceMessageId.String()
		fields["success"] = v.Success
		if v.Payload != "" {
			fields["payload"] = v.Payload
		}
		if !v.Success {
			fields["error_code"] = string(v.ErrorCode)
			fields["cause"] = v.Cause
		}
	case *Delivered:
		messageType = MessageTypeDelivered
		fields["reference_message_id"] = v.ReferenceMessageId.String()
	case *Hello:
		messageType = MessageTypeHello
		fields["client_id"] = v.ClientId.String()
		fields["mode"] = string(v.Mode)
	default:
		return nil, fmt.Errorf("Unknown message type: %T", v)
	}
	fields["type"] = string(messageType)

	frame, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return frame, nil
}

func RequireToFrame(message Message) *structpb.Struct {
	frame, err := ToFrame(message)
	if err != nil {
		panic(err)
	}
	return frame
}

func FromFrame(frame *structpb.Struct) (Message, error) {
	f := frameFields(frame.AsMap())

	header := MessageHeader{}
	var err error
	if header.MessageId, err = f.idField("message_id"); err != nil {
		return nil, err
	}
	header.CommitRequired = f.boolField("commit_required")
	header.SenderId = f.stringField("sender_id")

	messageType := MessageType(f.stringField("type"))
	switch messageType {
	case MessageTypeVertexAdd:
		return &VertexAdd{
			MessageHeader: header,
			VertexId:      f.stringField("vertex_id"),
			Attributes:    f.attributesField("attributes"),
			Persistent:    f.boolField("persistent"),
		}, nil
	case MessageTypeVertexRemove:
		return &VertexRemove{
			MessageHeader: header,
			VertexId:      f.stringField("vertex_id"),
			Depth:         int(f.numberField("depth")),
		}, nil
	case MessageTypeVertexAttrSet:
		return &VertexAttrSet{
			MessageHeader: header,
			VertexId:      f.stringField("vertex_id"),
			Key:           f.stringField("key"),
			Value:         f["value"],
		}, nil
	case MessageTypeVertexAttrListSet:
		return &VertexAttrListSet{
			MessageHeader: header,
			VertexId:      f.stringField("vertex_id"),
			Attributes:    f.attributesField("attributes"),
		}, nil
	case MessageTypeVertexAttrRemove:
		return &VertexAttrRemove{
			MessageHeader: header,
			VertexId:      f.stringField("vertex_id"),
			Key:           f.stringField("key"),
		}, nil
	case MessageTypeEdgeAdd:
		return &EdgeAdd{
			MessageHeader: header,
			EdgeId:        f.stringField("edge_id"),
			SourceId:      f.stringField("source_id"),
			TargetId:      f.stringField("target_id"),
			Undirected:    f.boolField("undirected"),
			Attributes:    f.attributesField("attributes"),
		}, nil
	case MessageTypeEdgeRemove:
		return &EdgeRemove{
			MessageHeader: header,
			EdgeId:        f.stringField("edge_id"),
		}, nil
	case MessageTypeEdgeAttrSet:
		return &EdgeAttrSet{
			MessageHeader: header,
			EdgeId:        f.stringField("edge_id"),
			Key:           f.stringField("key"),
			Value:         f["value"],
		}, nil
	case MessageTypeEdgeAttrListSet:
		return &EdgeAttrListSet{
			MessageHeader: header,
			EdgeId:        f.stringField("edge_id"),
			Attributes:    f.attributesField("attributes"),
		}, nil
	case MessageTypeEdgeAttrRemove:
		return &EdgeAttrRemove{
			MessageHeader: header,
			EdgeId:        f.stringField("edge_id"),
			Key:           f.stringField("key"),
		}, nil
	case MessageTypeSyncRequest:
		return &SyncRequest{
			MessageHeader: header,
		}, nil
	case MessageTypeSyncReply:
		referenceMessageId, err := f.idField("reference_message_id")
		if err != nil {
			return nil, err
		}
		snapshot, err := f.snapshotField("snapshot")
		if err != nil {
			return nil, err
		}
		return &SyncReply{
			MessageHeader:      header,
			ReferenceMessageId: referenceMessageId,
			Snapshot:           snapshot,
		}, nil
	case MessageTypeAck:
		referenceMessageId, err := f.idField("reference_message_id")
		if err != nil {
			return nil, err
		}
		return &Ack{
			MessageHeader:      header,
			ReferenceMessageId: referenceMessageId,
			Success:            f.boolField("success"),
			Payload:            f.stringField("payload"),
			ErrorCode:          ErrorCode(f.stringField("error_code")),
			Cause:              f.stringField("cause"),
		}, nil
	case MessageTypeDelivered:
		referenceMessageId, err := f.idField("reference_message_id")
		if err != nil {
			return nil, err
		}
		return &Delivered{
			MessageHeader:      header,
			ReferenceMessageId: referenceMessageId,
		}, nil
	case MessageTypeHello:
		clientId, err := f.idField("client_id")
		if err != nil {
			return nil, err
		}
		return &Hello{
			MessageHeader: header,
			ClientId:      clientId,
			Mode:          ClientMode(f.stringField("mode")),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", ErrInvalidMessage, messageType)
	}
}

func RequireFromFrame(frame *structpb.Struct) Message {
	message, err := FromFrame(frame)
	if err != nil {
		panic(err)
	}
	return message
}

func EncodeFrame(message Message) ([]byte, error) {
	frame, err := ToFrame(message)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(frame)
}

func DecodeFrame(b []byte) (Message, error) {
	frame := &structpb.Struct{}
	if err := proto.Unmarshal(b, frame); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMessage, err)
	}
	return FromFrame(frame)
}

func attributesValue(attributes graph.Attributes) map[string]any {
	if attributes == nil {
		return map[string]any{}
	}
	return map[string]any(attributes)
}

func snapshotValue(snapshot *graph.Snapshot) map[string]any {
	if snapshot == nil {
		snapshot = &graph.Snapshot{}
	}
	vertices := make([]any, len(snapshot.Vertices))
	for i, record := range snapshot.Vertices {
		vertices[i] = map[string]any{
			"id":         record.Id,
			"attributes": attributesValue(record.Attributes),
		}
	}
	edges := make([]any, len(snapshot.Edges))
	for i, record := range snapshot.Edges {
		edges[i] = map[string]any{
			"id":           record.Id,
			"source_index": record.SourceIndex,
			"target_index": record.TargetIndex,
			"undirected":   record.Undirected,
			"attributes":   attributesValue(record.Attributes),
		}
	}
	return map[string]any{
		"allow_duplicates": snapshot.AllowDuplicates,
		"vertex_counter":   snapshot.VertexCounter,
		"edge_counter":     snapshot.EdgeCounter,
		"vertices":         vertices,
		"edges":            edges,
	}
}

// missing or mistyped fields read as zero values
type frameFields map[string]any

func (self frameFields) stringField(name string) string {
	s, _ := self[name].(string)
	return s
}

func (self frameFields) boolField(name string) bool {
	b, _ := self[name].(bool)
	return b
}

func (self frameFields) numberField(name string) float64 {
	n, _ := self[name].(float64)
	return n
}

func (self frameFields) idField(name string) (Id, error) {
	s := self.stringField(name)
	if s == "" {
		return Id{}, fmt.Errorf("%w: missing %s", ErrInvalidMessage, name)
	}
	id, err := ParseId(s)
	if err != nil {
		return Id{}, fmt.Errorf("%w: %s: %s", ErrInvalidMessage, name, err)
	}
	return id, nil
}

func (self frameFields) attributesField(name string) graph.Attributes {
	m, _ := self[name].(map[string]any)
	if m == nil {
		return graph.Attributes{}
	}
	return graph.Attributes(m)
}

func (self frameFields) listField(name string) []frameFields {
	values, _ := self[name].([]any)
	list := make([]frameFields, 0, len(values))
	for _, value := range values {
		m, _ := value.(map[string]any)
		list = append(list, frameFields(m))
	}
	return list
}

func (self frameFields) snapshotField(name string) (*graph.Snapshot, error) {
	m, ok := self[name].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidMessage, name)
	}
	f := frameFields(m)

	snapshot := &graph.Snapshot{
		AllowDuplicates: f.boolField("allow_duplicates"),
		VertexCounter:   uint64(f.numberField("vertex_counter")),
		EdgeCounter:     uint64(f.numberField("edge_counter")),
		Vertices:        []*graph.VertexRecord{},
		Edges:           []*graph.EdgeRecord{},
	}
	for _, vertex := range f.listField("vertices") {
		snapshot.Vertices = append(snapshot.Vertices, &graph.VertexRecord{
			Id:         vertex.stringField("id"),
			Attributes: vertex.attributesField("attributes"),
		})
	}
	for _, edge := range f.listField("edges") {
		snapshot.Edges = append(snapshot.Edges, &graph.EdgeRecord{
			Id:          edge.stringField("id"),
			SourceIndex: int(edge.numberField("source_index")),
			TargetIndex: int(edge.numberField("target_index")),
			Undirected:  edge.boolField("undirected"),
			Attributes:  edge.attributesField("attributes"),
		})
	}
	return snapshot, nil
}
