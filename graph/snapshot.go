package graph

import (
	"fmt"
	"slices"
)

// Snapshot is a detached copy of the store content, in arrival order.
// Edge endpoints are indexes into `Vertices` so that duplicate ids resolve exactly.
type Snapshot struct {
	AllowDuplicates bool
	VertexCounter   uint64
	EdgeCounter     uint64
	Vertices        []*VertexRecord
	Edges           []*EdgeRecord
}

type VertexRecord struct {
	Id         string
	Attributes Attributes
}

type EdgeRecord struct {
	Id          string
	SourceIndex int
	TargetIndex int
	Undirected  bool
	Attributes  Attributes
}

// Clone deep copies the store. Lease markers are not copied.
func (self *Store) Clone() *Store {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	clone := &Store{
		allowDuplicates: self.allowDuplicates,
		vertices:        map[string][]*vertex{},
		edges:           map[string][]*edge{},
		usedVertexIds:   map[string]struct{}{},
		usedEdgeIds:     map[string]struct{}{},
		vertexCounter:   self.vertexCounter,
		edgeCounter:     self.edgeCounter,
		order:           self.order,
	}
	for id := range self.usedVertexIds {
		clone.usedVertexIds[id] = struct{}{}
	}
	for id := range self.usedEdgeIds {
		clone.usedEdgeIds[id] = struct{}{}
	}

	vertexClones := map[*vertex]*vertex{}
	for id, entries := range self.vertices {
		cloneEntries := make([]*vertex, len(entries))
		for i, v := range entries {
			vertexClone := newVertex(v.id, v.order, v.attributes.Clone())
			vertexClones[v] = vertexClone
			cloneEntries[i] = vertexClone
		}
		clone.vertices[id] = cloneEntries
	}
	edgeClones := map[*edge]*edge{}
	for id, entries := range self.edges {
		cloneEntries := make([]*edge, len(entries))
		for i, e := range entries {
			edgeClone := &edge{
				id:         e.id,
				order:      e.order,
				source:     vertexClones[e.source],
				target:     vertexClones[e.target],
				undirected: e.undirected,
				attributes: e.attributes.Clone(),
			}
			edgeClones[e] = edgeClone
			cloneEntries[i] = edgeClone
		}
		clone.edges[id] = cloneEntries
	}
	for v, vertexClone := range vertexClones {
		for e := range v.incoming {
			vertexClone.incoming[edgeClones[e]] = struct{}{}
		}
		for e := range v.outgoing {
			vertexClone.outgoing[edgeClones[e]] = struct{}{}
		}
	}
	return clone
}

func (self *Store) Snapshot() *Snapshot {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	vertices := self.arrivalVertices()
	vertexIndexes := map[*vertex]int{}
	vertexRecords := make([]*VertexRecord, len(vertices))
	for i, v := range vertices {
		vertexIndexes[v] = i
		vertexRecords[i] = &VertexRecord{
			Id:         v.id,
			Attributes: v.attributes.Clone(),
		}
	}

	edges := self.arrivalEdges()
	edgeRecords := make([]*EdgeRecord, len(edges))
	for i, e := range edges {
		edgeRecords[i] = &EdgeRecord{
			Id:          e.id,
			SourceIndex: vertexIndexes[e.source],
			TargetIndex: vertexIndexes[e.target],
			Undirected:  e.undirected,
			Attributes:  e.attributes.Clone(),
		}
	}

	return &Snapshot{
		AllowDuplicates: self.allowDuplicates,
		VertexCounter:   self.vertexCounter,
		EdgeCounter:     self.edgeCounter,
		Vertices:        vertexRecords,
		Edges:           edgeRecords,
	}
}

// NewStoreFromSnapshot rebuilds a store. Ids already present count as used.
func NewStoreFromSnapshot(snapshot *Snapshot) (*Store, error) {
	store := NewStore(&StoreSettings{
		AllowDuplicates: snapshot.AllowDuplicates,
	})
	store.vertexCounter = snapshot.VertexCounter
	store.edgeCounter = snapshot.EdgeCounter

	vertices := make([]*vertex, len(snapshot.Vertices))
	for i, record := range snapshot.Vertices {
		attributes, err := NormalizeAttributes(record.Attributes)
		if err != nil {
			return nil, err
		}
		if !store.allowDuplicates && 0 < len(store.vertices[record.Id]) {
			return nil, duplicateVertex(record.Id)
		}
		v := newVertex(record.Id, store.nextOrder(), attributes)
		vertices[i] = v
		store.vertices[record.Id] = append(store.vertices[record.Id], v)
		store.usedVertexIds[record.Id] = struct{}{}
	}

	endpoint := func(index int) (*vertex, error) {
		if index < 0 || len(vertices) <= index {
			return nil, fmt.Errorf("%w: index %d", ErrUnknownVertex, index)
		}
		return vertices[index], nil
	}

	for _, record := range snapshot.Edges {
		attributes, err := NormalizeAttributes(record.Attributes)
		if err != nil {
			return nil, err
		}
		if !store.allowDuplicates && 0 < len(store.edges[record.Id]) {
			return nil, duplicateEdge(record.Id)
		}
		source, err := endpoint(record.SourceIndex)
		if err != nil {
			return nil, err
		}
		target, err := endpoint(record.TargetIndex)
		if err != nil {
			return nil, err
		}
		e := &edge{
			id:         record.Id,
			order:      store.nextOrder(),
			source:     source,
			target:     target,
			undirected: record.Undirected,
			attributes: attributes,
		}
		store.edges[record.Id] = append(store.edges[record.Id], e)
		store.usedEdgeIds[record.Id] = struct{}{}
		source.outgoing[e] = struct{}{}
		target.incoming[e] = struct{}{}
		if record.Undirected {
			source.incoming[e] = struct{}{}
			target.outgoing[e] = struct{}{}
		}
	}
	return store, nil
}

// must be called with the lock
func (self *Store) arrivalVertices() []*vertex {
	vertices := []*vertex{}
	for _, entries := range self.vertices {
		vertices = append(vertices, entries...)
	}
	slices.SortFunc(vertices, func(a *vertex, b *vertex) int {
		return compareOrder(a.order, b.order)
	})
	return vertices
}

// must be called with the lock
func (self *Store) arrivalEdges() []*edge {
	edges := []*edge{}
	for _, entries := range self.edges {
		edges = append(edges, entries...)
	}
	slices.SortFunc(edges, func(a *edge, b *edge) int {
		return compareOrder(a.order, b.order)
	})
	return edges
}
