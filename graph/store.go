package graph

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

type StoreSettings struct {
	// when set, vertices and edges may share an id
	// lookups by id resolve to the most recently added entity with that id
	AllowDuplicates bool
}

func DefaultStoreSettings() *StoreSettings {
	return &StoreSettings{
		AllowDuplicates: false,
	}
}

type vertex struct {
	id         string
	order      uint64
	attributes Attributes
	incoming   map[*edge]struct{}
	outgoing   map[*edge]struct{}
	// connection id that owns the vertex, empty for persistent vertices
	leasedBy string
}

func newVertex(id string, order uint64, attributes Attributes) *vertex {
	return &vertex{
		id:         id,
		order:      order,
		attributes: attributes,
		incoming:   map[*edge]struct{}{},
		outgoing:   map[*edge]struct{}{},
	}
}

type edge struct {
	id         string
	order      uint64
	source     *vertex
	target     *vertex
	undirected bool
	attributes Attributes
}

func (self *edge) removed() *RemovedEdge {
	return &RemovedEdge{
		Id:         self.id,
		SourceId:   self.source.id,
		TargetId:   self.target.id,
		Undirected: self.undirected,
		Attributes: self.attributes.Clone(),
	}
}

type RemovedEdge struct {
	Id         string
	SourceId   string
	TargetId   string
	Undirected bool
	Attributes Attributes
}

// RemovedVertex describes a removed vertex and every incident edge removed with it.
type RemovedVertex struct {
	Id string
	// how many entries with the same id were above the removed one, 0 when it was the visible one
	Depth      int
	Attributes Attributes
	Edges      []*RemovedEdge
}

// Store is an in-memory attributed multigraph. Edges may be directed or undirected.
// An undirected edge is registered as both incoming and outgoing on both endpoints.
// Store is safe for concurrent use.
type Store struct {
	mutex sync.RWMutex

	allowDuplicates bool

	// entries sharing an id are kept in arrival order, the last entry is the visible one
	vertices map[string][]*vertex
	edges    map[string][]*edge

	// every id ever used, including removed ids, so that generated ids are never reassigned
	usedVertexIds map[string]struct{}
	usedEdgeIds   map[string]struct{}

	vertexCounter uint64
	edgeCounter   uint64

	// arrival order across all entities
	order uint64
}

func NewStoreWithDefaults() *Store {
	return NewStore(DefaultStoreSettings())
}

func NewStore(settings *StoreSettings) *Store {
	return &Store{
		allowDuplicates: settings.AllowDuplicates,
		vertices:        map[string][]*vertex{},
		edges:           map[string][]*edge{},
		usedVertexIds:   map[string]struct{}{},
		usedEdgeIds:     map[string]struct{}{},
	}
}

func (self *Store) SetAllowDuplicates(allowDuplicates bool) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	self.allowDuplicates = allowDuplicates
}

func (self *Store) AllowDuplicates() bool {
	self.mutex.RLock()
	defer self.mutex.RUnlock()
	return self.allowDuplicates
}

func (self *Store) nextOrder() uint64 {
	self.order += 1
	return self.order
}

// must be called with the lock
func (self *Store) nextVertexId() string {
	for {
		id := fmt.Sprintf("V%d", self.vertexCounter)
		self.vertexCounter += 1
		if _, ok := self.usedVertexIds[id]; !ok {
			return id
		}
	}
}

// must be called with the lock
func (self *Store) nextEdgeId() string {
	for {
		id := fmt.Sprintf("E%d", self.edgeCounter)
		self.edgeCounter += 1
		if _, ok := self.usedEdgeIds[id]; !ok {
			return id
		}
	}
}

// must be called with the lock
func (self *Store) vertex(vertexId string) (*vertex, error) {
	entries := self.vertices[vertexId]
	if len(entries) == 0 {
		return nil, unknownVertex(vertexId)
	}
	return entries[len(entries)-1], nil
}

// must be called with the lock
func (self *Store) edge(edgeId string) (*edge, error) {
	entries := self.edges[edgeId]
	if len(entries) == 0 {
		return nil, unknownEdge(edgeId)
	}
	return entries[len(entries)-1], nil
}

// AddVertex creates a vertex. An empty `vertexId` generates a new id of the form `V<n>`.
// Returns the id of the new vertex.
func (self *Store) AddVertex(vertexId string, attributes Attributes) (string, error) {
	normalizedAttributes, err := NormalizeAttributes(attributes)
	if err != nil {
		return "", err
	}

	self.mutex.Lock()
	defer self.mutex.Unlock()

	if vertexId == "" {
		vertexId = self.nextVertexId()
	} else {
		if !self.allowDuplicates && 0 < len(self.vertices[vertexId]) {
			return "", duplicateVertex(vertexId)
		}
		self.vertexCounter += 1
	}

	self.usedVertexIds[vertexId] = struct{}{}
	v := newVertex(vertexId, self.nextOrder(), normalizedAttributes)
	self.vertices[vertexId] = append(self.vertices[vertexId], v)
	return vertexId, nil
}

func (self *Store) HasVertex(vertexId string) bool {
	self.mutex.RLock()
	defer self.mutex.RUnlock()
	return 0 < len(self.vertices[vertexId])
}

// RemoveVertex removes the vertex and every edge incident to it.
// Outgoing edges are removed before incoming edges.
func (self *Store) RemoveVertex(vertexId string) (*RemovedVertex, error) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	v, err := self.vertex(vertexId)
	if err != nil {
		return nil, err
	}
	return self.removeVertex(v), nil
}

// RemoveVertexAt removes the entry `depth` places below the visible vertex with the id.
// Depth 0 is the visible vertex. With duplicates this addresses one exact entry,
// which stays the same entry on every store that applied the same mutations.
func (self *Store) RemoveVertexAt(vertexId string, depth int) (*RemovedVertex, error) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	entries := self.vertices[vertexId]
	if depth < 0 || len(entries) <= depth {
		return nil, fmt.Errorf("%w: %s at depth %d", ErrUnknownVertex, vertexId, depth)
	}
	return self.removeVertex(entries[len(entries)-1-depth]), nil
}

// must be called with the lock
func (self *Store) removeVertex(v *vertex) *RemovedVertex {
	entries := self.vertices[v.id]
	depth := len(entries) - 1 - slices.Index(entries, v)

	incident := sortedEdges(v.outgoing)
	for _, e := range sortedEdges(v.incoming) {
		if _, ok := v.outgoing[e]; !ok {
			incident = append(incident, e)
		}
	}

	removedEdges := make([]*RemovedEdge, 0, len(incident))
	for _, e := range incident {
		removedEdges = append(removedEdges, self.removeEdge(e))
	}

	self.vertices[v.id] = removeEntry(self.vertices[v.id], v)
	if len(self.vertices[v.id]) == 0 {
		delete(self.vertices, v.id)
	}

	return &RemovedVertex{
		Id:         v.id,
		Depth:      depth,
		Attributes: v.attributes.Clone(),
		Edges:      removedEdges,
	}
}

func (self *Store) SetVertexAttribute(vertexId string, key string, value any) error {
	normalizedValue, err := NormalizeValue(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	self.mutex.Lock()
	defer self.mutex.Unlock()

	v, err := self.vertex(vertexId)
	if err != nil {
		return err
	}
	v.attributes[key] = normalizedValue
	return nil
}

// SetVertexAttributes merges `attributes` into the vertex attributes.
func (self *Store) SetVertexAttributes(vertexId string, attributes Attributes) error {
	normalizedAttributes, err := NormalizeAttributes(attributes)
	if err != nil {
		return err
	}

	self.mutex.Lock()
	defer self.mutex.Unlock()

	v, err := self.vertex(vertexId)
	if err != nil {
		return err
	}
	for key, value := range normalizedAttributes {
		v.attributes[key] = value
	}
	return nil
}

// VertexAttribute returns nil when the vertex does not have the key.
func (self *Store) VertexAttribute(vertexId string, key string) (any, error) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	v, err := self.vertex(vertexId)
	if err != nil {
		return nil, err
	}
	return copyValue(v.attributes[key]), nil
}

func (self *Store) VertexAttributes(vertexId string) (Attributes, error) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	v, err := self.vertex(vertexId)
	if err != nil {
		return nil, err
	}
	return v.attributes.Clone(), nil
}

func (self *Store) VertexAttributeKeys(vertexId string) ([]string, error) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	v, err := self.vertex(vertexId)
	if err != nil {
		return nil, err
	}
	return sortedKeys(v.attributes), nil
}

// RemoveVertexAttribute returns the removed value, or nil when the key was not set.
func (self *Store) RemoveVertexAttribute(vertexId string, key string) (any, error) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	v, err := self.vertex(vertexId)
	if err != nil {
		return nil, err
	}
	value := v.attributes[key]
	delete(v.attributes, key)
	return value, nil
}

func (self *Store) VertexCount() int {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	count := 0
	for _, entries := range self.vertices {
		count += len(entries)
	}
	return count
}

func (self *Store) EdgeCount() int {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	count := 0
	for _, entries := range self.edges {
		count += len(entries)
	}
	return count
}

// String renders the store one entity per line, sorted by id.
func (self *Store) String() string {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	var b strings.Builder
	for _, v := range self.sortedVertices() {
		fmt.Fprintf(&b, "vertex %s %v\n", v.id, map[string]any(v.attributes))
	}
	for _, e := range self.sortedEdges() {
		arrow := "->"
		if e.undirected {
			arrow = "--"
		}
		fmt.Fprintf(&b, "edge %s %s%s%s %v\n", e.id, e.source.id, arrow, e.target.id, map[string]any(e.attributes))
	}
	return b.String()
}

// must be called with the lock
func (self *Store) sortedVertices() []*vertex {
	vertices := []*vertex{}
	for _, entries := range self.vertices {
		vertices = append(vertices, entries...)
	}
	slices.SortFunc(vertices, func(a *vertex, b *vertex) int {
		if c := strings.Compare(a.id, b.id); c != 0 {
			return c
		}
		return compareOrder(a.order, b.order)
	})
	return vertices
}

// must be called with the lock
func (self *Store) sortedEdges() []*edge {
	edges := []*edge{}
	for _, entries := range self.edges {
		edges = append(edges, entries...)
	}
	slices.SortFunc(edges, compareEdges)
	return edges
}

func sortedEdges(edgeSet map[*edge]struct{}) []*edge {
	edges := make([]*edge, 0, len(edgeSet))
	for e := range edgeSet {
		edges = append(edges, e)
	}
	slices.SortFunc(edges, compareEdges)
	return edges
}

func compareEdges(a *edge, b *edge) int {
	if c := strings.Compare(a.id, b.id); c != 0 {
		return c
	}
	return compareOrder(a.order, b.order)
}

func compareOrder(a uint64, b uint64) int {
	switch {
	case a < b:
		return -1
	case b < a:
		return 1
	default:
		return 0
	}
}

func sortedKeys(attributes Attributes) []string {
	keys := make([]string, 0, len(attributes))
	for key := range attributes {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func removeEntry[T comparable](entries []T, entry T) []T {
	i := slices.Index(entries, entry)
	if i < 0 {
		return entries
	}
	return slices.Delete(slices.Clone(entries), i, i+1)
}
