package graph

import (
	"fmt"
)

// AddEdge creates an edge between two existing vertices.
// An empty `edgeId` generates a new id of the form `E<n>`.
// Returns the id of the new edge.
func (self *Store) AddEdge(
	edgeId string,
	sourceId string,
	targetId string,
	undirected bool,
	attributes Attributes,
) (string, error) {
	normalizedAttributes, err := NormalizeAttributes(attributes)
	if err != nil {
		return "", err
	}

	self.mutex.Lock()
	defer self.mutex.Unlock()

	source, err := self.vertex(sourceId)
	if err != nil {
		return "", err
	}
	target, err := self.vertex(targetId)
	if err != nil {
		return "", err
	}

	if edgeId == "" {
		edgeId = self.nextEdgeId()
	} else {
		if !self.allowDuplicates && 0 < len(self.edges[edgeId]) {
			return "", duplicateEdge(edgeId)
		}
		self.edgeCounter += 1
	}

	self.usedEdgeIds[edgeId] = struct{}{}
	e := &edge{
		id:         edgeId,
		order:      self.nextOrder(),
		source:     source,
		target:     target,
		undirected: undirected,
		attributes: normalizedAttributes,
	}
	self.edges[edgeId] = append(self.edges[edgeId], e)

	source.outgoing[e] = struct{}{}
	target.incoming[e] = struct{}{}
	if undirected {
		source.incoming[e] = struct{}{}
		target.outgoing[e] = struct{}{}
	}
	return edgeId, nil
}

func (self *Store) HasEdge(edgeId string) bool {
	self.mutex.RLock()
	defer self.mutex.RUnlock()
	return 0 < len(self.edges[edgeId])
}

func (self *Store) RemoveEdge(edgeId string) (*RemovedEdge, error) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	e, err := self.edge(edgeId)
	if err != nil {
		return nil, err
	}
	return self.removeEdge(e), nil
}

// must be called with the lock
func (self *Store) removeEdge(e *edge) *RemovedEdge {
	for _, v := range []*vertex{e.source, e.target} {
		delete(v.outgoing, e)
		delete(v.incoming, e)
	}
	self.edges[e.id] = removeEntry(self.edges[e.id], e)
	if len(self.edges[e.id]) == 0 {
		delete(self.edges, e.id)
	}
	return e.removed()
}

func (self *Store) SetEdgeAttribute(edgeId string, key string, value any) error {
	normalizedValue, err := NormalizeValue(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	self.mutex.Lock()
	defer self.mutex.Unlock()

	e, err := self.edge(edgeId)
	if err != nil {
		return err
	}
	e.attributes[key] = normalizedValue
	return nil
}

// SetEdgeAttributes merges `attributes` into the edge attributes.
func (self *Store) SetEdgeAttributes(edgeId string, attributes Attributes) error {
	normalizedAttributes, err := NormalizeAttributes(attributes)
	if err != nil {
		return err
	}

	self.mutex.Lock()
	defer self.mutex.Unlock()

	e, err := self.edge(edgeId)
	if err != nil {
		return err
	}
	for key, value := range normalizedAttributes {
		e.attributes[key] = value
	}
	return nil
}

// EdgeAttribute returns nil when the edge does not have the key.
func (self *Store) EdgeAttribute(edgeId string, key string) (any, error) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	e, err := self.edge(edgeId)
	if err != nil {
		return nil, err
	}
	return copyValue(e.attributes[key]), nil
}

func (self *Store) EdgeAttributes(edgeId string) (Attributes, error) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	e, err := self.edge(edgeId)
	if err != nil {
		return nil, err
	}
	return e.attributes.Clone(), nil
}

func (self *Store) EdgeAttributeKeys(edgeId string) ([]string, error) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	e, err := self.edge(edgeId)
	if err != nil {
		return nil, err
	}
	return sortedKeys(e.attributes), nil
}

// RemoveEdgeAttribute returns the removed value, or nil when the key was not set.
func (self *Store) RemoveEdgeAttribute(edgeId string, key string) (any, error) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	e, err := self.edge(edgeId)
	if err != nil {
		return nil, err
	}
	value := e.attributes[key]
	delete(e.attributes, key)
	return value, nil
}

func (self *Store) EdgeSource(edgeId string) (string, error) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	e, err := self.edge(edgeId)
	if err != nil {
		return "", err
	}
	return e.source.id, nil
}

func (self *Store) EdgeTarget(edgeId string) (string, error) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	e, err := self.edge(edgeId)
	if err != nil {
		return "", err
	}
	return e.target.id, nil
}

// EdgeOtherEndpoint returns the endpoint of the edge opposite to `vertexId`.
func (self *Store) EdgeOtherEndpoint(edgeId string, vertexId string) (string, error) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	e, err := self.edge(edgeId)
	if err != nil {
		return "", err
	}
	switch vertexId {
	case e.source.id:
		return e.target.id, nil
	case e.target.id:
		return e.source.id, nil
	default:
		return "", fmt.Errorf("%w: %s %s", ErrNotEndpoint, vertexId, edgeId)
	}
}

func (self *Store) IsEdgeUndirected(edgeId string) (bool, error) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	e, err := self.edge(edgeId)
	if err != nil {
		return false, err
	}
	return e.undirected, nil
}
