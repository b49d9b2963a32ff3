package graph

// listings are sorted by id. With duplicates allowed an id is listed once per entity.

func (self *Store) Vertices(filter Filter) []string {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	vertexIds := []string{}
	for _, v := range self.sortedVertices() {
		if filter.Matches(v.attributes) {
			vertexIds = append(vertexIds, v.id)
		}
	}
	return vertexIds
}

func (self *Store) Edges(filter Filter) []string {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	return edgeIds(self.sortedEdges(), filter)
}

func (self *Store) InDegree(vertexId string) (int, error) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	v, err := self.vertex(vertexId)
	if err != nil {
		return 0, err
	}
	return len(v.incoming), nil
}

func (self *Store) OutDegree(vertexId string) (int, error) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	v, err := self.vertex(vertexId)
	if err != nil {
		return 0, err
	}
	return len(v.outgoing), nil
}

func (self *Store) IncomingEdges(vertexId string, filter Filter) ([]string, error) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	v, err := self.vertex(vertexId)
	if err != nil {
		return nil, err
	}
	return edgeIds(sortedEdges(v.incoming), filter), nil
}

func (self *Store) OutgoingEdges(vertexId string, filter Filter) ([]string, error) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	v, err := self.vertex(vertexId)
	if err != nil {
		return nil, err
	}
	return edgeIds(sortedEdges(v.outgoing), filter), nil
}

// EdgesBetween lists the edges that leave `sourceId` and enter `targetId`.
// Undirected edges between the two vertices are listed in either direction.
func (self *Store) EdgesBetween(sourceId string, targetId string, filter Filter) ([]string, error) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	between, err := self.edgesBetween(sourceId, targetId)
	if err != nil {
		return nil, err
	}
	return edgeIds(between, filter), nil
}

func (self *Store) EdgeCountBetween(sourceId string, targetId string) (int, error) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	between, err := self.edgesBetween(sourceId, targetId)
	if err != nil {
		return 0, err
	}
	return len(between), nil
}

// must be called with the lock
func (self *Store) edgesBetween(sourceId string, targetId string) ([]*edge, error) {
	source, err := self.vertex(sourceId)
	if err != nil {
		return nil, err
	}
	target, err := self.vertex(targetId)
	if err != nil {
		return nil, err
	}
	between := []*edge{}
	for _, e := range sortedEdges(source.outgoing) {
		if _, ok := target.incoming[e]; ok {
			between = append(between, e)
		}
	}
	return between, nil
}

func edgeIds(edges []*edge, filter Filter) []string {
	ids := []string{}
	for _, e := range edges {
		if filter.Matches(e.attributes) {
			ids = append(ids, e.id)
		}
	}
	return ids
}
