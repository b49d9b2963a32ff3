package graph

// Leases tie a vertex lifetime to an owner, typically a connection.
// The marker is lost when the vertex is removed and is never cloned.

func (self *Store) MarkLeased(vertexId string, ownerId string) error {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	v, err := self.vertex(vertexId)
	if err != nil {
		return err
	}
	v.leasedBy = ownerId
	return nil
}

func (self *Store) LeasedOwner(vertexId string) (string, bool) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	v, err := self.vertex(vertexId)
	if err != nil || v.leasedBy == "" {
		return "", false
	}
	return v.leasedBy, true
}

func (self *Store) LeasedBy(ownerId string) []string {
	self.mutex.RLock()
	defer self.mutex.RUnlock()

	vertexIds := []string{}
	for _, v := range self.leasedBy(ownerId) {
		vertexIds = append(vertexIds, v.id)
	}
	return vertexIds
}

// ReleaseAllLeasedBy removes every vertex leased by `ownerId`, in id order,
// with the same cascade as `RemoveVertex`.
func (self *Store) ReleaseAllLeasedBy(ownerId string) []*RemovedVertex {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	removedVertices := []*RemovedVertex{}
	for _, v := range self.leasedBy(ownerId) {
		removedVertices = append(removedVertices, self.removeVertex(v))
	}
	return removedVertices
}

// must be called with the lock
func (self *Store) leasedBy(ownerId string) []*vertex {
	leased := []*vertex{}
	if ownerId == "" {
		return leased
	}
	for _, v := range self.sortedVertices() {
		if v.leasedBy == ownerId {
			leased = append(leased, v)
		}
	}
	return leased
}
