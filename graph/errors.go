package graph

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateId   = errors.New("duplicate id")
	ErrUnknownVertex = errors.New("unknown vertex")
	ErrUnknownEdge   = errors.New("unknown edge")
	ErrInvalidValue  = errors.New("invalid attribute value")
	ErrNotEndpoint   = errors.New("vertex is not an endpoint of the edge")
)

func unknownVertex(vertexId string) error {
	return fmt.Errorf("%w: %s", ErrUnknownVertex, vertexId)
}

func unknownEdge(edgeId string) error {
	return fmt.Errorf("%w: %s", ErrUnknownEdge, edgeId)
}

func duplicateVertex(vertexId string) error {
	return fmt.Errorf("%w: vertex %s", ErrDuplicateId, vertexId)
}

func duplicateEdge(edgeId string) error {
	return fmt.Errorf("%w: edge %s", ErrDuplicateId, edgeId)
}
