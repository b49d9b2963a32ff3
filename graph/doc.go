// Package graph is an in-memory attributed multigraph with cascading vertex removal,
// undirected edges, optional duplicate ids and vertex leases.
//
// The store is the authoritative state of a replication server and the mirror of a
// replication client. Attribute values are kept in the protobuf struct value domain
// so that values compare equal after crossing the wire.
package graph
