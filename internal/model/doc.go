// Package model defines the core data structures shared by the crawler,
// the graph exporter and the report writers.
//
// This package contains the following main types:
//   - Key: The hex-encoded public key that identifies a mesh node
//   - Path: A node's coordinates in the root's spanning tree
//   - PeerData / EnrichedPeerData: What a crawl learned about a node
//   - Graph: The exported node/edge view consumed by report writers
package model
