// Package graph turns a registry snapshot into an exportable node/edge graph.
//
// Two independent algorithms are provided:
//
//   - path: rebuilds the root's spanning tree from the lookup coordinates of
//     every enriched node. Missing ancestors are filled with placeholder nodes
//     so that no edge references a node absent from the output.
//   - peers: draws the adjacency every crawled node reported about itself.
//     Reciprocal pairs collapse into a single bidirectional edge.
//
// Export is pure with respect to its snapshot: calling it twice on the same
// snapshot yields identical graphs, including node and edge order.
package graph
