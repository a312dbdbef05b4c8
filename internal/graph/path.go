package graph

import (
	"slices"

	"github.com/nao1215/meshmap/internal/model"
	"github.com/nao1215/meshmap/internal/registry"
)

// exportPath rebuilds the spanning tree from lookup coordinates.
func exportPath(snap registry.Snapshot) *model.Graph {
	byPath := make(map[string]model.EnrichedPeerData, len(snap.Enriched))

	// Visit keys in order so that a path claimed by two nodes always
	// resolves to the same one.
	keys := make([]model.Key, 0, len(snap.Enriched))
	for key := range snap.Enriched {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		peer := snap.Enriched[key]
		if _, ok := byPath[peer.Path.MapKey()]; !ok {
			byPath[peer.Path.MapKey()] = peer
		}
	}

	for _, key := range keys {
		addAncestors(byPath, snap.Enriched[key].Path)
	}

	nodes := make([]model.EnrichedPeerData, 0, len(byPath))
	for _, peer := range byPath {
		nodes = append(nodes, peer)
	}
	slices.SortFunc(nodes, func(a, b model.EnrichedPeerData) int {
		return a.Path.Compare(b.Path)
	})

	g := model.NewGraph()
	clusters := newClusterSet()
	for _, peer := range nodes {
		g.Nodes = append(g.Nodes, newNode(peer, clusters))

		parentPath := peer.Parent()
		if parentPath.Equal(peer.Path) {
			continue
		}
		parent := byPath[parentPath.MapKey()]
		g.Edges = append(g.Edges, model.Edge{
			From: peer.ID(),
			To:   parent.ID(),
		})
	}
	g.Clusters = clusters.sorted()
	return g
}

// addAncestors inserts a placeholder for every missing prefix of path,
// walking from the immediate parent toward the root. The walk stops at the
// first ancestor already present or when a path equals its own parent.
func addAncestors(byPath map[string]model.EnrichedPeerData, path model.Path) {
	current := path
	for {
		parent := current.Parent()
		if parent.Equal(current) {
			return
		}
		if _, ok := byPath[parent.MapKey()]; ok {
			return
		}
		byPath[parent.MapKey()] = model.NewPlaceholder(parent)
		current = parent
	}
}
