package graph

import (
	"cmp"
	"slices"

	"github.com/nao1215/meshmap/internal/model"
	"github.com/nao1215/meshmap/internal/registry"
)

// link is a directed adjacency relation between two keys.
type link struct {
	from model.Key
	to   model.Key
}

func compareLinks(a, b link) int {
	return cmp.Or(cmp.Compare(a.from, b.from), cmp.Compare(a.to, b.to))
}

// exportPeers draws the self-reported adjacency of every crawled node.
func exportPeers(snap registry.Snapshot) *model.Graph {
	links := make(map[link]struct{})
	endpoints := make(map[model.Key]struct{}, len(snap.Enriched))
	for key := range snap.Enriched {
		endpoints[key] = struct{}{}
	}
	for key, neighbors := range snap.Adjacency {
		endpoints[key] = struct{}{}
		for _, neighbor := range neighbors {
			endpoints[neighbor] = struct{}{}
			if neighbor == key {
				continue
			}
			// The relay reported neighbor as its peer, so the edge points at the relay.
			links[link{from: neighbor, to: key}] = struct{}{}
		}
	}

	ordered := make([]link, 0, len(links))
	for l := range links {
		ordered = append(ordered, l)
	}
	slices.SortFunc(ordered, compareLinks)

	g := model.NewGraph()
	for _, l := range ordered {
		_, reciprocal := links[link{from: l.to, to: l.from}]
		switch {
		case reciprocal && l.from < l.to:
			arrows := model.ArrowToFrom
			g.Edges = append(g.Edges, model.Edge{
				From:   model.KeyID(l.from),
				To:     model.KeyID(l.to),
				Dashes: false,
				Arrows: &arrows,
			})
		case reciprocal:
			// emitted together with its mirror
		default:
			arrows := model.ArrowTo
			g.Edges = append(g.Edges, model.Edge{
				From:   model.KeyID(l.from),
				To:     model.KeyID(l.to),
				Dashes: true,
				Arrows: &arrows,
			})
		}
	}

	keys := make([]model.Key, 0, len(endpoints))
	for key := range endpoints {
		if key.IsEmpty() {
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)

	clusters := newClusterSet()
	for _, key := range keys {
		g.Nodes = append(g.Nodes, newNode(peerFor(snap, key), clusters))
	}
	g.Clusters = clusters.sorted()
	return g
}

// peerFor returns the best data known about key: the enriched entry, then
// the stored peer data, then a stub.
func peerFor(snap registry.Snapshot, key model.Key) model.EnrichedPeerData {
	if enriched, ok := snap.Enriched[key]; ok {
		return enriched
	}
	if peer, ok := snap.Peers[key]; ok {
		return model.EnrichedPeerData{PeerData: peer}
	}
	return model.EnrichedPeerData{PeerData: model.NewUnknownPeer(key)}
}
