package graph

import (
	"slices"
	"strings"

	"github.com/nao1215/meshmap/internal/model"
)

// ClusterOf returns the grouping label of peer: its explicit cluster if set,
// otherwise its name with the final dot-separated segment removed.
// An empty result means the peer belongs to no cluster.
func ClusterOf(peer model.PeerData) string {
	if peer.Cluster != "" {
		return peer.Cluster
	}
	i := strings.LastIndex(peer.Name, ".")
	if i < 0 {
		return ""
	}
	return peer.Name[:i]
}

// clusterSet accumulates the labels used by the nodes of one export.
type clusterSet struct {
	seen map[string]struct{}
}

func newClusterSet() *clusterSet {
	return &clusterSet{seen: make(map[string]struct{})}
}

// add records the cluster of peer and returns it as a node attribute,
// nil when the peer has none.
func (c *clusterSet) add(peer model.PeerData) *string {
	label := ClusterOf(peer)
	if label == "" {
		return nil
	}
	c.seen[label] = struct{}{}
	return &label
}

// sorted returns every recorded label in ascending order.
func (c *clusterSet) sorted() []string {
	labels := make([]string, 0, len(c.seen))
	for label := range c.seen {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	return labels
}
