package graph

import (
	"fmt"

	"github.com/nao1215/meshmap/internal/model"
	"github.com/nao1215/meshmap/internal/registry"
)

// Export builds the graph for mode from snap.
func Export(snap registry.Snapshot, mode model.Mode) (*model.Graph, error) {
	switch mode {
	case model.ModePath:
		return exportPath(snap), nil
	case model.ModePeers:
		return exportPeers(snap), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// newNode converts an enriched peer into an output node and records its
// cluster label.
func newNode(peer model.EnrichedPeerData, clusters *clusterSet) model.Node {
	return model.Node{
		ID:            peer.ID(),
		Label:         peer.Label(),
		BuildPlatform: peer.BuildPlatform,
		BuildVersion:  peer.BuildVersion,
		Cluster:       clusters.add(peer.PeerData),
	}
}
