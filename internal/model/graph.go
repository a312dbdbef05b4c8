package model

import "time"

// Mode selects which graph-construction algorithm an export uses.
type Mode string

const (
	// ModePath rebuilds the spanning tree from lookup coordinates.
	ModePath Mode = "path"

	// ModePeers draws the self-reported peer adjacency of every crawled node.
	ModePeers Mode = "peers"
)

// Modes lists every supported export mode.
var Modes = []Mode{ModePath, ModePeers}

// IsValid reports whether m names a supported export mode.
func (m Mode) IsValid() bool {
	return m == ModePath || m == ModePeers
}

// Arrow hints understood by graph front ends.
const (
	ArrowTo     = "to"
	ArrowToFrom = "to, from"
)

// Graph is the exported node/edge view of a crawl generation.
// Its JSON form is consumed by graph front ends as-is, so field names
// must not change.
type Graph struct {
	Nodes    []Node   `json:"nodes"`
	Edges    []Edge   `json:"edges"`
	Clusters []string `json:"clusters"`
}

// Node is one vertex of an exported graph.
type Node struct {
	ID            NodeID  `json:"id"`
	Label         string  `json:"label"`
	BuildPlatform string  `json:"buildplatform"`
	BuildVersion  string  `json:"buildversion"`
	Cluster       *string `json:"cluster"`
}

// Edge is one link of an exported graph.
type Edge struct {
	From   NodeID  `json:"from"`
	To     NodeID  `json:"to"`
	Dashes bool    `json:"dashes"`
	Arrows *string `json:"arrows"`
}

// IsBidirectional reports whether the edge stands for a reciprocal pair.
func (e Edge) IsBidirectional() bool {
	return e.Arrows != nil && *e.Arrows == ArrowToFrom
}

// NewGraph returns an empty graph whose slices marshal as [] instead of null.
func NewGraph() *Graph {
	return &Graph{
		Nodes:    make([]Node, 0),
		Edges:    make([]Edge, 0),
		Clusters: make([]string, 0),
	}
}

// NodeByID returns the node with the given id.
func (g *Graph) NodeByID(id NodeID) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// PlatformCounts counts nodes per build platform.
func (g *Graph) PlatformCounts() map[string]int {
	counts := make(map[string]int)
	for _, n := range g.Nodes {
		counts[n.BuildPlatform]++
	}
	return counts
}

// BidirectionalCount returns the number of collapsed reciprocal edges.
func (g *Graph) BidirectionalCount() int {
	count := 0
	for _, e := range g.Edges {
		if e.IsBidirectional() {
			count++
		}
	}
	return count
}

// Report wraps an exported graph with the context report writers print.
type Report struct {
	// Mode is the export mode the graph was built with.
	Mode Mode `json:"mode"`

	// Root is the key of the node the crawl started from.
	Root Key `json:"root"`

	// Generation identifies the crawl generation the graph was built from.
	Generation string `json:"generation"`

	// GeneratedAt is when the graph was exported.
	GeneratedAt time.Time `json:"generated_at"`

	// Status is the engine's crawling status line at export time.
	Status string `json:"status"`

	// Graph is the exported graph.
	Graph *Graph `json:"graph"`
}
