package model

// Unknown is stored in PeerData fields the crawl could not learn.
const Unknown = "unknown"

// PeerData holds the static attributes a node reports about itself
// through the daemon's nodeinfo facility.
type PeerData struct {
	Key Key `json:"key"`

	Name string `json:"name"`

	BuildName     string `json:"buildname"`
	BuildVersion  string `json:"buildversion"`
	BuildArch     string `json:"buildarch"`
	BuildPlatform string `json:"buildplatform"`

	// Cluster is an explicit grouping label. Empty means the label is
	// derived from Name when the graph is exported.
	Cluster string `json:"cluster,omitempty"`
}

// NewUnknownPeer returns PeerData for key with every other field unknown.
// It is stored for nodes that could not be interrogated.
func NewUnknownPeer(key Key) PeerData {
	return PeerData{
		Key:           key,
		Name:          Unknown,
		BuildName:     Unknown,
		BuildVersion:  Unknown,
		BuildArch:     Unknown,
		BuildPlatform: Unknown,
	}
}

// IsStub reports whether nothing beyond the key is known about the peer.
func (p PeerData) IsStub() bool {
	return p.Name == Unknown &&
		p.BuildName == Unknown &&
		p.BuildVersion == Unknown &&
		p.BuildArch == Unknown &&
		p.BuildPlatform == Unknown
}

// NodeOverride replaces attributes of a peer after it was interrogated.
// Overrides come from the configuration file and let operators name or
// group nodes that do not publish useful nodeinfo.
type NodeOverride struct {
	Name    string
	Cluster string
}

// Apply returns p with the non-empty override fields set.
func (o NodeOverride) Apply(p PeerData) PeerData {
	if o.Name != "" {
		p.Name = o.Name
	}
	if o.Cluster != "" {
		p.Cluster = o.Cluster
	}
	return p
}

// EnrichedPeerData is PeerData merged with the daemon's lookup entry for the
// node. It only exists for nodes the daemon currently routes to.
type EnrichedPeerData struct {
	PeerData

	Address string `json:"address"`
	Path    Path   `json:"path"`
}

// NewPlaceholder returns a synthetic node standing in for an unknown
// ancestor at the given path.
func NewPlaceholder(path Path) EnrichedPeerData {
	peer := NewUnknownPeer(EmptyKey)
	return EnrichedPeerData{
		PeerData: peer,
		Address:  "",
		Path:     path,
	}
}

// Label returns the display label: the node name and an address prefix.
func (e EnrichedPeerData) Label() string {
	addr := e.Address
	if len(addr) > 8 {
		addr = addr[:8]
	}
	return e.Name + " - " + addr
}

// Parent returns the node's parent path.
func (e EnrichedPeerData) Parent() Path {
	return e.Path.Parent()
}

// ID returns the node's numeric identity in an exported graph.
func (e EnrichedPeerData) ID() NodeID {
	if !e.Key.IsEmpty() {
		return KeyID(e.Key)
	}
	return PlaceholderID(e.Address, e.Key, e.Name, e.Path)
}
