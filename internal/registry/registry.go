package registry

import (
	"maps"
	"slices"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/nao1215/meshmap/internal/model"
)

// Registry is the keyed storage of a crawl generation.
// All methods are safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	// peers maps a key to what the node reported about itself.
	peers map[model.Key]model.PeerData

	// enriched maps a key to peer data merged with the daemon's lookup entry.
	enriched map[model.Key]model.EnrichedPeerData

	// adjacency maps a key to the peer keys that node reported.
	adjacency map[model.Key][]model.Key

	// inProgress holds keys a worker has claimed. The set does its own
	// locking, so claiming a key is a single atomic insert.
	inProgress mapset.Set[model.Key]
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		peers:      make(map[model.Key]model.PeerData),
		enriched:   make(map[model.Key]model.EnrichedPeerData),
		adjacency:  make(map[model.Key][]model.Key),
		inProgress: mapset.NewSet[model.Key](),
	}
}

// Reset discards all state of the previous generation.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.peers = make(map[model.Key]model.PeerData)
	r.enriched = make(map[model.Key]model.EnrichedPeerData)
	r.adjacency = make(map[model.Key][]model.Key)
	r.inProgress.Clear()
}

// MarkInProgress claims key for crawling. It returns false when another
// caller already claimed it, in which case the caller must skip the key.
func (r *Registry) MarkInProgress(key model.Key) bool {
	return r.inProgress.Add(key)
}

// Release drops the claim on key once its data was stored.
func (r *Registry) Release(key model.Key) {
	r.inProgress.Remove(key)
}

// IsInProgress reports whether key was claimed for crawling.
func (r *Registry) IsInProgress(key model.Key) bool {
	return r.inProgress.Contains(key)
}

// IsKnown reports whether peer data for key was stored.
func (r *Registry) IsKnown(key model.Key) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.peers[key]
	return ok
}

// PutPeer stores peer data. It returns false and leaves the registry
// unchanged when data for the key already exists.
func (r *Registry) PutPeer(peer model.PeerData) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[peer.Key]; ok {
		return false
	}
	r.peers[peer.Key] = peer
	return true
}

// Peer returns the stored peer data for key.
func (r *Registry) Peer(key model.Key) (model.PeerData, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	peer, ok := r.peers[key]
	return peer, ok
}

// PutAdjacency records the peers a node reported. Like peer data it is
// write-once; a second call for the same key returns false.
func (r *Registry) PutAdjacency(key model.Key, neighbors []model.Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.adjacency[key]; ok {
		return false
	}
	r.adjacency[key] = slices.Clone(neighbors)
	return true
}

// PutEnriched stores a lookup-enriched peer, returning false if one exists.
func (r *Registry) PutEnriched(peer model.EnrichedPeerData) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.enriched[peer.Key]; ok {
		return false
	}
	r.enriched[peer.Key] = peer
	return true
}

// Snapshot is a point-in-time copy of the registry. It shares no memory
// with the registry, so it can be read while a crawl keeps writing.
type Snapshot struct {
	Peers     map[model.Key]model.PeerData
	Enriched  map[model.Key]model.EnrichedPeerData
	Adjacency map[model.Key][]model.Key
}

// Snapshot copies the current state.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adjacency := make(map[model.Key][]model.Key, len(r.adjacency))
	for k, v := range r.adjacency {
		adjacency[k] = slices.Clone(v)
	}
	enriched := make(map[model.Key]model.EnrichedPeerData, len(r.enriched))
	for k, v := range r.enriched {
		v.Path = slices.Clone(v.Path)
		enriched[k] = v
	}

	return Snapshot{
		Peers:     maps.Clone(r.peers),
		Enriched:  enriched,
		Adjacency: adjacency,
	}
}

// Stats counts the entries of each map.
type Stats struct {
	Peers      int
	Enriched   int
	Links      int
	InProgress int
}

// Stats returns entry counts for diagnostics.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	links := 0
	for _, neighbors := range r.adjacency {
		links += len(neighbors)
	}

	return Stats{
		Peers:      len(r.peers),
		Enriched:   len(r.enriched),
		Links:      links,
		InProgress: r.inProgress.Cardinality(),
	}
}
