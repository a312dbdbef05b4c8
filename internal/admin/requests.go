package admin

import (
	"context"
	"time"
)

// Request names understood by the daemon.
const (
	RequestGetSelf        = "getself"
	RequestGetPeers       = "getpeers"
	RequestGetTree        = "gettree"
	RequestGetPaths       = "getpaths"
	RequestLookups        = "lookups"
	RequestGetNodeInfo    = "getnodeinfo"
	RequestRemoteGetPeers = "debug_remotegetpeers"
	RequestRemoteGetTree  = "debug_remotegettree"
	RequestRemoteGetSelf  = "debug_remotegetself"
)

// SelfInfo is the getself payload describing the local node.
type SelfInfo struct {
	BuildName      string `json:"build_name"`
	BuildVersion   string `json:"build_version"`
	Key            string `json:"key"`
	Address        string `json:"address"`
	RoutingEntries uint64 `json:"routing_entries"`
	Subnet         string `json:"subnet"`
}

// PeerEntry is one direct peering of the local node.
// Peerings that are down carry an empty key.
type PeerEntry struct {
	Remote        string     `json:"remote"`
	Up            bool       `json:"up"`
	Inbound       bool       `json:"inbound"`
	Key           string     `json:"key"`
	Port          uint64     `json:"port"`
	Priority      uint64     `json:"priority"`
	BytesRecvd    uint64     `json:"bytes_recvd"`
	BytesSent     uint64     `json:"bytes_sent"`
	Uptime        float64    `json:"uptime"`
	LastError     string     `json:"last_error,omitempty"`
	LastErrorTime *time.Time `json:"last_error_time,omitempty"`
}

// PeersInfo is the getpeers payload.
type PeersInfo struct {
	Peers []PeerEntry `json:"peers"`
}

// TreeEntry is one node of the local spanning tree view.
type TreeEntry struct {
	Address  string `json:"address"`
	Key      string `json:"key"`
	Parent   string `json:"parent"`
	Sequence uint64 `json:"sequence"`
}

// TreeInfo is the gettree payload.
type TreeInfo struct {
	Tree []TreeEntry `json:"tree"`
}

// LookupEntry is one node the daemon currently routes to, with its
// coordinates in the root's spanning tree.
type LookupEntry struct {
	Address string    `json:"addr"`
	Key     string    `json:"key"`
	Path    []uint64  `json:"path"`
	Time    time.Time `json:"time"`
}

// LookupsInfo is the lookups payload.
type LookupsInfo struct {
	Infos []LookupEntry `json:"infos"`
}

// PathEntry is one cached path from the getpaths payload.
type PathEntry struct {
	Address  string   `json:"address"`
	Key      string   `json:"key"`
	Path     []uint64 `json:"path"`
	Sequence uint64   `json:"sequence"`
}

// PathsInfo is the getpaths payload.
type PathsInfo struct {
	Paths []PathEntry `json:"paths"`
}

// NodeInfo is the subset of a node's self-published nodeinfo we use.
// Operators may publish arbitrary extra fields; they are ignored.
type NodeInfo struct {
	Name          string `json:"name"`
	BuildName     string `json:"buildname"`
	BuildVersion  string `json:"buildversion"`
	BuildArch     string `json:"buildarch"`
	BuildPlatform string `json:"buildplatform"`
	Cluster       string `json:"cluster"`
}

// RemoteKeys is the payload of the remote peers and remote tree requests.
type RemoteKeys struct {
	Keys []string `json:"keys"`
}

// RemoteSelf is the payload of the remote self request.
type RemoteSelf struct {
	Key            string `json:"key"`
	RoutingEntries uint64 `json:"routing_entries"`
}

// GetSelf asks the daemon to identify the local node.
func (c *Client) GetSelf(ctx context.Context) (SelfInfo, error) {
	return call[SelfInfo](ctx, c, RequestGetSelf, nil)
}

// GetPeers lists the local node's direct peerings.
func (c *Client) GetPeers(ctx context.Context) (PeersInfo, error) {
	return call[PeersInfo](ctx, c, RequestGetPeers, nil)
}

// GetTree lists the local spanning tree view.
func (c *Client) GetTree(ctx context.Context) (TreeInfo, error) {
	return call[TreeInfo](ctx, c, RequestGetTree, nil)
}

// GetLookups lists every node the daemon currently routes to.
func (c *Client) GetLookups(ctx context.Context) (LookupsInfo, error) {
	return call[LookupsInfo](ctx, c, RequestLookups, nil)
}

// GetPaths lists the daemon's cached paths. Daemons without the lookups
// request expose the same coordinates through it.
func (c *Client) GetPaths(ctx context.Context) (PathsInfo, error) {
	return call[PathsInfo](ctx, c, RequestGetPaths, nil)
}

// GetNodeInfo fetches the nodeinfo published by the node with key.
func (c *Client) GetNodeInfo(ctx context.Context, key string) (NodeInfo, error) {
	return callKeyed[NodeInfo](ctx, c, RequestGetNodeInfo, key)
}

// RemoteGetPeers relays a peers query to the node with key.
func (c *Client) RemoteGetPeers(ctx context.Context, key string) (RemoteKeys, error) {
	return callKeyed[RemoteKeys](ctx, c, RequestRemoteGetPeers, key)
}

// RemoteGetTree relays a tree query to the node with key.
func (c *Client) RemoteGetTree(ctx context.Context, key string) (RemoteKeys, error) {
	return callKeyed[RemoteKeys](ctx, c, RequestRemoteGetTree, key)
}

// RemoteGetSelf relays a self query to the node with key.
func (c *Client) RemoteGetSelf(ctx context.Context, key string) (RemoteSelf, error) {
	return callKeyed[RemoteSelf](ctx, c, RequestRemoteGetSelf, key)
}
