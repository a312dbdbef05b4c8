package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nao1215/meshmap/internal/admin"
	"github.com/nao1215/meshmap/internal/model"
)

func testKey(n int) model.Key {
	return model.Key(fmt.Sprintf("%064x", n))
}

var errBroken = errors.New("broken pipe")

// fakeNode is one node of an in-memory mesh.
type fakeNode struct {
	name string

	// peers and tree are what the node reports to remote queries.
	peers []model.Key
	tree  []model.Key

	// unreachable makes remote and nodeinfo requests fail with a RequestError.
	unreachable bool

	// noInfo makes only the nodeinfo request fail with a RequestError.
	noInfo bool
}

// fakeMesh is an in-memory topology served through fakeConn.
type fakeMesh struct {
	mu sync.Mutex

	self    model.Key
	address string
	nodes   map[model.Key]*fakeNode

	// direct lists the root's direct peers.
	direct []model.Key

	lookups            []admin.LookupEntry
	lookupsUnsupported bool

	// brokenKey makes remote requests about that key fail with a
	// ConnectionError.
	brokenKey model.Key

	// lookupsBroken makes the lookups request fail with a ConnectionError.
	lookupsBroken bool

	// maxDials limits successful dials; zero means unlimited.
	maxDials int
	dials    int

	// entered and release, when set, block GetSelf.
	entered chan struct{}
	release chan struct{}

	remoteCalls map[model.Key]int
}

func newFakeMesh(self model.Key) *fakeMesh {
	return &fakeMesh{
		self:        self,
		address:     "200:aaaa::1",
		nodes:       map[model.Key]*fakeNode{self: {name: "root.example"}},
		remoteCalls: map[model.Key]int{},
	}
}

func (m *fakeMesh) add(key model.Key, node *fakeNode) {
	m.nodes[key] = node
}

func (m *fakeMesh) dial(_ context.Context) (Daemon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dials++
	if m.maxDials > 0 && m.dials > m.maxDials {
		return nil, &admin.ConnectionError{Endpoint: "fake", Op: "dial", Err: errBroken}
	}
	return &fakeConn{mesh: m}, nil
}

func (m *fakeMesh) remoteCount(key model.Key) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.remoteCalls[key]
}

// fakeConn is one connection to a fakeMesh.
type fakeConn struct {
	mesh   *fakeMesh
	closed bool
}

func (c *fakeConn) GetSelf(ctx context.Context) (admin.SelfInfo, error) {
	if c.mesh.entered != nil {
		close(c.mesh.entered)
		select {
		case <-c.mesh.release:
		case <-ctx.Done():
			return admin.SelfInfo{}, ctx.Err()
		}
	}
	return admin.SelfInfo{
		BuildName:    "yggdrasil",
		BuildVersion: "0.5.12",
		Key:          c.mesh.self.String(),
		Address:      c.mesh.address,
	}, nil
}

func (c *fakeConn) GetPeers(_ context.Context) (admin.PeersInfo, error) {
	info := admin.PeersInfo{
		Peers: []admin.PeerEntry{{Remote: "tls://down.example:443", Up: false}},
	}
	for _, k := range c.mesh.direct {
		info.Peers = append(info.Peers, admin.PeerEntry{Key: k.String(), Up: true})
	}
	return info, nil
}

func (c *fakeConn) GetLookups(_ context.Context) (admin.LookupsInfo, error) {
	if c.mesh.lookupsBroken {
		return admin.LookupsInfo{}, &admin.ConnectionError{Endpoint: "fake", Op: "read", Err: errBroken}
	}
	if c.mesh.lookupsUnsupported {
		return admin.LookupsInfo{}, &admin.RequestError{Request: admin.RequestLookups, Message: "unknown request"}
	}
	return admin.LookupsInfo{Infos: c.mesh.lookups}, nil
}

func (c *fakeConn) GetPaths(_ context.Context) (admin.PathsInfo, error) {
	info := admin.PathsInfo{}
	for _, l := range c.mesh.lookups {
		info.Paths = append(info.Paths, admin.PathEntry{Address: l.Address, Key: l.Key, Path: l.Path})
	}
	return info, nil
}

func (c *fakeConn) GetNodeInfo(_ context.Context, key string) (admin.NodeInfo, error) {
	c.mesh.mu.Lock()
	defer c.mesh.mu.Unlock()

	node, ok := c.mesh.nodes[model.Key(key)]
	if !ok || node.unreachable || node.noInfo {
		return admin.NodeInfo{}, &admin.RequestError{Request: admin.RequestGetNodeInfo, Message: "timeout"}
	}
	return admin.NodeInfo{
		Name:          node.name,
		BuildName:     "yggdrasil",
		BuildVersion:  "0.5.12",
		BuildArch:     "amd64",
		BuildPlatform: "linux",
	}, nil
}

func (c *fakeConn) remote(name, key string, pick func(*fakeNode) []model.Key) (admin.RemoteKeys, error) {
	c.mesh.mu.Lock()
	defer c.mesh.mu.Unlock()

	k := model.Key(key)
	if name == admin.RequestRemoteGetPeers {
		c.mesh.remoteCalls[k]++
	}
	if k == c.mesh.brokenKey {
		c.closed = true
		return admin.RemoteKeys{}, &admin.ConnectionError{Endpoint: "fake", Op: "read", Err: errBroken}
	}
	node, ok := c.mesh.nodes[k]
	if !ok || node.unreachable {
		return admin.RemoteKeys{}, &admin.RequestError{Request: name, Message: "timeout"}
	}

	keys := make([]string, 0)
	for _, n := range pick(node) {
		keys = append(keys, n.String())
	}
	return admin.RemoteKeys{Keys: keys}, nil
}

func (c *fakeConn) RemoteGetPeers(_ context.Context, key string) (admin.RemoteKeys, error) {
	return c.remote(admin.RequestRemoteGetPeers, key, func(n *fakeNode) []model.Key { return n.peers })
}

func (c *fakeConn) RemoteGetTree(_ context.Context, key string) (admin.RemoteKeys, error) {
	return c.remote(admin.RequestRemoteGetTree, key, func(n *fakeNode) []model.Key { return n.tree })
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}
