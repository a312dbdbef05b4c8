package crawler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/meshmap/internal/admin"
	"github.com/nao1215/meshmap/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(mesh *fakeMesh, opts ...Option) *Engine {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(mesh.dial, opts...)
}

// roundTripMesh builds the four node network R-{A,B}, A-C.
func roundTripMesh() (*fakeMesh, [4]model.Key) {
	r, a, b, c := testKey(1), testKey(2), testKey(3), testKey(4)
	mesh := newFakeMesh(r)
	mesh.direct = []model.Key{a, b}
	mesh.add(a, &fakeNode{name: "a.example", peers: []model.Key{r, c}, tree: []model.Key{r, a, c}})
	mesh.add(b, &fakeNode{name: "b.example", peers: []model.Key{r}, tree: []model.Key{r, b}})
	mesh.add(c, &fakeNode{name: "c.example", peers: []model.Key{a}, tree: []model.Key{a, c}})
	mesh.lookups = []admin.LookupEntry{
		{Address: "200:aaaa::1", Key: r.String(), Path: []uint64{}},
		{Address: "200:bbbb::1", Key: a.String(), Path: []uint64{0}},
		{Address: "200:cccc::1", Key: b.String(), Path: []uint64{1}},
		{Address: "200:dddd::1", Key: c.String(), Path: []uint64{0, 0}},
	}
	return mesh, [4]model.Key{r, a, b, c}
}

func TestEngine_RoundTrip(t *testing.T) {
	t.Parallel()

	mesh, keys := roundTripMesh()
	r, a, b, c := keys[0], keys[1], keys[2], keys[3]
	e := newTestEngine(mesh)
	defer e.Close()

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	stats := e.registry.Stats()
	if stats.Peers != 4 || stats.Enriched != 4 || stats.InProgress != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
	for _, k := range []model.Key{a, b, c} {
		if got := mesh.remoteCount(k); got != 1 {
			t.Errorf("node %s interrogated %d times, expected 1", k.Short(), got)
		}
	}
	if got := mesh.remoteCount(r); got != 0 {
		t.Errorf("root interrogated remotely %d times", got)
	}

	g, err := e.Export(model.ModePath)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	want := map[[2]model.NodeID]bool{
		{model.KeyID(a), model.KeyID(r)}: true,
		{model.KeyID(b), model.KeyID(r)}: true,
		{model.KeyID(c), model.KeyID(a)}: true,
	}
	if len(g.Edges) != len(want) {
		t.Fatalf("expected %d edges, got %+v", len(want), g.Edges)
	}
	for _, edge := range g.Edges {
		if !want[[2]model.NodeID{edge.From, edge.To}] {
			t.Errorf("unexpected edge %s->%s", edge.From, edge.To)
		}
	}
	if len(g.Nodes) != 4 {
		t.Errorf("expected 4 nodes, got %d", len(g.Nodes))
	}

	peers, err := e.Export(model.ModePeers)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if got := peers.BidirectionalCount(); got != 3 || len(peers.Edges) != 3 {
		t.Errorf("expected 3 bidirectional edges, got %+v", peers.Edges)
	}

	id, root := e.Generation()
	if id == "" || root != r {
		t.Errorf("Generation() = %q, %q", id, root)
	}
	if e.State() != StateIdle {
		t.Errorf("State() = %s, expected idle", e.State())
	}
}

func TestEngine_FillFailureIsIsolated(t *testing.T) {
	t.Parallel()

	mesh, keys := roundTripMesh()
	b := keys[2]
	mesh.nodes[b].unreachable = true

	e := newTestEngine(mesh)
	defer e.Close()

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	peer, ok := e.registry.Peer(b)
	if !ok {
		t.Fatal("unreachable node missing from registry")
	}
	if !peer.IsStub() {
		t.Errorf("expected stub peer data, got %+v", peer)
	}
	if got := e.registry.Stats().Peers; got != 4 {
		t.Errorf("expected 4 peers, got %d", got)
	}
}

func TestEngine_NodeInfoFailureKeepsAdjacency(t *testing.T) {
	t.Parallel()

	mesh, keys := roundTripMesh()
	a, c := keys[1], keys[3]
	mesh.nodes[a].noInfo = true

	e := newTestEngine(mesh)
	defer e.Close()

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	peer, _ := e.registry.Peer(a)
	if !peer.IsStub() {
		t.Errorf("expected stub for node without nodeinfo, got %+v", peer)
	}
	// C is only reachable through A.
	if !e.registry.IsKnown(c) {
		t.Error("expected neighbors of a node without nodeinfo to be crawled")
	}
}

func TestEngine_SingleFlight(t *testing.T) {
	t.Parallel()

	mesh, _ := roundTripMesh()
	mesh.entered = make(chan struct{})
	mesh.release = make(chan struct{})

	e := newTestEngine(mesh)
	defer e.Close()

	done := make(chan error, 1)
	go func() {
		done <- e.Refresh(context.Background())
	}()

	select {
	case <-mesh.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first refresh never started")
	}

	before := e.registry.Snapshot()
	if err := e.Refresh(context.Background()); !errors.Is(err, ErrCrawlInProgress) {
		t.Errorf("second Refresh() error = %v, expected ErrCrawlInProgress", err)
	}
	if after := e.registry.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Errorf("rejected Refresh() changed the registry: before %+v, after %+v", before, after)
	}
	if !strings.HasPrefix(e.CrawlingStatus(), "state=seeding ") {
		t.Errorf("CrawlingStatus() = %q", e.CrawlingStatus())
	}

	close(mesh.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first Refresh() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first refresh never finished")
	}

	if got := e.registry.Stats().Peers; got != 4 {
		t.Errorf("expected 4 peers after the running generation, got %d", got)
	}
}

func TestEngine_Cycles(t *testing.T) {
	t.Parallel()

	const size = 30
	root := testKey(1000)
	mesh := newFakeMesh(root)

	ring := make([]model.Key, size)
	for i := range ring {
		ring[i] = testKey(i + 1)
	}
	for i, k := range ring {
		prev := ring[(i+size-1)%size]
		next := ring[(i+1)%size]
		across := ring[(i+size/2)%size]
		mesh.add(k, &fakeNode{
			name:  "ring.example",
			peers: []model.Key{prev, next, across, root},
			tree:  []model.Key{k, prev, prev, next, root},
		})
	}
	mesh.direct = []model.Key{ring[0], ring[size/3]}

	e := newTestEngine(mesh, WithWorkers(6))
	defer e.Close()

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if got := e.registry.Stats().Peers; got != size+1 {
		t.Errorf("expected %d peers, got %d", size+1, got)
	}
	for _, k := range ring {
		if got := mesh.remoteCount(k); got != 1 {
			t.Errorf("node %s interrogated %d times, expected 1", k.Short(), got)
		}
	}
}

func TestEngine_WorkerConnectionLoss(t *testing.T) {
	t.Parallel()

	mesh, keys := roundTripMesh()
	a, b := keys[1], keys[2]
	mesh.brokenKey = a
	// One dial for the root, one for the only worker; the redial fails.
	mesh.maxDials = 2

	e := newTestEngine(mesh, WithWorkers(1))
	defer e.Close()

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	peer, ok := e.registry.Peer(a)
	if !ok || !peer.IsStub() {
		t.Errorf("expected stub for node on broken connection, got %+v", peer)
	}

	// B was abandoned by the retired worker and resolved while finalizing.
	peer, ok = e.registry.Peer(b)
	if !ok || peer.Name != "b.example" {
		t.Errorf("expected B to be resolved through the root connection, got %+v", peer)
	}
}

func TestEngine_FinalizeFailureIsIsolated(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(mesh *fakeMesh, d model.Key)
	}{
		{
			name: "relay rejects the request",
			setup: func(mesh *fakeMesh, d model.Key) {
				mesh.add(d, &fakeNode{unreachable: true})
			},
		},
		{
			name: "relay connection lost",
			setup: func(mesh *fakeMesh, d model.Key) {
				mesh.brokenKey = d
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mesh, keys := roundTripMesh()
			// D is known only from the lookup table.
			d := testKey(5)
			mesh.lookups = append(mesh.lookups[:3:3],
				admin.LookupEntry{Address: "200:eeee::1", Key: d.String(), Path: []uint64{1, 0}},
				mesh.lookups[3],
			)
			tt.setup(mesh, d)

			e := newTestEngine(mesh)
			defer e.Close()

			if err := e.Refresh(context.Background()); err != nil {
				t.Fatalf("Refresh() error = %v", err)
			}

			snap := e.registry.Snapshot()
			enriched, ok := snap.Enriched[d]
			if !ok {
				t.Fatal("lookup-only node missing from enriched data")
			}
			if !enriched.IsStub() {
				t.Errorf("expected stub for lookup-only node, got %+v", enriched)
			}
			if enriched.Address != "200:eeee::1" {
				t.Errorf("Address = %q", enriched.Address)
			}
			if len(snap.Enriched) != 5 {
				t.Errorf("expected 5 enriched nodes, got %d", len(snap.Enriched))
			}
			// C follows D in the lookup table.
			if got := snap.Enriched[keys[3]].Name; got != "c.example" {
				t.Errorf("expected C to keep its node info, got name %q", got)
			}
		})
	}
}

func TestEngine_FinalizeRedialFailure(t *testing.T) {
	t.Parallel()

	mesh, _ := roundTripMesh()
	d := testKey(5)
	mesh.lookups = append(mesh.lookups, admin.LookupEntry{Address: "200:eeee::1", Key: d.String(), Path: []uint64{1, 0}})
	mesh.brokenKey = d
	// One dial for the root, one for the only worker; the root redial fails.
	mesh.maxDials = 2

	e := newTestEngine(mesh, WithWorkers(1))
	defer e.Close()

	err := e.Refresh(context.Background())
	if !admin.IsConnectionError(err) {
		t.Fatalf("Refresh() error = %v, expected a connection error", err)
	}
	if e.State() != StateIdle {
		t.Errorf("State() = %s, expected idle", e.State())
	}
}

func TestEngine_RootConnectionIsFatal(t *testing.T) {
	t.Parallel()

	mesh, _ := roundTripMesh()
	mesh.lookupsBroken = true

	e := newTestEngine(mesh)
	defer e.Close()

	err := e.Refresh(context.Background())
	if !admin.IsConnectionError(err) {
		t.Fatalf("Refresh() error = %v, expected a connection error", err)
	}

	// The broken root connection is redialed by the next generation.
	mesh.lookupsBroken = false
	before := mesh.dials
	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if mesh.dials <= before+e.workers {
		t.Errorf("expected the root to be redialed, dials went from %d to %d", before, mesh.dials)
	}
}

func TestEngine_LookupsFallback(t *testing.T) {
	t.Parallel()

	mesh, _ := roundTripMesh()
	mesh.lookupsUnsupported = true

	e := newTestEngine(mesh)
	defer e.Close()

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := e.registry.Stats().Enriched; got != 4 {
		t.Errorf("expected 4 enriched peers from paths, got %d", got)
	}
}

func TestEngine_RootWithoutNodeInfo(t *testing.T) {
	t.Parallel()

	mesh, keys := roundTripMesh()
	r := keys[0]
	mesh.nodes[r].noInfo = true
	mesh.lookups = nil

	e := newTestEngine(mesh)
	defer e.Close()

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	peer, _ := e.registry.Peer(r)
	if peer.Name != rootName || peer.BuildName != "yggdrasil" || peer.BuildPlatform != model.Unknown {
		t.Errorf("unexpected root fallback %+v", peer)
	}

	// Without lookups the root is still placed at the top of the tree.
	snap := e.registry.Snapshot()
	enriched, ok := snap.Enriched[r]
	if !ok || !enriched.Path.IsRoot() || enriched.Address != mesh.address {
		t.Errorf("root enriched entry = %+v, %v", enriched, ok)
	}
}

func TestEngine_Overrides(t *testing.T) {
	t.Parallel()

	mesh, keys := roundTripMesh()
	a, b := keys[1], keys[2]
	mesh.nodes[b].unreachable = true

	e := newTestEngine(mesh, WithOverrides(map[model.Key]model.NodeOverride{
		a: {Name: "gateway"},
		b: {Cluster: "backbone"},
	}))
	defer e.Close()

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if peer, _ := e.registry.Peer(a); peer.Name != "gateway" {
		t.Errorf("Name = %q, expected override", peer.Name)
	}
	if peer, _ := e.registry.Peer(b); peer.Cluster != "backbone" {
		t.Errorf("Cluster = %q, expected override on stub", peer.Cluster)
	}
}

func TestEngine_CrawlingStatus(t *testing.T) {
	t.Parallel()

	mesh, _ := roundTripMesh()
	e := newTestEngine(mesh)
	defer e.Close()

	want := "state=idle generation=- peers=0 enriched=0 links=0 queued=0 in_progress=0"
	if got := e.CrawlingStatus(); got != want {
		t.Errorf("CrawlingStatus() = %q, expected %q", got, want)
	}

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	id, _ := e.Generation()
	// R:2, A:2, B:1, C:1 reported neighbors.
	want = "state=idle generation=" + id + " peers=4 enriched=4 links=6 queued=0 in_progress=0"
	if got := e.CrawlingStatus(); got != want {
		t.Errorf("CrawlingStatus() = %q, expected %q", got, want)
	}
}

func TestEngine_Closed(t *testing.T) {
	t.Parallel()

	mesh, _ := roundTripMesh()
	e := newTestEngine(mesh)

	if err := e.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := e.Refresh(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Refresh() error = %v, expected ErrClosed", err)
	}
}

func TestEngine_Cancelled(t *testing.T) {
	t.Parallel()

	mesh, _ := roundTripMesh()
	e := newTestEngine(mesh)
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := e.Refresh(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Refresh() error = %v, expected context.Canceled", err)
	}
}
