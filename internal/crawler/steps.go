package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/meshmap/internal/admin"
	"github.com/nao1215/meshmap/internal/model"
	"github.com/nao1215/meshmap/internal/pipeline"
)

// rootName names the root node when it publishes no nodeinfo.
const rootName = "root"

// admit reports whether key may enter the frontier of gen.
func (e *Engine) admit(gen *generation) func(model.Key) bool {
	self := gen.selfKey()
	return func(key model.Key) bool {
		return key != self && !e.registry.IsKnown(key) && !e.registry.IsInProgress(key)
	}
}

// submitter returns the function fill uses to hand neighbors to the frontier.
func (e *Engine) submitter(gen *generation) func(model.Key) {
	admit := e.admit(gen)
	return func(key model.Key) {
		gen.frontier.submit(key, admit)
	}
}

// seedStep identifies the root and submits its direct peers.
type seedStep struct {
	engine *Engine
}

// Name implements pipeline.Step.
func (s *seedStep) Name() string {
	return StateSeeding.String()
}

// Do implements pipeline.Step.
func (s *seedStep) Do(ctx context.Context, gen *generation) error {
	e := s.engine

	self, err := gen.root.GetSelf(ctx)
	if err != nil {
		return fmt.Errorf("failed to identify root node: %w", err)
	}
	key, err := model.ParseKey(self.Key)
	if err != nil {
		return fmt.Errorf("root node reported key %q: %w", self.Key, err)
	}
	gen.setSelf(self, key)
	gen.logger.Debug("root identified", "key", key.String(), "address", self.Address)

	info, err := gen.root.GetNodeInfo(ctx, key.String())
	var peer model.PeerData
	switch {
	case err == nil:
		peer = peerFromNodeInfo(key, info)
	case admin.IsRecoverable(err):
		gen.logger.Warn("root node info unavailable", "error", err)
		peer = model.NewUnknownPeer(key)
		peer.Name = rootName
		peer.BuildName = orUnknown(self.BuildName)
		peer.BuildVersion = orUnknown(self.BuildVersion)
	default:
		return fmt.Errorf("failed to fetch root node info: %w", err)
	}
	e.registry.PutPeer(e.overrides[key].Apply(peer))

	peers, err := gen.root.GetPeers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list root peers: %w", err)
	}

	var direct []model.Key
	for _, p := range peers.Peers {
		if !p.Up || p.Key == "" {
			continue
		}
		k, err := model.ParseKey(p.Key)
		if err != nil {
			gen.logger.Debug("ignoring malformed peer key", "value", p.Key, "error", err)
			continue
		}
		direct = append(direct, k)
	}
	e.registry.PutAdjacency(key, direct)

	submit := e.submitter(gen)
	for _, k := range direct {
		submit(k)
	}
	gen.logger.Debug("frontier seeded", "peers", len(direct))
	return nil
}

// drainStep runs the workers until the frontier is empty.
type drainStep struct {
	engine *Engine
}

// Name implements pipeline.Step.
func (s *drainStep) Name() string {
	return StateDraining.String()
}

// Do implements pipeline.Step.
func (s *drainStep) Do(ctx context.Context, gen *generation) error {
	e := s.engine

	stop := context.AfterFunc(ctx, gen.frontier.wake)
	defer stop()

	pool := pipeline.NewPool(
		pipeline.WithWorkers(e.workers),
		pipeline.WithPoolLogger(gen.logger),
	)
	gen.alive.Store(int32(pool.Workers()))

	// Workers never return errors: a failing worker retires on its own and
	// the others keep going.
	_ = pool.Run(ctx, func(ctx context.Context, worker int) error { //nolint:errcheck // workers always return nil
		s.work(ctx, gen, worker)
		return nil
	})

	for _, err := range gen.closeErrors() {
		gen.logger.Debug("failed to close worker connection", "error", err)
	}
	return ctx.Err()
}

// work is the loop of one worker.
func (s *drainStep) work(ctx context.Context, gen *generation, worker int) {
	e := s.engine
	logger := gen.logger.With("worker", worker)
	submit := e.submitter(gen)

	d, err := e.dial(ctx)
	if err != nil {
		logger.Error("worker failed to connect", "error", err)
		s.retire(gen, logger)
		return
	}
	defer func() {
		if d != nil {
			if err := d.Close(); err != nil {
				gen.addCloseErr(err)
			}
		}
	}()

	for {
		key, ok := gen.frontier.next(ctx)
		if !ok {
			return
		}
		if !e.registry.MarkInProgress(key) {
			gen.frontier.done()
			continue
		}

		err := e.fill(ctx, logger, d, key, submit)
		if err != nil && ctx.Err() == nil {
			logger.Warn("worker connection lost",
				"key", key.String(),
				"error", err,
			)
			e.storeStub(key)
			if cerr := d.Close(); cerr != nil {
				gen.addCloseErr(cerr)
			}
			d, err = e.dial(ctx)
		}
		e.registry.Release(key)
		gen.frontier.done()

		if err != nil {
			if ctx.Err() == nil {
				logger.Error("worker failed to reconnect, retiring", "error", err)
				s.retire(gen, logger)
			}
			return
		}
	}
}

// retire removes a worker from the pool. When the last worker retires, the
// keys still queued are abandoned and the graph stays partial.
func (s *drainStep) retire(gen *generation, logger *slog.Logger) {
	if gen.alive.Add(-1) > 0 {
		return
	}
	abandoned := gen.frontier.close()
	if len(abandoned) > 0 {
		logger.Error("no workers left, abandoning queued nodes", "abandoned", len(abandoned))
	}
}

// finalizeStep merges the daemon's lookup table into enriched peer data.
type finalizeStep struct {
	engine *Engine
}

// Name implements pipeline.Step.
func (s *finalizeStep) Name() string {
	return StateFinalizing.String()
}

// Do implements pipeline.Step.
func (s *finalizeStep) Do(ctx context.Context, gen *generation) error {
	e := s.engine

	entries, err := lookupEntries(ctx, gen)
	if err != nil {
		return err
	}

	self := gen.selfInfo()
	selfKey := gen.selfKey()
	if !containsKey(entries, selfKey) {
		entries = append(entries, admin.LookupEntry{
			Address: self.Address,
			Key:     self.Key,
			Path:    []uint64{},
		})
	}

	noSubmit := func(model.Key) {}
	for _, entry := range entries {
		key, err := model.ParseKey(entry.Key)
		if err != nil {
			gen.logger.Debug("ignoring malformed lookup key", "value", entry.Key, "error", err)
			continue
		}

		peer, ok := e.registry.Peer(key)
		if !ok && e.registry.MarkInProgress(key) {
			err := e.fill(ctx, gen.logger, gen.root, key, noSubmit)
			e.registry.Release(key)
			if err != nil {
				if err := s.recoverRoot(ctx, gen, key, err); err != nil {
					return err
				}
			}
			peer, ok = e.registry.Peer(key)
		}
		if !ok {
			e.storeStub(key)
			peer, _ = e.registry.Peer(key)
		}

		e.registry.PutEnriched(model.EnrichedPeerData{
			PeerData: peer,
			Address:  entry.Address,
			Path:     model.Path(entry.Path),
		})
	}
	return nil
}

// recoverRoot handles a connection error raised while resolving key on the
// root connection. The key is stored as a stub and the root is redialed;
// only a failed redial or a cancelled context ends the generation.
func (s *finalizeStep) recoverRoot(ctx context.Context, gen *generation, key model.Key, err error) error {
	e := s.engine
	if ctx.Err() != nil || !admin.IsConnectionError(err) {
		return fmt.Errorf("failed to resolve %s: %w", key.Short(), err)
	}

	gen.logger.Warn("root connection lost while resolving node",
		"key", key.String(),
		"error", err,
	)
	e.storeStub(key)
	e.dropRoot(gen.root)

	root, dialErr := e.rootDaemon(ctx)
	if dialErr != nil {
		return fmt.Errorf("failed to resolve %s: %w", key.Short(), dialErr)
	}
	gen.root = root
	return nil
}

// lookupEntries fetches the lookup table, falling back to cached paths on
// daemons that reject the lookups request.
func lookupEntries(ctx context.Context, gen *generation) ([]admin.LookupEntry, error) {
	lookups, err := gen.root.GetLookups(ctx)
	if err == nil {
		return lookups.Infos, nil
	}
	var reqErr *admin.RequestError
	if !errors.As(err, &reqErr) {
		return nil, fmt.Errorf("failed to fetch lookups: %w", err)
	}
	gen.logger.Debug("lookups rejected, falling back to paths", "error", err)

	paths, err := gen.root.GetPaths(ctx)
	if err != nil {
		if admin.IsRecoverable(err) {
			gen.logger.Warn("no coordinate data available", "error", err)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch paths: %w", err)
	}

	entries := make([]admin.LookupEntry, 0, len(paths.Paths))
	for _, p := range paths.Paths {
		entries = append(entries, admin.LookupEntry{
			Address: p.Address,
			Key:     p.Key,
			Path:    p.Path,
		})
	}
	return entries, nil
}

func containsKey(entries []admin.LookupEntry, key model.Key) bool {
	for _, entry := range entries {
		if k, err := model.ParseKey(entry.Key); err == nil && k == key {
			return true
		}
	}
	return false
}
