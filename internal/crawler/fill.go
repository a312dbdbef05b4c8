package crawler

import (
	"context"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/nao1215/meshmap/internal/admin"
	"github.com/nao1215/meshmap/internal/model"
)

// fill interrogates the node with key through d and stores what it learns:
// the node's adjacency, its peer data, and a submission of every neighbor.
//
// Request and protocol errors are absorbed: the node is stored with empty
// neighbor sets or unknown attributes. Only connection errors (and context
// cancellation) are returned, and then nothing about key has been stored.
func (e *Engine) fill(ctx context.Context, logger *slog.Logger, d Daemon, key model.Key, submit func(model.Key)) error {
	logger = logger.With("key", key.String())

	peers, tree, err := e.neighbors(ctx, logger, d, key)
	if err != nil {
		return err
	}

	info, err := d.GetNodeInfo(ctx, key.String())
	var peer model.PeerData
	switch {
	case err == nil:
		peer = peerFromNodeInfo(key, info)
	case admin.IsRecoverable(err):
		logger.Warn("node info unavailable",
			"request", admin.RequestGetNodeInfo,
			"error", err,
		)
		peer = model.NewUnknownPeer(key)
	default:
		return err
	}

	e.registry.PutAdjacency(key, peers)
	e.registry.PutPeer(e.overrides[key].Apply(peer))

	for _, neighbor := range peers {
		submit(neighbor)
	}
	for _, neighbor := range tree {
		submit(neighbor)
	}
	return nil
}

// storeStub records key with unknown attributes, keeping data stored earlier.
func (e *Engine) storeStub(key model.Key) {
	e.registry.PutPeer(e.overrides[key].Apply(model.NewUnknownPeer(key)))
}

// neighbors asks the node with key for its peer and tree views. If either
// request fails recoverably, both sets are empty.
func (e *Engine) neighbors(ctx context.Context, logger *slog.Logger, d Daemon, key model.Key) ([]model.Key, []model.Key, error) {
	remotePeers, err := d.RemoteGetPeers(ctx, key.String())
	if err != nil {
		return recoverEmpty(logger, admin.RequestRemoteGetPeers, err)
	}
	remoteTree, err := d.RemoteGetTree(ctx, key.String())
	if err != nil {
		return recoverEmpty(logger, admin.RequestRemoteGetTree, err)
	}

	peers := parseKeys(logger, remotePeers.Keys)

	seen := mapset.NewThreadUnsafeSet[model.Key](key)
	var tree []model.Key
	for _, k := range parseKeys(logger, remoteTree.Keys) {
		if seen.Add(k) {
			tree = append(tree, k)
		}
	}
	return peers, tree, nil
}

func recoverEmpty(logger *slog.Logger, request string, err error) ([]model.Key, []model.Key, error) {
	if !admin.IsRecoverable(err) {
		return nil, nil, err
	}
	logger.Warn("node unreachable", "request", request, "error", err)
	return nil, nil, nil
}

// parseKeys validates keys reported by a remote node, dropping malformed ones.
func parseKeys(logger *slog.Logger, raw []string) []model.Key {
	keys := make([]model.Key, 0, len(raw))
	for _, s := range raw {
		key, err := model.ParseKey(s)
		if err != nil {
			logger.Debug("ignoring malformed key", "value", s, "error", err)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// peerFromNodeInfo converts nodeinfo to PeerData, marking missing fields
// as unknown.
func peerFromNodeInfo(key model.Key, info admin.NodeInfo) model.PeerData {
	return model.PeerData{
		Key:           key,
		Name:          orUnknown(info.Name),
		BuildName:     orUnknown(info.BuildName),
		BuildVersion:  orUnknown(info.BuildVersion),
		BuildArch:     orUnknown(info.BuildArch),
		BuildPlatform: orUnknown(info.BuildPlatform),
		Cluster:       info.Cluster,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return model.Unknown
	}
	return s
}
