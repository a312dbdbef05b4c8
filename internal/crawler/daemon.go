package crawler

import (
	"context"

	"github.com/nao1215/meshmap/internal/admin"
)

// Daemon is the subset of the admin protocol the crawl needs.
// A Daemon is used by one goroutine at a time.
type Daemon interface {
	GetSelf(ctx context.Context) (admin.SelfInfo, error)
	GetPeers(ctx context.Context) (admin.PeersInfo, error)
	GetLookups(ctx context.Context) (admin.LookupsInfo, error)
	GetPaths(ctx context.Context) (admin.PathsInfo, error)
	GetNodeInfo(ctx context.Context, key string) (admin.NodeInfo, error)
	RemoteGetPeers(ctx context.Context, key string) (admin.RemoteKeys, error)
	RemoteGetTree(ctx context.Context, key string) (admin.RemoteKeys, error)
	Close() error
}

var _ Daemon = (*admin.Client)(nil)

// Dialer opens a new, exclusively owned Daemon connection.
type Dialer func(ctx context.Context) (Daemon, error)

// AdminDialer returns a Dialer connecting to endpoint with the admin client.
func AdminDialer(endpoint admin.Endpoint, opts ...admin.Option) Dialer {
	return func(ctx context.Context) (Daemon, error) {
		client, err := admin.Dial(ctx, endpoint, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
