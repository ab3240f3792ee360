// package etcd publishes this node's resource availability to the cluster
// coordination store.
package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"gitlab.com/gridnode.net/internal/core/ports/primary"
	"gitlab.com/gridnode.net/internal/core/ports/secondary"
)

const nodeKeyPrefix = "/gridnode/nodes/"

var _ secondary.ClusterStore = &ClusterStore{}

// ClusterStore keeps one key per node under a lease. When the node manager
// dies the lease expires and the key disappears, so the cluster scheduler
// never reads availability from a node that is gone.
type ClusterStore struct {
	client  *clientv3.Client
	leaseID clientv3.LeaseID
	cancel  context.CancelFunc
	logger  primary.Logger
}

// NewClusterStore connects to etcd and grants the node lease. leaseTTL is in
// seconds and bounds how long a dead node stays visible.
func NewClusterStore(endpoints []string, leaseTTL int64, logger primary.Logger) (*ClusterStore, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	grantCtx, grantCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer grantCancel()

	grant, err := cli.Grant(grantCtx, leaseTTL)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("failed to grant node lease: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := cli.KeepAlive(ctx, grant.ID)
	if err != nil {
		cancel()
		cli.Close()
		return nil, fmt.Errorf("failed to keep node lease alive: %w", err)
	}

	store := &ClusterStore{
		client:  cli,
		leaseID: grant.ID,
		cancel:  cancel,
		logger:  logger,
	}

	go func() {
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					store.logger.Warn("Node lease keepalive channel closed")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return store, nil
}

// PublishNodeState writes the availability snapshot under the node lease
func (s *ClusterStore) PublishNodeState(ctx context.Context, state *secondary.NodeState) error {
	data, err := json.Marshal(state)
	if err != nil {
		s.logger.Error("Failed to marshal node state", "error", err)
		return fmt.Errorf("failed to marshal node state: %w", err)
	}

	key := nodeKeyPrefix + state.NodeID
	if _, err := s.client.Put(ctx, key, string(data), clientv3.WithLease(s.leaseID)); err != nil {
		s.logger.Error("Failed to publish node state", "error", err)
		return fmt.Errorf("failed to publish node state: %w", err)
	}

	return nil
}

// Close revokes the lease so the node key disappears immediately instead of
// waiting out the TTL.
func (s *ClusterStore) Close() error {
	s.cancel()

	revokeCtx, revokeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer revokeCancel()

	if _, err := s.client.Revoke(revokeCtx, s.leaseID); err != nil {
		s.logger.Warn("Failed to revoke node lease", "error", err)
	}

	return s.client.Close()
}
