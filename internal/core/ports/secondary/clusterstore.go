package secondary

import "context"

// NodeState is the per-node resource availability snapshot published to the
// cluster store so the cluster-wide scheduler can reconcile its accounting.
type NodeState struct {
	NodeID        string             `json:"node_id"`
	Host          string             `json:"host"`
	Total         map[string]float64 `json:"total"`
	Available     map[string]float64 `json:"available"`
	BorrowedCPU   float64            `json:"borrowed_cpu"`
	LiveWorkers   int                `json:"live_workers"`
	LastPublished int64              `json:"last_published"`
}

// ClusterStore announces this node to the rest of the cluster.
type ClusterStore interface {
	PublishNodeState(ctx context.Context, state *NodeState) error
	Close() error
}
