package secondary

import (
	"context"
	"time"

	"gitlab.com/gridnode.net/internal/domain"
)

// SignalKind classifies signals emitted by or on behalf of a worker.
type SignalKind int

const (
	SignalError SignalKind = 1
	SignalDone  SignalKind = 2
	SignalUser  SignalKind = 100
)

// Signal is one typed notification from a worker source. Each signal gets a
// per-source sequence number when published; receivers poll for everything
// after the last sequence they saw.
type Signal struct {
	Source    domain.WorkerID        `json:"source"`
	Seq       int64                  `json:"seq"`
	Kind      SignalKind             `json:"kind"`
	TaskID    domain.TaskID          `json:"task_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// SignalRelay fans worker signals out to interested parties off the node.
type SignalRelay interface {
	// PublishSignal assigns the signal its sequence number and makes it
	// visible to receivers.
	PublishSignal(ctx context.Context, signal *Signal) error

	// ListSignals returns the signals a source emitted after the given
	// sequence number, in order.
	ListSignals(ctx context.Context, source domain.WorkerID, afterSeq int64) ([]*Signal, error)
}
