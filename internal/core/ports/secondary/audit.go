package secondary

import (
	"context"
	"time"

	"gitlab.com/gridnode.net/internal/domain"
)

// WorkerEventKind classifies lifecycle events in the audit journal.
type WorkerEventKind string

const (
	EventWorkerRegistered WorkerEventKind = "REGISTERED"
	EventTaskAssigned     WorkerEventKind = "TASK_ASSIGNED"
	EventTaskBlocked      WorkerEventKind = "TASK_BLOCKED"
	EventTaskUnblocked    WorkerEventKind = "TASK_UNBLOCKED"
	EventTaskCompleted    WorkerEventKind = "TASK_COMPLETED"
	EventClaimsReleased   WorkerEventKind = "CLAIMS_RELEASED"
	EventWorkerDead       WorkerEventKind = "WORKER_DEAD"
)

// WorkerEvent is one row of the lifecycle journal, kept for post-mortem
// resource-leak analysis.
type WorkerEvent struct {
	ID        int64              `db:"id"`
	WorkerID  domain.WorkerID    `db:"worker_id"`
	TaskID    domain.TaskID      `db:"task_id"`
	Kind      WorkerEventKind    `db:"kind"`
	Resources map[string]float64 `db:"-"`
	Detail    string             `db:"detail"`
	CreatedAt time.Time          `db:"created_at"`
}

// AuditLog persists worker lifecycle events.
type AuditLog interface {
	Record(ctx context.Context, event *WorkerEvent) error
	ListByWorker(ctx context.Context, workerID domain.WorkerID, limit int) ([]*WorkerEvent, error)
}
