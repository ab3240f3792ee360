package secondary

import (
	"context"

	"gitlab.com/gridnode.net/internal/domain"
)

// WorkerView is the externalized snapshot of a WorkerHandle, mirrored to the
// state store for dashboards and cross-process reconciliation. It carries
// totals only; instance identity never leaves the node manager.
type WorkerView struct {
	ID             domain.WorkerID    `json:"id"`
	Pid            int                `json:"pid"`
	Language       domain.Language    `json:"language"`
	Port           int                `json:"port"`
	Dead           bool               `json:"dead"`
	Blocked        bool               `json:"blocked"`
	AssignedTaskID domain.TaskID      `json:"assigned_task_id,omitempty"`
	AssignedJobID  domain.JobID       `json:"assigned_job_id,omitempty"`
	ActorID        domain.ActorID     `json:"actor_id,omitempty"`
	DetachedActor  bool               `json:"detached_actor"`
	BlockedTasks   int                `json:"blocked_tasks"`
	TaskResources  map[string]float64 `json:"task_resources"`
	LifetimeRes    map[string]float64 `json:"lifetime_resources"`
	BorrowedCPU    float64            `json:"borrowed_cpu"`
	OwnerAddress   domain.Address     `json:"owner_address"`
}

// WorkerStateStore mirrors live worker state outside the process.
type WorkerStateStore interface {
	SaveWorkerState(ctx context.Context, view *WorkerView) error
	GetWorkerState(ctx context.Context, workerID domain.WorkerID) (*WorkerView, error)
	GetAllWorkerStates(ctx context.Context) ([]*WorkerView, error)
	RemoveWorkerState(ctx context.Context, workerID domain.WorkerID) error
}
