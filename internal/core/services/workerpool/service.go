package workerpool

import (
	"context"
	"net"

	"gitlab.com/gridnode.net/internal/core/ports/secondary"
	"gitlab.com/gridnode.net/internal/domain"
)

// RegistrationInfo is what a worker process announces when it connects.
type RegistrationInfo struct {
	WorkerID domain.WorkerID
	Language domain.Language
	Port     int
	Pid      int
}

// IWorkerPoolService owns every live WorkerHandle on this node. All handle
// mutation funnels through it, preserving the single-writer discipline the
// handles require.
type IWorkerPoolService interface {
	// RegisterWorker creates a handle for a connecting worker process.
	RegisterWorker(ctx context.Context, info RegistrationInfo, conn net.Conn) (*domain.WorkerHandle, error)

	// GetWorker looks up a live handle by id.
	GetWorker(workerID domain.WorkerID) (*domain.WorkerHandle, bool)

	// RegisterActor promotes a worker to an actor and installs its lifetime
	// resource claims.
	RegisterActor(ctx context.Context, workerID domain.WorkerID, actorID domain.ActorID, detached bool, demands map[string]float64) error

	// AssignTask grants task claims from the node pool, installs them on the
	// worker and dispatches the task.
	AssignTask(ctx context.Context, workerID domain.WorkerID, task *domain.Task) error

	// BlockTask records a data-dependency wait and releases the worker's
	// task CPU share back to the node pool.
	BlockTask(ctx context.Context, workerID domain.WorkerID, taskID domain.TaskID) error

	// UnblockTask clears a wait and gives the worker its CPU share back, or
	// records a borrow if the node handed it to someone else meanwhile.
	UnblockTask(ctx context.Context, workerID domain.WorkerID, taskID domain.TaskID) error

	// CompleteTask resets the worker's task scope and returns its claims.
	CompleteTask(ctx context.Context, workerID domain.WorkerID, taskID domain.TaskID) error

	// UpdateActiveObjects replaces the worker's referenced-object cache.
	UpdateActiveObjects(ctx context.Context, workerID domain.WorkerID, objectIDs []domain.ObjectID) error

	// NotifyArgWaitComplete tells an actor worker that the arguments it
	// queued a call behind are now available.
	NotifyArgWaitComplete(ctx context.Context, workerID domain.WorkerID, tag int64) error

	// EmitSignal publishes a user signal on behalf of a worker.
	EmitSignal(ctx context.Context, workerID domain.WorkerID, payload map[string]interface{}) error

	// GrantLease records a new owner for the worker.
	GrantLease(ctx context.Context, workerID domain.WorkerID, host string, port int) error

	// DisconnectWorker marks the worker dead and runs the teardown sequence:
	// ledgers cleared first, claims returned after.
	DisconnectWorker(ctx context.Context, workerID domain.WorkerID) error

	// ListWorkers returns snapshots of every handle, dead ones included.
	ListWorkers(ctx context.Context) []*secondary.WorkerView

	// GetWorkerView returns the snapshot of one handle.
	GetWorkerView(ctx context.Context, workerID domain.WorkerID) (*secondary.WorkerView, error)

	// NodeState summarizes the node's resource availability.
	NodeState(ctx context.Context) *secondary.NodeState
}
