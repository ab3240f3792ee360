package domain

import (
	"context"
	"fmt"
	"net"

	"gitlab.com/gridnode.net/internal/static/errs"
)

// WorkerHandle is the node manager's record of one live worker process: its
// identity, its connection, the task/actor assignment state, and the
// authoritative ledger of every resource instance the worker currently owns.
//
// A handle is not internally synchronized. It is owned and mutated by the
// node manager's control path only; RPC completion callbacks must marshal
// back onto that path before touching handle state.
type WorkerHandle struct {
	id       WorkerID
	proc     Process
	procSet  bool
	language Language
	// Port the worker process listens on for task dispatch. <= 0 means the
	// worker does not listen.
	port int
	// Inbound byte-stream connection from the worker process, exclusively
	// owned by this handle.
	conn net.Conn

	dead    bool
	blocked bool

	assignedTaskID TaskID
	assignedJobID  JobID
	actorID        ActorID
	detachedActor  bool
	assignedTask   *Task
	blockedTaskIDs map[TaskID]struct{}
	activeObjects  map[ObjectID]struct{}
	ownerAddress   Address

	// Claims held for the worker's entire life. Actors only; reset in full
	// on death, never partially.
	lifetimeClaims    *ResourceClaimSet
	lifetimeClaimsSet bool
	// Claims held for the duration of the currently assigned task.
	taskClaims *ResourceClaimSet

	// Instance-granular mirrors of the two claim scopes.
	allocatedInstances         *ResourceInstanceLedger
	lifetimeAllocatedInstances *ResourceInstanceLedger

	// CPU the worker uses beyond what it formally owns. Populated when the
	// node is oversubscribed and the worker is unblocked without getting its
	// original CPU claim back; settled by the cluster resource scheduler
	// through the oversubscription pool, never returned as an owned claim.
	borrowedCPUInstances []float64

	// Shared call-dispatch factory, owned by the node manager. The bound
	// dispatcher is built lazily from the worker's advertised port.
	dispatchers DispatcherFactory
	dispatcher  TaskDispatcher
}

// NewWorkerHandle creates a handle for a registering worker. The backing
// process may not exist yet; SetProcess must then be called exactly once
// after the spawn.
func NewWorkerHandle(id WorkerID, language Language, port int, conn net.Conn, dispatchers DispatcherFactory) *WorkerHandle {
	return &WorkerHandle{
		id:                         id,
		language:                   language,
		port:                       port,
		conn:                       conn,
		blockedTaskIDs:             make(map[TaskID]struct{}),
		activeObjects:              make(map[ObjectID]struct{}),
		lifetimeClaims:             NewResourceClaimSet(),
		taskClaims:                 NewResourceClaimSet(),
		allocatedInstances:         NewResourceInstanceLedger(),
		lifetimeAllocatedInstances: NewResourceInstanceLedger(),
		dispatchers:                dispatchers,
	}
}

// MarkDead flags the worker as terminated. Idempotent and terminal. It does
// not release resources; the node manager must clear the ledgers and return
// the claims as part of its teardown sequence.
func (w *WorkerHandle) MarkDead() {
	w.dead = true
}

func (w *WorkerHandle) IsDead() bool {
	return w.dead
}

// MarkBlocked records that the worker process is logically blocked on a data
// dependency. No transition guard: callable on a dead worker.
func (w *WorkerHandle) MarkBlocked() {
	w.blocked = true
}

func (w *WorkerHandle) MarkUnblocked() {
	w.blocked = false
}

func (w *WorkerHandle) IsBlocked() bool {
	return w.blocked
}

func (w *WorkerHandle) ID() WorkerID {
	return w.id
}

// SetProcess installs the backing OS process handle. One-shot: a second call
// is rejected so a handle never silently re-binds to a different process.
func (w *WorkerHandle) SetProcess(proc Process) error {
	if w.procSet {
		return errs.ErrProcessAlreadySet
	}
	w.proc = proc
	w.procSet = true
	return nil
}

func (w *WorkerHandle) Process() Process {
	return w.proc
}

func (w *WorkerHandle) Language() Language {
	return w.language
}

func (w *WorkerHandle) Port() int {
	return w.port
}

func (w *WorkerHandle) Connection() net.Conn {
	return w.conn
}

// AssignTaskID sets the currently assigned task, overwriting any previous
// value. Callers must complete or clear the prior task first.
func (w *WorkerHandle) AssignTaskID(taskID TaskID) {
	w.assignedTaskID = taskID
}

func (w *WorkerHandle) AssignedTaskID() TaskID {
	return w.assignedTaskID
}

// AddBlockedTaskID records a task the worker is blocked on. Returns false if
// the id was already present. Multiple ids may coexist: a worker can issue
// nested waits within one lifetime.
func (w *WorkerHandle) AddBlockedTaskID(taskID TaskID) bool {
	if _, ok := w.blockedTaskIDs[taskID]; ok {
		return false
	}
	w.blockedTaskIDs[taskID] = struct{}{}
	return true
}

// RemoveBlockedTaskID returns false if the id was absent, without mutating
// the set.
func (w *WorkerHandle) RemoveBlockedTaskID(taskID TaskID) bool {
	if _, ok := w.blockedTaskIDs[taskID]; !ok {
		return false
	}
	delete(w.blockedTaskIDs, taskID)
	return true
}

// BlockedTaskIDs returns a copy of the blocked-task set.
func (w *WorkerHandle) BlockedTaskIDs() map[TaskID]struct{} {
	ids := make(map[TaskID]struct{}, len(w.blockedTaskIDs))
	for id := range w.blockedTaskIDs {
		ids[id] = struct{}{}
	}
	return ids
}

func (w *WorkerHandle) AssignJobID(jobID JobID) {
	w.assignedJobID = jobID
}

func (w *WorkerHandle) AssignedJobID() JobID {
	return w.assignedJobID
}

// AssignActorID promotes the worker to an actor. One-shot: a second
// assignment is rejected; the id only returns to nil through death.
func (w *WorkerHandle) AssignActorID(actorID ActorID) error {
	if !w.actorID.IsNil() {
		return errs.ErrActorAlreadySet
	}
	w.actorID = actorID
	return nil
}

func (w *WorkerHandle) ActorID() ActorID {
	return w.actorID
}

// MarkDetachedActor flags the actor as detached from its creator's lifetime.
// One-shot.
func (w *WorkerHandle) MarkDetachedActor() error {
	if w.detachedActor {
		return errs.ErrDetachedAlreadySet
	}
	w.detachedActor = true
	return nil
}

func (w *WorkerHandle) IsDetachedActor() bool {
	return w.detachedActor
}

func (w *WorkerHandle) SetOwnerAddress(address Address) {
	w.ownerAddress = address
}

func (w *WorkerHandle) OwnerAddress() Address {
	return w.ownerAddress
}

// WorkerLeaseGranted records that a new owner holds the lease on this
// worker, overwriting the previous owner address. Lease-conflict prevention
// is the node manager's job; no validation happens here.
func (w *WorkerHandle) WorkerLeaseGranted(host string, port int) {
	w.ownerAddress = Address{Host: host, Port: port}
}

// SetLifetimeResourceClaims installs the claim set held for the worker's
// entire life. Actors only. One-shot: the set can only be installed again
// after ResetLifetimeResourceClaims on death.
func (w *WorkerHandle) SetLifetimeResourceClaims(claims *ResourceClaimSet) error {
	if w.lifetimeClaimsSet {
		return errs.ErrLifetimeClaimsSet
	}
	w.lifetimeClaims = claims
	w.lifetimeClaimsSet = true
	return nil
}

func (w *WorkerHandle) LifetimeResourceClaims() *ResourceClaimSet {
	return w.lifetimeClaims
}

// ResetLifetimeResourceClaims clears the lifetime claim set in full.
func (w *WorkerHandle) ResetLifetimeResourceClaims() {
	w.lifetimeClaims = NewResourceClaimSet()
	w.lifetimeClaimsSet = false
}

// SetTaskResourceClaims installs the claim set for the currently assigned
// task, replacing any previous set.
func (w *WorkerHandle) SetTaskResourceClaims(claims *ResourceClaimSet) {
	w.taskClaims = claims
}

func (w *WorkerHandle) TaskResourceClaims() *ResourceClaimSet {
	return w.taskClaims
}

func (w *WorkerHandle) ResetTaskResourceClaims() {
	w.taskClaims = NewResourceClaimSet()
}

// ReleaseTaskCPUResources extracts exactly the CPU portion of the task-scope
// claims, leaving GPU, memory and custom resources intact. Used when a
// blocked worker's CPU share is reclaimed for reuse under oversubscription.
// Returns an empty set if no CPU was held.
func (w *WorkerHandle) ReleaseTaskCPUResources() *ResourceClaimSet {
	return w.taskClaims.SplitResource(ResourceCPU)
}

// AcquireTaskCPUResources re-installs a CPU claim set previously returned by
// ReleaseTaskCPUResources. The two calls must be paired: re-acquiring a
// different instance set than was released is a caller error.
func (w *WorkerHandle) AcquireTaskCPUResources(cpuClaims *ResourceClaimSet) {
	w.taskClaims.Merge(cpuClaims)
}

func (w *WorkerHandle) SetAllocatedInstances(ledger *ResourceInstanceLedger) {
	w.allocatedInstances = ledger
}

func (w *WorkerHandle) AllocatedInstances() *ResourceInstanceLedger {
	return w.allocatedInstances
}

// ClearAllocatedInstances resets the task-scope ledger to the zero ledger.
func (w *WorkerHandle) ClearAllocatedInstances() {
	w.allocatedInstances = NewResourceInstanceLedger()
}

func (w *WorkerHandle) SetLifetimeAllocatedInstances(ledger *ResourceInstanceLedger) {
	w.lifetimeAllocatedInstances = ledger
}

func (w *WorkerHandle) LifetimeAllocatedInstances() *ResourceInstanceLedger {
	return w.lifetimeAllocatedInstances
}

func (w *WorkerHandle) ClearLifetimeAllocatedInstances() {
	w.lifetimeAllocatedInstances = NewResourceInstanceLedger()
}

func (w *WorkerHandle) SetBorrowedCPUInstances(cpuInstances []float64) {
	vector := make([]float64, len(cpuInstances))
	copy(vector, cpuInstances)
	w.borrowedCPUInstances = vector
}

func (w *WorkerHandle) BorrowedCPUInstances() []float64 {
	return w.borrowedCPUInstances
}

func (w *WorkerHandle) ClearBorrowedCPUInstances() {
	w.borrowedCPUInstances = nil
}

// SetActiveObjectIDs replaces the cached set of data objects the worker
// currently references.
func (w *WorkerHandle) SetActiveObjectIDs(objectIDs map[ObjectID]struct{}) {
	w.activeObjects = objectIDs
}

func (w *WorkerHandle) ActiveObjectIDs() map[ObjectID]struct{} {
	return w.activeObjects
}

func (w *WorkerHandle) SetAssignedTask(task *Task) {
	w.assignedTask = task
}

func (w *WorkerHandle) AssignedTask() *Task {
	return w.assignedTask
}

// RPCClient returns the lazily bound dispatcher for this worker. The binding
// is constructed once from the worker's advertised port; workers that do not
// listen have no binding. Dial failures surface on the first dispatch, not
// here.
func (w *WorkerHandle) RPCClient() (TaskDispatcher, error) {
	if w.dispatcher != nil {
		return w.dispatcher, nil
	}
	if w.port <= 0 {
		return nil, errs.ErrNoRPCBinding
	}
	host := ""
	if w.conn != nil {
		if addr, ok := w.conn.RemoteAddr().(*net.TCPAddr); ok {
			host = addr.IP.String()
		}
	}
	w.dispatcher = w.dispatchers.Dispatcher(host, w.port)
	return w.dispatcher, nil
}

// AssignTask records the task as assigned, installs its resource claims, and
// forwards it to the worker process. Resource feasibility is the scheduler's
// responsibility and is not re-checked here. A dispatch failure leaves the
// assignment state installed and is recoverable by the node manager through
// reassignment or termination.
//
// Assigning to a dead worker is rejected explicitly; this is the one
// defensive guard on the dead flag.
func (w *WorkerHandle) AssignTask(ctx context.Context, task *Task, claims *ResourceClaimSet) error {
	if w.dead {
		return errs.ErrWorkerDead
	}
	w.assignedTaskID = task.ID
	w.assignedJobID = task.JobID
	w.assignedTask = task
	w.SetTaskResourceClaims(claims)

	client, err := w.RPCClient()
	if err != nil {
		return err
	}
	if err := client.PushTask(ctx, task); err != nil {
		return fmt.Errorf("failed to dispatch task %s: %w", task.ID, err)
	}
	return nil
}

// DirectActorCallArgWaitComplete forwards an argument-dependency resolution
// signal into the worker's RPC request ordering. No local state changes.
func (w *WorkerHandle) DirectActorCallArgWaitComplete(ctx context.Context, tag int64) error {
	client, err := w.RPCClient()
	if err != nil {
		return err
	}
	return client.ArgWaitComplete(ctx, tag)
}
