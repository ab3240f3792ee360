package workerpool

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"gitlab.com/gridnode.net/internal/core/ports/primary"
	"gitlab.com/gridnode.net/internal/core/ports/secondary"
	"gitlab.com/gridnode.net/internal/core/services/admission"
	"gitlab.com/gridnode.net/internal/domain"
	"gitlab.com/gridnode.net/internal/static/errs"
)

var _ IWorkerPoolService = &WorkerPoolService{}

// WorkerPoolService implements IWorkerPoolService. The mutex guards the
// registry map and serializes handle mutation; the state mirror and audit
// journal are best effort and never fail an operation.
type WorkerPoolService struct {
	mu      sync.Mutex
	workers map[domain.WorkerID]*domain.WorkerHandle
	// CPU claim sets released on block, held aside until the paired unblock.
	releasedCPU map[domain.WorkerID]*domain.ResourceClaimSet

	nodeID      string
	host        string
	admission   admission.IAdmissionService
	dispatchers domain.DispatcherFactory
	mirror      secondary.WorkerStateStore
	audit       secondary.AuditLog
	signals     secondary.SignalRelay
	logger      primary.Logger
}

func NewWorkerPoolService(
	nodeID string,
	host string,
	admissionSvc admission.IAdmissionService,
	dispatchers domain.DispatcherFactory,
	mirror secondary.WorkerStateStore,
	audit secondary.AuditLog,
	signals secondary.SignalRelay,
	logger primary.Logger,
) *WorkerPoolService {
	return &WorkerPoolService{
		workers:     make(map[domain.WorkerID]*domain.WorkerHandle),
		releasedCPU: make(map[domain.WorkerID]*domain.ResourceClaimSet),
		nodeID:      nodeID,
		host:        host,
		admission:   admissionSvc,
		dispatchers: dispatchers,
		mirror:      mirror,
		audit:       audit,
		signals:     signals,
		logger:      logger,
	}
}

func (s *WorkerPoolService) RegisterWorker(ctx context.Context, info RegistrationInfo, conn net.Conn) (*domain.WorkerHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workers[info.WorkerID]; ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrWorkerAlreadyExists, info.WorkerID)
	}

	handle := domain.NewWorkerHandle(info.WorkerID, info.Language, info.Port, conn, s.dispatchers)
	if info.Pid > 0 {
		if err := handle.SetProcess(domain.Process{Pid: info.Pid, StartedAt: time.Now()}); err != nil {
			return nil, err
		}
	}
	s.workers[info.WorkerID] = handle

	s.logger.Info("Worker registered",
		"workerID", info.WorkerID, "language", info.Language, "port", info.Port, "pid", info.Pid)
	s.recordEvent(ctx, handle, domain.NilTaskID, secondary.EventWorkerRegistered, "", nil)
	s.mirrorState(ctx, handle)
	return handle, nil
}

func (s *WorkerPoolService) GetWorker(workerID domain.WorkerID) (*domain.WorkerHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle, ok := s.workers[workerID]
	return handle, ok
}

func (s *WorkerPoolService) RegisterActor(ctx context.Context, workerID domain.WorkerID, actorID domain.ActorID, detached bool, demands map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.workers[workerID]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrWorkerNotFound, workerID)
	}
	if err := handle.AssignActorID(actorID); err != nil {
		return err
	}
	if detached {
		if err := handle.MarkDetachedActor(); err != nil {
			return err
		}
	}

	claims, err := s.admission.GrantLifetimeClaims(ctx, demands)
	if err != nil {
		return fmt.Errorf("failed to grant lifetime claims: %w", err)
	}
	if err := handle.SetLifetimeResourceClaims(claims); err != nil {
		s.admission.ReturnClaims(ctx, claims)
		return err
	}
	handle.SetLifetimeAllocatedInstances(domain.LedgerFromClaims(claims))

	s.logger.Info("Actor registered",
		"workerID", workerID, "actorID", actorID, "detached", detached)
	s.mirrorState(ctx, handle)
	return nil
}

func (s *WorkerPoolService) AssignTask(ctx context.Context, workerID domain.WorkerID, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.workers[workerID]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrWorkerNotFound, workerID)
	}

	claims, err := s.admission.GrantTaskClaims(ctx, task.Demands)
	if err != nil {
		return err
	}
	if err := handle.AssignTask(ctx, task, claims); err != nil {
		// Undo the grant; the scheduler decides between retry and kill.
		handle.ResetTaskResourceClaims()
		handle.AssignTaskID(domain.NilTaskID)
		handle.SetAssignedTask(nil)
		s.admission.ReturnClaims(ctx, claims)
		return err
	}
	handle.SetAllocatedInstances(domain.LedgerFromClaims(claims))

	s.logger.Info("Task assigned", "workerID", workerID, "taskID", task.ID, "jobID", task.JobID)
	s.recordEvent(ctx, handle, task.ID, secondary.EventTaskAssigned, "", claimTotals(claims))
	s.mirrorState(ctx, handle)
	return nil
}

func (s *WorkerPoolService) BlockTask(ctx context.Context, workerID domain.WorkerID, taskID domain.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.workers[workerID]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrWorkerNotFound, workerID)
	}
	if !handle.AddBlockedTaskID(taskID) {
		return nil // already waiting on this task
	}
	handle.MarkBlocked()

	// The CPU share is released once per block/unblock pair even when the
	// worker issues nested waits.
	var releasedTotals map[string]float64
	if _, pending := s.releasedCPU[workerID]; !pending {
		released := handle.ReleaseTaskCPUResources()
		if !released.IsEmpty() {
			s.releasedCPU[workerID] = released
			releasedTotals = claimTotals(released)
			s.admission.ReturnClaims(ctx, released)
			handle.SetAllocatedInstances(domain.LedgerFromClaims(handle.TaskResourceClaims()))
		}
	}

	s.logger.Debug("Worker blocked", "workerID", workerID, "taskID", taskID)
	s.recordEvent(ctx, handle, taskID, secondary.EventTaskBlocked, "", releasedTotals)
	s.mirrorState(ctx, handle)
	return nil
}

func (s *WorkerPoolService) UnblockTask(ctx context.Context, workerID domain.WorkerID, taskID domain.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.workers[workerID]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrWorkerNotFound, workerID)
	}
	if !handle.RemoveBlockedTaskID(taskID) {
		return nil
	}
	if len(handle.BlockedTaskIDs()) > 0 {
		// Still inside an outer wait; CPU comes back with the last unblock.
		s.recordEvent(ctx, handle, taskID, secondary.EventTaskUnblocked, "nested", nil)
		return nil
	}
	handle.MarkUnblocked()

	var reacquiredTotals map[string]float64
	if released, pending := s.releasedCPU[workerID]; pending {
		delete(s.releasedCPU, workerID)
		reacquired, borrowed := s.admission.ReacquireCPU(ctx, released)
		handle.AcquireTaskCPUResources(reacquired)
		reacquiredTotals = claimTotals(reacquired)
		if len(borrowed) > 0 {
			handle.SetBorrowedCPUInstances(borrowed)
		}
		handle.SetAllocatedInstances(domain.LedgerFromClaims(handle.TaskResourceClaims()))
	}

	s.logger.Debug("Worker unblocked",
		"workerID", workerID, "taskID", taskID, "borrowedCPU", len(handle.BorrowedCPUInstances()) > 0)
	s.recordEvent(ctx, handle, taskID, secondary.EventTaskUnblocked, "", reacquiredTotals)
	s.mirrorState(ctx, handle)
	return nil
}

func (s *WorkerPoolService) CompleteTask(ctx context.Context, workerID domain.WorkerID, taskID domain.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.workers[workerID]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrWorkerNotFound, workerID)
	}

	// A task completing inside a block is a caller error; drop any pending
	// release so the pair bookkeeping stays consistent.
	delete(s.releasedCPU, workerID)

	claims := handle.TaskResourceClaims().Clone()
	handle.ResetTaskResourceClaims()
	handle.ClearAllocatedInstances()
	handle.AssignTaskID(domain.NilTaskID)
	handle.AssignJobID(domain.NilJobID)
	handle.SetAssignedTask(nil)
	s.admission.ReturnClaims(ctx, claims)

	if borrowed := handle.BorrowedCPUInstances(); len(borrowed) > 0 {
		s.admission.SettleBorrowedCPU(ctx, borrowed)
		handle.ClearBorrowedCPUInstances()
	}

	s.logger.Info("Task completed", "workerID", workerID, "taskID", taskID)
	s.recordEvent(ctx, handle, taskID, secondary.EventTaskCompleted, "", claimTotals(claims))
	s.sendSignal(ctx, workerID, taskID, secondary.SignalDone, nil)
	s.mirrorState(ctx, handle)
	return nil
}

func (s *WorkerPoolService) UpdateActiveObjects(ctx context.Context, workerID domain.WorkerID, objectIDs []domain.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.workers[workerID]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrWorkerNotFound, workerID)
	}
	objects := make(map[domain.ObjectID]struct{}, len(objectIDs))
	for _, id := range objectIDs {
		objects[id] = struct{}{}
	}
	handle.SetActiveObjectIDs(objects)
	return nil
}

func (s *WorkerPoolService) NotifyArgWaitComplete(ctx context.Context, workerID domain.WorkerID, tag int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.workers[workerID]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrWorkerNotFound, workerID)
	}
	return handle.DirectActorCallArgWaitComplete(ctx, tag)
}

func (s *WorkerPoolService) EmitSignal(ctx context.Context, workerID domain.WorkerID, payload map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.workers[workerID]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrWorkerNotFound, workerID)
	}
	if handle.IsDead() {
		return fmt.Errorf("%w: %s", errs.ErrWorkerDead, workerID)
	}

	signal := &secondary.Signal{
		Source:    workerID,
		Kind:      secondary.SignalUser,
		TaskID:    handle.AssignedTaskID(),
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	if err := s.signals.PublishSignal(ctx, signal); err != nil {
		return fmt.Errorf("failed to publish signal: %w", err)
	}
	return nil
}

func (s *WorkerPoolService) GrantLease(ctx context.Context, workerID domain.WorkerID, host string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.workers[workerID]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrWorkerNotFound, workerID)
	}
	handle.WorkerLeaseGranted(host, port)
	s.mirrorState(ctx, handle)
	return nil
}

// DisconnectWorker marks a worker dead and reclaims everything it held.
// Ordering matters: ledgers are cleared before the claims go back to the
// pool, so the pool never sees a claim the handle still accounts for.
func (s *WorkerPoolService) DisconnectWorker(ctx context.Context, workerID domain.WorkerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.workers[workerID]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrWorkerNotFound, workerID)
	}
	if handle.IsDead() {
		return nil
	}
	handle.MarkDead()
	delete(s.releasedCPU, workerID)

	taskClaims := handle.TaskResourceClaims().Clone()
	lifetimeClaims := handle.LifetimeResourceClaims().Clone()
	borrowed := handle.BorrowedCPUInstances()

	handle.ResetTaskResourceClaims()
	handle.ResetLifetimeResourceClaims()
	handle.ClearAllocatedInstances()
	handle.ClearLifetimeAllocatedInstances()
	handle.ClearBorrowedCPUInstances()

	s.admission.ReturnClaims(ctx, taskClaims)
	s.admission.ReturnClaims(ctx, lifetimeClaims)
	if len(borrowed) > 0 {
		s.admission.SettleBorrowedCPU(ctx, borrowed)
	}

	reclaimed := taskClaims.Clone()
	reclaimed.Merge(lifetimeClaims)

	s.logger.Info("Worker dead, resources reclaimed", "workerID", workerID)
	s.recordEvent(ctx, handle, handle.AssignedTaskID(), secondary.EventWorkerDead, "", nil)
	s.recordEvent(ctx, handle, handle.AssignedTaskID(), secondary.EventClaimsReleased, "", claimTotals(reclaimed))
	s.sendSignal(ctx, workerID, handle.AssignedTaskID(), secondary.SignalError, nil)
	if err := s.mirror.RemoveWorkerState(ctx, workerID); err != nil {
		s.logger.Error("Failed to remove worker state mirror", "workerID", workerID, "error", err)
	}
	// The dead handle stays in the registry for diagnostics until the next
	// registration sweep; it accepts no further work.
	return nil
}

func (s *WorkerPoolService) ListWorkers(ctx context.Context) []*secondary.WorkerView {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]*secondary.WorkerView, 0, len(s.workers))
	for _, handle := range s.workers {
		views = append(views, buildView(handle))
	}
	return views
}

func (s *WorkerPoolService) GetWorkerView(ctx context.Context, workerID domain.WorkerID) (*secondary.WorkerView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.workers[workerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrWorkerNotFound, workerID)
	}
	return buildView(handle), nil
}

func (s *WorkerPoolService) NodeState(ctx context.Context) *secondary.NodeState {
	total, available, borrowed := s.admission.Snapshot()

	s.mu.Lock()
	live := 0
	for _, handle := range s.workers {
		if !handle.IsDead() {
			live++
		}
	}
	s.mu.Unlock()

	return &secondary.NodeState{
		NodeID:        s.nodeID,
		Host:          s.host,
		Total:         total,
		Available:     available,
		BorrowedCPU:   borrowed,
		LiveWorkers:   live,
		LastPublished: time.Now().Unix(),
	}
}

func (s *WorkerPoolService) recordEvent(ctx context.Context, handle *domain.WorkerHandle, taskID domain.TaskID, kind secondary.WorkerEventKind, detail string, resources map[string]float64) {
	event := &secondary.WorkerEvent{
		WorkerID:  handle.ID(),
		TaskID:    taskID,
		Kind:      kind,
		Resources: resources,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.Error("Failed to record audit event", "workerID", handle.ID(), "kind", kind, "error", err)
	}
}

// sendSignal publishes a lifecycle signal on behalf of a worker. Relay
// failures are logged and never fail the operation that emitted the signal.
func (s *WorkerPoolService) sendSignal(ctx context.Context, source domain.WorkerID, taskID domain.TaskID, kind secondary.SignalKind, payload map[string]interface{}) {
	signal := &secondary.Signal{
		Source:    source,
		Kind:      kind,
		TaskID:    taskID,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	if err := s.signals.PublishSignal(ctx, signal); err != nil {
		s.logger.Error("Failed to publish signal", "workerID", source, "kind", kind, "error", err)
	}
}

// claimTotals flattens a claim set into per-resource totals for the audit
// journal. Returns nil for an empty set so the event row stays compact.
func claimTotals(claims *domain.ResourceClaimSet) map[string]float64 {
	if claims == nil || claims.IsEmpty() {
		return nil
	}
	totals := make(map[string]float64)
	for _, resource := range claims.Resources() {
		totals[resource] = claims.TotalQuantity(resource)
	}
	return totals
}

func (s *WorkerPoolService) mirrorState(ctx context.Context, handle *domain.WorkerHandle) {
	if err := s.mirror.SaveWorkerState(ctx, buildView(handle)); err != nil {
		s.logger.Error("Failed to mirror worker state", "workerID", handle.ID(), "error", err)
	}
}

func buildView(handle *domain.WorkerHandle) *secondary.WorkerView {
	taskResources := make(map[string]float64)
	for _, resource := range handle.TaskResourceClaims().Resources() {
		taskResources[resource] = handle.TaskResourceClaims().TotalQuantity(resource)
	}
	lifetimeResources := make(map[string]float64)
	for _, resource := range handle.LifetimeResourceClaims().Resources() {
		lifetimeResources[resource] = handle.LifetimeResourceClaims().TotalQuantity(resource)
	}
	var borrowed float64
	for _, amount := range handle.BorrowedCPUInstances() {
		borrowed += amount
	}
	return &secondary.WorkerView{
		ID:             handle.ID(),
		Pid:            handle.Process().Pid,
		Language:       handle.Language(),
		Port:           handle.Port(),
		Dead:           handle.IsDead(),
		Blocked:        handle.IsBlocked(),
		AssignedTaskID: handle.AssignedTaskID(),
		AssignedJobID:  handle.AssignedJobID(),
		ActorID:        handle.ActorID(),
		DetachedActor:  handle.IsDetachedActor(),
		BlockedTasks:   len(handle.BlockedTaskIDs()),
		TaskResources:  taskResources,
		LifetimeRes:    lifetimeResources,
		BorrowedCPU:    borrowed,
		OwnerAddress:   handle.OwnerAddress(),
	}
}
