package domain

import (
	"context"
	"errors"
	"testing"

	"gitlab.com/gridnode.net/internal/static/errs"
)

type fakeDispatcher struct {
	pushed   []*Task
	waitTags []int64
	pushErr  error
}

func (d *fakeDispatcher) PushTask(_ context.Context, task *Task) error {
	if d.pushErr != nil {
		return d.pushErr
	}
	d.pushed = append(d.pushed, task)
	return nil
}

func (d *fakeDispatcher) ArgWaitComplete(_ context.Context, tag int64) error {
	d.waitTags = append(d.waitTags, tag)
	return nil
}

type fakeDispatcherFactory struct {
	dispatcher *fakeDispatcher
}

func (f *fakeDispatcherFactory) Dispatcher(_ string, _ int) TaskDispatcher {
	return f.dispatcher
}

func newTestHandle(port int) (*WorkerHandle, *fakeDispatcher) {
	dispatcher := &fakeDispatcher{}
	handle := NewWorkerHandle(NewWorkerID(), LanguagePython, port, nil, &fakeDispatcherFactory{dispatcher: dispatcher})
	return handle, dispatcher
}

func TestWorkerHandle_MarkDeadIdempotent(t *testing.T) {
	w, _ := newTestHandle(0)

	if w.IsDead() {
		t.Fatal("fresh worker must not be dead")
	}
	w.MarkDead()
	w.MarkDead()
	if !w.IsDead() {
		t.Error("IsDead() = false after MarkDead")
	}
}

func TestWorkerHandle_BlockedToggleIndependentOfDead(t *testing.T) {
	w, _ := newTestHandle(0)

	w.MarkDead()
	w.MarkBlocked()
	if !w.IsBlocked() {
		t.Error("blocked toggle must work on a dead worker")
	}
	w.MarkUnblocked()
	if w.IsBlocked() {
		t.Error("IsBlocked() = true after MarkUnblocked")
	}
}

func TestWorkerHandle_BlockedTaskSet(t *testing.T) {
	w, _ := newTestHandle(0)
	a, b := NewTaskID(), NewTaskID()

	if !w.AddBlockedTaskID(a) {
		t.Error("first add returned false")
	}
	if w.AddBlockedTaskID(a) {
		t.Error("duplicate add returned true")
	}
	if !w.AddBlockedTaskID(b) {
		t.Error("add of second id returned false")
	}
	if len(w.BlockedTaskIDs()) != 2 {
		t.Errorf("blocked set size = %d, want 2", len(w.BlockedTaskIDs()))
	}
	if w.RemoveBlockedTaskID(NewTaskID()) {
		t.Error("remove of absent id returned true")
	}
	if len(w.BlockedTaskIDs()) != 2 {
		t.Error("remove of absent id mutated the set")
	}
	if !w.RemoveBlockedTaskID(a) {
		t.Error("remove of present id returned false")
	}
	if len(w.BlockedTaskIDs()) != 1 {
		t.Errorf("blocked set size = %d, want 1", len(w.BlockedTaskIDs()))
	}
}

func TestWorkerHandle_OneShotSetters(t *testing.T) {
	w, _ := newTestHandle(0)

	if err := w.SetProcess(Process{Pid: 42}); err != nil {
		t.Fatalf("first SetProcess: %v", err)
	}
	if err := w.SetProcess(Process{Pid: 43}); !errors.Is(err, errs.ErrProcessAlreadySet) {
		t.Errorf("second SetProcess err = %v, want ErrProcessAlreadySet", err)
	}
	if w.Process().Pid != 42 {
		t.Errorf("Pid = %d, want 42", w.Process().Pid)
	}

	actor := ActorID("actor-1")
	if err := w.AssignActorID(actor); err != nil {
		t.Fatalf("first AssignActorID: %v", err)
	}
	if err := w.AssignActorID(ActorID("actor-2")); !errors.Is(err, errs.ErrActorAlreadySet) {
		t.Errorf("second AssignActorID err = %v, want ErrActorAlreadySet", err)
	}
	if w.ActorID() != actor {
		t.Errorf("ActorID = %q, want %q", w.ActorID(), actor)
	}

	if err := w.MarkDetachedActor(); err != nil {
		t.Fatalf("first MarkDetachedActor: %v", err)
	}
	if err := w.MarkDetachedActor(); !errors.Is(err, errs.ErrDetachedAlreadySet) {
		t.Errorf("second MarkDetachedActor err = %v, want ErrDetachedAlreadySet", err)
	}
}

func TestWorkerHandle_LifetimeClaimsOneShotAndReset(t *testing.T) {
	w, _ := newTestHandle(0)

	claims := NewResourceClaimSet()
	claims.AddClaim(ResourceGPU, 0, 1.0)
	if err := w.SetLifetimeResourceClaims(claims); err != nil {
		t.Fatalf("first set: %v", err)
	}
	if err := w.SetLifetimeResourceClaims(NewResourceClaimSet()); !errors.Is(err, errs.ErrLifetimeClaimsSet) {
		t.Errorf("second set err = %v, want ErrLifetimeClaimsSet", err)
	}

	w.ResetLifetimeResourceClaims()
	if !w.LifetimeResourceClaims().IsEmpty() {
		t.Error("lifetime claims not empty after reset")
	}
	if err := w.SetLifetimeResourceClaims(claims); err != nil {
		t.Errorf("set after reset: %v", err)
	}
}

func TestWorkerHandle_ReleaseAcquireCPURoundTrip(t *testing.T) {
	w, _ := newTestHandle(0)

	claims := NewResourceClaimSet()
	claims.AddClaim(ResourceCPU, 0, 1.0)
	claims.AddClaim(ResourceCPU, 2, 0.5)
	claims.AddClaim(ResourceGPU, 1, 1.0)
	w.SetTaskResourceClaims(claims)

	released := w.ReleaseTaskCPUResources()
	if got := released.TotalQuantity(ResourceCPU); got != 1.5 {
		t.Fatalf("released CPU total = %v, want 1.5", got)
	}
	if got := w.TaskResourceClaims().TotalQuantity(ResourceCPU); got != 0 {
		t.Fatalf("CPU left on task claims after release = %v, want 0", got)
	}
	if got := w.TaskResourceClaims().TotalQuantity(ResourceGPU); got != 1.0 {
		t.Fatalf("GPU disturbed by CPU release: total = %v, want 1.0", got)
	}

	w.AcquireTaskCPUResources(released)
	if got := w.TaskResourceClaims().TotalQuantity(ResourceCPU); got != 1.5 {
		t.Errorf("CPU total after re-acquire = %v, want 1.5", got)
	}
	if got := w.TaskResourceClaims().Quantity(ResourceCPU, 2); got != 0.5 {
		t.Errorf("instance 2 fraction after re-acquire = %v, want 0.5", got)
	}
}

func TestWorkerHandle_ReleaseCPUWithoutCPUIsNoOp(t *testing.T) {
	w, _ := newTestHandle(0)

	released := w.ReleaseTaskCPUResources()
	if !released.IsEmpty() {
		t.Errorf("released = %v, want empty set", released.Resources())
	}
}

func TestWorkerHandle_ClearAllocatedInstances(t *testing.T) {
	w, _ := newTestHandle(0)

	ledger := NewResourceInstanceLedger()
	ledger.Set(ResourceCPU, []float64{1.0})
	w.SetAllocatedInstances(ledger)

	w.ClearAllocatedInstances()
	if !w.AllocatedInstances().IsEmpty() {
		t.Error("allocated instances not zero after clear")
	}

	w.SetLifetimeAllocatedInstances(ledger)
	w.ClearLifetimeAllocatedInstances()
	if !w.LifetimeAllocatedInstances().IsEmpty() {
		t.Error("lifetime allocated instances not zero after clear")
	}
}

func TestWorkerHandle_AssignTaskDispatches(t *testing.T) {
	w, dispatcher := newTestHandle(7100)

	task := NewTask(NewJobID(), LanguagePython, map[string]float64{ResourceCPU: 1}, nil)
	claims := NewResourceClaimSet()
	claims.AddClaim(ResourceCPU, 0, 1.0)

	if err := w.AssignTask(context.Background(), task, claims); err != nil {
		t.Fatalf("AssignTask: %v", err)
	}
	if w.AssignedTaskID() != task.ID {
		t.Errorf("assigned task id = %q, want %q", w.AssignedTaskID(), task.ID)
	}
	if w.AssignedJobID() != task.JobID {
		t.Errorf("assigned job id = %q, want %q", w.AssignedJobID(), task.JobID)
	}
	if got := w.TaskResourceClaims().TotalQuantity(ResourceCPU); got != 1.0 {
		t.Errorf("task CPU claims = %v, want 1.0", got)
	}
	if len(dispatcher.pushed) != 1 || dispatcher.pushed[0].ID != task.ID {
		t.Errorf("dispatched tasks = %v, want exactly the assigned task", dispatcher.pushed)
	}
}

func TestWorkerHandle_AssignTaskOnDeadWorker(t *testing.T) {
	w, dispatcher := newTestHandle(7100)
	w.MarkDead()

	task := NewTask(NewJobID(), LanguagePython, nil, nil)
	err := w.AssignTask(context.Background(), task, NewResourceClaimSet())
	if !errors.Is(err, errs.ErrWorkerDead) {
		t.Fatalf("err = %v, want ErrWorkerDead", err)
	}
	if len(dispatcher.pushed) != 0 {
		t.Error("task dispatched to a dead worker")
	}
}

func TestWorkerHandle_AssignTaskDispatchFailure(t *testing.T) {
	w, dispatcher := newTestHandle(7100)
	dispatcher.pushErr = errors.New("connection refused")

	task := NewTask(NewJobID(), LanguagePython, nil, nil)
	claims := NewResourceClaimSet()
	claims.AddClaim(ResourceCPU, 0, 1.0)

	if err := w.AssignTask(context.Background(), task, claims); err == nil {
		t.Fatal("expected dispatch failure")
	}
	// Assignment state stays installed so the node manager can decide
	// between reassignment and termination.
	if w.AssignedTaskID() != task.ID {
		t.Error("assignment state lost after dispatch failure")
	}
}

func TestWorkerHandle_RPCClientRequiresPort(t *testing.T) {
	w, _ := newTestHandle(0)

	if _, err := w.RPCClient(); !errors.Is(err, errs.ErrNoRPCBinding) {
		t.Errorf("err = %v, want ErrNoRPCBinding", err)
	}
}

func TestWorkerHandle_DirectActorCallArgWaitComplete(t *testing.T) {
	w, dispatcher := newTestHandle(7100)

	if err := w.DirectActorCallArgWaitComplete(context.Background(), 17); err != nil {
		t.Fatalf("DirectActorCallArgWaitComplete: %v", err)
	}
	if len(dispatcher.waitTags) != 1 || dispatcher.waitTags[0] != 17 {
		t.Errorf("forwarded tags = %v, want [17]", dispatcher.waitTags)
	}
}

func TestWorkerHandle_WorkerLeaseGranted(t *testing.T) {
	w, _ := newTestHandle(0)

	w.WorkerLeaseGranted("10.0.0.5", 6200)
	if got := w.OwnerAddress(); got.Host != "10.0.0.5" || got.Port != 6200 {
		t.Errorf("owner address = %+v, want 10.0.0.5:6200", got)
	}

	// Re-binding overwrites without validating the previous lease.
	w.WorkerLeaseGranted("10.0.0.6", 6201)
	if got := w.OwnerAddress(); got.Host != "10.0.0.6" || got.Port != 6201 {
		t.Errorf("owner address after re-grant = %+v, want 10.0.0.6:6201", got)
	}
}

// A blocked worker loses its CPU share to another worker and is unblocked
// without getting it back: the difference is tracked as borrowed CPU, the
// formal task claims stay CPU-free.
func TestWorkerHandle_OversubscribedUnblockScenario(t *testing.T) {
	w, _ := newTestHandle(7100)

	task := NewTask(NewJobID(), LanguagePython, map[string]float64{ResourceCPU: 1}, nil)
	claims := NewResourceClaimSet()
	claims.AddClaim(ResourceCPU, 0, 1.0)
	if err := w.AssignTask(context.Background(), task, claims); err != nil {
		t.Fatalf("AssignTask: %v", err)
	}

	w.MarkBlocked()
	released := w.ReleaseTaskCPUResources()
	if got := released.TotalQuantity(ResourceCPU); got != 1.0 {
		t.Fatalf("released CPU = %v, want 1.0", got)
	}

	// The node hands the released CPU to someone else, then unblocks W.
	w.MarkUnblocked()
	w.SetBorrowedCPUInstances([]float64{1.0})

	if ids := w.TaskResourceClaims().InstanceIDs(ResourceCPU); len(ids) != 0 {
		t.Errorf("task CPU instance ids = %v, want none", ids)
	}
	if got := w.BorrowedCPUInstances(); len(got) != 1 || got[0] != 1.0 {
		t.Errorf("borrowed CPU = %v, want [1]", got)
	}

	w.ClearBorrowedCPUInstances()
	if got := w.BorrowedCPUInstances(); len(got) != 0 {
		t.Errorf("borrowed CPU after clear = %v, want empty", got)
	}
}

// An actor's lifetime claims survive task assignment cycles untouched.
func TestWorkerHandle_ActorLifetimeClaimsSurviveTasks(t *testing.T) {
	w, _ := newTestHandle(7100)

	if err := w.AssignActorID(ActorID("actor-7")); err != nil {
		t.Fatalf("AssignActorID: %v", err)
	}
	lifetime := NewResourceClaimSet()
	lifetime.AddClaim(ResourceGPU, 0, 1.0)
	if err := w.SetLifetimeResourceClaims(lifetime); err != nil {
		t.Fatalf("SetLifetimeResourceClaims: %v", err)
	}

	for i := 0; i < 2; i++ {
		task := NewTask(NewJobID(), LanguagePython, map[string]float64{ResourceCPU: 1}, nil)
		claims := NewResourceClaimSet()
		claims.AddClaim(ResourceCPU, int64(i), 1.0)
		if err := w.AssignTask(context.Background(), task, claims); err != nil {
			t.Fatalf("AssignTask #%d: %v", i, err)
		}
		w.AssignTaskID(NilTaskID)
		w.ResetTaskResourceClaims()
		w.ClearAllocatedInstances()
	}

	if got := w.LifetimeResourceClaims().TotalQuantity(ResourceGPU); got != 1.0 {
		t.Errorf("lifetime GPU after two task cycles = %v, want 1.0", got)
	}
	if !w.TaskResourceClaims().IsEmpty() {
		t.Error("task claims not empty after completion")
	}
}
