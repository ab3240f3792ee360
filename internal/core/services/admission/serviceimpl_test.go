package admission

import (
	"context"
	"errors"
	"testing"

	"gitlab.com/gridnode.net/internal/domain"
	"gitlab.com/gridnode.net/internal/static/errs"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

func newPool(capacity map[string]float64) *AdmissionService {
	return NewAdmissionService(capacity, nopLogger{})
}

func TestAdmissionService_GrantAndReturn(t *testing.T) {
	pool := newPool(map[string]float64{domain.ResourceCPU: 4, domain.ResourceGPU: 1})
	ctx := context.Background()

	claims, err := pool.GrantTaskClaims(ctx, map[string]float64{domain.ResourceCPU: 2.5, domain.ResourceGPU: 1})
	if err != nil {
		t.Fatalf("GrantTaskClaims: %v", err)
	}
	if got := claims.TotalQuantity(domain.ResourceCPU); got != 2.5 {
		t.Errorf("granted CPU = %v, want 2.5", got)
	}
	if got := claims.TotalQuantity(domain.ResourceGPU); got != 1.0 {
		t.Errorf("granted GPU = %v, want 1", got)
	}

	_, available, _ := pool.Snapshot()
	if got := available[domain.ResourceCPU]; got != 1.5 {
		t.Errorf("available CPU after grant = %v, want 1.5", got)
	}

	pool.ReturnClaims(ctx, claims)
	_, available, _ = pool.Snapshot()
	if got := available[domain.ResourceCPU]; got != 4.0 {
		t.Errorf("available CPU after return = %v, want 4", got)
	}
	if got := available[domain.ResourceGPU]; got != 1.0 {
		t.Errorf("available GPU after return = %v, want 1", got)
	}
}

func TestAdmissionService_GrantInsufficientRollsBack(t *testing.T) {
	pool := newPool(map[string]float64{domain.ResourceCPU: 2})
	ctx := context.Background()

	_, err := pool.GrantTaskClaims(ctx, map[string]float64{
		domain.ResourceCPU: 1,
		domain.ResourceGPU: 1,
	})
	if !errors.Is(err, errs.ErrInsufficientResources) {
		t.Fatalf("err = %v, want ErrInsufficientResources", err)
	}

	// The CPU taken before GPU failed must be back in the pool.
	_, available, _ := pool.Snapshot()
	if got := available[domain.ResourceCPU]; got != 2.0 {
		t.Errorf("available CPU after failed grant = %v, want 2", got)
	}
}

func TestAdmissionService_ReacquireCPUFullyAvailable(t *testing.T) {
	pool := newPool(map[string]float64{domain.ResourceCPU: 2})
	ctx := context.Background()

	claims, err := pool.GrantTaskClaims(ctx, map[string]float64{domain.ResourceCPU: 1})
	if err != nil {
		t.Fatalf("GrantTaskClaims: %v", err)
	}

	// Blocked worker returns its CPU, nobody takes it, unblock reacquires.
	pool.ReturnClaims(ctx, claims)
	reacquired, borrowed := pool.ReacquireCPU(ctx, claims)

	if got := reacquired.TotalQuantity(domain.ResourceCPU); got != 1.0 {
		t.Errorf("reacquired CPU = %v, want 1", got)
	}
	if len(borrowed) != 0 {
		t.Errorf("borrowed = %v, want none", borrowed)
	}
}

func TestAdmissionService_ReacquireCPUOversubscribed(t *testing.T) {
	pool := newPool(map[string]float64{domain.ResourceCPU: 1})
	ctx := context.Background()

	claims, err := pool.GrantTaskClaims(ctx, map[string]float64{domain.ResourceCPU: 1})
	if err != nil {
		t.Fatalf("GrantTaskClaims: %v", err)
	}
	pool.ReturnClaims(ctx, claims)

	// Another worker grabs the released core before the unblock.
	other, err := pool.GrantTaskClaims(ctx, map[string]float64{domain.ResourceCPU: 1})
	if err != nil {
		t.Fatalf("second grant: %v", err)
	}

	reacquired, borrowed := pool.ReacquireCPU(ctx, claims)
	if !reacquired.IsEmpty() {
		t.Errorf("reacquired = %v, want empty", reacquired.Resources())
	}
	if len(borrowed) != 1 || borrowed[0] != 1.0 {
		t.Fatalf("borrowed = %v, want [1]", borrowed)
	}

	_, _, outstanding := pool.Snapshot()
	if outstanding != 1.0 {
		t.Errorf("outstanding borrowed = %v, want 1", outstanding)
	}

	// Settlement is a distinct path: the pool is not credited.
	pool.SettleBorrowedCPU(ctx, borrowed)
	_, available, outstanding := pool.Snapshot()
	if outstanding != 0 {
		t.Errorf("outstanding after settle = %v, want 0", outstanding)
	}
	if got := available[domain.ResourceCPU]; got != 0 {
		t.Errorf("available CPU after settle = %v, want 0 (still held by other worker)", got)
	}

	pool.ReturnClaims(ctx, other)
}
