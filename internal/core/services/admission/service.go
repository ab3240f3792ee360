package admission

import (
	"context"

	"gitlab.com/gridnode.net/internal/domain"
)

// IAdmissionService is the node-local face of the cluster resource
// scheduler: it owns the pool of physical resource instances on this node,
// grants claim sets against it, and takes returned claims back. Borrowed CPU
// is settled through a separate accounting path and never re-enters the pool
// as an owned claim.
type IAdmissionService interface {
	// GrantTaskClaims carves a claim set for one task out of the pool.
	GrantTaskClaims(ctx context.Context, demands map[string]float64) (*domain.ResourceClaimSet, error)

	// GrantLifetimeClaims carves an actor-lifetime claim set out of the pool.
	GrantLifetimeClaims(ctx context.Context, demands map[string]float64) (*domain.ResourceClaimSet, error)

	// ReturnClaims hands a claim set back to the pool.
	ReturnClaims(ctx context.Context, claims *domain.ResourceClaimSet)

	// ReacquireCPU tries to take back the exact CPU instances a blocked
	// worker released. Whatever cannot be reacquired (handed to another
	// worker meanwhile) is returned as per-instance borrowed amounts.
	ReacquireCPU(ctx context.Context, released *domain.ResourceClaimSet) (*domain.ResourceClaimSet, []float64)

	// SettleBorrowedCPU retires borrowed amounts against the
	// oversubscription pool.
	SettleBorrowedCPU(ctx context.Context, amounts []float64)

	// Snapshot reports total and available quantities per resource type and
	// the outstanding borrowed CPU tally.
	Snapshot() (total map[string]float64, available map[string]float64, borrowedCPU float64)
}
