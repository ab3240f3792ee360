package admission

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"gitlab.com/gridnode.net/internal/core/ports/primary"
	"gitlab.com/gridnode.net/internal/domain"
	"gitlab.com/gridnode.net/internal/static/errs"
)

var _ IAdmissionService = &AdmissionService{}

const fractionEpsilon = 1e-9

// AdmissionService implements IAdmissionService over an in-memory instance
// pool. Every resource type is modeled as unit instances (CPU core #0..n-1,
// GPU #0..m-1, memory units); fractional grants take part of one instance.
type AdmissionService struct {
	mu        sync.Mutex
	total     map[string]float64
	available map[string]map[int64]float64
	borrowed  float64
	logger    primary.Logger
}

// NewAdmissionService builds the pool from per-resource instance counts,
// e.g. {"CPU": 8, "GPU": 2, "memory": 64}.
func NewAdmissionService(capacity map[string]float64, logger primary.Logger) *AdmissionService {
	total := make(map[string]float64, len(capacity))
	available := make(map[string]map[int64]float64, len(capacity))
	for resource, count := range capacity {
		instances := make(map[int64]float64)
		whole := int64(count)
		for i := int64(0); i < whole; i++ {
			instances[i] = 1.0
		}
		if frac := count - float64(whole); frac > fractionEpsilon {
			instances[whole] = frac
		}
		total[resource] = count
		available[resource] = instances
	}
	return &AdmissionService{
		total:     total,
		available: available,
		logger:    logger,
	}
}

func (s *AdmissionService) GrantTaskClaims(ctx context.Context, demands map[string]float64) (*domain.ResourceClaimSet, error) {
	return s.grant(demands)
}

func (s *AdmissionService) GrantLifetimeClaims(ctx context.Context, demands map[string]float64) (*domain.ResourceClaimSet, error) {
	return s.grant(demands)
}

func (s *AdmissionService) grant(demands map[string]float64) (*domain.ResourceClaimSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	granted := domain.NewResourceClaimSet()
	for _, resource := range sortedKeys(demands) {
		needed := demands[resource]
		if needed <= 0 {
			continue
		}
		if s.availableTotal(resource)+fractionEpsilon < needed {
			// Roll the partial grant back before failing.
			s.returnClaimsLocked(granted)
			return nil, fmt.Errorf("%w: need %v %s, have %v",
				errs.ErrInsufficientResources, needed, resource, s.availableTotal(resource))
		}
		s.takeLocked(resource, needed, granted)
	}
	return granted, nil
}

// takeLocked carves quantity out of the pool for one resource type, whole
// instances first, then a fraction of one instance.
func (s *AdmissionService) takeLocked(resource string, quantity float64, into *domain.ResourceClaimSet) {
	instances := s.available[resource]
	ids := make([]int64, 0, len(instances))
	for id := range instances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	remaining := quantity
	for _, id := range ids {
		if remaining <= fractionEpsilon {
			break
		}
		take := math.Min(instances[id], remaining)
		if take <= fractionEpsilon {
			continue
		}
		into.AddClaim(resource, id, take)
		instances[id] -= take
		if instances[id] <= fractionEpsilon {
			delete(instances, id)
		}
		remaining -= take
	}
}

func (s *AdmissionService) ReturnClaims(ctx context.Context, claims *domain.ResourceClaimSet) {
	if claims == nil || claims.IsEmpty() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.returnClaimsLocked(claims)
}

func (s *AdmissionService) returnClaimsLocked(claims *domain.ResourceClaimSet) {
	for _, resource := range claims.Resources() {
		instances, ok := s.available[resource]
		if !ok {
			instances = make(map[int64]float64)
			s.available[resource] = instances
		}
		for _, id := range claims.InstanceIDs(resource) {
			instances[id] += claims.Quantity(resource, id)
		}
	}
}

func (s *AdmissionService) ReacquireCPU(ctx context.Context, released *domain.ResourceClaimSet) (*domain.ResourceClaimSet, []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reacquired := domain.NewResourceClaimSet()
	var borrowed []float64
	instances := s.available[domain.ResourceCPU]
	for _, id := range released.InstanceIDs(domain.ResourceCPU) {
		wanted := released.Quantity(domain.ResourceCPU, id)
		have := instances[id]
		take := math.Min(have, wanted)
		if take > fractionEpsilon {
			reacquired.AddClaim(domain.ResourceCPU, id, take)
			instances[id] -= take
			if instances[id] <= fractionEpsilon {
				delete(instances, id)
			}
		}
		if shortfall := wanted - take; shortfall > fractionEpsilon {
			borrowed = append(borrowed, shortfall)
		}
	}
	if len(borrowed) > 0 {
		var sum float64
		for _, amount := range borrowed {
			sum += amount
		}
		s.borrowed += sum
		s.logger.Warn("CPU reacquire short, worker will borrow",
			"shortfall", sum, "outstanding", s.borrowed)
	}
	return reacquired, borrowed
}

func (s *AdmissionService) SettleBorrowedCPU(ctx context.Context, amounts []float64) {
	var sum float64
	for _, amount := range amounts {
		sum += amount
	}
	if sum <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.borrowed -= sum
	if s.borrowed < 0 {
		s.borrowed = 0
	}
	s.logger.Info("Settled borrowed CPU", "settled", sum, "outstanding", s.borrowed)
}

func (s *AdmissionService) Snapshot() (map[string]float64, map[string]float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := make(map[string]float64, len(s.total))
	for resource, count := range s.total {
		total[resource] = count
	}
	available := make(map[string]float64, len(s.available))
	for resource := range s.available {
		available[resource] = s.availableTotal(resource)
	}
	return total, available, s.borrowed
}

func (s *AdmissionService) availableTotal(resource string) float64 {
	var sum float64
	for _, quantity := range s.available[resource] {
		sum += quantity
	}
	return sum
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
