package domain

import (
	"math"
	"sort"
)

// quantityEpsilon absorbs float drift when comparing summed fractional
// quantities during ledger/claim-set reconciliation.
const quantityEpsilon = 1e-9

// ResourceInstanceLedger tracks, per resource type, the fractional amount
// allocated on each instance of that type. It is the unit the node manager
// uses for oversubscription-aware CPU borrowing, kept separate from the
// discrete-identity ResourceClaimSet: the ledger answers "how much", the
// claim set answers "which ones".
type ResourceInstanceLedger struct {
	instances map[string][]float64
}

// NewResourceInstanceLedger creates an empty (zero) ledger.
func NewResourceInstanceLedger() *ResourceInstanceLedger {
	return &ResourceInstanceLedger{instances: make(map[string][]float64)}
}

// Set installs the per-instance amounts vector for a resource type,
// replacing any previous vector.
func (l *ResourceInstanceLedger) Set(resource string, amounts []float64) {
	if l.instances == nil {
		l.instances = make(map[string][]float64)
	}
	vector := make([]float64, len(amounts))
	copy(vector, amounts)
	l.instances[resource] = vector
}

// Get returns a copy of the per-instance amounts vector for a resource type.
func (l *ResourceInstanceLedger) Get(resource string) []float64 {
	if l == nil || l.instances == nil {
		return nil
	}
	stored, ok := l.instances[resource]
	if !ok {
		return nil
	}
	vector := make([]float64, len(stored))
	copy(vector, stored)
	return vector
}

// Total returns the summed allocated amount for a resource type.
func (l *ResourceInstanceLedger) Total(resource string) float64 {
	if l == nil || l.instances == nil {
		return 0
	}
	var total float64
	for _, amount := range l.instances[resource] {
		total += amount
	}
	return total
}

// Resources returns the resource types with a non-zero total, sorted.
func (l *ResourceInstanceLedger) Resources() []string {
	if l == nil || l.instances == nil {
		return nil
	}
	names := make([]string, 0, len(l.instances))
	for name := range l.instances {
		if l.Total(name) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// IsEmpty reports whether every tracked resource type has a zero total.
func (l *ResourceInstanceLedger) IsEmpty() bool {
	if l == nil {
		return true
	}
	for resource := range l.instances {
		if l.Total(resource) > 0 {
			return false
		}
	}
	return true
}

// Clear resets the ledger to the zero ledger. Always a full reset, never
// partial.
func (l *ResourceInstanceLedger) Clear() {
	l.instances = make(map[string][]float64)
}

// Clone returns a deep copy of the ledger.
func (l *ResourceInstanceLedger) Clone() *ResourceInstanceLedger {
	cloned := NewResourceInstanceLedger()
	if l == nil {
		return cloned
	}
	for resource, amounts := range l.instances {
		cloned.Set(resource, amounts)
	}
	return cloned
}

// ReconciledWith reports whether the ledger total for every resource type
// equals the claim set's summed quantity for that type, and vice versa.
// This is the reconciliation contract between the two representations.
func (l *ResourceInstanceLedger) ReconciledWith(claims *ResourceClaimSet) bool {
	seen := make(map[string]struct{})
	if l != nil {
		for resource := range l.instances {
			seen[resource] = struct{}{}
		}
	}
	for _, resource := range claims.Resources() {
		seen[resource] = struct{}{}
	}
	for resource := range seen {
		if math.Abs(l.Total(resource)-claims.TotalQuantity(resource)) > quantityEpsilon {
			return false
		}
	}
	return true
}

// LedgerFromClaims builds the instance-granular ledger equivalent of a claim
// set: one vector entry per claimed instance, in instance-id order.
func LedgerFromClaims(claims *ResourceClaimSet) *ResourceInstanceLedger {
	ledger := NewResourceInstanceLedger()
	for _, resource := range claims.Resources() {
		ids := claims.InstanceIDs(resource)
		amounts := make([]float64, 0, len(ids))
		for _, id := range ids {
			amounts = append(amounts, claims.Quantity(resource, id))
		}
		ledger.Set(resource, amounts)
	}
	return ledger
}
