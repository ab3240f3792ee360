package domain

import "sort"

// Well-known resource type names.
const (
	ResourceCPU    = "CPU"
	ResourceGPU    = "GPU"
	ResourceMemory = "memory"
)

// ResourceClaimSet records ownership of specific resource instances
// (e.g. "CPU core #3", "GPU #1") with the fraction of each instance owned.
// It maps resource type -> instance id -> owned fraction.
//
// Instances are exclusively owned by one WorkerHandle at a time; the set is
// handed over as a value through setters and release operations, never
// mutated concurrently.
type ResourceClaimSet struct {
	claims map[string]map[int64]float64
}

// NewResourceClaimSet creates an empty claim set.
func NewResourceClaimSet() *ResourceClaimSet {
	return &ResourceClaimSet{claims: make(map[string]map[int64]float64)}
}

// AddClaim records ownership of a fraction of one instance. Adding to an
// instance already present accumulates the fraction.
func (s *ResourceClaimSet) AddClaim(resource string, instanceID int64, quantity float64) {
	if s.claims == nil {
		s.claims = make(map[string]map[int64]float64)
	}
	instances, ok := s.claims[resource]
	if !ok {
		instances = make(map[int64]float64)
		s.claims[resource] = instances
	}
	instances[instanceID] += quantity
}

// InstanceIDs returns the instance ids held for a resource type, sorted.
func (s *ResourceClaimSet) InstanceIDs(resource string) []int64 {
	if s == nil || s.claims == nil {
		return nil
	}
	instances := s.claims[resource]
	if len(instances) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(instances))
	for id := range instances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Quantity returns the owned fraction of one instance, zero if not held.
func (s *ResourceClaimSet) Quantity(resource string, instanceID int64) float64 {
	if s == nil || s.claims == nil {
		return 0
	}
	return s.claims[resource][instanceID]
}

// TotalQuantity returns the summed owned quantity for a resource type.
func (s *ResourceClaimSet) TotalQuantity(resource string) float64 {
	if s == nil || s.claims == nil {
		return 0
	}
	var total float64
	for _, quantity := range s.claims[resource] {
		total += quantity
	}
	return total
}

// Resources returns the resource types with at least one instance held, sorted.
func (s *ResourceClaimSet) Resources() []string {
	if s == nil || s.claims == nil {
		return nil
	}
	names := make([]string, 0, len(s.claims))
	for name, instances := range s.claims {
		if len(instances) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// IsEmpty reports whether no instance of any resource type is held.
func (s *ResourceClaimSet) IsEmpty() bool {
	if s == nil {
		return true
	}
	for _, instances := range s.claims {
		if len(instances) > 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the claim set.
func (s *ResourceClaimSet) Clone() *ResourceClaimSet {
	cloned := NewResourceClaimSet()
	if s == nil {
		return cloned
	}
	for resource, instances := range s.claims {
		for id, quantity := range instances {
			cloned.AddClaim(resource, id, quantity)
		}
	}
	return cloned
}

// Merge adds every claim of other into the receiver.
func (s *ResourceClaimSet) Merge(other *ResourceClaimSet) {
	if other == nil {
		return
	}
	for resource, instances := range other.claims {
		for id, quantity := range instances {
			s.AddClaim(resource, id, quantity)
		}
	}
}

// SplitResource removes all instances of one resource type from the receiver
// and returns them as a new set. Splitting a resource type that is not held
// returns an empty set and leaves the receiver untouched.
func (s *ResourceClaimSet) SplitResource(resource string) *ResourceClaimSet {
	split := NewResourceClaimSet()
	if s == nil || s.claims == nil {
		return split
	}
	instances, ok := s.claims[resource]
	if !ok {
		return split
	}
	for id, quantity := range instances {
		split.AddClaim(resource, id, quantity)
	}
	delete(s.claims, resource)
	return split
}
