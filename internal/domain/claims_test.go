package domain

import (
	"reflect"
	"testing"
)

func TestResourceClaimSet_SplitResource(t *testing.T) {
	tests := []struct {
		name          string
		build         func() *ResourceClaimSet
		resource      string
		wantSplitIDs  []int64
		wantRemaining []string
	}{
		{
			name: "splits CPU and keeps GPU",
			build: func() *ResourceClaimSet {
				s := NewResourceClaimSet()
				s.AddClaim(ResourceCPU, 0, 1.0)
				s.AddClaim(ResourceCPU, 3, 0.5)
				s.AddClaim(ResourceGPU, 1, 1.0)
				return s
			},
			resource:      ResourceCPU,
			wantSplitIDs:  []int64{0, 3},
			wantRemaining: []string{ResourceGPU},
		},
		{
			name: "split of absent resource is a no-op",
			build: func() *ResourceClaimSet {
				s := NewResourceClaimSet()
				s.AddClaim(ResourceGPU, 1, 1.0)
				return s
			},
			resource:      ResourceCPU,
			wantSplitIDs:  nil,
			wantRemaining: []string{ResourceGPU},
		},
		{
			name:          "split on empty set returns empty set",
			build:         NewResourceClaimSet,
			resource:      ResourceCPU,
			wantSplitIDs:  nil,
			wantRemaining: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.build()
			split := s.SplitResource(tt.resource)
			if got := split.InstanceIDs(tt.resource); !reflect.DeepEqual(got, tt.wantSplitIDs) {
				t.Errorf("split instance ids = %v, want %v", got, tt.wantSplitIDs)
			}
			if got := s.Resources(); !reflect.DeepEqual(got, tt.wantRemaining) {
				t.Errorf("remaining resources = %v, want %v", got, tt.wantRemaining)
			}
		})
	}
}

func TestResourceClaimSet_MergeRestoresSplit(t *testing.T) {
	s := NewResourceClaimSet()
	s.AddClaim(ResourceCPU, 0, 1.0)
	s.AddClaim(ResourceCPU, 1, 0.25)
	s.AddClaim(ResourceGPU, 0, 1.0)
	before := s.Clone()

	cpu := s.SplitResource(ResourceCPU)
	s.Merge(cpu)

	if !reflect.DeepEqual(s.InstanceIDs(ResourceCPU), before.InstanceIDs(ResourceCPU)) {
		t.Errorf("CPU instance ids after round trip = %v, want %v",
			s.InstanceIDs(ResourceCPU), before.InstanceIDs(ResourceCPU))
	}
	if s.TotalQuantity(ResourceCPU) != before.TotalQuantity(ResourceCPU) {
		t.Errorf("CPU total after round trip = %v, want %v",
			s.TotalQuantity(ResourceCPU), before.TotalQuantity(ResourceCPU))
	}
	if s.TotalQuantity(ResourceGPU) != 1.0 {
		t.Errorf("GPU total = %v, want 1.0", s.TotalQuantity(ResourceGPU))
	}
}

func TestResourceClaimSet_TotalQuantity(t *testing.T) {
	s := NewResourceClaimSet()
	s.AddClaim(ResourceCPU, 0, 0.5)
	s.AddClaim(ResourceCPU, 0, 0.5)
	s.AddClaim(ResourceCPU, 2, 1.0)

	if got := s.TotalQuantity(ResourceCPU); got != 2.0 {
		t.Errorf("TotalQuantity(CPU) = %v, want 2.0", got)
	}
	if got := s.Quantity(ResourceCPU, 0); got != 1.0 {
		t.Errorf("Quantity(CPU, 0) = %v, want 1.0", got)
	}
	if got := s.TotalQuantity(ResourceGPU); got != 0 {
		t.Errorf("TotalQuantity(GPU) = %v, want 0", got)
	}
}

func TestResourceClaimSet_CloneIsIndependent(t *testing.T) {
	s := NewResourceClaimSet()
	s.AddClaim(ResourceCPU, 0, 1.0)

	cloned := s.Clone()
	cloned.AddClaim(ResourceCPU, 1, 1.0)

	if got := s.TotalQuantity(ResourceCPU); got != 1.0 {
		t.Errorf("original mutated through clone: total = %v, want 1.0", got)
	}
}
