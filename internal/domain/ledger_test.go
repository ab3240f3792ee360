package domain

import (
	"reflect"
	"testing"
)

func TestResourceInstanceLedger_ClearResetsToZero(t *testing.T) {
	l := NewResourceInstanceLedger()
	l.Set(ResourceCPU, []float64{1.0, 0.5})
	l.Set(ResourceGPU, []float64{1.0})

	l.Clear()

	if !l.IsEmpty() {
		t.Error("ledger not empty after Clear")
	}
	if got := l.Get(ResourceCPU); got != nil {
		t.Errorf("Get(CPU) after Clear = %v, want nil", got)
	}
	if got := l.Total(ResourceGPU); got != 0 {
		t.Errorf("Total(GPU) after Clear = %v, want 0", got)
	}
}

func TestResourceInstanceLedger_GetReturnsCopy(t *testing.T) {
	l := NewResourceInstanceLedger()
	l.Set(ResourceCPU, []float64{1.0, 0.5})

	vector := l.Get(ResourceCPU)
	vector[0] = 99

	if got := l.Total(ResourceCPU); got != 1.5 {
		t.Errorf("ledger mutated through Get: total = %v, want 1.5", got)
	}
}

func TestResourceInstanceLedger_ReconciledWith(t *testing.T) {
	tests := []struct {
		name   string
		ledger func() *ResourceInstanceLedger
		claims func() *ResourceClaimSet
		want   bool
	}{
		{
			name: "matching totals reconcile",
			ledger: func() *ResourceInstanceLedger {
				l := NewResourceInstanceLedger()
				l.Set(ResourceCPU, []float64{0.5, 0.5})
				return l
			},
			claims: func() *ResourceClaimSet {
				s := NewResourceClaimSet()
				s.AddClaim(ResourceCPU, 0, 1.0)
				return s
			},
			want: true,
		},
		{
			name: "ledger overshoot does not reconcile",
			ledger: func() *ResourceInstanceLedger {
				l := NewResourceInstanceLedger()
				l.Set(ResourceCPU, []float64{2.0})
				return l
			},
			claims: func() *ResourceClaimSet {
				s := NewResourceClaimSet()
				s.AddClaim(ResourceCPU, 0, 1.0)
				return s
			},
			want: false,
		},
		{
			name: "resource type missing from ledger does not reconcile",
			ledger: func() *ResourceInstanceLedger {
				return NewResourceInstanceLedger()
			},
			claims: func() *ResourceClaimSet {
				s := NewResourceClaimSet()
				s.AddClaim(ResourceGPU, 0, 1.0)
				return s
			},
			want: false,
		},
		{
			name:   "empty both sides reconcile",
			ledger: NewResourceInstanceLedger,
			claims: NewResourceClaimSet,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ledger().ReconciledWith(tt.claims()); got != tt.want {
				t.Errorf("ReconciledWith() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLedgerFromClaims(t *testing.T) {
	s := NewResourceClaimSet()
	s.AddClaim(ResourceCPU, 3, 0.5)
	s.AddClaim(ResourceCPU, 1, 1.0)
	s.AddClaim(ResourceGPU, 0, 1.0)

	l := LedgerFromClaims(s)

	// Amounts follow instance-id order.
	if got := l.Get(ResourceCPU); !reflect.DeepEqual(got, []float64{1.0, 0.5}) {
		t.Errorf("Get(CPU) = %v, want [1 0.5]", got)
	}
	if !l.ReconciledWith(s) {
		t.Error("ledger built from claims must reconcile with them")
	}
}
