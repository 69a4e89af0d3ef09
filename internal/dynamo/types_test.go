package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Clone(t *testing.T) {
	a := State{1, 2, 3}
	c := a.Clone()
	c[0] = 9
	if a[0] != 1 {
		t.Errorf("Clone shares storage: %v", a)
	}
	if len(c) != 3 {
		t.Errorf("expected len 3, got %d", len(c))
	}
}

func TestFinite(t *testing.T) {
	if !Finite(0, 1, -2) {
		t.Error("expected finite values to pass")
	}
	if Finite(0, math.NaN()) {
		t.Error("expected NaN to fail")
	}
}

func TestSimError(t *testing.T) {
	err := &SimError{Time: 1.5, Step: 150, Wrapped: ErrInvalidState}
	expected := "step 150 (t=1.5000): dynamo: invalid state (NaN or Inf detected)"
	if err.Error() != expected {
		t.Errorf("SimError.Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Error("SimError should unwrap to ErrInvalidState")
	}
}
