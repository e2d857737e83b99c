package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/fidsim/internal/dynamo"
)

func TestRK45_FullTurn(t *testing.T) {
	m := rotate(NewRK45(), precession{omega: 2 * math.Pi}, 0.01, 100)

	if !m.IsValid() {
		t.Fatal("RK45 produced invalid state")
	}
	if math.Abs(m[0]-1) > 1e-9 || math.Abs(m[1]) > 1e-9 {
		t.Errorf("after a full turn got (%.12f, %.12f), want (1, 0)", m[0], m[1])
	}
}

func TestRK45_NormDrift(t *testing.T) {
	integ := NewRK45()
	sys := precession{omega: 1}
	m := dynamo.State{0.6, 0.8, 0}
	h := 0.01

	for i := range 10000 {
		m = integ.Step(sys, m, float64(i)*h, h)
	}

	if drift := math.Abs(m.Norm() - 1); drift > 1e-9 {
		t.Errorf("|M| drifted by %e over 100 rad", drift)
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	integ := NewRK45()
	x, errNorm, hNew := integ.StepAdaptive(precession{omega: 1}, dynamo.State{1, 0, 0}, 0, 0.1, 1e-8, 1e-10)

	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}
	if errNorm <= 0 {
		t.Errorf("expected positive error estimate, got %e", errNorm)
	}
	if hNew <= 0 {
		t.Errorf("StepAdaptive returned invalid step: %f", hNew)
	}
}

func TestRK45_ShrinksStepOnLargeError(t *testing.T) {
	integ := NewRK45()
	_, errNorm, hNew := integ.StepAdaptive(precession{omega: 1}, dynamo.State{1, 0, 0}, 0, 2.0, 1e-10, 1e-12)

	if errNorm <= 1 {
		t.Fatalf("expected a rejected step, error norm %e", errNorm)
	}
	if hNew >= 2.0 {
		t.Errorf("expected smaller step after rejection, got %f", hNew)
	}
}

func TestRK45_GrowsStepOnTinyError(t *testing.T) {
	integ := NewRK45()
	_, errNorm, hNew := integ.StepAdaptive(precession{omega: 1}, dynamo.State{1, 0, 0}, 0, 1e-4, 1e-6, 1e-9)

	if errNorm >= 1 {
		t.Fatalf("tiny step rejected, error norm %e", errNorm)
	}
	if hNew <= 1e-4 {
		t.Errorf("expected a larger next step, got %e", hNew)
	}
}
