package graph_test

import (
	"testing"

	"github.com/y86sim/archlab/graph"
)

// TestCycleError is grounded on circular_dep.rs: two signals that read
// each other form no valid evaluation order.
func TestCycleError(t *testing.T) {
	b := graph.NewBuilder()
	b.Signal("a", []string{"b"}, func() {})
	b.Signal("b", []string{"a"}, func() {})

	_, err := b.Build()
	if err == nil {
		t.Fatal("Build() = nil error, want CycleError")
	}
	cycleErr, ok := err.(graph.CycleError)
	if !ok {
		t.Fatalf("Build() error = %T (%v), want graph.CycleError", err, err)
	}
	if len(cycleErr.Remaining) != 2 {
		t.Errorf("CycleError.Remaining = %v, want both a and b", cycleErr.Remaining)
	}
}

// TestUnboundInputError is grounded on unused_unit_in.rs: a unit reads
// a name no node in the graph produces and no External declares.
func TestUnboundInputError(t *testing.T) {
	b := graph.NewBuilder()
	b.Unit("alu", []string{"aluA"}, []string{"e"}, func() {})

	_, err := b.Build()
	if err == nil {
		t.Fatal("Build() = nil error, want UnboundInputError")
	}
	unboundErr, ok := err.(graph.UnboundInputError)
	if !ok {
		t.Fatalf("Build() error = %T (%v), want graph.UnboundInputError", err, err)
	}
	if unboundErr.Reader != "alu" || unboundErr.Name != "aluA" {
		t.Errorf("UnboundInputError = %+v, want {Reader: alu, Name: aluA}", unboundErr)
	}
}

// TestUnboundInputErrorExempt confirms External declares an escape
// hatch from the same check unused_unit_in.rs trips: a stage register's
// current value has no producer node of its own, by design.
func TestUnboundInputErrorExempt(t *testing.T) {
	b := graph.NewBuilder()
	b.External("S.PC")
	b.Unit("imem", []string{"S.PC"}, []string{"icode"}, func() {})

	if _, err := b.Build(); err != nil {
		t.Fatalf("Build() = %v, want no error", err)
	}
}

// TestDuplicateNodeError confirms registering the same node name twice
// panics rather than silently overwriting the first registration.
func TestDuplicateNodeError(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Unit() did not panic on a duplicate node name")
		}
		if _, ok := r.(graph.DuplicateNodeError); !ok {
			t.Fatalf("recovered %T (%v), want graph.DuplicateNodeError", r, r)
		}
	}()

	b := graph.NewBuilder()
	b.Signal("pc", nil, func() {})
	b.Unit("pc", nil, []string{"out"}, func() {})
}
