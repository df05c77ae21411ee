// Package stage implements the stage-register/control protocol: the
// only form of storage allowed to cross a simulated cycle boundary
// (spec.md §4.2). A stage register holds a named group of typed fields
// plus a two-valued control word, {bubble, stall}, that the
// microarchitecture description computes combinationally each cycle.
package stage

import "fmt"

// ControlConflictError reports that both bubble and stall were
// asserted for the same stage register in the same cycle, which the
// protocol forbids outright (spec.md §4.2, §9).
type ControlConflictError struct {
	Stage string
}

func (e ControlConflictError) Error() string {
	return fmt.Sprintf("stage %q: bubble and stall both asserted", e.Stage)
}

// Register is a named stage register carrying a value of type T. Two
// copies exist at any time: the current view (read by combinational
// logic during a cycle) and the next view (written by @set_stage-style
// assignments during the same cycle, then latched at cycle end).
type Register[T any] struct {
	name     string
	defaults T
	current  T
	next     T
	bubble   bool
	stall    bool
}

// NewRegister creates a stage register with the given name and default
// field values, initialized to those defaults.
func NewRegister[T any](name string, defaults T) *Register[T] {
	return &Register[T]{name: name, defaults: defaults, current: defaults}
}

// Current returns the value latched at the start of the present cycle.
// Combinational logic reads this; it never changes mid-cycle.
func (r *Register[T]) Current() T {
	return r.current
}

// SetNext overwrites the accumulated next-cycle value. Successive calls
// within a cycle (one per @set_stage block touching this stage)
// overwrite the whole struct; a description that needs to set fields
// individually should read Current() or a prior partial value and
// merge manually, matching how the HCL blocks set every field of a
// stage register together.
func (r *Register[T]) SetNext(v T) {
	r.next = v
}

// Bubble requests that this stage latch its declared defaults instead
// of the accumulated next value.
func (r *Register[T]) Bubble(b bool) {
	r.bubble = b
}

// Stall requests that this stage retain its current value instead of
// latching the accumulated next value.
func (r *Register[T]) Stall(s bool) {
	r.stall = s
}

// Latch resolves the stage register for the end of the current cycle
// per spec.md §4.2:
//
//	if stall:      next := current
//	elif bubble:   next := defaults
//	else:          next := accumulated field writes
//
// and then makes that resolved value the current value for the
// following cycle, clearing the control word for the next round.
func (r *Register[T]) Latch() error {
	if r.bubble && r.stall {
		return ControlConflictError{Stage: r.name}
	}
	switch {
	case r.stall:
		r.current = r.current
	case r.bubble:
		r.current = r.defaults
	default:
		r.current = r.next
	}
	r.next = r.defaults
	r.bubble = false
	r.stall = false
	return nil
}

// Name returns the stage register's alias, as used in diagnostics and
// debugger output.
func (r *Register[T]) Name() string {
	return r.name
}
