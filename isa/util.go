package isa

import "fmt"

// Neg8 is the two's-complement encoding of -8, used as the ALU "a"
// operand for stack-decrementing operations (CALL, PUSHQ): adding it
// to the stack pointer subtracts 8.
const Neg8 uint64 = 0xFFFFFFFFFFFFFFF8

// OneOf reports whether v equals any of the given values. It is the Go
// stand-in for the description language's `x in { A, B, C }` set
// membership operator (spec.md §4.3).
func OneOf[T comparable](v T, options ...T) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

// FormatHex renders a 64-bit value the way the debugger and tracer
// display register and address fields.
func FormatHex(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}
