package hw

import "github.com/y86sim/archlab/mem"

// DataMemoryIn is the input port set for the data-memory unit.
type DataMemoryIn struct {
	Addr    uint64
	DataIn  uint64
	Read    bool
	Write   bool
}

// DataMemoryOut is the output port set for the data-memory unit.
type DataMemoryOut struct {
	DataOut uint64
	Error   bool
}

// DataMemory is the `dmem` unit. A write is applied before a read is
// taken within the same evaluation, matching a real hardware write
// port; since no description ever asserts both Read and Write for the
// same instruction this has no observable effect beyond the ordering
// the spec calls out explicitly (spec.md §5).
type DataMemory struct {
	Binary *mem.Image
}

// Eval implements the dmem unit contract.
func (u DataMemory) Eval(in DataMemoryIn) DataMemoryOut {
	if in.Addr >= mem.Size-8 {
		return DataMemoryOut{Error: true}
	}
	var out DataMemoryOut
	if in.Write {
		u.Binary.WriteU64(in.Addr, in.DataIn)
	}
	if in.Read {
		out.DataOut = u.Binary.ReadU64(in.Addr)
	}
	return out
}
