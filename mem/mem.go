// Package mem defines the shared memory image handed to every hardware
// unit that touches storage (instruction memory, data memory, and the
// minimal assembler/loader). No matter which microarchitecture is
// simulated, exactly one of these backs the whole run.
package mem

// Size is the fixed size of a Y86-64 memory image: 64 KiB.
const Size = 1 << 16

// Image is a fixed-size byte array shared by every unit that reads or
// writes memory during a cycle. It has no notion of cycles itself;
// callers (hardware units) are responsible for bounds checking before
// they touch it, matching the real hardware: a bad address is a unit
// concern (it sets `error`), not a memory concern.
type Image struct {
	data [Size]byte
}

// New returns a zeroed memory image.
func New() *Image {
	return &Image{}
}

// FromBytes copies src to the start of a new image; the bytes after it
// stay zero if src is shorter than Size. Panics if src is longer than Size: that's a
// loader bug, not a runtime condition this module needs to recover from.
func FromBytes(src []byte) *Image {
	if len(src) > Size {
		panic("mem: image source larger than 64 KiB")
	}
	img := &Image{}
	copy(img.data[:], src)
	return img
}

// Bytes returns the live backing array as a slice (cmd/yas writes it
// out as the object image). Callers must not
// retain it across further simulation steps without copying.
func (m *Image) Bytes() []byte {
	return m.data[:]
}

// Snapshot returns an independent copy of the current memory contents.
func (m *Image) Snapshot() [Size]byte {
	return m.data
}

// ReadByte returns the byte at addr. Callers must ensure addr < Size.
func (m *Image) ReadByte(addr uint64) byte {
	return m.data[addr]
}

// WriteByte stores val at addr. Callers must ensure addr < Size.
func (m *Image) WriteByte(addr uint64, val byte) {
	m.data[addr] = val
}

// ReadRange returns the n bytes starting at addr as a slice of the live
// image; writes through it change the image. Callers must ensure
// addr+n <= Size.
func (m *Image) ReadRange(addr uint64, n int) []byte {
	return m.data[addr : addr+uint64(n)]
}

// ReadU64 decodes 8 little-endian bytes starting at addr. Callers must
// ensure addr+8 <= Size.
func (m *Image) ReadU64(addr uint64) uint64 {
	return GetU64(m.data[addr : addr+8])
}

// WriteU64 encodes v as 8 little-endian bytes starting at addr. Callers
// must ensure addr+8 <= Size.
func (m *Image) WriteU64(addr uint64, v uint64) {
	PutU64(m.data[addr:addr+8], v)
}

// GetU64 decodes the first 8 bytes of b as a little-endian uint64.
func GetU64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// PutU64 encodes v into the first 8 bytes of b as little-endian.
func PutU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v)
		v >>= 8
	}
}
