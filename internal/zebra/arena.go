package zebra

import (
	"encoding/binary"
	"math"
)

// Arena is the flat word buffer of one assembled logical record. Banks do
// not own their linked banks; they only record word offsets into this shared
// buffer, and every view taken through the arena is bounds checked against
// it. All words are big-endian, 32 bits wide, as fixed by the exchange
// format.
type Arena struct {
	buf      []byte
	phOffset int64 // physical header offset, quoted in diagnostics
}

// Words reports the arena size in 32-bit words.
func (a *Arena) Words() int { return len(a.buf) / 4 }

// word returns the big-endian word at index i. The caller must have bounds
// checked i already.
func (a *Arena) word(i int) uint32 {
	return binary.BigEndian.Uint32(a.buf[i*4 : i*4+4])
}

// BankHeader is the 9-word header of a bank within a logical record. The
// link words are structural relations only: word offsets of related banks
// inside the same arena, never owning references.
type BankHeader struct {
	NextLink   uint32 // offset of the next sibling bank
	UpLink     uint32 // offset of the supporting (parent) bank
	OriginLink uint32 // offset of the bank's origin
	NumericID  uint32
	NameID     uint32 // hollerith 4-character identifier
	NumLinks   uint32
	StructLink uint32
	DataWords  uint32 // extent of the bank's data region, in words
	Status     uint32
}

// Name decodes the hollerith identifier into its 4-character form.
func (b BankHeader) Name() string {
	return string([]byte{
		byte(b.NameID), byte(b.NameID >> 8), byte(b.NameID >> 16), byte(b.NameID >> 24),
	})
}

// Cursor walks the typed data segments of a bank. Each segment is a one-word
// header whose upper 28 bits declare the segment length in words, followed by
// that many words of same-typed elements. The cursor validates every declared
// length against both the expected element count and the bank extent before
// touching the data.
type Cursor struct {
	arena *Arena
	pos   int // current word index
	limit int // bank extent: first word past the data region
}

// Pos reports the cursor's current word offset within the bank data.
func (c *Cursor) Pos() int { return c.pos }

// Remaining reports how many words are left before the bank extent.
func (c *Cursor) Remaining() int { return c.limit - c.pos }

// RawUint32 reads the word at offset i from the cursor origin without
// segment framing. Used for the version word of the record header, which
// precedes the typed segments.
func (c *Cursor) RawUint32(i int) (uint32, error) {
	if i < 0 || i >= c.limit {
		return 0, structuralf(c.arena.phOffset, "bank word %d outside data extent %d", i, c.limit)
	}
	return c.arena.word(i), nil
}

// RawFloat64 reads the big-endian float64 spanning words i and i+1, without
// segment framing.
func (c *Cursor) RawFloat64(i int) (float64, error) {
	if i < 0 || i+2 > c.limit {
		return 0, structuralf(c.arena.phOffset, "bank words %d-%d outside data extent %d", i, i+1, c.limit)
	}
	bits := uint64(c.arena.word(i))<<32 | uint64(c.arena.word(i+1))
	return math.Float64frombits(bits), nil
}

// Seek positions the cursor at word offset i.
func (c *Cursor) Seek(i int) { c.pos = i }

// segment validates and consumes the one-word segment header for a segment
// expected to hold nitems elements of elemLen bytes, returning the declared
// word count.
func (c *Cursor) segment(nitems, elemLen int) (int, error) {
	if c.pos+1 > c.limit {
		return 0, structuralf(c.arena.phOffset,
			"bank data has no segment header: %d+1 > %d", c.pos, c.limit)
	}
	nw := int(c.arena.word(c.pos) >> 4)
	c.pos++
	if want := (nitems*elemLen + 3) / 4; nw != want {
		return 0, structuralf(c.arena.phOffset,
			"bank segment size not as expected: %d != %d", nw, want)
	}
	if c.pos+nw > c.limit {
		return 0, structuralf(c.arena.phOffset,
			"bank data does not hold full segment: %d+%d > %d", c.pos, nw, c.limit)
	}
	return nw, nil
}

// Skip consumes a segment of nitems elements of elemLen bytes without
// decoding it. Skipping still verifies the declared size, which catches
// layout drift early.
func (c *Cursor) Skip(nitems, elemLen int) error {
	nw, err := c.segment(nitems, elemLen)
	if err != nil {
		return err
	}
	c.pos += nw
	return nil
}

// Uint32s decodes a segment of n 32-bit integers.
func (c *Cursor) Uint32s(n int) ([]uint32, error) {
	nw, err := c.segment(n, 4)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = c.arena.word(c.pos + i)
	}
	c.pos += nw
	return out, nil
}

// Uint16s decodes a segment of n 16-bit integers.
func (c *Cursor) Uint16s(n int) ([]uint16, error) {
	nw, err := c.segment(n, 2)
	if err != nil {
		return nil, err
	}
	out := make([]uint16, n)
	base := c.pos * 4
	for i := range out {
		out[i] = binary.BigEndian.Uint16(c.arena.buf[base+i*2 : base+i*2+2])
	}
	c.pos += nw
	return out, nil
}

// Float32s decodes a segment of n 32-bit floats.
func (c *Cursor) Float32s(n int) ([]float32, error) {
	nw, err := c.segment(n, 4)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(c.arena.word(c.pos + i))
	}
	c.pos += nw
	return out, nil
}

// Float64s decodes a segment of n 64-bit floats.
func (c *Cursor) Float64s(n int) ([]float64, error) {
	nw, err := c.segment(n, 8)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		bits := uint64(c.arena.word(c.pos+i*2))<<32 | uint64(c.arena.word(c.pos+i*2+1))
		out[i] = math.Float64frombits(bits)
	}
	c.pos += nw
	return out, nil
}

// Bytes decodes a segment of n characters.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	nw, err := c.segment(n, 1)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, c.arena.buf[c.pos*4:c.pos*4+n])
	c.pos += nw
	return out, nil
}

// RawBytes returns len bytes starting at byte offset off from the cursor
// origin, without segment framing. The pre-version-27 record layouts address
// a few fields this way.
func (c *Cursor) RawBytes(off, n int) ([]byte, error) {
	if off < 0 || off+n > c.limit*4 {
		return nil, structuralf(c.arena.phOffset,
			"bank bytes %d-%d outside data extent %d words", off, off+n, c.limit)
	}
	out := make([]byte, n)
	copy(out, c.arena.buf[off:off+n])
	return out, nil
}
