package zebra

import (
	"fmt"
	"io"
)

// StructuralError reports corruption of the ZEBRA physical, logical or bank
// layer: a malformed header, a declared length that disagrees with the bytes
// actually present, or a bank link that resolves outside the record buffer.
// It is fatal to the file being read; no partial record is exposed.
type StructuralError struct {
	// Offset is the byte offset of the physical record header that was
	// being processed when the error was detected.
	Offset int64
	Msg    string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("zebra: %s (physical header at byte %d)", e.Msg, e.Offset)
}

// PrematureEOFError reports that the byte source was exhausted in the middle
// of a physical or logical record. A clean end-of-stream at a record boundary
// is reported as io.EOF instead, never as a PrematureEOFError.
type PrematureEOFError struct {
	Offset int64
	Msg    string
}

func (e *PrematureEOFError) Error() string {
	return fmt.Sprintf("zebra: %s (physical header at byte %d)", e.Msg, e.Offset)
}

// Unwrap lets errors.Is(err, io.ErrUnexpectedEOF) classify truncation.
func (e *PrematureEOFError) Unwrap() error { return io.ErrUnexpectedEOF }

func structuralf(offset int64, format string, v ...any) error {
	return &StructuralError{Offset: offset, Msg: fmt.Sprintf(format, v...)}
}

func prematuref(offset int64, format string, v ...any) error {
	return &PrematureEOFError{Offset: offset, Msg: fmt.Sprintf(format, v...)}
}
