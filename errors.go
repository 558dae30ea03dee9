package fzreader

import "github.com/Whipple10m/fzreader/internal/zebra"

// The decode errors callers classify with errors.As. Both carry the byte
// offset of the physical record header being processed when the problem was
// found.
type (
	// StructuralError is corruption of the physical, logical or bank layer.
	StructuralError = zebra.StructuralError
	// PrematureEOFError is a byte source exhausted mid-record; it also
	// matches errors.Is(err, io.ErrUnexpectedEOF).
	PrematureEOFError = zebra.PrematureEOFError
)
