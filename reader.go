package fzreader

import (
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Whipple10m/fzreader/internal/zebra"
)

// Options configures a Reader.
type Options struct {
	// Resync slides past garbage between physical records instead of
	// failing on the first bad header. Useful for tape images with
	// inter-record blocking noise.
	Resync bool

	// Trace logs every physical and logical header seen.
	Trace bool
}

// Reader iterates the decoded records of one data file. It is lazy and
// forward only: each Next call pulls just enough of the stream to assemble
// one logical record. Records decoded before a corruption are yielded
// normally; the error surfaces on the pull that hits it. A Reader is not
// safe for concurrent use.
type Reader struct {
	src io.ReadCloser
	cmd *exec.Cmd // external decompressor, when one is in play
	asm *zebra.Assembler
	err error // sticky fatal error
}

// Open opens path and stacks the right decompressor in front of the decoder,
// chosen by file extension. Uncompressed files and unrecognized extensions
// are read as-is.
func Open(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".bz2":
		return newReader(readCloser{bzip2.NewReader(f), f}, nil, opts), nil
	case ".gz", ".fzg":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return newReader(readCloser{zr, f}, nil, opts), nil
	case ".z", ".fzz":
		// Unix compress wrote LZW in block mode, which compress/lzw does
		// not speak. Shell out instead.
		f.Close()
		cmd := exec.Command("gunzip", "-c", path)
		out, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return newReader(readCloser{out, out}, cmd, opts), nil
	default:
		return newReader(f, nil, opts), nil
	}
}

// NewReader decodes from an already-open source. The Reader assumes
// ownership and closes src.
func NewReader(src io.ReadCloser, opts Options) *Reader {
	return newReader(src, nil, opts)
}

func newReader(src io.ReadCloser, cmd *exec.Cmd, opts Options) *Reader {
	phys := zebra.NewPhysicalReader(src)
	phys.Resync = opts.Resync
	phys.Trace = opts.Trace
	asm := zebra.NewAssembler(phys)
	asm.Trace = opts.Trace
	return &Reader{src: src, cmd: cmd, asm: asm}
}

// Next returns the next decoded record. It returns io.EOF at a clean end of
// stream. Any other error is fatal to the stream and repeats on subsequent
// calls.
func (r *Reader) Next() (*Record, error) {
	if r.err != nil {
		return nil, r.err
	}
	ud, err := r.asm.Next()
	if err != nil {
		r.err = err
		return nil, err
	}
	rec, err := decodeRecord(ud)
	if err != nil {
		r.err = err
		return nil, err
	}
	return rec, nil
}

// Close releases the byte source. It is safe to call more than once and
// after a fatal error.
func (r *Reader) Close() error {
	if r.src == nil {
		return nil
	}
	err := r.src.Close()
	r.src = nil
	if r.cmd != nil {
		// The subprocess gets SIGPIPE or EOF once its stdout is closed;
		// reap it either way. A decode abort mid-file makes a nonzero
		// exit here normal.
		r.cmd.Wait()
		r.cmd = nil
	}
	if r.err == nil {
		r.err = os.ErrClosed
	}
	return err
}

// NumBytesRead reports the bytes consumed from the (decompressed) stream.
func (r *Reader) NumBytesRead() int64 { return r.asm.Physical().BytesRead() }

// NumPacketsFound reports the physical records seen so far.
func (r *Reader) NumPacketsFound() int { return r.asm.Physical().PacketsFound() }

// LastPacketStart reports the byte offset of the most recent physical
// record header, the position diagnostics quote.
func (r *Reader) LastPacketStart() int64 { return r.asm.Physical().PacketStart() }

// readCloser pairs a decoding stream with the resource it wraps.
type readCloser struct {
	io.Reader
	c io.Closer
}

func (rc readCloser) Close() error { return rc.c.Close() }
