package zebra

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/Whipple10m/fzreader/internal/monitoring"
)

// ZEBRA exchange-format physical record constants. The layout is fixed by
// the CERN ZEBRA writeups (Q100/Q101, chapter 10) and by three decades of
// recorded Whipple data, so none of these are tunable.
const (
	physHeaderWords = 8  // four magic words plus NWPHR, PRC, NWTOLR, NFAST
	physHeaderBytes = physHeaderWords * 4

	// Smallest legal physical record, in words. Anything shorter means the
	// header itself is corrupt.
	minPhysicalWords = 90

	// Emergency-stop bit in the NWPHR flags byte. Packets carrying it were
	// aborted by the writer and must be discarded whole.
	flagEmergencyStop = 0x80
)

// The four magic words opening every physical record header.
var physMagic = [4]uint32{0x0123CDEF, 0x80708070, 0x4321ABCD, 0x80618061}

// errEmergencyStop is returned by nextPacket when a packet was read and
// discarded because its emergency-stop flag was set. The caller restarts
// its read from scratch.
var errEmergencyStop = errors.New("zebra: emergency stop packet discarded")

// PhysicalReader segments an ordered byte stream into ZEBRA physical record
// payloads. It advances the source by exactly one record per call, so a
// failure never leaves the stream at an ambiguous offset relative to record
// boundaries.
type PhysicalReader struct {
	src io.Reader

	// Resync slides the header window one byte at a time until the magic
	// words line up. It recovers files that carry tape blocking garbage
	// between records, at the cost of possibly misreading corrupt ones.
	Resync bool

	// Trace enables diagnostic logging of every header via monitoring.Logf.
	Trace bool

	bytesRead    int64
	packetsFound int
	packetStart  int64
}

// NewPhysicalReader wraps src. The reader takes no ownership of src; closing
// is the caller's concern.
func NewPhysicalReader(src io.Reader) *PhysicalReader {
	return &PhysicalReader{src: src}
}

// BytesRead reports the total number of bytes consumed from the source.
func (p *PhysicalReader) BytesRead() int64 { return p.bytesRead }

// PacketsFound reports how many physical record headers have been seen.
func (p *PhysicalReader) PacketsFound() int { return p.packetsFound }

// PacketStart reports the byte offset of the most recent physical header.
// Diagnostics quote it so a corrupt file can be inspected at the right spot.
func (p *PhysicalReader) PacketStart() int64 { return p.packetStart }

// nextPacket reads one physical record and returns the word offset of the
// first logical record within it (NWTOLR) and the payload bytes. It returns
// io.EOF at a clean end of stream, errEmergencyStop for a discarded packet,
// a PrematureEOFError if the source dries up mid-record, and a
// StructuralError for malformed headers.
func (p *PhysicalReader) nextPacket() (nwtolr int, data []byte, err error) {
	p.packetStart = p.bytesRead

	header := make([]byte, physHeaderBytes)
	n, err := io.ReadFull(p.src, header)
	p.bytesRead += int64(n)
	if n == 0 && (err == io.EOF || err == io.ErrUnexpectedEOF) {
		return 0, nil, io.EOF
	}
	if err != nil {
		return 0, nil, prematuref(p.packetStart, "physical record header could not be read")
	}

	for !magicMatches(header) {
		if !p.Resync {
			return 0, nil, structuralf(p.packetStart,
				"physical record magic not found, values were %08x %08x %08x %08x",
				binary.BigEndian.Uint32(header[0:4]), binary.BigEndian.Uint32(header[4:8]),
				binary.BigEndian.Uint32(header[8:12]), binary.BigEndian.Uint32(header[12:16]))
		}
		// Slide the window by one byte and try again.
		copy(header, header[1:])
		n, err := io.ReadFull(p.src, header[physHeaderBytes-1:])
		p.bytesRead += int64(n)
		if err != nil {
			return 0, nil, prematuref(p.packetStart, "end of stream while resynchronising header")
		}
		p.packetStart++
	}

	nwphr := binary.BigEndian.Uint32(header[16:20])
	flags := nwphr >> 24
	nwphr &= 0xFFFFFF
	prc := binary.BigEndian.Uint32(header[20:24])
	nwtolr = int(binary.BigEndian.Uint32(header[24:28]))
	nfast := binary.BigEndian.Uint32(header[28:32])

	p.packetsFound++
	if p.Trace {
		monitoring.Logf("PH: packet %d at byte %d: NWPHR=%d PRC=%d NWTOLR=%d NFAST=%d FLAGS=0x%02x",
			p.packetsFound, p.packetStart, nwphr, prc, nwtolr, nfast, flags)
	}

	if nwphr < minPhysicalWords {
		return 0, nil, structuralf(p.packetStart, "physical record length error: NWPHR=%d", nwphr)
	}

	data = make([]byte, (int(nwphr)*(1+int(nfast))-physHeaderWords)*4)
	n, err = io.ReadFull(p.src, data)
	p.bytesRead += int64(n)
	if err != nil {
		return 0, nil, prematuref(p.packetStart,
			"physical record payload could not be read: wanted %d bytes, got %d", len(data), n)
	}

	if flags&flagEmergencyStop != 0 {
		if p.Trace {
			monitoring.Logf("PH: emergency stop flag set, packet discarded")
		}
		return 0, nil, errEmergencyStop
	}

	return nwtolr, data, nil
}

func magicMatches(header []byte) bool {
	for i, want := range physMagic {
		if binary.BigEndian.Uint32(header[i*4:i*4+4]) != want {
			return false
		}
	}
	return true
}
