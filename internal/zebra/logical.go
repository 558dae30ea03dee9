package zebra

import (
	"encoding/binary"
	"io"

	"github.com/Whipple10m/fzreader/internal/monitoring"
)

// Logical record types of the exchange format.
const (
	lrRunMark   = 1 // start- or end-of-run marker
	lrStart     = 2 // first (or only) part of a logical record
	lrStartAlt  = 3
	lrExtension = 4 // continuation of the previous start record
	lrPad       = 5 // padding, skipped
	lrPadEnd    = 6
	lrMaxType   = 6
)

const (
	logicalMagic       = 0x4640E400
	logicalHeaderWords = 10
	bankHeaderWords    = 9
)

// Assembler reassembles logical records from physical record payloads,
// carrying unused payload bytes across packet boundaries, and exposes each
// completed record as a directory-addressed bank with a typed-segment
// cursor. It never exposes a partially assembled record.
type Assembler struct {
	phys *PhysicalReader

	// Trace enables diagnostic logging via monitoring.Logf.
	Trace bool

	saved    []byte // unused physical payload, owed to the next logical record
	endOfRun bool   // an end-of-run marker record has been seen
}

// NewAssembler wraps a physical reader.
func NewAssembler(p *PhysicalReader) *Assembler {
	return &Assembler{phys: p}
}

// Physical returns the underlying physical reader, for byte and packet
// accounting.
func (a *Assembler) Physical() *PhysicalReader { return a.phys }

// UserData is one fully assembled logical record: the user header words and
// the top-level bank, whose data segments are read through Cursor.
type UserData struct {
	RecordNo uint32
	RunNo    uint32
	Bank     BankHeader

	arena *Arena
	limit int // bank data extent in words
}

// Cursor returns a typed-segment cursor positioned at the start of the
// bank's data region.
func (u *UserData) Cursor() *Cursor {
	return &Cursor{arena: u.arena, pos: 0, limit: u.limit}
}

// Next assembles and returns the next logical record. It returns io.EOF at
// a clean end of stream following an end-of-run marker, a PrematureEOFError
// if the stream ends mid-record or without the end-of-run marker, and a
// StructuralError on any malformed header or inconsistent declared length.
func (a *Assembler) Next() (*UserData, error) {
	for {
		ud, err := a.next()
		if err == errEmergencyStop {
			// The discarded packet takes any carried payload with it.
			a.saved = nil
			continue
		}
		return ud, err
	}
}

// readLogical returns the next logical record's type and contents, skipping
// padding. The returned data is complete: extension stitching is the
// caller's concern, but physical-packet spanning is resolved here.
func (a *Assembler) readLogical() (nwlr int, lrtyp int, data []byte, err error) {
	for nwlr == 0 {
		var pdata []byte
		if len(a.saved) > 0 {
			pdata, a.saved = a.saved, nil
		} else {
			nwtolr, fresh, err := a.phys.nextPacket()
			if err != nil {
				if err == io.EOF {
					return 0, 0, nil, io.EOF
				}
				return 0, 0, nil, err
			}
			if nwtolr != physHeaderWords {
				return 0, 0, nil, structuralf(a.phys.packetStart,
					"physical packet has unexpected data before logical record")
			}
			pdata = fresh
		}

		if len(pdata) == 4 {
			// A lone trailing word can only be implicit padding.
			if v := binary.BigEndian.Uint32(pdata); v != 0 {
				return 0, 0, nil, structuralf(a.phys.packetStart, "logical record size error: %d", v)
			}
			continue
		}
		if len(pdata) < 8 {
			return 0, 0, nil, structuralf(a.phys.packetStart, "logical record control words truncated")
		}

		nwlr = int(binary.BigEndian.Uint32(pdata[0:4]))
		lrtyp = int(binary.BigEndian.Uint32(pdata[4:8]))

		if lrtyp > lrMaxType {
			return 0, 0, nil, structuralf(a.phys.packetStart, "logical record type error: LRTYP=%d", lrtyp)
		}
		switch {
		case nwlr == 0:
			// Implicit padding word; drop it and look again.
			a.saved = pdata[4:]
		case lrtyp == lrPad || lrtyp == lrPadEnd:
			// Padding records sit at the end of a physical record; the
			// remainder of the packet is discarded with them.
			if a.Trace {
				monitoring.Logf("LH: NWLR=%d LRTYP=%d (padding, skipped)", nwlr, lrtyp)
			}
			nwlr = 0
		case nwlr*4 < len(pdata)-8:
			// The packet holds more data beyond this record. The record is
			// copied out so later extension appends cannot clobber the
			// carried payload, which shares the packet buffer.
			data = append([]byte(nil), pdata[8:nwlr*4+8]...)
			a.saved = pdata[nwlr*4+8:]
		default:
			data = pdata[8:]
		}
	}

	// Pull continuation packets until the record is complete.
	for nwlr*4 > len(data) {
		if len(a.saved) > 0 {
			return 0, 0, nil, structuralf(a.phys.packetStart,
				"logic error: carried payload present while logical record incomplete")
		}
		nwtolr, pdata, err := a.phys.nextPacket()
		if err != nil {
			if err == io.EOF {
				return 0, 0, nil, prematuref(a.phys.packetStart, "end of stream with incomplete logical record")
			}
			return 0, 0, nil, err
		}
		switch {
		case nwtolr == 0:
			data = append(data, pdata...)
		case nwtolr > physHeaderWords:
			data = append(data, pdata[:(nwtolr-physHeaderWords)*4]...)
			a.saved = pdata[(nwtolr-physHeaderWords)*4:]
		default:
			return 0, 0, nil, structuralf(a.phys.packetStart,
				"new logical record while processing incomplete logical record")
		}
	}

	return nwlr, lrtyp, data, nil
}

func (a *Assembler) next() (*UserData, error) {
	var (
		nwlr  int
		lrtyp int
		ldata []byte
		err   error
	)

	// Find the next start record, noting run markers on the way.
	for lrtyp != lrStart && lrtyp != lrStartAlt {
		nwlr, lrtyp, ldata, err = a.readLogical()
		if err == io.EOF {
			if !a.endOfRun {
				return nil, prematuref(a.phys.packetStart, "end of stream before end-of-run record")
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		switch lrtyp {
		case lrRunMark:
			if nwlr > 0 {
				nrun := int32(binary.BigEndian.Uint32(ldata[0:4]))
				if a.Trace {
					monitoring.Logf("LH: NWLR=%d LRTYP=%d NRUN=%d", nwlr, lrtyp, nrun)
				}
				if nrun <= 0 {
					a.endOfRun = true
				}
			}
		case lrExtension:
			return nil, structuralf(a.phys.packetStart, "logical extension found where start expected")
		}
	}

	if nwlr < logicalHeaderWords {
		return nil, structuralf(a.phys.packetStart,
			"logical record too short for header: %d words", nwlr)
	}
	if magic := binary.BigEndian.Uint32(ldata[0:4]); magic != logicalMagic {
		return nil, structuralf(a.phys.packetStart, "logical record magic not found: %08x", magic)
	}
	nwtx := int(binary.BigEndian.Uint32(ldata[16:20]))
	nwseg := int(binary.BigEndian.Uint32(ldata[20:24]))
	nwtab := int(binary.BigEndian.Uint32(ldata[24:28]))
	nwbk := int(binary.BigEndian.Uint32(ldata[28:32]))
	nwuhio := int(binary.BigEndian.Uint32(ldata[36:40]))
	nwbkst := nwlr - (logicalHeaderWords + nwuhio + nwseg + nwtx + nwtab)

	if a.Trace {
		monitoring.Logf("LH: NWLR=%d LRTYP=%d NWTX=%d NWSEG=%d NWTAB=%d NWBK=%d NWUHIO=%d NWBKST=%d",
			nwlr, lrtyp, nwtx, nwseg, nwtab, nwbk, nwuhio, nwbkst)
	}

	// Concatenate extension records until the declared bank words arrive.
	for nwbkst < nwbk {
		xnwlr, xlrtyp, xdata, err := a.readLogical()
		if err == io.EOF {
			return nil, prematuref(a.phys.packetStart, "end of stream while searching for logical extension")
		}
		if err != nil {
			return nil, err
		}
		switch xlrtyp {
		case lrStart, lrStartAlt:
			return nil, structuralf(a.phys.packetStart, "logical start found where extension expected")
		case lrExtension:
			ldata = append(ldata, xdata...)
			nwbkst += xnwlr
		default:
			if a.Trace {
				monitoring.Logf("LH: NWLR=%d LRTYP=%d (skipped)", xnwlr, xlrtyp)
			}
		}
	}
	if nwbkst != nwbk {
		return nil, structuralf(a.phys.packetStart,
			"bank words found do not match declared count: %d != %d", nwbkst, nwbk)
	}

	// Step over the optional user-header I/O control word, the user header
	// itself, and the segment, text and relocation tables.
	pos := logicalHeaderWords
	total := len(ldata) / 4
	nwuh := nwuhio
	if nwuhio != 0 {
		if pos >= total {
			return nil, structuralf(a.phys.packetStart, "user header control word missing")
		}
		uhiocw := binary.BigEndian.Uint32(ldata[pos*4 : pos*4+4])
		pos++
		nwuh = nwuhio - nio(uhiocw)
	}

	word := func(i int) uint32 { return binary.BigEndian.Uint32(ldata[i*4 : i*4+4]) }
	need := func(n int, what string) error {
		if pos+n > total {
			return structuralf(a.phys.packetStart,
				"user data does not have full %s sequence: %d+%d > %d", what, pos, n, total)
		}
		return nil
	}

	ud := &UserData{}
	if err := need(nwuh, "UH"); err != nil {
		return nil, err
	}
	if nwuh >= 2 {
		ud.RecordNo = word(pos)
		ud.RunNo = word(pos + 1)
	}
	pos += nwuh

	for _, tab := range []struct {
		n    int
		name string
	}{{nwseg, "ST"}, {nwtx, "TV"}, {nwtab, "RT"}} {
		if err := need(tab.n, tab.name); err != nil {
			return nil, err
		}
		pos += tab.n
	}

	if err := need(1, "IOCBH"); err != nil {
		return nil, err
	}
	iocb := word(pos)
	pos++
	if err := need(nio(iocb), "IOCBD"); err != nil {
		return nil, err
	}
	pos += nio(iocb)

	if err := need(bankHeaderWords, "BH"); err != nil {
		return nil, err
	}
	ud.Bank = BankHeader{
		NextLink:   word(pos),
		UpLink:     word(pos + 1),
		OriginLink: word(pos + 2),
		NumericID:  word(pos + 3),
		NameID:     word(pos + 4),
		NumLinks:   word(pos + 5),
		StructLink: word(pos + 6),
		DataWords:  word(pos + 7),
		Status:     word(pos + 8),
	}
	pos += bankHeaderWords

	// Structural relations must land inside this record; the banks share
	// the arena and hold no owning references.
	for _, link := range []struct {
		v    uint32
		name string
	}{{ud.Bank.NextLink, "next"}, {ud.Bank.UpLink, "up"}, {ud.Bank.OriginLink, "origin"}} {
		if int(link.v) > total {
			return nil, structuralf(a.phys.packetStart,
				"bank %q link %s resolves outside logical record: %d > %d words",
				ud.Bank.Name(), link.name, link.v, total)
		}
	}
	if int(ud.Bank.DataWords) > total-pos {
		return nil, structuralf(a.phys.packetStart,
			"bank %q data extent exceeds logical record: %d > %d words",
			ud.Bank.Name(), ud.Bank.DataWords, total-pos)
	}

	if a.Trace {
		monitoring.Logf("BH: HBID=%q NDW=%d NLINK=%d STATUS=%d",
			ud.Bank.Name(), ud.Bank.DataWords, ud.Bank.NumLinks, ud.Bank.Status)
	}

	ud.arena = &Arena{buf: ldata[pos*4:], phOffset: a.phys.packetStart}
	ud.limit = int(ud.Bank.DataWords)
	return ud, nil
}

// nio gives the length in words of an I/O control block's descriptor data.
func nio(iocb uint32) int {
	if iocb < 12 {
		return 1
	}
	return int(iocb&0xFFFF) - 12
}
