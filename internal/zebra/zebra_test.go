package zebra

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

// Test streams are built from 82-word physical payloads, the smallest the
// format allows (NWPHR=90).
const testPayloadWords = minPhysicalWords - physHeaderWords

func be(words ...uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

// packet frames payload words into one physical record, zero padded to the
// minimum legal size.
func packet(tb testing.TB, nwtolr int, words []uint32, flags uint32) []byte {
	tb.Helper()
	if len(words) > testPayloadWords {
		tb.Fatalf("payload %d words does not fit %d", len(words), testPayloadWords)
	}
	padded := make([]uint32, testPayloadWords)
	copy(padded, words)
	hdr := []uint32{
		physMagic[0], physMagic[1], physMagic[2], physMagic[3],
		flags<<24 | minPhysicalWords, 1, uint32(nwtolr), 0,
	}
	return append(be(hdr...), be(padded...)...)
}

// userRecord builds the words of one start-type logical record holding a
// single bank with the given data words.
func userRecord(bank, recno, runno uint32, data []uint32) []uint32 {
	ndw := uint32(len(data))
	words := []uint32{
		24 + ndw, lrStart,
		logicalMagic, 0, 0, 0, // LH words 0-3
		0, 0, 0, // NWTX, NWSEG, NWTAB
		11 + ndw, // NWBK
		0,        // LENTRY
		3,        // NWUHIO
		1, recno, runno, // UHIOCW plus two-word user header
		1, 0, // I/O control block header and descriptor
		0, 0, 0, 0, bank, 0, 0, ndw, 0, // bank header
	}
	return append(words, data...)
}

// runMark builds a run-marker logical record. nrun <= 0 flags end of run.
func runMark(nrun int32) []uint32 {
	return []uint32{1, lrRunMark, uint32(nrun)}
}

const testBank = 0x54534554 // "TEST" in hollerith order

func newAssembler(stream ...[]byte) *Assembler {
	return NewAssembler(NewPhysicalReader(bytes.NewReader(bytes.Join(stream, nil))))
}

func TestAssembleSingleRecord(t *testing.T) {
	data := []uint32{0xDEADBEEF, 42, 7}
	words := append(userRecord(testBank, 3, 9000, data), runMark(-1)...)
	a := newAssembler(packet(t, physHeaderWords, words, 0))

	ud, err := a.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ud.RecordNo != 3 || ud.RunNo != 9000 {
		t.Errorf("user header = (%d, %d), want (3, 9000)", ud.RecordNo, ud.RunNo)
	}
	if got := ud.Bank.Name(); got != "TEST" {
		t.Errorf("bank name = %q, want TEST", got)
	}
	if ud.Bank.DataWords != 3 {
		t.Errorf("NDW = %d, want 3", ud.Bank.DataWords)
	}
	cur := ud.Cursor()
	w, err := cur.RawUint32(0)
	if err != nil || w != 0xDEADBEEF {
		t.Errorf("data word 0 = %08x, %v", w, err)
	}

	if _, err := a.Next(); err != io.EOF {
		t.Errorf("after end-of-run marker, err = %v, want io.EOF", err)
	}
}

func TestAssembleMultipleRecordsPerPacket(t *testing.T) {
	var words []uint32
	words = append(words, userRecord(testBank, 1, 1, []uint32{10})...)
	words = append(words, userRecord(testBank, 2, 1, []uint32{20})...)
	words = append(words, runMark(0)...)
	a := newAssembler(packet(t, physHeaderWords, words, 0))

	for i, want := range []uint32{10, 20} {
		ud, err := a.Next()
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if w, _ := ud.Cursor().RawUint32(0); w != want {
			t.Errorf("record %d data = %d, want %d", i, w, want)
		}
	}
	if _, err := a.Next(); err != io.EOF {
		t.Errorf("err = %v, want io.EOF", err)
	}
}

func TestAssembleSpanningContinuation(t *testing.T) {
	data := make([]uint32, 90)
	for i := range data {
		data[i] = uint32(i)
	}
	rec := userRecord(testBank, 1, 1, data) // 116 words with control words

	for name, second := range map[string][]byte{
		// NWTOLR=0: the whole continuation packet belongs to the record.
		"all-continuation": packet(t, 0, rec[testPayloadWords:], 0),
		// NWTOLR past the header: only the leading words continue the record.
		"partial-continuation": packet(t, physHeaderWords+len(rec)-testPayloadWords, rec[testPayloadWords:], 0),
	} {
		t.Run(name, func(t *testing.T) {
			a := newAssembler(
				packet(t, physHeaderWords, rec[:testPayloadWords], 0),
				second,
				packet(t, physHeaderWords, runMark(-1), 0),
			)
			ud, err := a.Next()
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if ud.Bank.DataWords != 90 {
				t.Fatalf("NDW = %d, want 90", ud.Bank.DataWords)
			}
			if w, _ := ud.Cursor().RawUint32(89); w != 89 {
				t.Errorf("last data word = %d, want 89", w)
			}
			if _, err := a.Next(); err != io.EOF {
				t.Errorf("err = %v, want io.EOF", err)
			}
		})
	}
}

func TestAssembleExtensionStitching(t *testing.T) {
	data := []uint32{1, 2, 3, 4, 5, 6, 7, 8}
	full := userRecord(testBank, 1, 1, data)
	ldata := full[2:] // 32 words

	// Split the bank across a start record and an extension record.
	cut := 28
	var words []uint32
	words = append(words, uint32(cut), lrStart)
	words = append(words, ldata[:cut]...)
	words = append(words, uint32(len(ldata)-cut), lrExtension)
	words = append(words, ldata[cut:]...)
	words = append(words, runMark(-1)...)

	a := newAssembler(packet(t, physHeaderWords, words, 0))
	ud, err := a.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if w, _ := ud.Cursor().RawUint32(7); w != 8 {
		t.Errorf("last data word = %d, want 8", w)
	}
}

func TestAssembleBankWordMismatch(t *testing.T) {
	rec := userRecord(testBank, 1, 1, []uint32{1, 2, 3})
	rec[9] = 11 + 2 // NWBK one word short of what the record carries
	a := newAssembler(packet(t, physHeaderWords, append(rec, runMark(-1)...), 0))

	_, err := a.Next()
	var se *StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StructuralError", err)
	}
}

func TestAssembleBadLogicalMagic(t *testing.T) {
	rec := userRecord(testBank, 1, 1, []uint32{1})
	rec[2] = 0x12345678
	a := newAssembler(packet(t, physHeaderWords, rec, 0))

	_, err := a.Next()
	var se *StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StructuralError", err)
	}
}

func TestAssemblePaddingRecordsSkipped(t *testing.T) {
	a := newAssembler(
		packet(t, physHeaderWords, []uint32{40, lrPad, 0xBAD}, 0),
		packet(t, physHeaderWords, append(userRecord(testBank, 1, 1, []uint32{5}), runMark(-1)...), 0),
	)
	ud, err := a.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if w, _ := ud.Cursor().RawUint32(0); w != 5 {
		t.Errorf("data word = %d, want 5", w)
	}
}

func TestAssembleEmergencyStopDiscarded(t *testing.T) {
	junk := userRecord(testBank, 99, 99, []uint32{0xBAD})
	a := newAssembler(
		packet(t, physHeaderWords, junk, flagEmergencyStop),
		packet(t, physHeaderWords, append(userRecord(testBank, 1, 1, []uint32{5}), runMark(-1)...), 0),
	)
	ud, err := a.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ud.RecordNo != 1 {
		t.Errorf("RecordNo = %d, want 1 (emergency packet should be discarded)", ud.RecordNo)
	}
}

func TestAssembleEOFWithoutEndOfRun(t *testing.T) {
	a := newAssembler(packet(t, physHeaderWords, userRecord(testBank, 1, 1, []uint32{5}), 0))
	if _, err := a.Next(); err != nil {
		t.Fatalf("first record: %v", err)
	}
	_, err := a.Next()
	var pe *PrematureEOFError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PrematureEOFError", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("PrematureEOFError should unwrap to io.ErrUnexpectedEOF")
	}
}

func TestAssembleTruncatedMidRecord(t *testing.T) {
	data := make([]uint32, 90)
	rec := userRecord(testBank, 1, 1, data)
	// Only the first packet of a spanning record is present.
	a := newAssembler(packet(t, physHeaderWords, rec[:testPayloadWords], 0))
	_, err := a.Next()
	var pe *PrematureEOFError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PrematureEOFError", err)
	}
}

func TestPhysicalBadMagic(t *testing.T) {
	pkt := packet(t, physHeaderWords, runMark(-1), 0)
	pkt[0] ^= 0xFF
	p := NewPhysicalReader(bytes.NewReader(pkt))
	_, _, err := p.nextPacket()
	var se *StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StructuralError", err)
	}
}

func TestPhysicalResync(t *testing.T) {
	garbage := []byte{0x00, 0x42, 0x13, 0x37, 0x99}
	pkt := packet(t, physHeaderWords, runMark(-1), 0)

	p := NewPhysicalReader(bytes.NewReader(append(garbage, pkt...)))
	p.Resync = true
	_, _, err := p.nextPacket()
	if err != nil {
		t.Fatalf("nextPacket with resync: %v", err)
	}
	if p.PacketStart() != int64(len(garbage)) {
		t.Errorf("PacketStart = %d, want %d", p.PacketStart(), len(garbage))
	}
}

func TestPhysicalShortNWPHR(t *testing.T) {
	pkt := packet(t, physHeaderWords, nil, 0)
	binary.BigEndian.PutUint32(pkt[16:], 50) // NWPHR below the legal floor
	p := NewPhysicalReader(bytes.NewReader(pkt))
	_, _, err := p.nextPacket()
	var se *StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StructuralError", err)
	}
}

func TestPhysicalTruncatedPayload(t *testing.T) {
	pkt := packet(t, physHeaderWords, nil, 0)
	p := NewPhysicalReader(bytes.NewReader(pkt[:len(pkt)-40]))
	_, _, err := p.nextPacket()
	var pe *PrematureEOFError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PrematureEOFError", err)
	}
}

func TestPhysicalCleanEOF(t *testing.T) {
	p := NewPhysicalReader(bytes.NewReader(nil))
	_, _, err := p.nextPacket()
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestPhysicalCounters(t *testing.T) {
	pkt := packet(t, physHeaderWords, runMark(-1), 0)
	p := NewPhysicalReader(bytes.NewReader(append(pkt, pkt...)))
	for i := 0; i < 2; i++ {
		if _, _, err := p.nextPacket(); err != nil {
			t.Fatalf("packet %d: %v", i, err)
		}
	}
	if p.PacketsFound() != 2 {
		t.Errorf("PacketsFound = %d, want 2", p.PacketsFound())
	}
	if p.BytesRead() != int64(2*len(pkt)) {
		t.Errorf("BytesRead = %d, want %d", p.BytesRead(), 2*len(pkt))
	}
	if p.PacketStart() != int64(len(pkt)) {
		t.Errorf("PacketStart = %d, want %d", p.PacketStart(), len(pkt))
	}
}
