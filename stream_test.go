package fzreader

// Synthetic stream builders shared by the decoder and reader tests. They
// write the same exchange-format layout the telescope DAQ produced: physical
// records with the four magic words, logical records holding one bank each,
// and typed data segments inside the bank.

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"
)

func be(words ...uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

func f64w(v float64) []uint32 {
	bits := math.Float64bits(v)
	return []uint32{uint32(bits >> 32), uint32(bits)}
}

// seg32 frames 32-bit values as one typed data segment.
func seg32(vals ...uint32) []uint32 {
	return append([]uint32{uint32(len(vals)) << 4}, vals...)
}

// seg16 packs 16-bit values into words, big-endian pairs, padded as the
// writer padded odd counts.
func seg16(vals ...uint16) []uint32 {
	nw := (2*len(vals) + 3) / 4
	words := make([]uint32, nw)
	for i, v := range vals {
		if i%2 == 0 {
			words[i/2] |= uint32(v) << 16
		} else {
			words[i/2] |= uint32(v)
		}
	}
	return append([]uint32{uint32(nw) << 4}, words...)
}

func segF32(vals ...float32) []uint32 {
	words := make([]uint32, len(vals))
	for i, v := range vals {
		words[i] = math.Float32bits(v)
	}
	return seg32(words...)
}

func segF64(vals ...float64) []uint32 {
	words := make([]uint32, 0, 2*len(vals))
	for _, v := range vals {
		words = append(words, f64w(v)...)
	}
	return append([]uint32{uint32(2*len(vals)) << 4}, words...)
}

func segBytes(b []byte) []uint32 {
	nw := (len(b) + 3) / 4
	padded := make([]byte, nw*4)
	copy(padded, b)
	words := make([]uint32, nw+1)
	words[0] = uint32(nw) << 4
	for i := 0; i < nw; i++ {
		words[i+1] = binary.BigEndian.Uint32(padded[i*4:])
	}
	return words
}

// gdfHeader builds the common record header. The header grew a word at
// version 27; the record MJD sits in its last two words either way.
func gdfHeader(version uint32, mjd float64) []uint32 {
	if version >= 27 {
		return append([]uint32{version, 0, 0, 0}, f64w(mjd)...)
	}
	return append([]uint32{version, 0, 0}, f64w(mjd)...)
}

func cat(parts ...[]uint32) []uint32 {
	var out []uint32
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// bankRecord wraps bank data words into one start-type logical record.
func bankRecord(bank uint32, data []uint32) []uint32 {
	ndw := uint32(len(data))
	words := []uint32{
		24 + ndw, 2, // NWLR, LRTYP
		0x4640E400, 0, 0, 0,
		0, 0, 0, // NWTX, NWSEG, NWTAB
		11 + ndw, // NWBK
		0,        // LENTRY
		3,        // NWUHIO
		1, 1, 1, // UHIOCW, record number, run number
		1, 0, // IOCB
		0, 0, 0, 0, bank, 0, 0, ndw, 0, // bank header
	}
	return append(words, data...)
}

func runMarkWords(nrun int32) []uint32 {
	return []uint32{1, 1, uint32(nrun)}
}

// physPacket frames logical-record words into one physical record, padded
// with implicit-padding zero words to the minimum legal size.
func physPacket(words []uint32) []byte {
	payload := len(words)
	if payload < 82 {
		payload = 82
	}
	padded := make([]uint32, payload)
	copy(padded, words)
	hdr := []uint32{
		0x0123CDEF, 0x80708070, 0x4321ABCD, 0x80618061,
		uint32(payload + 8), 1, 8, 0,
	}
	return append(be(hdr...), be(padded...)...)
}

// buildStream packs each logical record into its own physical packet and
// terminates the run.
func buildStream(records ...[]uint32) []byte {
	var buf bytes.Buffer
	for _, rec := range records {
		buf.Write(physPacket(rec))
	}
	buf.Write(physPacket(runMarkWords(-1)))
	return buf.Bytes()
}

func openStream(tb testing.TB, records ...[]uint32) *Reader {
	tb.Helper()
	r := NewReader(io.NopCloser(bytes.NewReader(buildStream(records...))), Options{})
	tb.Cleanup(func() { r.Close() })
	return r
}

// decodeOne reads exactly one record and asserts the stream then ends.
func decodeOne(tb testing.TB, record []uint32) *Record {
	tb.Helper()
	r := openStream(tb, record)
	rec, err := r.Next()
	if err != nil {
		tb.Fatalf("Next: %v", err)
	}
	if _, err := r.Next(); err != io.EOF {
		tb.Fatalf("expected io.EOF after single record, got %v", err)
	}
	return rec
}

// Per-kind record builders with plausible field values.

func testRunRecord(version uint32, runNum, sky, trig, commentLen uint32, comment string) []uint32 {
	data := cat(
		gdfHeader(version, 51000.0),
		seg32(0, 0), // status
		seg32(0, 0, 0, runNum, 0, sky, trig, 0, 0, 0, 0, 0, commentLen),
		segF32(28.0, 0, 0, 0, 0, 0, 0),
		segF64(51000.0, 51000.02),
	)
	if version >= 27 {
		obs := make([]byte, 160)
		copy(obs[80:], "ktkc")
		data = cat(data, segBytes(obs), segBytes([]byte(comment)))
	} else {
		// Fixed layout: one header word, a 20-word filename slot, 20 words
		// of observers, then the comment.
		var tail []uint32
		tail = append(tail, make([]uint32, 21)...)
		obs := make([]byte, 80)
		copy(obs, "ktkc")
		for i := 0; i < 20; i++ {
			tail = append(tail, binary.BigEndian.Uint32(obs[i*4:]))
		}
		cb := make([]byte, (commentLen+3)/4*4)
		copy(cb, comment)
		for i := 0; i < len(cb)/4; i++ {
			tail = append(tail, binary.BigEndian.Uint32(cb[i*4:]))
		}
		data = cat(data, tail)
	}
	return bankRecord(bankRun, data)
}

func testEventRecordGRS(version uint32, trigCode uint32, adc []uint16, trig []uint32) []uint32 {
	grs := [3]uint32{5000000, 0x123456, 0x123} // ticks, time, day
	if version >= 83 {
		grs = [3]uint32{500000000, 13, 52000} // ns, sec, mjd
	}
	data := cat(
		gdfHeader(version, 51000.0),
		seg32(uint32(len(adc)), 13000, 777, 12, 340000000,
			0, 0, 0, 0, 0, 0, 0, 0,
			uint32(len(trig)), 15, 250000000,
			grs[0], grs[1], grs[2], 0),
		seg32(trigCode, 0, 0, 0, 0, 0, 0),
	)
	if len(trig) > 0 {
		data = cat(data, seg32(trig...))
	}
	if len(adc) > 0 {
		data = cat(data, seg16(adc...))
	}
	data = cat(data, seg16(make([]uint16, 28)...))
	return bankRecord(bankEvent, data)
}

func testEventRecordLegacy(version uint32, trigCode uint32, adc []uint16) []uint32 {
	// Day 123, 03:35:00 on the parallel-port clock.
	high := uint16(1<<14 | 2<<10 | 3<<6 | 3)
	mid := uint16(3<<13 | 5<<9)
	low := uint16(0)

	data := cat(
		gdfHeader(version, 51000.0),
		seg32(trigCode, 0, 0, 0, 0, 0, 0),
	)
	if version >= 27 {
		data = cat(data,
			seg32(uint32(len(adc)), 12345, 42, 3, 125000000, 0, 0, 0, 0, 0, 0, 0, 0),
			seg16(adc...),
			seg16(append([]uint16{mid, high, 0, low}, make([]uint16, 24)...)...),
		)
	} else {
		half := make([]uint16, 144)
		half[0], half[1], half[3] = mid, high, low
		copy(half[4:124], adc)
		data = cat(data,
			seg32(120, 12345, 42, 3, 125000000, 0, 0, 0, 0, 0),
			seg16(half...),
		)
	}
	return bankRecord(bankEvent, data)
}

func testTrackingRecord(version uint32, mode uint32, ra, dec float64, target string) []uint32 {
	statusWords := []uint32{7}
	if version >= 42 && version <= 64 {
		statusWords = []uint32{7, 0}
	}
	tgt := make([]byte, 80)
	copy(tgt, target)
	data := cat(
		gdfHeader(version, 51000.0),
		seg32(0, mode, 55),
		seg32(statusWords...),
		segF64(0, 0, ra, dec, 0, 0, 1.1, 0.9, 0.001, 0.01, -0.02, 2.5, 0, 0, 0),
		segBytes(tgt),
	)
	return bankRecord(bankTracking, data)
}

func testHVRecord(version uint32, nch int) []uint32 {
	data := cat(
		gdfHeader(version, 51000.0),
		seg32(0, 2, uint32(nch), 9),
	)
	if nch > 0 {
		status := make([]uint16, nch)
		volts := make([]float32, nch)
		for i := range volts {
			status[i] = 1
			volts[i] = float32(900 + i)
		}
		data = cat(data, seg16(status...),
			segF32(volts...), segF32(volts...), segF32(volts...), segF32(volts...))
	}
	return bankRecord(bankHV, data)
}

func testFrameRecord(version uint32, adc []uint16) []uint32 {
	high := uint16(1<<14 | 2<<10 | 3<<6 | 3)
	mid := uint16(3<<13 | 5<<9)
	low := uint16(0)
	nadc := len(adc)

	data := cat(gdfHeader(version, 51000.0), seg32(0, 0))
	if version >= 27 {
		nphs, nsca := 2, 4
		data = cat(data,
			seg32(uint32(nphs), uint32(nadc), uint32(nsca), 12345, 6, 0, 0, 0),
			seg16(make([]uint16, nadc)...), // calibration, skipped
			seg16(adc...),
			seg16(make([]uint16, nadc)...),
			seg16(make([]uint16, nsca)...),
			seg16(make([]uint16, nsca)...),
			seg16(append([]uint16{mid, high, 0, low}, make([]uint16, 2+2*nphs)...)...),
		)
	} else {
		data = cat(data, seg32(2, 120, 4, 12345, 6))
		// One monolithic block: GPS words at a fixed offset, pedestal ADCs
		// 70 words further in.
		half := make([]uint16, 4+16+120*3+128*2)
		half[0], half[1], half[3] = mid, high, low
		copy(half[140:260], adc)
		data = cat(data, seg16(half...))
	}
	return bankRecord(bankFrame, data)
}
