package fzreader

import (
	"github.com/Whipple10m/fzreader/internal/gdftime"
	"github.com/Whipple10m/fzreader/internal/zebra"
)

// Hollerith identifiers of the known top-level banks.
const (
	bankEvent    = 0x45545445 // ETTE
	bankRun      = 0x52555552 // RUUR
	bankHV       = 0x48565648 // HVVH
	bankFrame    = 0x46545446 // FTTF
	bankTracking = 0x54525254 // TRRT
	bankCCD      = 0x43434343 // CCCC
)

// Format-version thresholds. Each marks a historical revision of the
// recording software that changed field presence or layout.
const (
	// The record header grew a sixth word and character fields moved into
	// typed segments.
	versionLongHeader = 27
	// Oldest tracking record layout still decodable.
	versionTrackingMin = 42
	// Tracking wrote a two-word status block through this version.
	versionTrackingPairEnd = 64
	// High-voltage records are ignored by the writer's own library below
	// this version.
	versionHVMin = 67
	// Sidereal time was written incorrectly through this version.
	versionSiderealMin = 68
	// The auxiliary elapsed-time/trigger subsystem and the GRS clock
	// arrived here; calibration frames stopped being written.
	versionTriggerSubsystem = 74
)

// decodeRecord classifies one assembled logical record by its top-level
// bank identifier and decodes the matching variant. Unmapped identifiers
// yield an unknown record with the raw identifier retained; only structural
// corruption returns an error.
func decodeRecord(ud *zebra.UserData) (*Record, error) {
	cur := ud.Cursor()
	switch ud.Bank.NameID {
	case bankEvent:
		return decodeEvent(cur)
	case bankRun:
		return decodeRun(cur)
	case bankHV:
		return decodeHV(cur)
	case bankFrame:
		return decodeFrame(cur)
	case bankTracking:
		return decodeTracking(cur)
	case bankCCD:
		rec, err := decodeHeader(cur)
		if err != nil {
			return nil, err
		}
		// Recognized but never decoded to field level.
		rec.Type = RecordCCD
		return rec, nil
	default:
		rec := &Record{Type: RecordUnknown, BankID: ud.Bank.Name(), TimeString: gdftime.UnknownTime}
		// Best effort on the common header; an unknown bank need not
		// carry one.
		if hdr, err := decodeHeader(ud.Cursor()); err == nil {
			rec.Version = hdr.Version
			rec.TimeMJD = hdr.TimeMJD
			rec.TimeString = hdr.TimeString
		}
		return rec, nil
	}
}

// decodeHeader extracts the common record header: the format version word
// and the record-time MJD, whose position moved when the header grew at
// version 27. The cursor is left at the first typed segment.
func decodeHeader(cur *zebra.Cursor) (*Record, error) {
	version, err := cur.RawUint32(0)
	if err != nil {
		return nil, err
	}
	nw := 5
	if version >= versionLongHeader {
		nw = 6
	}
	mjd, err := cur.RawFloat64(nw - 2)
	if err != nil {
		return nil, err
	}
	cur.Seek(nw)
	return &Record{
		TimeMJD:    gdftime.CleanMJD(mjd),
		TimeString: gdftime.UTCString(mjd),
		Version:    version,
	}, nil
}

// gpsFields assembles the serialized timestamp fields from the raw clock
// words and the reconciled time.
func gpsFields(epoch gdftime.Epoch, raw [3]uint32, t gdftime.Time) GPSFields {
	return GPSFields{
		Epoch:       epoch.String(),
		TrueTimeGRS: epoch == gdftime.EpochSerialGPS,
		Raw:         raw,
		DayOfYear:   t.DayOfYear,
		MJD:         t.MJD,
		UTCSec:      t.SecOfDay,
		UTCNanos:    t.Nanos,
		UTCString:   t.Clock,
		Status:      t.Status,
		Good:        t.Good,
	}
}

func decodeEvent(cur *zebra.Cursor) (*Record, error) {
	rec, err := decodeHeader(cur)
	if err != nil {
		return nil, err
	}
	rec.Type = RecordEvent
	v := rec.Version
	p := &EventPayload{}
	var raw [3]uint32

	if v >= versionTriggerSubsystem {
		blk, err := cur.Uint32s(20)
		if err != nil {
			return nil, err
		}
		p.NADC, p.RunNum, p.EventNum = blk[0], blk[1], blk[2]
		p.LivetimeSec, p.LivetimeNS = blk[3], blk[4]
		ntrigger, elapSec, elapNS := blk[13], blk[14], blk[15]
		raw = [3]uint32{blk[16], blk[17], blk[18]}
		p.NTrigger, p.ElaptimeSec, p.ElaptimeNS = &ntrigger, &elapSec, &elapNS

		trig, err := cur.Uint32s(7)
		if err != nil {
			return nil, err
		}
		p.TriggerCode = trig[0]
		p.EventType = EventSky
		if p.TriggerCode&0x01 != 0 {
			p.EventType = EventPedestal
		}

		trigData := []uint32{}
		if ntrigger > 0 {
			if trigData, err = cur.Uint32s(int(ntrigger)); err != nil {
				return nil, err
			}
		}
		p.TriggerData = &trigData
		p.ADCValues = []uint16{}
		if p.NADC > 0 {
			if p.ADCValues, err = cur.Uint16s(int(p.NADC)); err != nil {
				return nil, err
			}
		}
		// The trailing scaler segment is skipped explicitly so its size
		// still gets verified.
		if err := cur.Skip(28, 2); err != nil {
			return nil, err
		}
	} else {
		trig, err := cur.Uint32s(7)
		if err != nil {
			return nil, err
		}
		p.TriggerCode = trig[0]
		p.EventType = EventSky
		if p.TriggerCode == 1 {
			p.EventType = EventPedestal
		}

		n := 10
		if v >= versionLongHeader {
			n = 13
		}
		blk, err := cur.Uint32s(n)
		if err != nil {
			return nil, err
		}
		p.NADC, p.RunNum, p.EventNum = blk[0], blk[1], blk[2]
		p.LivetimeSec, p.LivetimeNS = blk[3], blk[4]

		if v >= versionLongHeader {
			if p.ADCValues, err = cur.Uint16s(int(p.NADC)); err != nil {
				return nil, err
			}
			g, err := cur.Uint16s(28)
			if err != nil {
				return nil, err
			}
			raw = [3]uint32{uint32(g[3]), uint32(g[0]), uint32(g[1])} // low, mid, high
		} else {
			g, err := cur.Uint16s(144)
			if err != nil {
				return nil, err
			}
			raw = [3]uint32{uint32(g[3]), uint32(g[0]), uint32(g[1])}
			p.ADCValues = g[4:124]
		}
	}

	recon := gdftime.ForVersion(v)
	p.GPSFields = gpsFields(recon.Epoch, raw, recon.Decode(raw[0], raw[1], raw[2], p.RunNum))

	rec.Decoded = true
	rec.Event = p
	return rec, nil
}

func decodeFrame(cur *zebra.Cursor) (*Record, error) {
	rec, err := decodeHeader(cur)
	if err != nil {
		return nil, err
	}
	rec.Type = RecordFrame
	v := rec.Version
	if v >= versionTriggerSubsystem {
		// Calibration frames were folded into the event stream here;
		// later frame banks are not decodable.
		return rec, nil
	}

	if err := cur.Skip(2, 4); err != nil { // status words
		return nil, err
	}
	n := 5
	if v >= versionLongHeader {
		n = 8
	}
	blk, err := cur.Uint32s(n)
	if err != nil {
		return nil, err
	}
	nphs, nadc, nsca := blk[0], blk[1], blk[2]
	p := &FramePayload{RunNum: blk[3], FrameNum: blk[4], EventType: EventPedestal, NADC: nadc}
	var raw [3]uint32

	if v >= versionLongHeader {
		if err := cur.Skip(int(nadc), 2); err != nil { // calibration ADCs, unused
			return nil, err
		}
		if p.ADCValues, err = cur.Uint16s(int(nadc)); err != nil { // first pedestal ADCs
			return nil, err
		}
		if err := cur.Skip(int(nadc), 2); err != nil { // second pedestal ADCs, unused
			return nil, err
		}
		if err := cur.Skip(int(nsca), 2); err != nil { // current scalers, unused
			return nil, err
		}
		if err := cur.Skip(int(nsca), 2); err != nil { // singles scalers, unused
			return nil, err
		}
		g, err := cur.Uint16s(4 + 2 + 2*int(nphs))
		if err != nil {
			return nil, err
		}
		raw = [3]uint32{uint32(g[3]), uint32(g[0]), uint32(g[1])} // low, mid, high
	} else {
		// One monolithic segment; verify its declared size, then address
		// the GPS words and pedestal ADCs at their fixed offsets.
		start := cur.Pos()
		if err := cur.Skip(4+16+120*3+128*2, 2); err != nil {
			return nil, err
		}
		g, err := cur.RawBytes((start+1)*4, 8)
		if err != nil {
			return nil, err
		}
		mid := uint32(g[0])<<8 | uint32(g[1])
		high := uint32(g[2])<<8 | uint32(g[3])
		low := uint32(g[6])<<8 | uint32(g[7])
		raw = [3]uint32{low, mid, high}
		adc, err := cur.RawBytes((start+71)*4, 240)
		if err != nil {
			return nil, err
		}
		p.ADCValues = make([]uint16, 120)
		for i := range p.ADCValues {
			p.ADCValues[i] = uint16(adc[i*2])<<8 | uint16(adc[i*2+1])
		}
	}

	recon := gdftime.ForVersion(v)
	p.GPSFields = gpsFields(recon.Epoch, raw, recon.Decode(raw[0], raw[1], raw[2], p.RunNum))

	rec.Decoded = true
	rec.Frame = p
	return rec, nil
}

func decodeRun(cur *zebra.Cursor) (*Record, error) {
	rec, err := decodeHeader(cur)
	if err != nil {
		return nil, err
	}
	rec.Type = RecordRun
	v := rec.Version

	if err := cur.Skip(2, 4); err != nil { // status words
		return nil, err
	}
	blk, err := cur.Uint32s(13)
	if err != nil {
		return nil, err
	}
	runNum, skyCode, trigMode, commentLen := blk[3], blk[5], blk[6], blk[12]

	f32, err := cur.Float32s(7)
	if err != nil {
		return nil, err
	}
	f64, err := cur.Float64s(2)
	if err != nil {
		return nil, err
	}

	var observers, comment string
	if v >= versionLongHeader {
		obs, err := cur.Bytes(160)
		if err != nil {
			return nil, err
		}
		observers = cleanText(obs[80:])
		com, err := cur.Bytes(int(commentLen))
		if err != nil {
			return nil, err
		}
		comment = cleanText(com)
	} else {
		// Fixed-offset character fields: a 20-word filename slot that was
		// never used, then observers and comment.
		pos := cur.Pos()
		obs, err := cur.RawBytes((pos+21)*4, 80)
		if err != nil {
			return nil, err
		}
		observers = cleanText(obs)
		com, err := cur.RawBytes((pos+41)*4, int(commentLen))
		if err != nil {
			return nil, err
		}
		comment = cleanText(com)
	}

	sky := "?"
	if skyCode >= 1 && skyCode <= 3 {
		sky = string(rune('A' + skyCode - 1))
	}

	rec.Decoded = true
	rec.Run = &RunPayload{
		RunNum:          runNum,
		SkyQuality:      sky,
		TrigMode:        trigMode,
		SidLength:       f32[0],
		NominalMJDStart: f64[0],
		NominalMJDEnd:   f64[1],
		Observers:       observers,
		Comment:         comment,
	}
	return rec, nil
}

func decodeTracking(cur *zebra.Cursor) (*Record, error) {
	rec, err := decodeHeader(cur)
	if err != nil {
		return nil, err
	}
	rec.Type = RecordTracking
	v := rec.Version
	if v < versionTrackingMin {
		return rec, nil
	}

	blk, err := cur.Uint32s(3)
	if err != nil {
		return nil, err
	}
	modeCode, readCycle := blk[1], blk[2]

	nStatus := 1
	if v <= versionTrackingPairEnd {
		nStatus = 2
	}
	st, err := cur.Uint32s(nStatus)
	if err != nil {
		return nil, err
	}

	f, err := cur.Float64s(15)
	if err != nil {
		return nil, err
	}
	targetRA, targetDec := f[2], f[3]
	az, el, trackErr := f[6], f[7], f[8]
	offsetRA, offsetDec, sidereal := f[9], f[10], f[11]

	tgt, err := cur.Bytes(80)
	if err != nil {
		return nil, err
	}

	mode, ok := trackingModes[modeCode]
	if !ok {
		mode = TrackingUnknown
	}

	// Right ascension is reported on [0, 24) hours.
	raHours := wrapHours(targetRA)

	p := &TrackingPayload{
		Mode:               mode,
		ModeCode:           modeCode,
		ReadCycle:          readCycle,
		Status:             st[0],
		TargetRAHours:      raHours,
		TargetRAStr:        hmsString(raHours / radToHours),
		TargetDecDeg:       targetDec * radToDeg,
		TargetDecStr:       dmsString(targetDec),
		TelescopeAzDeg:     az * radToDeg,
		TelescopeElDeg:     el * radToDeg,
		TrackingErrDeg:     trackErr * radToDeg,
		OnOffOffsetRAHours: offsetRA * radToHours,
		OnOffOffsetRAStr:   hmsString(offsetRA),
		OnOffOffsetDecDeg:  offsetDec * radToDeg,
		OnOffOffsetDecStr:  dmsString(offsetDec),
		Target:             cleanText(tgt),
	}
	if v >= versionSiderealMin {
		h := sidereal * radToHours
		p.SiderealTimeHours = &h
		p.SiderealTimeStr = hmsString(sidereal)
	}

	rec.Decoded = true
	rec.Tracking = p
	return rec, nil
}

func decodeHV(cur *zebra.Cursor) (*Record, error) {
	rec, err := decodeHeader(cur)
	if err != nil {
		return nil, err
	}
	rec.Type = RecordHV
	if rec.Version < versionHVMin {
		return rec, nil
	}

	blk, err := cur.Uint32s(4)
	if err != nil {
		return nil, err
	}
	p := &HVPayload{ModeCode: blk[1], NumChannels: blk[2], ReadCycle: blk[3]}

	if n := int(p.NumChannels); n > 0 {
		if p.Status, err = cur.Uint16s(n); err != nil {
			return nil, err
		}
		if p.VSet, err = cur.Float32s(n); err != nil {
			return nil, err
		}
		if p.VActual, err = cur.Float32s(n); err != nil {
			return nil, err
		}
		if p.ISupply, err = cur.Float32s(n); err != nil {
			return nil, err
		}
		if p.IAnode, err = cur.Float32s(n); err != nil {
			return nil, err
		}
	}

	rec.Decoded = true
	rec.HV = p
	return rec, nil
}
