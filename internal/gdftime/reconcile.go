package gdftime

import "fmt"

// Epoch identifies which absolute-time hardware encoding a file uses. The
// choice is fixed by the file's format version and never changes mid-stream.
type Epoch int

const (
	// EpochParallelPort is the original GPS clock, read as three 16-bit
	// words over a parallel interface. Format versions before 74.
	EpochParallelPort Epoch = iota
	// EpochSerialGPS is the TrueTime GRS receiver: BCD clock words plus a
	// 10 MHz oscillator tick count. Format versions 74 through 82.
	EpochSerialGPS
	// EpochDirectMJD is the later DAQ that supplies integer MJD, seconds
	// since midnight and nanoseconds, referenced to the GPS timescale.
	// Format versions 83 and later.
	EpochDirectMJD
)

// String names the epoch for record output.
func (e Epoch) String() string {
	switch e {
	case EpochParallelPort:
		return "parallel-port"
	case EpochSerialGPS:
		return "serial-gps"
	case EpochDirectMJD:
		return "direct-mjd"
	}
	return "unknown"
}

// EpochForVersion selects the clock hardware generation for a format
// version.
func EpochForVersion(version uint32) Epoch {
	switch {
	case version < 74:
		return EpochParallelPort
	case version < 83:
		return EpochSerialGPS
	default:
		return EpochDirectMJD
	}
}

// leapSecondsGPSUTC is the fixed offset between the direct-MJD hardware's
// GPS reference timescale and UTC over the relevant recording period.
const leapSecondsGPSUTC = 13

// Time is the reconciled absolute-time representation.
type Time struct {
	MJD       float64 // fractional MJD, 0 when unknown
	DayOfYear int
	SecOfDay  float64 // seconds since UTC midnight, including fraction
	Nanos     int64   // nanosecond fraction of the current second
	Clock     string  // hardware clock face, or "unknown"
	Status    uint8   // raw status nibble, uninterpreted
	Good      bool    // boolean collapse of the status bits
}

// Unknown is the degraded-timestamp sentinel: all numeric fields zero and
// the clock string set to "unknown". Per-field decode failures produce it
// without failing the surrounding record.
func Unknown(status uint8) Time {
	return Time{Clock: UnknownTime, Status: status}
}

// Reconciler normalizes raw clock words into Time values. The run-year
// table is shared, read-only state.
type Reconciler struct {
	Epoch Epoch
	Years *RunYearTable
}

// ForVersion builds a reconciler for a format version with the default
// run-year table.
func ForVersion(version uint32) Reconciler {
	return Reconciler{Epoch: EpochForVersion(version), Years: DefaultRunYears()}
}

// Decode normalizes the three raw clock words of an event or frame record.
// Word meaning depends on the epoch: (low, mid, high) for the parallel-port
// clock, (ticks, time, day) for the serial GPS, and (nanoseconds, seconds,
// MJD) for the direct-MJD DAQ. run supplies the year for the two legacy
// epochs.
func (r Reconciler) Decode(w0, w1, w2 uint32, run uint32) Time {
	switch r.Epoch {
	case EpochSerialGPS:
		return r.serialGPS(w0, w1, w2, run)
	case EpochDirectMJD:
		return r.directMJD(w2, w1, w0)
	default:
		return r.parallelPort(uint16(w0), uint16(w1), uint16(w2), run)
	}
}

// bcd reports whether every listed digit is a valid decimal digit.
func bcd(digits ...uint32) bool {
	for _, d := range digits {
		if d > 9 {
			return false
		}
	}
	return true
}

// parallelPort decodes the pre-74 GPS clock: BCD day-of-year, hours,
// minutes and seconds spread over three 16-bit words, with the sub-second
// part counted in quarter-millisecond ticks.
func (r Reconciler) parallelPort(low, mid, high uint16, run uint32) Time {
	status := uint8((low >> 2) & 0xF)

	dayH := uint32(high>>14) & 0x3
	dayT := uint32(high>>10) & 0xF
	dayU := uint32(high>>6) & 0xF
	hourT := uint32(high>>4) & 0x3
	hourU := uint32(high) & 0xF
	minT := uint32(mid>>13) & 0x7
	minU := uint32(mid>>9) & 0xF
	secT := uint32(mid>>6) & 0x7
	secU := uint32(mid>>2) & 0xF
	usT := uint32(low>>10) & 0xF
	usU := uint32(low>>6) & 0xF

	if !bcd(dayT, dayU, hourU, minU, secU, usT, usU) ||
		hourT*10+hourU > 23 || minT > 5 || secT > 5 {
		return Unknown(status)
	}

	doy := int(dayH*100 + dayT*10 + dayU)
	isec := (hourT*10+hourU)*3600 + (minT*10+minU)*60 + secT*10 + secU
	us := (uint32(mid&0x3)<<2)*100000 +
		(uint32(low>>14)&0x3)*100000 +
		usT*10000 + usU*1000 + uint32(low&0x3)*250

	t := Time{
		DayOfYear: doy,
		SecOfDay:  float64(isec) + float64(us)*1e-6,
		Nanos:     int64(us) * 1000,
		Clock:     fmt.Sprintf("%02x:%02x:%02x.%05d", high&0x3F, (mid>>9)&0x7F, (mid>>2)&0x7F, us),
		Status:    status,
		Good:      status == 0,
	}
	r.fillMJD(&t, run)
	return t
}

// serialGPS decodes the TrueTime GRS words: a 10 MHz tick count, a BCD
// hours/minutes/seconds word and a BCD day-of-year word carrying the
// status nibble.
func (r Reconciler) serialGPS(ticks, timeWord, dayWord, run uint32) Time {
	status := uint8((dayWord >> 16) & 0xF)

	hourT := (timeWord >> 20) & 0xF
	hourU := (timeWord >> 16) & 0xF
	minT := (timeWord >> 12) & 0xF
	minU := (timeWord >> 8) & 0xF
	secT := (timeWord >> 4) & 0xF
	secU := timeWord & 0xF
	dayH := (dayWord >> 8) & 0x3
	dayT := (dayWord >> 4) & 0xF
	dayU := dayWord & 0xF

	if !bcd(hourU, minU, secU, dayT, dayU) ||
		hourT*10+hourU > 23 || minT > 5 || secT > 5 || ticks >= 10000000 {
		return Unknown(status)
	}

	isec := hourT*36000 + hourU*3600 + minT*600 + minU*60 + secT*10 + secU
	doy := int(dayH*100 + dayT*10 + dayU)

	t := Time{
		DayOfYear: doy,
		SecOfDay:  float64(isec) + float64(ticks)*1e-7,
		Nanos:     int64(ticks) * 100,
		Clock: fmt.Sprintf("%02x:%02x:%02x.%07d",
			(timeWord>>16)&0xFF, (timeWord>>8)&0xFF, timeWord&0xFF, ticks),
		Status: status,
		Good:   status == 0,
	}
	r.fillMJD(&t, run)
	return t
}

// directMJD applies the fixed GPS-UTC leap-second correction to the
// integer triple supplied by the DAQ.
func (r Reconciler) directMJD(mjd, sec, ns uint32) Time {
	if sec >= 86400+leapSecondsGPSUTC || ns >= 1000000000 {
		return Unknown(0)
	}
	day := int(mjd)
	isec := int(sec) - leapSecondsGPSUTC
	if isec < 0 {
		day--
		isec += 86400
	}
	_, doy := YearDayFromMJD(day)

	t := Time{
		DayOfYear: doy,
		SecOfDay:  float64(isec) + float64(ns)*1e-9,
		Nanos:     int64(ns),
		Clock:     fmt.Sprintf("%02d:%02d:%02d.%09d", isec/3600, (isec/60)%60, isec%60, ns),
		Good:      true,
	}
	t.MJD = CleanMJD(float64(day) + t.SecOfDay/86400)
	return t
}

// fillMJD combines day-of-year with the run-inferred year. A run number
// outside the table degrades the MJD alone; the clock fields stay valid.
func (r Reconciler) fillMJD(t *Time, run uint32) {
	years := r.Years
	if years == nil {
		years = DefaultRunYears()
	}
	year, ok := years.Year(run)
	if !ok || t.DayOfYear == 0 {
		return
	}
	mjd := float64(MJDFromYearDay(year, t.DayOfYear)) + t.SecOfDay/86400
	t.MJD = CleanMJD(mjd)
}
