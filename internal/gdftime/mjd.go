// Package gdftime reconciles the three absolute-time encodings found in
// Whipple GDF data into one representation: Modified Julian Date, seconds
// since UTC midnight, nanosecond fraction and a formatted clock string.
//
// The encodings correspond to three hardware clock generations at the
// telescope: a GPS clock read over a parallel-port word (format versions
// before 74), a TrueTime GRS unit with a 10 MHz local oscillator (74 and
// later), and a DAQ that delivers integer MJD/second/nanosecond directly.
// Neither legacy unit encodes the year; it is inferred from the run number
// via an immutable table covering the telescope's operating history.
package gdftime

import (
	"fmt"
	"math"
	"time"
)

// Valid range for record MJDs. The lower bound is 1992-01-01, before the
// first GDF file in the archive; the upper is 2012-01-01, after the last.
// Anything outside is treated as corrupt and degraded to the sentinel.
const (
	MJDMin = 48622.0
	MJDMax = 55927.0
)

// UnknownTime is the string sentinel for an undecodable or out-of-range
// timestamp. The numeric sentinel is 0.
const UnknownTime = "unknown"

// mjdUnixEpoch is the MJD of 1970-01-01.
const mjdUnixEpoch = 40587

// CleanMJD returns mjd if it is finite and inside the representable range,
// and the 0 sentinel otherwise.
func CleanMJD(mjd float64) float64 {
	if math.IsNaN(mjd) || mjd < MJDMin || mjd > MJDMax {
		return 0
	}
	return mjd
}

// UTCString formats a fractional MJD as "2006-01-02 15:04:05.000", or
// returns the UnknownTime sentinel for values outside the representable
// range.
func UTCString(mjd float64) string {
	if CleanMJD(mjd) == 0 {
		return UnknownTime
	}
	ms := int64(math.Round((mjd - mjdUnixEpoch) * 86400000))
	if ms < 0 {
		ms = 0
	}
	t := time.Unix(ms/1000, 0).UTC()
	return t.Format("2006-01-02 15:04:05") + fmt.Sprintf(".%03d", ms%1000)
}

// MJDFromYearDay returns the integer MJD of day-of-year doy (1-based) in
// the given calendar year.
func MJDFromYearDay(year, doy int) int {
	jan1 := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return int(jan1.Unix()/86400) + mjdUnixEpoch + doy - 1
}

// YearDayFromMJD is the inverse of MJDFromYearDay.
func YearDayFromMJD(mjd int) (year, doy int) {
	t := time.Unix(int64(mjd-mjdUnixEpoch)*86400, 0).UTC()
	return t.Year(), t.YearDay()
}
