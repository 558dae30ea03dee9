package fzreader

import (
	"fmt"
	"math"
	"strings"
)

const (
	radToDeg   = 180.0 / math.Pi
	radToHours = 12.0 / math.Pi
)

// hmsString formats an angle in radians as sexagesimal hours, "HHhMMmSS.Ss",
// to a tenth of a second of time. Negative angles, such as signed ON/OFF
// offsets, carry a leading minus on the whole string.
func hmsString(rad float64) string {
	sign := ""
	if rad < 0 {
		sign = "-"
	}
	x := int(math.Round(math.Abs(rad) * 10 * 3600 * radToHours))
	return fmt.Sprintf("%s%02dh%02dm%04.1fs", sign, x/36000, (x/600)%60, float64(x%600)/10)
}

// dmsString formats an angle in radians as signed sexagesimal degrees,
// "+DDDdMMmSS.Ss".
func dmsString(rad float64) string {
	sign := "+"
	if rad < 0 {
		sign = "-"
	}
	x := int(math.Round(math.Abs(rad) * 10 * 3600 * radToDeg))
	return fmt.Sprintf("%s%03dd%02dm%04.1fs", sign, x/36000, (x/600)%60, float64(x%600)/10)
}

// wrapHours maps an angle in radians onto [0, 24) hours.
func wrapHours(rad float64) float64 {
	h := math.Mod(rad*radToHours, 24)
	if h < 0 {
		h += 24
	}
	return h
}

// cleanText keeps the printable subset of a raw character field and trims
// the padding the writer used to fill fixed-width slots.
func cleanText(raw []byte) string {
	var b strings.Builder
	for _, c := range raw {
		if (c >= 32 && c <= 126) || c == '\t' || c == '\n' || c == '\r' {
			b.WriteByte(c)
		}
	}
	return strings.TrimSpace(b.String())
}
