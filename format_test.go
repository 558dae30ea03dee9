package fzreader

import (
	"math"
	"testing"
)

func TestHMSString(t *testing.T) {
	tests := []struct {
		rad  float64
		want string
	}{
		{0, "00h00m00.0s"},
		{math.Pi / 2, "06h00m00.0s"},
		{math.Pi, "12h00m00.0s"},
		{math.Pi / 2 / 3600 / 6, "00h00m01.0s"}, // one second of time
		{-math.Pi / 2, "-06h00m00.0s"},
		{-0.01, "-00h02m17.5s"}, // a small negative offset
	}
	for _, tt := range tests {
		if got := hmsString(tt.rad); got != tt.want {
			t.Errorf("hmsString(%v) = %q, want %q", tt.rad, got, tt.want)
		}
	}
}

func TestDMSString(t *testing.T) {
	tests := []struct {
		rad  float64
		want string
	}{
		{0, "+000d00m00.0s"},
		{math.Pi / 4, "+045d00m00.0s"},
		{-math.Pi / 4, "-045d00m00.0s"},
		{-math.Pi / 2, "-090d00m00.0s"},
	}
	for _, tt := range tests {
		if got := dmsString(tt.rad); got != tt.want {
			t.Errorf("dmsString(%v) = %q, want %q", tt.rad, got, tt.want)
		}
	}
}

func TestWrapHours(t *testing.T) {
	tests := []struct {
		rad  float64
		want float64
	}{
		{0, 0},
		{math.Pi, 12},
		{-math.Pi / 2, 18},
		{4 * math.Pi, 0},
	}
	for _, tt := range tests {
		if got := wrapHours(tt.rad); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("wrapHours(%v) = %v, want %v", tt.rad, got, tt.want)
		}
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte("  observers: ktkc  \x00\x00"), "observers: ktkc"},
		{[]byte{0x00, 0x01, 'h', 'i', 0xFF}, "hi"},
		{[]byte("tabs\tkept"), "tabs\tkept"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := cleanText(tt.in); got != tt.want {
			t.Errorf("cleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
