// Package camera holds the photomultiplier layout tables for each focal
// plane the telescope flew. The tables are generated once from the hardware
// lattice constants and shared read-only; the decoder itself never consults
// them, they exist for downstream display and analysis.
package camera

import (
	"math"
	"sort"
	"sync"
)

// Pixel is one photomultiplier: focal-plane position and lens radius in
// degrees, plus the indices of its direct neighbors.
type Pixel struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Radius    float64 `json:"radius"`
	Neighbors []int   `json:"neighbors"`
}

// Camera is one focal-plane configuration.
type Camera struct {
	Name    string  `json:"name"`
	NPixels int     `json:"npixels"`
	Pixels  []Pixel `json:"pixels"`
}

// spec describes one hardware generation: the hexagonal inner lattice and,
// for the largest camera, the coarse outer rings.
type spec struct {
	name       string
	inner      int     // pixels on the hexagonal lattice
	spacing    float64 // lattice pitch, degrees
	radius     float64 // inner lens radius, degrees
	outerRings []outerRing
}

type outerRing struct {
	n      int
	dist   float64 // ring radius, degrees
	radius float64 // lens radius, degrees
}

// The channel-count keys are the ADC word counts the DAQ wrote, which
// exceed the physical pixel counts by the spare electronics channels and
// round to a multiple of twelve (one ADC crate slot).
var specs = map[int]spec{
	120: {name: "WC109", inner: 109, spacing: 0.25, radius: 0.125},
	156: {name: "WC151", inner: 151, spacing: 0.25, radius: 0.125},
	336: {name: "WC331", inner: 331, spacing: 0.25, radius: 0.125},
	384: {name: "WC379", inner: 379, spacing: 0.12, radius: 0.06},
	492: {name: "WC490", inner: 379, spacing: 0.12, radius: 0.06,
		outerRings: []outerRing{
			{n: 37, dist: 1.25, radius: 0.05},
			{n: 37, dist: 1.41, radius: 0.05},
			{n: 37, dist: 1.57, radius: 0.05},
		}},
}

var (
	buildOnce sync.Once
	cameras   map[int]*Camera
)

func build() {
	cameras = make(map[int]*Camera, len(specs))
	for key, s := range specs {
		cameras[key] = generate(s)
	}
}

// ByADCCount returns the camera whose DAQ wrote nadc ADC values per event.
// Counts are rounded up to the next crate-slot multiple before lookup.
func ByADCCount(nadc int) (*Camera, bool) {
	buildOnce.Do(build)
	cam, ok := cameras[(nadc+11)/12*12]
	return cam, ok
}

// Keys lists the channel-count keys in ascending order. The generated
// geometry file is indexed by these, not by camera name.
func Keys() []int {
	keys := make([]int, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// ByKey returns the camera filed under an exact channel-count key.
func ByKey(key int) (*Camera, bool) {
	buildOnce.Do(build)
	cam, ok := cameras[key]
	return cam, ok
}

// Names lists the known camera names in channel-count order.
func Names() []string {
	keys := Keys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = specs[k].name
	}
	return names
}

// ByName returns the camera with the given configuration name.
func ByName(name string) (*Camera, bool) {
	buildOnce.Do(build)
	for _, cam := range cameras {
		if cam.Name == name {
			return cam, true
		}
	}
	return nil, false
}

// generate lays out one camera: the inner pixels on a hexagonal lattice
// filled outward from the center, then any outer rings, then the neighbor
// lists by center distance.
func generate(s spec) *Camera {
	pixels := hexLattice(s.inner, s.spacing, s.radius)
	for _, ring := range s.outerRings {
		step := 2 * math.Pi / float64(ring.n)
		for i := 0; i < ring.n; i++ {
			// Half-step stagger keeps adjacent rings from lining up.
			a := (float64(i) + 0.5) * step
			pixels = append(pixels, Pixel{
				X:      ring.dist * math.Cos(a),
				Y:      ring.dist * math.Sin(a),
				Radius: ring.radius,
			})
		}
	}
	fillNeighbors(pixels)
	return &Camera{Name: s.name, NPixels: len(pixels), Pixels: pixels}
}

// hexLattice returns the n lattice points nearest the camera center, in
// spiral order: distance first, then angle. Partial outer rings fill in the
// same rotational sense the hardware was cabled.
func hexLattice(n int, spacing, radius float64) []Pixel {
	// Enough rings to cover n with margin.
	rings := 1
	for 1+3*rings*(rings+1) < n {
		rings++
	}
	rings += 2

	type point struct {
		x, y, d, a float64
	}
	var pts []point
	for q := -rings; q <= rings; q++ {
		for r := -rings; r <= rings; r++ {
			if abs(q+r) > rings {
				continue
			}
			x := spacing * (float64(q) + float64(r)/2)
			y := spacing * float64(r) * math.Sqrt(3) / 2
			a := math.Atan2(y, x)
			if a < 0 {
				a += 2 * math.Pi
			}
			pts = append(pts, point{x, y, math.Hypot(x, y), a})
		}
	}
	sort.Slice(pts, func(i, j int) bool {
		// Quantize the distance so same-ring points compare equal despite
		// floating-point noise, then order around the ring.
		di := math.Round(pts[i].d / spacing * 1024)
		dj := math.Round(pts[j].d / spacing * 1024)
		if di != dj {
			return di < dj
		}
		return pts[i].a < pts[j].a
	})

	pixels := make([]Pixel, n)
	for i := range pixels {
		pixels[i] = Pixel{X: pts[i].x, Y: pts[i].y, Radius: radius}
	}
	return pixels
}

// fillNeighbors links every pair of pixels whose centers sit within 1.4
// combined diameters, which captures the six lattice neighbors without
// reaching the next ring.
func fillNeighbors(pixels []Pixel) {
	for i := range pixels {
		pixels[i].Neighbors = []int{}
	}
	for i := range pixels {
		for j := i + 1; j < len(pixels); j++ {
			limit := 1.4 * (pixels[i].Radius + pixels[j].Radius)
			if math.Hypot(pixels[i].X-pixels[j].X, pixels[i].Y-pixels[j].Y) <= limit {
				pixels[i].Neighbors = append(pixels[i].Neighbors, j)
				pixels[j].Neighbors = append(pixels[j].Neighbors, i)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
