// Package starfield models the twinkling star background drawn behind the
// calculator: a set of stars with individual twinkle rates and a single soft
// nebula glow.
package starfield

import (
	"math"
	"math/rand/v2"
)

// Star is one point of light.
type Star struct {
	X, Y    float64
	Radius  float64
	Alpha   float64 // base opacity, 0.3 to 1.0
	Twinkle float64 // phase advance per tick, 0.01 to 0.06
	Phase   float64
}

// Brightness returns the star's opacity at the given animation tick. The
// fourth power keeps stars dim most of the time with short bright blinks.
func (s Star) Brightness(tick float64) float64 {
	blink := (math.Sin(tick*s.Twinkle+s.Phase) + 1) / 2
	return s.Alpha * math.Pow(blink, 4)
}

// Nebula is a radial glow that fades from its centre to nothing at Radius.
type Nebula struct {
	X, Y   float64
	Radius float64
}

// Intensity returns the glow at (x, y), 1 at the centre and 0 at or beyond
// the radius.
func (n Nebula) Intensity(x, y float64) float64 {
	if n.Radius <= 0 {
		return 0
	}
	d := math.Hypot(x-n.X, y-n.Y)
	if d >= n.Radius {
		return 0
	}
	return 1 - d/n.Radius
}

// Field holds the stars and nebula for a canvas of a given size.
type Field struct {
	width  int
	height int
	stars  []Star
	nebula Nebula
	rng    *rand.Rand
}

// Option configures a Field.
type Option func(*Field)

// WithRand sets the random source, for deterministic layouts in tests.
func WithRand(rng *rand.Rand) Option {
	return func(f *Field) {
		f.rng = rng
	}
}

// New creates a field for a width x height canvas.
func New(width, height int, opts ...Option) *Field {
	f := &Field{}
	for _, opt := range opts {
		opt(f)
	}
	if f.rng == nil {
		f.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	f.Resize(width, height)
	return f
}

// Resize regenerates the field for a new canvas size. A size equal to the
// current one keeps the existing layout.
func (f *Field) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	if f.stars != nil && width == f.width && height == f.height {
		return
	}
	f.width, f.height = width, height
	f.generate()
}

func (f *Field) generate() {
	w, h := float64(f.width), float64(f.height)

	count := f.width / 8
	f.stars = make([]Star, 0, count)
	for i := 0; i < count; i++ {
		f.stars = append(f.stars, Star{
			X:       f.rng.Float64() * w,
			Y:       f.rng.Float64() * h,
			Radius:  f.rng.Float64()*1.5 + 0.5,
			Alpha:   f.rng.Float64()*0.7 + 0.3,
			Twinkle: f.rng.Float64()*0.05 + 0.01,
			Phase:   f.rng.Float64() * 2 * math.Pi,
		})
	}

	f.nebula = Nebula{
		X:      f.rng.Float64() * w,
		Y:      f.rng.Float64() * h,
		Radius: f.rng.Float64()*(w/3) + w/4,
	}
}

// Size returns the canvas dimensions.
func (f *Field) Size() (width, height int) {
	return f.width, f.height
}

// Stars returns a copy of the stars.
func (f *Field) Stars() []Star {
	out := make([]Star, len(f.stars))
	copy(out, f.stars)
	return out
}

// Nebula returns the nebula glow.
func (f *Field) Nebula() Nebula {
	return f.nebula
}

// Cell is one character position of a rendered frame.
type Cell struct {
	Rune       rune
	Brightness float64 // star opacity, 0 when no star is drawn here
	Glow       float64 // nebula intensity
}

// Frame renders the field at the given tick as rows of cells. Stars too dim
// to see are left blank.
func (f *Field) Frame(tick float64) [][]Cell {
	rows := make([][]Cell, f.height)
	for y := range rows {
		row := make([]Cell, f.width)
		for x := range row {
			row[x] = Cell{Rune: ' ', Glow: f.nebula.Intensity(float64(x)+0.5, float64(y)+0.5)}
		}
		rows[y] = row
	}

	for _, s := range f.stars {
		x, y := int(s.X), int(s.Y)
		if x < 0 || x >= f.width || y < 0 || y >= f.height {
			continue
		}
		b := s.Brightness(tick)
		r := glyph(s.Radius, b)
		if r == ' ' {
			continue
		}
		// Brighter star wins when two share a cell.
		if b > rows[y][x].Brightness {
			rows[y][x].Rune = r
			rows[y][x].Brightness = b
		}
	}
	return rows
}

// glyph picks a character for a star by size and current brightness.
func glyph(radius, brightness float64) rune {
	switch {
	case brightness < 0.05:
		return ' '
	case brightness < 0.35:
		return '.'
	case radius >= 1.5:
		return '*'
	default:
		return '+'
	}
}
