package starfield

import (
	"math"
	"math/rand/v2"
	"testing"
)

func newTestField(w, h int) *Field {
	return New(w, h, WithRand(rand.New(rand.NewPCG(1, 2))))
}

func TestNew_StarCountAndRanges(t *testing.T) {
	f := newTestField(160, 40)

	stars := f.Stars()
	if len(stars) != 20 {
		t.Fatalf("len(stars) = %d, want 20", len(stars))
	}
	for i, s := range stars {
		if s.X < 0 || s.X >= 160 || s.Y < 0 || s.Y >= 40 {
			t.Errorf("star %d out of bounds: (%v, %v)", i, s.X, s.Y)
		}
		if s.Radius < 0.5 || s.Radius >= 2.0 {
			t.Errorf("star %d radius = %v", i, s.Radius)
		}
		if s.Alpha < 0.3 || s.Alpha >= 1.0 {
			t.Errorf("star %d alpha = %v", i, s.Alpha)
		}
		if s.Twinkle < 0.01 || s.Twinkle >= 0.06 {
			t.Errorf("star %d twinkle = %v", i, s.Twinkle)
		}
		if s.Phase < 0 || s.Phase >= 2*math.Pi {
			t.Errorf("star %d phase = %v", i, s.Phase)
		}
	}

	n := f.Nebula()
	if n.Radius < 40 || n.Radius >= 40+160.0/3 {
		t.Errorf("nebula radius = %v, want [40, %v)", n.Radius, 40+160.0/3)
	}
}

func TestNew_Deterministic(t *testing.T) {
	a := newTestField(80, 24).Stars()
	b := newTestField(80, 24).Stars()
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("star %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestStar_Brightness(t *testing.T) {
	s := Star{Alpha: 0.8, Twinkle: 0.05, Phase: math.Pi / 2}

	// sin(pi/2) = 1, so the star is at full alpha on tick 0.
	if got := s.Brightness(0); math.Abs(got-0.8) > 1e-9 {
		t.Errorf("Brightness(0) = %v, want 0.8", got)
	}

	// sin(3pi/2) = -1 is fully dark.
	tick := math.Pi / 0.05
	if got := s.Brightness(tick); got > 1e-9 {
		t.Errorf("Brightness(%v) = %v, want 0", tick, got)
	}

	// Halfway: ((0+1)/2)^4 = 1/16.
	s.Phase = 0
	if got := s.Brightness(0); math.Abs(got-0.8/16) > 1e-9 {
		t.Errorf("Brightness at midpoint = %v, want %v", got, 0.8/16)
	}
}

func TestNebula_Intensity(t *testing.T) {
	n := Nebula{X: 10, Y: 10, Radius: 10}
	tests := []struct {
		x, y float64
		want float64
	}{
		{10, 10, 1},
		{15, 10, 0.5},
		{20, 10, 0},
		{30, 30, 0},
	}
	for _, tt := range tests {
		if got := n.Intensity(tt.x, tt.y); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Intensity(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}

	if got := (Nebula{}).Intensity(0, 0); got != 0 {
		t.Errorf("zero-radius Intensity = %v, want 0", got)
	}
}

func TestResize(t *testing.T) {
	f := newTestField(80, 24)
	before := f.Stars()

	f.Resize(80, 24)
	same := f.Stars()
	for i := range before {
		if before[i] != same[i] {
			t.Fatal("Resize to the same size regenerated the field")
		}
	}

	f.Resize(240, 60)
	if w, h := f.Size(); w != 240 || h != 60 {
		t.Errorf("Size() = %d x %d, want 240 x 60", w, h)
	}
	if got := len(f.Stars()); got != 30 {
		t.Errorf("len(stars) after resize = %d, want 30", got)
	}

	f.Resize(-5, -5)
	if w, h := f.Size(); w != 0 || h != 0 {
		t.Errorf("negative resize gave %d x %d", w, h)
	}
	if len(f.Stars()) != 0 || len(f.Frame(0)) != 0 {
		t.Error("empty canvas should have no stars or rows")
	}
}

func TestFrame(t *testing.T) {
	f := newTestField(64, 16)
	f.stars = []Star{
		{X: 3.7, Y: 2.2, Radius: 1.8, Alpha: 1, Twinkle: 0.05, Phase: math.Pi / 2},
		{X: 10, Y: 5, Radius: 0.6, Alpha: 1, Twinkle: 0.05, Phase: math.Pi / 2},
		{X: 20, Y: 8, Radius: 1.8, Alpha: 1, Twinkle: 0.05, Phase: -math.Pi / 2},
		{X: 99, Y: 99, Radius: 1, Alpha: 1, Twinkle: 0.05, Phase: math.Pi / 2},
	}

	rows := f.Frame(0)
	if len(rows) != 16 || len(rows[0]) != 64 {
		t.Fatalf("frame size = %d x %d", len(rows[0]), len(rows))
	}
	if got := rows[2][3].Rune; got != '*' {
		t.Errorf("large bright star = %q, want '*'", got)
	}
	if got := rows[5][10].Rune; got != '+' {
		t.Errorf("small bright star = %q, want '+'", got)
	}
	if got := rows[8][20].Rune; got != ' ' {
		t.Errorf("dark star = %q, want blank", got)
	}
}

func TestGlyph(t *testing.T) {
	tests := []struct {
		radius, brightness float64
		want               rune
	}{
		{1.8, 0.01, ' '},
		{1.8, 0.2, '.'},
		{1.8, 0.9, '*'},
		{0.7, 0.9, '+'},
	}
	for _, tt := range tests {
		if got := glyph(tt.radius, tt.brightness); got != tt.want {
			t.Errorf("glyph(%v, %v) = %q, want %q", tt.radius, tt.brightness, got, tt.want)
		}
	}
}
