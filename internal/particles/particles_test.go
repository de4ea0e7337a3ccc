package particles

import (
	"image/color"
	"math"
	"math/rand/v2"
	"testing"
)

type circleOp struct {
	x, y, r float64
	c       color.Color
}

type lineOp struct {
	x0, y0, x1, y1, width float64
	c                     color.NRGBA
}

// recorder is a Surface that remembers what was drawn since the last Clear.
type recorder struct {
	w, h    int
	clears  int
	circles []circleOp
	lines   []lineOp
}

func (r *recorder) Size() (int, int)  { return r.w, r.h }
func (r *recorder) SetSize(w, h int) { r.w, r.h = w, h }
func (r *recorder) Clear() {
	r.clears++
	r.circles = r.circles[:0]
	r.lines = r.lines[:0]
}
func (r *recorder) FillCircle(x, y, radius float64, c color.Color) {
	r.circles = append(r.circles, circleOp{x, y, radius, c})
}
func (r *recorder) StrokeLine(x0, y0, x1, y1, width float64, c color.Color) {
	r.lines = append(r.lines, lineOp{x0, y0, x1, y1, width, color.NRGBAModel.Convert(c).(color.NRGBA)})
}

func seeded() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func TestPopulation(t *testing.T) {
	cases := []struct{ width, want int }{
		{-5, 0},
		{0, 0},
		{19, 0},
		{20, 1},
		{39, 1},
		{400, 20},
		{1999, 99},
		{2000, 100},
		{3840, 100},
	}
	for _, c := range cases {
		if got := Population(c.width); got != c.want {
			t.Errorf("Population(%d) = %d, want %d", c.width, got, c.want)
		}
	}
}

func TestReinitialize_CountAndRanges(t *testing.T) {
	f := NewField(seeded())
	for _, w := range []int{0, 7, 20, 640, 1280, 2000, 5000} {
		f.Reinitialize(w, 480)
		if f.Len() != Population(w) {
			t.Fatalf("width %d: %d particles, want %d", w, f.Len(), Population(w))
		}
		for i, p := range f.Particles() {
			if p.X < 0 || p.X > float64(w) || p.Y < 0 || p.Y > 480 {
				t.Errorf("width %d particle %d out of bounds: (%v, %v)", w, i, p.X, p.Y)
			}
			if p.Size < MinSize || p.Size >= MaxSize {
				t.Errorf("particle %d size %v outside [%v, %v)", i, p.Size, MinSize, MaxSize)
			}
			if math.Abs(p.SpeedX) > MaxSpeed || math.Abs(p.SpeedY) > MaxSpeed {
				t.Errorf("particle %d speed (%v, %v) too fast", i, p.SpeedX, p.SpeedY)
			}
			if !inPalette(p.Color) {
				t.Errorf("particle %d color %v not in palette", i, p.Color)
			}
		}
	}
}

func TestReinitialize_DiscardsPreviousParticles(t *testing.T) {
	f := NewField(seeded())
	f.Reinitialize(1600, 900)
	before := f.Particles()

	f.Reinitialize(300, 900)
	if f.Len() != Population(300) {
		t.Fatalf("after second resize: %d particles, want %d", f.Len(), Population(300))
	}
	f.Reinitialize(900, 900)
	if f.Len() != Population(900) {
		t.Fatalf("after third resize: %d particles, want %d", f.Len(), Population(900))
	}
	after := f.Particles()
	if before[0] == after[0] {
		t.Fatal("first particle survived a resize")
	}
}

func TestStep_DrawsEveryParticleThenLinks(t *testing.T) {
	f := NewField(seeded())
	f.Reinitialize(400, 300)
	s := &recorder{w: 400, h: 300}
	positions := f.Particles()

	f.Step(s)

	if s.clears != 1 {
		t.Fatalf("clears = %d, want 1", s.clears)
	}
	if len(s.circles) != len(positions) {
		t.Fatalf("drew %d circles, want %d", len(s.circles), len(positions))
	}
	for i, c := range s.circles {
		p := positions[i]
		if c.x != p.X || c.y != p.Y || c.r != p.Size {
			t.Fatalf("circle %d drawn at (%v,%v,r=%v), want pre-move (%v,%v,r=%v)", i, c.x, c.y, c.r, p.X, p.Y, p.Size)
		}
	}
}

func TestStep_StaysInBoundsOverManyTicks(t *testing.T) {
	const w, h = 640.0, 360.0
	f := NewField(seeded())
	f.Reinitialize(w, h)
	s := &recorder{w: w, h: h}

	for tick := 0; tick < 20000; tick++ {
		f.Step(s)
		for i, p := range f.particles {
			if p.X < -MaxSpeed || p.X > w+MaxSpeed || p.Y < -MaxSpeed || p.Y > h+MaxSpeed {
				t.Fatalf("tick %d: particle %d drifted to (%v, %v)", tick, i, p.X, p.Y)
			}
		}
	}
}

func TestAdvance_BouncesOnceWhenCrossingRightEdge(t *testing.T) {
	p := Particle{X: 99.9, Y: 50, SpeedX: 0.2}
	p.advance(100, 100)
	if p.SpeedX != -0.2 {
		t.Fatalf("SpeedX = %v after crossing, want -0.2", p.SpeedX)
	}
	p.advance(100, 100)
	if p.SpeedX != -0.2 {
		t.Fatalf("SpeedX = %v on the way back, want -0.2", p.SpeedX)
	}
	if p.X > 100 {
		t.Fatalf("X = %v, should be back inside", p.X)
	}
}

func TestAdvance_BouncesOffLeftAndTop(t *testing.T) {
	p := Particle{X: 0.1, Y: 0.05, SpeedX: -0.2, SpeedY: -0.1}
	p.advance(100, 100)
	if p.SpeedX != 0.2 || p.SpeedY != 0.1 {
		t.Fatalf("speeds = (%v, %v), want (0.2, 0.1)", p.SpeedX, p.SpeedY)
	}
}

func TestAdvance_MovingAwayIsNeverBounced(t *testing.T) {
	p := Particle{X: 101, Y: -1, SpeedX: -0.1, SpeedY: 0.1}
	for range 5 {
		p.advance(100, 100)
		if p.SpeedX != -0.1 || p.SpeedY != 0.1 {
			t.Fatalf("inward-moving particle bounced: speeds (%v, %v)", p.SpeedX, p.SpeedY)
		}
	}
}

func TestAdvance_ExactlyOnEdgeDoesNotBounce(t *testing.T) {
	p := Particle{X: 99.75, Y: 10, SpeedX: 0.25}
	p.advance(100, 100)
	if p.X != 100 || p.SpeedX != 0.25 {
		t.Fatalf("particle at edge: X=%v SpeedX=%v", p.X, p.SpeedX)
	}
}

func TestLinkAlpha(t *testing.T) {
	if got := LinkAlpha(0); got != LinkMaxAlpha {
		t.Fatalf("LinkAlpha(0) = %v, want %v", got, LinkMaxAlpha)
	}
	if got := LinkAlpha(LinkDistance); got != 0 {
		t.Fatalf("LinkAlpha(120) = %v, want 0", got)
	}
	if got := LinkAlpha(500); got != 0 {
		t.Fatalf("LinkAlpha(500) = %v, want 0", got)
	}
	prev := LinkAlpha(0)
	for d := 0.5; d < LinkDistance; d += 0.5 {
		a := LinkAlpha(d)
		if a >= prev {
			t.Fatalf("LinkAlpha not decreasing at d=%v: %v >= %v", d, a, prev)
		}
		prev = a
	}
}

func TestConnect_LinksOnlyClosePairs(t *testing.T) {
	f := &Field{
		width: 1000, height: 1000,
		particles: []Particle{
			{X: 0, Y: 0},
			{X: 60, Y: 80},  // 100 from #0
			{X: 0, Y: 120},  // exactly 120 from #0
			{X: 900, Y: 900}, // far from everything
		},
	}
	s := &recorder{}
	f.Connect(s)

	// #0-#1 (100), #1-#2 (hypot(60,40) ~ 72.1); #0-#2 sits on the threshold.
	if len(s.lines) != 2 {
		t.Fatalf("drew %d lines, want 2: %+v", len(s.lines), s.lines)
	}
	first := s.lines[0]
	if first.x0 != 0 || first.y0 != 0 || first.x1 != 60 || first.y1 != 80 {
		t.Fatalf("first line = %+v", first)
	}
	if first.width != LinkWidth {
		t.Fatalf("line width = %v, want %v", first.width, LinkWidth)
	}
	wantA := uint8(math.Round(LinkAlpha(100) * 255))
	if first.c.A != wantA || first.c.R != LinkRGB.R || first.c.G != LinkRGB.G || first.c.B != LinkRGB.B {
		t.Fatalf("line color = %+v, want rgb %v alpha %d", first.c, LinkRGB, wantA)
	}
}

func TestConnect_SkipsSelfPairs(t *testing.T) {
	f := &Field{width: 100, height: 100, particles: []Particle{{X: 10, Y: 10}}}
	s := &recorder{}
	f.Connect(s)
	if len(s.lines) != 0 {
		t.Fatalf("single particle produced %d lines", len(s.lines))
	}
}

func TestConnect_ChecksEveryPair(t *testing.T) {
	ps := make([]Particle, 30)
	for i := range ps {
		ps[i] = Particle{X: float64(i), Y: 0}
	}
	f := &Field{width: 100, height: 100, particles: ps}
	s := &recorder{}
	f.Connect(s)
	if want := 30 * 29 / 2; len(s.lines) != want {
		t.Fatalf("drew %d lines, want %d", len(s.lines), want)
	}
}

func inPalette(c color.NRGBA) bool {
	for _, p := range Palette {
		if p == c {
			return true
		}
	}
	return false
}
