// Package particles simulates the decorative background: slow drifting
// dots that bounce off the surface edges and are linked by faint lines
// when they come close to each other.
package particles

import (
	"image/color"
	"math"
	"math/rand/v2"
)

const (
	// PixelsPerParticle sets population density along the surface width.
	PixelsPerParticle = 20
	MaxParticles      = 100

	MinSize  = 1.0
	MaxSize  = 3.0
	MaxSpeed = 0.25 // px per tick, each axis

	LinkDistance = 120.0
	LinkMaxAlpha = 0.2
	LinkWidth    = 1.0
)

// Palette holds the semi-transparent particle colors.
var Palette = [...]color.NRGBA{
	{R: 80, G: 250, B: 123, A: 128},  // green
	{R: 139, G: 233, B: 253, A: 128}, // cyan
	{R: 189, G: 147, B: 249, A: 128}, // purple
	{R: 255, G: 121, B: 198, A: 128}, // pink
	{R: 241, G: 250, B: 140, A: 128}, // yellow
}

// LinkRGB is the stroke color for connections; alpha varies with distance.
var LinkRGB = color.NRGBA{R: 80, G: 100, B: 120}

// Surface is the 2D raster target the field draws on.
type Surface interface {
	Size() (width, height int)
	SetSize(width, height int)
	Clear()
	FillCircle(x, y, radius float64, c color.Color)
	StrokeLine(x0, y0, x1, y1, width float64, c color.Color)
}

type Particle struct {
	X, Y           float64
	Size           float64
	SpeedX, SpeedY float64
	Color          color.NRGBA
}

// Population returns how many particles a surface of the given width holds.
func Population(width int) int {
	if width <= 0 {
		return 0
	}
	return min(width/PixelsPerParticle, MaxParticles)
}

// LinkAlpha is the stroke opacity for two particles d pixels apart,
// or 0 when they are too far apart to be linked.
func LinkAlpha(d float64) float64 {
	if d < 0 || d >= LinkDistance {
		return 0
	}
	return LinkMaxAlpha * (1 - d/LinkDistance)
}

// Field owns the particle set. It is not safe for concurrent use; the
// owner serializes Reinitialize and Step.
type Field struct {
	width, height float64
	particles     []Particle
	rng           *rand.Rand
}

// NewField returns an empty field. A nil rng uses a randomly seeded source.
func NewField(rng *rand.Rand) *Field {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Field{rng: rng}
}

// Reinitialize discards every particle and populates the field for a
// surface of width x height.
func (f *Field) Reinitialize(width, height int) {
	f.width = float64(max(width, 0))
	f.height = float64(max(height, 0))

	n := Population(width)
	f.particles = make([]Particle, 0, n)
	for range n {
		f.particles = append(f.particles, Particle{
			X:      f.rng.Float64() * f.width,
			Y:      f.rng.Float64() * f.height,
			Size:   MinSize + f.rng.Float64()*(MaxSize-MinSize),
			SpeedX: (f.rng.Float64() - 0.5) * 2 * MaxSpeed,
			SpeedY: (f.rng.Float64() - 0.5) * 2 * MaxSpeed,
			Color:  Palette[f.rng.IntN(len(Palette))],
		})
	}
}

// Step renders one frame: clear, draw and advance every particle in
// insertion order, then draw the links.
func (f *Field) Step(s Surface) {
	s.Clear()
	for i := range f.particles {
		p := &f.particles[i]
		s.FillCircle(p.X, p.Y, p.Size, p.Color)
		p.advance(f.width, f.height)
	}
	f.Connect(s)
}

// Connect strokes a line between every pair closer than LinkDistance.
func (f *Field) Connect(s Surface) {
	for i := range f.particles {
		a := &f.particles[i]
		for j := i + 1; j < len(f.particles); j++ {
			b := &f.particles[j]
			d := math.Hypot(a.X-b.X, a.Y-b.Y)
			if d >= LinkDistance {
				continue
			}
			c := LinkRGB
			c.A = uint8(math.Round(LinkAlpha(d) * 255))
			s.StrokeLine(a.X, a.Y, b.X, b.Y, LinkWidth, c)
		}
	}
}

func (f *Field) Len() int { return len(f.particles) }

// Particles returns a copy of the current particle set.
func (f *Field) Particles() []Particle {
	out := make([]Particle, len(f.particles))
	copy(out, f.particles)
	return out
}

// advance moves p by its velocity and reflects it off any edge it has
// crossed while still heading outward.
func (p *Particle) advance(w, h float64) {
	p.X += p.SpeedX
	p.Y += p.SpeedY

	if (p.X > w && p.SpeedX > 0) || (p.X < 0 && p.SpeedX < 0) {
		p.SpeedX = -p.SpeedX
	}
	if (p.Y > h && p.SpeedY > 0) || (p.Y < 0 && p.SpeedY < 0) {
		p.SpeedY = -p.SpeedY
	}
}
