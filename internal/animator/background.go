package animator

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/AlexKimmel/termfolio/internal/particles"
)

type Option func(*Background)

// WithFrameHook is called after every rendered frame with the current
// particle count.
func WithFrameHook(fn func(population int)) Option {
	return func(b *Background) { b.onFrame = fn }
}

// WithResizeHook is called after each repopulation.
func WithResizeHook(fn func(width, height, population int)) Option {
	return func(b *Background) { b.onResize = fn }
}

// Background animates a particle field on a surface for as long as it is
// mounted. It is the only owner of the field; ticks and resizes are
// serialized on mu.
type Background struct {
	sched Scheduler
	view  Viewport
	log   zerolog.Logger

	onFrame  func(int)
	onResize func(int, int, int)

	mu          sync.Mutex
	surface     particles.Surface
	field       *particles.Field
	mounted     bool
	gen         uint64 // bumped on every mount; stale frame callbacks compare against it
	frame       FrameID
	unsubscribe func()
	frames      uint64
}

func NewBackground(surface particles.Surface, field *particles.Field, sched Scheduler, view Viewport, log zerolog.Logger, opts ...Option) *Background {
	if field == nil {
		field = particles.NewField(nil)
	}
	b := &Background{
		surface: surface,
		field:   field,
		sched:   sched,
		view:    view,
		log:     log,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Mount sizes the surface to the viewport, populates the field and starts
// the frame loop. It returns false, and does nothing, when there is no
// surface or the background is already mounted.
func (b *Background) Mount() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		b.log.Warn().Msg("background: no drawing surface, animation not started")
		return false
	}
	if b.mounted {
		return false
	}

	b.mounted = true
	b.gen++
	b.unsubscribe = b.view.Subscribe(b.resize)
	w, h := b.view.Size()
	b.repopulate(w, h)
	b.frame = b.requestFrame()

	b.log.Info().Int("width", w).Int("height", h).Int("particles", b.field.Len()).Msg("background mounted")
	return true
}

// Unmount cancels the pending frame and stops listening for resizes.
// Calling it more than once is harmless.
func (b *Background) Unmount() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.mounted {
		return
	}
	b.mounted = false
	if b.frame != 0 {
		b.sched.CancelFrame(b.frame)
		b.frame = 0
	}
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
	b.log.Info().Uint64("frames", b.frames).Msg("background unmounted")
}

// requestFrame schedules a tick bound to the current mount. Caller holds mu.
func (b *Background) requestFrame() FrameID {
	gen := b.gen
	return b.sched.RequestFrame(func() { b.tick(gen) })
}

// tick renders one frame for mount generation gen. A callback left over
// from an earlier mount returns without drawing or rescheduling.
func (b *Background) tick(gen uint64) {
	b.mu.Lock()
	if !b.mounted || gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.field.Step(b.surface)
	b.frames++
	n := b.field.Len()
	b.frame = b.requestFrame()
	b.mu.Unlock()

	if b.onFrame != nil {
		b.onFrame(n)
	}
}

func (b *Background) resize(w, h int) {
	b.mu.Lock()
	if !b.mounted {
		b.mu.Unlock()
		return
	}
	b.repopulate(w, h)
	n := b.field.Len()
	b.mu.Unlock()

	b.log.Debug().Int("width", w).Int("height", h).Int("particles", n).Msg("background resized")
}

// repopulate resizes the surface and rebuilds the field. Caller holds mu.
func (b *Background) repopulate(w, h int) {
	b.surface.SetSize(w, h)
	b.field.Reinitialize(w, h)
	if b.onResize != nil {
		b.onResize(w, h, b.field.Len())
	}
}

func (b *Background) Mounted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mounted
}

func (b *Background) Frames() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// Particles returns a copy of the current particle set.
func (b *Background) Particles() []particles.Particle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.field.Particles()
}

// Render calls fn with the surface while no tick or resize can run.
func (b *Background) Render(fn func(particles.Surface) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn(b.surface)
}
