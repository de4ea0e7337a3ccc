package animator

import "sync"

// Viewport reports the visible area and notifies subscribers on resize.
type Viewport interface {
	Size() (width, height int)
	Subscribe(fn func(width, height int)) (unsubscribe func())
}

// Display is a Viewport whose size is set from outside, e.g. by the
// client reporting its window dimensions.
type Display struct {
	mu     sync.Mutex
	w, h   int
	nextID int
	subs   map[int]func(int, int)
}

func NewDisplay(width, height int) *Display {
	return &Display{w: width, h: height, subs: make(map[int]func(int, int))}
}

func (d *Display) Size() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.w, d.h
}

func (d *Display) Subscribe(fn func(int, int)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subs, id)
			d.mu.Unlock()
		})
	}
}

// Resize records the new size and synchronously notifies every subscriber,
// even when the size is unchanged.
func (d *Display) Resize(width, height int) {
	d.mu.Lock()
	d.w, d.h = width, height
	fns := make([]func(int, int), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(width, height)
	}
}

func (d *Display) Subscribers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}
