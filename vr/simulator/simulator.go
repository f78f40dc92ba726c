// Package simulator is an in-memory VR platform. It backs the -simulate mode
// of the server and the vr tests.
package simulator

import (
	"context"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/enginekit/utils"
	"github.com/mogaika/enginekit/vr"
)

type Platform struct {
	lock      sync.Mutex
	available bool
	enumErr   error
	delay     time.Duration
	block     bool
	handles   []*Handle
	listeners []vr.Listener
	names     utils.RandomNameGenerator
}

func New() *Platform {
	return &Platform{available: true}
}

func (p *Platform) SetAvailable(available bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.available = available
}

// SetEnumerateError makes the next enumerations fail with err.
func (p *Platform) SetEnumerateError(err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.enumErr = err
}

func (p *Platform) SetEnumerateDelay(d time.Duration) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.delay = d
}

// Block makes enumeration wait until its context is done.
func (p *Platform) Block() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.block = true
}

func (p *Platform) Available() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.available
}

func (p *Platform) Displays(ctx context.Context) ([]vr.Handle, error) {
	p.lock.Lock()
	delay, block := p.delay, p.block
	p.lock.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	if p.enumErr != nil {
		return nil, p.enumErr
	}
	handles := make([]vr.Handle, len(p.handles))
	for i, h := range p.handles {
		handles[i] = h
	}
	return handles, nil
}

func (p *Platform) Listen(l vr.Listener) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.listeners = append(p.listeners, l)
}

func (p *Platform) Unlisten(l vr.Listener) {
	p.lock.Lock()
	defer p.lock.Unlock()
	for i, other := range p.listeners {
		if other == l {
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			return
		}
	}
}

// Connect plugs in a display and notifies the listeners. An empty name gets
// a random one. Connecting an id twice notifies again with the same handle.
func (p *Platform) Connect(id, name string) *Handle {
	p.lock.Lock()
	h := p.find(id)
	if h == nil {
		if name == "" {
			name = p.names.RandomName()
		} else {
			p.names.Reserve(name)
		}
		h = &Handle{id: id, name: name}
		h.frame.Orientation = mgl32.QuatIdent()
		p.handles = append(p.handles, h)
	}
	listeners := append([]vr.Listener(nil), p.listeners...)
	p.lock.Unlock()

	for _, l := range listeners {
		l.DisplayConnected(h)
	}
	return h
}

// Disconnect unplugs a display. Unknown ids are still reported to the listeners.
func (p *Platform) Disconnect(id string) {
	p.lock.Lock()
	for i, h := range p.handles {
		if h.id == id {
			p.handles = append(p.handles[:i], p.handles[i+1:]...)
			break
		}
	}
	listeners := append([]vr.Listener(nil), p.listeners...)
	p.lock.Unlock()

	for _, l := range listeners {
		l.DisplayDisconnected(id)
	}
}

func (p *Platform) Handle(id string) (*Handle, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if h := p.find(id); h != nil {
		return h, nil
	}
	return nil, errors.Errorf("Display %q is not connected", id)
}

func (p *Platform) find(id string) *Handle {
	for _, h := range p.handles {
		if h.id == id {
			return h
		}
	}
	return nil
}

// Handle is a simulated display.
type Handle struct {
	id   string
	name string

	lock     sync.Mutex
	frame    vr.FrameData
	frames   int
	released int
}

func (h *Handle) ID() string   { return h.id }
func (h *Handle) Name() string { return h.name }

// SetPose moves the simulated head.
func (h *Handle) SetPose(position mgl32.Vec3, orientation mgl32.Quat) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.frame.Position = position
	h.frame.Orientation = orientation
}

func (h *Handle) FrameData(fd *vr.FrameData) bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.released != 0 {
		return false
	}
	h.frames++
	h.frame.Timestamp = float64(h.frames) / 60
	*fd = h.frame
	return true
}

func (h *Handle) Release() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.released++
	return nil
}

// Frames is the number of frames pulled so far.
func (h *Handle) Frames() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.frames
}

// Released reports how many times the handle was released.
func (h *Handle) Released() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.released
}
