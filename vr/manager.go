package vr

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrCapabilityUnavailable = errors.New("vr: platform capability unavailable")
	ErrAlreadyStarted        = errors.New("vr: manager already started")
	ErrDestroyed             = errors.New("vr: manager destroyed")
)

type State int

const (
	StateUninitialized State = iota
	StateDiscovering
	StateReady
	StateError
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateDiscovering:
		return "discovering"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

const DefaultEnumerateTimeout = 10 * time.Second

type Config struct {
	// Limit for the initial display enumeration, zero waits forever.
	EnumerateTimeout time.Duration
}

// Manager keeps the directory of connected displays. The first display in
// discovery order is the primary one.
type Manager struct {
	platform Platform
	config   Config
	events   *eventQueue
	listener *managerListener

	lock     sync.Mutex
	state    State
	index    map[string]*Display
	displays []*Display
	primary  *Display
	cancel   context.CancelFunc
}

func NewManager(p Platform, cfg Config) *Manager {
	m := &Manager{
		platform: p,
		config:   cfg,
		events:   newEventQueue(),
		index:    make(map[string]*Display),
	}
	m.listener = &managerListener{m: m}
	go m.events.run()
	return m
}

// Subscribe returns a subscription to the manager events. Subscribe before
// Start to observe the ready or error event.
func (m *Manager) Subscribe(buffer int) *Subscription {
	return m.events.subscribe(buffer)
}

// Start starts listening for platform connection changes and enumerates the
// displays already connected in the background. An unavailable platform is
// reported with an EventError carrying ErrCapabilityUnavailable, not by the
// returned error.
func (m *Manager) Start(ctx context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	switch m.state {
	case StateUninitialized:
	case StateDestroyed:
		return ErrDestroyed
	default:
		return ErrAlreadyStarted
	}

	if !m.platform.Available() {
		log.Printf("[vr] Platform is not available")
		m.state = StateError
		m.events.push(Event{Type: EventError, Err: ErrCapabilityUnavailable})
		return nil
	}

	m.state = StateDiscovering
	// Listen must not call back synchronously, the lock is held
	m.platform.Listen(m.listener)

	ctx, m.cancel = context.WithCancel(ctx)
	go m.enumerate(ctx)
	return nil
}

func (m *Manager) enumerate(ctx context.Context) {
	if m.config.EnumerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.EnumerateTimeout)
		defer cancel()
	}

	handles, err := m.platform.Displays(ctx)

	m.lock.Lock()
	defer m.lock.Unlock()

	if m.state == StateDestroyed {
		return
	}

	if err != nil {
		log.Printf("[vr] Error enumerating displays: %v", err)
		m.state = StateError
		m.events.push(Event{Type: EventError, Err: errors.Wrapf(err, "Failed to enumerate displays")})
		return
	}

	for _, h := range handles {
		m.connect(h)
	}
	m.state = StateReady
	log.Printf("[vr] Ready with %d display(s)", len(m.displays))
	m.events.push(Event{Type: EventReady, Displays: m.list()})
}

// connect registers h if its id is not indexed yet. Caller holds the lock.
func (m *Manager) connect(h Handle) bool {
	id := h.ID()
	if _, exists := m.index[id]; exists {
		return false
	}

	d := newDisplay(h)
	m.index[id] = d
	m.displays = append(m.displays, d)
	if m.primary == nil {
		m.primary = d
	}

	log.Printf("[vr] Display %q (%s) connected", id, d.name)
	m.events.push(Event{Type: EventDisplayConnect, Display: d})
	return true
}

func (m *Manager) disconnect(id string) {
	d, exists := m.index[id]
	if !exists {
		return
	}

	d.Destroy()
	delete(m.index, id)
	for i, other := range m.displays {
		if other == d {
			m.displays = append(m.displays[:i], m.displays[i+1:]...)
			break
		}
	}
	if m.primary == d {
		m.primary = nil
		if len(m.displays) != 0 {
			m.primary = m.displays[0]
		}
	}

	log.Printf("[vr] Display %q disconnected", id)
	m.events.push(Event{Type: EventDisplayDisconnect, Display: d})
}

func (m *Manager) list() []*Display {
	return append([]*Display(nil), m.displays...)
}

// Poll forwards a frame update to every display bound to a camera. Call it
// once per rendered frame. Cameras are called without the registry lock
// held, so they may use the Manager.
func (m *Manager) Poll() {
	type update struct {
		d   *Display
		cam Camera
	}
	var updates []update

	m.lock.Lock()
	for _, d := range m.displays {
		if d.camera == nil {
			continue
		}
		if cam := d.pull(); cam != nil {
			updates = append(updates, update{d, cam})
		}
	}
	m.lock.Unlock()

	for _, u := range updates {
		u.cam.UpdatePose(u.d)
	}
}

// Bind sets the camera of a tracked display under the registry lock, use it
// when Poll runs on another goroutine. Returns false for unknown ids.
func (m *Manager) Bind(id string, c Camera) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	d, ok := m.index[id]
	if ok {
		d.camera = c
	}
	return ok
}

// Displays returns the connected displays in discovery order.
func (m *Manager) Displays() []*Display {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.list()
}

// Display returns the primary display, nil when none is connected.
func (m *Manager) Display() *Display {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.primary
}

func (m *Manager) Get(id string) (*Display, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	d, ok := m.index[id]
	return d, ok
}

func (m *Manager) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}

// Destroy stops listening to the platform and releases every tracked
// display without emitting disconnect events. Subscriptions are closed
// after the events queued so far are delivered.
func (m *Manager) Destroy() {
	m.lock.Lock()
	if m.state == StateDestroyed {
		m.lock.Unlock()
		return
	}
	if m.cancel != nil {
		m.platform.Unlisten(m.listener)
		m.cancel()
	}
	for _, d := range m.displays {
		d.Destroy()
	}
	m.index = make(map[string]*Display)
	m.displays = nil
	m.primary = nil
	m.state = StateDestroyed
	m.lock.Unlock()

	m.events.close()
}

type managerListener struct {
	m *Manager
}

// DisplayConnected also recovers a manager whose enumeration failed: the
// first display registered afterwards makes it ready.
func (l *managerListener) DisplayConnected(h Handle) {
	m := l.m
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.state == StateDestroyed {
		return
	}
	if m.connect(h) && m.state == StateError {
		m.state = StateReady
		log.Printf("[vr] Ready with %d display(s) after failed enumeration", len(m.displays))
		m.events.push(Event{Type: EventReady, Displays: m.list()})
	}
}

func (l *managerListener) DisplayDisconnected(id string) {
	l.m.lock.Lock()
	defer l.m.lock.Unlock()
	if l.m.state == StateDestroyed {
		return
	}
	l.m.disconnect(id)
}
