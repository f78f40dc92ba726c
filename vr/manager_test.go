package vr_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/enginekit/vr"
	"github.com/mogaika/enginekit/vr/simulator"
)

func next(t *testing.T, sub *vr.Subscription) vr.Event {
	t.Helper()
	select {
	case e, ok := <-sub.C:
		if !ok {
			t.Fatalf("subscription closed")
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for event")
	}
	return vr.Event{}
}

func expect(t *testing.T, sub *vr.Subscription, typ vr.EventType, id string) vr.Event {
	t.Helper()
	e := next(t, sub)
	if e.Type != typ {
		t.Fatalf("got %v event, expected %v", e.Type, typ)
	}
	if id != "" && (e.Display == nil || e.Display.ID() != id) {
		t.Fatalf("%v event for %v, expected %q", typ, e.Display, id)
	}
	return e
}

func ids(displays []*vr.Display) []string {
	out := make([]string, len(displays))
	for i, d := range displays {
		out[i] = d.ID()
	}
	return out
}

func start(t *testing.T, p vr.Platform, cfg vr.Config) (*vr.Manager, *vr.Subscription) {
	t.Helper()
	m := vr.NewManager(p, cfg)
	sub := m.Subscribe(16)
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(m.Destroy)
	return m, sub
}

func TestRegistryScenario(t *testing.T) {
	sim := simulator.New()
	a := sim.Connect("A", "left")
	sim.Connect("B", "right")

	m, sub := start(t, sim, vr.Config{EnumerateTimeout: time.Second})
	expect(t, sub, vr.EventDisplayConnect, "A")
	expect(t, sub, vr.EventDisplayConnect, "B")
	ready := expect(t, sub, vr.EventReady, "")

	if got := ids(ready.Displays); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("ready displays %v", got)
	}
	displays := m.Displays()
	if len(displays) != 2 || m.Display() != displays[0] || m.Display().ID() != "A" {
		t.Fatalf("displays %v primary %v", ids(displays), m.Display())
	}
	if m.State() != vr.StateReady {
		t.Errorf("state %v", m.State())
	}

	sim.Disconnect("A")
	expect(t, sub, vr.EventDisplayDisconnect, "A")
	displays = m.Displays()
	if len(displays) != 1 || m.Display() != displays[0] || m.Display().ID() != "B" {
		t.Fatalf("after disconnect A: displays %v primary %v", ids(displays), m.Display())
	}
	if a.Released() != 1 {
		t.Errorf("display A released %d times", a.Released())
	}

	sim.Connect("B", "")
	if len(m.Displays()) != 1 {
		t.Errorf("duplicate connect registered twice")
	}
	sim.Disconnect("C")

	sim.Disconnect("B")
	// the duplicate connect and unknown disconnect produced no events
	expect(t, sub, vr.EventDisplayDisconnect, "B")
	if len(m.Displays()) != 0 || m.Display() != nil {
		t.Fatalf("after disconnect B: displays %v primary %v", ids(m.Displays()), m.Display())
	}

	sim.Connect("C", "")
	expect(t, sub, vr.EventDisplayConnect, "C")
	if m.Display() == nil || m.Display().ID() != "C" {
		t.Errorf("new display did not become primary")
	}
}

func TestDisplayListIsCopy(t *testing.T) {
	sim := simulator.New()
	sim.Connect("A", "")
	m, sub := start(t, sim, vr.Config{})
	expect(t, sub, vr.EventDisplayConnect, "A")
	expect(t, sub, vr.EventReady, "")

	list := m.Displays()
	list[0] = nil
	if m.Displays()[0] == nil {
		t.Errorf("Displays() exposes internal list")
	}
}

func TestUnavailablePlatform(t *testing.T) {
	sim := simulator.New()
	sim.SetAvailable(false)
	m, sub := start(t, sim, vr.Config{})

	e := expect(t, sub, vr.EventError, "")
	if errors.Cause(e.Err) != vr.ErrCapabilityUnavailable {
		t.Errorf("error %v", e.Err)
	}
	if m.State() != vr.StateError {
		t.Errorf("state %v", m.State())
	}
}

func TestEnumerateError(t *testing.T) {
	failure := errors.New("device query failed")
	sim := simulator.New()
	sim.Connect("A", "")
	sim.SetEnumerateError(failure)

	m, sub := start(t, sim, vr.Config{})
	e := expect(t, sub, vr.EventError, "")
	if errors.Cause(e.Err) != failure {
		t.Errorf("error %v", e.Err)
	}
	if len(m.Displays()) != 0 || m.State() != vr.StateError {
		t.Errorf("displays %v state %v", ids(m.Displays()), m.State())
	}

	// connection changes are still tracked and the first one recovers the manager
	sim.Connect("B", "")
	expect(t, sub, vr.EventDisplayConnect, "B")
	ready := expect(t, sub, vr.EventReady, "")
	if got := ids(ready.Displays); len(got) != 1 || got[0] != "B" {
		t.Errorf("ready displays %v", got)
	}
	if m.State() != vr.StateReady {
		t.Errorf("state %v after recovery", m.State())
	}

	// later connects do not repeat ready
	sim.Connect("C", "")
	expect(t, sub, vr.EventDisplayConnect, "C")
}

func TestEnumerateTimeout(t *testing.T) {
	sim := simulator.New()
	sim.Block()
	_, sub := start(t, sim, vr.Config{EnumerateTimeout: 20 * time.Millisecond})

	e := expect(t, sub, vr.EventError, "")
	if errors.Cause(e.Err) != context.DeadlineExceeded {
		t.Errorf("error %v", e.Err)
	}
}

func TestReadyAfterEnumerateTimeout(t *testing.T) {
	sim := simulator.New()
	sim.Block()
	m, sub := start(t, sim, vr.Config{EnumerateTimeout: 20 * time.Millisecond})
	expect(t, sub, vr.EventError, "")

	sim.Connect("A", "")
	expect(t, sub, vr.EventDisplayConnect, "A")
	expect(t, sub, vr.EventReady, "")
	if m.State() != vr.StateReady || len(m.Displays()) != 1 {
		t.Errorf("state %v displays %v", m.State(), ids(m.Displays()))
	}
}

func TestConnectDuringEnumeration(t *testing.T) {
	sim := simulator.New()
	sim.Connect("A", "")
	sim.SetEnumerateDelay(100 * time.Millisecond)

	m, sub := start(t, sim, vr.Config{})
	sim.Connect("A", "")
	sim.Connect("B", "")

	expect(t, sub, vr.EventDisplayConnect, "A")
	expect(t, sub, vr.EventDisplayConnect, "B")
	ready := expect(t, sub, vr.EventReady, "")
	if got := ids(ready.Displays); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("ready displays %v", got)
	}
	if len(m.Displays()) != 2 {
		t.Errorf("displays %v", ids(m.Displays()))
	}
}

type recordingCamera struct {
	updates int
	view    mgl32.Mat4
}

func (c *recordingCamera) UpdatePose(d *vr.Display) {
	c.updates++
	c.view = d.View()
}

func TestPollUpdatesBoundDisplays(t *testing.T) {
	sim := simulator.New()
	a := sim.Connect("A", "")
	b := sim.Connect("B", "")
	a.SetPose(mgl32.Vec3{1, 2, 3}, mgl32.QuatIdent())

	m, sub := start(t, sim, vr.Config{})
	expect(t, sub, vr.EventDisplayConnect, "A")
	expect(t, sub, vr.EventDisplayConnect, "B")
	expect(t, sub, vr.EventReady, "")

	cam := &recordingCamera{}
	m.Display().SetCamera(cam)
	m.Poll()
	m.Poll()

	if cam.updates != 2 || a.Frames() != 2 {
		t.Errorf("camera updates %d, frames %d", cam.updates, a.Frames())
	}
	if b.Frames() != 0 {
		t.Errorf("display without camera polled %d times", b.Frames())
	}

	origin := cam.view.Mul4x1(mgl32.Vec4{1, 2, 3, 1})
	if !origin.ApproxEqual(mgl32.Vec4{0, 0, 0, 1}) {
		t.Errorf("view maps head position to %v", origin)
	}
	if pos := m.Display().Frame().Position; pos != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("frame position %v", pos)
	}
}

func TestDestroy(t *testing.T) {
	sim := simulator.New()
	a := sim.Connect("A", "")

	m := vr.NewManager(sim, vr.Config{})
	sub := m.Subscribe(16)
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(context.Background()); errors.Cause(err) != vr.ErrAlreadyStarted {
		t.Errorf("second Start = %v", err)
	}
	expect(t, sub, vr.EventDisplayConnect, "A")
	expect(t, sub, vr.EventReady, "")

	m.Destroy()
	m.Destroy()

	if a.Released() != 1 {
		t.Errorf("display released %d times", a.Released())
	}
	if len(m.Displays()) != 0 || m.Display() != nil || m.State() != vr.StateDestroyed {
		t.Errorf("manager not cleared")
	}

	sim.Connect("B", "")
	select {
	case e, ok := <-sub.C:
		if ok {
			t.Errorf("event %v after destroy", e.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("subscription not closed")
	}

	if err := m.Start(context.Background()); errors.Cause(err) != vr.ErrDestroyed {
		t.Errorf("Start after Destroy = %v", err)
	}
}

func TestSubscriptionClose(t *testing.T) {
	sim := simulator.New()
	m := vr.NewManager(sim, vr.Config{})
	defer m.Destroy()
	sub := m.Subscribe(16)
	other := m.Subscribe(16)
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	expect(t, sub, vr.EventReady, "")
	expect(t, other, vr.EventReady, "")

	sub.Close()
	sub.Close()
	sim.Connect("A", "")
	expect(t, other, vr.EventDisplayConnect, "A")

	select {
	case _, ok := <-sub.C:
		if ok {
			t.Errorf("closed subscription received an event")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("closed subscription channel not closed")
	}
}

func TestBind(t *testing.T) {
	sim := simulator.New()
	a := sim.Connect("A", "")
	m, sub := start(t, sim, vr.Config{})
	expect(t, sub, vr.EventDisplayConnect, "A")
	expect(t, sub, vr.EventReady, "")

	cam := &recordingCamera{}
	if m.Bind("missing", cam) {
		t.Errorf("bound unknown display")
	}
	if !m.Bind("A", cam) {
		t.Fatalf("Bind(A) failed")
	}
	m.Poll()
	if cam.updates != 1 || a.Frames() != 1 {
		t.Errorf("camera updates %d, frames %d", cam.updates, a.Frames())
	}
}

type managerCamera struct {
	m       *vr.Manager
	primary *vr.Display
	count   int
}

func (c *managerCamera) UpdatePose(d *vr.Display) {
	c.primary = c.m.Display()
	c.count = len(c.m.Displays())
	c.m.Bind(d.ID(), c)
}

func TestPollCameraUsesManager(t *testing.T) {
	sim := simulator.New()
	sim.Connect("A", "")
	m, sub := start(t, sim, vr.Config{})
	expect(t, sub, vr.EventDisplayConnect, "A")
	expect(t, sub, vr.EventReady, "")

	cam := &managerCamera{m: m}
	m.Bind("A", cam)

	done := make(chan struct{})
	go func() {
		m.Poll()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Poll blocked on a camera calling the manager")
	}
	if cam.primary == nil || cam.primary.ID() != "A" || cam.count != 1 {
		t.Errorf("camera saw primary %v and %d displays", cam.primary, cam.count)
	}
}
