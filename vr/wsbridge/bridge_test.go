package wsbridge

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"

	"github.com/mogaika/enginekit/vr"
)

type recordingListener struct {
	connected    chan string
	disconnected chan string
}

func newRecordingListener() *recordingListener {
	return &recordingListener{
		connected:    make(chan string, 16),
		disconnected: make(chan string, 16),
	}
}

func (l *recordingListener) DisplayConnected(h vr.Handle) { l.connected <- h.ID() }
func (l *recordingListener) DisplayDisconnected(id string) { l.disconnected <- id }

func receive(t *testing.T, c chan string, expected string) {
	t.Helper()
	select {
	case id := <-c:
		if id != expected {
			t.Fatalf("got %q, expected %q", id, expected)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %q", expected)
	}
}

func dial(t *testing.T, b *Bridge) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	var msg message
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Event != "enumerate" {
		t.Fatalf("first message %q", msg.Event)
	}
	return conn
}

func TestBridgeProtocol(t *testing.T) {
	b := New()
	l := newRecordingListener()
	b.Listen(l)
	conn := dial(t, b)

	type result struct {
		handles []vr.Handle
		err     error
	}
	enumerated := make(chan result, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		handles, err := b.Displays(ctx)
		enumerated <- result{handles, err}
	}()

	if err := conn.WriteJSON(&message{Event: "list", Displays: []displayInfo{{"A", "left"}, {"B", "right"}}}); err != nil {
		t.Fatal(err)
	}
	receive(t, l.connected, "A")
	receive(t, l.connected, "B")

	r := <-enumerated
	if r.err != nil {
		t.Fatal(r.err)
	}
	if len(r.handles) != 2 || r.handles[0].ID() != "A" || r.handles[1].Name() != "right" {
		t.Fatalf("enumerated %v", r.handles)
	}
	a := r.handles[0]

	var fd vr.FrameData
	if a.FrameData(&fd) {
		t.Errorf("frame data before the first pose")
	}

	pos := [3]float32{0, 1.6, 0}
	orient := [4]float32{0, 0, 0, 1}
	conn.WriteJSON(&message{Event: "pose", ID: "A", Timestamp: 16, Position: &pos, Orientation: &orient})
	// messages are handled in order, so the pose is applied once C shows up
	conn.WriteJSON(&message{Event: "connect", Display: &displayInfo{"C", "third"}})
	receive(t, l.connected, "C")

	if !a.FrameData(&fd) {
		t.Fatalf("no frame data after pose")
	}
	if fd.Position != (mgl32.Vec3{0, 1.6, 0}) || fd.Orientation != mgl32.QuatIdent() || fd.Timestamp != 16 {
		t.Errorf("frame %+v", fd)
	}

	if err := a.Release(); err != nil {
		t.Fatal(err)
	}
	var msg message
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Event != "release" || msg.ID != "A" {
		t.Errorf("got %+v, expected release of A", msg)
	}

	conn.WriteJSON(&message{Event: "disconnect", ID: "B"})
	receive(t, l.disconnected, "B")

	conn.Close()
	receive(t, l.disconnected, "A")
	receive(t, l.disconnected, "C")
}

func TestBridgeListReplacesDisplays(t *testing.T) {
	b := New()
	l := newRecordingListener()
	b.Listen(l)
	conn := dial(t, b)

	conn.WriteJSON(&message{Event: "list", Displays: []displayInfo{{"A", ""}, {"B", ""}}})
	receive(t, l.connected, "A")
	receive(t, l.connected, "B")

	conn.WriteJSON(&message{Event: "list", Displays: []displayInfo{{"B", ""}, {"C", ""}}})
	receive(t, l.connected, "C")
	receive(t, l.disconnected, "A")

	handles, err := b.Displays(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(handles) != 2 || handles[0].ID() != "B" || handles[1].ID() != "C" {
		t.Errorf("displays after second list %v", handles)
	}
}

func TestBridgeDisplaysTimeout(t *testing.T) {
	b := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := b.Displays(ctx); err == nil {
		t.Errorf("Displays without a page succeeded")
	}
}

func TestBridgeWithManager(t *testing.T) {
	b := New()
	m := vr.NewManager(b, vr.Config{EnumerateTimeout: 2 * time.Second})
	defer m.Destroy()
	sub := m.Subscribe(16)
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	conn := dial(t, b)
	conn.WriteJSON(&message{Event: "list", Displays: []displayInfo{{"hmd", "Headset"}}})

	for {
		select {
		case e := <-sub.C:
			if e.Type == vr.EventReady {
				if len(e.Displays) != 1 || e.Displays[0].Name() != "Headset" {
					t.Errorf("ready with %v", e.Displays)
				}
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("manager did not become ready")
		}
	}
}
