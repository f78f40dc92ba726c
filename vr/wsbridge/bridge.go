// Package wsbridge implements a vr.Platform backed by a browser page. The page
// owns the real WebXR/WebVR device API and reports displays over a websocket.
//
// Page to server messages:
//
//	{"event": "list", "displays": [{"id": "1", "name": "HMD"}]}
//	{"event": "connect", "display": {"id": "1", "name": "HMD"}}
//	{"event": "disconnect", "id": "1"}
//	{"event": "pose", "id": "1", "timestamp": 16.6, "position": [0, 1.6, 0], "orientation": [0, 0, 0, 1]}
//
// Server to page messages are {"event": "enumerate"} right after the
// connection is established and {"event": "release", "id": "1"}.
package wsbridge

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/mogaika/enginekit/vr"
)

const (
	pingPeriod   = 30 * time.Second
	writeTimeout = 40 * time.Second
)

type displayInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type message struct {
	Event       string        `json:"event"`
	ID          string        `json:"id,omitempty"`
	Display     *displayInfo  `json:"display,omitempty"`
	Displays    []displayInfo `json:"displays,omitempty"`
	Timestamp   float64       `json:"timestamp,omitempty"`
	Position    *[3]float32   `json:"position,omitempty"`
	Orientation *[4]float32   `json:"orientation,omitempty"`
}

type Bridge struct {
	upgrader websocket.Upgrader

	lock      sync.Mutex
	page      *page
	handles   map[string]*handle
	order     []string
	listed    chan struct{} // closed once the page sent its display list
	listeners []vr.Listener
}

func New() *Bridge {
	return &Bridge{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		handles: make(map[string]*handle),
		listed:  make(chan struct{}),
	}
}

func (b *Bridge) Available() bool { return true }

// Displays waits for the page to report its display list.
func (b *Bridge) Displays(ctx context.Context) ([]vr.Handle, error) {
	b.lock.Lock()
	listed := b.listed
	b.lock.Unlock()

	select {
	case <-listed:
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "No display list from page")
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	handles := make([]vr.Handle, len(b.order))
	for i, id := range b.order {
		handles[i] = b.handles[id]
	}
	return handles, nil
}

func (b *Bridge) Listen(l vr.Listener) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.listeners = append(b.listeners, l)
}

func (b *Bridge) Unlisten(l vr.Listener) {
	b.lock.Lock()
	defer b.lock.Unlock()
	for i, other := range b.listeners {
		if other == l {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}

// notification is collected under the lock and sent to listeners after it is released
type notification struct {
	connected    *handle
	disconnected string
}

func (b *Bridge) notify(ns []notification) {
	if len(ns) == 0 {
		return
	}
	b.lock.Lock()
	listeners := append([]vr.Listener(nil), b.listeners...)
	b.lock.Unlock()

	for _, n := range ns {
		for _, l := range listeners {
			if n.connected != nil {
				l.DisplayConnected(n.connected)
			} else {
				l.DisplayDisconnected(n.disconnected)
			}
		}
	}
}

func (b *Bridge) add(info displayInfo) *notification {
	if _, exists := b.handles[info.ID]; exists {
		return nil
	}
	h := &handle{bridge: b, id: info.ID, name: info.Name}
	b.handles[info.ID] = h
	b.order = append(b.order, info.ID)
	return &notification{connected: h}
}

func (b *Bridge) remove(id string) *notification {
	if _, exists := b.handles[id]; !exists {
		return nil
	}
	delete(b.handles, id)
	for i, other := range b.order {
		if other == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return &notification{disconnected: id}
}

func (b *Bridge) handleMessage(msg *message) error {
	var ns []notification
	collect := func(n *notification) {
		if n != nil {
			ns = append(ns, *n)
		}
	}

	b.lock.Lock()
	switch msg.Event {
	case "list":
		present := make(map[string]bool)
		for _, info := range msg.Displays {
			present[info.ID] = true
			collect(b.add(info))
		}
		for _, id := range append([]string(nil), b.order...) {
			if !present[id] {
				collect(b.remove(id))
			}
		}
		select {
		case <-b.listed:
		default:
			close(b.listed)
		}
	case "connect":
		if msg.Display == nil {
			b.lock.Unlock()
			return errors.Errorf("connect message without display")
		}
		collect(b.add(*msg.Display))
	case "disconnect":
		// the platform may report displays we never saw, listeners ignore those
		if n := b.remove(msg.ID); n != nil {
			collect(n)
		} else {
			ns = append(ns, notification{disconnected: msg.ID})
		}
	case "pose":
		if h, ok := b.handles[msg.ID]; ok {
			h.setPose(msg)
		}
	default:
		b.lock.Unlock()
		return errors.Errorf("unknown event %q", msg.Event)
	}
	b.lock.Unlock()

	b.notify(ns)
	return nil
}

// ServeHTTP upgrades the request and makes it the active page. A previously
// connected page is dropped.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[wsbridge] Upgrade error: %v", err)
		return
	}

	p := newPage(conn)
	b.lock.Lock()
	old := b.page
	b.page = p
	b.lock.Unlock()
	if old != nil {
		old.conn.Close()
	}

	log.Printf("[wsbridge] Page %v connected", conn.RemoteAddr())
	p.send(&message{Event: "enumerate"})
	b.readPump(p)
}

func (b *Bridge) readPump(p *page) {
	defer b.dropPage(p)
	for {
		var msg message
		if err := p.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[wsbridge] ws read error: %v", err)
			}
			return
		}
		if err := b.handleMessage(&msg); err != nil {
			log.Printf("[wsbridge] Bad message from page: %v", err)
		}
	}
}

// dropPage reports every display of a closed page as disconnected.
func (b *Bridge) dropPage(p *page) {
	p.close()

	var ns []notification
	b.lock.Lock()
	if b.page == p {
		b.page = nil
		for _, id := range append([]string(nil), b.order...) {
			if n := b.remove(id); n != nil {
				ns = append(ns, *n)
			}
		}
		b.listed = make(chan struct{})
	}
	b.lock.Unlock()

	b.notify(ns)
}

func (b *Bridge) send(msg *message) {
	b.lock.Lock()
	p := b.page
	b.lock.Unlock()
	if p != nil {
		p.send(msg)
	}
}

type page struct {
	conn *websocket.Conn
	out  chan *message
	once sync.Once
	quit chan struct{}
}

func newPage(conn *websocket.Conn) *page {
	p := &page{conn: conn, out: make(chan *message, 32), quit: make(chan struct{})}
	go p.writePump()
	return p
}

// send never blocks, messages to a stuck page are dropped
func (p *page) send(msg *message) {
	select {
	case p.out <- msg:
	case <-p.quit:
	default:
		log.Printf("[wsbridge] Dropping %q message, page is not reading", msg.Event)
	}
}

func (p *page) close() {
	p.once.Do(func() {
		close(p.quit)
		p.conn.Close()
	})
}

func (p *page) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.close()
	}()
	for {
		select {
		case msg := <-p.out:
			p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := p.conn.WriteJSON(msg); err != nil {
				log.Printf("[wsbridge] ws write msg error: %v", err)
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[wsbridge] ws write ping error: %v", err)
				return
			}
		case <-p.quit:
			p.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

type handle struct {
	bridge *Bridge
	id     string
	name   string

	lock  sync.Mutex
	frame vr.FrameData
	posed bool
}

func (h *handle) ID() string   { return h.id }
func (h *handle) Name() string { return h.name }

func (h *handle) setPose(msg *message) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.frame.Timestamp = msg.Timestamp
	if msg.Position != nil {
		h.frame.Position = mgl32.Vec3(*msg.Position)
	}
	if msg.Orientation != nil {
		o := *msg.Orientation
		h.frame.Orientation = mgl32.Quat{W: o[3], V: mgl32.Vec3{o[0], o[1], o[2]}}
	}
	h.posed = true
}

func (h *handle) FrameData(fd *vr.FrameData) bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	if !h.posed {
		return false
	}
	*fd = h.frame
	return true
}

func (h *handle) Release() error {
	h.bridge.send(&message{Event: "release", ID: h.id})
	return nil
}
