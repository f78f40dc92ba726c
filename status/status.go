package status

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mogaika/enginekit/vr"
)

const (
	INFO  = "info"
	ERROR = "error"
)

type display struct {
	ID   string `json:"id"`
	UID  string `json:"uid"`
	Name string `json:"name"`
}

func newDisplay(d *vr.Display) *display {
	return &display{ID: d.ID(), UID: d.UID().String(), Name: d.Name()}
}

type status struct {
	Type     string     `json:"type"`
	Time     time.Time  `json:"time"`
	Message  string     `json:"message,omitempty"`
	Error    string     `json:"error,omitempty"`
	Display  *display   `json:"display,omitempty"`
	Displays []*display `json:"displays,omitempty"`
}

func fromEvent(e vr.Event) *status {
	s := &status{Type: string(e.Type), Time: time.Now()}
	if e.Err != nil {
		s.Error = e.Err.Error()
	}
	if e.Display != nil {
		s.Display = newDisplay(e.Display)
	}
	for _, d := range e.Displays {
		s.Displays = append(s.Displays, newDisplay(d))
	}
	return s
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump(h *Hub) {
	ticker := time.NewTicker(time.Second * 30)
	defer func() {
		ticker.Stop()
		h.unregister(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[status] ws write msg error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[status] ws write ping error: %v", err)
				return
			}
		}
	}
}

// Hub broadcasts status messages to the connected browser clients. The last
// message is replayed to every new client.
type Hub struct {
	upgrader websocket.Upgrader

	lock        sync.Mutex
	clients     map[*client]bool
	lastMessage []byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool)}
}

func (h *Hub) register(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.clients[c] = true
	if h.lastMessage != nil {
		c.send <- h.lastMessage
	}
}

func (h *Hub) unregister(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(s *status) {
	data, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	h.lastMessage = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Printf("[status] Client %v is too slow, dropping it", c.conn.RemoteAddr())
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Run forwards manager events until the subscription is closed.
func (h *Hub) Run(sub *vr.Subscription) {
	for e := range sub.C {
		h.broadcast(fromEvent(e))
	}
}

func (h *Hub) Info(format string, a ...interface{}) {
	h.broadcast(&status{Type: INFO, Time: time.Now(), Message: fmt.Sprintf(format, a...)})
}

func (h *Hub) Error(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	h.broadcast(&status{Type: ERROR, Time: time.Now(), Message: msg, Error: msg})
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[status] Upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 32)}
	h.register(c)
	go c.writePump(h)

	// clients only listen, reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.unregister(c)
			return
		}
	}
}
