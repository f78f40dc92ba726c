package vr

import (
	"sync"
)

type EventType string

const (
	EventError             EventType = "error"
	EventReady             EventType = "ready"
	EventDisplayConnect    EventType = "displayconnect"
	EventDisplayDisconnect EventType = "displaydisconnect"
)

// Event is delivered to subscriptions. Err is set for EventError, Displays
// for EventReady and Display for the connect/disconnect events.
type Event struct {
	Type     EventType
	Err      error
	Display  *Display
	Displays []*Display
}

// Subscription receives manager events in the order they happened.
// C is closed once the manager is destroyed or the subscription is closed.
type Subscription struct {
	C <-chan Event

	c     chan Event
	quit  chan struct{}
	queue *eventQueue
}

func (s *Subscription) Close() {
	s.queue.unsubscribe(s)
}

// eventQueue keeps events in order without bounding the producer. A single
// dispatcher goroutine drains it into the subscription channels and is the
// only one closing them.
type eventQueue struct {
	lock    sync.Mutex
	cond    *sync.Cond
	pending []Event
	subs    []*Subscription
	closing []*Subscription
	done    bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	q.cond = sync.NewCond(&q.lock)
	return q
}

func (q *eventQueue) subscribe(buffer int) *Subscription {
	c := make(chan Event, buffer)
	s := &Subscription{C: c, c: c, quit: make(chan struct{}), queue: q}

	q.lock.Lock()
	defer q.lock.Unlock()
	if q.done {
		close(s.quit)
		close(c)
	} else {
		q.subs = append(q.subs, s)
	}
	return s
}

func (q *eventQueue) unsubscribe(s *Subscription) {
	q.lock.Lock()
	defer q.lock.Unlock()
	for i, sub := range q.subs {
		if sub == s {
			q.subs = append(q.subs[:i], q.subs[i+1:]...)
			close(s.quit)
			q.closing = append(q.closing, s)
			q.cond.Signal()
			return
		}
	}
}

func (q *eventQueue) push(e Event) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.done {
		return
	}
	q.pending = append(q.pending, e)
	q.cond.Signal()
}

// close stops accepting events. Pending events are still delivered before
// the subscriptions are closed.
func (q *eventQueue) close() {
	q.lock.Lock()
	q.done = true
	q.cond.Signal()
	q.lock.Unlock()
}

func (q *eventQueue) run() {
	for {
		q.lock.Lock()
		for len(q.pending) == 0 && len(q.closing) == 0 && !q.done {
			q.cond.Wait()
		}
		for _, s := range q.closing {
			close(s.c)
		}
		q.closing = nil

		if len(q.pending) == 0 {
			if q.done {
				for _, s := range q.subs {
					close(s.quit)
					close(s.c)
				}
				q.subs = nil
				q.lock.Unlock()
				return
			}
			q.lock.Unlock()
			continue
		}

		e := q.pending[0]
		q.pending = q.pending[1:]
		subs := append([]*Subscription(nil), q.subs...)
		q.lock.Unlock()

		for _, s := range subs {
			select {
			case s.c <- e:
			case <-s.quit:
			}
		}
	}
}
