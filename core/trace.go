package core

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-broadcast"
	"github.com/encodeous/batsim/state"
	"github.com/gorilla/websocket"
)

type TraceEvent struct {
	At    time.Time
	Event RouterEvent
	Desc  string
	Args  []any
}

func (e TraceEvent) String() string {
	sb := strings.Builder{}
	sb.WriteString(e.Event.String())
	for i := 0; i+1 < len(e.Args); i += 2 {
		sb.WriteString(fmt.Sprintf(" %v=%v", e.Args[i], e.Args[i+1]))
	}
	return sb.String()
}

// TraceMessage is the JSON form of a TraceEvent sent to websocket subscribers.
type TraceMessage struct {
	At    time.Time         `json:"at"`
	Event string            `json:"event"`
	Desc  string            `json:"desc"`
	Args  map[string]string `json:"args,omitempty"`
}

func (e TraceEvent) Message() TraceMessage {
	msg := TraceMessage{
		At:    e.At,
		Event: e.Event.String(),
		Desc:  e.Desc,
	}
	if len(e.Args) > 1 {
		msg.Args = make(map[string]string, len(e.Args)/2)
		for i := 0; i+1 < len(e.Args); i += 2 {
			msg.Args[fmt.Sprint(e.Args[i])] = fmt.Sprint(e.Args[i+1])
		}
	}
	return msg
}

// SimTrace fans router events out to subscribers. Collectors receive every event on the
// simulation's thread. Websocket and other live subscribers go through the broadcaster and miss
// events rather than stall the simulation.
type SimTrace struct {
	broadcast.Broadcaster
	mu         sync.Mutex
	closed     bool
	subs       int
	done       chan struct{}
	collectors []chan<- any
}

// traceFlushTimeout bounds how long Cleanup waits for live subscribers to take pending events
const traceFlushTimeout = 5 * time.Second

type traceMarker struct{}

func (n *SimTrace) Init(s *state.State) error {
	n.Broadcaster = broadcast.NewBroadcaster(1024)
	n.done = make(chan struct{})
	return nil
}

func (n *SimTrace) Cleanup(s *state.State) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	n.collectors = nil
	flushed := n.flush(traceFlushTimeout)
	close(n.done)
	if !flushed {
		// the broadcaster is stuck on a subscriber, closing it under the flush would panic
		if s != nil {
			s.Log.Warn("trace subscribers did not drain in time, pending events dropped")
		}
		return nil
	}
	return n.Broadcaster.Close()
}

// flush waits until every event submitted so far has been handed to the live subscribers.
func (n *SimTrace) flush(timeout time.Duration) bool {
	flushed := make(chan struct{})
	go func() {
		defer close(flushed)
		ch := make(chan any, 64)
		n.Register(ch)
		marker := &traceMarker{}
		go n.Submit(marker)
		for ev := range ch {
			if m, ok := ev.(*traceMarker); ok && m == marker {
				break
			}
		}
		// keep ch drained until the broadcaster lets go of it
		go func() {
			for range ch {
			}
		}()
		n.Unregister(ch)
		close(ch)
	}()
	select {
	case <-flushed:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Collect makes ch receive every event published from now on. Sends block, so ch must be read
// for as long as the simulation runs. It is safe to close ch once the run has returned.
func (n *SimTrace) Collect(ch chan<- any) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return false
	}
	n.collectors = append(n.collectors, ch)
	return true
}

func (n *SimTrace) Publish(ev TraceEvent) {
	for _, ch := range n.collectors {
		ch <- ev
	}
	n.Broadcaster.TrySubmit(ev)
}

// Subscribe registers ch unless the trace is already closed.
func (n *SimTrace) Subscribe(ch chan<- any) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return false
	}
	n.Register(ch)
	n.subs++
	return true
}

// Unsubscribe stops delivery to ch. ch is drained while unregistering so that a pending delivery
// cannot block the broadcaster.
func (n *SimTrace) Unsubscribe(ch chan any) {
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
			case <-stop:
				return
			}
		}
	}()
	defer close(stop)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs--
	if n.closed {
		return
	}
	n.Unregister(ch)
}

// Subscribers is the number of websocket and channel subscribers currently attached
func (n *SimTrace) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.subs
}

var traceUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeHTTP streams every trace event as a JSON TraceMessage over a websocket, until the client
// disconnects or the simulation stops.
func (n *SimTrace) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := traceUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()

	events := make(chan any, 256)
	if !n.Subscribe(events) {
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "simulation stopped"))
		return
	}
	defer n.Unsubscribe(events)

	// clients never send anything, reading only notices when they go away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-events:
			te, ok := ev.(TraceEvent)
			if !ok {
				continue
			}
			if err := c.WriteJSON(te.Message()); err != nil {
				return
			}
		case <-gone:
			return
		case <-n.done:
			_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "simulation stopped"))
			return
		}
	}
}
