// Package permevents fans out permission-change notifications to
// connected dashboards. The registry has no pub/sub of its own (nothing in
// the teacher does either); the goroutine lifecycle below — a stop channel
// plus a WaitGroup guarding a background loop — is the one the teacher uses
// for its heartbeat in pkg/status/writer.go, adapted here to draining a
// channel instead of firing a ticker.
package permevents

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Kind identifies what changed.
type Kind string

const (
	KindUserPermission  Kind = "user_permission"
	KindGroupPermission Kind = "group_permission"
	KindDefaultChange   Kind = "default_change"
	KindGroupReference  Kind = "group_reference"
)

// Event describes one mutating call, suitable for JSON encoding to a
// connected dashboard.
type Event struct {
	Kind   Kind      `json:"kind"`
	Entity string    `json:"entity"`
	Path   string    `json:"path,omitempty"`
	Time   time.Time `json:"time"`
}

// Bus is a buffered, non-blocking fan-out of Events to any number of
// subscribers.
type Bus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new buffered subscriber channel. Call Unsubscribe
// when done to avoid leaking it.
func (b *Bus) Subscribe(buffer int) chan Event {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish fans e out to every subscriber. A full subscriber buffer drops
// the event for that subscriber rather than blocking the publisher.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// WebSocketBroadcaster relays every event published on a Bus to a set of
// live websocket connections, started with Run and stopped with Stop.
type WebSocketBroadcaster struct {
	bus *Bus

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWebSocketBroadcaster creates a broadcaster relaying bus's events.
func NewWebSocketBroadcaster(bus *Bus) *WebSocketBroadcaster {
	return &WebSocketBroadcaster{
		bus:    bus,
		conns:  make(map[*websocket.Conn]struct{}),
		stopCh: make(chan struct{}),
	}
}

// Add registers a connection to receive future broadcasts.
func (w *WebSocketBroadcaster) Add(conn *websocket.Conn) {
	w.mu.Lock()
	w.conns[conn] = struct{}{}
	w.mu.Unlock()
}

// Remove unregisters a connection, e.g. once its read loop exits.
func (w *WebSocketBroadcaster) Remove(conn *websocket.Conn) {
	w.mu.Lock()
	delete(w.conns, conn)
	w.mu.Unlock()
}

// Run drains the bus subscription and writes each event to every
// registered connection until Stop is called.
func (w *WebSocketBroadcaster) Run() {
	sub := w.bus.Subscribe(64)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case e := <-sub:
				w.broadcast(e)
			case <-w.stopCh:
				w.bus.Unsubscribe(sub)
				return
			}
		}
	}()
}

func (w *WebSocketBroadcaster) broadcast(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for conn := range w.conns {
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}
}

// Stop ends the broadcast loop and waits for it to finish.
func (w *WebSocketBroadcaster) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}
