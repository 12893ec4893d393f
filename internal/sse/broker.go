// Package sse streams document outcomes to HTTP clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/ansuz/internal/models"
)

// Event types.
const (
	EventDocumentUpdated = "document.updated"
	EventDocumentFailed  = "document.failed"
	EventDocumentSkipped = "document.skipped"
	EventTreeChanged     = "tree.changed"
	EventRunFinished     = "run.finished"
)

// DefaultTreeThrottle is the minimum interval between tree.changed events.
const DefaultTreeThrottle = 2 * time.Second

// Event is a message broadcast to every client.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// DocumentData is the payload of document.* events.
type DocumentData struct {
	Path   string         `json:"path"`
	Status models.Status  `json:"status"`
	Type   models.DocType `json:"type,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Broker fans events out to subscribed clients.
//
// A single loop goroutine owns the client set and the tree.changed throttle;
// public methods talk to it over channels.
type Broker struct {
	treeMin   time.Duration
	keepAlive time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	outcomeCh     chan models.Outcome
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithKeepAlive sends a comment line to every client at the given interval.
func WithKeepAlive(d time.Duration) BrokerOption {
	return func(b *Broker) { b.keepAlive = d }
}

// NewBroker creates a broker that emits at most one tree.changed event per
// treeThrottle interval.
func NewBroker(treeThrottle time.Duration, opts ...BrokerOption) *Broker {
	if treeThrottle <= 0 {
		treeThrottle = DefaultTreeThrottle
	}
	b := &Broker{
		treeMin:       treeThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		outcomeCh:     make(chan models.Outcome, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.run()
	return b
}

func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", event.Type, payload), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastTree time.Time

	send := func(raw []byte) {
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than block the loop.
			}
		}
	}
	broadcast := func(event Event) {
		if raw, err := encode(event); err == nil {
			send(raw)
		}
	}

	var keepAliveCh <-chan time.Time
	if b.keepAlive > 0 {
		t := time.NewTicker(b.keepAlive)
		defer t.Stop()
		keepAliveCh = t.C
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case o := <-b.outcomeCh:
			var typ string
			switch o.Status {
			case models.StatusUpdated:
				typ = EventDocumentUpdated
			case models.StatusFailed:
				typ = EventDocumentFailed
			case models.StatusSkipped:
				typ = EventDocumentSkipped
			default:
				continue
			}
			broadcast(Event{Type: typ, Data: DocumentData{
				Path:   o.Path,
				Status: o.Status,
				Type:   o.Metadata.Type,
				Error:  o.Error,
			}})
			if o.Status != models.StatusUpdated {
				continue
			}
			if now := time.Now(); now.Sub(lastTree) >= b.treeMin {
				lastTree = now
				broadcast(Event{Type: EventTreeChanged, Data: map[string]string{}})
			}

		case <-keepAliveCh:
			send([]byte(": keep-alive\n\n"))

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishOutcome broadcasts a document outcome. Unchanged documents produce
// no event; updates are followed by a throttled tree.changed event. Its
// signature matches normalizer.WithObserver.
func (b *Broker) PublishOutcome(o models.Outcome) {
	if b.closed.Load() {
		return
	}
	select {
	case b.outcomeCh <- o:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
