package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/models"
)

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: EventRunFinished, Data: models.Summary{Processed: 3}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: run.finished") || !strings.Contains(s, `"processed":3`) {
			t.Errorf("unexpected message %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishOutcome_EventsAndThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishOutcome(models.Outcome{Path: "a.md", Status: models.StatusUpdated, Metadata: models.Metadata{Type: "testing"}})
	b.PublishOutcome(models.Outcome{Path: "b.md", Status: models.StatusUpdated})
	b.PublishOutcome(models.Outcome{Path: "c.md", Status: models.StatusUnchanged})
	b.PublishOutcome(models.Outcome{Path: "d.md", Status: models.StatusFailed, Error: "unreadable"})
	b.PublishOutcome(models.Outcome{Path: "e.md", Status: models.StatusSkipped})

	time.Sleep(50 * time.Millisecond)
	counts := map[string]int{}
	var all []string
	for _, msg := range drain(ch) {
		all = append(all, msg)
		typ := strings.TrimPrefix(strings.SplitN(msg, "\n", 2)[0], "event: ")
		counts[typ]++
	}

	want := map[string]int{
		EventDocumentUpdated: 2,
		EventDocumentFailed:  1,
		EventDocumentSkipped: 1,
		EventTreeChanged:     1,
	}
	for typ, n := range want {
		if counts[typ] != n {
			t.Errorf("%s events = %d, want %d", typ, counts[typ], n)
		}
	}
	joined := strings.Join(all, "")
	if strings.Contains(joined, "c.md") {
		t.Errorf("unchanged document produced an event: %q", joined)
	}
	if !strings.Contains(joined, `"path":"a.md","status":"updated","type":"testing"`) {
		t.Errorf("missing document payload: %q", joined)
	}
	if !strings.Contains(joined, `"error":"unreadable"`) {
		t.Errorf("missing error payload: %q", joined)
	}
}

func TestKeepAlive(t *testing.T) {
	b := NewBroker(time.Second, WithKeepAlive(20*time.Millisecond))
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	select {
	case msg := <-ch:
		if string(msg) != ": keep-alive\n\n" {
			t.Errorf("msg = %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no keep-alive received")
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishOutcome(models.Outcome{Path: "x.md", Status: models.StatusUpdated})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: document.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Capacity is 64; the extra messages must be dropped, not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}
	b.Publish(Event{Type: "x"})
	b.PublishOutcome(models.Outcome{Path: "x.md", Status: models.StatusUpdated})
}
