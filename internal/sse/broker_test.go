package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
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
	ch := b.Subscribe("")
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
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "preset.loaded", Data: map[string]string{"path": "rings.yaml"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: preset.loaded") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"path":"rings.yaml"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestSessionEventPreviewThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.PublishSessionEvent("s1", "fold.applied", map[string]int{"layer_count": 2})
	b.PublishSessionEvent("s1", "dye.applied", nil)
	b.PublishSessionEvent("s1", "unfold.started", 1)
	b.PublishSessionEvent("s2", "dye.applied", nil)

	previews := map[string]int{}
	others := 0
	for _, msg := range drain(ch) {
		if strings.Contains(msg, "event: "+PreviewUpdated) {
			switch {
			case strings.Contains(msg, `"session_id":"s1"`):
				previews["s1"]++
			case strings.Contains(msg, `"session_id":"s2"`):
				previews["s2"]++
			}
			continue
		}
		others++
	}
	if others != 4 {
		t.Errorf("session events = %d, want 4", others)
	}
	if previews["s1"] != 1 || previews["s2"] != 1 {
		t.Errorf("previews = %v, want one per session", previews)
	}
}

func TestSessionFilter(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	only := b.Subscribe("s1")
	defer b.Unsubscribe(only)

	b.PublishSessionEvent("s2", "unfold.started", 0)
	b.PublishSessionEvent("s1", "unfold.started", 0)
	b.Publish(Event{Type: "preset.removed"})

	msgs := drain(only)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2: %q", len(msgs), msgs)
	}
	if strings.Contains(msgs[0], `"s2"`) || strings.Contains(msgs[1], `"s2"`) {
		t.Errorf("filtered client got other session: %q", msgs)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events?session=s1", nil)
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

	b.PublishSessionEvent("s1", "unfold.complete", map[string]int{"marks": 8})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: unfold.complete") {
		t.Errorf("handler output missing event: %q", body)
	}
	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("content type = %q", w.Header().Get("Content-Type"))
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	// Capacity is 64; overflow must not block the loop.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe("")
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

	b.Publish(Event{Type: "dye.applied"})
	b.PublishSessionEvent("s1", "dye.applied", nil)
}
