package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

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

// eventType returns the event name of one frame.
func eventType(msg string) string {
	for _, line := range strings.Split(msg, "\n") {
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			return name
		}
	}
	return ""
}

// drain collects every message already queued on ch, keyed by event type.
func drain(ch chan []byte) map[string][]string {
	time.Sleep(50 * time.Millisecond)
	got := make(map[string][]string)
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			got[eventType(s)] = append(got[eventType(s)], s)
		default:
			return got
		}
	}
}

func TestPublishDatasetChange_Delivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDatasetChange(DatasetChange{Kind: KindImported, Name: "a.yaml", Entities: 3})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "id: 1\nevent: dataset.imported\n") {
			t.Errorf("unexpected frame header in %q", s)
		}
		if !strings.Contains(s, `"name":"a.yaml"`) || !strings.Contains(s, `"entities":3`) {
			t.Errorf("missing data in %q", s)
		}
		if strings.Contains(s, "Kind") {
			t.Errorf("kind belongs in the event name, not the data: %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishDatasetChange_GraphThrottle(t *testing.T) {
	b := NewBroker(300 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// The first change announces the graph update right away.
	b.PublishDatasetChange(DatasetChange{Kind: KindImported, Name: "a.yaml"})
	// Changes inside the window wait for it to close.
	b.PublishDatasetChange(DatasetChange{Kind: KindRemoved, Name: "b.yaml"})
	b.PublishDatasetChange(DatasetChange{Kind: KindImported, Name: "c.yaml"})

	got := drain(ch)
	if len(got["dataset.imported"]) != 2 || len(got["dataset.removed"]) != 1 {
		t.Errorf("dataset events = %v", got)
	}
	graph := got[eventGraphUpdated]
	if len(graph) != 1 || !strings.Contains(graph[0], `"datasets":["a.yaml"]`) {
		t.Fatalf("leading graph update = %v", graph)
	}

	time.Sleep(400 * time.Millisecond)
	trailing := drain(ch)[eventGraphUpdated]
	if len(trailing) != 1 {
		t.Fatalf("trailing graph updates = %v, want 1", trailing)
	}
	if !strings.Contains(trailing[0], `"datasets":["b.yaml","c.yaml"],"imported":1,"removed":1`) {
		t.Errorf("trailing summary = %q", trailing[0])
	}
}

func TestPublishDatasetChange_FailureSkipsGraphUpdate(t *testing.T) {
	b := NewBroker(10 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDatasetChange(DatasetChange{Kind: KindFailed, Name: "bad.yaml", Error: "entity #1 has no id"})

	got := drain(ch)
	if len(got["dataset.failed"]) != 1 {
		t.Fatalf("failed events = %v", got)
	}
	if !strings.Contains(got["dataset.failed"][0], "entity #1 has no id") {
		t.Errorf("missing error in %q", got["dataset.failed"][0])
	}
	if len(got[eventGraphUpdated]) != 0 {
		t.Error("a failed import must not announce a graph update")
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

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishDatasetChange(DatasetChange{Kind: KindRemoved, Name: "x.yaml"})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("missing retry hint: %q", body)
	}
	if !strings.Contains(body, "event: dataset.removed") || !strings.Contains(body, "event: graph.updated") {
		t.Errorf("handler output missing events: %q", body)
	}

	// Client should be cleaned up.
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

	// More failures than the client buffer holds must not block the loop.
	for i := 0; i < clientBuffer+10; i++ {
		b.PublishDatasetChange(DatasetChange{Kind: KindFailed, Name: "bad.yaml"})
	}
	if n := len(drain(ch)["dataset.failed"]); n != clientBuffer {
		t.Errorf("delivered %d frames, want %d", n, clientBuffer)
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

	// Should be safe no-op after close.
	b.PublishDatasetChange(DatasetChange{Kind: KindRemoved, Name: "x.yaml"})
	b.Close()
}
