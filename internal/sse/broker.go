// Package sse streams dataset changes to clients as Server-Sent Events.
//
// Every applied dataset file produces a dataset.<kind> event. Imports and
// removals also feed a graph.updated event that tells clients to refetch;
// it is sent at most once per throttle window and summarizes every change
// since the previous one.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/starford/graphlens/internal/metrics"
)

// Dataset change kinds.
const (
	KindImported = "imported"
	KindRemoved  = "removed"
	KindFailed   = "failed"
)

const eventGraphUpdated = "graph.updated"

const (
	// keepAliveInterval spaces comment lines that stop proxies from closing idle streams.
	keepAliveInterval = 30 * time.Second
	// retryMillis is the reconnect delay suggested to clients.
	retryMillis = 3000
	// clientBuffer is the per-client backlog; frames beyond it are dropped.
	clientBuffer = 64
)

// DatasetChange describes one applied dataset file change.
type DatasetChange struct {
	Kind          string `json:"-"`
	Name          string `json:"name"`
	Entities      int    `json:"entities,omitempty"`
	Relationships int    `json:"relationships,omitempty"`
	Chunks        int    `json:"chunks,omitempty"`
	Error         string `json:"error,omitempty"`
}

// GraphUpdate is the graph.updated payload: the datasets touched since the
// previous graph.updated event.
type GraphUpdate struct {
	Datasets []string `json:"datasets"`
	Imported int      `json:"imported"`
	Removed  int      `json:"removed"`
}

func (u *GraphUpdate) add(c DatasetChange) {
	if !slices.Contains(u.Datasets, c.Name) {
		u.Datasets = append(u.Datasets, c.Name)
	}
	switch c.Kind {
	case KindImported:
		u.Imported++
	case KindRemoved:
		u.Removed++
	}
}

// Broker fans dataset changes out to connected clients.
//
// A single loop goroutine owns the client set, the event sequence and the
// pending graph update; the public methods talk to it over channels.
type Broker struct {
	graphMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	datasetCh     chan DatasetChange
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that sends graph.updated at most once per
// graphThrottle.
func NewBroker(graphThrottle time.Duration) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = 2 * time.Second
	}

	b := &Broker{
		graphMin:      graphThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		datasetCh:     make(chan DatasetChange, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// frame renders one event. ids increase per broker so clients can spot gaps
// left by a full buffer.
func frame(id uint64, event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", id, event, payload)), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		seq       uint64
		lastGraph time.Time
		pending   *GraphUpdate
		flush     *time.Timer
		flushC    <-chan time.Time
	)

	send := func(event string, data any) {
		seq++
		msg, err := frame(seq, event, data)
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	sendGraph := func(now time.Time) {
		send(eventGraphUpdated, pending)
		pending = nil
		lastGraph = now
	}

	for {
		select {
		case <-b.stopCh:
			if flush != nil {
				flush.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			metrics.EventStreams.Sub(float64(len(clients)))
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}
			metrics.EventStreams.Inc()

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
				metrics.EventStreams.Dec()
			}

		case change := <-b.datasetCh:
			send("dataset."+change.Kind, change)
			if change.Kind == KindFailed {
				continue
			}
			if pending == nil {
				pending = &GraphUpdate{}
			}
			pending.add(change)

			now := time.Now()
			if wait := b.graphMin - now.Sub(lastGraph); wait > 0 {
				// Inside the window: the timer sends the summary when it closes.
				if flushC == nil {
					flush = time.NewTimer(wait)
					flushC = flush.C
				}
				continue
			}
			sendGraph(now)

		case now := <-flushC:
			flushC = nil
			if pending != nil {
				sendGraph(now)
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel. It is safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
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

// PublishDatasetChange announces an applied dataset change.
func (b *Broker) PublishDatasetChange(change DatasetChange) {
	if b.closed.Load() {
		return
	}
	select {
	case b.datasetCh <- change:
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
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(keepAliveInterval)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
