// Package sse streams library changes as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/enigma/internal/index"
)

// Event types sent to clients.
const (
	TypeDocumentIndexed = "document.indexed"
	TypeDocumentIssues  = "document.issues"
	TypeDocumentRemoved = "document.removed"
	TypeLibraryUpdated  = "library.updated"
)

// Event is one message broadcast to every client.
type Event struct {
	Type string
	Data any
}

// DocumentIndexed is the payload of document.indexed.
type DocumentIndexed struct {
	Path          string `json:"path"`
	Created       bool   `json:"created"`
	HeaderVersion string `json:"headerVersion,omitempty"`
	EntryCount    int    `json:"entryCount"`
	Traversed     int    `json:"traversed"`
	IssueCount    int    `json:"issueCount"`
}

// DocumentIssues is the payload of document.issues, sent after
// document.indexed when the analysis found consistency violations.
type DocumentIssues struct {
	Path   string   `json:"path"`
	Issues []string `json:"issues"`
}

// DocumentRemoved is the payload of document.removed.
type DocumentRemoved struct {
	Path string `json:"path"`
}

// LibraryUpdated is the payload of library.updated. It totals the changes
// seen since the previous library.updated.
type LibraryUpdated struct {
	Indexed int `json:"indexed"`
	Removed int `json:"removed"`
	Issues  int `json:"issues"`
}

// ChangeEvents returns the document events for one index change. Unknown
// kinds and index changes without an analysis yield nothing.
func ChangeEvents(c index.Change) []Event {
	switch c.Kind {
	case index.EventCreated, index.EventUpdated:
		a := c.Analysis
		if a == nil {
			return nil
		}
		events := []Event{{Type: TypeDocumentIndexed, Data: DocumentIndexed{
			Path:          c.Path,
			Created:       c.Kind == index.EventCreated,
			HeaderVersion: a.Document.HeaderVersion,
			EntryCount:    a.Document.EntryCount,
			Traversed:     len(a.Entries),
			IssueCount:    len(a.Issues),
		}}}
		if len(a.Issues) > 0 {
			events = append(events, Event{Type: TypeDocumentIssues, Data: DocumentIssues{Path: c.Path, Issues: a.Issues}})
		}
		return events
	case index.EventDeleted:
		return []Event{{Type: TypeDocumentRemoved, Data: DocumentRemoved{Path: c.Path}}}
	}
	return nil
}

// hub is the state owned by the broker goroutine.
type hub struct {
	clients map[chan []byte]struct{}
	pending LibraryUpdated
	dirty   bool
}

func (h *hub) broadcast(e Event) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return
	}
	raw := []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", uuid.NewString(), e.Type, payload))
	for ch := range h.clients {
		select {
		case ch <- raw:
		default:
			// slow client
		}
	}
}

func (h *hub) record(c index.Change) {
	switch c.Kind {
	case index.EventDeleted:
		h.pending.Removed++
	default:
		h.pending.Indexed++
		h.pending.Issues += len(c.Analysis.Issues)
	}
	h.dirty = true
}

// Broker fans events out to connected clients. Every operation runs as a
// command on the broker goroutine.
type Broker struct {
	window time.Duration
	cmds   chan func(*hub)
	stop   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewBroker starts a broker. library.updated is sent once per window after
// the first change in it; a non-positive window means two seconds.
func NewBroker(window time.Duration) *Broker {
	if window <= 0 {
		window = 2 * time.Second
	}
	b := &Broker{
		window: window,
		cmds:   make(chan func(*hub)),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.done)

	h := &hub{clients: make(map[chan []byte]struct{})}
	var flush <-chan time.Time
	for {
		select {
		case <-b.stop:
			for ch := range h.clients {
				close(ch)
			}
			return
		case cmd := <-b.cmds:
			cmd(h)
			if h.dirty && flush == nil {
				flush = time.After(b.window)
			}
		case <-flush:
			h.broadcast(Event{Type: TypeLibraryUpdated, Data: h.pending})
			h.pending, h.dirty, flush = LibraryUpdated{}, false, nil
		}
	}
}

// exec hands cmd to the broker goroutine. It reports false once the broker
// is closed.
func (b *Broker) exec(cmd func(*hub)) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.cmds <- cmd:
		return true
	case <-b.done:
		return false
	}
}

// Close stops the broker and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stop)
	}
	<-b.done
}

// Subscribe registers a client and returns its channel. The channel is
// closed on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if !b.exec(func(h *hub) { h.clients[ch] = struct{}{} }) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.exec(func(h *hub) {
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !b.exec(func(h *hub) { resp <- len(h.clients) }) {
		return 0
	}
	return <-resp
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(e Event) {
	b.exec(func(h *hub) { h.broadcast(e) })
}

// PublishChange sends the events of an index change and counts it towards
// the next library.updated. Its signature matches index.EventCallback.
func (b *Broker) PublishChange(c index.Change) {
	events := ChangeEvents(c)
	if len(events) == 0 {
		return
	}
	b.exec(func(h *hub) {
		for _, e := range events {
			h.broadcast(e)
		}
		h.record(c)
	})
}

// ServeHTTP is the event stream endpoint.
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
	fmt.Fprintf(w, "retry: %d\n\n", b.window.Milliseconds())
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
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
