package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/enigma/internal/index"
)

func analysis(path string, traversed int, issues ...string) *index.Analysis {
	return &index.Analysis{
		Document: index.DocumentRow{Path: path, HeaderVersion: "27.4", EntryCount: traversed + 1},
		Entries:  make([]index.EntryRow, traversed),
		Issues:   issues,
	}
}

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

func countTypes(msgs []string) map[string]int {
	n := map[string]int{}
	for _, s := range msgs {
		for _, line := range strings.Split(s, "\n") {
			if t, ok := strings.CutPrefix(line, "event: "); ok {
				n[t]++
			}
		}
	}
	return n
}

func TestChangeEvents(t *testing.T) {
	events := ChangeEvents(index.Change{Kind: index.EventCreated, Path: "a.enigmaxml", Analysis: analysis("a.enigmaxml", 4)})
	if len(events) != 1 || events[0].Type != TypeDocumentIndexed {
		t.Fatalf("clean document events = %+v", events)
	}
	d := events[0].Data.(DocumentIndexed)
	if !d.Created || d.Traversed != 4 || d.EntryCount != 5 || d.IssueCount != 0 || d.HeaderVersion != "27.4" {
		t.Errorf("indexed payload = %+v", d)
	}

	events = ChangeEvents(index.Change{Kind: index.EventUpdated, Path: "b.enigmaxml", Analysis: analysis("b.enigmaxml", 2, "chain ended early")})
	if len(events) != 2 || events[1].Type != TypeDocumentIssues {
		t.Fatalf("broken document events = %+v", events)
	}
	if d := events[0].Data.(DocumentIndexed); d.Created || d.IssueCount != 1 {
		t.Errorf("indexed payload = %+v", d)
	}
	if is := events[1].Data.(DocumentIssues); is.Path != "b.enigmaxml" || len(is.Issues) != 1 {
		t.Errorf("issues payload = %+v", is)
	}

	events = ChangeEvents(index.Change{Kind: index.EventDeleted, Path: "c.enigmaxml"})
	if len(events) != 1 || events[0].Data.(DocumentRemoved).Path != "c.enigmaxml" {
		t.Errorf("removed events = %+v", events)
	}

	if events := ChangeEvents(index.Change{Kind: "renamed", Path: "d.enigmaxml"}); len(events) != 0 {
		t.Errorf("unknown kind events = %+v", events)
	}
	if events := ChangeEvents(index.Change{Kind: index.EventUpdated, Path: "e.enigmaxml"}); len(events) != 0 {
		t.Errorf("missing analysis events = %+v", events)
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

	b.Publish(Event{Type: TypeDocumentRemoved, Data: DocumentRemoved{Path: "a.enigmaxml"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "id: ") || !strings.Contains(s, "event: document.removed") {
			t.Errorf("unexpected framing %q", s)
		}
		if !strings.Contains(s, `"path":"a.enigmaxml"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishChange_LibrarySummary(t *testing.T) {
	b := NewBroker(200 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange(index.Change{Kind: index.EventCreated, Path: "a.enigmaxml", Analysis: analysis("a.enigmaxml", 4)})
	b.PublishChange(index.Change{Kind: index.EventUpdated, Path: "b.enigmaxml", Analysis: analysis("b.enigmaxml", 1, "x", "y")})
	b.PublishChange(index.Change{Kind: index.EventDeleted, Path: "c.enigmaxml"})

	time.Sleep(50 * time.Millisecond)
	early := countTypes(drain(ch))
	if early[TypeDocumentIndexed] != 2 || early[TypeDocumentIssues] != 1 || early[TypeDocumentRemoved] != 1 {
		t.Errorf("document events = %v", early)
	}
	if early[TypeLibraryUpdated] != 0 {
		t.Errorf("library.updated sent before the window closed")
	}

	time.Sleep(400 * time.Millisecond)
	late := drain(ch)
	if len(late) != 1 {
		t.Fatalf("late events = %q, want one library.updated", late)
	}
	if !strings.Contains(late[0], `{"indexed":2,"removed":1,"issues":2}`) {
		t.Errorf("summary = %q", late[0])
	}
}

func TestPublishChange_Ignored(t *testing.T) {
	b := NewBroker(10 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange(index.Change{Kind: "renamed", Path: "a.enigmaxml"})
	time.Sleep(50 * time.Millisecond)

	if got := drain(ch); len(got) != 0 {
		t.Errorf("got %q, want no events", got)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
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

	b.PublishChange(index.Change{Kind: index.EventUpdated, Path: "x.enigmaxml", Analysis: analysis("x.enigmaxml", 3)})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: 100\n\n") {
		t.Errorf("missing retry hint: %q", body)
	}
	if !strings.Contains(body, "event: document.indexed") || !strings.Contains(body, `"traversed":3`) {
		t.Errorf("handler output missing event: %q", body)
	}
	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
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

	// Buffer holds 64; the extra events must not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]int{"i": i}})
	}
	if n := len(drain(ch)); n != 64 {
		t.Errorf("buffered = %d, want 64", n)
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()

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
	if _, ok := <-b.Subscribe(); ok {
		t.Error("subscribe after close returned an open channel")
	}
	b.Publish(Event{Type: TypeDocumentRemoved, Data: DocumentRemoved{Path: "x.enigmaxml"}})
	b.PublishChange(index.Change{Kind: index.EventDeleted, Path: "x.enigmaxml"})
}
