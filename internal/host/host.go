// Package host is a minimal stand-in for the reactive object framework
// spec §1/§6 treats as an opaque collaborator: something that lets the
// composition subscribe to and notify about buffer handles, spawn async
// tasks, and hand out a read handle to a buffer. It is grounded on
// internal/state.State (a single mutex guarding a handle registry) and
// internal/php.DocumentStore (bounded registration with open/closed
// lifecycle), generalized from "documents" to arbitrary buffer handles.
package host

import (
	"context"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/shinyvision/multibuffer/internal/buffer"
)

var logger = commonlog.GetLoggerf("multibuffer.host")

// EventKind enumerates the buffer events spec §6 says get "forwarded to
// host listeners verbatim".
type EventKind int

const (
	EventEdited EventKind = iota
	EventReparsed
	EventDiagnosticsUpdated
	EventSaved
	EventDirtied
)

func (k EventKind) String() string {
	switch k {
	case EventEdited:
		return "edited"
	case EventReparsed:
		return "reparsed"
	case EventDiagnosticsUpdated:
		return "diagnostics_updated"
	case EventSaved:
		return "saved"
	case EventDirtied:
		return "dirtied"
	default:
		return "unknown"
	}
}

// Event is one buffer event, forwarded to every subscriber in arrival
// order (spec §5 "Buffer events are forwarded to host listeners in
// arrival order").
type Event struct {
	BufferID buffer.ID
	Kind     EventKind
}

// Listener receives forwarded buffer events.
type Listener func(Event)

// Host holds the set of buffer handles a composition (or several) draws
// on, plus the subscriber list that gets notified of buffer events and
// excerpt-list mutations alike (spec §4.3.1 step 10, "notify host").
// Mirrors internal/state.State's single mutex over a map, generalized
// from *Document to *buffer.Buffer.
type Host struct {
	mu        sync.Mutex
	buffers   map[buffer.ID]*buffer.Buffer
	listeners []Listener
}

// New constructs an empty Host.
func New() *Host {
	return &Host{buffers: make(map[buffer.ID]*buffer.Buffer)}
}

// RegisterBuffer makes buf available via ReadBuffer, mirroring
// DocumentStore.RegisterOpen's "this handle is now live" registration.
func (h *Host) RegisterBuffer(buf *buffer.Buffer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buffers[buf.ID()] = buf
}

// CloseBuffer removes a handle from the registry, mirroring
// DocumentStore.Close. It does not close the buffer itself: ownership of
// the buffer's lifetime belongs to whoever still holds excerpts over it.
func (h *Host) CloseBuffer(id buffer.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.buffers, id)
}

// ReadBuffer obtains a read handle to a registered buffer (spec §6 "a
// read handle to a buffer").
func (h *Host) ReadBuffer(id buffer.ID) (*buffer.Buffer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	buf, ok := h.buffers[id]
	return buf, ok
}

// Subscribe registers fn to receive every future Notify call. The
// returned func unsubscribes it.
func (h *Host) Subscribe(fn Listener) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
	idx := len(h.listeners) - 1
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if idx < len(h.listeners) {
			h.listeners[idx] = nil
		}
	}
}

// Notify forwards ev to every live subscriber, in arrival (subscription)
// order.
func (h *Host) Notify(ev Event) {
	h.mu.Lock()
	listeners := append([]Listener(nil), h.listeners...)
	h.mu.Unlock()
	for _, fn := range listeners {
		if fn != nil {
			fn(ev)
		}
	}
}

// Spawn runs fn on its own goroutine, the way buffer.Buffer.Format/Save
// spawn their async work, but exposed as a collaborator operation so the
// composition never calls `go` itself (spec §6 "spawn async tasks").
// Cancellation is the caller's responsibility via ctx, same as the
// buffer's own Format/Save contract.
func (h *Host) Spawn(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("spawned task panicked: %v", r)
			}
		}()
		fn(ctx)
	}()
}
