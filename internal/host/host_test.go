package host

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shinyvision/multibuffer/internal/buffer"
)

func TestRegisterReadCloseBuffer(t *testing.T) {
	h := New()
	buf := buffer.NewWithContent("b1", 1, buffer.LanguageNone, []byte("hello"))

	_, ok := h.ReadBuffer(buf.ID())
	require.False(t, ok)

	h.RegisterBuffer(buf)
	got, ok := h.ReadBuffer(buf.ID())
	require.True(t, ok)
	require.Equal(t, buf, got)

	h.CloseBuffer(buf.ID())
	_, ok = h.ReadBuffer(buf.ID())
	require.False(t, ok)
}

func TestSubscribeNotifyOrderAndUnsubscribe(t *testing.T) {
	h := New()
	var mu sync.Mutex
	var got []Event

	unsubscribe := h.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
	})

	h.Notify(Event{BufferID: "b1", Kind: EventEdited})
	h.Notify(Event{BufferID: "b1", Kind: EventSaved})

	unsubscribe()
	h.Notify(Event{BufferID: "b1", Kind: EventDirtied})

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []Event{
		{BufferID: "b1", Kind: EventEdited},
		{BufferID: "b1", Kind: EventSaved},
	}, got)
}

func TestSpawnRunsAndRecoversPanics(t *testing.T) {
	h := New()
	done := make(chan struct{})

	h.Spawn(context.Background(), func(ctx context.Context) {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("spawned task never ran")
	}
}

func TestEventKindString(t *testing.T) {
	require.Equal(t, "edited", EventEdited.String())
	require.Equal(t, "reparsed", EventReparsed.String())
	require.Equal(t, "diagnostics_updated", EventDiagnosticsUpdated.String())
	require.Equal(t, "saved", EventSaved.String())
	require.Equal(t, "dirtied", EventDirtied.String())
}
