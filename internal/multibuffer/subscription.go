package multibuffer

import "github.com/shinyvision/multibuffer/internal/buffer"

// Delta is a composite edit notification, in composite byte coordinates
// (spec §4.3.6).
type Delta = buffer.Delta

// topic is the publish-subscribe log every mutation path appends to
// (spec §4.3.6, §5 ordering guarantees: deltas are published atomically
// before the mutating call returns).
type topic struct {
	log []Delta
}

func (t *topic) publish(deltas []Delta) {
	if len(deltas) == 0 {
		return
	}
	t.log = append(t.log, deltas...)
}

// Subscription is a handle obtained via Composition.Subscribe. Consume
// returns every delta published since the previous Consume call, in
// publication order.
type Subscription struct {
	topic  *topic
	cursor int
}

func (s *Subscription) Consume() []Delta {
	if s.cursor >= len(s.topic.log) {
		return nil
	}
	out := append([]Delta(nil), s.topic.log[s.cursor:]...)
	s.cursor = len(s.topic.log)
	return out
}
