package multibuffer

import (
	"fmt"
	"sort"
	"time"

	"github.com/shinyvision/multibuffer/internal/buffer"
	"github.com/shinyvision/multibuffer/internal/excerptid"
	"github.com/shinyvision/multibuffer/internal/host"
)

// bufferState is the controller-owned per-buffer bookkeeping spec §3
// describes: a shared handle, the last-observed generations, and the
// ordered set of excerpt ids referring to this buffer. It is created on
// first excerpt referencing the buffer and destroyed when that list
// empties (spec §3 Lifecycle).
type bufferState struct {
	buf *buffer.Buffer

	lastVersion     int
	lastParse       int
	lastSelections  int
	lastDiagnostics int

	excerptIDs []excerptid.ID // ascending, matching tree order
}

// Composition is the mutable façade spec §4.3 calls the controller: it
// owns the excerpt tree, the buffer-state map, the subscription topic
// and the history, and drives reconciliation. Per spec §5 there is no
// internal locking — every method runs on the host's single cooperative
// task, so, unlike this codebase's buffer.Buffer (shared across a
// composition and external agents, hence mutex-guarded), Composition
// itself carries no mutex; see DESIGN.md.
type Composition struct {
	replicaID buffer.ReplicaID
	tree      Tree

	bufferStates map[buffer.ID]*bufferState
	history      *History
	topic        topic

	isDirty     bool
	hasConflict bool

	parseGeneration       int
	selectionsGeneration  int
	diagnosticsGeneration int

	singletonBuf *buffer.Buffer // set by Singleton; enables the fast paths spec §4.3 names throughout

	host *host.Host // optional; set via SetHost, notified per spec §4.3.1 step 10 and §6
}

// SetHost wires the Host collaborator (spec §6): subscribe/notify buffer
// handles, spawn async tasks, obtain read handles. A Composition works
// without one (Notify becomes a no-op); production callers set it once
// at construction.
func (c *Composition) SetHost(h *host.Host) { c.host = h }

func (c *Composition) notifyHost(bufferID buffer.ID, kind host.EventKind) {
	if c.host == nil {
		return
	}
	c.host.Notify(host.Event{BufferID: bufferID, Kind: kind})
}

// New constructs an empty composition with the default configuration
// (spec §6 new(replica_id)).
func New(replicaID buffer.ReplicaID) *Composition {
	return NewWithConfig(replicaID, NewConfig())
}

// NewWithConfig is New with an explicit Config, for callers that need a
// non-default group_interval (spec §6).
func NewWithConfig(replicaID buffer.ReplicaID, cfg Config) *Composition {
	return &Composition{
		replicaID:    replicaID,
		bufferStates: make(map[buffer.ID]*bufferState),
		history:      newHistoryWithConfig(cfg),
	}
}

// Singleton wraps a single buffer end to end as one excerpt (spec §6
// singleton(buffer)), enabling every singleton fast path.
func Singleton(buf *buffer.Buffer) *Composition {
	c := New(buf.ReplicaID())
	c.singletonBuf = buf
	snap := buf.Snapshot()
	if _, err := c.PushExcerpt(buf, buffer.Range{Start: 0, End: snap.Len()}); err != nil {
		panic(fmt.Sprintf("multibuffer: Singleton: %v", err))
	}
	c.singletonBuf = buf
	return c
}

func anchorRangeFor(buf *buffer.Buffer, rng buffer.Range) buffer.AnchorRange {
	return buffer.AnchorRange{Start: buf.AnchorBefore(rng.Start), End: buf.AnchorAfter(rng.End)}
}

func (c *Composition) state(bufferID buffer.ID) *bufferState { return c.bufferStates[bufferID] }

func (c *Composition) registerExcerpt(buf *buffer.Buffer, id excerptid.ID) {
	st := c.bufferStates[buf.ID()]
	if st == nil {
		st = &bufferState{buf: buf}
		c.bufferStates[buf.ID()] = st
		if c.host != nil {
			c.host.RegisterBuffer(buf)
		}
	}
	st.excerptIDs = append(st.excerptIDs, id)
	sort.Slice(st.excerptIDs, func(i, j int) bool { return st.excerptIDs[i].Less(st.excerptIDs[j]) })
}

func (c *Composition) deregisterExcerpt(e Excerpt) {
	st := c.bufferStates[e.BufferID()]
	if st == nil {
		return
	}
	for i, id := range st.excerptIDs {
		if id.Equal(e.ID()) {
			st.excerptIDs = append(st.excerptIDs[:i], st.excerptIDs[i+1:]...)
			break
		}
	}
	if len(st.excerptIDs) == 0 {
		delete(c.bufferStates, e.BufferID())
		if c.host != nil {
			c.host.CloseBuffer(e.BufferID())
		}
	}
}

// Snapshot reconciles (spec §4.3.4 sync) and returns an immutable view
// (spec §6 snapshot()).
func (c *Composition) Snapshot() Snapshot {
	c.sync()
	return Snapshot{
		replicaID:             c.replicaID,
		tree:                  c.tree,
		isDirty:               c.isDirty,
		hasConflict:           c.hasConflict,
		parseGeneration:       c.parseGeneration,
		selectionsGeneration:  c.selectionsGeneration,
		diagnosticsGeneration: c.diagnosticsGeneration,
	}
}

// Read is an alias for Snapshot (spec §6 read()): every read-path method
// promises reconciliation first.
func (c *Composition) Read() Snapshot { return c.Snapshot() }

// Subscribe returns a handle that, via Consume, reports every composite
// edit delta published since its previous call (spec §4.3.6). A fresh
// subscription's cursor starts at the topic's current length, so it sees
// only deltas published after Subscribe was called, not the whole
// history.
func (c *Composition) Subscribe() *Subscription {
	return &Subscription{topic: &c.topic, cursor: len(c.topic.log)}
}

// ExcerptIdsForBuffer returns the excerpt ids currently referencing
// bufferID, in tree order.
func (c *Composition) ExcerptIdsForBuffer(bufferID buffer.ID) []excerptid.ID {
	st := c.state(bufferID)
	if st == nil {
		return nil
	}
	return append([]excerptid.ID(nil), st.excerptIDs...)
}

// ExcerptedBuffers returns the set of buffer ids any excerpt in rng
// belongs to.
func (c *Composition) ExcerptedBuffers(rng buffer.Range) []buffer.ID {
	snap := c.Snapshot()
	seen := make(map[buffer.ID]bool)
	var out []buffer.ID
	idx, _, ok := snap.tree.seekByOffset(rng.Start, BiasRight)
	if !ok {
		return nil
	}
	for i := idx; i < snap.tree.Count(); i++ {
		e := snap.tree.At(i)
		if snap.tree.OffsetOf(i) >= rng.End {
			break
		}
		if !seen[e.BufferID()] {
			seen[e.BufferID()] = true
			out = append(out, e.BufferID())
		}
	}
	return out
}

// Language and File delegate to the singleton buffer; they are undefined
// (zero value) for a multi-excerpt composition (spec §6).
func (c *Composition) Language() buffer.Language {
	if c.singletonBuf != nil {
		return c.singletonBuf.Language()
	}
	return buffer.LanguageNone
}

func (c *Composition) File() *buffer.File {
	if c.singletonBuf != nil {
		return c.singletonBuf.File()
	}
	return nil
}

// PushExcerpt is insert_after(ExcerptId::max(), ...) (spec §4.3.1).
func (c *Composition) PushExcerpt(buf *buffer.Buffer, rng buffer.Range) (excerptid.ID, error) {
	return c.InsertExcerptAfter(excerptid.Max(), buf, rng)
}

// InsertExcerptAfter implements spec §4.3.1.
func (c *Composition) InsertExcerptAfter(prevID excerptid.ID, buf *buffer.Buffer, rng buffer.Range) (excerptid.ID, error) {
	if c.history.Depth() != 0 {
		panic("multibuffer: insert_after: excerpt list cannot be mutated while a transaction is in progress")
	}
	c.sync()

	snap := buf.Snapshot()
	bufRange := anchorRangeFor(buf, rng)

	var prefixLen int
	switch {
	case prevID.IsMax():
		prefixLen = c.tree.Count()
	case prevID.IsMin():
		prefixLen = 0
	default:
		idx, found := c.tree.indexOfID(prevID)
		if !found {
			panic(fmt.Sprintf("multibuffer: insert_after: excerpt %s does not exist", prevID))
		}
		prefixLen = idx + 1
	}

	prefix := c.tree.slice(prefixLen)
	suffix := c.tree.suffix(prefixLen)

	prevIDEffective := excerptid.Min()
	if prefixLen > 0 {
		prefix = prefix.updateLast(func(e Excerpt) Excerpt { return e.withTrailingNewline(true) })
		prevIDEffective = prefix.At(prefix.Count() - 1).ID()
	}
	nextID := excerptid.Max()
	if suffix.Count() > 0 {
		nextID = suffix.At(0).ID()
	}

	newID := excerptid.Between(prevIDEffective, nextID)
	e := newExcerpt(newID, buf.ID(), snap, bufRange, suffix.Count() > 0)

	insertionPoint := prefix.Len()
	merged := prefix.push(e).pushTree(suffix)
	c.tree = merged

	c.registerExcerpt(buf, newID)

	c.topic.publish([]Delta{{
		OldRange: buffer.Range{Start: insertionPoint, End: insertionPoint},
		NewRange: buffer.Range{Start: insertionPoint, End: insertionPoint + e.compositeLen()},
	}})
	c.notifyHost(buf.ID(), host.EventEdited)

	return newID, nil
}

// RemoveExcerpts implements spec §4.3.2. ids must be given in ascending
// tree order; removing a nonexistent id is programmer misuse (spec §7)
// and panics.
func (c *Composition) RemoveExcerpts(ids []excerptid.ID) error {
	if c.history.Depth() != 0 {
		panic("multibuffer: remove_excerpts: excerpt list cannot be mutated while a transaction is in progress")
	}
	c.sync()
	if len(ids) == 0 {
		return nil
	}

	excerpts := c.tree.Excerpts()
	kept := make([]Excerpt, 0, len(excerpts))
	var deltas []Delta
	removedBuffers := make(map[buffer.ID]bool)

	want := 0
	originalOffset := 0
	newOffset := 0
	runStart := -1
	runRemoved := 0

	flush := func() {
		if runStart == -1 {
			return
		}
		deltas = append(deltas, Delta{
			OldRange: buffer.Range{Start: runStart, End: runStart + runRemoved},
			NewRange: buffer.Range{Start: newOffset, End: newOffset},
		})
		runStart = -1
		runRemoved = 0
	}

	for _, e := range excerpts {
		if want < len(ids) && e.ID().Equal(ids[want]) {
			if runStart == -1 {
				runStart = originalOffset
			}
			c.deregisterExcerpt(e)
			removedBuffers[e.BufferID()] = true
			runRemoved += e.compositeLen()
			originalOffset += e.compositeLen()
			want++
			continue
		}
		flush()
		kept = append(kept, e)
		newOffset += e.compositeLen()
		originalOffset += e.compositeLen()
	}
	flush()

	if want != len(ids) {
		panic(fmt.Sprintf("multibuffer: remove_excerpts: %d of %d excerpt ids do not exist", len(ids)-want, len(ids)))
	}

	if len(kept) > 0 {
		kept[len(kept)-1] = kept[len(kept)-1].withTrailingNewline(false)
	}

	c.tree = newTree(kept)
	c.topic.publish(deltas)
	for bufID := range removedBuffers {
		c.notifyHost(bufID, host.EventEdited)
	}
	return nil
}

// Sync is the public spelling of the internal reconciliation pass (spec
// §4.3.4); most callers never need it directly since every read/write
// path calls it implicitly.
func (c *Composition) Sync() { c.sync() }

func (c *Composition) sync() {
	type refreshJob struct {
		index       int
		bufferEdited bool
		snap        buffer.Snapshot
	}
	var jobs []refreshJob
	c.isDirty = false
	c.hasConflict = false

	for _, st := range c.bufferStates {
		v := st.buf.Version()
		parse := st.buf.ParseCount()
		sel := st.buf.SelectionsUpdateCount()
		diag := st.buf.DiagnosticsUpdateCount()

		if st.buf.IsDirty() {
			c.isDirty = true
		}
		if st.buf.HasConflict() {
			c.hasConflict = true
		}

		advanced := v != st.lastVersion || parse != st.lastParse || sel != st.lastSelections || diag != st.lastDiagnostics
		if v != st.lastVersion {
			c.notifyHost(st.buf.ID(), host.EventEdited)
			if st.buf.IsDirty() {
				c.notifyHost(st.buf.ID(), host.EventDirtied)
			}
		}
		if parse != st.lastParse {
			c.parseGeneration++
			c.notifyHost(st.buf.ID(), host.EventReparsed)
		}
		if diag != st.lastDiagnostics {
			c.diagnosticsGeneration++
			c.notifyHost(st.buf.ID(), host.EventDiagnosticsUpdated)
		}
		if sel != st.lastSelections {
			c.selectionsGeneration++
		}
		if !advanced {
			continue
		}
		bufferEdited := v != st.lastVersion
		snap := st.buf.Snapshot()
		for _, id := range st.excerptIDs {
			idx, ok := c.tree.indexOfID(id)
			if !ok {
				continue
			}
			jobs = append(jobs, refreshJob{index: idx, bufferEdited: bufferEdited, snap: snap})
		}
		st.lastVersion, st.lastParse, st.lastSelections, st.lastDiagnostics = v, parse, sel, diag
	}
	if len(jobs) == 0 {
		return
	}
	sort.Slice(jobs, func(i, j int) bool { return c.tree.At(jobs[i].index).ID().Less(c.tree.At(jobs[j].index).ID()) })

	excerpts := append([]Excerpt(nil), c.tree.Excerpts()...)
	var deltas []Delta
	offset := 0
	offsets := make([]int, len(excerpts)+1)
	for i, e := range excerpts {
		offsets[i] = offset
		offset += e.compositeLen()
	}
	offsets[len(excerpts)] = offset

	jobByIndex := make(map[int]refreshJob, len(jobs))
	for _, job := range jobs {
		jobByIndex[job.index] = job
	}

	// newOffset walks the rebuilt tree alongside offsets[]'s precomputed
	// old-tree cursor (spec §4.3.4's streaming rebuild: slice up to the
	// next changed id, push it, advance the cursor by its possibly-new
	// length). An earlier excerpt in tree order that grew or shrank this
	// pass shifts every later excerpt's true new-tree position, so
	// NewRange must be based on this running cursor, never on offsets[]
	// (which only ever reflects pre-edit lengths).
	newOffset := 0
	for i, e := range excerpts {
		job, isJob := jobByIndex[i]
		oldCompositeStart := offsets[i]
		newCompositeStart := newOffset
		if isJob && job.bufferEdited {
			oldStart, oldEnd := e.startOffset(), e.endOffset()
			newStart := job.snap.Resolve(e.bufferRange.Start)
			newEnd := job.snap.Resolve(e.bufferRange.End)
			st := c.bufferStates[e.BufferID()]
			if job.snap.Version() == e.snapshot.Version()+1 {
				// Single version step: translate each underlying edit that
				// intersects this excerpt's range into composite coordinates
				// by adding the old/new cursor start (spec §4.3.4).
				if bd, ok := st.buf.EditsSinceOneVersion(e.snapshot.Version()); ok {
					for _, d := range bd {
						if d.OldRange.Start < oldEnd && d.OldRange.End > oldStart {
							deltas = append(deltas, Delta{
								OldRange: buffer.Range{Start: oldCompositeStart + (d.OldRange.Start - oldStart), End: oldCompositeStart + (d.OldRange.End - oldStart)},
								NewRange: buffer.Range{Start: newCompositeStart + (d.NewRange.Start - newStart), End: newCompositeStart + (d.NewRange.End - newStart)},
							})
						}
					}
				}
			} else {
				// More than one version elapsed between syncs: fall back to
				// one coarse delta covering the excerpt's whole range rather
				// than composing edits across versions (see DESIGN.md).
				deltas = append(deltas, Delta{
					OldRange: buffer.Range{Start: oldCompositeStart, End: oldCompositeStart + (oldEnd - oldStart)},
					NewRange: buffer.Range{Start: newCompositeStart, End: newCompositeStart + (newEnd - newStart)},
				})
			}
		}
		if isJob {
			excerpts[i] = e.withFreshSnapshot(job.snap)
		}
		newOffset += excerpts[i].compositeLen()
	}

	c.tree = newTree(excerpts)
	c.topic.publish(deltas)
}
