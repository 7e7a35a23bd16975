package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType names the three progress signals the pipeline emits.
type EventType string

const (
	// EventBatchCreated fires synchronously at submission time, before any
	// server acknowledgement, so observers can render an optimistic indicator.
	EventBatchCreated EventType = "batch_created"
	// EventBatchVisible fires when the aggregated active-batch file count
	// becomes observable from persisted state, collapsing consecutive
	// duplicates.
	EventBatchVisible EventType = "batch_visible"
	// EventBatchReady fires once the persisted total first reaches the
	// expected count announced by EventBatchCreated.
	EventBatchReady EventType = "batch_ready"
)

// Event is one typed progress signal for a logical submission.
type Event struct {
	Type          EventType `json:"type"`
	SubmissionID  uuid.UUID `json:"submission_id"`
	ExpectedFiles int       `json:"expected_files,omitempty"`
	CurrentTotal  int       `json:"current_total,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Bus fans progress events out to subscribers. Publishing never blocks; a
// subscriber that stops draining its channel loses events rather than
// stalling the pipeline.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers an observer. The returned cancel func removes the
// subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Event, 64)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// Publish delivers the event to every subscriber.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

type submissionState struct {
	expected    int
	lastVisible int
	hasVisible  bool
	ready       bool
	deadline    time.Time
}

// Tracker turns raw submission observations into the three-signal contract:
// batch_created precedes batch_ready for the same submission, batch_visible
// collapses consecutive equal totals, and batch_ready fires at most once.
type Tracker struct {
	bus     *Bus
	timeout time.Duration
	now     func() time.Time

	mu    sync.Mutex
	state map[uuid.UUID]*submissionState
}

// NewTracker creates a Tracker publishing onto bus. timeout bounds how long
// a submission is tracked while waiting to reach its expected count; an
// expired submission simply stops being tracked, the underlying batches are
// unaffected.
func NewTracker(bus *Bus, timeout time.Duration) *Tracker {
	return &Tracker{
		bus:     bus,
		timeout: timeout,
		now:     time.Now,
		state:   make(map[uuid.UUID]*submissionState),
	}
}

// BatchCreated announces a new logical submission and its expected file
// count. It emits batch_created immediately.
func (t *Tracker) BatchCreated(submissionID uuid.UUID, expectedFiles int) {
	now := t.now()
	t.mu.Lock()
	t.state[submissionID] = &submissionState{
		expected: expectedFiles,
		deadline: now.Add(t.timeout),
	}
	t.mu.Unlock()

	t.bus.Publish(Event{
		Type:          EventBatchCreated,
		SubmissionID:  submissionID,
		ExpectedFiles: expectedFiles,
		Timestamp:     now,
	})
}

// ObserveTotal feeds the aggregated persisted file count of a submission
// back into the tracker. It emits batch_visible when the total changed
// since the last emission and batch_ready the first time the total reaches
// the expected count.
func (t *Tracker) ObserveTotal(submissionID uuid.UUID, currentTotal int) {
	now := t.now()

	t.mu.Lock()
	st, ok := t.state[submissionID]
	if !ok {
		t.mu.Unlock()
		return
	}
	if now.After(st.deadline) {
		delete(t.state, submissionID)
		t.mu.Unlock()
		return
	}

	var events []Event
	if !st.hasVisible || currentTotal != st.lastVisible {
		st.hasVisible = true
		st.lastVisible = currentTotal
		events = append(events, Event{
			Type:         EventBatchVisible,
			SubmissionID: submissionID,
			CurrentTotal: currentTotal,
			Timestamp:    now,
		})
	}
	if !st.ready && currentTotal >= st.expected {
		st.ready = true
		delete(t.state, submissionID)
		events = append(events, Event{
			Type:          EventBatchReady,
			SubmissionID:  submissionID,
			ExpectedFiles: st.expected,
			CurrentTotal:  currentTotal,
			Timestamp:     now,
		})
	}
	t.mu.Unlock()

	for _, ev := range events {
		t.bus.Publish(ev)
	}
}

// Expire drops submissions whose ready deadline passed without the expected
// count ever being reached.
func (t *Tracker) Expire() {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, st := range t.state {
		if now.After(st.deadline) {
			delete(t.state, id)
		}
	}
}
