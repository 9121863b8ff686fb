// Package loadstate is the process-wide loading-state protocol: components
// that trigger a navigation broadcast a start event, and display components
// independently enter a loading state they clear when their data identity
// changes — or when a safety timer fires, so a silently failed fetch (or a
// response identical to the previous page) can never leave them stuck.
package loadstate

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Kind tags a navigation start event.
type Kind string

const (
	KindPagination  Kind = "pagination-start"
	KindFilter      Kind = "filter-start"
	KindPriceFilter Kind = "price-filter-start"
)

// Event is an ephemeral broadcast signal with no payload beyond its kind.
type Event struct {
	Kind Kind
}

// DefaultTimeout is the safety timeout after which a loading state clears
// even if no data arrived.
const DefaultTimeout = 3 * time.Second

// Bus is a fire-and-forget broadcast channel shared by all surfaces.
// Subscribers must tolerate events they did not cause; a slow subscriber
// misses events rather than blocking the publisher.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener and returns its channel plus an
// unsubscribe function. Unsubscribing is idempotent.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, 8)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Publish broadcasts the event to all current subscribers without
// blocking. Events to subscribers with full buffers are dropped.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Tracker holds the loading state of one display component. OnEvent enters
// the loading state and arms the safety timer; OnData clears it when the
// identity of the displayed records changes. Stop releases the timer so
// repeated mount/unmount cycles never leak.
type Tracker struct {
	mu       sync.Mutex
	loading  bool
	identity string
	timeout  time.Duration
	timer    *time.Timer
	// gen invalidates timer callbacks that fired before a re-arm but are
	// still waiting on the mutex; Stop cannot cancel those.
	gen uint64
}

// NewTracker creates a Tracker. A non-positive timeout uses DefaultTimeout.
func NewTracker(timeout time.Duration) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{timeout: timeout}
}

// Loading reports whether the component is currently in its loading state.
func (t *Tracker) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// OnEvent reacts to any navigation start event, including ones this
// component did not initiate.
func (t *Tracker) OnEvent(Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.loading = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(t.timeout, func() { t.timeoutClear(gen) })
}

// OnData reports the record ids now displayed. The loading state clears
// when the identity differs from the previous data; an identical set keeps
// it armed until the safety timer fires.
func (t *Tracker) OnData(ids []string) {
	identity := identityOf(ids)

	t.mu.Lock()
	defer t.mu.Unlock()

	if identity == t.identity {
		return
	}
	t.identity = identity
	t.clearLocked()
}

// Stop cancels the safety timer. Call on unmount.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Tracker) timeoutClear(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return
	}
	t.clearLocked()
}

func (t *Tracker) clearLocked() {
	t.loading = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// identityOf reduces a record id set to a comparable identity. Order is
// normalized so a reshuffled page does not count as new data.
func identityOf(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x1f")
}
