// Package history keeps a bounded, in-memory log of recording attempts.
package history

import (
	"errors"
	"slices"
	"sync"
	"time"
)

// Repository defines the concurrency-safe contract for recording history.
type Repository interface {
	// Begin records a recording that is now live.
	Begin(e Entry) error

	// Fail records a recording whose pipeline could not be built.
	Fail(e Entry, cause error) error

	// Finish marks a live recording as stopped with its final summary.
	Finish(seq int, s Summary) error

	// Get returns a copy of the entry for seq.
	Get(seq int) (Entry, bool)

	// List returns copies of all entries, oldest first.
	List() []Entry
}

var (
	// ErrDuplicate is returned when an entry for the sequence already exists.
	ErrDuplicate = errors.New("recording already in history")

	// ErrNotFound is returned when finishing an unknown sequence.
	ErrNotFound = errors.New("recording not in history")

	// ErrNotLive is returned when finishing an entry that is not recording.
	ErrNotLive = errors.New("recording is not live")
)

// DefaultLimit is the number of entries kept by NewInMemoryRepository.
const DefaultLimit = 256

// InMemoryRepository is a concurrency-safe implementation of Repository.
// When full, the oldest entry that is not live is evicted.
type InMemoryRepository struct {
	mu    sync.RWMutex
	store Store
	limit int
	now   func() time.Time
}

// NewInMemoryRepository constructs a repository with a default in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return NewInMemoryRepositoryWithStore(NewInMemoryStore(), DefaultLimit)
}

// NewInMemoryRepositoryWithStore constructs a repository that uses the given
// Store and keeps at most limit entries. A limit <= 0 keeps everything.
func NewInMemoryRepositoryWithStore(store Store, limit int) *InMemoryRepository {
	return &InMemoryRepository{store: store, limit: limit, now: func() time.Time { return time.Now().UTC() }}
}

// Begin implements Repository.Begin.
func (r *InMemoryRepository) Begin(e Entry) error {
	e.Outcome = OutcomeRecording
	if e.StartedAt.IsZero() {
		e.StartedAt = r.now()
	}
	return r.insert(e)
}

// Fail implements Repository.Fail.
func (r *InMemoryRepository) Fail(e Entry, cause error) error {
	now := r.now()
	e.Outcome = OutcomeFailed
	if cause != nil {
		e.Error = cause.Error()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = now
	}
	e.StoppedAt = &now
	return r.insert(e)
}

func (r *InMemoryRepository) insert(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store.Get(e.Sequence); exists {
		return ErrDuplicate
	}
	e.Streams = slices.Clone(e.Streams)
	r.store.Set(&e)
	r.evictLocked()
	return nil
}

// Finish implements Repository.Finish.
func (r *InMemoryRepository) Finish(seq int, s Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.store.Get(seq)
	if !ok {
		return ErrNotFound
	}
	if e.Outcome != OutcomeRecording {
		return ErrNotLive
	}
	now := r.now()
	e.Outcome = OutcomeFinished
	e.StoppedAt = &now
	e.Summary = s
	return nil
}

// Get implements Repository.Get.
func (r *InMemoryRepository) Get(seq int) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.store.Get(seq)
	if !ok {
		return Entry{}, false
	}
	return copyEntry(e), true
}

// List implements Repository.List.
func (r *InMemoryRepository) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seqs := r.store.Sequences()
	slices.Sort(seqs)
	out := make([]Entry, 0, len(seqs))
	for _, seq := range seqs {
		if e, ok := r.store.Get(seq); ok {
			out = append(out, copyEntry(e))
		}
	}
	return out
}

// evictLocked drops the oldest entries that are not live until the limit holds.
// Caller must hold r.mu in write mode.
func (r *InMemoryRepository) evictLocked() {
	if r.limit <= 0 {
		return
	}
	seqs := r.store.Sequences()
	if len(seqs) <= r.limit {
		return
	}
	slices.Sort(seqs)
	excess := len(seqs) - r.limit
	for _, seq := range seqs {
		if excess == 0 {
			return
		}
		if e, ok := r.store.Get(seq); ok && e.Outcome == OutcomeRecording {
			continue
		}
		r.store.Delete(seq)
		excess--
	}
}

func copyEntry(e *Entry) Entry {
	c := *e
	c.Streams = slices.Clone(e.Streams)
	if e.StoppedAt != nil {
		t := *e.StoppedAt
		c.StoppedAt = &t
	}
	return c
}
