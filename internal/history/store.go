package history

// Store is the persistence abstraction for recording entries.
// The Repository uses Store for all reads and writes; callers of Repository
// do not need to know which Store is used.
type Store interface {
	Get(seq int) (*Entry, bool)
	Set(e *Entry)
	Delete(seq int)
	Sequences() []int
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	entries map[int]*Entry
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[int]*Entry),
	}
}

// Get implements Store.Get.
func (s *InMemoryStore) Get(seq int) (*Entry, bool) {
	e, ok := s.entries[seq]
	return e, ok
}

// Set implements Store.Set.
func (s *InMemoryStore) Set(e *Entry) {
	s.entries[e.Sequence] = e
}

// Delete implements Store.Delete.
func (s *InMemoryStore) Delete(seq int) {
	delete(s.entries, seq)
}

// Sequences implements Store.Sequences. Order is unspecified.
func (s *InMemoryStore) Sequences() []int {
	seqs := make([]int, 0, len(s.entries))
	for seq := range s.entries {
		seqs = append(seqs, seq)
	}
	return seqs
}
