package history

import (
	"sort"
	"testing"
)

func TestInMemoryStore_GetSet(t *testing.T) {
	store := NewInMemoryStore()

	if _, ok := store.Get(1); ok {
		t.Error("expected not found for empty store")
	}

	e := &Entry{Sequence: 1, File: "a.mp4"}
	store.Set(e)

	got, ok := store.Get(1)
	if !ok || got != e {
		t.Errorf("Get: ok=%v, got %p want %p", ok, got, e)
	}
}

func TestInMemoryStore_SetReplacesAndDelete(t *testing.T) {
	store := NewInMemoryStore()
	e1 := &Entry{Sequence: 1}
	e2 := &Entry{Sequence: 1}
	store.Set(e1)
	store.Set(e2)

	if got, _ := store.Get(1); got != e2 {
		t.Errorf("Set should replace: got %p want %p", got, e2)
	}

	store.Set(&Entry{Sequence: 2})
	seqs := store.Sequences()
	sort.Ints(seqs)
	if len(seqs) != 2 || seqs[0] != 1 || seqs[1] != 2 {
		t.Errorf("Sequences = %v", seqs)
	}

	store.Delete(1)
	if _, ok := store.Get(1); ok {
		t.Error("Delete should remove the entry")
	}
}

func TestNewInMemoryRepositoryWithStore(t *testing.T) {
	store := NewInMemoryStore()
	repo := NewInMemoryRepositoryWithStore(store, 0)

	if err := repo.Begin(Entry{Sequence: 7}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if e, ok := store.Get(7); !ok || e.Outcome != OutcomeRecording {
		t.Error("injected store should contain the entry after Begin")
	}
}
