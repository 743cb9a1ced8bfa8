package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/warmofmeme/memeboard/internal/store"
)

type sequentialIDs struct {
	next int
}

func (p *sequentialIDs) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("id-%04d", p.next), nil
}

func newTestStore(t *testing.T) (*store.Store, *time.Time) {
	t.Helper()
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	recordStore, err := store.New(store.Config{
		KV:         store.NewMemoryKV(0),
		Clock:      func() time.Time { return current },
		IDProvider: &sequentialIDs{},
	})
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	return recordStore, &current
}

func newStoreOnly(t *testing.T) *store.Store {
	t.Helper()
	recordStore, _ := newTestStore(t)
	return recordStore
}
