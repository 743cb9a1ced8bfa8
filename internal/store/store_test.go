package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type sequentialIDs struct {
	next int
}

func (p *sequentialIDs) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("id-%04d", p.next), nil
}

func newTestStore(t *testing.T, quotaBytes int64) (*Store, *time.Time) {
	t.Helper()
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store, err := New(Config{
		KV:         NewMemoryKV(quotaBytes),
		Clock:      func() time.Time { return current },
		IDProvider: &sequentialIDs{},
	})
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	return store, &current
}

func TestCreateAssignsIDAndCreatedAt(t *testing.T) {
	store, _ := newTestStore(t, 0)

	created, err := store.Create(CollectionUsers, Record{"username": "admin"})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if created.ID() != "id-0001" {
		t.Fatalf("unexpected id %q", created.ID())
	}
	createdAt, _ := created["createdAt"].(string)
	if _, err := time.Parse(time.RFC3339Nano, createdAt); err != nil {
		t.Fatalf("createdAt is not RFC3339Nano: %q", createdAt)
	}

	records, err := store.GetAll(CollectionUsers)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if len(records) != 1 || records[0]["username"] != "admin" {
		t.Fatalf("unexpected records %#v", records)
	}
}

func TestCreateKeepsProvidedIDAndTimestamp(t *testing.T) {
	store, _ := newTestStore(t, 0)

	created, err := store.Create(CollectionMemes, Record{
		"id":        "fixed",
		"createdAt": "2020-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if created.ID() != "fixed" || created["createdAt"] != "2020-01-01T00:00:00Z" {
		t.Fatalf("create overwrote caller fields: %#v", created)
	}
}

func TestGetAllReturnsEmptyForAbsentCollection(t *testing.T) {
	store, _ := newTestStore(t, 0)

	records, err := store.GetAll(CollectionVotes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty slice, got %#v", records)
	}
}

func TestGetAllFailsOnCorruptCollection(t *testing.T) {
	store, _ := newTestStore(t, 0)
	if err := store.SetValue(CollectionMemes, "{not json"); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}

	if _, err := store.GetAll(CollectionMemes); err == nil {
		t.Fatalf("expected error for corrupt collection")
	}
}

func TestGetByIDReturnsNilForUnknownID(t *testing.T) {
	store, _ := newTestStore(t, 0)
	if _, err := store.Create(CollectionUsers, Record{"username": "admin"}); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	record, err := store.GetByID(CollectionUsers, "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil record, got %#v", record)
	}
}

func TestUpdateMergesPatchAndStampsUpdatedAt(t *testing.T) {
	store, clock := newTestStore(t, 0)
	created, err := store.Create(CollectionMemes, Record{"title": "before", "voteCount": 3})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	*clock = clock.Add(time.Hour)
	updated, err := store.Update(CollectionMemes, created.ID(), Record{"title": "after"})
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if updated["title"] != "after" {
		t.Fatalf("patch not applied: %#v", updated)
	}
	if voteCount, _ := updated["voteCount"].(float64); voteCount != 3 {
		t.Fatalf("unpatched field lost: %#v", updated["voteCount"])
	}
	updatedAt, _ := updated["updatedAt"].(string)
	if !strings.HasPrefix(updatedAt, "2026-08-01T13:00:00") {
		t.Fatalf("unexpected updatedAt %q", updatedAt)
	}
}

func TestUpdateUnknownIDReturnsNilAndLeavesCollection(t *testing.T) {
	store, _ := newTestStore(t, 0)
	if _, err := store.Create(CollectionMemes, Record{"title": "only"}); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	updated, err := store.Update(CollectionMemes, "missing", Record{"title": "changed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated != nil {
		t.Fatalf("expected nil for unknown id, got %#v", updated)
	}

	records, err := store.GetAll(CollectionMemes)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if len(records) != 1 || records[0]["title"] != "only" {
		t.Fatalf("collection was modified: %#v", records)
	}
}

func TestDeleteReportsWhetherAnythingWasRemoved(t *testing.T) {
	store, _ := newTestStore(t, 0)
	created, err := store.Create(CollectionComments, Record{"text": "hello"})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	removed, err := store.Delete(CollectionComments, created.ID())
	if err != nil || !removed {
		t.Fatalf("expected removal, got removed=%v err=%v", removed, err)
	}
	removed, err = store.Delete(CollectionComments, created.ID())
	if err != nil || removed {
		t.Fatalf("expected no-op removal, got removed=%v err=%v", removed, err)
	}
}

func TestFindAndCountFilterByPredicate(t *testing.T) {
	store, _ := newTestStore(t, 0)
	for _, category := range []string{"Funny", "Dark", "Funny"} {
		if _, err := store.Create(CollectionMemes, Record{"category": category}); err != nil {
			t.Fatalf("unexpected create error: %v", err)
		}
	}

	funny := func(record Record) bool { return record["category"] == "Funny" }

	matched, err := store.Find(CollectionMemes, funny)
	if err != nil {
		t.Fatalf("unexpected find error: %v", err)
	}
	if len(matched) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matched))
	}

	count, err := store.Count(CollectionMemes, funny)
	if err != nil || count != 2 {
		t.Fatalf("expected count 2, got %d err=%v", count, err)
	}
	total, err := store.Count(CollectionMemes, nil)
	if err != nil || total != 3 {
		t.Fatalf("expected total 3, got %d err=%v", total, err)
	}

	first, err := store.FindOne(CollectionMemes, funny)
	if err != nil || first == nil {
		t.Fatalf("expected a match, got %#v err=%v", first, err)
	}
}

func TestCreateEvictsOldestMemesWhenCapacityExceeded(t *testing.T) {
	store, clock := newTestStore(t, 8*1024)

	// Fourteen memes fit comfortably; the oversized fifteenth forces a
	// capacity failure, eviction down to ten, and a successful retry.
	for i := 0; i < 14; i++ {
		*clock = clock.Add(time.Minute)
		_, err := store.Create(CollectionMemes, Record{
			"title":   fmt.Sprintf("meme-%02d", i),
			"padding": strings.Repeat("x", 256),
		})
		if err != nil {
			t.Fatalf("unexpected create error at %d: %v", i, err)
		}
	}

	*clock = clock.Add(time.Minute)
	created, err := store.Create(CollectionMemes, Record{
		"title":   "oversized",
		"padding": strings.Repeat("y", 4096),
	})
	if err != nil {
		t.Fatalf("expected eviction retry to succeed: %v", err)
	}

	records, err := store.GetAll(CollectionMemes)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if len(records) != 11 {
		t.Fatalf("expected 10 survivors plus the new meme, got %d", len(records))
	}

	titles := map[string]bool{}
	for _, record := range records {
		title, _ := record["title"].(string)
		titles[title] = true
	}
	if !titles[created["title"].(string)] {
		t.Fatalf("new meme missing after eviction")
	}
	for i := 0; i < 4; i++ {
		if titles[fmt.Sprintf("meme-%02d", i)] {
			t.Fatalf("oldest meme %d survived eviction", i)
		}
	}
	for i := 4; i < 14; i++ {
		if !titles[fmt.Sprintf("meme-%02d", i)] {
			t.Fatalf("recent meme %d was evicted", i)
		}
	}
}

func TestCreateSurfacesCapacityErrorOutsideMemes(t *testing.T) {
	store, _ := newTestStore(t, 256)

	if _, err := store.Create(CollectionUsers, Record{"padding": strings.Repeat("x", 512)}); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestSingletonValueRoundTrip(t *testing.T) {
	store, _ := newTestStore(t, 0)

	if err := store.SetValue(SessionKey, `{"username":"admin"}`); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	value, ok, err := store.GetValue(SessionKey)
	if err != nil || !ok || value != `{"username":"admin"}` {
		t.Fatalf("unexpected read: value=%q ok=%v err=%v", value, ok, err)
	}
	if err := store.DeleteValue(SessionKey); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if _, ok, _ := store.GetValue(SessionKey); ok {
		t.Fatalf("expected key to be gone")
	}
}

func TestConcurrentCreatesLoseNoWrites(t *testing.T) {
	recordStore, err := New(Config{KV: NewMemoryKV(0)})
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}

	const writers = 8
	const perWriter = 25
	var wg sync.WaitGroup
	for writer := 0; writer < writers; writer++ {
		wg.Add(1)
		go func(writer int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := recordStore.Create(CollectionVotes, Record{
					"memeId": fmt.Sprintf("m-%d", writer),
					"userId": fmt.Sprintf("u-%d-%d", writer, i),
				})
				if err != nil {
					t.Errorf("writer %d: unexpected create error: %v", writer, err)
					return
				}
			}
		}(writer)
	}
	wg.Wait()

	count, err := recordStore.Count(CollectionVotes, nil)
	if err != nil {
		t.Fatalf("unexpected count error: %v", err)
	}
	if count != writers*perWriter {
		t.Fatalf("lost updates: expected %d records, got %d", writers*perWriter, count)
	}
}

func TestConcurrentUpdatesApplyEveryIncrement(t *testing.T) {
	recordStore, err := New(Config{KV: NewMemoryKV(0)})
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	if _, err := recordStore.Create(CollectionMemes, Record{"id": "m1", "voteCount": float64(0)}); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	// Each goroutine appends its own marker record while another rewrites the
	// shared one; both collections must come out complete.
	const writers = 6
	var wg sync.WaitGroup
	for writer := 0; writer < writers; writer++ {
		wg.Add(1)
		go func(writer int) {
			defer wg.Done()
			if _, err := recordStore.Create(CollectionComments, Record{"memeId": "m1"}); err != nil {
				t.Errorf("writer %d: unexpected create error: %v", writer, err)
			}
			if _, err := recordStore.Update(CollectionMemes, "m1", Record{fmt.Sprintf("touch-%d", writer): true}); err != nil {
				t.Errorf("writer %d: unexpected update error: %v", writer, err)
			}
		}(writer)
	}
	wg.Wait()

	comments, err := recordStore.Count(CollectionComments, nil)
	if err != nil || comments != writers {
		t.Fatalf("expected %d comments, got %d err=%v", writers, comments, err)
	}
	meme, err := recordStore.GetByID(CollectionMemes, "m1")
	if err != nil || meme == nil {
		t.Fatalf("unexpected lookup: %#v err=%v", meme, err)
	}
	for writer := 0; writer < writers; writer++ {
		if _, ok := meme[fmt.Sprintf("touch-%d", writer)]; !ok {
			t.Fatalf("update from writer %d was lost: %#v", writer, meme)
		}
	}
}
