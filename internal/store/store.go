package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Collection names. Every record lives in exactly one of these.
const (
	CollectionUsers        = "users"
	CollectionMemes        = "memes"
	CollectionComments     = "comments"
	CollectionVotes        = "votes"
	CollectionAchievements = "achievements"
	CollectionArenas       = "arenas"
)

// SessionKey is the singleton key holding the current session's user record.
const SessionKey = "currentUser"

// memeEvictionFloor is how many memes survive a capacity-triggered eviction.
const memeEvictionFloor = 10

// Record is one JSON-like entity instance within a collection.
type Record map[string]any

// ID returns the record's id field, or "" when absent.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

var (
	errMissingKV         = errors.New("store: key-value medium is required")
	errMissingIDProvider = errors.New("store: id provider is required")
)

// Config describes the dependencies of the record store.
type Config struct {
	KV         KV
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Store provides create/read/update/delete/query over named collections of
// JSON records. Every mutation deserializes the whole collection, applies the
// change, and serializes it back; a single mutex held across each operation
// serializes callers so concurrent read-modify-write cycles cannot interleave
// and lose writes.
type Store struct {
	mu     sync.Mutex
	kv     KV
	clock  func() time.Time
	ids    IDProvider
	logger *zap.Logger
}

// New constructs a Store. Clock and Logger default to time.Now and a no-op
// logger; KV is required.
func New(cfg Config) (*Store, error) {
	if cfg.KV == nil {
		return nil, errMissingKV
	}
	ids := cfg.IDProvider
	if ids == nil {
		ids = NewUUIDProvider()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: cfg.KV, clock: clock, ids: ids, logger: logger}, nil
}

// GetAll deserializes the collection, returning an empty slice when absent.
func (s *Store) GetAll(collection string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAll(collection)
}

// getAll is the lock-free read; callers must hold s.mu.
func (s *Store) getAll(collection string) ([]Record, error) {
	raw, ok, err := s.kv.Get(collection)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("store: corrupt collection %q: %w", collection, err)
	}
	return records, nil
}

// GetByID returns the matching record, or nil when the id is not present.
func (s *Store) GetByID(collection, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.getAll(collection)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if record.ID() == id {
			return record, nil
		}
	}
	return nil, nil
}

// Create appends the record, assigning id and createdAt when absent, and
// rewrites the collection. On a capacity failure in the memes collection it
// evicts the oldest memes down to a floor and retries the write once.
func (s *Store) Create(collection string, record Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record == nil {
		record = Record{}
	}
	if record.ID() == "" {
		id, err := s.ids.NewID()
		if err != nil {
			return nil, err
		}
		record["id"] = id
	}
	if _, ok := record["createdAt"]; !ok {
		record["createdAt"] = s.timestamp()
	}

	records, err := s.getAll(collection)
	if err != nil {
		return nil, err
	}
	records = append(records, record)

	err = s.writeAll(collection, records)
	if errors.Is(err, ErrCapacityExceeded) && collection == CollectionMemes {
		evicted, evictErr := s.evictOldest(CollectionMemes, memeEvictionFloor)
		if evictErr != nil {
			return nil, evictErr
		}
		s.logger.Warn("capacity exceeded, evicted oldest memes",
			zap.Int("evicted", evicted))

		records, err = s.getAll(collection)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
		err = s.writeAll(collection, records)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Update shallow-merges the patch onto the matching record, stamps updatedAt,
// and rewrites the collection. A missing id yields (nil, nil); the collection
// is left untouched. There is no eviction retry on this path.
func (s *Store) Update(collection, id string, patch Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.getAll(collection)
	if err != nil {
		return nil, err
	}
	for i, record := range records {
		if record.ID() != id {
			continue
		}
		merged := Record{}
		for key, value := range record {
			merged[key] = value
		}
		for key, value := range patch {
			merged[key] = value
		}
		merged["updatedAt"] = s.timestamp()
		records[i] = merged
		if err := s.writeAll(collection, records); err != nil {
			return nil, err
		}
		return merged, nil
	}
	return nil, nil
}

// Delete removes the matching record and reports whether anything was removed.
func (s *Store) Delete(collection, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.getAll(collection)
	if err != nil {
		return false, err
	}
	filtered := records[:0:0]
	for _, record := range records {
		if record.ID() != id {
			filtered = append(filtered, record)
		}
	}
	if len(filtered) == len(records) {
		return false, nil
	}
	if err := s.writeAll(collection, filtered); err != nil {
		return false, err
	}
	return true, nil
}

// Find returns every record matching the predicate.
func (s *Store) Find(collection string, predicate func(Record) bool) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.getAll(collection)
	if err != nil {
		return nil, err
	}
	matched := []Record{}
	for _, record := range records {
		if predicate(record) {
			matched = append(matched, record)
		}
	}
	return matched, nil
}

// FindOne returns the first record matching the predicate, or nil.
func (s *Store) FindOne(collection string, predicate func(Record) bool) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.getAll(collection)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if predicate(record) {
			return record, nil
		}
	}
	return nil, nil
}

// Count returns the number of records, optionally filtered by a predicate.
func (s *Store) Count(collection string, predicate func(Record) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.getAll(collection)
	if err != nil {
		return 0, err
	}
	if predicate == nil {
		return len(records), nil
	}
	count := 0
	for _, record := range records {
		if predicate(record) {
			count++
		}
	}
	return count, nil
}

// Now exposes the store's clock so callers share one time source.
func (s *Store) Now() time.Time {
	return s.clock()
}

// GetValue reads a singleton key outside any collection.
func (s *Store) GetValue(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Get(key)
}

// SetValue writes a singleton key outside any collection.
func (s *Store) SetValue(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Set(key, value)
}

// DeleteValue removes a singleton key.
func (s *Store) DeleteValue(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(key)
}

// evictOldest drops records oldest-by-createdAt until only keep remain,
// returning how many were removed. Callers must hold s.mu.
func (s *Store) evictOldest(collection string, keep int) (int, error) {
	records, err := s.getAll(collection)
	if err != nil {
		return 0, err
	}
	if len(records) <= keep {
		return 0, nil
	}

	sort.SliceStable(records, func(i, j int) bool {
		return recordCreatedAt(records[i]).Before(recordCreatedAt(records[j]))
	})

	survivors := records[len(records)-keep:]
	if err := s.writeAll(collection, survivors); err != nil {
		return 0, err
	}
	return len(records) - keep, nil
}

func (s *Store) writeAll(collection string, records []Record) error {
	encoded, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return s.kv.Set(collection, string(encoded))
}

func (s *Store) timestamp() string {
	return s.clock().UTC().Format(time.RFC3339Nano)
}

func recordCreatedAt(record Record) time.Time {
	raw, _ := record["createdAt"].(string)
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
