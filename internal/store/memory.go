package store

import "sync"

// MemoryKV is an in-memory medium with the same quota semantics as SQLiteKV.
// Tests use it with small quotas to exercise capacity handling.
type MemoryKV struct {
	mu      sync.Mutex
	quota   int64
	entries map[string]string
}

// NewMemoryKV constructs an empty in-memory medium. A non-positive quota
// falls back to DefaultQuotaBytes.
func NewMemoryKV(quotaBytes int64) *MemoryKV {
	if quotaBytes <= 0 {
		quotaBytes = DefaultQuotaBytes
	}
	return &MemoryKV{
		quota:   quotaBytes,
		entries: map[string]string{},
	}
}

// Get returns the stored value and whether the key exists.
func (kv *MemoryKV) Get(key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	value, ok := kv.entries[key]
	return value, ok, nil
}

// Set stores the value, failing with ErrCapacityExceeded past the quota.
func (kv *MemoryKV) Set(key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	used := int64(0)
	for existingKey, existingValue := range kv.entries {
		if existingKey == key {
			continue
		}
		used += int64(len(existingKey) + len(existingValue))
	}
	if used+int64(len(key)+len(value)) > kv.quota {
		return ErrCapacityExceeded
	}

	kv.entries[key] = value
	return nil
}

// Delete removes the key; deleting an absent key is not an error.
func (kv *MemoryKV) Delete(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.entries, key)
	return nil
}

// Keys lists every stored key.
func (kv *MemoryKV) Keys() ([]string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	keys := make([]string, 0, len(kv.entries))
	for key := range kv.entries {
		keys = append(keys, key)
	}
	return keys, nil
}
