package repository

import (
	"github.com/warmofmeme/memeboard/internal/models"
	"github.com/warmofmeme/memeboard/internal/store"
)

// Arenas is the typed facade over the arenas collection.
type Arenas struct {
	store *store.Store
}

// NewArenas constructs the arena repository.
func NewArenas(s *store.Store) *Arenas {
	return &Arenas{store: s}
}

// All returns every arena.
func (r *Arenas) All() ([]models.Arena, error) {
	records, err := r.store.GetAll(store.CollectionArenas)
	if err != nil {
		return nil, err
	}
	return fromRecords[models.Arena](records)
}

// Active returns every arena still marked active.
func (r *Arenas) Active() ([]models.Arena, error) {
	records, err := r.store.Find(store.CollectionArenas, func(record store.Record) bool {
		active, _ := record["isActive"].(bool)
		return active
	})
	if err != nil {
		return nil, err
	}
	return fromRecords[models.Arena](records)
}

// ByID returns the arena with the given id, or nil.
func (r *Arenas) ByID(id string) (*models.Arena, error) {
	record, err := r.store.GetByID(store.CollectionArenas, id)
	if err != nil || record == nil {
		return nil, err
	}
	arena, err := fromRecord[models.Arena](record)
	if err != nil {
		return nil, err
	}
	return &arena, nil
}

// Create persists a new arena; the store assigns id and createdAt.
func (r *Arenas) Create(arena models.Arena) (models.Arena, error) {
	record, err := toRecord(arena)
	if err != nil {
		return models.Arena{}, err
	}
	created, err := r.store.Create(store.CollectionArenas, record)
	if err != nil {
		return models.Arena{}, err
	}
	return fromRecord[models.Arena](created)
}

// Update merges the patch onto the arena record; nil when the id is unknown.
func (r *Arenas) Update(id string, patch models.ArenaPatch) (*models.Arena, error) {
	updated, err := r.store.Update(store.CollectionArenas, id, store.Record(patch.Fields()))
	if err != nil || updated == nil {
		return nil, err
	}
	arena, err := fromRecord[models.Arena](updated)
	if err != nil {
		return nil, err
	}
	return &arena, nil
}

// Delete removes the arena and reports whether anything was removed.
func (r *Arenas) Delete(id string) (bool, error) {
	return r.store.Delete(store.CollectionArenas, id)
}

// Count returns the number of arenas.
func (r *Arenas) Count() (int, error) {
	return r.store.Count(store.CollectionArenas, nil)
}
