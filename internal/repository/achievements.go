package repository

import (
	"github.com/warmofmeme/memeboard/internal/models"
	"github.com/warmofmeme/memeboard/internal/store"
)

// Achievements is the typed facade over the achievements collection.
type Achievements struct {
	store *store.Store
}

// NewAchievements constructs the achievement repository.
func NewAchievements(s *store.Store) *Achievements {
	return &Achievements{store: s}
}

// All returns every achievement.
func (r *Achievements) All() ([]models.Achievement, error) {
	records, err := r.store.GetAll(store.CollectionAchievements)
	if err != nil {
		return nil, err
	}
	achievements, err := fromRecords[models.Achievement](records)
	if err != nil {
		return nil, err
	}
	for i := range achievements {
		achievements[i].Normalize()
	}
	return achievements, nil
}

// ByID returns the achievement with the given id, or nil.
func (r *Achievements) ByID(id string) (*models.Achievement, error) {
	record, err := r.store.GetByID(store.CollectionAchievements, id)
	if err != nil || record == nil {
		return nil, err
	}
	achievement, err := fromRecord[models.Achievement](record)
	if err != nil {
		return nil, err
	}
	achievement.Normalize()
	return &achievement, nil
}

// Create persists a new achievement; the store assigns id and createdAt.
func (r *Achievements) Create(achievement models.Achievement) (models.Achievement, error) {
	achievement.Normalize()
	record, err := toRecord(achievement)
	if err != nil {
		return models.Achievement{}, err
	}
	created, err := r.store.Create(store.CollectionAchievements, record)
	if err != nil {
		return models.Achievement{}, err
	}
	return fromRecord[models.Achievement](created)
}

// Update merges the patch onto the achievement record; nil when id is unknown.
func (r *Achievements) Update(id string, patch models.AchievementPatch) (*models.Achievement, error) {
	updated, err := r.store.Update(store.CollectionAchievements, id, store.Record(patch.Fields()))
	if err != nil || updated == nil {
		return nil, err
	}
	achievement, err := fromRecord[models.Achievement](updated)
	if err != nil {
		return nil, err
	}
	achievement.Normalize()
	return &achievement, nil
}

// Delete removes the achievement and reports whether anything was removed.
func (r *Achievements) Delete(id string) (bool, error) {
	return r.store.Delete(store.CollectionAchievements, id)
}

// Count returns the number of achievements.
func (r *Achievements) Count() (int, error) {
	return r.store.Count(store.CollectionAchievements, nil)
}
