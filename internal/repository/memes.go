package repository

import (
	"sort"
	"time"

	"github.com/warmofmeme/memeboard/internal/models"
	"github.com/warmofmeme/memeboard/internal/store"
)

// TrendingFilter narrows a trending query before sorting.
type TrendingFilter struct {
	Category  string
	TimeRange string // "today", "week", "month", or "all"
}

var timeRangeDays = map[string]int{
	"today": 1,
	"week":  7,
	"month": 30,
}

// Memes is the typed facade over the memes collection.
type Memes struct {
	store *store.Store
}

// NewMemes constructs the meme repository.
func NewMemes(s *store.Store) *Memes {
	return &Memes{store: s}
}

// All returns every meme.
func (r *Memes) All() ([]models.Meme, error) {
	records, err := r.store.GetAll(store.CollectionMemes)
	if err != nil {
		return nil, err
	}
	return r.decodeAll(records)
}

// ByID returns the meme with the given id, or nil.
func (r *Memes) ByID(id string) (*models.Meme, error) {
	record, err := r.store.GetByID(store.CollectionMemes, id)
	if err != nil || record == nil {
		return nil, err
	}
	return r.decodeOne(record)
}

// ByUser returns every meme uploaded by the user.
func (r *Memes) ByUser(userID string) ([]models.Meme, error) {
	records, err := r.store.Find(store.CollectionMemes, func(record store.Record) bool {
		return stringField(record, "userId") == userID
	})
	if err != nil {
		return nil, err
	}
	return r.decodeAll(records)
}

// ByCategory returns every meme in the category.
func (r *Memes) ByCategory(category string) ([]models.Meme, error) {
	records, err := r.store.Find(store.CollectionMemes, func(record store.Record) bool {
		return stringField(record, "category") == category
	})
	if err != nil {
		return nil, err
	}
	return r.decodeAll(records)
}

// ByArena returns every meme submitted to the arena.
func (r *Memes) ByArena(arenaID string) ([]models.Meme, error) {
	records, err := r.store.Find(store.CollectionMemes, func(record store.Record) bool {
		return stringField(record, "arenaId") == arenaID
	})
	if err != nil {
		return nil, err
	}
	return r.decodeAll(records)
}

// Trending returns up to limit memes matching the filter, ordered by
// voteCount descending.
func (r *Memes) Trending(limit int, filter TrendingFilter) ([]models.Meme, error) {
	memes, err := r.All()
	if err != nil {
		return nil, err
	}

	if filter.Category != "" {
		filtered := memes[:0]
		for _, meme := range memes {
			if meme.Category == filter.Category {
				filtered = append(filtered, meme)
			}
		}
		memes = filtered
	}
	if days, bounded := timeRangeDays[filter.TimeRange]; bounded {
		cutoff := r.store.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
		filtered := memes[:0]
		for _, meme := range memes {
			if !meme.CreatedAt.Before(cutoff) {
				filtered = append(filtered, meme)
			}
		}
		memes = filtered
	}

	sort.SliceStable(memes, func(i, j int) bool {
		return memes[i].VoteCount > memes[j].VoteCount
	})
	if limit > 0 && len(memes) > limit {
		memes = memes[:limit]
	}
	return memes, nil
}

// Create persists a new meme; the store assigns id and createdAt.
func (r *Memes) Create(meme models.Meme) (models.Meme, error) {
	meme.Normalize()
	record, err := toRecord(meme)
	if err != nil {
		return models.Meme{}, err
	}
	created, err := r.store.Create(store.CollectionMemes, record)
	if err != nil {
		return models.Meme{}, err
	}
	saved, err := r.decodeOne(created)
	if err != nil {
		return models.Meme{}, err
	}
	return *saved, nil
}

// Update merges the patch onto the meme record; nil when the id is unknown.
func (r *Memes) Update(id string, patch models.MemePatch) (*models.Meme, error) {
	updated, err := r.store.Update(store.CollectionMemes, id, store.Record(patch.Fields()))
	if err != nil || updated == nil {
		return nil, err
	}
	return r.decodeOne(updated)
}

// Delete removes the meme and reports whether anything was removed.
func (r *Memes) Delete(id string) (bool, error) {
	return r.store.Delete(store.CollectionMemes, id)
}

// Count returns the number of memes.
func (r *Memes) Count() (int, error) {
	return r.store.Count(store.CollectionMemes, nil)
}

// IncrementVoteCount bumps the meme's vote counter by one.
func (r *Memes) IncrementVoteCount(id string) (*models.Meme, error) {
	return r.adjustCounter(id, func(meme *models.Meme) models.MemePatch {
		next := meme.VoteCount + 1
		return models.MemePatch{VoteCount: &next}
	})
}

// DecrementVoteCount lowers the meme's vote counter, floored at zero.
func (r *Memes) DecrementVoteCount(id string) (*models.Meme, error) {
	return r.adjustCounter(id, func(meme *models.Meme) models.MemePatch {
		next := meme.VoteCount - 1
		if next < 0 {
			next = 0
		}
		return models.MemePatch{VoteCount: &next}
	})
}

// IncrementCommentCount bumps the meme's comment counter by one.
func (r *Memes) IncrementCommentCount(id string) (*models.Meme, error) {
	return r.adjustCounter(id, func(meme *models.Meme) models.MemePatch {
		next := meme.CommentCount + 1
		return models.MemePatch{CommentCount: &next}
	})
}

func (r *Memes) adjustCounter(id string, build func(*models.Meme) models.MemePatch) (*models.Meme, error) {
	meme, err := r.ByID(id)
	if err != nil || meme == nil {
		return nil, err
	}
	return r.Update(id, build(meme))
}

func (r *Memes) decodeOne(record store.Record) (*models.Meme, error) {
	meme, err := fromRecord[models.Meme](record)
	if err != nil {
		return nil, err
	}
	meme.Normalize()
	return &meme, nil
}

func (r *Memes) decodeAll(records []store.Record) ([]models.Meme, error) {
	memes, err := fromRecords[models.Meme](records)
	if err != nil {
		return nil, err
	}
	for i := range memes {
		memes[i].Normalize()
	}
	return memes, nil
}
