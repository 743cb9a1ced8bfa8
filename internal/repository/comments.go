package repository

import (
	"sort"

	"github.com/warmofmeme/memeboard/internal/models"
	"github.com/warmofmeme/memeboard/internal/store"
)

// Comments is the typed facade over the comments collection.
type Comments struct {
	store *store.Store
}

// NewComments constructs the comment repository.
func NewComments(s *store.Store) *Comments {
	return &Comments{store: s}
}

// All returns every comment.
func (r *Comments) All() ([]models.Comment, error) {
	records, err := r.store.GetAll(store.CollectionComments)
	if err != nil {
		return nil, err
	}
	return fromRecords[models.Comment](records)
}

// ByID returns the comment with the given id, or nil.
func (r *Comments) ByID(id string) (*models.Comment, error) {
	record, err := r.store.GetByID(store.CollectionComments, id)
	if err != nil || record == nil {
		return nil, err
	}
	comment, err := fromRecord[models.Comment](record)
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// ByMeme returns the meme's comments ordered oldest first.
func (r *Comments) ByMeme(memeID string) ([]models.Comment, error) {
	records, err := r.store.Find(store.CollectionComments, func(record store.Record) bool {
		return stringField(record, "memeId") == memeID
	})
	if err != nil {
		return nil, err
	}
	comments, err := fromRecords[models.Comment](records)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

// ByUser returns every comment written by the user.
func (r *Comments) ByUser(userID string) ([]models.Comment, error) {
	records, err := r.store.Find(store.CollectionComments, func(record store.Record) bool {
		return stringField(record, "userId") == userID
	})
	if err != nil {
		return nil, err
	}
	return fromRecords[models.Comment](records)
}

// Create persists a new comment; the store assigns id and createdAt.
func (r *Comments) Create(comment models.Comment) (models.Comment, error) {
	record, err := toRecord(comment)
	if err != nil {
		return models.Comment{}, err
	}
	created, err := r.store.Create(store.CollectionComments, record)
	if err != nil {
		return models.Comment{}, err
	}
	return fromRecord[models.Comment](created)
}

// Delete removes the comment and reports whether anything was removed.
func (r *Comments) Delete(id string) (bool, error) {
	return r.store.Delete(store.CollectionComments, id)
}

// Count returns the number of comments.
func (r *Comments) Count() (int, error) {
	return r.store.Count(store.CollectionComments, nil)
}
