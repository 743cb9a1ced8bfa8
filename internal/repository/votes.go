package repository

import (
	"github.com/warmofmeme/memeboard/internal/models"
	"github.com/warmofmeme/memeboard/internal/store"
)

// Votes is the typed facade over the votes collection.
type Votes struct {
	store *store.Store
}

// NewVotes constructs the vote repository.
func NewVotes(s *store.Store) *Votes {
	return &Votes{store: s}
}

// ByMeme returns every vote cast on the meme.
func (r *Votes) ByMeme(memeID string) ([]models.Vote, error) {
	records, err := r.store.Find(store.CollectionVotes, func(record store.Record) bool {
		return stringField(record, "memeId") == memeID
	})
	if err != nil {
		return nil, err
	}
	return fromRecords[models.Vote](records)
}

// ByUser returns every vote cast by the user.
func (r *Votes) ByUser(userID string) ([]models.Vote, error) {
	records, err := r.store.Find(store.CollectionVotes, func(record store.Record) bool {
		return stringField(record, "userId") == userID
	})
	if err != nil {
		return nil, err
	}
	return fromRecords[models.Vote](records)
}

// ByMemeAndUser returns the unique vote for the (meme, user) pair, or nil.
func (r *Votes) ByMemeAndUser(memeID, userID string) (*models.Vote, error) {
	record, err := r.store.FindOne(store.CollectionVotes, func(record store.Record) bool {
		return stringField(record, "memeId") == memeID && stringField(record, "userId") == userID
	})
	if err != nil || record == nil {
		return nil, err
	}
	vote, err := fromRecord[models.Vote](record)
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

// Create persists a new vote; the store assigns id and createdAt.
func (r *Votes) Create(vote models.Vote) (models.Vote, error) {
	record, err := toRecord(vote)
	if err != nil {
		return models.Vote{}, err
	}
	created, err := r.store.Create(store.CollectionVotes, record)
	if err != nil {
		return models.Vote{}, err
	}
	return fromRecord[models.Vote](created)
}

// Delete removes the vote and reports whether anything was removed.
func (r *Votes) Delete(id string) (bool, error) {
	return r.store.Delete(store.CollectionVotes, id)
}

// Count returns the number of votes.
func (r *Votes) Count() (int, error) {
	return r.store.Count(store.CollectionVotes, nil)
}

// CountByMeme returns the number of votes on the meme.
func (r *Votes) CountByMeme(memeID string) (int, error) {
	return r.store.Count(store.CollectionVotes, func(record store.Record) bool {
		return stringField(record, "memeId") == memeID
	})
}
