package repository

import (
	"github.com/warmofmeme/memeboard/internal/models"
	"github.com/warmofmeme/memeboard/internal/store"
)

// Users is the typed facade over the users collection.
type Users struct {
	store *store.Store
}

// NewUsers constructs the user repository.
func NewUsers(s *store.Store) *Users {
	return &Users{store: s}
}

// All returns every user.
func (r *Users) All() ([]models.User, error) {
	records, err := r.store.GetAll(store.CollectionUsers)
	if err != nil {
		return nil, err
	}
	return r.decodeAll(records)
}

// ByID returns the user with the given id, or nil.
func (r *Users) ByID(id string) (*models.User, error) {
	record, err := r.store.GetByID(store.CollectionUsers, id)
	if err != nil || record == nil {
		return nil, err
	}
	return r.decodeOne(record)
}

// ByUsername returns the user with the given username, or nil.
func (r *Users) ByUsername(username string) (*models.User, error) {
	record, err := r.store.FindOne(store.CollectionUsers, func(record store.Record) bool {
		return stringField(record, "username") == username
	})
	if err != nil || record == nil {
		return nil, err
	}
	return r.decodeOne(record)
}

// ByEmail returns the user with the given email, or nil.
func (r *Users) ByEmail(email string) (*models.User, error) {
	record, err := r.store.FindOne(store.CollectionUsers, func(record store.Record) bool {
		return stringField(record, "email") == email
	})
	if err != nil || record == nil {
		return nil, err
	}
	return r.decodeOne(record)
}

// ByRole returns every user holding the given role.
func (r *Users) ByRole(role models.Role) ([]models.User, error) {
	records, err := r.store.Find(store.CollectionUsers, func(record store.Record) bool {
		return stringField(record, "role") == string(role)
	})
	if err != nil {
		return nil, err
	}
	return r.decodeAll(records)
}

// Create persists a new user; the store assigns id and createdAt.
func (r *Users) Create(user models.User) (models.User, error) {
	user.Normalize()
	record, err := toRecord(user)
	if err != nil {
		return models.User{}, err
	}
	created, err := r.store.Create(store.CollectionUsers, record)
	if err != nil {
		return models.User{}, err
	}
	saved, err := r.decodeOne(created)
	if err != nil {
		return models.User{}, err
	}
	return *saved, nil
}

// Update merges the patch onto the user record; nil when the id is unknown.
func (r *Users) Update(id string, patch models.UserPatch) (*models.User, error) {
	updated, err := r.store.Update(store.CollectionUsers, id, store.Record(patch.Fields()))
	if err != nil || updated == nil {
		return nil, err
	}
	return r.decodeOne(updated)
}

// Delete removes the user and reports whether anything was removed.
func (r *Users) Delete(id string) (bool, error) {
	return r.store.Delete(store.CollectionUsers, id)
}

// Count returns the number of users.
func (r *Users) Count() (int, error) {
	return r.store.Count(store.CollectionUsers, nil)
}

func (r *Users) decodeOne(record store.Record) (*models.User, error) {
	user, err := fromRecord[models.User](record)
	if err != nil {
		return nil, err
	}
	user.Normalize()
	return &user, nil
}

func (r *Users) decodeAll(records []store.Record) ([]models.User, error) {
	users, err := fromRecords[models.User](records)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Normalize()
	}
	return users, nil
}
