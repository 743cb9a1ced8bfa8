package store

import "github.com/google/uuid"

// IDProvider issues the opaque record identifiers assigned on create.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider issuing UUIDv7 identifiers:
// a millisecond timestamp prefix followed by random bits, so ids sort
// roughly by creation time.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
