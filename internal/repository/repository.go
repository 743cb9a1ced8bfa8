// Package repository provides one typed facade per collection. Every read
// returns freshly decoded entity values; every write delegates straight to
// the record store. Cross-collection invariants belong to the service layer.
package repository

import (
	"encoding/json"

	"github.com/warmofmeme/memeboard/internal/store"
)

func toRecord(entity any) (store.Record, error) {
	encoded, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}
	var record store.Record
	if err := json.Unmarshal(encoded, &record); err != nil {
		return nil, err
	}
	return record, nil
}

func fromRecord[T any](record store.Record) (T, error) {
	var entity T
	encoded, err := json.Marshal(record)
	if err != nil {
		return entity, err
	}
	if err := json.Unmarshal(encoded, &entity); err != nil {
		return entity, err
	}
	return entity, nil
}

func fromRecords[T any](records []store.Record) ([]T, error) {
	entities := make([]T, 0, len(records))
	for _, record := range records {
		entity, err := fromRecord[T](record)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func stringField(record store.Record, field string) string {
	value, _ := record[field].(string)
	return value
}
