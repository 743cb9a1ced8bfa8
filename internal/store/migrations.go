package store

import (
	"encoding/json"

	"go.uber.org/zap"
)

// migrationsKey records which shape migrations have already run, keyed by
// migration name with the unix second it was applied.
const migrationsKey = "schemaMigrations"

const migrationCommentStatusEnum = "2026-08-10_comment_status_enum"

type migrationDefinition struct {
	name  string
	apply func(*Store) error
}

// ApplyMigrations runs each pending shape migration exactly once. Legacy
// records are rewritten here, at load, rather than patched repeatedly at
// every decode.
func (s *Store) ApplyMigrations() error {
	migrations := []migrationDefinition{
		{name: migrationCommentStatusEnum, apply: migrateCommentStatusEnum},
	}

	applied, err := s.appliedMigrations()
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if _, done := applied[migration.name]; done {
			continue
		}
		if err := migration.apply(s); err != nil {
			return err
		}
		applied[migration.name] = s.clock().UTC().Unix()
		if err := s.saveAppliedMigrations(applied); err != nil {
			return err
		}
		s.logger.Info("store migration applied", zap.String("migration", migration.name))
	}
	return nil
}

func (s *Store) appliedMigrations() (map[string]int64, error) {
	raw, ok, err := s.kv.Get(migrationsKey)
	if err != nil {
		return nil, err
	}
	applied := map[string]int64{}
	if !ok || raw == "" {
		return applied, nil
	}
	if err := json.Unmarshal([]byte(raw), &applied); err != nil {
		return nil, err
	}
	return applied, nil
}

func (s *Store) saveAppliedMigrations(applied map[string]int64) error {
	encoded, err := json.Marshal(applied)
	if err != nil {
		return err
	}
	return s.kv.Set(migrationsKey, string(encoded))
}

// migrateCommentStatusEnum converts the legacy commentsEnabled boolean on
// meme records into the statusComments enum.
func migrateCommentStatusEnum(s *Store) error {
	records, err := s.GetAll(CollectionMemes)
	if err != nil {
		return err
	}

	changed := false
	for _, record := range records {
		if _, ok := record["statusComments"]; ok {
			delete(record, "commentsEnabled")
			continue
		}
		legacy, ok := record["commentsEnabled"].(bool)
		if !ok {
			continue
		}
		if legacy {
			record["statusComments"] = "enabled"
		} else {
			record["statusComments"] = "disabled"
		}
		delete(record, "commentsEnabled")
		changed = true
	}

	if !changed {
		return nil
	}
	return s.writeAll(CollectionMemes, records)
}
