package store

import (
	"context"
	"fmt"
)

var dropStatements = []string{
	"DROP TABLE IF EXISTS names",
	"DROP TABLE IF EXISTS nodes",
	"DROP TABLE IF EXISTS genetic_codes",
	"DROP TABLE IF EXISTS divisions",
	"DROP TABLE IF EXISTS meta",
}

var createStatements = []string{
	`CREATE TABLE divisions (
		id       INTEGER NOT NULL PRIMARY KEY,
		code     TEXT NOT NULL,
		division TEXT NOT NULL
	)`,
	`CREATE TABLE genetic_codes (
		id   INTEGER NOT NULL PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE nodes (
		tax_id               BIGINT NOT NULL PRIMARY KEY,
		parent_tax_id        BIGINT NOT NULL,
		rank                 TEXT NOT NULL,
		division_id          INTEGER NOT NULL,
		genetic_code_id      INTEGER NOT NULL,
		mito_genetic_code_id INTEGER NOT NULL,
		comment              TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE names (
		seq        BIGINT NOT NULL PRIMARY KEY,
		tax_id     BIGINT NOT NULL,
		name       TEXT NOT NULL,
		name_class TEXT NOT NULL
	)`,
	`CREATE TABLE meta (
		key   TEXT NOT NULL PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// Indexes are created after the bulk load.
var indexStatements = []string{
	"CREATE INDEX idx_nodes_parent_tax_id ON nodes(parent_tax_id)",
	"CREATE INDEX idx_names_tax_id ON names(tax_id)",
	"CREATE INDEX idx_names_name ON names(name)",
	"CREATE INDEX idx_names_name_class ON names(name_class)",
}

// Init drops every taxonomy table and recreates them empty.
func (s *Store) Init(ctx context.Context) error {
	for _, stmts := range [][]string{dropStatements, createStatements} {
		for _, stmt := range stmts {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("init schema: %w", err)
			}
		}
	}
	s.logger.Debug("tables created")
	return nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	for _, stmt := range indexStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	s.logger.Debug("indexes created")
	return nil
}
