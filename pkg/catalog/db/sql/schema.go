// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package sql

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS buckets (
		id CHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		default_cache_policy VARCHAR(16),
		access_logging BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS objects (
		bucket_id CHAR(36) NOT NULL REFERENCES buckets(id) ON DELETE CASCADE,
		obj_key VARCHAR(512) NOT NULL,
		hash CHAR(64) NOT NULL,
		size BIGINT NOT NULL,
		content_type VARCHAR(255) NOT NULL DEFAULT '',
		cache_policy VARCHAR(16),
		expires_at TIMESTAMPTZ,
		tags TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (bucket_id, obj_key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_objects_expires_at
		ON objects (expires_at) WHERE expires_at IS NOT NULL`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS buckets (
		id CHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		default_cache_policy VARCHAR(16),
		access_logging TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS objects (
		bucket_id CHAR(36) NOT NULL,
		obj_key VARCHAR(512) NOT NULL,
		hash CHAR(64) NOT NULL,
		size BIGINT NOT NULL,
		content_type VARCHAR(255) NOT NULL DEFAULT '',
		cache_policy VARCHAR(16),
		expires_at DATETIME(6),
		tags TEXT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		PRIMARY KEY (bucket_id, obj_key),
		KEY idx_objects_expires_at (expires_at),
		CONSTRAINT fk_objects_bucket FOREIGN KEY (bucket_id)
			REFERENCES buckets(id) ON DELETE CASCADE
	)`,
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	var stmts []string
	switch s.dialect.Name() {
	case "postgres":
		stmts = postgresSchema
	case "mysql":
		stmts = mysqlSchema
	default:
		return fmt.Errorf("no schema for dialect %s", s.dialect.Name())
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
