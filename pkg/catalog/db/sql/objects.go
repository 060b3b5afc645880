// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/objectionfs/objection/pkg/catalog/db"
	"github.com/objectionfs/objection/pkg/types"
)

const objectColumns = "bucket_id, obj_key, hash, size, content_type, cache_policy, expires_at, tags, created_at, updated_at"

func (s *Store) PutObject(ctx context.Context, obj *types.ObjectInfo) (*types.ObjectInfo, error) {
	tags, err := encodeTags(obj.Tags)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}
	defer tx.Rollback()

	// Lock the row so a concurrent put/delete on the same key serializes
	// behind this transaction.
	row := tx.QueryRowContext(ctx, s.dialect.ReplacePlaceholders(`
		SELECT `+objectColumns+` FROM objects
		WHERE bucket_id = $1 AND obj_key = $2 FOR UPDATE`),
		obj.BucketID.String(), obj.Key)

	var previous *types.ObjectInfo
	prev, err := scanObject(row)
	switch {
	case err == nil:
		previous = prev
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("put object: %w", err)
	}

	upsert := `
		INSERT INTO objects (bucket_id, obj_key, hash, size, content_type, cache_policy, expires_at, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)` +
		s.dialect.UpsertSuffix("bucket_id, obj_key",
			[]string{"hash", "size", "content_type", "cache_policy", "expires_at", "tags", "updated_at"})

	createdAt := obj.CreatedAt
	if previous != nil {
		createdAt = previous.CreatedAt
	}
	_, err = tx.ExecContext(ctx, s.dialect.ReplacePlaceholders(upsert),
		obj.BucketID.String(), obj.Key, obj.Hash.String(), obj.Size, obj.ContentType,
		policyArg(obj.CachePolicy), expiresArg(obj.ExpiresAt), tags, createdAt, obj.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}
	return previous, nil
}

func (s *Store) GetObject(ctx context.Context, bucketID uuid.UUID, key string) (*types.ObjectInfo, error) {
	row := s.QueryRow(ctx, `
		SELECT `+objectColumns+` FROM objects
		WHERE bucket_id = $1 AND obj_key = $2`,
		bucketID.String(), key)

	obj, err := scanObject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrObjectNotFound
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	return obj, nil
}

func (s *Store) DeleteObject(ctx context.Context, bucketID uuid.UUID, key string) (*types.ObjectInfo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("delete object: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, s.dialect.ReplacePlaceholders(`
		SELECT `+objectColumns+` FROM objects
		WHERE bucket_id = $1 AND obj_key = $2 FOR UPDATE`),
		bucketID.String(), key)

	obj, err := scanObject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrObjectNotFound
		}
		return nil, fmt.Errorf("delete object: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.dialect.ReplacePlaceholders(`
		DELETE FROM objects WHERE bucket_id = $1 AND obj_key = $2`),
		bucketID.String(), key); err != nil {
		return nil, fmt.Errorf("delete object: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("delete object: %w", err)
	}
	return obj, nil
}

func (s *Store) ListObjects(ctx context.Context, bucketID uuid.UUID, params db.ListParams) ([]*types.ObjectInfo, error) {
	params = params.Normalize()

	rows, err := s.Query(ctx, `
		SELECT `+objectColumns+` FROM objects
		WHERE bucket_id = $1 AND obj_key LIKE $2
		ORDER BY obj_key
		LIMIT $3 OFFSET $4`,
		bucketID.String(), escapeLike(params.Prefix)+"%", params.Limit, params.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	defer rows.Close()

	objects := make([]*types.ObjectInfo, 0)
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		objects = append(objects, obj)
	}
	return objects, rows.Err()
}

func (s *Store) ListExpired(ctx context.Context, now time.Time, limit int) ([]*types.ObjectInfo, error) {
	if limit <= 0 {
		limit = db.DefaultListLimit
	}

	rows, err := s.Query(ctx, `
		SELECT `+objectColumns+` FROM objects
		WHERE expires_at IS NOT NULL AND expires_at <= $1
		LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list expired: %w", err)
	}
	defer rows.Close()

	objects := make([]*types.ObjectInfo, 0)
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, fmt.Errorf("list expired: %w", err)
		}
		objects = append(objects, obj)
	}
	return objects, rows.Err()
}

func expiresArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
