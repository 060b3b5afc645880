// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/objectionfs/objection/pkg/catalog/db"
	"github.com/objectionfs/objection/pkg/types"
)

const bucketColumns = "id, name, default_cache_policy, access_logging, created_at"

func (s *Store) CreateBucket(ctx context.Context, bucket *types.BucketInfo) error {
	_, err := s.Exec(ctx, `
		INSERT INTO buckets (id, name, default_cache_policy, access_logging, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		bucket.ID.String(), bucket.Name,
		policyArg(bucket.Settings.DefaultCachePolicy),
		s.dialect.BoolValue(bucket.Settings.AccessLogging),
		bucket.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrBucketExists
		}
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (s *Store) GetBucket(ctx context.Context, name string) (*types.BucketInfo, error) {
	row := s.QueryRow(ctx, `
		SELECT `+bucketColumns+` FROM buckets WHERE name = $1`, name)

	bucket, err := scanBucket(row, s.dialect)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrBucketNotFound
		}
		return nil, fmt.Errorf("get bucket: %w", err)
	}
	return bucket, nil
}

func (s *Store) ListBuckets(ctx context.Context, params db.ListParams) ([]*types.BucketInfo, error) {
	params = params.Normalize()

	rows, err := s.Query(ctx, `
		SELECT `+bucketColumns+` FROM buckets
		ORDER BY created_at, name
		LIMIT $1 OFFSET $2`,
		params.Limit, params.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	defer rows.Close()

	buckets := make([]*types.BucketInfo, 0)
	for rows.Next() {
		bucket, err := scanBucket(rows, s.dialect)
		if err != nil {
			return nil, fmt.Errorf("list buckets: %w", err)
		}
		buckets = append(buckets, bucket)
	}
	return buckets, rows.Err()
}

func (s *Store) UpdateBucketSettings(ctx context.Context, name string, settings types.BucketSettings) error {
	res, err := s.Exec(ctx, `
		UPDATE buckets SET default_cache_policy = $2, access_logging = $3
		WHERE name = $1`,
		name, policyArg(settings.DefaultCachePolicy), s.dialect.BoolValue(settings.AccessLogging),
	)
	if err != nil {
		return fmt.Errorf("update bucket settings: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update bucket settings: %w", err)
	}
	if affected == 0 {
		return db.ErrBucketNotFound
	}
	return nil
}

func (s *Store) DeleteBucket(ctx context.Context, name string) ([]*types.ObjectInfo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("delete bucket: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		s.dialect.ReplacePlaceholders(`SELECT `+bucketColumns+` FROM buckets WHERE name = $1`), name)
	bucket, err := scanBucket(row, s.dialect)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrBucketNotFound
		}
		return nil, fmt.Errorf("delete bucket: %w", err)
	}

	// Collect the doomed objects first so the caller can release their
	// blob references after the cascade commits.
	rows, err := tx.QueryContext(ctx, s.dialect.ReplacePlaceholders(`
		SELECT `+objectColumns+` FROM objects WHERE bucket_id = $1`),
		bucket.ID.String())
	if err != nil {
		return nil, fmt.Errorf("delete bucket: %w", err)
	}
	var deleted []*types.ObjectInfo
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("delete bucket: %w", err)
		}
		deleted = append(deleted, obj)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("delete bucket: %w", err)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx,
		s.dialect.ReplacePlaceholders(`DELETE FROM objects WHERE bucket_id = $1`),
		bucket.ID.String()); err != nil {
		return nil, fmt.Errorf("delete bucket objects: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		s.dialect.ReplacePlaceholders(`DELETE FROM buckets WHERE id = $1`),
		bucket.ID.String()); err != nil {
		return nil, fmt.Errorf("delete bucket: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("delete bucket: %w", err)
	}
	return deleted, nil
}
