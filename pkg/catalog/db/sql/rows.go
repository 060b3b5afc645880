// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package sql

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/objectionfs/objection/pkg/types"
)

// Row-to-struct mapping. Every parse failure (malformed UUID, unknown
// cache-policy string, broken tags JSON) surfaces as a typed error
// instead of propagating garbage into the catalog.

func scanBucket(sc scanner, dialect Dialect) (*types.BucketInfo, error) {
	var (
		idStr   string
		name    string
		policy  sql.NullString
		logging = dialect.ScanBool()
		bucket  types.BucketInfo
	)
	if err := sc.Scan(&idStr, &name, &policy, logging.Dest(), &bucket.CreatedAt); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("bucket %q: malformed id %q: %w", name, idStr, err)
	}
	bucket.ID = id
	bucket.Name = name
	bucket.Settings.AccessLogging = logging.Value()

	if policy.Valid {
		p, err := types.ParseCachePolicy(policy.String)
		if err != nil {
			return nil, fmt.Errorf("bucket %q: %w", name, err)
		}
		bucket.Settings.DefaultCachePolicy = &p
	}
	return &bucket, nil
}

func scanObject(sc scanner) (*types.ObjectInfo, error) {
	var (
		bucketIDStr string
		hashStr     string
		policy      sql.NullString
		expiresAt   sql.NullTime
		tagsJSON    string
		obj         types.ObjectInfo
	)
	err := sc.Scan(&bucketIDStr, &obj.Key, &hashStr, &obj.Size, &obj.ContentType,
		&policy, &expiresAt, &tagsJSON, &obj.CreatedAt, &obj.UpdatedAt)
	if err != nil {
		return nil, err
	}

	bucketID, err := uuid.Parse(bucketIDStr)
	if err != nil {
		return nil, fmt.Errorf("object %q: malformed bucket id %q: %w", obj.Key, bucketIDStr, err)
	}
	obj.BucketID = bucketID

	hash, err := types.ParseBlobID(hashStr)
	if err != nil {
		return nil, fmt.Errorf("object %q: %w", obj.Key, err)
	}
	obj.Hash = hash

	if policy.Valid {
		p, err := types.ParseCachePolicy(policy.String)
		if err != nil {
			return nil, fmt.Errorf("object %q: %w", obj.Key, err)
		}
		obj.CachePolicy = &p
	}
	if expiresAt.Valid {
		at := expiresAt.Time
		obj.ExpiresAt = &at
	}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &obj.Tags); err != nil {
			return nil, fmt.Errorf("object %q: malformed tags: %w", obj.Key, err)
		}
	}
	return &obj, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

func policyArg(p *types.CachePolicy) any {
	if p == nil {
		return nil
	}
	return string(*p)
}

// isUniqueViolation recognizes duplicate-key errors from both drivers.
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	if myErr, ok := err.(*mysql.MySQLError); ok {
		return myErr.Number == 1062
	}
	return false
}

// escapeLike escapes LIKE metacharacters in a literal prefix.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
