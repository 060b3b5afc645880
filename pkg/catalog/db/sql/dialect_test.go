// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgresDialect(t *testing.T) {
	t.Parallel()

	d := PostgresDialect{}
	assert.Equal(t, "postgres", d.Name())
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", d.ReplacePlaceholders("SELECT * FROM t WHERE a = $1 AND b = $2"))
	assert.Equal(t, true, d.BoolValue(true))
	assert.Equal(t,
		" ON CONFLICT (bucket_id, obj_key) DO UPDATE SET hash = EXCLUDED.hash, size = EXCLUDED.size",
		d.UpsertSuffix("bucket_id, obj_key", []string{"hash", "size"}))
}

func TestMySQLDialect(t *testing.T) {
	t.Parallel()

	d := MySQLDialect{}
	assert.Equal(t, "mysql", d.Name())
	assert.Equal(t, 1, d.BoolValue(true))
	assert.Equal(t, 0, d.BoolValue(false))
	assert.Equal(t,
		" ON DUPLICATE KEY UPDATE hash = VALUES(hash), size = VALUES(size)",
		d.UpsertSuffix("bucket_id, obj_key", []string{"hash", "size"}))
}

func TestMySQLReplacePlaceholders(t *testing.T) {
	t.Parallel()

	d := MySQLDialect{}
	assert.Equal(t, "a = ? AND b = ?", d.ReplacePlaceholders("a = $1 AND b = $2"))

	// Double-digit placeholders must not be mangled by single-digit ones.
	assert.Equal(t, "v (?, ?, ?)", d.ReplacePlaceholders("v ($1, $2, $12)"))

	// Repeated placeholders are all replaced.
	assert.Equal(t, "a = ? OR b = ?", d.ReplacePlaceholders("a = $1 OR b = $1"))
}

func TestBoolScanners(t *testing.T) {
	t.Parallel()

	pg := PostgresDialect{}.ScanBool()
	*(pg.Dest().(*bool)) = true
	assert.True(t, pg.Value())

	my := MySQLDialect{}.ScanBool()
	*(my.Dest().(*int)) = 1
	assert.True(t, my.Value())
	*(my.Dest().(*int)) = 0
	assert.False(t, my.Value())
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `photos/`, escapeLike(`photos/`))
	assert.Equal(t, `100\%\_a`, escapeLike(`100%_a`))
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
}
