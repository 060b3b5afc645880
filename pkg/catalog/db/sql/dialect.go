// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

// Package sql provides a dialect-aware SQL catalog store. One
// implementation serves both PostgreSQL and MySQL; queries are written
// with PostgreSQL-style placeholders and rewritten per dialect.
package sql

import (
	"fmt"
	"strings"
)

// Dialect abstracts database-specific SQL syntax differences.
type Dialect interface {
	// Name returns the dialect name (e.g., "postgres", "mysql").
	Name() string

	// ReplacePlaceholders converts PostgreSQL-style placeholders
	// ($1, $2, ...) to the dialect's format.
	ReplacePlaceholders(query string) string

	// BoolValue returns the dialect representation of a boolean argument.
	// PostgreSQL binds bool directly, MySQL wants 0/1.
	BoolValue(b bool) any

	// ScanBool returns a scanner that can read a boolean from a row.
	ScanBool() BoolScanner

	// UpsertSuffix returns the suffix for INSERT statements that should
	// update on conflict.
	// PostgreSQL: "ON CONFLICT (cols) DO UPDATE SET col = EXCLUDED.col, ..."
	// MySQL: "ON DUPLICATE KEY UPDATE col = VALUES(col), ..."
	UpsertSuffix(conflictColumns string, updateColumns []string) string
}

// BoolScanner scans a boolean value from SQL.
type BoolScanner interface {
	// Dest returns the destination for Scan().
	Dest() any
	// Value returns the scanned boolean value.
	Value() bool
}

// ============================================================================
// PostgreSQL Dialect
// ============================================================================

// PostgresDialect implements Dialect for PostgreSQL.
type PostgresDialect struct{}

var _ Dialect = PostgresDialect{}

func (d PostgresDialect) Name() string {
	return "postgres"
}

func (d PostgresDialect) ReplacePlaceholders(query string) string {
	// PostgreSQL uses $1, $2, etc. - no conversion needed
	return query
}

func (d PostgresDialect) BoolValue(b bool) any {
	return b
}

func (d PostgresDialect) ScanBool() BoolScanner {
	return &directBoolScanner{}
}

func (d PostgresDialect) UpsertSuffix(conflictColumns string, updateColumns []string) string {
	if len(updateColumns) == 0 {
		return ""
	}
	updates := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}
	return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", conflictColumns, strings.Join(updates, ", "))
}

// ============================================================================
// MySQL Dialect
// ============================================================================

// MySQLDialect implements Dialect for MySQL.
type MySQLDialect struct{}

var _ Dialect = MySQLDialect{}

func (d MySQLDialect) Name() string {
	return "mysql"
}

func (d MySQLDialect) ReplacePlaceholders(query string) string {
	// Replace $1, $2, etc. with ?. The same placeholder can appear more
	// than once, so replace all occurrences, and replace from highest to
	// lowest so $12 does not become ?2 via $1.
	result := query
	for i := 50; i >= 1; i-- {
		result = strings.ReplaceAll(result, fmt.Sprintf("$%d", i), "?")
	}
	return result
}

func (d MySQLDialect) BoolValue(b bool) any {
	if b {
		return 1
	}
	return 0
}

func (d MySQLDialect) ScanBool() BoolScanner {
	return &intBoolScanner{}
}

func (d MySQLDialect) UpsertSuffix(conflictColumns string, updateColumns []string) string {
	if len(updateColumns) == 0 {
		return ""
	}
	updates := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		updates[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
	}
	return " ON DUPLICATE KEY UPDATE " + strings.Join(updates, ", ")
}

// ============================================================================
// Boolean Scanners
// ============================================================================

// directBoolScanner scans boolean directly (for PostgreSQL).
type directBoolScanner struct {
	value bool
}

func (s *directBoolScanner) Dest() any {
	return &s.value
}

func (s *directBoolScanner) Value() bool {
	return s.value
}

// intBoolScanner scans boolean as int (for MySQL).
type intBoolScanner struct {
	value int
}

func (s *intBoolScanner) Dest() any {
	return &s.value
}

func (s *intBoolScanner) Value() bool {
	return s.value != 0
}
