/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package search maintains a small embedded SQLite index over public comics
// for the explore feed's free-text search and category facet. The index
// answers membership only; the relational store stays authoritative for
// visibility and ordering.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"panelplay/internal/domain"
)

// Index is an embedded LIKE-based search index.
type Index struct {
	db *sql.DB
}

// Open creates or opens the index database. Use ":memory:" for an ephemeral
// index rebuilt at startup.
func Open(path string) (*Index, error) {
	if strings.TrimSpace(path) == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The index is used from HTTP handlers; a single connection avoids
	// table-lock errors with the in-memory database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS comics (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		genre TEXT NOT NULL DEFAULT ''
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure index schema: %w", err)
	}
	return &Index{db: db}, nil
}

func (ix *Index) Close() error { return ix.db.Close() }

// Put inserts or refreshes one comic's searchable fields.
func (ix *Index) Put(ctx context.Context, c domain.Comic) error {
	_, err := ix.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO comics (id, title, description, genre) VALUES (?, ?, ?, ?)`,
		c.ID, c.Title, c.Description, c.Genre)
	if err != nil {
		return fmt.Errorf("index put: %w", err)
	}
	return nil
}

// Delete removes one comic from the index.
func (ix *Index) Delete(ctx context.Context, id string) error {
	if _, err := ix.db.ExecContext(ctx, `DELETE FROM comics WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index delete: %w", err)
	}
	return nil
}

// Rebuild replaces the whole index with the given comics.
func (ix *Index) Rebuild(ctx context.Context, comics []domain.Comic) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index rebuild: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM comics`); err != nil {
		return fmt.Errorf("index wipe: %w", err)
	}
	for _, c := range comics {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO comics (id, title, description, genre) VALUES (?, ?, ?, ?)`,
			c.ID, c.Title, c.Description, c.Genre); err != nil {
			return fmt.Errorf("index fill: %w", err)
		}
	}
	return tx.Commit()
}

// Query describes an explore search: a free-text term over title/description
// and an optional category matched against genre or description. "All" and
// the empty string disable the category facet.
type Query struct {
	Term     string
	Category string
}

// Match returns the set of comic ids matching the query.
func (ix *Index) Match(ctx context.Context, q Query) (map[string]bool, error) {
	var sb strings.Builder
	var args []any
	sb.WriteString(`SELECT id FROM comics WHERE 1=1`)
	if term := strings.ToLower(strings.TrimSpace(q.Term)); term != "" {
		sb.WriteString(` AND (lower(title) LIKE ? ESCAPE '\' OR lower(description) LIKE ? ESCAPE '\')`)
		args = append(args, likeContains(term), likeContains(term))
	}
	if cat := strings.ToLower(strings.TrimSpace(q.Category)); cat != "" && cat != "all" {
		sb.WriteString(` AND (lower(genre) LIKE ? ESCAPE '\' OR lower(description) LIKE ? ESCAPE '\')`)
		args = append(args, likeContains(cat), likeContains(cat))
	}
	rows, err := ix.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("index query: %w", err)
	}
	defer rows.Close()
	ids := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func likeContains(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return "%" + s + "%"
}
