/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package store is the Postgres persistence layer for comics, pages and
// creator accounts. Page numbers are assigned inside a single INSERT under a
// UNIQUE(comic_id, page_number) constraint, so concurrent uploads cannot
// persist duplicate numbers.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"panelplay/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const pgUniqueViolation = "23505"

// insertPageAttempts bounds the retry loop when concurrent uploads collide on
// the same page number.
const insertPageAttempts = 3

// Store wraps the relational backend.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres, verifies the connection and applies migrations.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing database handle. Used by tests.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// Ping reports backend readiness.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// --- Users ---

// CreateUser inserts a creator account with an already-hashed password.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (domain.User, error) {
	u := domain.User{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3) RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash,
	).Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.User{}, fmt.Errorf("email already registered: %w", err)
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns ErrNotFound when no account exists for the address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

// GetUser returns ErrNotFound when the id is unknown.
func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

// --- Comics ---

// CreateComic inserts a comic record and returns it with id and timestamp set.
func (s *Store) CreateComic(ctx context.Context, c domain.Comic) (domain.Comic, error) {
	c.ID = uuid.NewString()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO comics (id, title, description, genre, is_public, user_id)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''))
		 RETURNING created_at`,
		c.ID, c.Title, c.Description, c.Genre, c.IsPublic, c.UserID,
	).Scan(&c.CreatedAt)
	if err != nil {
		return domain.Comic{}, fmt.Errorf("insert comic: %w", err)
	}
	return c, nil
}

const comicColumns = `id, title, description, COALESCE(genre, ''), is_public, COALESCE(user_id, ''), created_at`

func scanComics(rows *sql.Rows) ([]domain.Comic, error) {
	var list []domain.Comic
	for rows.Next() {
		var c domain.Comic
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Genre, &c.IsPublic, &c.UserID, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// ListComics returns all comics, newest first. This backs the dashboard.
func (s *Store) ListComics(ctx context.Context) ([]domain.Comic, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+comicColumns+` FROM comics ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select comics: %w", err)
	}
	defer rows.Close()
	return scanComics(rows)
}

// ListComicsByUser returns one creator's comics, newest first.
func (s *Store) ListComicsByUser(ctx context.Context, userID string) ([]domain.Comic, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+comicColumns+` FROM comics WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select comics by user: %w", err)
	}
	defer rows.Close()
	return scanComics(rows)
}

// ListPublicComics returns public comics only, newest first. This backs the
// explore feed and never includes a comic whose visibility flag is false.
func (s *Store) ListPublicComics(ctx context.Context) ([]domain.Comic, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+comicColumns+` FROM comics WHERE is_public ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select public comics: %w", err)
	}
	defer rows.Close()
	return scanComics(rows)
}

// GetComic returns ErrNotFound when the id is unknown.
func (s *Store) GetComic(ctx context.Context, id string) (domain.Comic, error) {
	var c domain.Comic
	err := s.db.QueryRowContext(ctx,
		`SELECT `+comicColumns+` FROM comics WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.Genre, &c.IsPublic, &c.UserID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Comic{}, ErrNotFound
	}
	if err != nil {
		return domain.Comic{}, fmt.Errorf("select comic: %w", err)
	}
	return c, nil
}

// --- Pages ---

// ListPages returns a comic's pages in ascending page-number order.
func (s *Store) ListPages(ctx context.Context, comicID string) ([]domain.ComicPage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, comic_id, page_number, image_url, created_at
		 FROM comic_pages WHERE comic_id = $1 ORDER BY page_number ASC`, comicID)
	if err != nil {
		return nil, fmt.Errorf("select pages: %w", err)
	}
	defer rows.Close()
	var list []domain.ComicPage
	for rows.Next() {
		var p domain.ComicPage
		if err := rows.Scan(&p.ID, &p.ComicID, &p.PageNumber, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// NextPageNumber reports the number the next upload would receive: max+1, or 1
// for an empty comic. The value is advisory (used for the object path); the
// authoritative number is assigned by InsertPage.
func (s *Store) NextPageNumber(ctx context.Context, comicID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(page_number), 0) + 1 FROM comic_pages WHERE comic_id = $1`, comicID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next page number: %w", err)
	}
	return n, nil
}

// InsertPage appends a page record, assigning page_number = max+1 inside the
// INSERT itself. If two uploads race, the unique constraint rejects the loser
// and the statement is retried with a freshly computed number.
func (s *Store) InsertPage(ctx context.Context, comicID, imageURL string) (domain.ComicPage, error) {
	var lastErr error
	for attempt := 0; attempt < insertPageAttempts; attempt++ {
		p := domain.ComicPage{ID: uuid.NewString(), ComicID: comicID, ImageURL: imageURL}
		err := s.db.QueryRowContext(ctx,
			`INSERT INTO comic_pages (id, comic_id, page_number, image_url)
			 SELECT $1, $2, COALESCE(MAX(page_number), 0) + 1, $3
			 FROM comic_pages WHERE comic_id = $2
			 RETURNING page_number, created_at`,
			p.ID, comicID, imageURL,
		).Scan(&p.PageNumber, &p.CreatedAt)
		if err == nil {
			return p, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			lastErr = err
			continue
		}
		return domain.ComicPage{}, fmt.Errorf("insert page: %w", err)
	}
	return domain.ComicPage{}, fmt.Errorf("insert page: retries exhausted: %w", lastErr)
}

// GetPage returns ErrNotFound when the id is unknown.
func (s *Store) GetPage(ctx context.Context, id string) (domain.ComicPage, error) {
	var p domain.ComicPage
	err := s.db.QueryRowContext(ctx,
		`SELECT id, comic_id, page_number, image_url, created_at FROM comic_pages WHERE id = $1`, id,
	).Scan(&p.ID, &p.ComicID, &p.PageNumber, &p.ImageURL, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ComicPage{}, ErrNotFound
	}
	if err != nil {
		return domain.ComicPage{}, fmt.Errorf("select page: %w", err)
	}
	return p, nil
}

// DeletePage removes the record and returns the deleted row so the caller can
// clean up the backing blob. The record deletion is authoritative: blob
// cleanup failures do not resurrect the page.
func (s *Store) DeletePage(ctx context.Context, id string) (domain.ComicPage, error) {
	var p domain.ComicPage
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM comic_pages WHERE id = $1
		 RETURNING id, comic_id, page_number, image_url, created_at`, id,
	).Scan(&p.ID, &p.ComicID, &p.PageNumber, &p.ImageURL, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ComicPage{}, ErrNotFound
	}
	if err != nil {
		return domain.ComicPage{}, fmt.Errorf("delete page: %w", err)
	}
	return p, nil
}
