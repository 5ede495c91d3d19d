/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for PanelPlay. Identifiers are opaque
// strings (UUIDs assigned by the application). Timestamps are UTC.

import (
	"sort"
	"time"
)

// Comic is a titled, described unit of serialized content owned by a creator.
// IsPublic controls whether the comic appears on the public explore feed.
type Comic struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Genre       string    `json:"genre,omitempty"`
	IsPublic    bool      `json:"is_public"`
	UserID      string    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ComicPage is one ordered image belonging to a comic. PageNumber is a
// positive integer, unique within the comic, and determines display order.
type ComicPage struct {
	ID         string    `json:"id"`
	ComicID    string    `json:"comic_id"`
	PageNumber int       `json:"page_number"`
	ImageURL   string    `json:"image_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// User is a registered creator account. The password hash never leaves the
// server and is excluded from JSON.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// OutlineRequest is the story-helper input: three required free-text fields.
type OutlineRequest struct {
	Genre      string `json:"genre"`
	Characters string `json:"characters"`
	Idea       string `json:"idea"`
}

// Complete reports whether all three fields are present and non-blank.
func (r OutlineRequest) Complete() bool {
	return notBlank(r.Genre) && notBlank(r.Characters) && notBlank(r.Idea)
}

func notBlank(s string) bool {
	for _, c := range s {
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return true
		}
	}
	return false
}

// SortPages orders pages by ascending page number in place. Views sort
// defensively even though the store already orders its queries.
func SortPages(pages []ComicPage) {
	sort.Slice(pages, func(i, j int) bool { return pages[i].PageNumber < pages[j].PageNumber })
}

// NextPageNumber returns the page number a new upload would receive given the
// currently known pages: max+1, or 1 when the comic has no pages.
func NextPageNumber(pages []ComicPage) int {
	maxN := 0
	for _, p := range pages {
		if p.PageNumber > maxN {
			maxN = p.PageNumber
		}
	}
	return maxN + 1
}
