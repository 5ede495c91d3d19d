/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package client is a minimal HTTP client for the PanelPlay JSON API,
// used by the panelplayctl command.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"panelplay/internal/domain"
)

// Client talks to a running PanelPlay server.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// New creates a new API client. baseURL may include a trailing slash; it will be normalized.
func New(baseURL string, token string) *Client {
	b := strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: b,
		Token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rdr *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(buf)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
			return fmt.Errorf("server %s %s: %s: %s", method, u.Path, resp.Status, e.Error)
		}
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	if dest == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// Session is the response of the auth endpoints.
type Session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// SignUp registers a new account and returns its session.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/signup", body, &s); err != nil {
		return nil, err
	}
	c.Token = s.Token
	return &s, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, &s); err != nil {
		return nil, err
	}
	c.Token = s.Token
	return &s, nil
}

// ListComics returns the authenticated user's comics.
func (c *Client) ListComics(ctx context.Context) ([]domain.Comic, error) {
	var list []domain.Comic
	if err := c.doJSON(ctx, http.MethodGet, "/api/comics", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Explore returns public comics, optionally filtered by a search term and category.
func (c *Client) Explore(ctx context.Context, term, category string) ([]domain.Comic, error) {
	q := url.Values{}
	if term != "" {
		q.Set("search", term)
	}
	if category != "" {
		q.Set("category", category)
	}
	path := "/api/explore"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var list []domain.Comic
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateComic creates a comic owned by the authenticated user.
func (c *Client) CreateComic(ctx context.Context, title, description, genre string, isPublic bool) (*domain.Comic, error) {
	var comic domain.Comic
	body := map[string]any{
		"title":       title,
		"description": description,
		"genre":       genre,
		"is_public":   isPublic,
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/comics", body, &comic); err != nil {
		return nil, err
	}
	return &comic, nil
}

// ListPages returns the pages of a comic in ascending page order.
func (c *Client) ListPages(ctx context.Context, comicID string) ([]domain.ComicPage, error) {
	var pages []domain.ComicPage
	path := fmt.Sprintf("/api/comics/%s/pages", url.PathEscape(comicID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

// Outline asks the story helper for a synopsis and panel breakdown.
func (c *Client) Outline(ctx context.Context, req domain.OutlineRequest) (string, error) {
	var out struct {
		Content string `json:"content"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/story-helper", req, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}
