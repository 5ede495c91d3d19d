/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"panelplay/internal/domain"
)

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["email"] != "a@b.c" {
			t.Fatalf("email not forwarded: %v", body)
		}
		_ = json.NewEncoder(w).Encode(Session{Token: "tok-123", User: domain.User{ID: "u1", Email: "a@b.c"}})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "")
	s, err := c.Login(context.Background(), "a@b.c", "secretpass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if s.Token != "tok-123" || c.Token != "tok-123" {
		t.Fatalf("token not stored: %q %q", s.Token, c.Token)
	}
}

func TestListComicsSendsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("missing bearer header: %q", got)
		}
		_ = json.NewEncoder(w).Encode([]domain.Comic{{ID: "c1", Title: "Moon Run"}})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	list, err := c.ListComics(context.Background())
	if err != nil {
		t.Fatalf("list comics: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Moon Run" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestErrorBodySurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Missing required fields: genre, characters, idea."}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.Outline(context.Background(), domain.OutlineRequest{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "Missing required fields") {
		t.Fatalf("error body not surfaced: %v", err)
	}
}
