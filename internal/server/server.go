/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package server is the PanelPlay HTTP surface: HTML views for readers and
// creators plus the JSON API the views and panelplayctl talk to.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"panelplay/internal/auth"
	"panelplay/internal/blob"
	"panelplay/internal/crash"
	"panelplay/internal/domain"
	applog "panelplay/internal/log"
	"panelplay/internal/outline"
	"panelplay/internal/search"
	"panelplay/internal/telemetry"
	"panelplay/internal/version"
)

// sessionCookie carries the bearer token for browser sessions.
const sessionCookie = "pp_session"

// maxUploadBytes bounds a single page image upload.
const maxUploadBytes = 10 << 20

// Store is the persistence surface the handlers need.
type Store interface {
	Ping(ctx context.Context) error
	CreateComic(ctx context.Context, c domain.Comic) (domain.Comic, error)
	ListComicsByUser(ctx context.Context, userID string) ([]domain.Comic, error)
	ListPublicComics(ctx context.Context) ([]domain.Comic, error)
	GetComic(ctx context.Context, id string) (domain.Comic, error)
	ListPages(ctx context.Context, comicID string) ([]domain.ComicPage, error)
	NextPageNumber(ctx context.Context, comicID string) (int, error)
	InsertPage(ctx context.Context, comicID, imageURL string) (domain.ComicPage, error)
	GetPage(ctx context.Context, id string) (domain.ComicPage, error)
	DeletePage(ctx context.Context, id string) (domain.ComicPage, error)
}

// Options wires the server's collaborators.
type Options struct {
	Addr     string
	Store    Store
	Auth     *auth.Service
	Blobs    blob.Store
	Outline  *outline.Generator // nil when GEMINI_API_KEY is absent
	Index    *search.Index      // nil disables explore filtering
	Telem    *telemetry.Client  // nil disables events
	CrashDir string
}

// Server holds the handler state.
type Server struct {
	addr     string
	log      *slog.Logger
	store    Store
	auth     *auth.Service
	blobs    blob.Store
	outline  *outline.Generator
	index    *search.Index
	telem    *telemetry.Client
	crashDir string
}

// New constructs the server; call Handler or Start on the result.
func New(opts Options) *Server {
	return &Server{
		addr:     opts.Addr,
		log:      applog.WithComponent("server"),
		store:    opts.Store,
		auth:     opts.Auth,
		blobs:    opts.Blobs,
		outline:  opts.Outline,
		index:    opts.Index,
		telem:    opts.Telem,
		crashDir: opts.CrashDir,
	}
}

// Handler builds the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(version.String()))
	})

	// JSON API
	mux.HandleFunc("POST /api/auth/signup", s.apiSignup)
	mux.HandleFunc("POST /api/auth/login", s.apiLogin)
	mux.HandleFunc("GET /api/auth/session", s.withUser(s.apiSession))
	mux.HandleFunc("GET /api/comics", s.withUser(s.apiListComics))
	mux.HandleFunc("POST /api/comics", s.withUser(s.apiCreateComic))
	mux.HandleFunc("GET /api/comics/{id}", s.apiGetComic)
	mux.HandleFunc("GET /api/comics/{id}/pages", s.apiListPages)
	mux.HandleFunc("POST /api/comics/{id}/pages", s.withUser(s.apiUploadPage))
	mux.HandleFunc("DELETE /api/comics/{id}/pages/{pageID}", s.withUser(s.apiDeletePage))
	mux.HandleFunc("GET /api/comics/{id}/export.pdf", s.apiExportPDF)
	mux.HandleFunc("GET /api/comics/{id}/export.cbz", s.apiExportCBZ)
	mux.HandleFunc("GET /api/explore", s.apiExplore)
	mux.HandleFunc("POST /api/story-helper", s.apiStoryHelper)

	// HTML views
	mux.HandleFunc("GET /{$}", s.viewHome)
	mux.HandleFunc("GET /explore", s.viewExplore)
	mux.HandleFunc("GET /auth", s.viewAuth)
	mux.HandleFunc("POST /auth", s.viewAuthSubmit)
	mux.HandleFunc("GET /logout", s.viewLogout)
	mux.HandleFunc("GET /dashboard", s.viewDashboard)
	mux.HandleFunc("GET /create-comic", s.viewCreateComic)
	mux.HandleFunc("POST /create-comic", s.viewCreateComicSubmit)
	mux.HandleFunc("GET /comics/{id}", s.viewComic)
	mux.HandleFunc("GET /comics/{id}/pages", s.viewPages)
	mux.HandleFunc("POST /comics/{id}/pages", s.viewUploadPage)
	mux.HandleFunc("POST /comics/{id}/pages/{pageID}/delete", s.viewDeletePage)
	mux.HandleFunc("GET /ai/story-helper", s.viewStoryHelper)
	mux.HandleFunc("POST /ai/story-helper", s.viewStoryHelperSubmit)

	// Page images are served from the bucket under the public marker prefix.
	mux.HandleFunc("GET "+blob.PublicURLMarker+"{object...}", s.serveObject)

	return s.recoverPanics(mux)
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", slog.String("addr", s.addr))
	select {
	case <-ctx.Done():
		shctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shctx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// recoverPanics converts handler panics into 500s and writes a crash report.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				stack := debug.Stack()
				s.log.Error("panic in handler",
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(stack)))
				if path, err := crash.WriteReport(s.crashDir, rec, stack); err == nil {
					s.log.Info("crash report written", slog.String("path", path))
				}
				writeError(w, http.StatusInternalServerError, fmt.Errorf("internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// sessionUser resolves the request's session from the Authorization header or
// the session cookie. Any verification failure means no session.
func (s *Server) sessionUser(r *http.Request) (domain.User, bool) {
	tok := bearerToken(r)
	if tok == "" {
		if c, err := r.Cookie(sessionCookie); err == nil {
			tok = c.Value
		}
	}
	if tok == "" {
		return domain.User{}, false
	}
	return s.auth.Session(r.Context(), tok)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(strings.ToLower(h), strings.ToLower(prefix)) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// withUser requires a valid session for a JSON API handler.
func (s *Server) withUser(next func(w http.ResponseWriter, r *http.Request, u domain.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := s.sessionUser(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
			return
		}
		next(w, r, u)
	}
}

// serveObject streams a stored page image.
func (s *Server) serveObject(w http.ResponseWriter, r *http.Request) {
	object := r.PathValue("object")
	rc, err := s.blobs.Open(r.Context(), object)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer rc.Close()
	if ct := mime.TypeByExtension(filepath.Ext(object)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := io.Copy(w, rc); err != nil {
		s.log.Debug("serve object interrupted", slog.String("object", object), slog.Any("err", err))
	}
}

func (s *Server) event(name string, props map[string]any) {
	s.telem.Event(name, props)
}
