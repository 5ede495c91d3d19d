/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"panelplay/internal/blob"
	"panelplay/internal/domain"
	"panelplay/internal/export"
	"panelplay/internal/search"
	"panelplay/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func decodeBody(r *http.Request, dest any) error {
	b, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	_ = r.Body.Close()
	return json.Unmarshal(b, dest)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (s *Server) apiSignup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body"))
		return
	}
	if _, err := s.auth.SignUp(r.Context(), req.Email, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tok, u, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: tok, User: u})
}

func (s *Server) apiLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body"))
		return
	}
	tok, u, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: tok, User: u})
}

func (s *Server) apiSession(w http.ResponseWriter, r *http.Request, u domain.User) {
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (s *Server) apiListComics(w http.ResponseWriter, r *http.Request, u domain.User) {
	list, err := s.store.ListComicsByUser(r.Context(), u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []domain.Comic{}
	}
	writeJSON(w, http.StatusOK, list)
}

type createComicRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
	IsPublic    *bool  `json:"is_public"`
}

func (s *Server) createComic(r *http.Request, u domain.User, req createComicRequest) (domain.Comic, int, error) {
	if req.Title == "" || req.Description == "" {
		return domain.Comic{}, http.StatusBadRequest, fmt.Errorf("Missing required fields: title, description.")
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	c, err := s.store.CreateComic(r.Context(), domain.Comic{
		Title:       req.Title,
		Description: req.Description,
		Genre:       req.Genre,
		IsPublic:    isPublic,
		UserID:      u.ID,
	})
	if err != nil {
		return domain.Comic{}, http.StatusInternalServerError, err
	}
	if s.index != nil && c.IsPublic {
		if err := s.index.Put(r.Context(), c); err != nil {
			s.log.Warn("search index update failed", slog.String("comic", c.ID), slog.Any("err", err))
		}
	}
	s.event("comic_created", map[string]any{"public": c.IsPublic})
	return c, http.StatusCreated, nil
}

func (s *Server) apiCreateComic(w http.ResponseWriter, r *http.Request, u domain.User) {
	var req createComicRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body"))
		return
	}
	c, status, err := s.createComic(r, u, req)
	if err != nil {
		writeError(w, status, err)
		return
	}
	writeJSON(w, status, c)
}

// visibleComic loads a comic and enforces visibility: a private comic is only
// visible to its owner.
func (s *Server) visibleComic(r *http.Request, id string) (domain.Comic, int, error) {
	c, err := s.store.GetComic(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Comic{}, http.StatusNotFound, fmt.Errorf("comic not found")
	}
	if err != nil {
		return domain.Comic{}, http.StatusInternalServerError, err
	}
	if !c.IsPublic {
		u, ok := s.sessionUser(r)
		if !ok || u.ID != c.UserID {
			return domain.Comic{}, http.StatusNotFound, fmt.Errorf("comic not found")
		}
	}
	return c, http.StatusOK, nil
}

func (s *Server) apiGetComic(w http.ResponseWriter, r *http.Request) {
	c, status, err := s.visibleComic(r, r.PathValue("id"))
	if err != nil {
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) apiListPages(w http.ResponseWriter, r *http.Request) {
	c, status, err := s.visibleComic(r, r.PathValue("id"))
	if err != nil {
		writeError(w, status, err)
		return
	}
	pages, err := s.store.ListPages(r.Context(), c.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	domain.SortPages(pages)
	if pages == nil {
		pages = []domain.ComicPage{}
	}
	writeJSON(w, http.StatusOK, pages)
}

// ownedComic loads a comic and requires u to be its owner.
func (s *Server) ownedComic(r *http.Request, id string, u domain.User) (domain.Comic, int, error) {
	c, err := s.store.GetComic(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Comic{}, http.StatusNotFound, fmt.Errorf("comic not found")
	}
	if err != nil {
		return domain.Comic{}, http.StatusInternalServerError, err
	}
	if c.UserID != u.ID {
		return domain.Comic{}, http.StatusForbidden, fmt.Errorf("not your comic")
	}
	return c, http.StatusOK, nil
}

// uploadPage stores the image bytes and records the page. The blob is written
// first; if the row insert fails the blob is removed again so no orphan stays
// behind.
func (s *Server) uploadPage(r *http.Request, c domain.Comic, filename string, data []byte) (domain.ComicPage, int, error) {
	info, err := blob.SniffImage(data)
	if err != nil {
		return domain.ComicPage{}, http.StatusBadRequest, fmt.Errorf("unsupported image: %w", err)
	}
	next, err := s.store.NextPageNumber(r.Context(), c.ID)
	if err != nil {
		return domain.ComicPage{}, http.StatusInternalServerError, err
	}
	object := blob.PageObjectPath(c.ID, next, time.Now(), filename)
	if err := s.blobs.Put(r.Context(), object, bytes.NewReader(data)); err != nil {
		return domain.ComicPage{}, http.StatusInternalServerError, fmt.Errorf("store image: %w", err)
	}
	page, err := s.store.InsertPage(r.Context(), c.ID, s.blobs.PublicURL(object))
	if err != nil {
		// compensating delete keeps the bucket free of orphans
		if rmErr := s.blobs.Remove(r.Context(), object); rmErr != nil {
			s.log.Warn("orphan blob cleanup failed", slog.String("object", object), slog.Any("err", rmErr))
		}
		return domain.ComicPage{}, http.StatusInternalServerError, err
	}
	s.event("page_uploaded", map[string]any{"format": info.Format})
	return page, http.StatusCreated, nil
}

func readUpload(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, fmt.Errorf("invalid upload: %w", err)
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("missing file field")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return "", nil, err
	}
	return hdr.Filename, data, nil
}

func (s *Server) apiUploadPage(w http.ResponseWriter, r *http.Request, u domain.User) {
	c, status, err := s.ownedComic(r, r.PathValue("id"), u)
	if err != nil {
		writeError(w, status, err)
		return
	}
	filename, data, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	page, status, err := s.uploadPage(r, c, filename, data)
	if err != nil {
		writeError(w, status, err)
		return
	}
	writeJSON(w, status, page)
}

// deletePage removes the row first; the record is authoritative. Blob removal
// is best-effort and never fails the operation.
func (s *Server) deletePage(r *http.Request, pageID string) (domain.ComicPage, int, error) {
	page, err := s.store.DeletePage(r.Context(), pageID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ComicPage{}, http.StatusNotFound, fmt.Errorf("page not found")
	}
	if err != nil {
		return domain.ComicPage{}, http.StatusInternalServerError, err
	}
	if object, ok := blob.ObjectPathFromURL(page.ImageURL); ok {
		if err := s.blobs.Remove(r.Context(), object); err != nil {
			s.log.Warn("page blob removal failed", slog.String("object", object), slog.Any("err", err))
		}
	}
	return page, http.StatusOK, nil
}

func (s *Server) apiDeletePage(w http.ResponseWriter, r *http.Request, u domain.User) {
	c, status, err := s.ownedComic(r, r.PathValue("id"), u)
	if err != nil {
		writeError(w, status, err)
		return
	}
	page, err := s.store.GetPage(r.Context(), r.PathValue("pageID"))
	if err != nil || page.ComicID != c.ID {
		writeError(w, http.StatusNotFound, fmt.Errorf("page not found"))
		return
	}
	page, status, err = s.deletePage(r, page.ID)
	if err != nil {
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) apiExportPDF(w http.ResponseWriter, r *http.Request) {
	c, status, err := s.visibleComic(r, r.PathValue("id"))
	if err != nil {
		writeError(w, status, err)
		return
	}
	pages, err := s.store.ListPages(r.Context(), c.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", c.Title+".pdf"))
	if err := export.WriteComicPDF(r.Context(), w, c, pages, s.blobs); err != nil {
		s.log.Error("pdf export failed", slog.String("comic", c.ID), slog.Any("err", err))
	}
}

func (s *Server) apiExportCBZ(w http.ResponseWriter, r *http.Request) {
	c, status, err := s.visibleComic(r, r.PathValue("id"))
	if err != nil {
		writeError(w, status, err)
		return
	}
	pages, err := s.store.ListPages(r.Context(), c.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.comicbook+zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", c.Title+".cbz"))
	if err := export.WriteComicCBZ(r.Context(), w, c, pages, s.blobs); err != nil {
		s.log.Error("cbz export failed", slog.String("comic", c.ID), slog.Any("err", err))
	}
}

// explore returns public comics newest first, optionally narrowed by a search
// term and category facet.
func (s *Server) explore(r *http.Request, term, category string) ([]domain.Comic, error) {
	list, err := s.store.ListPublicComics(r.Context())
	if err != nil {
		return nil, err
	}
	if s.index == nil || (term == "" && (category == "" || category == "All")) {
		return list, nil
	}
	ids, err := s.index.Match(r.Context(), search.Query{Term: term, Category: category})
	if err != nil {
		return nil, err
	}
	out := list[:0]
	for _, c := range list {
		if ids[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Server) apiExplore(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.explore(r, q.Get("search"), q.Get("category"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []domain.Comic{}
	}
	writeJSON(w, http.StatusOK, list)
}

// storyHelper re-checks the credential on every request, before even looking
// at the fields; field validation only applies once the helper is configured,
// and always runs before any upstream call.
func (s *Server) storyHelper(r *http.Request, req domain.OutlineRequest) (string, int, error) {
	if s.outline == nil {
		return "", http.StatusInternalServerError, fmt.Errorf("GEMINI_API_KEY is not configured on the server.")
	}
	if !req.Complete() {
		return "", http.StatusBadRequest, fmt.Errorf("Missing required fields: genre, characters, idea.")
	}
	content, err := s.outline.Generate(r.Context(), req)
	if err != nil {
		return "", http.StatusInternalServerError, err
	}
	s.event("outline_generated", nil)
	return content, http.StatusOK, nil
}

func (s *Server) apiStoryHelper(w http.ResponseWriter, r *http.Request) {
	var req domain.OutlineRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body"))
		return
	}
	content, status, err := s.storyHelper(r, req)
	if err != nil {
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"content": content})
}
