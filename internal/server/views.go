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
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"panelplay/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Categories are the explore facets offered in the UI.
var Categories = []string{"All", "Action", "Comedy", "Drama", "Fantasy", "Horror", "Romance", "Sci-Fi", "Slice of Life"}

type pageView struct {
	Title string
	User  *domain.User
	Data  any
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	view := pageView{Title: title, Data: data}
	if u, ok := s.sessionUser(r); ok {
		view.User = &u
	}
	if err := tmpl.Execute(w, view); err != nil {
		s.log.Error("render failed", slog.String("template", name), slog.Any("err", err))
	}
}

// requireUser gates a view; without a session the browser is sent to the
// auth page with the original path as redirect target.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	u, ok := s.sessionUser(r)
	if !ok {
		http.Redirect(w, r, "/auth?redirect="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
		return domain.User{}, false
	}
	return u, true
}

type homeView struct {
	Featured []domain.Comic
}

func (s *Server) viewHome(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListPublicComics(r.Context())
	if err != nil {
		s.log.Error("home feed failed", slog.Any("err", err))
	}
	if len(list) > 6 {
		list = list[:6]
	}
	s.render(w, r, "home.html", "PanelPlay", homeView{Featured: list})
}

type exploreView struct {
	Comics     []domain.Comic
	Term       string
	Category   string
	Categories []string
}

func (s *Server) viewExplore(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := q.Get("search")
	category := q.Get("category")
	list, err := s.explore(r, term, category)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	s.render(w, r, "explore.html", "Explore", exploreView{
		Comics:     list,
		Term:       term,
		Category:   category,
		Categories: Categories,
	})
}

type authView struct {
	Redirect string
	Error    string
	Mode     string // "login" or "signup"
}

func (s *Server) viewAuth(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "auth.html", "Sign in", authView{
		Redirect: r.URL.Query().Get("redirect"),
		Mode:     "login",
	})
}

func (s *Server) viewAuthSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	mode := r.PostFormValue("mode")
	redirect := r.PostFormValue("redirect")

	if mode == "signup" {
		if _, err := s.auth.SignUp(r.Context(), email, password); err != nil {
			s.render(w, r, "auth.html", "Sign up", authView{Redirect: redirect, Error: err.Error(), Mode: "signup"})
			return
		}
	}
	tok, _, err := s.auth.SignIn(r.Context(), email, password)
	if err != nil {
		s.render(w, r, "auth.html", "Sign in", authView{Redirect: redirect, Error: err.Error(), Mode: mode})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	target := "/dashboard"
	if redirect != "" && strings.HasPrefix(redirect, "/") && !strings.HasPrefix(redirect, "//") {
		target = redirect
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) viewLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type dashboardView struct {
	Comics []domain.Comic
}

func (s *Server) viewDashboard(w http.ResponseWriter, r *http.Request) {
	u, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	list, err := s.store.ListComicsByUser(r.Context(), u.ID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	s.render(w, r, "dashboard.html", "My Comics", dashboardView{Comics: list})
}

type createComicView struct {
	Title       string
	Description string
	Genre       string
	IsPublic    bool
	Error       string
	Categories  []string
}

// ideaParam extracts the ?idea= prefill from the raw query so a malformed
// escape still round-trips as the verbatim raw text instead of being dropped.
func ideaParam(r *http.Request) string {
	for _, pair := range strings.Split(r.URL.RawQuery, "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k != "idea" {
			continue
		}
		if dec, err := url.QueryUnescape(strings.ReplaceAll(v, "+", " ")); err == nil {
			return dec
		}
		return v
	}
	return ""
}

func (s *Server) viewCreateComic(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	s.render(w, r, "create_comic.html", "Create Comic", createComicView{
		Description: ideaParam(r),
		IsPublic:    true,
		Categories:  Categories[1:], // "All" is a filter, not a genre
	})
}

func (s *Server) viewCreateComicSubmit(w http.ResponseWriter, r *http.Request) {
	u, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	isPublic := r.PostFormValue("is_public") != ""
	title := r.PostFormValue("title")
	description := r.PostFormValue("description")
	genre := r.PostFormValue("genre")
	c, _, err := s.createComic(r, u, createComicRequest{
		Title:       title,
		Description: description,
		Genre:       genre,
		IsPublic:    &isPublic,
	})
	if err != nil {
		// leave the whole form populated for the retry
		s.render(w, r, "create_comic.html", "Create Comic", createComicView{
			Title:       title,
			Description: description,
			Genre:       genre,
			IsPublic:    isPublic,
			Error:       err.Error(),
			Categories:  Categories[1:],
		})
		return
	}
	http.Redirect(w, r, "/comics/"+c.ID+"/pages", http.StatusSeeOther)
}

type comicView struct {
	Comic domain.Comic
	Pages []domain.ComicPage
	Owner bool
}

func (s *Server) loadComicView(w http.ResponseWriter, r *http.Request) (comicView, bool) {
	c, status, err := s.visibleComic(r, r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), status)
		return comicView{}, false
	}
	pages, err := s.store.ListPages(r.Context(), c.ID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return comicView{}, false
	}
	// pages arrive ordered from the store; re-sort anyway so the reader
	// never renders out of sequence
	domain.SortPages(pages)
	v := comicView{Comic: c, Pages: pages}
	if u, ok := s.sessionUser(r); ok && u.ID == c.UserID {
		v.Owner = true
	}
	return v, true
}

func (s *Server) viewComic(w http.ResponseWriter, r *http.Request) {
	v, ok := s.loadComicView(w, r)
	if !ok {
		return
	}
	s.render(w, r, "comic.html", v.Comic.Title, v)
}

func (s *Server) viewPages(w http.ResponseWriter, r *http.Request) {
	u, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	v, ok := s.loadComicView(w, r)
	if !ok {
		return
	}
	if v.Comic.UserID != u.ID {
		http.Error(w, "not your comic", http.StatusForbidden)
		return
	}
	s.render(w, r, "pages.html", "Manage Pages", v)
}

func (s *Server) viewUploadPage(w http.ResponseWriter, r *http.Request) {
	u, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	c, status, err := s.ownedComic(r, r.PathValue("id"), u)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	filename, data, err := readUpload(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, status, err := s.uploadPage(r, c, filename, data); err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	http.Redirect(w, r, "/comics/"+c.ID+"/pages", http.StatusSeeOther)
}

func (s *Server) viewDeletePage(w http.ResponseWriter, r *http.Request) {
	u, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	c, status, err := s.ownedComic(r, r.PathValue("id"), u)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	page, err := s.store.GetPage(r.Context(), r.PathValue("pageID"))
	if err != nil || page.ComicID != c.ID {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}
	if _, status, err := s.deletePage(r, page.ID); err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	http.Redirect(w, r, "/comics/"+c.ID+"/pages", http.StatusSeeOther)
}

type storyHelperView struct {
	Genre      string
	Characters string
	Idea       string
	Content    string
	Error      string
}

func (s *Server) viewStoryHelper(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	s.render(w, r, "story_helper.html", "AI Story Helper", storyHelperView{})
}

func (s *Server) viewStoryHelperSubmit(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	v := storyHelperView{
		Genre:      r.PostFormValue("genre"),
		Characters: r.PostFormValue("characters"),
		Idea:       r.PostFormValue("idea"),
	}
	content, _, err := s.storyHelper(r, domain.OutlineRequest{
		Genre:      v.Genre,
		Characters: v.Characters,
		Idea:       v.Idea,
	})
	if err != nil {
		v.Error = err.Error()
	} else {
		v.Content = content
	}
	s.render(w, r, "story_helper.html", "AI Story Helper", v)
}
