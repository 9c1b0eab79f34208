package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-article-sync/articlesync"
)

// Token is the bearer token the fake server hands out and accepts.
const Token = "test-token"

// ArticleServer is an in-memory article service for tests. It speaks the
// same enveloped JSON wire format as the production service, enforces bearer
// auth on protected routes, and records requests so tests can assert on
// headers and call counts.
type ArticleServer struct {
	t  testing.TB
	ts *httptest.Server

	mu       sync.Mutex
	articles []articlesync.Article
	user     articlesync.User

	requests  []RecordedRequest
	dropNext  int
	failNext  []plannedFailure
	listCalls int
}

// RecordedRequest captures the parts of a request tests care about.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type plannedFailure struct {
	status int
	body   string
}

// NewArticleServer starts a fake article service seeded with the given
// articles. The server is closed automatically when the test ends.
func NewArticleServer(t testing.TB, articles ...articlesync.Article) *ArticleServer {
	t.Helper()

	s := &ArticleServer{
		t:        t,
		articles: articles,
		user: articlesync.User{
			Username: "jake",
			Email:    "jake@jake.jake",
			Token:    Token,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /articles", s.handleList)
	mux.HandleFunc("GET /articles/{slug}", s.handleGet)
	mux.HandleFunc("POST /articles", s.auth(s.handleCreate))
	mux.HandleFunc("PUT /articles/{slug}", s.auth(s.handleUpdate))
	mux.HandleFunc("DELETE /articles/{slug}", s.auth(s.handleDelete))
	mux.HandleFunc("POST /articles/{slug}/favorite", s.auth(s.handleFavorite))
	mux.HandleFunc("DELETE /articles/{slug}/favorite", s.auth(s.handleUnfavorite))
	mux.HandleFunc("POST /users/login", s.handleLogin)
	mux.HandleFunc("POST /users", s.handleRegister)
	mux.HandleFunc("GET /user", s.auth(s.handleCurrentUser))
	mux.HandleFunc("PUT /user", s.auth(s.handleUpdateUser))

	s.ts = httptest.NewServer(s.intercept(mux))
	t.Cleanup(s.ts.Close)
	return s
}

// URL returns the base URL of the fake service.
func (s *ArticleServer) URL() string {
	return s.ts.URL
}

// Close shuts the server down before the test's cleanup runs.
func (s *ArticleServer) Close() {
	s.ts.Close()
}

// Requests returns a copy of every request seen so far.
func (s *ArticleServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest{}, s.requests...)
}

// LastRequest returns the most recent request, failing the test when none
// was made.
func (s *ArticleServer) LastRequest() RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		s.t.Fatal("no requests recorded")
	}
	return s.requests[len(s.requests)-1]
}

// ListCalls returns how many collection fetches were served.
func (s *ArticleServer) ListCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

// DropConnections makes the next n requests fail at the transport level by
// severing the connection before any response is written.
func (s *ArticleServer) DropConnections(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropNext = n
}

// FailNext makes the next request answer with the given status and raw body.
func (s *ArticleServer) FailNext(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = append(s.failNext, plannedFailure{status: status, body: body})
}

// Article returns the current server-side copy of a slug.
func (s *ArticleServer) Article(slug string) (articlesync.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.find(slug); i >= 0 {
		return s.articles[i], true
	}
	return articlesync.Article{}, false
}

func (s *ArticleServer) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-Id"),
		})
		drop := s.dropNext > 0
		if drop {
			s.dropNext--
		}
		var failure *plannedFailure
		if !drop && len(s.failNext) > 0 {
			failure = &s.failNext[0]
			s.failNext = s.failNext[1:]
		}
		s.mu.Unlock()

		if drop {
			hj, ok := w.(http.Hijacker)
			if !ok {
				s.t.Fatal("response writer does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				s.t.Fatalf("hijack failed: %v", err)
			}
			conn.Close()
			return
		}
		if failure != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(failure.status)
			fmt.Fprint(w, failure.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *ArticleServer) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token {
			http.Error(w, `{"message":"missing authentication"}`, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *ArticleServer) find(slug string) int {
	for i := range s.articles {
		if s.articles[i].Slug == slug {
			return i
		}
	}
	return -1
}

func (s *ArticleServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.t.Errorf("encode response: %v", err)
	}
}

func (s *ArticleServer) notFound(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
}

type articleBody struct {
	Article articlesync.ArticlePayload `json:"article"`
}

func (s *ArticleServer) handleList(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	s.listCalls++
	var page []articlesync.Article
	if offset < len(s.articles) {
		end := offset + limit
		if end > len(s.articles) {
			end = len(s.articles)
		}
		page = append([]articlesync.Article{}, s.articles[offset:end]...)
	}
	total := len(s.articles)
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, articlesync.ArticleList{Articles: page, Total: total})
}

func (s *ArticleServer) handleGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	i := s.find(r.PathValue("slug"))
	var article articlesync.Article
	if i >= 0 {
		article = s.articles[i]
	}
	s.mu.Unlock()

	if i < 0 {
		s.notFound(w)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]articlesync.Article{"article": article})
}

func (s *ArticleServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body articleBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.Article.Title == "" {
		s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"errors": map[string][]string{"title": {"can't be blank"}},
		})
		return
	}

	article := articlesync.Article{
		Slug:        slugify(body.Article.Title),
		Title:       body.Article.Title,
		Description: body.Article.Description,
		Body:        body.Article.Body,
		TagList:     body.Article.TagList,
		Author:      articlesync.Author{Username: s.user.Username},
	}
	s.mu.Lock()
	s.articles = append([]articlesync.Article{article}, s.articles...)
	s.mu.Unlock()

	s.writeJSON(w, http.StatusCreated, map[string]articlesync.Article{"article": article})
}

func (s *ArticleServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var body articleBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	i := s.find(r.PathValue("slug"))
	var article articlesync.Article
	if i >= 0 {
		s.articles[i].Title = body.Article.Title
		s.articles[i].Description = body.Article.Description
		s.articles[i].Body = body.Article.Body
		article = s.articles[i]
	}
	s.mu.Unlock()

	if i < 0 {
		s.notFound(w)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]articlesync.Article{"article": article})
}

func (s *ArticleServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	i := s.find(r.PathValue("slug"))
	if i >= 0 {
		s.articles = append(s.articles[:i], s.articles[i+1:]...)
	}
	s.mu.Unlock()

	if i < 0 {
		s.notFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *ArticleServer) handleFavorite(w http.ResponseWriter, r *http.Request) {
	s.setFavorited(w, r.PathValue("slug"), true)
}

func (s *ArticleServer) handleUnfavorite(w http.ResponseWriter, r *http.Request) {
	s.setFavorited(w, r.PathValue("slug"), false)
}

func (s *ArticleServer) setFavorited(w http.ResponseWriter, slug string, favorited bool) {
	s.mu.Lock()
	i := s.find(slug)
	var article articlesync.Article
	if i >= 0 {
		if favorited && !s.articles[i].Favorited {
			s.articles[i].FavoritesCount++
		}
		if !favorited && s.articles[i].Favorited && s.articles[i].FavoritesCount > 0 {
			s.articles[i].FavoritesCount--
		}
		s.articles[i].Favorited = favorited
		article = s.articles[i]
	}
	s.mu.Unlock()

	if i < 0 {
		s.notFound(w)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]articlesync.Article{"article": article})
}

func (s *ArticleServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User articlesync.Credentials `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.User.Email != s.user.Email {
		s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"errors": map[string][]string{"email or password": {"is invalid"}},
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]articlesync.User{"user": s.user})
}

func (s *ArticleServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User articlesync.Registration `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.user.Username = body.User.Username
	s.user.Email = body.User.Email
	user := s.user
	s.mu.Unlock()

	s.writeJSON(w, http.StatusCreated, map[string]articlesync.User{"user": user})
}

func (s *ArticleServer) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()
	s.writeJSON(w, http.StatusOK, map[string]articlesync.User{"user": user})
}

func (s *ArticleServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User articlesync.UserUpdate `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if body.User.Username != "" {
		s.user.Username = body.User.Username
	}
	if body.User.Email != "" {
		s.user.Email = body.User.Email
	}
	if body.User.Bio != "" {
		s.user.Bio = body.User.Bio
	}
	if body.User.Image != "" {
		s.user.Image = body.User.Image
	}
	user := s.user
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, map[string]articlesync.User{"user": user})
}

func slugify(title string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(title), " ", "-"))
}

// SeedArticles builds n predictable articles for list and pagination tests.
func SeedArticles(n int) []articlesync.Article {
	articles := make([]articlesync.Article, n)
	for i := range articles {
		articles[i] = articlesync.Article{
			Slug:   fmt.Sprintf("article-%d", i+1),
			Title:  fmt.Sprintf("Article %d", i+1),
			Author: articlesync.Author{Username: "jake"},
		}
	}
	return articles
}
