package articlesync

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-article-sync/querycache"
	"github.com/goliatone/go-article-sync/session"
)

// fakeAPI is an in-memory article service for tests. It records request
// counts so tests can assert exactly which cache entries refetched.
type fakeAPI struct {
	mu       sync.Mutex
	articles []Article
	user     User

	listOffsets []int
	getCalls    map[string]int
	favCalls    int
	unfavCalls  int

	favErr   error
	unfavErr error
	favGate  chan struct{} // when set, favorite responses block until signalled
	drift    int           // extra favorites applied server-side, as if by other sessions

	createErr error
	updateErr error
	deleteErr error
}

func newFakeAPI(articles ...Article) *fakeAPI {
	return &fakeAPI{
		articles: articles,
		getCalls: make(map[string]int),
		user:     User{Username: "jake", Email: "jake@jake.jake", Token: "fake-token"},
	}
}

func makeArticles(n int) []Article {
	articles := make([]Article, n)
	for i := range articles {
		articles[i] = Article{
			Slug:   fmt.Sprintf("article-%d", i+1),
			Title:  fmt.Sprintf("Article %d", i+1),
			Author: Author{Username: "jake"},
		}
	}
	return articles
}

func (f *fakeAPI) find(slug string) int {
	for i := range f.articles {
		if f.articles[i].Slug == slug {
			return i
		}
	}
	return -1
}

func (f *fakeAPI) ListArticles(ctx context.Context, offset, limit int) (ArticleList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listOffsets = append(f.listOffsets, offset)

	var page []Article
	if offset < len(f.articles) {
		end := offset + limit
		if end > len(f.articles) {
			end = len(f.articles)
		}
		page = append([]Article{}, f.articles[offset:end]...)
	}
	return ArticleList{Articles: page, Total: len(f.articles)}, nil
}

func (f *fakeAPI) GetArticle(ctx context.Context, slug string) (Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.getCalls[slug]++
	if i := f.find(slug); i >= 0 {
		return f.articles[i], nil
	}
	return Article{}, &Error{Kind: KindNotFound, Status: 404, Message: "article not found"}
}

func (f *fakeAPI) CreateArticle(ctx context.Context, payload ArticlePayload) (Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return Article{}, f.createErr
	}
	article := Article{
		Slug:        fmt.Sprintf("slug-%d", len(f.articles)+1),
		Title:       payload.Title,
		Description: payload.Description,
		Body:        payload.Body,
		TagList:     payload.TagList,
		Author:      Author{Username: f.user.Username},
	}
	f.articles = append([]Article{article}, f.articles...)
	return article, nil
}

func (f *fakeAPI) UpdateArticle(ctx context.Context, slug string, payload ArticlePayload) (Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return Article{}, f.updateErr
	}
	i := f.find(slug)
	if i < 0 {
		return Article{}, &Error{Kind: KindNotFound, Status: 404, Message: "article not found"}
	}
	f.articles[i].Title = payload.Title
	f.articles[i].Description = payload.Description
	f.articles[i].Body = payload.Body
	return f.articles[i], nil
}

func (f *fakeAPI) DeleteArticle(ctx context.Context, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	i := f.find(slug)
	if i < 0 {
		return &Error{Kind: KindNotFound, Status: 404, Message: "article not found"}
	}
	f.articles = append(f.articles[:i], f.articles[i+1:]...)
	return nil
}

func (f *fakeAPI) FavoriteArticle(ctx context.Context, slug string) (Article, error) {
	f.mu.Lock()
	f.favCalls++
	gate := f.favGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.favErr != nil {
		return Article{}, f.favErr
	}
	i := f.find(slug)
	if i < 0 {
		return Article{}, &Error{Kind: KindNotFound, Status: 404, Message: "article not found"}
	}
	f.articles[i].Favorited = true
	f.articles[i].FavoritesCount += 1 + f.drift
	return f.articles[i], nil
}

func (f *fakeAPI) UnfavoriteArticle(ctx context.Context, slug string) (Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.unfavCalls++
	if f.unfavErr != nil {
		return Article{}, f.unfavErr
	}
	i := f.find(slug)
	if i < 0 {
		return Article{}, &Error{Kind: KindNotFound, Status: 404, Message: "article not found"}
	}
	f.articles[i].Favorited = false
	if f.articles[i].FavoritesCount > 0 {
		f.articles[i].FavoritesCount--
	}
	return f.articles[i], nil
}

func (f *fakeAPI) Register(ctx context.Context, reg Registration) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return User{Username: reg.Username, Email: reg.Email, Token: "fake-token"}, nil
}

func (f *fakeAPI) Login(ctx context.Context, creds Credentials) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user, nil
}

func (f *fakeAPI) CurrentUser(ctx context.Context) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user, nil
}

func (f *fakeAPI) UpdateUser(ctx context.Context, update UserUpdate) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if update.Bio != "" {
		f.user.Bio = update.Bio
	}
	if update.Email != "" {
		f.user.Email = update.Email
	}
	return f.user, nil
}

func (f *fakeAPI) gets(slug string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls[slug]
}

func (f *fakeAPI) lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listOffsets)
}

func (f *fakeAPI) lastListOffset() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.listOffsets) == 0 {
		return -1
	}
	return f.listOffsets[len(f.listOffsets)-1]
}

// newTestClient builds a client over a fresh store and an in-memory session.
func newTestClient(t *testing.T, api API, authenticated bool) *Client {
	t.Helper()

	store, err := querycache.New(querycache.DefaultConfig())
	if err != nil {
		t.Fatalf("querycache.New() returned error: %v", err)
	}
	sess, err := session.New(nil)
	if err != nil {
		t.Fatalf("session.New() returned error: %v", err)
	}
	if authenticated {
		if err := sess.Set("fake-token", session.Profile{Username: "jake"}); err != nil {
			t.Fatalf("session.Set() returned error: %v", err)
		}
	}
	return New(api, store, sess)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
