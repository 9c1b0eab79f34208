package articlesync

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-article-sync/cache"
	"github.com/goliatone/go-article-sync/querycache"
	"github.com/goliatone/go-article-sync/session"
)

// Resource kinds distinguishing cache keys.
const (
	kindArticle     = "article"
	kindArticleList = "article-list"
	kindCurrentUser = "current-user"
)

// Semantic tags used for invalidation fan-out.
const (
	// TagArticles groups every cached list page; creates, updates and
	// deletes invalidate it.
	TagArticles = "article-list"
	// TagArticle groups every cached single article, the collection-level
	// tag of the article kind. Used when session changes force the
	// favorited flags to reload.
	TagArticle = "article"
	// TagCurrentUser marks the cached profile entry.
	TagCurrentUser = "current-user"
)

// ArticleTag is the item-level tag for one slug.
func ArticleTag(slug string) string {
	return "article:" + slug
}

// DefaultPageSize mirrors the article service's default window.
const DefaultPageSize = 5

// listParams is the normalized parameter signature of a list query.
type listParams struct {
	Offset int
	Limit  int
}

// Client is the synchronization layer between the UI and the article
// service: reads go through the query cache, writes go through the mutation
// coordinator, and like toggles through the optimistic controller.
type Client struct {
	api     API
	store   *querycache.Store
	keys    cache.KeySerializer
	session *session.Session
	likes   *likeController
	logger  zerolog.Logger
}

// Option mutates client configuration.
type Option func(*Client)

// WithLogger injects a logger; the default is a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "articlesync").Logger()
	}
}

// WithKeySerializer overrides the default parameter-signature serializer.
func WithKeySerializer(keys cache.KeySerializer) Option {
	return func(c *Client) {
		c.keys = keys
	}
}

// New wires a client over a resource fetcher, a query cache store, and a
// session gate.
func New(api API, store *querycache.Store, sess *session.Session, opts ...Option) *Client {
	c := &Client{
		api:     api,
		store:   store,
		keys:    cache.NewDefaultKeySerializer(),
		session: sess,
		likes:   newLikeController(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) articleKey(slug string) cache.Key {
	return c.keys.SerializeKey(kindArticle, slug)
}

func (c *Client) listKey(offset, limit int) cache.Key {
	return c.keys.SerializeKey(kindArticleList, listParams{Offset: offset, Limit: limit})
}

func (c *Client) userKey() cache.Key {
	return c.keys.SerializeKey(kindCurrentUser)
}

// Article resolves a single article by slug, served from cache when fresh.
func (c *Client) Article(ctx context.Context, slug string) (Article, error) {
	snap, err := c.store.Fetch(ctx, c.articleKey(slug), func(ctx context.Context) (any, error) {
		return c.api.GetArticle(ctx, slug)
	}, ArticleTag(slug), TagArticle)
	if err != nil {
		return Article{}, err
	}
	article, _ := cache.ValueOf[Article](snap)
	return article, nil
}

// CurrentUser resolves the signed-in account, served from cache when fresh.
// Anonymous sessions are refused without a network call.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	if err := c.session.Require(); err != nil {
		return User{}, err
	}
	snap, err := c.store.Fetch(ctx, c.userKey(), func(ctx context.Context) (any, error) {
		return c.api.CurrentUser(ctx)
	}, TagCurrentUser)
	if err != nil {
		return User{}, err
	}
	user, _ := cache.ValueOf[User](snap)
	return user, nil
}

// ReadArticle returns the current cached snapshot for a slug without
// touching the network.
func (c *Client) ReadArticle(slug string) cache.Snapshot {
	return c.store.Read(c.articleKey(slug))
}

// ReadArticles returns the current cached snapshot for a list page without
// touching the network.
func (c *Client) ReadArticles(page, size int) cache.Snapshot {
	page, size = normalizeWindow(page, size)
	return c.store.Read(c.listKey((page-1)*size, size))
}

// ReadCurrentUser returns the cached profile snapshot.
func (c *Client) ReadCurrentUser() cache.Snapshot {
	return c.store.Read(c.userKey())
}

// SubscribeArticle observes the cache entry for one slug.
func (c *Client) SubscribeArticle(slug string, fn cache.Subscriber) func() {
	return c.store.Subscribe(c.articleKey(slug), fn)
}

// SubscribeArticles observes the cache entry for one list page.
func (c *Client) SubscribeArticles(page, size int, fn cache.Subscriber) func() {
	page, size = normalizeWindow(page, size)
	return c.store.Subscribe(c.listKey((page-1)*size, size), fn)
}

// SubscribeCurrentUser observes the cached profile entry.
func (c *Client) SubscribeCurrentUser(fn cache.Subscriber) func() {
	return c.store.Subscribe(c.userKey(), fn)
}

// Session exposes the session gate, e.g. for UI authenticated/anonymous
// state.
func (c *Client) Session() *session.Session {
	return c.session
}

// Store exposes the underlying query cache, mainly for teardown and tests.
func (c *Client) Store() *querycache.Store {
	return c.store
}

// cachedArticle finds the latest cached copy of a slug, checking the single
// article entry first and cached list pages second.
func (c *Client) cachedArticle(slug string) (Article, bool) {
	if a, ok := cache.ValueOf[Article](c.store.Read(c.articleKey(slug))); ok {
		return a, true
	}
	for _, key := range c.store.Keys(TagArticles) {
		list, ok := cache.ValueOf[ArticleList](c.store.Read(key))
		if !ok {
			continue
		}
		for _, a := range list.Articles {
			if a.Slug == slug {
				return a, true
			}
		}
	}
	return Article{}, false
}

// applyLike writes a liked/count pair through every cached copy of a slug.
func (c *Client) applyLike(slug string, liked bool, count int) {
	c.store.MutateTag(ArticleTag(slug), func(old any) any {
		a, ok := old.(Article)
		if !ok {
			return old
		}
		a.Favorited = liked
		a.FavoritesCount = count
		return a
	})
	c.store.MutateTag(TagArticles, func(old any) any {
		list, ok := old.(ArticleList)
		if !ok {
			return old
		}
		// Copy before editing: snapshots handed out earlier share the
		// backing array.
		articles := make([]Article, len(list.Articles))
		copy(articles, list.Articles)
		for i := range articles {
			if articles[i].Slug == slug {
				articles[i].Favorited = liked
				articles[i].FavoritesCount = count
			}
		}
		list.Articles = articles
		return list
	})
}
