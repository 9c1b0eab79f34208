package articlesync

import "context"

// API is the resource fetcher the client drives: a thin wrapper over the
// remote article service. Implementations issue one network request per call
// and report failures as typed *Error values; they carry no caching logic.
type API interface {
	ListArticles(ctx context.Context, offset, limit int) (ArticleList, error)
	GetArticle(ctx context.Context, slug string) (Article, error)
	CreateArticle(ctx context.Context, payload ArticlePayload) (Article, error)
	UpdateArticle(ctx context.Context, slug string, payload ArticlePayload) (Article, error)
	DeleteArticle(ctx context.Context, slug string) error
	FavoriteArticle(ctx context.Context, slug string) (Article, error)
	UnfavoriteArticle(ctx context.Context, slug string) (Article, error)

	Register(ctx context.Context, reg Registration) (User, error)
	Login(ctx context.Context, creds Credentials) (User, error)
	CurrentUser(ctx context.Context) (User, error)
	UpdateUser(ctx context.Context, update UserUpdate) (User, error)
}
