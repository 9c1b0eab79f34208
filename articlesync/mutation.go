package articlesync

import (
	"context"

	"github.com/goliatone/go-article-sync/session"
)

// mutationSpec declares a write operation together with the static set of
// tags it invalidates on confirmed success. Invalidation is all-or-nothing
// and never speculative: a failed run leaves every cache entry untouched.
type mutationSpec[T any] struct {
	name        string
	requireAuth bool
	invalidates []string
	run         func(ctx context.Context) (T, error)
}

// execute runs a mutation through the session gate, then triggers tag
// invalidation only after the server acknowledged the write.
func execute[T any](ctx context.Context, c *Client, spec mutationSpec[T]) (T, error) {
	var zero T
	if spec.requireAuth {
		if err := c.session.Require(); err != nil {
			return zero, err
		}
	}

	result, err := spec.run(ctx)
	if err != nil {
		c.logger.Debug().Str("mutation", spec.name).Err(err).Msg("mutation failed, cache untouched")
		return zero, err
	}

	if len(spec.invalidates) > 0 {
		c.store.Invalidate(spec.invalidates...)
	}
	return result, nil
}

// SubmitArticle creates an article when slug is empty, updates it otherwise.
// Creating invalidates only the collection tag (the item tag does not exist
// yet); updating invalidates the item tag and the collection tag.
func (c *Client) SubmitArticle(ctx context.Context, slug string, payload ArticlePayload) (Article, error) {
	if err := payload.Validate(); err != nil {
		return Article{}, err
	}

	if slug == "" {
		return execute(ctx, c, mutationSpec[Article]{
			name:        "create-article",
			requireAuth: true,
			invalidates: []string{TagArticles},
			run: func(ctx context.Context) (Article, error) {
				return c.api.CreateArticle(ctx, payload)
			},
		})
	}

	return execute(ctx, c, mutationSpec[Article]{
		name:        "update-article",
		requireAuth: true,
		invalidates: []string{ArticleTag(slug), TagArticles},
		run: func(ctx context.Context) (Article, error) {
			return c.api.UpdateArticle(ctx, slug, payload)
		},
	})
}

// DeleteArticle removes an article. Only the collection tag is invalidated;
// the item's own entry no longer matters and stale reads of it are repaired
// by the collection refetch.
func (c *Client) DeleteArticle(ctx context.Context, slug string) error {
	_, err := execute(ctx, c, mutationSpec[struct{}]{
		name:        "delete-article",
		requireAuth: true,
		invalidates: []string{TagArticles},
		run: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.api.DeleteArticle(ctx, slug)
		},
	})
	return err
}

// Login authenticates and installs the session. Cached article data is
// invalidated so favorited flags reload for the new identity, and any stale
// profile entry is purged.
func (c *Client) Login(ctx context.Context, creds Credentials) (User, error) {
	if err := creds.Validate(); err != nil {
		return User{}, err
	}

	user, err := execute(ctx, c, mutationSpec[User]{
		name: "login",
		run: func(ctx context.Context) (User, error) {
			return c.api.Login(ctx, creds)
		},
	})
	if err != nil {
		return User{}, err
	}
	return user, c.installSession(user)
}

// Register creates an account and installs the session like Login.
func (c *Client) Register(ctx context.Context, reg Registration) (User, error) {
	if err := reg.Validate(); err != nil {
		return User{}, err
	}

	user, err := execute(ctx, c, mutationSpec[User]{
		name: "register",
		run: func(ctx context.Context) (User, error) {
			return c.api.Register(ctx, reg)
		},
	})
	if err != nil {
		return User{}, err
	}
	return user, c.installSession(user)
}

// UpdateUser edits the signed-in profile and invalidates the cached profile
// entry.
func (c *Client) UpdateUser(ctx context.Context, update UserUpdate) (User, error) {
	if err := update.Validate(); err != nil {
		return User{}, err
	}

	user, err := execute(ctx, c, mutationSpec[User]{
		name:        "update-user",
		requireAuth: true,
		invalidates: []string{TagCurrentUser},
		run: func(ctx context.Context) (User, error) {
			return c.api.UpdateUser(ctx, update)
		},
	})
	if err != nil {
		return User{}, err
	}

	err = c.session.UpdateProfile(sessionProfile(user))
	return user, err
}

// Logout clears the session and every session-dependent cache entry: the
// profile is purged outright, article data refetches anonymously.
func (c *Client) Logout() error {
	if err := c.session.Clear(); err != nil {
		return err
	}
	c.store.Purge(TagCurrentUser)
	c.store.Invalidate(TagArticle, TagArticles)
	return nil
}

// installSession stores the fresh credentials and resets session-dependent
// cache state, mirroring Logout for the opposite transition.
func (c *Client) installSession(user User) error {
	if err := c.session.Set(user.Token, sessionProfile(user)); err != nil {
		return err
	}
	c.store.Purge(TagCurrentUser)
	c.store.Invalidate(TagArticle, TagArticles)
	return nil
}

func sessionProfile(user User) session.Profile {
	return session.Profile{
		Username: user.Username,
		Email:    user.Email,
		Bio:      user.Bio,
		Image:    user.Image,
	}
}
