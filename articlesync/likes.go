package articlesync

import (
	"context"
	"sync"
)

// likeController serializes like/unlike transitions per article. Each slug
// is either settled or has exactly one transition pending; a toggle arriving
// while one is pending is queued and coalesced, so a pair of queued toggles
// cancels out and a count can never double-apply.
type likeController struct {
	mu     sync.Mutex
	states map[string]*likeState
}

type likeState struct {
	pending bool
	queued  bool
}

func newLikeController() *likeController {
	return &likeController{states: make(map[string]*likeState)}
}

// ToggleLike flips the liked flag for a slug optimistically: the local
// counter moves before the server confirms, the server's authoritative count
// overrides it on success, and a failure restores the exact pre-toggle pair.
// Anonymous sessions are refused synchronously, with no network call and no
// state transition.
func (c *Client) ToggleLike(ctx context.Context, slug string) error {
	if err := c.session.Require(); err != nil {
		return err
	}
	return c.likes.toggle(ctx, c, slug)
}

func (l *likeController) toggle(ctx context.Context, c *Client, slug string) error {
	l.mu.Lock()
	st := l.states[slug]
	if st == nil {
		st = &likeState{}
		l.states[slug] = st
	}
	if st.pending {
		// Queued-and-coalesced: the toggle is recorded and issued after the
		// pending one settles; a second queued toggle cancels the first.
		st.queued = !st.queued
		l.mu.Unlock()
		return nil
	}
	st.pending = true
	l.mu.Unlock()

	return l.drive(ctx, c, slug, st)
}

// drive runs the caller's transition and then whatever was queued behind it,
// each step using the previous settled state as its base. Errors from
// coalesced toggles cannot reach their original caller anymore, so they are
// logged after the rollback.
func (l *likeController) drive(ctx context.Context, c *Client, slug string, st *likeState) error {
	err := l.transition(ctx, c, slug)
	for {
		l.mu.Lock()
		if !st.queued {
			st.pending = false
			l.mu.Unlock()
			return err
		}
		st.queued = false
		l.mu.Unlock()

		if qerr := l.transition(ctx, c, slug); qerr != nil {
			c.logger.Warn().Str("slug", slug).Err(qerr).Msg("coalesced like toggle failed")
		}
	}
}

// transition performs one Settled → Pending → Settled step.
func (l *likeController) transition(ctx context.Context, c *Client, slug string) error {
	base, ok := c.cachedArticle(slug)
	if !ok {
		var err error
		base, err = c.Article(ctx, slug)
		if err != nil {
			return err
		}
	}

	liked := !base.Favorited
	count := base.FavoritesCount
	if liked {
		count++
	} else if count > 0 {
		count--
	}

	// Shadow the server truth locally while the mutation is in flight.
	c.applyLike(slug, liked, count)

	var settled Article
	var err error
	if liked {
		settled, err = c.api.FavoriteArticle(ctx, slug)
	} else {
		settled, err = c.api.UnfavoriteArticle(ctx, slug)
	}
	if err != nil {
		// Rollback law: the post-failure pair equals the pre-toggle pair.
		c.applyLike(slug, base.Favorited, base.FavoritesCount)
		return err
	}

	// The server's count is the last word; it absorbs drift from concurrent
	// likes by other sessions.
	c.applyLike(slug, settled.Favorited, settled.FavoritesCount)
	return nil
}
