// Package articlesync is the typed client for the remote article service:
// the synchronization layer between a UI and the server.
//
// # Overview
//
// Reads (article list pages, single articles, the current user) go through
// the query cache: each query is keyed by its normalized parameters, served
// from cache while fresh, and registered under semantic tags. Writes go
// through the mutation coordinator, which declares the static tag set each
// mutation invalidates and triggers that invalidation only after the server
// confirmed the write. Like/unlike is the one optimistic path: the local
// counter moves first, the server's authoritative count overrides it on
// success, and a failure rolls the pair back exactly.
//
// # Cached vs Pass-through Operations
//
// Cached (read-through): Articles, Article, CurrentUser.
// Coordinated writes (invalidate on success): SubmitArticle, DeleteArticle,
// UpdateUser, Login, Register.
// Optimistic: ToggleLike.
//
// # Tag Strategy
//
// List pages carry the collection tag; single articles carry their item tag
// plus the article kind's collection tag. Updating slug S invalidates
// {article:S, article-list}; creating or deleting invalidates {article-list}
// only, since the item tag either does not exist yet or no longer matters.
// Session transitions (login, logout) purge the profile entry and invalidate
// all article data so favorited flags reload for the new identity.
//
// # Integration with Dependency Injection
//
// This package is designed to be wired through the container in pkg/di:
//
//	container, err := di.NewContainer(di.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	client := container.Client()
//
// # Error Handling
//
// Failures from the resource fetcher propagate unchanged as *Error values.
// Mutations attempted anonymously fail fast with ErrUnauthenticated, before
// any network call. A failed mutation never invalidates anything.
package articlesync
