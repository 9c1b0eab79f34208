// Package transport implements the article service HTTP client. It speaks
// the service's enveloped JSON wire format, attaches session credentials,
// tags every request with an id for tracing, and maps HTTP failures onto the
// typed errors the synchronization layer understands.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-article-sync/articlesync"
	"github.com/goliatone/go-article-sync/session"
)

// Client talks to the article service over HTTP. It implements
// articlesync.API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	session *session.Session
	retry   retryPolicy
	logger  zerolog.Logger
}

// Option mutates client configuration.
type Option func(*Client)

// WithLogger injects a logger; the default is a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "transport").Logger()
	}
}

// WithHTTPClient overrides the underlying HTTP client, e.g. to add a custom
// transport or to point tests at a local server.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New builds a client for the service at cfg.BaseURL. The session is
// consulted per request, so logging in after construction works without
// rebuilding the client.
func New(cfg Config, sess *session.Session, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, &ConfigError{Field: "BaseURL", Message: err.Error()}
	}

	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
		session: sess,
		retry:   retryPolicy{max: cfg.RetryMax, interval: cfg.RetryInterval},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Wire envelopes. Every resource travels wrapped in a single-key object.
type articleEnvelope struct {
	Article articlesync.Article `json:"article"`
}

type userEnvelope struct {
	User articlesync.User `json:"user"`
}

type articlePayloadEnvelope struct {
	Article articlesync.ArticlePayload `json:"article"`
}

type credentialsEnvelope struct {
	User articlesync.Credentials `json:"user"`
}

type registrationEnvelope struct {
	User articlesync.Registration `json:"user"`
}

type userUpdateEnvelope struct {
	User articlesync.UserUpdate `json:"user"`
}

// errorEnvelope is the 422 body: {"errors": {"title": ["can't be blank"]}}.
type errorEnvelope struct {
	Errors map[string][]string `json:"errors"`
}

// ListArticles fetches one page of the collection.
func (c *Client) ListArticles(ctx context.Context, offset, limit int) (articlesync.ArticleList, error) {
	query := url.Values{
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
	}
	var list articlesync.ArticleList
	err := c.get(ctx, "/articles?"+query.Encode(), &list)
	return list, err
}

// GetArticle fetches a single article by slug.
func (c *Client) GetArticle(ctx context.Context, slug string) (articlesync.Article, error) {
	var env articleEnvelope
	err := c.get(ctx, "/articles/"+url.PathEscape(slug), &env)
	return env.Article, err
}

// CreateArticle publishes a new article.
func (c *Client) CreateArticle(ctx context.Context, payload articlesync.ArticlePayload) (articlesync.Article, error) {
	var env articleEnvelope
	err := c.send(ctx, http.MethodPost, "/articles", articlePayloadEnvelope{Article: payload}, &env)
	return env.Article, err
}

// UpdateArticle edits an existing article.
func (c *Client) UpdateArticle(ctx context.Context, slug string, payload articlesync.ArticlePayload) (articlesync.Article, error) {
	var env articleEnvelope
	err := c.send(ctx, http.MethodPut, "/articles/"+url.PathEscape(slug), articlePayloadEnvelope{Article: payload}, &env)
	return env.Article, err
}

// DeleteArticle removes an article.
func (c *Client) DeleteArticle(ctx context.Context, slug string) error {
	return c.send(ctx, http.MethodDelete, "/articles/"+url.PathEscape(slug), nil, nil)
}

// FavoriteArticle marks an article as favorited and returns the settled
// server state.
func (c *Client) FavoriteArticle(ctx context.Context, slug string) (articlesync.Article, error) {
	var env articleEnvelope
	err := c.send(ctx, http.MethodPost, "/articles/"+url.PathEscape(slug)+"/favorite", nil, &env)
	return env.Article, err
}

// UnfavoriteArticle removes the favorite and returns the settled server
// state.
func (c *Client) UnfavoriteArticle(ctx context.Context, slug string) (articlesync.Article, error) {
	var env articleEnvelope
	err := c.send(ctx, http.MethodDelete, "/articles/"+url.PathEscape(slug)+"/favorite", nil, &env)
	return env.Article, err
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg articlesync.Registration) (articlesync.User, error) {
	var env userEnvelope
	err := c.send(ctx, http.MethodPost, "/users", registrationEnvelope{User: reg}, &env)
	return env.User, err
}

// Login authenticates an existing account.
func (c *Client) Login(ctx context.Context, creds articlesync.Credentials) (articlesync.User, error) {
	var env userEnvelope
	err := c.send(ctx, http.MethodPost, "/users/login", credentialsEnvelope{User: creds}, &env)
	return env.User, err
}

// CurrentUser fetches the signed-in account.
func (c *Client) CurrentUser(ctx context.Context) (articlesync.User, error) {
	var env userEnvelope
	err := c.get(ctx, "/user", &env)
	return env.User, err
}

// UpdateUser edits the signed-in account.
func (c *Client) UpdateUser(ctx context.Context, update articlesync.UserUpdate) (articlesync.User, error) {
	var env userEnvelope
	err := c.send(ctx, http.MethodPut, "/user", userUpdateEnvelope{User: update}, &env)
	return env.User, err
}

// get issues an idempotent request, retrying transport failures.
func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.retry.run(ctx, func() error {
		return c.do(ctx, http.MethodGet, path, nil, out)
	})
}

// send issues a non-idempotent request exactly once.
func (c *Client) send(ctx context.Context, method, path string, in, out any) error {
	return c.do(ctx, method, path, in, out)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return &articlesync.Error{Kind: articlesync.KindNetwork, Message: "encode request body", Err: err}
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return &articlesync.Error{Kind: articlesync.KindNetwork, Message: "build request", Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.session.Attach(req)

	c.logger.Debug().Str("method", method).Str("path", path).Str("request_id", requestID).Msg("request")

	resp, err := c.http.Do(req)
	if err != nil {
		return &articlesync.Error{Kind: articlesync.KindNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ferr := c.failure(resp, requestID)
		c.logger.Debug().Str("request_id", requestID).Int("status", resp.StatusCode).Err(ferr).Msg("response")
		return ferr
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &articlesync.Error{Kind: articlesync.KindServer, Status: resp.StatusCode, Message: "decode response body", Err: err}
	}
	return nil
}

// failure maps a non-2xx response onto a typed error.
func (c *Client) failure(resp *http.Response, requestID string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	switch resp.StatusCode {
	case http.StatusNotFound:
		return &articlesync.Error{
			Kind:    articlesync.KindNotFound,
			Status:  resp.StatusCode,
			Message: "resource not found",
		}
	case http.StatusUnprocessableEntity:
		var env errorEnvelope
		if err := json.Unmarshal(body, &env); err == nil && len(env.Errors) > 0 {
			return &articlesync.Error{
				Kind:    articlesync.KindValidation,
				Status:  resp.StatusCode,
				Message: "request rejected",
				Fields:  env.Errors,
			}
		}
		return &articlesync.Error{
			Kind:    articlesync.KindValidation,
			Status:  resp.StatusCode,
			Message: "request rejected",
		}
	default:
		return &articlesync.Error{
			Kind:    articlesync.KindServer,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("unexpected status %d (request %s)", resp.StatusCode, requestID),
			Err:     serverMessage(body),
		}
	}
}

// serverMessage surfaces a short body excerpt as the underlying cause, when
// the server sent one.
func serverMessage(body []byte) error {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return nil
	}
	if len(text) > 200 {
		text = text[:200]
	}
	return errors.New(text)
}
