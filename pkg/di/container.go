package di

import (
	"github.com/rs/zerolog"

	"github.com/goliatone/go-article-sync/articlesync"
	"github.com/goliatone/go-article-sync/cache"
	"github.com/goliatone/go-article-sync/internal/transport"
	"github.com/goliatone/go-article-sync/querycache"
	"github.com/goliatone/go-article-sync/session"
)

// Config aggregates the configuration of every component the container
// wires. Zero values fall back to each component's defaults.
type Config struct {
	// Transport configures the article service HTTP client.
	Transport transport.Config

	// Cache configures the query cache store.
	Cache querycache.Config

	// SessionStore persists credentials between runs. Nil selects the file
	// store in the user's state directory.
	SessionStore session.Store

	// Logger is shared by every component; the zero value is a no-op logger.
	Logger zerolog.Logger
}

// DefaultConfig returns a Config with each component's defaults.
func DefaultConfig() Config {
	return Config{
		Transport: transport.DefaultConfig(),
		Cache:     querycache.DefaultConfig(),
	}
}

// Container provides dependency injection for the synchronization stack.
// It manages singleton instances of the session, the transport, the query
// cache store, and the client built on top of them.
type Container struct {
	config        Config
	session       *session.Session
	store         *querycache.Store
	api           articlesync.API
	client        *articlesync.Client
	keySerializer cache.KeySerializer
}

// NewContainer creates a DI container with the provided configuration.
// Components are wired bottom-up: session storage, then the HTTP transport
// and the query cache, then the client over all three.
func NewContainer(config Config) (*Container, error) {
	sessionStore := config.SessionStore
	if sessionStore == nil {
		fileStore, err := session.NewFileStore()
		if err != nil {
			return nil, err
		}
		sessionStore = fileStore
	}

	sess, err := session.New(sessionStore, session.WithLogger(config.Logger))
	if err != nil {
		return nil, err
	}

	api, err := transport.New(config.Transport, sess, transport.WithLogger(config.Logger))
	if err != nil {
		return nil, err
	}

	store, err := querycache.New(config.Cache, querycache.WithLogger(config.Logger))
	if err != nil {
		return nil, err
	}

	client := articlesync.New(api, store, sess, articlesync.WithLogger(config.Logger))

	return &Container{
		config:        config,
		session:       sess,
		store:         store,
		api:           api,
		client:        client,
		keySerializer: cache.NewDefaultKeySerializer(),
	}, nil
}

// NewContainerWithDefaults creates a DI container using default
// configuration. This is a convenience constructor for typical use cases
// where custom configuration is not required.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(DefaultConfig())
}

// Client returns the singleton synchronization client.
func (c *Container) Client() *articlesync.Client {
	return c.client
}

// Store returns the singleton query cache store, for advanced use cases such
// as subscribing to raw cache keys.
func (c *Container) Store() *querycache.Store {
	return c.store
}

// Session returns the singleton session gate.
func (c *Container) Session() *session.Session {
	return c.session
}

// API returns the underlying resource fetcher.
func (c *Container) API() articlesync.API {
	return c.api
}

// KeySerializer returns the singleton key serializer instance.
// This allows access to the key serializer for custom cache keys.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns a copy of the configuration used by this container.
// This is useful for debugging and monitoring purposes.
func (c *Container) Config() Config {
	return c.config
}

// Shutdown waits for background cache refetches to settle. Call it before
// process exit so in-flight work is not abandoned mid-commit.
func (c *Container) Shutdown() {
	c.store.Wait()
}
