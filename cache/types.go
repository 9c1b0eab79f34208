package cache

import "context"

// Key identifies a cache entry by resource kind plus the parameter signature
// that distinguishes queries within that kind. Two queries for the same kind
// with the same normalized parameters always produce the same Key.
type Key struct {
	Kind      string
	Signature string
}

// String renders the key in its canonical "kind::signature" form.
func (k Key) String() string {
	if k.Signature == "" {
		return k.Kind
	}
	return k.Kind + KeySeparator + k.Signature
}

// Status describes the lifecycle of a cache entry.
type Status int

const (
	// StatusIdle means no fetch has been issued for the key yet.
	StatusIdle Status = iota
	// StatusLoading means a fetch is in flight. A previous value, if any,
	// remains readable while loading.
	StatusLoading
	// StatusReady means the entry holds a confirmed value.
	StatusReady
	// StatusError means the last fetch failed. The previous value, if any,
	// is retained as stale-but-displayable data.
	StatusError
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is an atomic view of an entry's status+value+version triple.
// Callers never observe a partially applied update.
type Snapshot struct {
	Value   any
	Status  Status
	Version uint64
	Err     error
}

// Loader fetches the value for a key from the source of truth.
// Loaders are retained per key so invalidation can trigger a refetch.
type Loader func(ctx context.Context) (any, error)

// Subscriber receives a snapshot every time its entry settles or starts
// loading. Delivery is synchronous and in registration order.
type Subscriber func(Snapshot)

// KeySerializer builds a cache key from a resource kind + arbitrary args.
// It is responsible for producing stable signatures across calls.
type KeySerializer interface {
	SerializeKey(kind string, args ...any) Key
}

// ValueOf is a type-safe accessor for a snapshot's value. It returns the
// zero value and false when no value is present or the type does not match.
func ValueOf[T any](s Snapshot) (T, bool) {
	if s.Value == nil {
		var zero T
		return zero, false
	}
	v, ok := s.Value.(T)
	return v, ok
}
