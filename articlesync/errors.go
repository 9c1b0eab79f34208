package articlesync

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-article-sync/session"
)

// ErrUnauthenticated is returned when a mutation is attempted without a
// signed-in session. Aliased from the session package for convenient
// errors.Is checks at the call site.
var ErrUnauthenticated = session.ErrUnauthenticated

// Kind classifies failures crossing the client boundary.
type Kind int

const (
	// KindNetwork covers transport failures and timeouts.
	KindNetwork Kind = iota + 1
	// KindServer covers non-2xx responses that are not more specific.
	KindServer
	// KindNotFound covers 404 responses for a missing slug.
	KindNotFound
	// KindValidation covers 422 responses carrying field messages.
	KindValidation
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is the typed failure propagated from the resource fetcher. It is
// always returned as a rejected result, never thrown as an uncatchable fault.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	// Fields holds per-field messages from 422 validation bodies.
	Fields map[string][]string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "; %s %s", name, strings.Join(e.Fields[name], ", "))
		}
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the kind from an error chain, or zero when the error is
// not a client Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
