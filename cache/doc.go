// Package cache defines the key model and serialization used by the query cache.
//
// # Overview
//
// This package exports the small vocabulary shared by the caching layers:
//
//   - Key: a (resource kind, parameter signature) pair identifying one cached query
//   - Status / Snapshot: the atomic status+value+version view of an entry
//   - Loader / Subscriber: how entries are populated and observed
//   - KeySerializer: builds stable parameter signatures from query arguments
//
// # Key Serialization Strategy
//
// The default key serializer uses reflection to normalize query parameters:
//
//   - Basic types: direct string representation
//   - Slices/arrays: recursive serialization of elements
//   - Maps: sorted key-value pairs for deterministic output
//   - Structs: exported fields with name:value pairs
//   - Anything else: JSON fallback with a type-name last resort
//
// Two calls that describe the same logical query always produce the same Key,
// which is what makes in-flight de-duplication and tag invalidation sound.
//
// # Custom Key Serializers
//
// You can implement your own KeySerializer when you need a different key
// format, for example stable namespacing for an external cache backend:
//
//	type prefixSerializer struct{ prefix string }
//
//	func (s *prefixSerializer) SerializeKey(kind string, args ...any) cache.Key {
//		// Custom logic here
//	}
//
// # See Also
//
// For the cache store, tag index, and subscription machinery, see the
// querycache package. For the typed article client built on top, see the
// articlesync package.
package cache
