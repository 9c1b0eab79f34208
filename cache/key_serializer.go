package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// defaultKeySerializer normalizes query parameters into a deterministic
// signature. Pointers are dereferenced, maps are sorted, and structs are
// rendered field by field so the same logical query always hits the same
// cache entry regardless of how the caller assembled its arguments.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey builds a cache key from a resource kind and its parameters.
func (s *defaultKeySerializer) SerializeKey(kind string, args ...any) Key {
	if len(args) == 0 {
		return Key{Kind: kind}
	}

	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, s.serializeValue(arg))
	}

	return Key{Kind: kind, Signature: strings.Join(parts, KeySeparator)}
}

// serializeValue handles individual parameter serialization based on type.
func (s *defaultKeySerializer) serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	rt := reflect.TypeOf(v)

	switch rt.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface())

	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return s.serializeList(rv)

	case reflect.Array:
		return s.serializeList(rv)

	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return s.serializeMap(rv)

	case reflect.Struct:
		return s.serializeStruct(rv, rt)
	}

	if s.isBasicType(rt.Kind()) {
		return fmt.Sprintf("%v", v)
	}

	return s.jsonFallback(v)
}

// serializeList renders slice and array elements recursively.
func (s *defaultKeySerializer) serializeList(rv reflect.Value) string {
	length := rv.Len()
	parts := make([]string, length)

	for i := 0; i < length; i++ {
		parts[i] = s.serializeValue(rv.Index(i).Interface())
	}

	return fmt.Sprintf("list[%d]:{%s}", length, strings.Join(parts, ","))
}

// serializeMap renders map entries with sorted keys for determinism.
func (s *defaultKeySerializer) serializeMap(rv reflect.Value) string {
	keys := rv.MapKeys()

	type pair struct {
		key   string
		value string
	}
	pairs := make([]pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, pair{
			key:   s.serializeValue(k.Interface()),
			value: s.serializeValue(rv.MapIndex(k).Interface()),
		})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	rendered := make([]string, len(pairs))
	for i, p := range pairs {
		rendered[i] = fmt.Sprintf("%s=%s", p.key, p.value)
	}

	return fmt.Sprintf("map[%d]:{%s}", len(rendered), strings.Join(rendered, ","))
}

// serializeStruct renders exported fields as name:value pairs in declaration order.
func (s *defaultKeySerializer) serializeStruct(rv reflect.Value, rt reflect.Type) string {
	numFields := rv.NumField()
	parts := make([]string, 0, numFields)

	for i := 0; i < numFields; i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		fieldValue := rv.Field(i)
		if !fieldValue.CanInterface() {
			continue
		}

		parts = append(parts, fmt.Sprintf("%s:%s", field.Name, s.serializeValue(fieldValue.Interface())))
	}

	return fmt.Sprintf("struct:{%s}", strings.Join(parts, ","))
}

// isBasicType checks if a kind represents a basic Go type.
func (s *defaultKeySerializer) isBasicType(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

// jsonFallback provides JSON serialization as a last resort.
func (s *defaultKeySerializer) jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// If JSON marshaling fails, fall back to type information rather
		// than panicking; an imprecise key only costs a cache miss.
		return fmt.Sprintf("fallback:%s", reflect.TypeOf(v).String())
	}
	return fmt.Sprintf("json:%s", string(data))
}
