// Package envutil reads typed configuration values from environment variables.
//
// Every reader function returns a Reader, which carries the key, whether the
// variable was present, the parsed value and any parse error. Options such as
// Default and Validate are applied in order.
package envutil

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// get returns a Reader for the given environment variable key.
func get(key string) Reader[string] {
	val, ok := os.LookupEnv(key)

	return Reader[string]{
		key:     key,
		present: ok,
		value:   val,
	}
}

// NewReader returns a Reader for raw data that did not come from the
// environment, so callers can reuse the Reader combinators.
func NewReader[T any](key string, present bool, err error, value T) Reader[T] {
	return Reader[T]{
		key:     key,
		present: present,
		value:   value,
		err:     err,
	}
}

func apply[T any](rdr Reader[T], opts []Option[T]) Reader[T] {
	for _, opt := range opts {
		rdr = opt(rdr)
	}

	return rdr
}

// String returns a Reader for the given environment variable key.
func String(key string, opts ...Option[string]) Reader[string] {
	return apply(get(key), opts)
}

// Bool reads a boolean in any form strconv.ParseBool accepts.
func Bool(key string, opts ...Option[bool]) Reader[bool] {
	return apply(Map(get(key), parseBool), opts)
}

// Int reads a base-10 integer.
func Int[I Intish](key string, opts ...Option[I]) Reader[I] {
	return apply(Map(Map(get(key), parseInt64), castInt[I]), opts)
}

// Duration reads a value in time.ParseDuration syntax, e.g. "250ms".
func Duration(key string, opts ...Option[time.Duration]) Reader[time.Duration] {
	return apply(Map(get(key), time.ParseDuration), opts)
}

// SlogLevel reads one of debug, info, warn or error (case-insensitive).
func SlogLevel(key string, opts ...Option[slog.Level]) Reader[slog.Level] {
	rdr := Map(get(key), func(s string) (string, error) {
		return strings.ToLower(strings.TrimSpace(s)), nil
	})

	return apply(Map(rdr, parseSlogLevel), opts)
}

// Prefixed joins a prefix and a key with an underscore, upper-casing both.
// An empty prefix returns the key unchanged.
func Prefixed(prefix, key string) string {
	if prefix == "" {
		return key
	}

	return strings.ToUpper(strings.TrimSuffix(prefix, "_") + "_" + key)
}
