// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
)

// ErrValueNotSet is returned by [Read] when the [Reader] produced no value.
var ErrValueNotSet = errors.New("config value not set")

// Value is an optional configuration value.
type Value[T any] struct {
	v   T
	set bool
}

// ValueOf returns a set [Value].
func ValueOf[T any](v T) Value[T] {
	return Value[T]{v: v, set: true}
}

// Value returns the underlying value and whether it was set.
func (v Value[T]) Value() (T, bool) {
	return v.v, v.set
}

// Reader is a source of a configuration value.
type Reader[T any] interface {
	Read(context.Context) (Value[T], error)
}

// ReaderFunc is a func variant of the [Reader] interface.
type ReaderFunc[T any] func(context.Context) (Value[T], error)

// Read implements the [Reader] interface.
func (f ReaderFunc[T]) Read(ctx context.Context) (Value[T], error) {
	return f(ctx)
}

// ReaderOf returns a [Reader] which always returns v.
func ReaderOf[T any](v T) Reader[T] {
	return ReaderFunc[T](func(ctx context.Context) (Value[T], error) {
		return ValueOf(v), nil
	})
}

// Read reads a value from r and reports [ErrValueNotSet] if r produced nothing.
func Read[T any](ctx context.Context, r Reader[T]) (T, error) {
	var zero T
	val, err := r.Read(ctx)
	if err != nil {
		return zero, err
	}
	v, ok := val.Value()
	if !ok {
		return zero, ErrValueNotSet
	}
	return v, nil
}

// Default returns a [Reader] which falls back to def when r is not set.
func Default[T any](def T, r Reader[T]) Reader[T] {
	return ReaderFunc[T](func(ctx context.Context) (Value[T], error) {
		val, err := r.Read(ctx)
		if err != nil {
			return Value[T]{}, err
		}
		if _, ok := val.Value(); ok {
			return val, nil
		}
		return ValueOf(def), nil
	})
}

// Or returns the first set value from the given readers.
func Or[T any](rs ...Reader[T]) Reader[T] {
	return ReaderFunc[T](func(ctx context.Context) (Value[T], error) {
		for _, r := range rs {
			val, err := r.Read(ctx)
			if err != nil {
				return Value[T]{}, err
			}
			if _, ok := val.Value(); ok {
				return val, nil
			}
		}
		return Value[T]{}, nil
	})
}

// Map transforms a set value read from r with f.
func Map[A, B any](r Reader[A], f func(context.Context, A) (B, error)) Reader[B] {
	return ReaderFunc[B](func(ctx context.Context) (Value[B], error) {
		val, err := r.Read(ctx)
		if err != nil {
			return Value[B]{}, err
		}
		a, ok := val.Value()
		if !ok {
			return Value[B]{}, nil
		}
		b, err := f(ctx, a)
		if err != nil {
			return Value[B]{}, err
		}
		return ValueOf(b), nil
	})
}

// Env reads the environment variable named key. An unset variable
// produces an unset [Value]. A variable set to the empty string is set.
func Env(key string) Reader[string] {
	return ReaderFunc[string](func(ctx context.Context) (Value[string], error) {
		v, ok := os.LookupEnv(key)
		if !ok {
			return Value[string]{}, nil
		}
		return ValueOf(v), nil
	})
}

// BoolFromString parses the value read from r with [strconv.ParseBool].
func BoolFromString(r Reader[string]) Reader[bool] {
	return Map(r, func(_ context.Context, s string) (bool, error) {
		return strconv.ParseBool(s)
	})
}

// NonEmpty reports whether the value read from r is a non-empty string.
func NonEmpty(r Reader[string]) Reader[bool] {
	return Map(r, func(_ context.Context, s string) (bool, error) {
		return s != "", nil
	})
}

// StringsFromString splits the value read from r on commas. Surrounding
// whitespace is trimmed and empty elements are dropped.
func StringsFromString(r Reader[string]) Reader[[]string] {
	return Map(r, func(_ context.Context, s string) ([]string, error) {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
		return out, nil
	})
}
