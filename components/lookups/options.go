package lookups

import (
	"context"
	"net/http"
)

// EmptySearchMode decides what an empty query returns.
type EmptySearchMode string

const (
	// EmptySearchNone returns nothing until the user types.
	EmptySearchNone EmptySearchMode = "none"
	// EmptySearchTop returns the first entries of the collection.
	EmptySearchTop EmptySearchMode = "top"
)

// Option is one selectable entry of a collection.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Source returns the entries of a collection. ok is false for an unknown
// collection.
type Source interface {
	Collection(ctx context.Context, name string) (entries []Option, ok bool, err error)
}

// SourceFunc adapts a function into a Source.
type SourceFunc func(ctx context.Context, name string) ([]Option, bool, error)

func (fn SourceFunc) Collection(ctx context.Context, name string) ([]Option, bool, error) {
	return fn(ctx, name)
}

// StaticSource serves fixed collections.
type StaticSource map[string][]Option

func (s StaticSource) Collection(_ context.Context, name string) ([]Option, bool, error) {
	entries, ok := s[name]
	return entries, ok, nil
}

// GuardFunc authorizes a lookup request. A returned HTTPError chooses the
// status; any other error answers 403.
type GuardFunc func(r *http.Request) error

// Options configures the lookup handlers.
type Options struct {
	RoutePath       string
	SearchParam     string
	LimitParam      string
	DefaultLimit    int
	MaxLimit        int
	EmptySearchMode EmptySearchMode
	Guard           GuardFunc

	Source      Source
	Collections []string
}

type OptionFn func(*Options)

// DefaultOptions serves "/api/lookups/<collection>?q=&limit=", 20 entries by
// default and 100 at most.
func DefaultOptions() Options {
	return Options{
		RoutePath:       "/api/lookups",
		SearchParam:     "q",
		LimitParam:      "limit",
		DefaultLimit:    20,
		MaxLimit:        100,
		EmptySearchMode: EmptySearchTop,
	}
}

// NewOptions applies fns over DefaultOptions and restores defaults for any
// value left empty or non-positive.
func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn != nil {
			fn(&opts)
		}
	}
	defaults := DefaultOptions()
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = defaults.DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = defaults.MaxLimit
	}
	if opts.EmptySearchMode == "" {
		opts.EmptySearchMode = defaults.EmptySearchMode
	}
	if opts.RoutePath == "" {
		opts.RoutePath = defaults.RoutePath
	}
	if opts.SearchParam == "" {
		opts.SearchParam = defaults.SearchParam
	}
	if opts.LimitParam == "" {
		opts.LimitParam = defaults.LimitParam
	}
	if opts.Collections != nil {
		opts.Collections = append([]string{}, opts.Collections...)
	}
	return opts
}

// WithRoutePath sets the prefix collections are mounted under.
func WithRoutePath(path string) OptionFn {
	return func(o *Options) { o.RoutePath = path }
}

// WithSearchParam renames the query parameter carrying the search term.
func WithSearchParam(name string) OptionFn {
	return func(o *Options) { o.SearchParam = name }
}

// WithLimitParam renames the query parameter carrying the result limit.
func WithLimitParam(name string) OptionFn {
	return func(o *Options) { o.LimitParam = name }
}

// WithDefaultLimit is used when a request has no limit or a non-positive one.
func WithDefaultLimit(limit int) OptionFn {
	return func(o *Options) { o.DefaultLimit = limit }
}

// WithMaxLimit caps the limit a request may ask for.
func WithMaxLimit(limit int) OptionFn {
	return func(o *Options) { o.MaxLimit = limit }
}

func WithEmptySearchMode(mode EmptySearchMode) OptionFn {
	return func(o *Options) { o.EmptySearchMode = mode }
}

// WithGuard runs guard before every lookup request.
func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) { o.Guard = guard }
}

// WithSource sets where collections are read from.
func WithSource(source Source) OptionFn {
	return func(o *Options) { o.Source = source }
}

// WithCollections lists the collections RegisterRoutes mounts.
func WithCollections(names ...string) OptionFn {
	return func(o *Options) { o.Collections = append([]string{}, names...) }
}

// clampLimit keeps limit within [1, MaxLimit]; a missing or non-positive
// limit means DefaultLimit.
func clampLimit(limit int, opts Options) int {
	if limit <= 0 {
		limit = opts.DefaultLimit
	}
	if opts.MaxLimit > 0 && limit > opts.MaxLimit {
		limit = opts.MaxLimit
	}
	return max(limit, 1)
}
