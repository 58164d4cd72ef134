package lookups

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Mux is the minimal interface required to register a net/http handler.
// It is satisfied by *http.ServeMux and chi.Router.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// MountPath returns the route of collection under basePath.
func MountPath(basePath, collection string, fns ...OptionFn) string {
	opts := NewOptions(fns...)
	return mountPath(basePath, opts.RoutePath, collection)
}

// RegisterRoutes registers one handler per configured collection under
// basePath and returns the registered patterns.
func RegisterRoutes(mux Mux, basePath string, fns ...OptionFn) ([]string, error) {
	return RegisterRoutesWithOptions(mux, basePath, NewOptions(fns...))
}

func RegisterRoutesWithOptions(mux Mux, basePath string, opts Options) ([]string, error) {
	if mux == nil {
		return nil, errors.New("lookups: missing mux")
	}
	opts = NewOptions(func(o *Options) { *o = opts })
	if len(opts.Collections) == 0 {
		return nil, errors.New("lookups: no collections configured")
	}

	patterns := make([]string, 0, len(opts.Collections))
	seen := make(map[string]struct{}, len(opts.Collections))
	for _, name := range opts.Collections {
		name = strings.Trim(strings.TrimSpace(name), "/")
		if name == "" {
			return nil, errors.New("lookups: empty collection name")
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("lookups: duplicate collection %q", name)
		}
		seen[name] = struct{}{}
		pattern := mountPath(basePath, opts.RoutePath, name)
		mux.Handle(pattern, HandlerWithOptions(name, opts))
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}

func mountPath(basePath, routePath, collection string) string {
	basePath = strings.TrimSpace(basePath)
	routePath = strings.TrimSpace(routePath)

	if routePath == "" {
		routePath = "/"
	}
	if !strings.HasPrefix(routePath, "/") {
		routePath = "/" + routePath
	}
	routePath = strings.TrimRight(routePath, "/") + "/" + strings.Trim(strings.TrimSpace(collection), "/")

	if basePath == "" || basePath == "/" {
		return routePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimRight(basePath, "/")
	return basePath + routePath
}
