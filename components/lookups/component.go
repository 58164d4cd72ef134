package lookups

import "net/http"

// Component bundles the lookup handlers, their configuration and routing
// helpers.
type Component struct {
	opts Options
}

func New(fns ...OptionFn) *Component {
	return &Component{opts: NewOptions(fns...)}
}

// Options returns a copy of the component configuration.
func (c *Component) Options() Options {
	if c == nil {
		return DefaultOptions()
	}
	return NewOptions(func(o *Options) { *o = c.opts })
}

// Handler returns the handler serving collection.
func (c *Component) Handler(collection string) http.Handler {
	if c == nil {
		return Handler(collection)
	}
	return HandlerWithOptions(collection, c.opts)
}

func (c *Component) RegisterRoutes(mux Mux, basePath string) ([]string, error) {
	if c == nil {
		return RegisterRoutes(mux, basePath)
	}
	return RegisterRoutesWithOptions(mux, basePath, c.opts)
}
