package lookups

import (
	"strconv"

	"github.com/goliatone/go-procure/pkg/model"
)

// Field metadata keys written by EndpointDecorator.
const (
	MetadataEndpoint    = "lookup.endpoint"
	MetadataSearchParam = "lookup.search"
	MetadataLimitParam  = "lookup.limit"
	MetadataLimit       = "lookup.defaultLimit"
)

// EndpointDecorator points every field referencing a configured collection
// (list item fields included) at its search route under basePath, so remote
// inputs know where to fetch options.
func EndpointDecorator(basePath string, fns ...OptionFn) model.Decorator {
	opts := NewOptions(fns...)
	served := make(map[string]struct{}, len(opts.Collections))
	for _, name := range opts.Collections {
		served[name] = struct{}{}
	}

	var decorate func([]model.Field)
	decorate = func(fields []model.Field) {
		for i := range fields {
			if ref := fields[i].Reference; ref != "" {
				if _, ok := served[ref]; ok {
					meta := make(map[string]string, len(fields[i].Metadata)+4)
					for k, v := range fields[i].Metadata {
						meta[k] = v
					}
					meta[MetadataEndpoint] = mountPath(basePath, opts.RoutePath, ref)
					meta[MetadataSearchParam] = opts.SearchParam
					meta[MetadataLimitParam] = opts.LimitParam
					meta[MetadataLimit] = strconv.Itoa(opts.DefaultLimit)
					fields[i].Metadata = meta
				}
			}
			decorate(fields[i].Items)
		}
	}

	return model.DecoratorFunc(func(form *model.FormModel) error {
		decorate(form.Fields)
		return nil
	})
}
