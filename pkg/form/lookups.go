package form

import (
	"fmt"
	"strconv"
	"strings"
)

// Lookup answers whether an id exists in a named collection (providers,
// quotations, departments...).
type Lookup interface {
	Has(collection, id string) bool
}

// Lookups is an in-memory Lookup keyed by collection name.
type Lookups map[string]map[string]struct{}

// Add registers ids under collection.
func (l Lookups) Add(collection string, ids ...string) {
	set, ok := l[collection]
	if !ok {
		set = make(map[string]struct{}, len(ids))
		l[collection] = set
	}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
}

// Has implements Lookup. A collection that was never loaded holds nothing.
func (l Lookups) Has(collection, id string) bool {
	_, ok := l[collection][id]
	return ok
}

// referenceIDs lists the ids held by a reference field value.
func referenceIDs(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
		return nil
	case []string:
		return v
	case []int64:
		out := make([]string, 0, len(v))
		for _, id := range v {
			out = append(out, strconv.FormatInt(id, 10))
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, referenceIDs(item)...)
		}
		return out
	case float64:
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}
	default:
		return []string{fmt.Sprint(v)}
	}
}
