package lookups

import (
	"sort"
	"strings"

	"github.com/goliatone/go-procure/pkg/table"
)

// Search returns the entries whose label or value contains query, ignoring
// case and accents. Label prefix matches come first, then labels in order.
func Search(entries []Option, query string, limit int, opts Options) []Option {
	limit = clampLimit(limit, opts)

	query = strings.TrimSpace(query)
	if query == "" {
		if opts.EmptySearchMode == EmptySearchTop {
			if len(entries) <= limit {
				return append([]Option{}, entries...)
			}
			return append([]Option{}, entries[:limit]...)
		}
		return nil
	}

	q := table.Fold(query)
	matches := make([]matchedOption, 0, 32)
	for _, entry := range entries {
		label := table.Fold(entry.Label)
		if !strings.Contains(label, q) && !strings.Contains(table.Fold(entry.Value), q) {
			continue
		}
		matches = append(matches, matchedOption{
			option:   entry,
			folded:   label,
			isPrefix: strings.HasPrefix(label, q),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].isPrefix != matches[j].isPrefix {
			return matches[i].isPrefix
		}
		return matches[i].folded < matches[j].folded
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]Option, 0, len(matches))
	for _, match := range matches {
		out = append(out, match.option)
	}
	return out
}

type matchedOption struct {
	option   Option
	folded   string
	isPrefix bool
}
