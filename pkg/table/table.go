// Package table filters, sorts and paginates in-memory rows for display.
//
// Rows are never mutated. Present applies the search term and column filters
// (ANDed, case and accent insensitive), then a stable sort on the active
// column, then slices out the current page.
package table

import (
	"errors"
	"sort"
	"strings"
)

// ErrNoKey is returned by New when the table has no row identity function.
var ErrNoKey = errors.New("table: key function is required")

// Column projects a row into one displayed column.
type Column[T any] struct {
	ID    string
	Label string
	// Value renders the cell; it is also what search and the default filter
	// and sort operate on.
	Value func(T) string
	// Less orders rows for this column. When nil rows are ordered by their
	// folded Value.
	Less func(a, b T) bool
	// Filter overrides the default "folded Value contains folded filter" test.
	Filter func(row T, value string) bool
	// Searchable includes the column in free-text search.
	Searchable bool
}

// Table binds the columns of a row type to its identity.
type Table[T any] struct {
	columns []Column[T]
	index   map[string]int
	key     func(T) string
}

// New builds a table. key returns the stable identity of a row, used by
// selections.
func New[T any](key func(T) string, columns ...Column[T]) (*Table[T], error) {
	if key == nil {
		return nil, ErrNoKey
	}
	t := &Table[T]{key: key, index: make(map[string]int, len(columns))}
	for _, col := range columns {
		if strings.TrimSpace(col.ID) == "" {
			return nil, errors.New("table: column id is required")
		}
		if _, dup := t.index[col.ID]; dup {
			return nil, errors.New("table: duplicate column " + col.ID)
		}
		t.index[col.ID] = len(t.columns)
		t.columns = append(t.columns, col)
	}
	return t, nil
}

// Columns returns every column, hidden ones included.
func (t *Table[T]) Columns() []Column[T] {
	return append([]Column[T](nil), t.columns...)
}

// Column looks up a column by id.
func (t *Table[T]) Column(id string) (Column[T], bool) {
	idx, ok := t.index[id]
	if !ok {
		return Column[T]{}, false
	}
	return t.columns[idx], true
}

// View is the presented result of one ViewState over a row source.
type View[T any] struct {
	// Rows is the current page.
	Rows []T
	// Columns are the visible columns, in declaration order.
	Columns []Column[T]
	// Keys are the identities of Rows.
	Keys []string
	// FilteredKeys are the identities of every row that passed the filters,
	// in display order.
	FilteredKeys []string

	Total    int
	Filtered int
	Page     int
	Pages    int
	PageSize int
}

// Present filters, sorts and paginates rows according to state.
func (t *Table[T]) Present(rows []T, state ViewState) View[T] {
	filtered := make([]T, 0, len(rows))
	for _, row := range rows {
		if t.matches(row, state) {
			filtered = append(filtered, row)
		}
	}

	if col, ok := t.Column(state.SortKey); ok {
		less := col.Less
		if less == nil && col.Value != nil {
			less = func(a, b T) bool { return Fold(col.Value(a)) < Fold(col.Value(b)) }
		}
		if less != nil {
			sort.SliceStable(filtered, func(i, j int) bool {
				if state.SortDesc {
					return less(filtered[j], filtered[i])
				}
				return less(filtered[i], filtered[j])
			})
		}
	}

	size := state.pageSize()
	pages := (len(filtered) + size - 1) / size
	page := state.Page
	if page >= pages {
		page = pages - 1
	}
	if page < 0 {
		page = 0
	}

	view := View[T]{
		Total:        len(rows),
		Filtered:     len(filtered),
		Page:         page,
		Pages:        pages,
		PageSize:     size,
		FilteredKeys: make([]string, 0, len(filtered)),
	}
	for _, row := range filtered {
		view.FilteredKeys = append(view.FilteredKeys, t.key(row))
	}
	start := page * size
	end := start + size
	if end > len(filtered) {
		end = len(filtered)
	}
	view.Rows = append([]T(nil), filtered[start:end]...)
	view.Keys = append([]string(nil), view.FilteredKeys[start:end]...)
	for _, col := range t.columns {
		if !state.HiddenColumns[col.ID] {
			view.Columns = append(view.Columns, col)
		}
	}
	return view
}

func (t *Table[T]) matches(row T, state ViewState) bool {
	for id, value := range state.Filters {
		if strings.TrimSpace(value) == "" {
			continue
		}
		col, ok := t.Column(id)
		if !ok {
			continue
		}
		switch {
		case col.Filter != nil:
			if !col.Filter(row, value) {
				return false
			}
		case col.Value != nil:
			if !Match(col.Value(row), value) {
				return false
			}
		}
	}

	if strings.TrimSpace(state.Search) == "" {
		return true
	}
	for _, col := range t.columns {
		if col.Searchable && col.Value != nil && Match(col.Value(row), state.Search) {
			return true
		}
	}
	return false
}
