package table

import "strings"

// DefaultPageSize is used when a view state carries no page size.
const DefaultPageSize = 10

// ViewState is the sort, filter, search and pagination state of one table.
// Mutate it through the setters so the page index is reset when the filtered
// set can change.
type ViewState struct {
	SortKey       string            `json:"sortKey,omitempty" yaml:"sortKey,omitempty"`
	SortDesc      bool              `json:"sortDesc,omitempty" yaml:"sortDesc,omitempty"`
	Filters       map[string]string `json:"filters,omitempty" yaml:"filters,omitempty"`
	Search        string            `json:"search,omitempty" yaml:"search,omitempty"`
	Page          int               `json:"page" yaml:"page"`
	PageSize      int               `json:"pageSize" yaml:"pageSize"`
	HiddenColumns map[string]bool   `json:"hiddenColumns,omitempty" yaml:"hiddenColumns,omitempty"`
}

// NewViewState returns a state on the first page.
func NewViewState(pageSize int) ViewState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return ViewState{PageSize: pageSize}
}

// SetSearch changes the free-text search term and returns to the first page.
func (s *ViewState) SetSearch(term string) {
	s.Search = term
	s.Page = 0
}

// SetFilter sets the filter of a column; an empty value removes it. The page
// is reset.
func (s *ViewState) SetFilter(column, value string) {
	if strings.TrimSpace(value) == "" {
		delete(s.Filters, column)
	} else {
		if s.Filters == nil {
			s.Filters = make(map[string]string)
		}
		s.Filters[column] = value
	}
	s.Page = 0
}

// ClearFilters removes every column filter and the search term.
func (s *ViewState) ClearFilters() {
	s.Filters = nil
	s.Search = ""
	s.Page = 0
}

// SetPageSize changes the page size and returns to the first page.
func (s *ViewState) SetPageSize(size int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	s.PageSize = size
	s.Page = 0
}

// SetPage moves to page (0-based). Out of range values are clamped when the
// state is presented.
func (s *ViewState) SetPage(page int) {
	s.Page = page
}

// SortBy sorts on column. Sorting again on the active column toggles the
// direction. The page index is kept.
func (s *ViewState) SortBy(column string) {
	if s.SortKey == column {
		s.SortDesc = !s.SortDesc
		return
	}
	s.SortKey = column
	s.SortDesc = false
}

// ToggleColumn shows or hides a column. Hidden columns still take part in
// search, filtering and sorting.
func (s *ViewState) ToggleColumn(column string) {
	if s.HiddenColumns == nil {
		s.HiddenColumns = make(map[string]bool)
	}
	s.HiddenColumns[column] = !s.HiddenColumns[column]
}

func (s ViewState) pageSize() int {
	if s.PageSize <= 0 {
		return DefaultPageSize
	}
	return s.PageSize
}
