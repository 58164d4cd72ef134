package table

import "context"

// Selection tracks the row identities picked for a bulk action.
type Selection struct {
	order []string
	set   map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{set: make(map[string]struct{})}
}

// Toggle flips one identity.
func (s *Selection) Toggle(key string) {
	if _, ok := s.set[key]; ok {
		delete(s.set, key)
		for i, k := range s.order {
			if k == key {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return
	}
	s.add(key)
}

// Selected reports whether key is selected.
func (s *Selection) Selected(key string) bool {
	_, ok := s.set[key]
	return ok
}

// SelectAll selects every row that passes the current filters, across pages.
func SelectAll[T any](s *Selection, view View[T]) {
	for _, key := range view.FilteredKeys {
		s.add(key)
	}
}

// SelectPage selects the rows of the current page.
func SelectPage[T any](s *Selection, view View[T]) {
	for _, key := range view.Keys {
		s.add(key)
	}
}

// Clear drops every selected identity.
func (s *Selection) Clear() {
	s.order = nil
	s.set = make(map[string]struct{})
}

// Len is the number of selected identities, including ones currently hidden
// by a filter.
func (s *Selection) Len() int { return len(s.order) }

// Targets returns the selected identities that are part of view's filtered
// rows, in display order. Identities hidden by an active filter are never
// returned.
func Targets[T any](s *Selection, view View[T]) []string {
	out := make([]string, 0, len(s.order))
	for _, key := range view.FilteredKeys {
		if s.Selected(key) {
			out = append(out, key)
		}
	}
	return out
}

// Action is a bulk operation such as a group accept or group reject.
type Action func(ctx context.Context, keys []string) error

// Apply runs action over Targets. It is a no-op when nothing visible is
// selected.
func Apply[T any](ctx context.Context, s *Selection, view View[T], action Action) error {
	keys := Targets(s, view)
	if len(keys) == 0 {
		return nil
	}
	return action(ctx, keys)
}

func (s *Selection) add(key string) {
	if s.set == nil {
		s.set = make(map[string]struct{})
	}
	if _, ok := s.set[key]; ok {
		return
	}
	s.set[key] = struct{}{}
	s.order = append(s.order, key)
}
