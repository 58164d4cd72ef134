// Package subrecord manages the repeatable sub-records of a list field
// (payment installments, beneficiary allocations) on top of a form record.
package subrecord

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/goliatone/go-procure/pkg/model"
	"github.com/goliatone/go-procure/pkg/validation"
)

// KeyField is the item key holding the sub-record identity. It is never part
// of a submitted payload.
const KeyField = "_key"

// ErrNotList is returned when the managed field is not a list field.
var ErrNotList = errors.New("subrecord: field is not a list")

// Host is the form the list field lives on. Change must re-run validation so
// the aggregate error and live total follow every mutation.
type Host interface {
	Get(name string) (any, bool)
	Change(name string, value any) error
}

// Item is one sub-record.
type Item struct {
	ID     string
	Values map[string]any
}

// Manager edits one list field of a host form.
type Manager struct {
	host  Host
	field model.Field
	rule  model.AggregateRule
	agg   bool
	newID func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithIDGenerator replaces uuid.NewString as the identity source.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// New binds a manager to the list field named field of form.
func New(host Host, form model.FormModel, field string, opts ...Option) (*Manager, error) {
	def, ok := form.Field(field)
	if !ok {
		return nil, fmt.Errorf("subrecord: unknown field %q", field)
	}
	if def.Type != model.FieldTypeList {
		return nil, fmt.Errorf("%w: %q", ErrNotList, field)
	}
	m := &Manager{host: host, field: def, newID: uuid.NewString}
	m.rule, m.agg = form.Aggregate(field)
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if items, assigned := m.items(); assigned {
		if err := m.commit(items); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Field returns the managed list field.
func (m *Manager) Field() model.Field { return m.field }

// List returns the items in insertion order.
func (m *Manager) List() []Item {
	items, _ := m.items()
	out := make([]Item, 0, len(items))
	for _, item := range items {
		id, _ := item[KeyField].(string)
		values := make(map[string]any, len(item))
		for k, v := range item {
			if k != KeyField {
				values[k] = v
			}
		}
		out = append(out, Item{ID: id, Values: values})
	}
	return out
}

// Add appends an item with a fresh identity and returns it.
func (m *Manager) Add(values map[string]any) (string, error) {
	items, _ := m.items()
	item := make(map[string]any, len(values)+1)
	for _, sub := range m.field.Items {
		if sub.Default != nil {
			item[sub.Name] = sub.Default
		}
	}
	for k, v := range values {
		item[k] = v
	}
	id := m.newID()
	item[KeyField] = id
	if err := m.commit(append(items, item)); err != nil {
		return "", err
	}
	return id, nil
}

// Remove drops the item with id. Removing an unknown id is a no-op.
func (m *Manager) Remove(id string) error {
	items, _ := m.items()
	kept := items[:0]
	for _, item := range items {
		if item[KeyField] != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return nil
	}
	return m.commit(kept)
}

// Update merges partial into the item with id. It reports false when no item
// has that id.
func (m *Manager) Update(id string, partial map[string]any) (bool, error) {
	items, _ := m.items()
	for _, item := range items {
		if item[KeyField] != id {
			continue
		}
		for k, v := range partial {
			if k != KeyField {
				item[k] = v
			}
		}
		return true, m.commit(items)
	}
	return false, nil
}

// Total is the live aggregate of the list: the sum of the rule sub-field in
// insertion order, 0 for an empty list.
func (m *Manager) Total() float64 {
	if !m.agg {
		return 0
	}
	items, _ := m.items()
	return validation.Sum(items, m.rule.SubField)
}

// items returns a private copy of the current list. Items loaded without an
// identity (edit flows) are given one and assigned is set.
func (m *Manager) items() (out []map[string]any, assigned bool) {
	raw, _ := m.host.Get(m.field.Name)
	current := validation.Items(raw)
	out = make([]map[string]any, 0, len(current))
	for _, item := range current {
		clone := make(map[string]any, len(item)+1)
		for k, v := range item {
			clone[k] = v
		}
		if id, ok := clone[KeyField].(string); !ok || id == "" {
			clone[KeyField] = m.newID()
			assigned = true
		}
		out = append(out, clone)
	}
	return out, assigned
}

func (m *Manager) commit(items []map[string]any) error {
	if items == nil {
		items = []map[string]any{}
	}
	if err := m.host.Change(m.field.Name, items); err != nil {
		return fmt.Errorf("subrecord: %s: %w", m.field.Name, err)
	}
	return nil
}
