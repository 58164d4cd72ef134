package form

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-procure/pkg/model"
	"github.com/goliatone/go-procure/pkg/validation"
)

// PayloadTransformer adjusts a coerced payload before it is submitted, for
// example to normalise a domain-specific representation.
type PayloadTransformer func(map[string]any) (map[string]any, error)

// WithTransformer appends a payload transformer. Transformers run in the order
// they were registered.
func WithTransformer(fn PayloadTransformer) Option {
	return func(i *Instance) {
		if fn != nil {
			i.transformers = append(i.transformers, fn)
		}
	}
}

// Payload returns the coerced payload the current record would submit. Hidden
// fields are left out.
func (i *Instance) Payload() (map[string]any, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.payloadLocked()
}

func (i *Instance) payloadLocked() (map[string]any, error) {
	values := i.record.Values()
	payload := make(map[string]any, len(i.form.Fields))
	for _, field := range i.form.Fields {
		if !i.states.Visible(field.Name) {
			continue
		}
		value, err := validation.Coerce(field, values[field.Name])
		if err != nil {
			return nil, fmt.Errorf("form: payload: %w", err)
		}
		payload[field.Name] = i.sanitize(field, value)
	}

	for _, fn := range i.transformers {
		next, err := fn(payload)
		if err != nil {
			return nil, fmt.Errorf("form: payload transform: %w", err)
		}
		payload = next
	}
	return payload, nil
}

func (i *Instance) sanitize(field model.Field, value any) any {
	switch v := value.(type) {
	case string:
		if field.Sanitize {
			return strings.TrimSpace(i.policy.Sanitize(v))
		}
		return v
	case []map[string]any:
		for _, item := range v {
			for _, sub := range field.Items {
				item[sub.Name] = i.sanitize(sub, item[sub.Name])
			}
		}
		return v
	}
	return value
}
