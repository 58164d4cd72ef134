package form

import (
	"strings"
	"sync"
)

// Record is the working, possibly invalid snapshot of a form: current values
// keyed by field name plus the current error message of each failing field.
// Item errors of list fields use "<list>.<index>.<subField>" keys.
type Record struct {
	mu     sync.RWMutex
	values map[string]any
	errors map[string]string
}

// NewRecord seeds a record with initial values.
func NewRecord(initial map[string]any) *Record {
	return &Record{
		values: cloneValues(initial),
		errors: make(map[string]string),
	}
}

// Get returns the raw value of a field.
func (r *Record) Get(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[name]
	return v, ok
}

// Set stores a raw value.
func (r *Record) Set(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[name] = deepCopy(value)
}

// Values returns a deep copy of the current values.
func (r *Record) Values() map[string]any {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneValues(r.values)
}

// Error returns the message attached to name.
func (r *Record) Error(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msg, ok := r.errors[name]
	return msg, ok
}

// Errors returns a copy of the error mapping.
func (r *Record) Errors() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.errors))
	for k, v := range r.errors {
		out[k] = v
	}
	return out
}

// SetError attaches msg to name; an empty message clears it.
func (r *Record) SetError(name, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if strings.TrimSpace(msg) == "" {
		delete(r.errors, name)
		return
	}
	r.errors[name] = msg
}

// ClearError removes the error of name and of any item below it.
func (r *Record) ClearError(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.errors, name)
	prefix := name + "."
	for key := range r.errors {
		if strings.HasPrefix(key, prefix) {
			delete(r.errors, key)
		}
	}
}

// ReplaceErrors swaps the whole error mapping.
func (r *Record) ReplaceErrors(errs map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = make(map[string]string, len(errs))
	for k, v := range errs {
		r.errors[k] = v
	}
}

// Reset restores values to defaults and clears every error.
func (r *Record) Reset(defaults map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = cloneValues(defaults)
	r.errors = make(map[string]string)
}

// Snapshot is an immutable copy of a record.
type Snapshot struct {
	Values map[string]any    `json:"values"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Snapshot copies values and errors.
func (r *Record) Snapshot() Snapshot {
	return Snapshot{Values: r.Values(), Errors: r.Errors()}
}

func cloneValues(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneValues(typed)
	case []map[string]any:
		clone := make([]map[string]any, len(typed))
		for i, v := range typed {
			clone[i] = cloneValues(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	case []int64:
		return append([]int64(nil), typed...)
	default:
		return typed
	}
}
