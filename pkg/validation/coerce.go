package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-procure/pkg/model"
)

// DateLayout is the wire format of date fields.
const DateLayout = "2006-01-02"

// IsEmpty reports whether a raw input value counts as "not provided".
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []map[string]any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case []int64:
		return len(v) == 0
	case time.Time:
		return v.IsZero()
	}
	return false
}

// Number coerces raw numeric input. Empty input yields 0, never NaN; the
// second return value is false when a non-empty value cannot be parsed.
func Number(value any) (float64, bool) {
	var out float64
	switch v := value.(type) {
	case nil:
		return 0, true
	case float64:
		out = v
	case float32:
		out = float64(v)
	case int:
		out = float64(v)
	case int32:
		out = float64(v)
	case int64:
		out = float64(v)
	case uint:
		out = float64(v)
	case uint64:
		out = float64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, true
		}
		trimmed = strings.ReplaceAll(trimmed, ",", ".")
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		out = parsed
	default:
		return 0, false
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, false
	}
	return out, true
}

// Items returns the sub-records held by a list value.
func Items(value any) []map[string]any {
	switch v := value.(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// Coerce converts a raw input value into the typed value the API expects:
// numbers become float64 (integers are truncated), booleans bool, dates an
// ISO-8601 date string and lists a slice of coerced sub-records.
func Coerce(field model.Field, value any) (any, error) {
	switch field.Type {
	case model.FieldTypeNumber, model.FieldTypeInteger:
		n, ok := Number(value)
		if !ok {
			return nil, fmt.Errorf("validation: field %q: %v is not a number", field.Name, value)
		}
		if field.Type == model.FieldTypeInteger {
			return math.Trunc(n), nil
		}
		return n, nil
	case model.FieldTypeBoolean:
		return Bool(value), nil
	case model.FieldTypeDate:
		return Date(value)
	case model.FieldTypeList:
		items := Items(value)
		out := make([]map[string]any, 0, len(items))
		for _, item := range items {
			coerced := make(map[string]any, len(field.Items))
			for _, sub := range field.Items {
				v, err := Coerce(sub, item[sub.Name])
				if err != nil {
					return nil, fmt.Errorf("validation: field %q: %w", field.Name, err)
				}
				coerced[sub.Name] = v
			}
			out = append(out, coerced)
		}
		return out, nil
	default:
		if value == nil {
			return "", nil
		}
		if s, ok := value.(string); ok {
			return strings.TrimSpace(s), nil
		}
		return value, nil
	}
}

// Bool coerces checkbox-style input.
func Bool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && parsed
	}
	n, ok := Number(value)
	return ok && n != 0
}

// Date normalises a date input to DateLayout. Empty input yields "".
func Date(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case time.Time:
		if v.IsZero() {
			return "", nil
		}
		return v.Format(DateLayout), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return "", nil
		}
		for _, layout := range []string{DateLayout, time.RFC3339, "02/01/2006"} {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return t.Format(DateLayout), nil
			}
		}
		return "", fmt.Errorf("validation: %q is not a date", trimmed)
	}
	return "", fmt.Errorf("validation: %v is not a date", value)
}
