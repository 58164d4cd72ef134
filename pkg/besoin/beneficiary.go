package besoin

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-procure/pkg/form"
)

// BeneficiariesField is the payload key holding the normalised beneficiary ids.
const BeneficiariesField = "beneficiaries"

// NormalizeBeneficiaries converts every accepted beneficiary representation
// (a single id as string or number, a comma separated string, or a list of
// either) into a list of ids. Duplicates are dropped, order is kept. Empty
// input yields an empty, non-nil list.
func NormalizeBeneficiaries(value any) ([]int64, error) {
	out := []int64{}
	seen := make(map[int64]struct{})
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	var walk func(v any) error
	walk = func(v any) error {
		switch typed := v.(type) {
		case nil:
			return nil
		case string:
			for _, part := range strings.Split(typed, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				id, err := strconv.ParseInt(part, 10, 64)
				if err != nil {
					return fmt.Errorf("besoin: beneficiary %q is not an id", part)
				}
				add(id)
			}
		case json.Number:
			return walk(string(typed))
		case int:
			add(int64(typed))
		case int32:
			add(int64(typed))
		case int64:
			add(typed)
		case float64:
			if typed != math.Trunc(typed) {
				return fmt.Errorf("besoin: beneficiary %v is not an id", typed)
			}
			add(int64(typed))
		case []int64:
			for _, id := range typed {
				add(id)
			}
		case []string:
			for _, s := range typed {
				if err := walk(s); err != nil {
					return err
				}
			}
		case []any:
			for _, item := range typed {
				if err := walk(item); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("besoin: unsupported beneficiary value %T", v)
		}
		return nil
	}

	if err := walk(value); err != nil {
		return nil, err
	}
	return out, nil
}

// NormalizeTransformer rewrites the beneficiaries entry of a payload into a
// list of ids, so creation and edit flows always submit the same shape.
func NormalizeTransformer() form.PayloadTransformer {
	return func(payload map[string]any) (map[string]any, error) {
		raw, ok := payload[BeneficiariesField]
		if !ok {
			return payload, nil
		}
		ids, err := NormalizeBeneficiaries(raw)
		if err != nil {
			return nil, err
		}
		payload[BeneficiariesField] = ids
		return payload, nil
	}
}
