package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-procure/pkg/model"
)

// Message keys understood by Messages.
const (
	MessageRequired     = "required"
	MessageNumber       = "number"
	MessageMin          = "min"
	MessageMax          = "max"
	MessageExclusiveMin = "exclusiveMin"
	MessageExclusiveMax = "exclusiveMax"
	MessageMinLength    = "minLength"
	MessageMaxLength    = "maxLength"
	MessagePattern      = "pattern"
	MessageOneOf        = "oneOf"
	MessageTag          = "tag"
	MessageInvalid      = "invalid"
	MessageInvalidRule  = "invalidRule"
	MessageAggregate    = "aggregate"
	MessageMissing      = "aggregateMissing"
	MessageExceeding    = "aggregateExceeding"
)

// Messages maps message keys to fmt templates. Templates receive the rule
// parameter (bound, length, tag) as their single %s argument.
type Messages map[string]string

// DefaultMessages returns the built-in catalogue.
func DefaultMessages() Messages {
	return Messages{
		MessageRequired:     "This field is required",
		MessageNumber:       "Must be a number",
		MessageMin:          "Must be at least %s",
		MessageMax:          "Must be at most %s",
		MessageExclusiveMin: "Must be greater than %s",
		MessageExclusiveMax: "Must be less than %s",
		MessageMinLength:    "Must contain at least %s characters",
		MessageMaxLength:    "Must contain at most %s characters",
		MessagePattern:      "Invalid format",
		MessageOneOf:        "Must be one of %s",
		MessageTag:          "Invalid value (%s)",
		MessageInvalid:      "Invalid value",
		MessageInvalidRule:  "Unsupported rule %s",
		MessageAggregate:    "Total is %s",
		MessageMissing:      "Total is %s, %s missing",
		MessageExceeding:    "Total is %s, %s over",
	}
}

func (m Messages) merge(overrides Messages) Messages {
	out := make(Messages, len(m)+len(overrides))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range overrides {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}

// format renders key, preferring an explicit rule message when present.
func (m Messages) format(key, override, param string) string {
	if msg := strings.TrimSpace(override); msg != "" {
		return msg
	}
	template := m[key]
	if template == "" {
		template = m[MessageInvalid]
	}
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, param)
	}
	return template
}

// aggregate renders an "equals target" failure, for example
// "Total is 90%, 10% missing".
func (m Messages) aggregate(rule model.AggregateRule, total float64) string {
	amount := formatAmount(total, rule.Unit)
	switch {
	case total < rule.Target:
		return fmt.Sprintf(m[MessageMissing], amount, formatAmount(rule.Target-total, rule.Unit))
	case total > rule.Target:
		return fmt.Sprintf(m[MessageExceeding], amount, formatAmount(total-rule.Target, rule.Unit))
	default:
		return fmt.Sprintf(m[MessageAggregate], amount)
	}
}

func formatAmount(value float64, unit string) string {
	return strconv.FormatFloat(math.Round(value*100)/100, 'f', -1, 64) + unit
}
