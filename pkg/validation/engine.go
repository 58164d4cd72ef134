// Package validation validates form records against a model.FormModel. It
// never returns errors for invalid input: failures are data, reported as a
// field-name to message mapping together with the first invalid field.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-procure/pkg/condition"
	"github.com/goliatone/go-procure/pkg/condition/expr"
	"github.com/goliatone/go-procure/pkg/model"
)

// Predicate is a custom validation rule. It must be a pure function of the
// candidate value, the rule parameters and the record in ctx.
type Predicate func(value any, params map[string]string, ctx condition.Context) bool

// Result is the outcome of validating a record. A field absent from Errors is
// valid. Totals holds the live reduction of every aggregate rule.
type Result struct {
	Errors       map[string]string  `json:"errors,omitempty"`
	FirstInvalid string             `json:"firstInvalid,omitempty"`
	Totals       map[string]float64 `json:"totals,omitempty"`
}

// Valid reports whether no field failed.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Engine evaluates field predicates, gated rules and aggregate rules.
type Engine struct {
	evaluator  condition.Evaluator
	predicates map[string]Predicate
	messages   Messages
	validate   *validator.Validate
}

// Option configures an Engine.
type Option func(*Engine)

// WithEvaluator overrides the rule evaluator used for gates.
func WithEvaluator(evaluator condition.Evaluator) Option {
	return func(e *Engine) {
		if evaluator != nil {
			e.evaluator = evaluator
		}
	}
}

// WithPredicate registers a custom rule kind.
func WithPredicate(kind string, fn Predicate) Option {
	return func(e *Engine) {
		if kind = strings.TrimSpace(kind); kind != "" && fn != nil {
			e.predicates[kind] = fn
		}
	}
}

// WithMessages overrides the default message catalogue.
func WithMessages(messages Messages) Option {
	return func(e *Engine) {
		e.messages = e.messages.merge(messages)
	}
}

// New builds an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		evaluator:  expr.New(),
		predicates: make(map[string]Predicate),
		messages:   DefaultMessages(),
		validate:   validator.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Validate runs whole-record validation. ctx.Values is the record.
func (e *Engine) Validate(form model.FormModel, ctx condition.Context) Result {
	result := Result{Errors: make(map[string]string)}

	for _, field := range form.Fields {
		e.validateField(field, field.Name, ctx.Values[field.Name], ctx, result.Errors)
	}

	for _, rule := range form.Aggregates {
		total, msg, applies := e.aggregate(form, rule, ctx)
		if !applies {
			continue
		}
		if result.Totals == nil {
			result.Totals = make(map[string]float64)
		}
		result.Totals[rule.Field] = total
		if msg != "" {
			if _, exists := result.Errors[rule.Field]; !exists {
				result.Errors[rule.Field] = msg
			}
		}
	}

	result.FirstInvalid = firstInvalid(form, result.Errors)
	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	return result
}

// ValidateField validates a single field (and, for list fields, its items and
// aggregate) and returns the message attached to the field itself.
func (e *Engine) ValidateField(form model.FormModel, ctx condition.Context, name string) (string, bool) {
	field, ok := form.Field(name)
	if !ok {
		return "", true
	}
	errs := make(map[string]string)
	e.validateField(field, name, ctx.Values[name], ctx, errs)
	if msg, failed := errs[name]; failed {
		return msg, false
	}
	if rule, ok := form.Aggregate(name); ok {
		if _, msg, applies := e.aggregate(form, rule, ctx); applies && msg != "" {
			return msg, false
		}
	}
	return "", true
}

// Required reports whether field is currently required for the record.
func (e *Engine) Required(field model.Field, path string, ctx condition.Context) bool {
	if strings.TrimSpace(field.RequiredWhen) == "" {
		return field.Required
	}
	ok, err := e.evaluator.Eval(path, field.RequiredWhen, ctx)
	return err == nil && ok
}

// Visible reports whether field is currently shown for the record.
func (e *Engine) Visible(field model.Field, path string, ctx condition.Context) bool {
	ok, err := e.evaluator.Eval(path, field.VisibleWhen, ctx)
	return err == nil && ok
}

func (e *Engine) validateField(field model.Field, path string, value any, ctx condition.Context, errs map[string]string) {
	if !e.Visible(field, path, ctx) {
		return
	}

	if IsEmpty(value) {
		if e.Required(field, path, ctx) {
			errs[path] = e.messages.format(MessageRequired, ruleMessage(field, model.ValidationRuleRequired), "")
			return
		}
		if !field.Type.Numeric() {
			return
		}
	}

	if field.Type.Numeric() {
		n, ok := Number(value)
		if !ok {
			errs[path] = e.messages.format(MessageNumber, "", "")
			return
		}
		value = n
	}

	for _, rule := range field.Validations {
		if rule.Kind == model.ValidationRuleRequired {
			continue
		}
		if strings.TrimSpace(rule.When) != "" {
			ok, err := e.evaluator.Eval(path, rule.When, ctx)
			if err != nil || !ok {
				continue
			}
		}
		if msg, ok := e.check(rule, value, ctx); !ok {
			errs[path] = msg
			return
		}
	}

	if field.Type == model.FieldTypeList {
		for idx, item := range Items(value) {
			itemCtx := condition.Context{Values: mergeItem(ctx.Values, item), Session: ctx.Session}
			for _, sub := range field.Items {
				subPath := path + "." + strconv.Itoa(idx) + "." + sub.Name
				e.validateField(sub, subPath, item[sub.Name], itemCtx, errs)
			}
		}
	}
}

// mergeItem exposes the parent record to item rules under the "parent." prefix.
func mergeItem(parent map[string]any, item map[string]any) map[string]any {
	out := make(map[string]any, len(item)+1)
	for k, v := range item {
		out[k] = v
	}
	out["parent"] = parent
	return out
}

func (e *Engine) check(rule model.ValidationRule, value any, ctx condition.Context) (string, bool) {
	param := rule.Params["value"]
	switch rule.Kind {
	case model.ValidationRuleMin, model.ValidationRuleMax, model.ValidationRuleExclusiveMin, model.ValidationRuleExclusiveMax:
		bound, err := strconv.ParseFloat(param, 64)
		if err != nil {
			return e.messages.format(MessageInvalidRule, "", rule.Kind), false
		}
		n, _ := Number(value)
		var ok bool
		key := MessageMin
		switch rule.Kind {
		case model.ValidationRuleMin:
			ok = n >= bound
		case model.ValidationRuleMax:
			ok, key = n <= bound, MessageMax
		case model.ValidationRuleExclusiveMin:
			ok, key = n > bound, MessageExclusiveMin
		case model.ValidationRuleExclusiveMax:
			ok, key = n < bound, MessageExclusiveMax
		}
		if !ok {
			return e.messages.format(key, rule.Message, param), false
		}
	case model.ValidationRuleMinLength, model.ValidationRuleMaxLength:
		limit, err := strconv.Atoi(param)
		if err != nil {
			return e.messages.format(MessageInvalidRule, "", rule.Kind), false
		}
		length := valueLength(value)
		if rule.Kind == model.ValidationRuleMinLength && length < limit {
			return e.messages.format(MessageMinLength, rule.Message, param), false
		}
		if rule.Kind == model.ValidationRuleMaxLength && length > limit {
			return e.messages.format(MessageMaxLength, rule.Message, param), false
		}
	case model.ValidationRulePattern:
		re, err := regexp.Compile(rule.Params["pattern"])
		if err != nil {
			return e.messages.format(MessageInvalidRule, "", rule.Kind), false
		}
		if !re.MatchString(fmt.Sprint(value)) {
			return e.messages.format(MessagePattern, rule.Message, ""), false
		}
	case model.ValidationRuleOneOf:
		allowed := strings.Split(rule.Params["values"], ",")
		got := strings.TrimSpace(fmt.Sprint(value))
		for _, candidate := range allowed {
			if strings.TrimSpace(candidate) == got {
				return "", true
			}
		}
		return e.messages.format(MessageOneOf, rule.Message, rule.Params["values"]), false
	case model.ValidationRuleTag:
		if err := e.validate.Var(value, rule.Params["tag"]); err != nil {
			return e.messages.format(MessageTag, rule.Message, rule.Params["tag"]), false
		}
	default:
		fn, ok := e.predicates[rule.Kind]
		if !ok {
			return e.messages.format(MessageInvalidRule, "", rule.Kind), false
		}
		if !fn(value, rule.Params, ctx) {
			return e.messages.format(MessageInvalid, rule.Message, ""), false
		}
	}
	return "", true
}

func valueLength(value any) int {
	switch v := value.(type) {
	case string:
		return utf8.RuneCountInString(strings.TrimSpace(v))
	case nil:
		return 0
	}
	if items := Items(value); items != nil {
		return len(items)
	}
	return utf8.RuneCountInString(fmt.Sprint(value))
}

// aggregate reduces rule.SubField over the items of rule.Field in insertion
// order. applies is false when the list field or the rule's gate is inactive.
func (e *Engine) aggregate(form model.FormModel, rule model.AggregateRule, ctx condition.Context) (total float64, msg string, applies bool) {
	field, ok := form.Field(rule.Field)
	if !ok || !e.Visible(field, rule.Field, ctx) {
		return 0, "", false
	}
	if strings.TrimSpace(rule.When) != "" {
		ok, err := e.evaluator.Eval(rule.Field, rule.When, ctx)
		if err != nil || !ok {
			return 0, "", false
		}
	}

	total = Sum(Items(ctx.Values[rule.Field]), rule.SubField)
	if rule.Mode == model.AggregateTotal {
		return total, "", true
	}
	if total == rule.Target {
		return total, "", true
	}
	if rule.Message != "" {
		return total, rule.Message, true
	}
	return total, e.messages.aggregate(rule, total), true
}

// Sum adds sub-field values of items in order. Empty values count as 0.
func Sum(items []map[string]any, subField string) float64 {
	var total float64
	for _, item := range items {
		n, _ := Number(item[subField])
		total += n
	}
	return total
}

func ruleMessage(field model.Field, kind string) string {
	for _, rule := range field.Validations {
		if rule.Kind == kind {
			return rule.Message
		}
	}
	return ""
}

// firstInvalid returns the first field, in schema order, that carries an
// error either on itself or on one of its items.
func firstInvalid(form model.FormModel, errs map[string]string) string {
	if len(errs) == 0 {
		return ""
	}
	for _, field := range form.Fields {
		if _, ok := errs[field.Name]; ok {
			return field.Name
		}
		if field.Type != model.FieldTypeList {
			continue
		}
		prefix := field.Name + "."
		best := ""
		for key := range errs {
			if strings.HasPrefix(key, prefix) && (best == "" || itemPathLess(field, key, best)) {
				best = key
			}
		}
		if best != "" {
			return best
		}
	}
	return ""
}

// itemPathLess orders "list.<idx>.<sub>" paths by item index, then by the
// position of the sub-field in the schema.
func itemPathLess(field model.Field, a, b string) bool {
	ai, as := splitItemPath(a)
	bi, bs := splitItemPath(b)
	if ai != bi {
		return ai < bi
	}
	return subFieldIndex(field, as) < subFieldIndex(field, bs)
}

func subFieldIndex(field model.Field, name string) int {
	for idx, sub := range field.Items {
		if sub.Name == name {
			return idx
		}
	}
	return len(field.Items)
}

func splitItemPath(path string) (int, string) {
	parts := strings.SplitN(path, ".", 3)
	if len(parts) < 3 {
		return 0, path
	}
	idx, _ := strconv.Atoi(parts[1])
	return idx, parts[2]
}
