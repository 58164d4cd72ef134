// Package fieldset derives, for every field of a form, whether it is visible,
// enabled and required for the current record. Evaluation is total and
// stateless: every call recomputes every field from the record alone.
package fieldset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-procure/pkg/condition"
	"github.com/goliatone/go-procure/pkg/condition/expr"
	"github.com/goliatone/go-procure/pkg/model"
	"github.com/goliatone/go-procure/pkg/validation"
)

// State is the derived presentation state of one field.
type State struct {
	Visible  bool `json:"visible"`
	Enabled  bool `json:"enabled"`
	Required bool `json:"required"`
}

// States maps field paths to their state. Sub-fields of list items use
// "<list>.<index>.<subField>" paths.
type States map[string]State

// Visible reports whether path is visible. Unknown paths are hidden.
func (s States) Visible(path string) bool {
	return s[path].Visible
}

// Record is the part of a form record the controller mutates when fields
// change state.
type Record interface {
	Get(name string) (any, bool)
	Set(name string, value any)
	ClearError(name string)
}

// Controller evaluates visibility, enablement and requirement rules.
type Controller struct {
	evaluator condition.Evaluator
}

// Option configures a Controller.
type Option func(*Controller)

// WithEvaluator overrides the rule evaluator.
func WithEvaluator(evaluator condition.Evaluator) Option {
	return func(c *Controller) {
		if evaluator != nil {
			c.evaluator = evaluator
		}
	}
}

// New builds a Controller.
func New(opts ...Option) *Controller {
	c := &Controller{evaluator: expr.New()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Evaluate computes the state of every field. A hidden field is never enabled
// nor required, and the items of a hidden list are not evaluated.
func (c *Controller) Evaluate(form model.FormModel, ctx condition.Context) (States, error) {
	states := make(States, len(form.Fields))
	for _, field := range form.Fields {
		state, err := c.state(field, field.Name, ctx)
		if err != nil {
			return nil, err
		}
		states[field.Name] = state
		if field.Type != model.FieldTypeList || !state.Visible {
			continue
		}

		for idx, item := range validation.Items(ctx.Values[field.Name]) {
			itemCtx := condition.Context{Values: withParent(item, ctx.Values), Session: ctx.Session}
			for _, sub := range field.Items {
				path := field.Name + "." + strconv.Itoa(idx) + "." + sub.Name
				subState, err := c.state(sub, path, itemCtx)
				if err != nil {
					return nil, err
				}
				if !state.Enabled {
					subState.Enabled = false
				}
				states[path] = subState
			}
		}
	}
	return states, nil
}

func (c *Controller) state(field model.Field, path string, ctx condition.Context) (State, error) {
	visible, err := c.eval(path, field.VisibleWhen, ctx, true)
	if err != nil {
		return State{}, err
	}
	if !visible {
		return State{}, nil
	}
	enabled, err := c.eval(path, field.EnabledWhen, ctx, true)
	if err != nil {
		return State{}, err
	}
	required, err := c.eval(path, field.RequiredWhen, ctx, field.Required)
	if err != nil {
		return State{}, err
	}
	return State{Visible: true, Enabled: enabled, Required: required}, nil
}

func (c *Controller) eval(path, rule string, ctx condition.Context, fallback bool) (bool, error) {
	if strings.TrimSpace(rule) == "" {
		return fallback, nil
	}
	ok, err := c.evaluator.Eval(path, rule, ctx)
	if err != nil {
		return false, fmt.Errorf("fieldset: %w", err)
	}
	return ok, nil
}

// Apply reconciles a record with a state transition. Hidden fields lose their
// errors, fields that stop being required lose their errors until the caller
// revalidates them, and fields marked ResetOnHide get their default back when
// they become hidden. It returns the names of fields whose visibility changed.
func (c *Controller) Apply(form model.FormModel, record Record, prev, next States) []string {
	var changed []string
	for _, field := range form.Fields {
		before, seen := prev[field.Name]
		after := next[field.Name]

		if seen && before.Visible != after.Visible {
			changed = append(changed, field.Name)
		}

		switch {
		case !after.Visible:
			record.ClearError(field.Name)
			if field.ResetOnHide && seen && before.Visible {
				record.Set(field.Name, field.Default)
			}
		case seen && before.Required && !after.Required:
			record.ClearError(field.Name)
		}
	}
	return changed
}

func withParent(item map[string]any, parent map[string]any) map[string]any {
	out := make(map[string]any, len(item)+1)
	for k, v := range item {
		out[k] = v
	}
	out["parent"] = parent
	return out
}
