// Package prompt fills a live form interactively. Every answer goes through
// the form's Change path, so field states, validation messages and list
// totals evolve exactly as they would under any other input surface.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-procure/pkg/form"
	"github.com/goliatone/go-procure/pkg/model"
	"github.com/goliatone/go-procure/pkg/subrecord"
	"github.com/goliatone/go-procure/pkg/validation"
)

// Metadata keys read by the filler.
const (
	MetadataInput = "input"
	MetadataHelp  = "help"
)

const skipLabel = "(none)"

// Filler prompts for every visible, enabled field of a form.
type Filler struct {
	driver      Driver
	logger      *zap.Logger
	maxAttempts int
}

type Option func(*Filler)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMaxAttempts bounds how often an invalid field is asked again. Zero
// means no bound.
func WithMaxAttempts(n int) Option {
	return func(f *Filler) { f.maxAttempts = n }
}

// NewFiller builds a Filler on driver.
func NewFiller(driver Driver, opts ...Option) *Filler {
	f := &Filler{driver: driver, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Fill walks the fields in declaration order. States are re-read before each
// field so that answers revealing or hiding later fields take effect at once.
func (f *Filler) Fill(ctx context.Context, inst *form.Instance) error {
	if f.driver == nil {
		return errors.New("prompt: driver is nil")
	}
	for _, field := range inst.Schema().Fields {
		state := inst.States()[field.Name]
		if !state.Visible || !state.Enabled {
			f.logger.Debug("skipping field", zap.String("field", field.Name), zap.Bool("visible", state.Visible))
			continue
		}
		var err error
		if field.Type == model.FieldTypeList {
			err = f.fillList(ctx, inst, field)
		} else {
			err = f.fillField(ctx, inst, field, state.Required)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *Filler) fillField(ctx context.Context, inst *form.Instance, field model.Field, required bool) error {
	for attempt := 1; ; attempt++ {
		current, _ := inst.Get(field.Name)
		value, err := f.ask(ctx, field, current, required)
		if err != nil {
			return err
		}
		if err := inst.Change(field.Name, value); err != nil {
			return err
		}
		msg, invalid := inst.Record().Error(field.Name)
		if !invalid {
			return nil
		}
		if err := f.driver.Info(ctx, fmt.Sprintf("%s: %s", field.DisplayLabel(), msg)); err != nil {
			return err
		}
		if f.maxAttempts > 0 && attempt >= f.maxAttempts {
			return fmt.Errorf("prompt: %s: %s", field.Name, msg)
		}
	}
}

func (f *Filler) fillList(ctx context.Context, inst *form.Instance, field model.Field) error {
	mgr, err := subrecord.New(inst, inst.Schema(), field.Name)
	if err != nil {
		return err
	}
	rule, hasRule := inst.Schema().Aggregate(field.Name)
	label := field.DisplayLabel()

	for {
		add, err := f.driver.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("Add a %s entry?", strings.ToLower(label)),
			Default: len(mgr.List()) == 0,
		})
		if err != nil {
			return err
		}
		if add {
			if err := f.addItem(ctx, inst, mgr, field); err != nil {
				return err
			}
			if hasRule {
				if err := f.driver.Info(ctx, fmt.Sprintf("%s total: %s%s", label, formatNumber(inst.LiveTotal(field.Name)), rule.Unit)); err != nil {
					return err
				}
			}
			continue
		}

		msg, invalid := inst.Validate().Errors[field.Name]
		if !invalid {
			return nil
		}
		if err := f.driver.Info(ctx, fmt.Sprintf("%s: %s", label, msg)); err != nil {
			return err
		}
		retry, err := f.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Edit %s again?", strings.ToLower(label)), Default: true})
		if err != nil {
			return err
		}
		if !retry {
			return nil
		}
		if err := f.pruneItems(ctx, mgr); err != nil {
			return err
		}
	}
}

func (f *Filler) addItem(ctx context.Context, inst *form.Instance, mgr *subrecord.Manager, field model.Field) error {
	values := make(map[string]any, len(field.Items))
	for _, sub := range field.Items {
		value, err := f.ask(ctx, sub, sub.Default, sub.Required)
		if err != nil {
			return err
		}
		values[sub.Name] = value
	}
	id, err := mgr.Add(values)
	if err != nil {
		return err
	}

	index := len(mgr.List()) - 1
	prefix := fmt.Sprintf("%s.%d.", field.Name, index)
	var problems []string
	for key, msg := range inst.Record().Errors() {
		if strings.HasPrefix(key, prefix) {
			problems = append(problems, fmt.Sprintf("%s: %s", strings.TrimPrefix(key, prefix), msg))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	for _, problem := range problems {
		if err := f.driver.Info(ctx, problem); err != nil {
			return err
		}
	}
	keep, err := f.driver.Confirm(ctx, ConfirmConfig{Message: "Keep this entry anyway?", Default: false})
	if err != nil {
		return err
	}
	if !keep {
		return mgr.Remove(id)
	}
	return nil
}

// pruneItems lets the user drop entries before adding new ones.
func (f *Filler) pruneItems(ctx context.Context, mgr *subrecord.Manager) error {
	items := mgr.List()
	if len(items) == 0 {
		return nil
	}
	options := make([]string, 0, len(items))
	for i, item := range items {
		options = append(options, describeItem(i, item.Values))
	}
	picked, err := f.driver.MultiSelect(ctx, SelectConfig{Message: "Remove entries", Options: options})
	if err != nil {
		return err
	}
	for _, idx := range picked {
		if idx < 0 || idx >= len(items) {
			continue
		}
		if err := mgr.Remove(items[idx].ID); err != nil {
			return err
		}
	}
	return nil
}

func (f *Filler) ask(ctx context.Context, field model.Field, current any, required bool) (any, error) {
	message := field.DisplayLabel()
	if required {
		message += " *"
	}
	help := field.Metadata[MetadataHelp]

	switch {
	case field.Type == model.FieldTypeBoolean:
		return f.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: validation.Bool(current), Help: help})

	case choosable(field) && field.Multiple():
		labels := optionLabels(field.Options)
		selected, err := f.driver.MultiSelect(ctx, SelectConfig{
			Message:  message,
			Options:  labels,
			Defaults: selectedIndices(field.Options, current),
			Help:     help,
		})
		if err != nil {
			return nil, err
		}
		values := make([]string, 0, len(selected))
		for _, idx := range selected {
			if idx >= 0 && idx < len(field.Options) {
				values = append(values, field.Options[idx].Value)
			}
		}
		return values, nil

	case choosable(field):
		labels := optionLabels(field.Options)
		if !required {
			labels = append(labels, skipLabel)
		}
		defaultIndex := -1
		if current != nil {
			defaultIndex = indexOfValue(field.Options, fmt.Sprint(current))
		}
		idx, err := f.driver.Select(ctx, SelectConfig{Message: message, Options: labels, DefaultIndex: defaultIndex, Help: help})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(field.Options) {
			return "", nil
		}
		return field.Options[idx].Value, nil
	}

	cfg := InputConfig{Message: message, Default: stringValue(current), Help: help}
	switch {
	case field.Metadata[MetadataInput] == "textarea":
		return f.driver.TextArea(ctx, cfg)
	case field.Type == model.FieldTypeDate && cfg.Help == "":
		cfg.Help = "YYYY-MM-DD"
	case field.Multiple() && cfg.Help == "":
		cfg.Help = "Comma separated ids"
	}
	return f.driver.Input(ctx, cfg)
}

// choosable reports whether field is answered by picking options: enums and
// references whose collection was loaded.
func choosable(field model.Field) bool {
	return len(field.Options) > 0 && (field.Type == model.FieldTypeEnum || field.Reference != "")
}

func optionLabels(options []model.Option) []string {
	out := make([]string, 0, len(options))
	for _, opt := range options {
		label := opt.Label
		if label == "" {
			label = opt.Value
		}
		out = append(out, label)
	}
	return out
}

func indexOfValue(options []model.Option, value string) int {
	for i, opt := range options {
		if opt.Value == value {
			return i
		}
	}
	return -1
}

func selectedIndices(options []model.Option, current any) []int {
	var values []string
	switch v := current.(type) {
	case []string:
		values = v
	case []any:
		for _, item := range v {
			values = append(values, fmt.Sprint(item))
		}
	case []int64:
		for _, item := range v {
			values = append(values, strconv.FormatInt(item, 10))
		}
	}
	var out []int
	for _, value := range values {
		if idx := indexOfValue(options, value); idx >= 0 {
			out = append(out, idx)
		}
	}
	return out
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return formatNumber(v)
	case []string:
		return strings.Join(v, ",")
	}
	return fmt.Sprint(value)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func describeItem(index int, values map[string]any) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == subrecord.KeyField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, stringValue(values[k])))
	}
	return fmt.Sprintf("#%d %s", index+1, strings.Join(parts, " "))
}
