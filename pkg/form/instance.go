// Package form owns the lifecycle of one form instance: the working record,
// per-change validation and field-state reconciliation, and a guarded
// submission that never issues a request for an invalid record and never
// loses user input when the request is rejected.
package form

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/goliatone/go-procure/pkg/condition"
	"github.com/goliatone/go-procure/pkg/fieldset"
	"github.com/goliatone/go-procure/pkg/model"
	"github.com/goliatone/go-procure/pkg/validation"
)

// SubmitFunc sends a validated, coerced payload to the API. A nil error means
// the API accepted it.
type SubmitFunc func(ctx context.Context, payload map[string]any) error

// Instance is a single mounted form. It is safe for concurrent use, but at
// most one submission may be pending at a time.
type Instance struct {
	form     model.FormModel
	record   *Record
	engine   *validation.Engine
	fields   *fieldset.Controller
	session  condition.Session
	lookup   Lookup
	policy   *bluemonday.Policy
	logger   *zap.Logger
	defaults map[string]any

	transformers []PayloadTransformer
	decorators   []model.Decorator

	mu          sync.Mutex
	states      fieldset.States
	liveTotals  map[string]float64
	savedTotals map[string]float64
	submitting  atomic.Bool
}

// Option configures an Instance.
type Option func(*Instance)

// WithSession sets the current user context rules are evaluated against.
func WithSession(session condition.Session) Option {
	return func(i *Instance) { i.session = session }
}

// WithLookup enables missing-reference checks for fields with a Reference.
func WithLookup(lookup Lookup) Option {
	return func(i *Instance) { i.lookup = lookup }
}

// WithEngine overrides the validation engine.
func WithEngine(engine *validation.Engine) Option {
	return func(i *Instance) {
		if engine != nil {
			i.engine = engine
		}
	}
}

// WithController overrides the field-set controller.
func WithController(ctrl *fieldset.Controller) Option {
	return func(i *Instance) {
		if ctrl != nil {
			i.fields = ctrl
		}
	}
}

// WithLogger sets the logger; zap.NewNop is used otherwise.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Instance) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithSanitizer overrides the policy applied to fields marked Sanitize.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(i *Instance) {
		if policy != nil {
			i.policy = policy
		}
	}
}

// WithValues overlays initial values (for edit flows) on the schema defaults.
func WithValues(values map[string]any) Option {
	return func(i *Instance) {
		for k, v := range values {
			i.defaults[k] = v
		}
	}
}

// WithDecorators adjusts the schema before the form is mounted, for example
// to attach lookup options or remote endpoints to referenced fields.
func WithDecorators(decorators ...model.Decorator) Option {
	return func(i *Instance) {
		i.decorators = append(i.decorators, decorators...)
	}
}

// New mounts a form. It fails when a rule of the schema cannot be evaluated.
func New(form model.FormModel, opts ...Option) (*Instance, error) {
	inst := &Instance{
		form:     form,
		engine:   validation.New(),
		fields:   fieldset.New(),
		policy:   bluemonday.StrictPolicy(),
		logger:   zap.NewNop(),
		defaults: form.Defaults(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(inst)
		}
	}
	if len(inst.decorators) > 0 {
		inst.form = form.Clone()
	}
	if err := model.Decorate(&inst.form, inst.decorators...); err != nil {
		return nil, fmt.Errorf("form: decorate %s: %w", form.ID, err)
	}
	inst.logger = inst.logger.With(zap.String("form", form.ID))
	inst.record = NewRecord(inst.defaults)

	states, err := inst.fields.Evaluate(inst.form, inst.contextFor(inst.record.Values()))
	if err != nil {
		return nil, err
	}
	inst.states = states
	return inst, nil
}

// Schema returns the form model.
func (i *Instance) Schema() model.FormModel { return i.form }

// Record returns the working record.
func (i *Instance) Record() *Record { return i.record }

// Session returns the session the instance evaluates rules against.
func (i *Instance) Session() condition.Session { return i.session }

// States returns the current field states.
func (i *Instance) States() fieldset.States {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make(fieldset.States, len(i.states))
	for k, v := range i.states {
		out[k] = v
	}
	return out
}

// Get returns the raw value of a field.
func (i *Instance) Get(name string) (any, bool) {
	return i.record.Get(name)
}

// Change stores a new raw value, recomputes every field state and validates
// the changed field. Errors of other fields are only ever dropped, never
// added, so untouched fields stay quiet.
func (i *Instance) Change(name string, value any) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.record.Set(name, value)

	next, err := i.fields.Evaluate(i.form, i.contextFor(i.record.Values()))
	if err != nil {
		return err
	}
	if changed := i.fields.Apply(i.form, i.record, i.states, next); len(changed) > 0 {
		i.logger.Debug("field visibility changed", zap.String("trigger", name), zap.Strings("fields", changed))
	}
	i.states = next

	result := i.engine.Validate(i.form, i.contextFor(i.record.Values()))
	i.liveTotals = result.Totals
	// Errors the new record no longer produces are stale: a gate read by
	// another field may have closed.
	for key := range i.record.Errors() {
		if _, ok := result.Errors[key]; !ok {
			i.record.SetError(key, "")
		}
	}
	i.record.ClearError(name)
	if !i.states.Visible(name) {
		return nil
	}
	for key, msg := range result.Errors {
		if key == name || hasItemPrefix(key, name) {
			i.record.SetError(key, msg)
		}
	}
	return nil
}

// Validate runs whole-record validation and replaces the record errors.
func (i *Instance) Validate() validation.Result {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.validateLocked()
}

func (i *Instance) validateLocked() validation.Result {
	result := i.engine.Validate(i.form, i.contextFor(i.record.Values()))
	i.record.ReplaceErrors(result.Errors)
	i.liveTotals = result.Totals
	return result
}

// LiveTotal is the aggregate of a list field as currently edited.
func (i *Instance) LiveTotal(field string) float64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.liveTotals[field]
}

// SavedTotal is the aggregate of a list field at the last successful
// submission.
func (i *Instance) SavedTotal(field string) (float64, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	v, ok := i.savedTotals[field]
	return v, ok
}

// Submitting reports whether a submission is pending; callers disable their
// submit control while it is true.
func (i *Instance) Submitting() bool {
	return i.submitting.Load()
}

// Reset clears the record back to its initial values.
func (i *Instance) Reset() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.resetLocked()
}

func (i *Instance) resetLocked() error {
	i.record.Reset(i.defaults)
	states, err := i.fields.Evaluate(i.form, i.contextFor(i.record.Values()))
	if err != nil {
		return err
	}
	i.states = states
	i.liveTotals = nil
	return nil
}

// Submit validates the record and, when it is valid, calls submit exactly once
// with the coerced payload. On success the record is reset; on any failure it
// is left as it was so the user can correct and retry.
func (i *Instance) Submit(ctx context.Context, submit SubmitFunc) Outcome {
	if !i.submitting.CompareAndSwap(false, true) {
		return Outcome{Status: StatusBusy, Err: ErrSubmitInFlight, Notification: errorNotice(ErrSubmitInFlight)}
	}
	defer i.submitting.Store(false)

	i.mu.Lock()
	result := i.validateLocked()
	if !result.Valid() {
		i.mu.Unlock()
		err := i.validationError(result)
		i.logger.Debug("submission blocked by validation", zap.String("first_invalid", result.FirstInvalid), zap.Int("errors", len(result.Errors)))
		return Outcome{Status: StatusInvalid, Result: result, Err: err, Notification: errorNotice(err)}
	}
	if err := i.checkReferencesLocked(); err != nil {
		i.mu.Unlock()
		i.logger.Warn("submission blocked by missing reference", zap.Error(err))
		return Outcome{Status: StatusInvalid, Result: result, Err: err, Notification: errorNotice(err)}
	}
	payload, err := i.payloadLocked()
	i.mu.Unlock()
	if err != nil {
		return Outcome{Status: StatusInvalid, Result: result, Err: err, Notification: errorNotice(err)}
	}

	if err := submit(ctx, payload); err != nil {
		wrapped := &SubmissionError{Err: err}
		i.logger.Warn("submission rejected", zap.Error(err))
		return Outcome{Status: StatusRejected, Result: result, Payload: payload, Err: wrapped, Notification: errorNotice(wrapped)}
	}

	i.mu.Lock()
	i.savedTotals = result.Totals
	resetErr := i.resetLocked()
	i.mu.Unlock()
	if resetErr != nil {
		i.logger.Error("reset after submission", zap.Error(resetErr))
	}
	i.logger.Info("form submitted")
	return Outcome{Status: StatusSubmitted, Result: result, Payload: payload, Notification: Notification{Level: LevelSuccess, Message: "Saved"}}
}

func (i *Instance) validationError(result validation.Result) *ValidationError {
	keys := make([]string, 0, len(result.Errors))
	for key := range result.Errors {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	verr := &ValidationError{FirstInvalid: result.FirstInvalid}
	for _, key := range keys {
		_, aggregate := i.form.Aggregate(key)
		verr.Fields = append(verr.Fields, FieldError{Field: key, Message: result.Errors[key], Aggregate: aggregate})
	}
	return verr
}

func (i *Instance) checkReferencesLocked() error {
	if i.lookup == nil {
		return nil
	}
	values := i.record.Values()
	for _, field := range i.form.Fields {
		if !i.states.Visible(field.Name) {
			continue
		}
		if field.Reference != "" {
			if err := i.checkReference(field, field.Name, values[field.Name]); err != nil {
				return err
			}
		}
		if field.Type != model.FieldTypeList {
			continue
		}
		for idx, item := range validation.Items(values[field.Name]) {
			for _, sub := range field.Items {
				if sub.Reference == "" {
					continue
				}
				path := fmt.Sprintf("%s.%d.%s", field.Name, idx, sub.Name)
				if err := i.checkReference(sub, path, item[sub.Name]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// checkReference attaches the error to path, which is the field name or an
// item path such as "allocations.1.beneficiaryId".
func (i *Instance) checkReference(field model.Field, path string, value any) error {
	for _, id := range referenceIDs(value) {
		if !i.lookup.Has(field.Reference, id) {
			i.record.SetError(path, "The selected item no longer exists")
			return &MissingReferenceError{Field: path, Collection: field.Reference, ID: id}
		}
	}
	return nil
}

func (i *Instance) contextFor(values map[string]any) condition.Context {
	return condition.Context{Values: values, Session: i.session}
}

func hasItemPrefix(key, field string) bool {
	return len(key) > len(field)+1 && key[:len(field)+1] == field+"."
}

// Status is the result of a submission attempt.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusInvalid   Status = "invalid"
	StatusRejected  Status = "rejected"
	StatusBusy      Status = "busy"
)

// Level is the severity of a user-facing notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is the transient message shown after a submission attempt.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Outcome reports a submission attempt. Err is one of *ValidationError,
// *MissingReferenceError, *SubmissionError or ErrSubmitInFlight.
type Outcome struct {
	Status       Status            `json:"status"`
	Result       validation.Result `json:"result"`
	Payload      map[string]any    `json:"payload,omitempty"`
	Notification Notification      `json:"notification"`
	Err          error             `json:"-"`
}

// OK reports whether the API accepted the submission.
func (o Outcome) OK() bool { return o.Status == StatusSubmitted }

func errorNotice(err error) Notification {
	msg := "The form could not be saved"
	var (
		verr *ValidationError
		merr *MissingReferenceError
		serr *SubmissionError
	)
	switch {
	case errors.As(err, &verr):
		msg = "Please correct the highlighted fields"
	case errors.As(err, &merr):
		msg = "A selected " + merr.Collection + " entry is no longer available"
	case errors.As(err, &serr):
		if serr.Err != nil {
			msg = "Save failed: " + serr.Err.Error()
		}
	case errors.Is(err, ErrSubmitInFlight):
		msg = "A submission is already in progress"
	}
	return Notification{Level: LevelError, Message: msg}
}
