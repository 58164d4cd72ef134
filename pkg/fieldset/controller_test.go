package fieldset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-procure/pkg/condition"
	"github.com/goliatone/go-procure/pkg/fieldset"
	"github.com/goliatone/go-procure/pkg/model"
)

func penaltyForm() model.FormModel {
	return model.FormModel{
		Fields: []model.Field{
			{Name: "hasPenalties", Type: model.FieldTypeBoolean},
			{Name: "penaltyMode", Type: model.FieldTypeEnum, VisibleWhen: "hasPenalties", RequiredWhen: "hasPenalties", ResetOnHide: true, Default: "daily"},
			{Name: "amountBase", Type: model.FieldTypeNumber, VisibleWhen: "hasPenalties", RequiredWhen: "hasPenalties"},
			{Name: "beneficiary", Type: model.FieldTypeEnum, Required: true},
			{Name: "beneficiaryId", Type: model.FieldTypeString, VisibleWhen: `beneficiary == "other"`, RequiredWhen: `beneficiary == "other"`},
			{Name: "approvedBy", Type: model.FieldTypeString, EnabledWhen: `session.roles == "approver"`},
			{Name: "installments", Type: model.FieldTypeList, Items: []model.Field{
				{Name: "percentage", Type: model.FieldTypeNumber, Required: true},
				{Name: "note", Type: model.FieldTypeString, VisibleWhen: "percentage > 50"},
			}},
		},
	}
}

type memRecord struct {
	values map[string]any
	errors map[string]string
}

func (m *memRecord) Get(name string) (any, bool) {
	v, ok := m.values[name]
	return v, ok
}

func (m *memRecord) Set(name string, value any) { m.values[name] = value }

func (m *memRecord) ClearError(name string) { delete(m.errors, name) }

func TestEvaluateBooleanGate(t *testing.T) {
	t.Parallel()

	ctrl := fieldset.New()
	states, err := ctrl.Evaluate(penaltyForm(), condition.Context{Values: map[string]any{"hasPenalties": true}})
	require.NoError(t, err)
	assert.Equal(t, fieldset.State{Visible: true, Enabled: true, Required: true}, states["amountBase"])
	assert.Equal(t, fieldset.State{Visible: true, Enabled: true, Required: true}, states["penaltyMode"])

	states, err = ctrl.Evaluate(penaltyForm(), condition.Context{Values: map[string]any{"hasPenalties": false}})
	require.NoError(t, err)
	assert.Equal(t, fieldset.State{}, states["amountBase"])
	assert.False(t, states.Visible("penaltyMode"))
}

func TestEvaluateEnumRevealsField(t *testing.T) {
	t.Parallel()

	ctrl := fieldset.New()
	states, err := ctrl.Evaluate(penaltyForm(), condition.Context{Values: map[string]any{"beneficiary": "self"}})
	require.NoError(t, err)
	assert.False(t, states.Visible("beneficiaryId"))
	assert.True(t, states["beneficiary"].Required)

	states, err = ctrl.Evaluate(penaltyForm(), condition.Context{Values: map[string]any{"beneficiary": "other"}})
	require.NoError(t, err)
	assert.True(t, states["beneficiaryId"].Required)
}

func TestEvaluateEnablementFromSession(t *testing.T) {
	t.Parallel()

	ctrl := fieldset.New()
	states, err := ctrl.Evaluate(penaltyForm(), condition.Context{Session: condition.Session{Roles: []string{"buyer"}}})
	require.NoError(t, err)
	assert.Equal(t, fieldset.State{Visible: true}, states["approvedBy"])

	states, err = ctrl.Evaluate(penaltyForm(), condition.Context{Session: condition.Session{Roles: []string{"approver"}}})
	require.NoError(t, err)
	assert.True(t, states["approvedBy"].Enabled)
}

func TestEvaluateListItems(t *testing.T) {
	t.Parallel()

	values := map[string]any{"installments": []map[string]any{
		{"percentage": 30},
		{"percentage": 70},
	}}
	states, err := fieldset.New().Evaluate(penaltyForm(), condition.Context{Values: values})
	require.NoError(t, err)
	assert.True(t, states["installments.0.percentage"].Required)
	assert.False(t, states.Visible("installments.0.note"))
	assert.True(t, states.Visible("installments.1.note"))
}

func TestEvaluateInvalidRule(t *testing.T) {
	t.Parallel()

	form := model.FormModel{Fields: []model.Field{{Name: "x", VisibleWhen: "a = 1"}}}
	_, err := fieldset.New().Evaluate(form, condition.Context{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fieldset:")
}

func TestApplyClearsErrorsOfHiddenFields(t *testing.T) {
	t.Parallel()

	ctrl := fieldset.New()
	form := penaltyForm()
	record := &memRecord{
		values: map[string]any{"hasPenalties": true, "penaltyMode": "fixed", "amountBase": ""},
		errors: map[string]string{"amountBase": "This field is required", "penaltyMode": "Invalid"},
	}

	prev, err := ctrl.Evaluate(form, condition.Context{Values: record.values})
	require.NoError(t, err)

	record.values["hasPenalties"] = false
	next, err := ctrl.Evaluate(form, condition.Context{Values: record.values})
	require.NoError(t, err)

	changed := ctrl.Apply(form, record, prev, next)
	assert.ElementsMatch(t, []string{"penaltyMode", "amountBase"}, changed)
	assert.Empty(t, record.errors)
	assert.Equal(t, "daily", record.values["penaltyMode"], "reset-on-hide restores the default")
	assert.Equal(t, "", record.values["amountBase"], "values are retained by default")
}

func TestApplyWithoutPreviousStateDoesNotReset(t *testing.T) {
	t.Parallel()

	ctrl := fieldset.New()
	form := penaltyForm()
	record := &memRecord{values: map[string]any{"penaltyMode": "fixed"}, errors: map[string]string{}}

	next, err := ctrl.Evaluate(form, condition.Context{Values: record.values})
	require.NoError(t, err)
	changed := ctrl.Apply(form, record, nil, next)
	assert.Empty(t, changed)
	assert.Equal(t, "fixed", record.values["penaltyMode"])
}
