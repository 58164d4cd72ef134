package subrecord_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-procure/pkg/besoin"
	"github.com/goliatone/go-procure/pkg/form"
	"github.com/goliatone/go-procure/pkg/model"
	"github.com/goliatone/go-procure/pkg/subrecord"
)

func installmentsForm() model.FormModel {
	return model.FormModel{
		ID: "payment-plan",
		Fields: []model.Field{
			{Name: "label", Type: model.FieldTypeString},
			{Name: "installments", Type: model.FieldTypeList, Items: []model.Field{
				{Name: "percentage", Type: model.FieldTypeNumber, Validations: []model.ValidationRule{
					{Kind: model.ValidationRuleExclusiveMin, Params: map[string]string{"value": "0"}},
					{Kind: model.ValidationRuleMax, Params: map[string]string{"value": "100"}},
				}},
				{Name: "dueDate", Type: model.FieldTypeDate},
			}},
		},
		Aggregates: []model.AggregateRule{
			{Field: "installments", SubField: "percentage", Target: 100, Unit: "%"},
		},
	}
}

func sequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("item-%d", n)
	}
}

func setup(t *testing.T, opts ...form.Option) (*form.Instance, *subrecord.Manager) {
	t.Helper()
	inst, err := form.New(installmentsForm(), opts...)
	require.NoError(t, err)
	mgr, err := subrecord.New(inst, inst.Schema(), "installments", subrecord.WithIDGenerator(sequence()))
	require.NoError(t, err)
	return inst, mgr
}

func TestAddAssignsIdentityAndTracksTotal(t *testing.T) {
	t.Parallel()

	inst, mgr := setup(t)

	first, err := mgr.Add(map[string]any{"percentage": 30})
	require.NoError(t, err)
	second, err := mgr.Add(map[string]any{"percentage": 70})
	require.NoError(t, err)

	assert.Equal(t, "item-1", first)
	assert.Equal(t, "item-2", second)
	assert.Equal(t, 100.0, mgr.Total())
	assert.Equal(t, 100.0, inst.LiveTotal("installments"))

	_, hasErr := inst.Record().Error("installments")
	assert.False(t, hasErr)

	items := mgr.List()
	require.Len(t, items, 2)
	assert.Equal(t, map[string]any{"percentage": 70}, items[1].Values)
}

func TestAggregateErrorFollowsMutations(t *testing.T) {
	t.Parallel()

	inst, mgr := setup(t)
	for i := 0; i < 3; i++ {
		_, err := mgr.Add(map[string]any{"percentage": "30"})
		require.NoError(t, err)
	}

	msg, ok := inst.Record().Error("installments")
	require.True(t, ok)
	assert.Equal(t, "Total is 90%, 10% missing", msg)

	found, err := mgr.Update("item-3", map[string]any{"percentage": "40"})
	require.NoError(t, err)
	assert.True(t, found)
	_, ok = inst.Record().Error("installments")
	assert.False(t, ok)
	assert.Equal(t, 100.0, mgr.Total())
}

func TestRemoveIsIdempotentAndKeepsIdentities(t *testing.T) {
	t.Parallel()

	_, mgr := setup(t)
	for _, pct := range []int{20, 30, 50} {
		_, err := mgr.Add(map[string]any{"percentage": pct})
		require.NoError(t, err)
	}

	require.NoError(t, mgr.Remove("item-2"))
	require.NoError(t, mgr.Remove("item-2"))
	require.NoError(t, mgr.Remove("missing"))

	var ids []string
	for _, item := range mgr.List() {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"item-1", "item-3"}, ids)
	assert.Equal(t, 70.0, mgr.Total())
}

func TestRemovingLastItemIsInvalid(t *testing.T) {
	t.Parallel()

	inst, mgr := setup(t)
	id, err := mgr.Add(map[string]any{"percentage": 100})
	require.NoError(t, err)
	require.NoError(t, mgr.Remove(id))

	assert.Empty(t, mgr.List())
	assert.Equal(t, 0.0, mgr.Total())
	msg, ok := inst.Record().Error("installments")
	require.True(t, ok)
	assert.Equal(t, "Total is 0%, 100% missing", msg)
}

func TestRemovingLastAllocationIsInvalid(t *testing.T) {
	t.Parallel()

	schema, err := besoin.FormFor(besoin.Special)
	require.NoError(t, err)
	inst, err := form.New(schema)
	require.NoError(t, err)
	mgr, err := subrecord.New(inst, inst.Schema(), "allocations", subrecord.WithIDGenerator(sequence()))
	require.NoError(t, err)

	id, err := mgr.Add(map[string]any{"beneficiaryId": "4", "percentage": 30})
	require.NoError(t, err)
	msg, ok := inst.Record().Error("allocations")
	require.True(t, ok)
	assert.Equal(t, "Total is 30%, 70% missing", msg)

	require.NoError(t, mgr.Remove(id))
	msg, ok = inst.Record().Error("allocations")
	require.True(t, ok)
	assert.Equal(t, "Total is 0%, 100% missing", msg)
	assert.Equal(t, "Total is 0%, 100% missing", inst.Validate().Errors["allocations"])
}

func TestUpdateUnknownIdentity(t *testing.T) {
	t.Parallel()

	_, mgr := setup(t)
	_, err := mgr.Add(map[string]any{"percentage": 100})
	require.NoError(t, err)

	found, err := mgr.Update("nope", map[string]any{"percentage": 1})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 100.0, mgr.Total())
}

func TestItemErrorsUseItemPath(t *testing.T) {
	t.Parallel()

	inst, mgr := setup(t)
	_, err := mgr.Add(map[string]any{"percentage": 60})
	require.NoError(t, err)
	_, err = mgr.Add(map[string]any{"percentage": 140})
	require.NoError(t, err)

	msg, ok := inst.Record().Error("installments.1.percentage")
	require.True(t, ok)
	assert.Equal(t, "Must be at most 100", msg)
}

func TestLoadedItemsReceiveIdentities(t *testing.T) {
	t.Parallel()

	inst, mgr := setup(t, form.WithValues(map[string]any{
		"installments": []map[string]any{{"percentage": 50}, {"percentage": 50}},
	}))

	items := mgr.List()
	require.Len(t, items, 2)
	assert.Equal(t, "item-1", items[0].ID)
	assert.Equal(t, "item-2", items[1].ID)

	payload, err := inst.Payload()
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"percentage": 50.0, "dueDate": ""},
		{"percentage": 50.0, "dueDate": ""},
	}, payload["installments"])
}

func TestRejectsNonListField(t *testing.T) {
	t.Parallel()

	inst, err := form.New(installmentsForm())
	require.NoError(t, err)

	_, err = subrecord.New(inst, inst.Schema(), "label")
	assert.ErrorIs(t, err, subrecord.ErrNotList)

	_, err = subrecord.New(inst, inst.Schema(), "unknown")
	assert.Error(t, err)
}
