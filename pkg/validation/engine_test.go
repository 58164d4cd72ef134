package validation_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-procure/pkg/condition"
	"github.com/goliatone/go-procure/pkg/model"
	"github.com/goliatone/go-procure/pkg/validation"
)

func orderForm() model.FormModel {
	return model.FormModel{
		ID: "order",
		Fields: []model.Field{
			{Name: "title", Type: model.FieldTypeString, Required: true, Validations: []model.ValidationRule{
				{Kind: model.ValidationRuleMinLength, Params: map[string]string{"value": "3"}},
			}},
			{Name: "email", Type: model.FieldTypeString, Validations: []model.ValidationRule{
				{Kind: model.ValidationRuleTag, Params: map[string]string{"tag": "email"}, Message: "Invalid email"},
			}},
			{Name: "hasPenalties", Type: model.FieldTypeBoolean},
			{Name: "amountBase", Type: model.FieldTypeNumber, VisibleWhen: "hasPenalties == true", RequiredWhen: "hasPenalties == true"},
			{Name: "installments", Type: model.FieldTypeList, Items: []model.Field{
				{Name: "percentage", Type: model.FieldTypeNumber, Validations: []model.ValidationRule{
					{Kind: model.ValidationRuleExclusiveMin, Params: map[string]string{"value": "0"}, Message: "Percentage must be above 0"},
					{Kind: model.ValidationRuleMax, Params: map[string]string{"value": "100"}, Message: "Percentage cannot exceed 100"},
				}},
			}},
		},
		Aggregates: []model.AggregateRule{
			{Field: "installments", SubField: "percentage", Target: 100, Mode: model.AggregateEqual, Unit: "%"},
		},
	}
}

func installments(percentages ...any) []map[string]any {
	out := make([]map[string]any, 0, len(percentages))
	for _, p := range percentages {
		out = append(out, map[string]any{"percentage": p})
	}
	return out
}

func validRecord() map[string]any {
	return map[string]any{
		"title":        "Laptops",
		"hasPenalties": false,
		"installments": installments(30, 70),
	}
}

func TestValidateValidRecord(t *testing.T) {
	t.Parallel()

	result := validation.New().Validate(orderForm(), condition.Context{Values: validRecord()})
	if !result.Valid() {
		t.Fatalf("expected valid record, got %v", result.Errors)
	}
	if result.FirstInvalid != "" {
		t.Fatalf("expected no first invalid field, got %q", result.FirstInvalid)
	}
	if diff := cmp.Diff(map[string]float64{"installments": 100}, result.Totals); diff != "" {
		t.Fatalf("totals mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateIsDeterministic(t *testing.T) {
	t.Parallel()

	engine := validation.New()
	record := map[string]any{"title": "", "email": "nope", "installments": installments(10)}
	first := engine.Validate(orderForm(), condition.Context{Values: record})
	second := engine.Validate(orderForm(), condition.Context{Values: record})
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("validation is not deterministic (-first +second):\n%s", diff)
	}
}

func TestAggregatePercentages(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		items []map[string]any
		want  string
	}{
		{name: "exact", items: installments(30, 70), want: ""},
		{name: "missing", items: installments(30, 30, 30), want: "Total is 90%, 10% missing"},
		{name: "over", items: installments(60, 60), want: "Total is 120%, 20% over"},
		{name: "empty list", items: installments(), want: "Total is 0%, 100% missing"},
		{name: "string input", items: installments("25", "75"), want: ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			record := validRecord()
			record["installments"] = tc.items
			result := validation.New().Validate(orderForm(), condition.Context{Values: record})
			if got := result.Errors["installments"]; got != tc.want {
				t.Fatalf("installments error: got %q want %q", got, tc.want)
			}
		})
	}
}

func TestAggregateRuleMessageOverride(t *testing.T) {
	t.Parallel()

	form := orderForm()
	form.Aggregates[0].Message = "Installments must cover the whole order"

	record := validRecord()
	record["installments"] = installments(40)
	result := validation.New().Validate(form, condition.Context{Values: record})
	if got := result.Errors["installments"]; got != "Installments must cover the whole order" {
		t.Fatalf("installments error: got %q", got)
	}
	if got := result.Totals["installments"]; got != 40 {
		t.Fatalf("installments total: got %v", got)
	}

	record["installments"] = installments(40, 60)
	result = validation.New().Validate(form, condition.Context{Values: record})
	if _, ok := result.Errors["installments"]; ok {
		t.Fatalf("unexpected error once the target is met: %v", result.Errors)
	}
}

func TestAggregateErrorStaysOnListField(t *testing.T) {
	t.Parallel()

	record := validRecord()
	record["installments"] = installments(50, 20)
	result := validation.New().Validate(orderForm(), condition.Context{Values: record})
	for key := range result.Errors {
		if strings.HasPrefix(key, "installments.") {
			t.Fatalf("aggregate error leaked onto item %q", key)
		}
	}
	if result.FirstInvalid != "installments" {
		t.Fatalf("first invalid: got %q", result.FirstInvalid)
	}
}

func TestPercentageRangeRejectsBothEnds(t *testing.T) {
	t.Parallel()

	record := validRecord()
	record["installments"] = installments("", 101)
	result := validation.New().Validate(orderForm(), condition.Context{Values: record})

	want := map[string]string{
		"installments.0.percentage": "Percentage must be above 0",
		"installments.1.percentage": "Percentage cannot exceed 100",
		"installments":              "Total is 101%, 1% over",
	}
	if diff := cmp.Diff(want, result.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if result.FirstInvalid != "installments" {
		t.Fatalf("first invalid: got %q", result.FirstInvalid)
	}
}

func TestConditionalRequirement(t *testing.T) {
	t.Parallel()

	engine := validation.New()
	record := validRecord()
	record["hasPenalties"] = true
	record["amountBase"] = ""

	result := engine.Validate(orderForm(), condition.Context{Values: record})
	if got := result.Errors["amountBase"]; got != "This field is required" {
		t.Fatalf("expected amountBase to be required, got %q", got)
	}

	record["hasPenalties"] = false
	result = engine.Validate(orderForm(), condition.Context{Values: record})
	if _, ok := result.Errors["amountBase"]; ok {
		t.Fatalf("expected no amountBase error once the gate is closed")
	}
}

func TestFieldOrderDecidesFirstInvalid(t *testing.T) {
	t.Parallel()

	record := map[string]any{"title": "ab", "email": "not-an-email", "installments": installments(100)}
	result := validation.New().Validate(orderForm(), condition.Context{Values: record})

	want := map[string]string{
		"title": "Must contain at least 3 characters",
		"email": "Invalid email",
	}
	if diff := cmp.Diff(want, result.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if result.FirstInvalid != "title" {
		t.Fatalf("first invalid: got %q", result.FirstInvalid)
	}
}

func TestValidateField(t *testing.T) {
	t.Parallel()

	engine := validation.New()
	form := orderForm()

	msg, ok := engine.ValidateField(form, condition.Context{Values: map[string]any{"title": ""}}, "title")
	if ok || msg != "This field is required" {
		t.Fatalf("title: got (%q, %v)", msg, ok)
	}

	msg, ok = engine.ValidateField(form, condition.Context{Values: map[string]any{"installments": installments(40)}}, "installments")
	if ok || msg != "Total is 40%, 60% missing" {
		t.Fatalf("installments: got (%q, %v)", msg, ok)
	}

	if _, ok := engine.ValidateField(form, condition.Context{}, "unknown"); !ok {
		t.Fatalf("unknown fields are valid")
	}
}

func TestCustomPredicateSeesRecord(t *testing.T) {
	t.Parallel()

	form := model.FormModel{Fields: []model.Field{
		{Name: "start", Type: model.FieldTypeDate},
		{Name: "end", Type: model.FieldTypeDate, Validations: []model.ValidationRule{
			{Kind: "after", Params: map[string]string{"field": "start"}, Message: "End must follow start"},
		}},
	}}
	after := func(value any, params map[string]string, ctx condition.Context) bool {
		start, _ := validation.Date(ctx.Values[params["field"]])
		end, _ := validation.Date(value)
		return start == "" || end > start
	}
	engine := validation.New(validation.WithPredicate("after", after))

	result := engine.Validate(form, condition.Context{Values: map[string]any{"start": "2025-02-01", "end": "2025-01-01"}})
	if got := result.Errors["end"]; got != "End must follow start" {
		t.Fatalf("got %q", got)
	}
	result = engine.Validate(form, condition.Context{Values: map[string]any{"start": "2025-02-01", "end": "2025-03-01"}})
	if !result.Valid() {
		t.Fatalf("expected valid, got %v", result.Errors)
	}
}

func TestGatedPredicateUsesSession(t *testing.T) {
	t.Parallel()

	form := model.FormModel{Fields: []model.Field{
		{Name: "amount", Type: model.FieldTypeNumber, Validations: []model.ValidationRule{
			{Kind: model.ValidationRuleMax, Params: map[string]string{"value": "1000"}, When: `session.roles != "director"`},
		}},
	}}
	record := map[string]any{"amount": "5000"}

	clerk := validation.New().Validate(form, condition.Context{Values: record, Session: condition.Session{Roles: []string{"clerk"}}})
	if got := clerk.Errors["amount"]; got != "Must be at most 1000" {
		t.Fatalf("clerk: got %q", got)
	}
	director := validation.New().Validate(form, condition.Context{Values: record, Session: condition.Session{Roles: []string{"director"}}})
	if !director.Valid() {
		t.Fatalf("director: expected valid, got %v", director.Errors)
	}
}

func TestUnparsableNumber(t *testing.T) {
	t.Parallel()

	form := model.FormModel{Fields: []model.Field{{Name: "amount", Type: model.FieldTypeNumber}}}
	result := validation.New().Validate(form, condition.Context{Values: map[string]any{"amount": "12abc"}})
	if got := result.Errors["amount"]; got != "Must be a number" {
		t.Fatalf("got %q", got)
	}
}
