package expr

import (
	"testing"

	"github.com/goliatone/go-procure/pkg/condition"
)

func evalRule(t *testing.T, rule string, ctx condition.Context) bool {
	t.Helper()
	ok, err := New().Eval("field", rule, ctx)
	if err != nil {
		t.Fatalf("Eval(%q) returned error: %v", rule, err)
	}
	return ok
}

func TestEvaluatorBooleanGate(t *testing.T) {
	t.Parallel()

	if !evalRule(t, "hasPenalties == true", condition.Context{Values: map[string]any{"hasPenalties": true}}) {
		t.Fatalf("expected true for bool true")
	}
	if !evalRule(t, "hasPenalties == true", condition.Context{Values: map[string]any{"hasPenalties": "true"}}) {
		t.Fatalf("expected true for string true")
	}
	if evalRule(t, "hasPenalties", condition.Context{Values: map[string]any{"hasPenalties": false}}) {
		t.Fatalf("expected false for falsy gate")
	}
	if !evalRule(t, "!hasPenalties", condition.Context{Values: map[string]any{}}) {
		t.Fatalf("expected missing value to be falsy")
	}
}

func TestEvaluatorEnumSelection(t *testing.T) {
	t.Parallel()

	ctx := condition.Context{Values: map[string]any{"beneficiary": "other"}}
	if !evalRule(t, `beneficiary == "other"`, ctx) {
		t.Fatalf("expected quoted comparison to match")
	}
	if !evalRule(t, `beneficiary == 'other'`, ctx) {
		t.Fatalf("expected single-quoted comparison to match")
	}
	if !evalRule(t, "beneficiary == other", ctx) {
		t.Fatalf("expected bare word comparison to match")
	}
	if evalRule(t, `beneficiary != "other"`, ctx) {
		t.Fatalf("expected != to be false")
	}
}

func TestEvaluatorOrdering(t *testing.T) {
	t.Parallel()

	ctx := condition.Context{Values: map[string]any{
		"amount":  "1500",
		"dueDate": "2025-03-01",
	}}

	cases := map[string]bool{
		"amount > 1000":                  true,
		"amount >= 1500":                 true,
		"amount < 1500":                  false,
		"amount <= 1000":                 false,
		`dueDate < "2025-04-01"`:         true,
		`dueDate >= "2025-03-02"`:        false,
		"amount > 1000 && amount < 2000": true,
	}
	for rule, want := range cases {
		if got := evalRule(t, rule, ctx); got != want {
			t.Fatalf("%s: got %v want %v", rule, got, want)
		}
	}
}

func TestEvaluatorSessionRoles(t *testing.T) {
	t.Parallel()

	ctx := condition.Context{Session: condition.Session{UserID: "42", Roles: []string{"buyer", "approver"}}}
	if !evalRule(t, `session.roles == "approver"`, ctx) {
		t.Fatalf("expected role membership")
	}
	if !evalRule(t, `session.roles != "admin"`, ctx) {
		t.Fatalf("expected missing role to satisfy !=")
	}
	if !evalRule(t, `session.userId == "42"`, ctx) {
		t.Fatalf("expected user id lookup")
	}
}

func TestEvaluatorDotLookupAndGrouping(t *testing.T) {
	t.Parallel()

	ctx := condition.Context{Values: map[string]any{
		"provider": map[string]any{"kind": "local"},
		"flat.key": "x",
		"a":        false,
		"b":        true,
	}}
	if !evalRule(t, `provider.kind == "local"`, ctx) {
		t.Fatalf("expected nested lookup")
	}
	if !evalRule(t, `flat.key == "x"`, ctx) {
		t.Fatalf("expected flattened key lookup")
	}
	if !evalRule(t, "(a || b) && !a", ctx) {
		t.Fatalf("expected grouped expression to hold")
	}
}

func TestEvaluatorParseErrors(t *testing.T) {
	t.Parallel()

	for _, rule := range []string{"a = 1", "a & b", "(a", `a == "open`, "a > true", "=="} {
		if _, err := New().Eval("field", rule, condition.Context{}); err == nil {
			t.Fatalf("expected error for %q", rule)
		}
	}
}

func TestEvaluatorEmptyRuleHolds(t *testing.T) {
	t.Parallel()

	if !evalRule(t, "   ", condition.Context{}) {
		t.Fatalf("expected empty rule to hold")
	}
}
