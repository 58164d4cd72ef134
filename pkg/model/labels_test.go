package model

import "testing"

func TestLabelize(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"amount":        "Amount",
		"amountBase":    "Amount base",
		"due_date":      "Due date",
		"beneficiaryId": "Beneficiary id",
		"line2Total":    "Line 2 total",
		"--":            "",
		"taxID":         "Tax id",
	}
	for in, want := range cases {
		if got := Labelize(in); got != want {
			t.Errorf("Labelize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayLabelPrefersExplicitLabel(t *testing.T) {
	if got := (Field{Name: "object", Label: "Subject"}).DisplayLabel(); got != "Subject" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := (Field{Name: "neededBy"}).DisplayLabel(); got != "Needed by" {
		t.Fatalf("unexpected label %q", got)
	}
}
