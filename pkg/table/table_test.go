package table_test

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-procure/pkg/table"
)

type provider struct {
	ID     int
	Name   string
	City   string
	Amount float64
}

func providerTable(t *testing.T) *table.Table[provider] {
	t.Helper()
	tbl, err := table.New(
		func(p provider) string { return strconv.Itoa(p.ID) },
		table.Column[provider]{ID: "name", Label: "Name", Value: func(p provider) string { return p.Name }, Searchable: true},
		table.Column[provider]{ID: "city", Label: "City", Value: func(p provider) string { return p.City }, Searchable: true},
		table.Column[provider]{
			ID:    "amount",
			Label: "Amount",
			Value: func(p provider) string { return strconv.FormatFloat(p.Amount, 'f', 2, 64) },
			Less:  func(a, b provider) bool { return a.Amount < b.Amount },
			Filter: func(p provider, value string) bool {
				min, err := strconv.ParseFloat(value, 64)
				return err == nil && p.Amount >= min
			},
		},
	)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	return tbl
}

func providers() []provider {
	return []provider{
		{ID: 1, Name: "Café du Port", City: "Tunis", Amount: 120},
		{ID: 2, Name: "Cafeteria Centrale", City: "Sfax", Amount: 80},
		{ID: 3, Name: "Électricité Générale", City: "Sousse", Amount: 300},
		{ID: 4, Name: "Bureau Plus", City: "Tunis", Amount: 80},
		{ID: 5, Name: "Imprimerie Nord", City: "Bizerte", Amount: 45},
	}
}

func ids(rows []provider) []int {
	out := make([]int, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ID)
	}
	return out
}

func TestFoldIgnoresCaseAndAccents(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Café":        "cafe",
		"ÉLECTRICITÉ": "electricite",
		"plain":       "plain",
	}
	for in, want := range cases {
		if got := table.Fold(in); got != want {
			t.Fatalf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSearchMatchesAccentInsensitive(t *testing.T) {
	t.Parallel()

	tbl := providerTable(t)
	state := table.NewViewState(10)
	state.SetSearch("cafe")

	view := tbl.Present(providers(), state)
	if diff := cmp.Diff([]int{1, 2}, ids(view.Rows)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if view.Filtered != 2 || view.Total != 5 {
		t.Fatalf("counts: filtered=%d total=%d", view.Filtered, view.Total)
	}

	state.SetSearch("ELECTRICITE")
	view = tbl.Present(providers(), state)
	if diff := cmp.Diff([]int{3}, ids(view.Rows)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestFiltersAreANDed(t *testing.T) {
	t.Parallel()

	tbl := providerTable(t)
	state := table.NewViewState(10)
	state.SetFilter("city", "tunis")
	state.SetFilter("amount", "100")

	view := tbl.Present(providers(), state)
	if diff := cmp.Diff([]int{1}, ids(view.Rows)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	state.SetFilter("amount", "")
	state.SetSearch("bureau")
	view = tbl.Present(providers(), state)
	if diff := cmp.Diff([]int{4}, ids(view.Rows)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestSortIsStableAndToggles(t *testing.T) {
	t.Parallel()

	tbl := providerTable(t)
	state := table.NewViewState(10)

	state.SortBy("amount")
	view := tbl.Present(providers(), state)
	if diff := cmp.Diff([]int{5, 2, 4, 1, 3}, ids(view.Rows)); diff != "" {
		t.Fatalf("ascending mismatch (-want +got):\n%s", diff)
	}

	state.SortBy("amount")
	view = tbl.Present(providers(), state)
	if diff := cmp.Diff([]int{3, 1, 2, 4, 5}, ids(view.Rows)); diff != "" {
		t.Fatalf("descending mismatch (-want +got):\n%s", diff)
	}

	state.SortBy("name")
	view = tbl.Present(providers(), state)
	if diff := cmp.Diff([]int{4, 1, 2, 3, 5}, ids(view.Rows)); diff != "" {
		t.Fatalf("name mismatch (-want +got):\n%s", diff)
	}
}

func TestPaginationClampsAndCounts(t *testing.T) {
	t.Parallel()

	tbl := providerTable(t)
	state := table.NewViewState(2)

	view := tbl.Present(providers(), state)
	if view.Pages != 3 {
		t.Fatalf("pages: got %d, want 3", view.Pages)
	}

	state.SetPage(7)
	view = tbl.Present(providers(), state)
	if view.Page != 2 {
		t.Fatalf("page: got %d, want clamp to 2", view.Page)
	}
	if diff := cmp.Diff([]int{5}, ids(view.Rows)); diff != "" {
		t.Fatalf("last page mismatch (-want +got):\n%s", diff)
	}

	state.SetPage(-3)
	view = tbl.Present(providers(), state)
	if view.Page != 0 {
		t.Fatalf("page: got %d, want 0", view.Page)
	}

	state.SetSearch("nothing matches this")
	view = tbl.Present(providers(), state)
	if view.Pages != 0 || view.Page != 0 || len(view.Rows) != 0 {
		t.Fatalf("empty view: %+v", view)
	}
}

func TestStateSettersResetPage(t *testing.T) {
	t.Parallel()

	steps := []struct {
		name  string
		apply func(*table.ViewState)
		reset bool
	}{
		{"search", func(s *table.ViewState) { s.SetSearch("x") }, true},
		{"filter", func(s *table.ViewState) { s.SetFilter("city", "Sfax") }, true},
		{"page size", func(s *table.ViewState) { s.SetPageSize(25) }, true},
		{"clear", func(s *table.ViewState) { s.ClearFilters() }, true},
		{"sort", func(s *table.ViewState) { s.SortBy("name") }, false},
		{"column", func(s *table.ViewState) { s.ToggleColumn("city") }, false},
	}
	for _, step := range steps {
		step := step
		t.Run(step.name, func(t *testing.T) {
			t.Parallel()
			state := table.NewViewState(10)
			state.SetPage(3)
			step.apply(&state)
			want := 3
			if step.reset {
				want = 0
			}
			if state.Page != want {
				t.Fatalf("page: got %d, want %d", state.Page, want)
			}
		})
	}
}

func TestHiddenColumnsArePresentational(t *testing.T) {
	t.Parallel()

	tbl := providerTable(t)
	state := table.NewViewState(10)
	state.SetSearch("sousse")
	state.SortBy("city")
	state.ToggleColumn("city")

	view := tbl.Present(providers(), state)
	if diff := cmp.Diff([]int{3}, ids(view.Rows)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	var cols []string
	for _, col := range view.Columns {
		cols = append(cols, col.ID)
	}
	if diff := cmp.Diff([]string{"name", "amount"}, cols); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestBulkActionSkipsFilteredOutRows(t *testing.T) {
	t.Parallel()

	tbl := providerTable(t)
	state := table.NewViewState(1)
	sel := table.NewSelection()

	table.SelectAll(sel, tbl.Present(providers(), state))
	if sel.Len() != 5 {
		t.Fatalf("selected %d rows, want 5", sel.Len())
	}

	state.SetFilter("city", "tunis")
	view := tbl.Present(providers(), state)

	var accepted []string
	err := table.Apply(context.Background(), sel, view, func(_ context.Context, keys []string) error {
		accepted = keys
		return nil
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if diff := cmp.Diff([]string{"1", "4"}, accepted); diff != "" {
		t.Fatalf("targets mismatch (-want +got):\n%s", diff)
	}

	sel.Clear()
	table.SelectPage(sel, view)
	if diff := cmp.Diff([]string{"1"}, table.Targets(sel, view)); diff != "" {
		t.Fatalf("page targets mismatch (-want +got):\n%s", diff)
	}

	sel.Toggle("1")
	called := false
	_ = table.Apply(context.Background(), sel, view, func(context.Context, []string) error {
		called = true
		return nil
	})
	if called {
		t.Fatalf("action must not run on an empty selection")
	}
}

func TestNewRejectsInvalidColumns(t *testing.T) {
	t.Parallel()

	key := func(p provider) string { return fmt.Sprint(p.ID) }
	if _, err := table.New[provider](nil); err == nil {
		t.Fatalf("expected error for missing key")
	}
	if _, err := table.New(key, table.Column[provider]{ID: "a"}, table.Column[provider]{ID: "a"}); err == nil {
		t.Fatalf("expected error for duplicate column")
	}
}
