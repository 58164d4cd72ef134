package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goliatone/go-procure/internal/config"
	"github.com/goliatone/go-procure/internal/registry"
	"github.com/goliatone/go-procure/pkg/api"
	"github.com/goliatone/go-procure/pkg/besoin"
	"github.com/goliatone/go-procure/pkg/condition"
	"github.com/goliatone/go-procure/pkg/prompt"
	"github.com/goliatone/go-procure/pkg/table"
)

func init() {
	logger = zap.NewNop()
}

type scriptedDriver struct {
	inputs   []string
	confirms []bool
}

func (s *scriptedDriver) Input(context.Context, prompt.InputConfig) (string, error) {
	if len(s.inputs) == 0 {
		return "", errors.New("no input scripted")
	}
	v := s.inputs[0]
	s.inputs = s.inputs[1:]
	return v, nil
}

func (s *scriptedDriver) TextArea(ctx context.Context, cfg prompt.InputConfig) (string, error) {
	return s.Input(ctx, cfg)
}

func (s *scriptedDriver) Confirm(context.Context, prompt.ConfirmConfig) (bool, error) {
	if len(s.confirms) == 0 {
		return false, errors.New("no confirm scripted")
	}
	v := s.confirms[0]
	s.confirms = s.confirms[1:]
	return v, nil
}

func (s *scriptedDriver) Select(context.Context, prompt.SelectConfig) (int, error) {
	return -1, errors.New("no select scripted")
}

func (s *scriptedDriver) MultiSelect(context.Context, prompt.SelectConfig) ([]int, error) {
	return nil, errors.New("no multiselect scripted")
}

func (s *scriptedDriver) Info(context.Context, string) error { return nil }

func TestNewLogger(t *testing.T) {
	l, err := newLogger(config.Log{Level: "warn"}, false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))

	l, err = newLogger(config.Log{Level: "warn", Development: true}, true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))

	_, err = newLogger(config.Log{Level: "loud"}, false)
	assert.Error(t, err)
}

func TestViewFlagsState(t *testing.T) {
	f := viewFlags{requestType: "achat", search: "café", sort: "amount", desc: true, page: 3, hide: []string{" requester "}}
	state := f.state(25)

	assert.Equal(t, map[string]string{"type": "achat"}, state.Filters)
	assert.Equal(t, "café", state.Search)
	assert.Equal(t, "amount", state.SortKey)
	assert.True(t, state.SortDesc)
	assert.Equal(t, 2, state.Page)
	assert.Equal(t, 25, state.PageSize)
	assert.True(t, state.HiddenColumns["requester"])

	assert.Equal(t, 5, viewFlags{pageSize: 5, page: 1}.state(25).PageSize)
}

func TestRenderView(t *testing.T) {
	tbl, err := besoin.NewTable()
	require.NoError(t, err)
	state := table.NewViewState(1)
	state.ToggleColumn("createdAt")
	view := tbl.Present([]besoin.Besoin{
		{ID: 1, Type: besoin.Achat, Object: "Laptops", Status: besoin.StatusPending},
		{ID: 2, Type: besoin.RH, Object: "Intern", Status: besoin.StatusAccepted},
	}, state)

	var out bytes.Buffer
	require.NoError(t, renderView(&out, view))
	text := out.String()
	assert.Contains(t, text, "Object")
	assert.Contains(t, text, "Laptops")
	assert.NotContains(t, text, "Intern")
	assert.NotContains(t, text, "Created")
	assert.Contains(t, text, "page 1/2, 2 of 2 rows")
}

type received struct {
	mu      sync.Mutex
	bodies  []map[string]any
	targets []string
}

func (r *received) add(target string, body map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, target)
	r.bodies = append(r.bodies, body)
}

func (r *received) snapshot() ([]string, []map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.targets...), append([]map[string]any(nil), r.bodies...)
}

func newAPI(t *testing.T) (*api.Client, *received) {
	t.Helper()
	got := &received{}
	r := chi.NewRouter()
	record := func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(req.Body).Decode(&body)
		got.add(req.Method+" "+req.URL.Path, body)
		w.WriteHeader(http.StatusNoContent)
	}
	r.Post("/api/besoins", record)
	r.Patch("/api/besoins/{id}", record)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL + "/api")
	require.NoError(t, err)
	return client, got
}

func TestFillAndSubmitRequisition(t *testing.T) {
	client, got := newAPI(t)

	inst, err := registry.New(nil).Mount("other", condition.Session{UserID: "8"})
	require.NoError(t, err)

	// type is an enum without options, so it is asked as text.
	driver := &scriptedDriver{
		inputs:   []string{"other", "Badge printer", "4", "8,9", "", "For the reception desk"},
		confirms: []bool{true},
	}
	var out bytes.Buffer
	require.NoError(t, fillAndSubmit(context.Background(), &out, driver, inst, client.SubmitFunc(inst.Schema()), false))

	targets, bodies := got.snapshot()
	require.Equal(t, []string{"POST /api/besoins"}, targets)
	assert.Equal(t, []any{8.0, 9.0}, bodies[0]["beneficiaries"])
	assert.Equal(t, "For the reception desk", bodies[0]["details"])
	assert.Contains(t, out.String(), "Saved")
}

func TestFillAndSubmitDryRun(t *testing.T) {
	client, got := newAPI(t)

	inst, err := registry.New(nil).Mount("other", condition.Session{UserID: "8"})
	require.NoError(t, err)
	driver := &scriptedDriver{inputs: []string{"other", "Badge printer", "4", "", "", "Desk"}}

	var out bytes.Buffer
	require.NoError(t, fillAndSubmit(context.Background(), &out, driver, inst, client.SubmitFunc(inst.Schema()), true))
	targets, _ := got.snapshot()
	assert.Empty(t, targets)
	assert.Contains(t, out.String(), "Desk")
}

func TestReviewTargetsOnlyFilteredSelection(t *testing.T) {
	client, got := newAPI(t)

	tbl, err := besoin.NewTable()
	require.NoError(t, err)
	rows := []besoin.Besoin{
		{ID: 1, Type: besoin.Achat, Status: besoin.StatusPending},
		{ID: 2, Type: besoin.RH, Status: besoin.StatusPending},
		{ID: 3, Type: besoin.Achat, Status: besoin.StatusPending},
	}
	state := table.NewViewState(1)
	state.SetFilter("type", "achat")
	view := tbl.Present(rows, state)

	sel := table.NewSelection()
	sel.Toggle("2")
	table.SelectAll(sel, view)

	var out bytes.Buffer
	require.NoError(t, review(context.Background(), &out, client, sel, view, besoin.StatusAccepted))
	targets, bodies := got.snapshot()
	assert.Equal(t, []string{"PATCH /api/besoins/1", "PATCH /api/besoins/3"}, targets)
	assert.Equal(t, "accepted", bodies[0]["status"])
	assert.True(t, strings.Contains(out.String(), "2 requisition(s) marked accepted"))

	out.Reset()
	require.NoError(t, review(context.Background(), &out, client, table.NewSelection(), view, besoin.StatusAccepted))
	assert.Contains(t, out.String(), "nothing selected")
}

func TestCatalogSource(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/providers", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":7,"name":"Atlas"}]}`))
	})
	r.Get("/api/employees", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	client, err := api.New(srv.URL + "/api")
	require.NoError(t, err)

	src := catalogSource(client)
	opts, ok, err := src.Collection(context.Background(), "providers")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Atlas", opts[0].Label)

	_, ok, err = src.Collection(context.Background(), "quotations")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = src.Collection(context.Background(), "employees")
	assert.Error(t, err)
}
