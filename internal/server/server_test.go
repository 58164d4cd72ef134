package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-procure/components/lookups"
	"github.com/goliatone/go-procure/internal/registry"
	"github.com/goliatone/go-procure/pkg/besoin"
	"github.com/goliatone/go-procure/pkg/condition"
)

func fixtures() []besoin.Besoin {
	day := func(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }
	return []besoin.Besoin{
		{ID: 1, Type: besoin.Achat, Object: "Laptops", Department: "Finance", Status: besoin.StatusPending, Amount: 4000, CreatedAt: day(1)},
		{ID: 2, Type: besoin.RH, Object: "Intern", Department: "Ressources humaines", Status: besoin.StatusAccepted, CreatedAt: day(2)},
		{ID: 3, Type: besoin.Achat, Object: "Chaises", Department: "Comptabilité", Status: besoin.StatusPending, Amount: 900, CreatedAt: day(3)},
		{ID: 4, Type: besoin.Other, Object: "Badge", Department: "Accueil", Status: besoin.StatusRejected, CreatedAt: day(4)},
	}
}

func newTestServer(t *testing.T, besoins BesoinSource) http.Handler {
	t.Helper()
	source := lookups.StaticSource{
		"providers": {{Value: "7", Label: "Atlas Fournitures"}, {Value: "9", Label: "Société Nord"}},
	}
	srv, err := New(Config{
		BasePath:    "/admin",
		PageSize:    2,
		Session:     condition.Session{UserID: "31"},
		Collections: []string{"providers", "employees"},
	}, registry.New(nil), source, besoins, nil)
	require.NoError(t, err)
	h, err := srv.Handler()
	require.NoError(t, err)
	return h
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, reader))
	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestListForms(t *testing.T) {
	t.Parallel()

	rec, out := do(t, newTestServer(t, nil), http.MethodGet, "/admin/api/forms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, out["data"], "purchase-order")
	assert.Contains(t, out["data"], "achat")
}

func TestGetFormPointsReferencesAtLookupRoutes(t *testing.T) {
	t.Parallel()

	rec, out := do(t, newTestServer(t, nil), http.MethodGet, "/admin/api/forms/purchase-order", "")
	require.Equal(t, http.StatusOK, rec.Code)

	fields := out["data"].(map[string]any)["fields"].([]any)
	provider := fields[0].(map[string]any)
	assert.Equal(t, "provider", provider["name"])
	assert.Equal(t, "/admin/api/lookups/providers", provider["metadata"].(map[string]any)[lookups.MetadataEndpoint])

	quotation := fields[1].(map[string]any)
	assert.Nil(t, quotation["metadata"], "quotations are not served")

	rec, _ = do(t, newTestServer(t, nil), http.MethodGet, "/admin/api/forms/invoice", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLookupRoutes(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)
	rec, out := do(t, h, http.MethodGet, "/admin/api/lookups/providers?q=societe", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := out["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "9", data[0].(map[string]any)["value"])

	rec, _ = do(t, h, http.MethodGet, "/admin/api/lookups/employees", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateForm(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)
	body := `{"provider":"7","quotation":"120","object":"Laptops","amount":1000,
		"hasPenalties":true,"amountBase":1500,
		"installments":[{"percentage":30,"dueDate":"2025-04-01"}]}`
	rec, out := do(t, h, http.MethodPost, "/admin/api/forms/purchase-order/validate", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, false, out["valid"])
	errs := out["errors"].(map[string]any)
	assert.Equal(t, "Base amount cannot exceed the order amount", errs["amountBase"])
	assert.Equal(t, "Total is 30%, 70% missing", errs["installments"])
	assert.Equal(t, "This field is required", errs["penaltyMode"])
	assert.Equal(t, 30.0, out["totals"].(map[string]any)["installments"])

	body = `{"provider":"7","quotation":"120","object":"Laptops","amount":1000,
		"installments":[{"percentage":100,"dueDate":"2025-04-01"}]}`
	rec, out = do(t, h, http.MethodPost, "/admin/api/forms/purchase-order/validate", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["valid"])
	states := out["states"].(map[string]any)
	assert.Equal(t, false, states["amountBase"].(map[string]any)["visible"])
	payload := out["payload"].(map[string]any)
	assert.Equal(t, []any{31.0}, payload["beneficiaries"])
	assert.NotContains(t, payload, "amountBase")

	rec, _ = do(t, h, http.MethodPost, "/admin/api/forms/purchase-order/validate", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListBesoins(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, func(context.Context) ([]besoin.Besoin, error) { return fixtures(), nil })

	rec, out := do(t, h, http.MethodGet, "/admin/api/besoins?type=achat&sort=amount&page=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, out["filtered"])
	assert.Equal(t, 4.0, out["total"])
	data := out["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, 3.0, data[0].(map[string]any)["id"])

	_, out = do(t, h, http.MethodGet, "/admin/api/besoins?q=comptabilite", "")
	assert.Equal(t, 1.0, out["filtered"])

	_, out = do(t, h, http.MethodGet, "/admin/api/besoins?page=9&hide=amount,createdAt", "")
	assert.Equal(t, 2.0, out["page"])
	assert.Equal(t, 2.0, out["pages"])
	assert.NotContains(t, out["columns"], "amount")
	assert.Contains(t, out["columns"], "object")
}

func TestListBesoinsErrors(t *testing.T) {
	t.Parallel()

	rec, _ := do(t, newTestServer(t, nil), http.MethodGet, "/admin/api/besoins", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	failing := func(context.Context) ([]besoin.Besoin, error) { return nil, errors.New("upstream down") }
	rec, out := do(t, newTestServer(t, failing), http.MethodGet, "/admin/api/besoins", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "UPSTREAM", out["code"])
}
