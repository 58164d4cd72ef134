// Package server exposes the form schemas, server-side validation, the
// requisition table and the lookup search routes over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/goliatone/go-procure/components/lookups"
	"github.com/goliatone/go-procure/pkg/besoin"
	"github.com/goliatone/go-procure/pkg/condition"
	"github.com/goliatone/go-procure/pkg/fieldset"
	"github.com/goliatone/go-procure/pkg/form"
	"github.com/goliatone/go-procure/pkg/model"
	"github.com/goliatone/go-procure/pkg/table"
)

// Forms resolves form names to schemas and live instances.
type Forms interface {
	Names() []string
	Schema(name string) (model.FormModel, error)
	Mount(name string, session condition.Session, opts ...form.Option) (*form.Instance, error)
}

// BesoinSource lists requisitions.
type BesoinSource func(ctx context.Context) ([]besoin.Besoin, error)

type Config struct {
	BasePath string
	PageSize int
	Session  condition.Session
	// Collections are the lookup collections served under the lookups route.
	Collections []string
}

type Server struct {
	cfg     Config
	forms   Forms
	lookups lookups.Source
	besoins BesoinSource
	table   *table.Table[besoin.Besoin]
	logger  *zap.Logger
}

func New(cfg Config, forms Forms, source lookups.Source, besoins BesoinSource, logger *zap.Logger) (*Server, error) {
	if forms == nil {
		return nil, errors.New("server: forms are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t, err := besoin.NewTable()
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, forms: forms, lookups: source, besoins: besoins, table: t, logger: logger}, nil
}

// Handler builds the chi router.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	if len(s.cfg.Collections) > 0 {
		if _, err := lookups.RegisterRoutes(r, s.cfg.BasePath,
			lookups.WithSource(s.lookups),
			lookups.WithCollections(s.cfg.Collections...),
		); err != nil {
			return nil, err
		}
	}

	api := joinPath(s.cfg.BasePath, "/api")
	r.Get(api+"/forms", s.listForms)
	r.Get(api+"/forms/{name}", s.getForm)
	r.Post(api+"/forms/{name}/validate", s.validateForm)
	r.Get(api+"/besoins", s.listBesoins)
	return r, nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(started)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) listForms(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"data": s.forms.Names()})
}

// getForm returns a schema whose referenced fields point at the lookup
// routes of this server.
func (s *Server) getForm(w http.ResponseWriter, r *http.Request) {
	schema, err := s.forms.Schema(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "UNKNOWN_FORM", err.Error())
		return
	}
	schema = schema.Clone()
	dec := lookups.EndpointDecorator(s.cfg.BasePath, lookups.WithCollections(s.cfg.Collections...))
	if err := model.Decorate(&schema, dec); err != nil {
		s.writeError(w, http.StatusInternalServerError, "DECORATE_FAILED", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": schema})
}

type validateResponse struct {
	Valid        bool               `json:"valid"`
	Errors       map[string]string  `json:"errors,omitempty"`
	FirstInvalid string             `json:"firstInvalid,omitempty"`
	Totals       map[string]float64 `json:"totals,omitempty"`
	States       fieldset.States    `json:"states"`
	Payload      map[string]any     `json:"payload,omitempty"`
}

// validateForm runs the whole-record validation on posted values and
// returns the field states and, for a valid record, the coerced payload.
func (s *Server) validateForm(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	defer func() {
		_ = r.Body.Close()
	}()
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body: "+err.Error())
		return
	}

	inst, err := s.forms.Mount(chi.URLParam(r, "name"), s.cfg.Session, form.WithValues(values), form.WithLogger(s.logger))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "UNKNOWN_FORM", err.Error())
		return
	}
	result := inst.Validate()
	resp := validateResponse{
		Valid:        result.Valid(),
		Errors:       result.Errors,
		FirstInvalid: result.FirstInvalid,
		Totals:       result.Totals,
		States:       inst.States(),
	}
	if resp.Valid {
		payload, err := inst.Payload()
		if err != nil {
			s.writeError(w, http.StatusUnprocessableEntity, "INVALID_PAYLOAD", err.Error())
			return
		}
		resp.Payload = payload
	}
	status := http.StatusOK
	if !resp.Valid {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, resp)
}

type besoinPage struct {
	Data     []besoin.Besoin `json:"data"`
	Columns  []string        `json:"columns"`
	Total    int             `json:"total"`
	Filtered int             `json:"filtered"`
	Page     int             `json:"page"`
	Pages    int             `json:"pages"`
	PageSize int             `json:"pageSize"`
}

// listBesoins presents the requisition table. Query parameters: type,
// status, q, sort, desc, page (1-based), pageSize, hide (comma separated).
func (s *Server) listBesoins(w http.ResponseWriter, r *http.Request) {
	if s.besoins == nil {
		s.writeError(w, http.StatusServiceUnavailable, "NO_SOURCE", "requisitions are not configured")
		return
	}
	rows, err := s.besoins(r.Context())
	if err != nil {
		s.logger.Warn("list requisitions", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "UPSTREAM", err.Error())
		return
	}

	q := r.URL.Query()
	state := table.NewViewState(queryInt(r, "pageSize", s.cfg.PageSize))
	state.SetFilter("type", q.Get("type"))
	state.SetFilter("status", q.Get("status"))
	state.SetSearch(q.Get("q"))
	if sortKey := q.Get("sort"); sortKey != "" {
		state.SortBy(sortKey)
		if queryBool(r, "desc") {
			state.SortBy(sortKey)
		}
	}
	for _, col := range strings.Split(q.Get("hide"), ",") {
		if col = strings.TrimSpace(col); col != "" {
			state.ToggleColumn(col)
		}
	}
	state.SetPage(queryInt(r, "page", 1) - 1)

	view := s.table.Present(rows, state)
	page := besoinPage{
		Data:     view.Rows,
		Total:    view.Total,
		Filtered: view.Filtered,
		Page:     view.Page + 1,
		Pages:    view.Pages,
		PageSize: view.PageSize,
	}
	if page.Data == nil {
		page.Data = []besoin.Besoin{}
	}
	for _, col := range view.Columns {
		page.Columns = append(page.Columns, col.ID)
	}
	s.writeJSON(w, http.StatusOK, page)
}

func joinPath(base, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base != "" && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return base + path
}
