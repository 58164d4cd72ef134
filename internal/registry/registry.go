// Package registry resolves form names to schemas and mounted instances:
// requisition types, the purchase order and declarative forms.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-procure/internal/source"
	"github.com/goliatone/go-procure/pkg/besoin"
	"github.com/goliatone/go-procure/pkg/condition"
	"github.com/goliatone/go-procure/pkg/form"
	"github.com/goliatone/go-procure/pkg/formspec"
	"github.com/goliatone/go-procure/pkg/model"
	"github.com/goliatone/go-procure/pkg/purchaseorder"
)

// PurchaseOrder is the name of the purchase order form.
const PurchaseOrder = "purchase-order"

type Registry struct {
	store *formspec.Store
}

// New wraps store; a nil store holds no declarative form.
func New(store *formspec.Store) *Registry {
	if store == nil {
		store = formspec.NewStore()
	}
	return &Registry{store: store}
}

// Load reads the embedded declarative forms plus, when openAPI is set, the
// request bodies of the OpenAPI document found there.
func Load(ctx context.Context, reader source.Reader, openAPI string) (*Registry, error) {
	store, err := formspec.LoadFS(formspec.EmbeddedFS())
	if err != nil {
		return nil, err
	}
	if openAPI = strings.TrimSpace(openAPI); openAPI != "" {
		data, err := reader.Read(ctx, openAPI)
		if err != nil {
			return nil, fmt.Errorf("registry: read %s: %w", openAPI, err)
		}
		extra, err := formspec.FromOpenAPI(ctx, data)
		if err != nil {
			return nil, err
		}
		for _, id := range extra.IDs() {
			f, _ := extra.Form(id)
			if err := store.Add(f, openAPI); err != nil {
				return nil, err
			}
		}
	}
	return New(store), nil
}

// Names lists every form name: requisition types, then the purchase order,
// then declarative forms in lexical order.
func (r *Registry) Names() []string {
	var out []string
	for _, t := range besoin.AllRequestTypes() {
		out = append(out, t.String())
	}
	out = append(out, PurchaseOrder)
	ids := r.store.IDs()
	sort.Strings(ids)
	return append(out, ids...)
}

// Schema returns the schema of name.
func (r *Registry) Schema(name string) (model.FormModel, error) {
	name = strings.TrimSpace(name)
	if name == PurchaseOrder {
		return purchaseorder.Form(), nil
	}
	if t, err := besoin.ParseRequestType(name); err == nil {
		return besoin.FormFor(t)
	}
	if f, ok := r.store.Form(name); ok {
		return f, nil
	}
	return model.FormModel{}, fmt.Errorf("registry: unknown form %q (known: %s)", name, strings.Join(r.Names(), ", "))
}

// Mount builds a live instance of name. Requisitions and purchase orders get
// their beneficiary normalisation.
func (r *Registry) Mount(name string, session condition.Session, opts ...form.Option) (*form.Instance, error) {
	name = strings.TrimSpace(name)
	if name == PurchaseOrder {
		return purchaseorder.New(session, opts...)
	}
	schema, err := r.Schema(name)
	if err != nil {
		return nil, err
	}
	base := []form.Option{form.WithSession(session)}
	if _, err := besoin.ParseRequestType(name); err == nil {
		base = append(base, form.WithTransformer(besoin.NormalizeTransformer()))
	}
	return form.New(schema, append(base, opts...)...)
}

// Collections lists the lookup collections referenced by any form.
func (r *Registry) Collections() []string {
	seen := make(map[string]struct{})
	for _, name := range r.Names() {
		schema, err := r.Schema(name)
		if err != nil {
			continue
		}
		collectReferences(schema.Fields, seen)
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func collectReferences(fields []model.Field, seen map[string]struct{}) {
	for _, field := range fields {
		if field.Reference != "" {
			seen[field.Reference] = struct{}{}
		}
		collectReferences(field.Items, seen)
	}
}
