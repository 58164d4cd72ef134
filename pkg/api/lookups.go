package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-procure/pkg/model"
)

// Entry is one item of a lookup collection.
type Entry struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Catalog holds loaded lookup collections (providers, quotations,
// departments, employees...). It implements form.Lookup.
type Catalog map[string][]Entry

// Has reports whether id is part of collection. A collection that was never
// loaded holds nothing.
func (c Catalog) Has(collection, id string) bool {
	for _, entry := range c[collection] {
		if entry.ID == id {
			return true
		}
	}
	return false
}

// Options renders a collection as enum options.
func (c Catalog) Options(collection string) []model.Option {
	entries := c[collection]
	out := make([]model.Option, 0, len(entries))
	for _, entry := range entries {
		out = append(out, model.Option{Value: entry.ID, Label: entry.Label})
	}
	return out
}

// Decorator attaches the loaded options to every field, including list item
// fields, whose Reference names a loaded collection.
func (c Catalog) Decorator() model.Decorator {
	return model.DecoratorFunc(func(form *model.FormModel) error {
		c.decorate(form.Fields)
		return nil
	})
}

func (c Catalog) decorate(fields []model.Field) {
	for i := range fields {
		if ref := fields[i].Reference; ref != "" {
			if _, ok := c[ref]; ok {
				fields[i].Options = c.Options(ref)
			}
		}
		if len(fields[i].Items) > 0 {
			c.decorate(fields[i].Items)
		}
	}
}

// References lists the distinct lookup collections referenced by form.
func References(form model.FormModel) []string {
	seen := make(map[string]struct{})
	var walk func([]model.Field)
	walk = func(fields []model.Field) {
		for _, field := range fields {
			if field.Reference != "" {
				seen[field.Reference] = struct{}{}
			}
			walk(field.Items)
		}
	}
	walk(form.Fields)
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LoadLookups fetches collections concurrently, each from "/<collection>".
// It fails as a whole when any collection cannot be loaded.
func (c *Client) LoadLookups(ctx context.Context, collections ...string) (Catalog, error) {
	catalog := make(Catalog, len(collections))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, name := range collections {
		name := strings.TrimSpace(name)
		if name == "" {
			continue
		}
		g.Go(func() error {
			var rows []map[string]json.RawMessage
			if err := c.List(gctx, "/"+name, &rows); err != nil {
				return fmt.Errorf("api: lookup %s: %w", name, err)
			}
			entries := make([]Entry, 0, len(rows))
			for _, row := range rows {
				if entry, ok := toEntry(row); ok {
					entries = append(entries, entry)
				}
			}
			mu.Lock()
			catalog[name] = entries
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return catalog, nil
}

var labelKeys = []string{"label", "name", "title", "object", "reference"}

func toEntry(row map[string]json.RawMessage) (Entry, bool) {
	id := scalar(row["id"])
	if id == "" {
		return Entry{}, false
	}
	entry := Entry{ID: id, Label: id}
	for _, key := range labelKeys {
		if label := scalar(row[key]); label != "" {
			entry.Label = label
			break
		}
	}
	return entry, true
}

// scalar renders a JSON string or number without quotes; anything else is "".
func scalar(raw json.RawMessage) string {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
