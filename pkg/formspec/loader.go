// Package formspec loads form models from declarative definitions: JSON or
// YAML documents on a filesystem, or the request bodies of an OpenAPI
// document.
package formspec

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-procure/pkg/condition/expr"
	"github.com/goliatone/go-procure/pkg/model"
)

// Store holds loaded forms keyed by id.
type Store struct {
	forms map[string]model.FormModel
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{forms: make(map[string]model.FormModel)}
}

// Add validates and registers a form. Ids must be unique.
func (s *Store) Add(form model.FormModel, source string) error {
	form.ID = strings.TrimSpace(form.ID)
	if form.ID == "" {
		return fmt.Errorf("formspec: %s defines a form without id", source)
	}
	if _, exists := s.forms[form.ID]; exists {
		return fmt.Errorf("formspec: duplicate form %q (%s)", form.ID, source)
	}
	if err := Check(form); err != nil {
		return fmt.Errorf("formspec: %s: %w", source, err)
	}
	s.forms[form.ID] = form
	return nil
}

// Form returns the form with id.
func (s *Store) Form(id string) (model.FormModel, bool) {
	if s == nil {
		return model.FormModel{}, false
	}
	form, ok := s.forms[id]
	return form, ok
}

// IDs lists the loaded form ids in lexical order.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.forms))
	for id := range s.forms {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether the store holds any form.
func (s *Store) Empty() bool {
	return s == nil || len(s.forms) == 0
}

type documentFile struct {
	Forms map[string]model.FormModel `json:"forms" yaml:"forms"`
}

// LoadFS walks fsys and loads every JSON/YAML form document. A document maps
// form ids to form models under a top-level "forms" key. When fsys is nil the
// returned store is empty.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := NewStore()
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("formspec: read %s: %w", path, err)
		}
		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(doc.Forms))
		for id := range doc.Forms {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			form := doc.Forms[id]
			if strings.TrimSpace(form.ID) == "" {
				form.ID = id
			}
			if err := store.Add(form, path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("formspec: file %s is empty", source)
	}
	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	doc = documentFile{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("formspec: parse %s: %w", source, err)
	}
	return doc, nil
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// Check verifies that a form is usable: field names are unique and non-empty,
// rule expressions parse and aggregate rules target list fields.
func Check(form model.FormModel) error {
	if err := checkFields(form.Fields, ""); err != nil {
		return fmt.Errorf("form %q: %w", form.ID, err)
	}
	for _, rule := range form.Aggregates {
		field, ok := form.Field(rule.Field)
		if !ok || field.Type != model.FieldTypeList {
			return fmt.Errorf("form %q: aggregate targets %q which is not a list field", form.ID, rule.Field)
		}
		found := false
		for _, sub := range field.Items {
			if sub.Name == rule.SubField {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("form %q: aggregate sub-field %q not declared on %q", form.ID, rule.SubField, rule.Field)
		}
		if err := checkRule(rule.When); err != nil {
			return fmt.Errorf("form %q: aggregate %q: %w", form.ID, rule.Field, err)
		}
	}
	return nil
}

func checkFields(fields []model.Field, prefix string) error {
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			return fmt.Errorf("field without name under %q", prefix)
		}
		path := prefix + name
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate field %q", path)
		}
		seen[name] = struct{}{}
		if field.Type == "" {
			return fmt.Errorf("field %q has no type", path)
		}
		for _, rule := range []string{field.VisibleWhen, field.EnabledWhen, field.RequiredWhen} {
			if err := checkRule(rule); err != nil {
				return fmt.Errorf("field %q: %w", path, err)
			}
		}
		for _, v := range field.Validations {
			if err := checkRule(v.When); err != nil {
				return fmt.Errorf("field %q: %w", path, err)
			}
		}
		if field.Type == model.FieldTypeList {
			if len(field.Items) == 0 {
				return fmt.Errorf("list field %q declares no item fields", path)
			}
			if err := checkFields(field.Items, path+"."); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkRule(rule string) error {
	if strings.TrimSpace(rule) == "" {
		return nil
	}
	_, err := expr.Parse(rule)
	return err
}
