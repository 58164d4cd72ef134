package formspec

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-procure/pkg/model"
)

// ExtensionKey is the schema extension carrying form behaviour the OpenAPI
// vocabulary cannot express (rules, references, aggregates).
const ExtensionKey = "x-procure"

var mediaTypes = []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"}

// FromOpenAPI derives one form per operation of an OpenAPI 3 document that
// declares an object request body. Form ids are operation ids, or
// "<method>:<path>" when an operation has none.
func FromOpenAPI(ctx context.Context, data []byte) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("formspec: openapi document is empty")
	}

	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("formspec: load openapi document: %w", err)
	}
	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return nil, errors.New("formspec: openapi document does not contain any paths")
	}

	store := NewStore()
	paths := doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for path := range paths {
		keys = append(keys, path)
	}
	sort.Strings(keys)

	for _, path := range keys {
		item := paths[path]
		if item == nil {
			continue
		}
		for _, entry := range []struct {
			method string
			op     *openapi3.Operation
		}{
			{"POST", item.Post},
			{"PUT", item.Put},
			{"PATCH", item.Patch},
		} {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			form, ok, err := operationForm(entry.method, path, entry.op)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if err := store.Add(form, "openapi "+entry.method+" "+path); err != nil {
				return nil, err
			}
		}
	}
	if store.Empty() {
		return nil, errors.New("formspec: openapi document declares no request bodies")
	}
	return store, nil
}

func operationForm(method, path string, op *openapi3.Operation) (model.FormModel, bool, error) {
	if op == nil || op.RequestBody == nil || op.RequestBody.Value == nil {
		return model.FormModel{}, false, nil
	}
	schema := requestSchema(op.RequestBody.Value.Content)
	if schema == nil || len(schema.Properties) == 0 {
		return model.FormModel{}, false, nil
	}

	id := op.OperationID
	if id == "" {
		id = strings.ToLower(method) + ":" + path
	}
	form := model.FormModel{
		ID:       id,
		Endpoint: path,
		Method:   method,
		Summary:  op.Summary,
	}
	fields, aggregates, err := convertProperties(schema, "")
	if err != nil {
		return model.FormModel{}, false, fmt.Errorf("formspec: operation %s: %w", id, err)
	}
	form.Fields = fields
	form.Aggregates = aggregates
	return form, true, nil
}

func requestSchema(content openapi3.Content) *openapi3.Schema {
	for _, mediaType := range mediaTypes {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	for _, mt := range content {
		if mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

type extension struct {
	Label        string
	VisibleWhen  string
	EnabledWhen  string
	RequiredWhen string
	Reference    string
	ResetOnHide  bool
	Sanitize     bool
	Order        int
	Aggregate    *model.AggregateRule
}

func convertProperties(schema *openapi3.Schema, prefix string) ([]model.Field, []model.AggregateRule, error) {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	type entry struct {
		field model.Field
		order int
	}
	var entries []entry
	var aggregates []model.AggregateRule
	for name, ref := range schema.Properties {
		if ref == nil || ref.Value == nil {
			continue
		}
		ext := readExtension(ref.Value.Extensions)
		field, err := convertField(name, ref.Value, required[name], ext)
		if err != nil {
			return nil, nil, err
		}
		if ext.Aggregate != nil {
			rule := *ext.Aggregate
			rule.Field = prefix + name
			aggregates = append(aggregates, rule)
		}
		entries = append(entries, entry{field: field, order: ext.Order})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].order != entries[j].order {
			return entries[i].order < entries[j].order
		}
		return entries[i].field.Name < entries[j].field.Name
	})

	fields := make([]model.Field, 0, len(entries))
	for _, e := range entries {
		fields = append(fields, e.field)
	}
	return fields, aggregates, nil
}

func convertField(name string, src *openapi3.Schema, required bool, ext extension) (model.Field, error) {
	field := model.Field{
		Name:         name,
		Label:        firstNonEmpty(ext.Label, src.Title, model.Labelize(name)),
		Required:     required,
		Default:      src.Default,
		VisibleWhen:  ext.VisibleWhen,
		EnabledWhen:  ext.EnabledWhen,
		RequiredWhen: ext.RequiredWhen,
		Reference:    ext.Reference,
		ResetOnHide:  ext.ResetOnHide,
		Sanitize:     ext.Sanitize,
	}
	if src.Description != "" {
		field.Metadata = map[string]string{"description": src.Description}
	}

	switch schemaType(src) {
	case openapi3.TypeString:
		field.Type = model.FieldTypeString
		switch src.Format {
		case "date", "date-time":
			field.Type = model.FieldTypeDate
		case "binary":
			field.Type = model.FieldTypeFile
		case "email":
			field.Validations = append(field.Validations, tagRule("email"))
		case "uuid":
			field.Validations = append(field.Validations, tagRule("uuid"))
		}
		if src.MinLength > 0 {
			field.Validations = append(field.Validations, valueRule(model.ValidationRuleMinLength, strconv.FormatUint(src.MinLength, 10)))
		}
		if src.MaxLength != nil {
			field.Validations = append(field.Validations, valueRule(model.ValidationRuleMaxLength, strconv.FormatUint(*src.MaxLength, 10)))
		}
		if src.Pattern != "" {
			field.Validations = append(field.Validations, model.ValidationRule{Kind: model.ValidationRulePattern, Params: map[string]string{"pattern": src.Pattern}})
		}
	case openapi3.TypeNumber, openapi3.TypeInteger:
		field.Type = model.FieldTypeNumber
		if schemaType(src) == openapi3.TypeInteger {
			field.Type = model.FieldTypeInteger
		}
		if src.Min != nil {
			kind := model.ValidationRuleMin
			if src.ExclusiveMin {
				kind = model.ValidationRuleExclusiveMin
			}
			field.Validations = append(field.Validations, valueRule(kind, formatFloat(*src.Min)))
		}
		if src.Max != nil {
			kind := model.ValidationRuleMax
			if src.ExclusiveMax {
				kind = model.ValidationRuleExclusiveMax
			}
			field.Validations = append(field.Validations, valueRule(kind, formatFloat(*src.Max)))
		}
	case openapi3.TypeBoolean:
		field.Type = model.FieldTypeBoolean
	case openapi3.TypeArray:
		if src.Items == nil || src.Items.Value == nil {
			return model.Field{}, fmt.Errorf("array property %q has no items schema", name)
		}
		if len(src.Items.Value.Properties) == 0 {
			field.Type = model.FieldTypeEnum
			field.Options = enumOptions(src.Items.Value.Enum)
			break
		}
		items, _, err := convertProperties(src.Items.Value, name+".")
		if err != nil {
			return model.Field{}, err
		}
		field.Type = model.FieldTypeList
		field.Items = items
	default:
		return model.Field{}, fmt.Errorf("property %q has unsupported type %q", name, schemaType(src))
	}

	if len(src.Enum) > 0 {
		field.Type = model.FieldTypeEnum
		field.Options = enumOptions(src.Enum)
		values := make([]string, 0, len(field.Options))
		for _, opt := range field.Options {
			values = append(values, opt.Value)
		}
		field.Validations = append(field.Validations, model.ValidationRule{
			Kind:   model.ValidationRuleOneOf,
			Params: map[string]string{"values": strings.Join(values, ",")},
		})
	}
	return field, nil
}

func schemaType(src *openapi3.Schema) string {
	if src.Type == nil {
		if len(src.Properties) > 0 {
			return openapi3.TypeObject
		}
		return openapi3.TypeString
	}
	for _, t := range src.Type.Slice() {
		if t != openapi3.TypeNull {
			return t
		}
	}
	return openapi3.TypeString
}

func readExtension(raw map[string]any) extension {
	var ext extension
	values, ok := raw[ExtensionKey].(map[string]any)
	if !ok {
		return ext
	}
	ext.Label = stringValue(values["label"])
	ext.VisibleWhen = stringValue(values["visibleWhen"])
	ext.EnabledWhen = stringValue(values["enabledWhen"])
	ext.RequiredWhen = stringValue(values["requiredWhen"])
	ext.Reference = stringValue(values["reference"])
	ext.ResetOnHide, _ = values["resetOnHide"].(bool)
	ext.Sanitize, _ = values["sanitize"].(bool)
	if order, ok := values["order"].(float64); ok {
		ext.Order = int(order)
	}
	if agg, ok := values["aggregate"].(map[string]any); ok {
		rule := model.AggregateRule{
			SubField: stringValue(agg["subField"]),
			Mode:     model.AggregateMode(stringValue(agg["mode"])),
			Unit:     stringValue(agg["unit"]),
			When:     stringValue(agg["when"]),
			Message:  stringValue(agg["message"]),
		}
		if target, ok := agg["target"].(float64); ok {
			rule.Target = target
		}
		ext.Aggregate = &rule
	}
	return ext
}

func enumOptions(values []any) []model.Option {
	out := make([]model.Option, 0, len(values))
	for _, v := range values {
		s := stringValue(v)
		out = append(out, model.Option{Value: s, Label: s})
	}
	return out
}

func valueRule(kind, value string) model.ValidationRule {
	return model.ValidationRule{Kind: kind, Params: map[string]string{"value": value}}
}

func tagRule(tag string) model.ValidationRule {
	return model.ValidationRule{Kind: model.ValidationRuleTag, Params: map[string]string{"tag": tag}}
}

func stringValue(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return formatFloat(typed)
	default:
		return fmt.Sprint(typed)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
