package model

// FieldType is the semantic kind of a form field.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeInteger FieldType = "integer"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeDate    FieldType = "date"
	FieldTypeEnum    FieldType = "enum"
	FieldTypeFile    FieldType = "file"
	FieldTypeList    FieldType = "list"
)

// Numeric reports whether values of the type are coerced to float64.
func (t FieldType) Numeric() bool {
	return t == FieldTypeNumber || t == FieldTypeInteger
}

const (
	ValidationRuleRequired     = "required"
	ValidationRuleMin          = "min"
	ValidationRuleMax          = "max"
	ValidationRuleExclusiveMin = "exclusiveMin"
	ValidationRuleExclusiveMax = "exclusiveMax"
	ValidationRuleMinLength    = "minLength"
	ValidationRuleMaxLength    = "maxLength"
	ValidationRulePattern      = "pattern"
	ValidationRuleOneOf        = "oneOf"
	ValidationRuleTag          = "tag"
)

// ValidationRule is a single predicate applied to a field. Kind is one of the
// ValidationRule* constants or the name of a predicate registered on the
// validation engine. Bounds and lengths encode their threshold in
// Params["value"], patterns in Params["pattern"] and validator tags in
// Params["tag"]. When is an optional rule expression; the predicate is only
// evaluated while it holds.
type ValidationRule struct {
	Kind    string            `json:"kind" yaml:"kind"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
	When    string            `json:"when,omitempty" yaml:"when,omitempty"`
}

// Option is one allowed value of an enum field.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Field describes one input of a form.
type Field struct {
	Name        string            `json:"name" yaml:"name"`
	Type        FieldType         `json:"type" yaml:"type"`
	Label       string            `json:"label,omitempty" yaml:"label,omitempty"`
	Required    bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Default     any               `json:"default,omitempty" yaml:"default,omitempty"`
	Options     []Option          `json:"options,omitempty" yaml:"options,omitempty"`
	Items       []Field           `json:"items,omitempty" yaml:"items,omitempty"`
	Validations []ValidationRule  `json:"validations,omitempty" yaml:"validations,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// VisibleWhen, EnabledWhen and RequiredWhen are rule expressions over the
	// record. Empty rules always hold, except RequiredWhen which falls back
	// to Required.
	VisibleWhen  string `json:"visibleWhen,omitempty" yaml:"visibleWhen,omitempty"`
	EnabledWhen  string `json:"enabledWhen,omitempty" yaml:"enabledWhen,omitempty"`
	RequiredWhen string `json:"requiredWhen,omitempty" yaml:"requiredWhen,omitempty"`

	// ResetOnHide restores Default when the field becomes hidden.
	ResetOnHide bool `json:"resetOnHide,omitempty" yaml:"resetOnHide,omitempty"`
	// Sanitize strips markup from string values before submission.
	Sanitize bool `json:"sanitize,omitempty" yaml:"sanitize,omitempty"`
	// Reference names the lookup collection a selected id must exist in.
	Reference string `json:"reference,omitempty" yaml:"reference,omitempty"`
}

// AggregateMode selects how an aggregate rule judges its reduction.
type AggregateMode string

const (
	// AggregateEqual requires the sum to equal Target exactly.
	AggregateEqual AggregateMode = "equal"
	// AggregateTotal only reports the running total.
	AggregateTotal AggregateMode = "total"
)

// AggregateRule validates a reduction over a list field. Errors are attached
// to Field as a whole, never to individual items.
type AggregateRule struct {
	Field    string        `json:"field" yaml:"field"`
	SubField string        `json:"subField" yaml:"subField"`
	Target   float64       `json:"target,omitempty" yaml:"target,omitempty"`
	Mode     AggregateMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	Unit     string        `json:"unit,omitempty" yaml:"unit,omitempty"`
	When     string        `json:"when,omitempty" yaml:"when,omitempty"`
	// Message replaces the generated "Total is ..." text when set.
	Message  string        `json:"message,omitempty" yaml:"message,omitempty"`
}

// FormModel is the schema of one form.
type FormModel struct {
	ID         string            `json:"id" yaml:"id"`
	Endpoint   string            `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Method     string            `json:"method,omitempty" yaml:"method,omitempty"`
	Summary    string            `json:"summary,omitempty" yaml:"summary,omitempty"`
	Fields     []Field           `json:"fields" yaml:"fields"`
	Aggregates []AggregateRule   `json:"aggregates,omitempty" yaml:"aggregates,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Field returns the field with the given name.
func (f FormModel) Field(name string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// Aggregate returns the aggregate rule attached to the named list field.
func (f FormModel) Aggregate(field string) (AggregateRule, bool) {
	for _, rule := range f.Aggregates {
		if rule.Field == field {
			return rule, true
		}
	}
	return AggregateRule{}, false
}

// Defaults returns the initial values declared by the schema.
func (f FormModel) Defaults() map[string]any {
	out := make(map[string]any, len(f.Fields))
	for _, field := range f.Fields {
		if field.Default != nil {
			out[field.Name] = field.Default
			continue
		}
		if field.Type == FieldTypeList {
			out[field.Name] = []map[string]any{}
		}
	}
	return out
}

// MetadataMultiple marks an enum field holding several values.
const MetadataMultiple = "multiple"

// Multiple reports whether an enum field accepts several values.
func (f Field) Multiple() bool {
	return f.Metadata[MetadataMultiple] == "true"
}

// Clone returns a copy of f whose fields can be modified without touching f.
func (f FormModel) Clone() FormModel {
	out := f
	out.Fields = cloneFields(f.Fields)
	out.Aggregates = append([]AggregateRule(nil), f.Aggregates...)
	out.Metadata = cloneStrings(f.Metadata)
	return out
}

func cloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, field := range fields {
		field.Options = append([]Option(nil), field.Options...)
		field.Validations = append([]ValidationRule(nil), field.Validations...)
		field.Metadata = cloneStrings(field.Metadata)
		field.Items = cloneFields(field.Items)
		out[i] = field
	}
	return out
}

func cloneStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
