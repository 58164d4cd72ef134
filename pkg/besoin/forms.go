package besoin

import (
	"fmt"

	"github.com/goliatone/go-procure/pkg/model"
)

// Endpoint is the API resource requisitions are created on.
const Endpoint = "/besoins"

// FormFor returns the form variant of t. Every RequestType has a form; an
// unknown type is an error, never an empty form.
func FormFor(t RequestType) (model.FormModel, error) {
	var fields []model.Field
	var aggregates []model.AggregateRule
	switch t {
	case Achat:
		fields = []model.Field{
			{Name: "items", Type: model.FieldTypeList, Label: "Items", Required: true, Items: []model.Field{
				{Name: "designation", Type: model.FieldTypeString, Label: "Designation", Required: true, Sanitize: true},
				{Name: "quantity", Type: model.FieldTypeInteger, Label: "Quantity", Required: true, Validations: []model.ValidationRule{
					{Kind: model.ValidationRuleMin, Params: map[string]string{"value": "1"}},
				}},
				{Name: "estimatedPrice", Type: model.FieldTypeNumber, Label: "Estimated unit price", Validations: []model.ValidationRule{
					{Kind: model.ValidationRuleMin, Params: map[string]string{"value": "0"}},
				}},
			}},
		}
		aggregates = []model.AggregateRule{{Field: "items", SubField: "quantity", Mode: model.AggregateTotal}}
	case Special:
		fields = []model.Field{
			{Name: "amount", Type: model.FieldTypeNumber, Label: "Amount", Required: true, Validations: []model.ValidationRule{
				{Kind: model.ValidationRuleExclusiveMin, Params: map[string]string{"value": "0"}},
			}},
			{Name: "justification", Type: model.FieldTypeString, Label: "Justification", Required: true, Sanitize: true, Validations: []model.ValidationRule{
				{Kind: model.ValidationRuleMinLength, Params: map[string]string{"value": "10"}},
			}},
			{Name: "allocations", Type: model.FieldTypeList, Label: "Allocations", Items: []model.Field{
				{Name: "beneficiaryId", Type: model.FieldTypeString, Label: "Beneficiary", Required: true, Reference: "employees"},
				{Name: "percentage", Type: model.FieldTypeNumber, Label: "Share", Required: true, Validations: percentageRules()},
			}},
		}
		aggregates = []model.AggregateRule{{Field: "allocations", SubField: "percentage", Target: 100, Unit: "%"}}
	case Facilitation:
		fields = []model.Field{
			{Name: "destination", Type: model.FieldTypeString, Label: "Destination", Required: true},
			{Name: "startDate", Type: model.FieldTypeDate, Label: "Start date", Required: true},
			{Name: "endDate", Type: model.FieldTypeDate, Label: "End date", Required: true},
			{Name: "needsLodging", Type: model.FieldTypeBoolean, Label: "Lodging required", Default: false},
			{Name: "nights", Type: model.FieldTypeInteger, Label: "Nights", VisibleWhen: "needsLodging", RequiredWhen: "needsLodging", ResetOnHide: true, Validations: []model.ValidationRule{
				{Kind: model.ValidationRuleMin, Params: map[string]string{"value": "1"}},
			}},
		}
	case RH:
		fields = []model.Field{
			{Name: "position", Type: model.FieldTypeString, Label: "Position", Required: true},
			{Name: "contractType", Type: model.FieldTypeEnum, Label: "Contract", Required: true, Options: []model.Option{
				{Value: "cdi", Label: "Permanent"},
				{Value: "cdd", Label: "Fixed term"},
				{Value: "internship", Label: "Internship"},
			}, Validations: []model.ValidationRule{
				{Kind: model.ValidationRuleOneOf, Params: map[string]string{"values": "cdi,cdd,internship"}},
			}},
			{Name: "duration", Type: model.FieldTypeInteger, Label: "Duration (months)", VisibleWhen: `contractType != "cdi"`, RequiredWhen: `contractType != "cdi"`, Validations: []model.ValidationRule{
				{Kind: model.ValidationRuleMin, Params: map[string]string{"value": "1"}},
				{Kind: model.ValidationRuleMax, Params: map[string]string{"value": "24"}},
			}},
			{Name: "headcount", Type: model.FieldTypeInteger, Label: "Headcount", Required: true, Default: 1, Validations: []model.ValidationRule{
				{Kind: model.ValidationRuleMin, Params: map[string]string{"value": "1"}},
			}},
		}
	case Other:
		fields = []model.Field{
			{Name: "details", Type: model.FieldTypeString, Label: "Details", Required: true, Sanitize: true, Validations: []model.ValidationRule{
				{Kind: model.ValidationRuleMaxLength, Params: map[string]string{"value": "2000"}},
			}},
		}
	default:
		return model.FormModel{}, fmt.Errorf("%w: %q", ErrUnknownType, string(t))
	}

	return model.FormModel{
		ID:         "besoin-" + string(t),
		Endpoint:   Endpoint,
		Method:     "POST",
		Summary:    t.Label() + " request",
		Fields:     append(commonFields(t), fields...),
		Aggregates: aggregates,
		Metadata:   map[string]string{"requestType": string(t)},
	}, nil
}

func commonFields(t RequestType) []model.Field {
	return []model.Field{
		{Name: "type", Type: model.FieldTypeEnum, Label: "Type", Required: true, Default: string(t)},
		{Name: "object", Type: model.FieldTypeString, Label: "Object", Required: true, Sanitize: true, Validations: []model.ValidationRule{
			{Kind: model.ValidationRuleMaxLength, Params: map[string]string{"value": "255"}},
		}},
		{Name: "department", Type: model.FieldTypeString, Label: "Department", Required: true, Reference: "departments"},
		{Name: BeneficiariesField, Type: model.FieldTypeEnum, Label: "Beneficiaries", Reference: "employees", Metadata: map[string]string{model.MetadataMultiple: "true"}},
		{Name: "neededBy", Type: model.FieldTypeDate, Label: "Needed by"},
	}
}

func percentageRules() []model.ValidationRule {
	return []model.ValidationRule{
		{Kind: model.ValidationRuleExclusiveMin, Params: map[string]string{"value": "0"}, Message: "Percentage must be greater than 0"},
		{Kind: model.ValidationRuleMax, Params: map[string]string{"value": "100"}, Message: "Percentage cannot exceed 100"},
	}
}
