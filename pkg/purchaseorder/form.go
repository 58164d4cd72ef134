// Package purchaseorder declares the purchase order ("bon de commande") form:
// a provider and quotation reference, an optional penalty clause, a
// beneficiary and a payment schedule whose installments must cover exactly
// 100% of the amount.
package purchaseorder

import (
	"fmt"

	"github.com/goliatone/go-procure/pkg/besoin"
	"github.com/goliatone/go-procure/pkg/condition"
	"github.com/goliatone/go-procure/pkg/form"
	"github.com/goliatone/go-procure/pkg/model"
	"github.com/goliatone/go-procure/pkg/validation"
)

const (
	Endpoint = "/purchase-orders"

	FieldProvider      = "provider"
	FieldQuotation     = "quotation"
	FieldObject        = "object"
	FieldAmount        = "amount"
	FieldHasPenalties  = "hasPenalties"
	FieldPenaltyMode   = "penaltyMode"
	FieldAmountBase    = "amountBase"
	FieldBeneficiary   = "beneficiary"
	FieldBeneficiaryID = "beneficiaryId"
	FieldDeliveryDate  = "deliveryDate"
	FieldInstallments  = "installments"

	BeneficiarySelf  = "self"
	BeneficiaryOther = "other"
)

// Form returns the purchase order schema.
func Form() model.FormModel {
	return model.FormModel{
		ID:       "purchase-order",
		Endpoint: Endpoint,
		Method:   "POST",
		Summary:  "Purchase order",
		Fields: []model.Field{
			{Name: FieldProvider, Type: model.FieldTypeString, Label: "Provider", Required: true, Reference: "providers"},
			{Name: FieldQuotation, Type: model.FieldTypeString, Label: "Quotation", Required: true, Reference: "quotations"},
			{Name: FieldObject, Type: model.FieldTypeString, Label: "Object", Required: true, Sanitize: true, Validations: []model.ValidationRule{
				{Kind: model.ValidationRuleMaxLength, Params: map[string]string{"value": "255"}},
			}},
			{Name: FieldAmount, Type: model.FieldTypeNumber, Label: "Amount", Required: true, Validations: []model.ValidationRule{
				{Kind: model.ValidationRuleExclusiveMin, Params: map[string]string{"value": "0"}, Message: "Amount must be greater than 0"},
			}},
			{Name: FieldHasPenalties, Type: model.FieldTypeBoolean, Label: "Late delivery penalties", Default: false},
			{
				Name:         FieldPenaltyMode,
				Type:         model.FieldTypeEnum,
				Label:        "Penalty mode",
				VisibleWhen:  FieldHasPenalties,
				RequiredWhen: FieldHasPenalties,
				Options:      []model.Option{{Value: "daily", Label: "Per day of delay"}, {Value: "fixed", Label: "Fixed amount"}},
				Validations: []model.ValidationRule{
					{Kind: model.ValidationRuleOneOf, Params: map[string]string{"values": "daily,fixed"}},
				},
			},
			{
				Name:         FieldAmountBase,
				Type:         model.FieldTypeNumber,
				Label:        "Penalty base amount",
				VisibleWhen:  FieldHasPenalties,
				RequiredWhen: FieldHasPenalties,
				Validations: []model.ValidationRule{
					{Kind: model.ValidationRuleExclusiveMin, Params: map[string]string{"value": "0"}},
					{Kind: PredicateLessOrEqualField, Params: map[string]string{"field": FieldAmount}, Message: "Base amount cannot exceed the order amount"},
				},
			},
			{
				Name:     FieldBeneficiary,
				Type:     model.FieldTypeEnum,
				Label:    "Beneficiary",
				Required: true,
				Default:  BeneficiarySelf,
				Options:  []model.Option{{Value: BeneficiarySelf, Label: "Myself"}, {Value: BeneficiaryOther, Label: "Someone else"}},
			},
			{
				Name:         FieldBeneficiaryID,
				Type:         model.FieldTypeString,
				Label:        "Beneficiary employee",
				Reference:    "employees",
				VisibleWhen:  fmt.Sprintf("%s == %q", FieldBeneficiary, BeneficiaryOther),
				RequiredWhen: fmt.Sprintf("%s == %q", FieldBeneficiary, BeneficiaryOther),
				ResetOnHide:  true,
			},
			{Name: FieldDeliveryDate, Type: model.FieldTypeDate, Label: "Delivery date"},
			{Name: FieldInstallments, Type: model.FieldTypeList, Label: "Payment schedule", Items: []model.Field{
				{Name: "percentage", Type: model.FieldTypeNumber, Label: "Percentage", Required: true, Validations: []model.ValidationRule{
					{Kind: model.ValidationRuleExclusiveMin, Params: map[string]string{"value": "0"}, Message: "Percentage must be greater than 0"},
					{Kind: model.ValidationRuleMax, Params: map[string]string{"value": "100"}, Message: "Percentage cannot exceed 100"},
				}},
				{Name: "dueDate", Type: model.FieldTypeDate, Label: "Due date", Required: true},
				{Name: "label", Type: model.FieldTypeString, Label: "Milestone", Sanitize: true},
			}},
		},
		Aggregates: []model.AggregateRule{
			{Field: FieldInstallments, SubField: "percentage", Target: 100, Unit: "%"},
		},
	}
}

// PredicateLessOrEqualField is the rule kind of LessOrEqualField.
const PredicateLessOrEqualField = "lte_field"

// LessOrEqualField reports whether value does not exceed the numeric value of
// Params["field"] in the same record. An empty or unparsable limit passes;
// the limit field carries its own rules.
func LessOrEqualField(value any, params map[string]string, ctx condition.Context) bool {
	other := ctx.Values[params["field"]]
	if validation.IsEmpty(other) {
		return true
	}
	limit, ok := validation.Number(other)
	if !ok {
		return true
	}
	n, ok := validation.Number(value)
	return ok && n <= limit
}

// New mounts a purchase order for the session user.
func New(session condition.Session, opts ...form.Option) (*form.Instance, error) {
	engine := validation.New(validation.WithPredicate(PredicateLessOrEqualField, LessOrEqualField))
	base := []form.Option{
		form.WithSession(session),
		form.WithEngine(engine),
		form.WithTransformer(BeneficiaryTransformer(session)),
	}
	return form.New(Form(), append(base, opts...)...)
}

// BeneficiaryTransformer replaces the beneficiary choice with the normalised
// list of beneficiary ids: the session user for "self", the selected employee
// otherwise.
func BeneficiaryTransformer(session condition.Session) form.PayloadTransformer {
	return func(payload map[string]any) (map[string]any, error) {
		var source any
		switch payload[FieldBeneficiary] {
		case BeneficiaryOther:
			source = payload[FieldBeneficiaryID]
		default:
			source = session.UserID
		}
		ids, err := besoin.NormalizeBeneficiaries(source)
		if err != nil {
			return nil, fmt.Errorf("purchaseorder: %w", err)
		}
		delete(payload, FieldBeneficiary)
		delete(payload, FieldBeneficiaryID)
		payload[besoin.BeneficiariesField] = ids
		return payload, nil
	}
}
