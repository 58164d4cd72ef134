// Package model defines the declarative form schema shared by the validation
// engine, the field-set controller and the sub-record manager. A FormModel is
// a flat list of Fields; list fields describe their sub-record shape through
// Items. Conditional behaviour (visibility, enablement, conditional
// requirement) is expressed as rule strings evaluated by pkg/condition, so
// every conditional requirement of a form can be enumerated from its schema.
package model
