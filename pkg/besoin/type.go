// Package besoin models requisitions ("besoins"): requests for goods, special
// funds, facilitation, HR or anything else. Each request type selects its own
// form variant.
package besoin

import (
	"errors"
	"fmt"
	"strings"
)

// RequestType is the variant of a requisition. The zero value is not a valid
// type.
type RequestType string

const (
	Achat        RequestType = "achat"
	Special      RequestType = "special"
	Facilitation RequestType = "facilitation"
	RH           RequestType = "rh"
	Other        RequestType = "other"
)

// ErrUnknownType is returned for a request type outside AllRequestTypes.
var ErrUnknownType = errors.New("besoin: unknown request type")

var allTypes = []RequestType{Achat, Special, Facilitation, RH, Other}

// AllRequestTypes lists every request type in display order.
func AllRequestTypes() []RequestType {
	return append([]RequestType(nil), allTypes...)
}

// ParseRequestType accepts the wire value of a type in any case ("RH", "Achat").
func ParseRequestType(raw string) (RequestType, error) {
	candidate := RequestType(strings.ToLower(strings.TrimSpace(raw)))
	if candidate.Valid() {
		return candidate, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, raw)
}

// Valid reports whether t is one of the known request types.
func (t RequestType) Valid() bool {
	for _, known := range allTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Label is the display name of t.
func (t RequestType) Label() string {
	switch t {
	case Achat:
		return "Purchase"
	case Special:
		return "Special funds"
	case Facilitation:
		return "Facilitation"
	case RH:
		return "Human resources"
	case Other:
		return "Other"
	}
	return string(t)
}

func (t RequestType) String() string { return string(t) }
