// Package condition defines how field rules (visibility, enablement,
// conditional requirement, gated predicates) are evaluated against a form
// record.
package condition

// Evaluator decides whether a rule holds for the field at fieldPath.
type Evaluator interface {
	Eval(fieldPath, rule string, ctx Context) (bool, error)
}

// Session is the current user context. It is passed explicitly so rules stay
// pure functions of their inputs.
type Session struct {
	UserID string   `json:"userId" yaml:"userId"`
	Roles  []string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// HasRole reports whether the session carries role.
func (s Session) HasRole(role string) bool {
	for _, candidate := range s.Roles {
		if candidate == role {
			return true
		}
	}
	return false
}

// Values exposes the session to rule expressions under the "session." prefix.
func (s Session) Values() map[string]any {
	roles := make([]any, 0, len(s.Roles))
	for _, role := range s.Roles {
		roles = append(roles, role)
	}
	return map[string]any{
		"userId": s.UserID,
		"roles":  roles,
	}
}

// Context carries the record values and the session a rule is evaluated
// against.
type Context struct {
	Values  map[string]any
	Session Session
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldPath, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldPath, rule string, ctx Context) (bool, error) {
	return fn(fieldPath, rule, ctx)
}
