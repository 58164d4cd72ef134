package besoin

import (
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-procure/pkg/table"
)

// Status is the review state of a requisition.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Besoin is a requisition as listed by the API.
type Besoin struct {
	ID            int64       `json:"id"`
	Type          RequestType `json:"type"`
	Object        string      `json:"object"`
	Department    string      `json:"department"`
	Requester     string      `json:"requester"`
	Beneficiaries []int64     `json:"beneficiaries"`
	Amount        float64     `json:"amount"`
	Status        Status      `json:"status"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// Key is the table identity of b.
func Key(b Besoin) string {
	return strconv.FormatInt(b.ID, 10)
}

// Columns are the list columns of the requisition table.
func Columns() []table.Column[Besoin] {
	return []table.Column[Besoin]{
		{ID: "id", Label: "#", Value: Key, Less: func(a, b Besoin) bool { return a.ID < b.ID }},
		{ID: "type", Label: "Type", Value: func(b Besoin) string { return b.Type.Label() }, Filter: func(b Besoin, value string) bool {
			t, err := ParseRequestType(value)
			return err == nil && b.Type == t
		}},
		{ID: "object", Label: "Object", Value: func(b Besoin) string { return b.Object }, Searchable: true},
		{ID: "department", Label: "Department", Value: func(b Besoin) string { return b.Department }, Searchable: true},
		{ID: "requester", Label: "Requester", Value: func(b Besoin) string { return b.Requester }, Searchable: true},
		{ID: "amount", Label: "Amount", Value: func(b Besoin) string { return strconv.FormatFloat(b.Amount, 'f', 2, 64) }, Less: func(a, b Besoin) bool { return a.Amount < b.Amount }},
		{ID: "status", Label: "Status", Value: func(b Besoin) string { return string(b.Status) }, Filter: func(b Besoin, value string) bool {
			return strings.EqualFold(string(b.Status), strings.TrimSpace(value))
		}},
		{ID: "createdAt", Label: "Created", Value: func(b Besoin) string { return b.CreatedAt.Format("2006-01-02") }, Less: func(a, b Besoin) bool { return a.CreatedAt.Before(b.CreatedAt) }},
	}
}

// NewTable builds the requisition table.
func NewTable() (*table.Table[Besoin], error) {
	return table.New(Key, Columns()...)
}
