// Package event defines the lifecycle events emitted by the request
// service and the contract their consumer implements. Each committed
// lifecycle transition produces exactly one event.
package event

import "context"

type Type string

const (
	RequestSent     Type = "request_sent"
	RequestApproved Type = "request_approved"
	RequestRejected Type = "request_rejected"
	RequestReturned Type = "request_returned"
	DueDateReminder Type = "due_date_reminder"
	BookOverdue     Type = "book_overdue"
)

// Event addresses a single recipient. Data is carried through to the
// notification payload for client-side rendering.
type Event struct {
	Type   Type
	UserID int64
	Data   Data
}

type Data struct {
	BookTitle     string `json:"book_title,omitempty"`
	RequestType   string `json:"request_type,omitempty"`
	RequesterName string `json:"requester_name,omitempty"`
	DueDate       string `json:"due_date,omitempty"`
}

// Handler consumes lifecycle events. The request service calls it once per
// committed transition, after the transaction commits.
type Handler interface {
	HandleEvent(ctx context.Context, ev Event) error
}
