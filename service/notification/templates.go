package notification

import (
	"fmt"

	"bookswap/event"
)

// Messages are rendered once, at creation time. Stored notifications keep
// the text they were born with even if these templates change later.

func renderMessage(typ event.Type, data event.Data) (string, error) {
	switch typ {
	case event.RequestSent:
		return fmt.Sprintf("%s wants to %s %q", data.RequesterName, verb(data.RequestType), data.BookTitle), nil
	case event.RequestApproved:
		return fmt.Sprintf("Your %s request for %q was approved", verb(data.RequestType), data.BookTitle), nil
	case event.RequestRejected:
		return fmt.Sprintf("Your %s request for %q was declined", verb(data.RequestType), data.BookTitle), nil
	case event.RequestReturned:
		return fmt.Sprintf("%s returned %q", data.RequesterName, data.BookTitle), nil
	case event.DueDateReminder:
		return fmt.Sprintf("%q is due on %s", data.BookTitle, data.DueDate), nil
	case event.BookOverdue:
		return fmt.Sprintf("%q is overdue", data.BookTitle), nil
	default:
		return "", makeErr(ErrBadType)
	}
}

func verb(requestType string) string {
	if requestType == "swap" {
		return "swap"
	}
	return "borrow"
}

// payload is the opaque data carried for client-side rendering.
func payload(data event.Data) map[string]any {
	out := make(map[string]any)
	if data.BookTitle != "" {
		out["book_title"] = data.BookTitle
	}
	if data.RequestType != "" {
		out["request_type"] = data.RequestType
	}
	if data.RequesterName != "" {
		out["requester_name"] = data.RequesterName
	}
	if data.DueDate != "" {
		out["due_date"] = data.DueDate
	}
	return out
}
