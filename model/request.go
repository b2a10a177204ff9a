package model

import "time"

type RequestType string

const (
	RequestBorrow RequestType = "borrow"
	RequestSwap   RequestType = "swap"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
	RequestReturned RequestStatus = "returned"
)

// Request is a borrow/swap negotiation between the owner of a book and a
// requester. Status only ever moves pending -> approved|rejected and
// approved -> returned. Book title and user names are denormalized at
// creation time so the record survives later catalog edits.
type Request struct {
	ID             string        `json:"id"`
	BookID         int64         `json:"book_id"`
	BookTitle      string        `json:"book_title"`
	OwnerID        int64         `json:"owner_id"`
	OwnerName      string        `json:"owner_name"`
	RequesterID    int64         `json:"requester_id"`
	RequesterName  string        `json:"requester_name"`
	RequesterEmail string        `json:"requester_email"`
	RequestType    RequestType   `json:"request_type"`
	Status         RequestStatus `json:"status"`
	DueAt          *time.Time    `json:"due_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
