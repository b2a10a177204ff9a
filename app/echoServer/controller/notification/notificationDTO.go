package notification

// Trigger payloads posted by the scheduler collaborator.

type DueDateTriggerReq struct {
	BorrowerID int64  `json:"borrower_id" validate:"required,gt=0"`
	BookTitle  string `json:"book_title" validate:"required"`
	DueDate    string `json:"due_date" validate:"required"`
}

type OverdueTriggerReq struct {
	BorrowerID int64  `json:"borrower_id" validate:"required,gt=0"`
	BookTitle  string `json:"book_title" validate:"required"`
}
