package request

import (
	"context"
	"database/sql"
	"time"

	"bookswap/model"
)

type Repo interface {
	Insert(ctx context.Context, r *model.Request) error

	// Mutations run inside a caller-owned tx so a transition is a single
	// row-lock + guard-update unit.
	GetForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Request, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id string, from, to model.RequestStatus, dueAt *time.Time, at time.Time) (bool, error)
	Delete(ctx context.Context, tx *sql.Tx, id string) error

	ListByRequester(ctx context.Context, userID int64) ([]model.Request, error)
	ListByOwner(ctx context.Context, userID int64) ([]model.Request, error)
	CountByRequester(ctx context.Context, userID int64) (int64, error)
	CountByOwner(ctx context.Context, userID int64) (int64, error)

	// Due-date sweep
	DueForReminder(ctx context.Context, now time.Time, window time.Duration) ([]model.Request, error)
	Overdue(ctx context.Context, now time.Time) ([]model.Request, error)
	MarkReminderSent(ctx context.Context, id string) error
	MarkOverdueSent(ctx context.Context, id string) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

const requestCols = `
	id, book_id, book_title, owner_id, owner_name,
	requester_id, requester_name, requester_email,
	request_type, status, due_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, req *model.Request) error {
	const q = `
		INSERT INTO requests (
			id, book_id, book_title, owner_id, owner_name,
			requester_id, requester_name, requester_email,
			request_type, status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.db.ExecContext(ctx, q,
		req.ID, req.BookID, req.BookTitle, req.OwnerID, req.OwnerName,
		req.RequesterID, req.RequesterName, req.RequesterEmail,
		req.RequestType, req.Status, req.CreatedAt, req.UpdatedAt,
	)
	return err
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Request, error) {
	q := `SELECT ` + requestCols + ` FROM requests WHERE id = $1 FOR UPDATE`
	return scanRequest(tx.QueryRowContext(ctx, q, id))
}

// UpdateStatus applies the transition only when the row is still in the
// expected source state. Reports false when another writer got there first.
func (r *repo) UpdateStatus(ctx context.Context, tx *sql.Tx, id string, from, to model.RequestStatus, dueAt *time.Time, at time.Time) (bool, error) {
	const q = `
		UPDATE requests
		SET status = $3,
			due_at = COALESCE($4, due_at),
			updated_at = $5
		WHERE id = $1
		AND status = $2`
	res, err := tx.ExecContext(ctx, q, id, from, to, dueAt, at)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff == 1, nil
}

func (r *repo) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM requests WHERE id = $1`, id)
	return err
}

func (r *repo) ListByRequester(ctx context.Context, userID int64) ([]model.Request, error) {
	q := `SELECT ` + requestCols + `
		FROM requests
		WHERE requester_id = $1
		ORDER BY created_at DESC`
	return r.list(ctx, q, userID)
}

func (r *repo) ListByOwner(ctx context.Context, userID int64) ([]model.Request, error) {
	q := `SELECT ` + requestCols + `
		FROM requests
		WHERE owner_id = $1
		ORDER BY created_at DESC`
	return r.list(ctx, q, userID)
}

func (r *repo) CountByRequester(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM requests WHERE requester_id = $1`, userID).Scan(&n)
	return n, err
}

func (r *repo) CountByOwner(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM requests WHERE owner_id = $1`, userID).Scan(&n)
	return n, err
}

func (r *repo) DueForReminder(ctx context.Context, now time.Time, window time.Duration) ([]model.Request, error) {
	q := `SELECT ` + requestCols + `
		FROM requests
		WHERE status = 'approved'
		AND due_at IS NOT NULL
		AND due_at > $1
		AND due_at <= $2
		AND NOT reminder_sent`
	return r.list(ctx, q, now, now.Add(window))
}

func (r *repo) Overdue(ctx context.Context, now time.Time) ([]model.Request, error) {
	q := `SELECT ` + requestCols + `
		FROM requests
		WHERE status = 'approved'
		AND due_at IS NOT NULL
		AND due_at <= $1
		AND NOT overdue_sent`
	return r.list(ctx, q, now)
}

func (r *repo) MarkReminderSent(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE requests SET reminder_sent = TRUE WHERE id = $1`, id)
	return err
}

func (r *repo) MarkOverdueSent(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE requests SET overdue_sent = TRUE WHERE id = $1`, id)
	return err
}

func (r *repo) list(ctx context.Context, q string, args ...any) ([]model.Request, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*model.Request, error) {
	req := &model.Request{}
	err := row.Scan(
		&req.ID, &req.BookID, &req.BookTitle, &req.OwnerID, &req.OwnerName,
		&req.RequesterID, &req.RequesterName, &req.RequesterEmail,
		&req.RequestType, &req.Status, &req.DueAt, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}
