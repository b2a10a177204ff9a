package notification

import (
	"context"
	"database/sql"
	"encoding/json"

	"bookswap/model"
)

type Repo interface {
	Insert(ctx context.Context, n *model.Notification) error
	ByID(ctx context.Context, id string) (*model.Notification, error)
	List(ctx context.Context, userID int64, limit, offset int) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context, userID int64) (int64, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, n *model.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO notifications (id, user_id, type, message, data, read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err = r.db.ExecContext(ctx, q,
		n.ID, n.UserID, n.Type, n.Message, data, n.Read, n.CreatedAt)
	return err
}

func (r *repo) ByID(ctx context.Context, id string) (*model.Notification, error) {
	const q = `
		SELECT id, user_id, type, message, data, read, created_at
		FROM notifications
		WHERE id = $1`
	return scanNotification(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) List(ctx context.Context, userID int64, limit, offset int) ([]model.Notification, error) {
	const q = `
		SELECT id, user_id, type, message, data, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *repo) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM notifications WHERE user_id = $1 AND NOT read`,
		userID).Scan(&n)
	return n, err
}

func (r *repo) MarkRead(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	return err
}

// MarkAllRead is a single statement so it is atomic with respect to
// concurrent inserts for the same user.
func (r *repo) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read`,
		userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1`, id)
	return err
}

func (r *repo) DeleteAll(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*model.Notification, error) {
	n := &model.Notification{}
	var data []byte
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &data, &n.Read, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, err
		}
	}
	return n, nil
}
