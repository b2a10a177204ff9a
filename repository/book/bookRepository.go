package book

import (
	"context"
	"database/sql"

	"bookswap/model"
)

type Repo interface {
	Create(ctx context.Context, b *model.Book) error
	List(ctx context.Context) ([]model.Book, error)
	ByID(ctx context.Context, id int64) (*model.Book, error)
	CountByOwner(ctx context.Context, ownerID int64) (int64, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

const bookCols = `id, title, author, genre, available_for, status, owner_id, owner_name, created_at`

func (r *repo) Create(ctx context.Context, b *model.Book) error {
	const q = `
		INSERT INTO books (title, author, genre, available_for, status, owner_id, owner_name)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, q,
		b.Title, b.Author, b.Genre, b.AvailableFor, b.Status, b.OwnerID, b.OwnerName,
	).Scan(&b.ID, &b.CreatedAt)
}

func (r *repo) List(ctx context.Context) ([]model.Book, error) {
	q := `SELECT ` + bookCols + ` FROM books ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(
			&b.ID, &b.Title, &b.Author, &b.Genre, &b.AvailableFor,
			&b.Status, &b.OwnerID, &b.OwnerName, &b.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.Book, error) {
	q := `SELECT ` + bookCols + ` FROM books WHERE id = $1`
	b := &model.Book{}
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.Title, &b.Author, &b.Genre, &b.AvailableFor,
		&b.Status, &b.OwnerID, &b.OwnerName, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repo) CountByOwner(ctx context.Context, ownerID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM books WHERE owner_id = $1`, ownerID).Scan(&n)
	return n, err
}
