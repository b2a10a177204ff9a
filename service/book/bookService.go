package book

import (
	"context"
	"errors"

	"bookswap/model"
	bookrepo "bookswap/repository/book"
	userrepo "bookswap/repository/user"
)

var ErrBadInput = errors.New("invalid payload")

type AddReq struct {
	Title        string `json:"title" validate:"required"`
	Author       string `json:"author" validate:"required"`
	Genre        string `json:"genre" validate:"required"`
	AvailableFor string `json:"available_for" validate:"required,oneof=lend swap both"`
}

type Service interface {
	Add(ctx context.Context, ownerID int64, in AddReq) (*model.Book, error)
	List(ctx context.Context) ([]model.Book, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)
}

type service struct {
	r     bookrepo.Repo
	users userrepo.Repo
}

func New(r bookrepo.Repo, users userrepo.Repo) Service { return &service{r: r, users: users} }

func (s *service) Add(ctx context.Context, ownerID int64, in AddReq) (*model.Book, error) {
	if in.Title == "" || in.Author == "" || in.Genre == "" {
		return nil, ErrBadInput
	}
	owner, err := s.users.ByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	b := &model.Book{
		Title:        in.Title,
		Author:       in.Author,
		Genre:        in.Genre,
		AvailableFor: in.AvailableFor,
		Status:       model.BookAvailable,
		OwnerID:      owner.ID,
		OwnerName:    owner.Name,
	}
	if err := s.r.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) List(ctx context.Context) ([]model.Book, error) { return s.r.List(ctx) }

func (s *service) Detail(ctx context.Context, id int64) (*model.Book, error) {
	return s.r.ByID(ctx, id)
}
