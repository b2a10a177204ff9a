package request

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"bookswap/event"
	"bookswap/model"
	bookrepo "bookswap/repository/book"
	reqrepo "bookswap/repository/request"
	userrepo "bookswap/repository/user"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// errors used by controllers

type ErrCode string

const (
	ErrValidation        ErrCode = "VALIDATION"
	ErrConflict          ErrCode = "CONFLICT"
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrBookNotFound      ErrCode = "BOOK_NOT_FOUND"
	ErrInvalidTransition ErrCode = "INVALID_TRANSITION"
	ErrInvalidState      ErrCode = "INVALID_STATE"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// dto

type CreateReq struct {
	BookID      int64             `json:"book_id" validate:"required"`
	RequestType model.RequestType `json:"request_type" validate:"required,oneof=borrow swap"`
}

type Stats struct {
	TotalBooks       int64 `json:"total_books"`
	RequestsSent     int64 `json:"requests_sent"`
	RequestsReceived int64 `json:"requests_received"`
}

// legal forward moves; anything else is an invalid transition
var transitions = map[model.RequestStatus][]model.RequestStatus{
	model.RequestPending:  {model.RequestApproved, model.RequestRejected},
	model.RequestApproved: {model.RequestReturned},
}

type Service interface {
	// Create opens a pending borrow/swap request and notifies the owner.
	Create(ctx context.Context, requesterID int64, in CreateReq) (*model.Request, error)

	// Transition moves a request forward; the actor must be the owner for
	// approve/reject and the requester for return. Exactly one lifecycle
	// event is emitted per committed transition.
	Transition(ctx context.Context, requestID string, actorID int64, target model.RequestStatus) (*model.Request, error)

	// Withdraw deletes a still-pending request. Requester only, no event.
	Withdraw(ctx context.Context, requestID string, actorID int64) error

	ListOutgoing(ctx context.Context, userID int64) ([]model.Request, error)
	ListIncoming(ctx context.Context, userID int64) ([]model.Request, error)
	Stats(ctx context.Context, userID int64) (*Stats, error)
}

type service struct {
	db         *sql.DB
	r          reqrepo.Repo
	books      bookrepo.Repo
	users      userrepo.Repo
	events     event.Handler
	loanPeriod time.Duration
	log        *slog.Logger
}

func New(db *sql.DB, r reqrepo.Repo, books bookrepo.Repo, users userrepo.Repo, events event.Handler, loanPeriod time.Duration, log *slog.Logger) Service {
	return &service{db: db, r: r, books: books, users: users, events: events, loanPeriod: loanPeriod, log: log}
}

func (s *service) Create(ctx context.Context, requesterID int64, in CreateReq) (*model.Request, error) {
	if in.RequestType != model.RequestBorrow && in.RequestType != model.RequestSwap {
		return nil, makeErr(ErrValidation)
	}

	b, err := s.books.ByID(ctx, in.BookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrBookNotFound)
		}
		return nil, err
	}
	if b.OwnerID == requesterID {
		// you cannot request your own book
		return nil, makeErr(ErrValidation)
	}

	requester, err := s.users.ByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	req := &model.Request{
		ID:             uuid.NewString(),
		BookID:         b.ID,
		BookTitle:      b.Title,
		OwnerID:        b.OwnerID,
		OwnerName:      b.OwnerName,
		RequesterID:    requester.ID,
		RequesterName:  requester.Name,
		RequesterEmail: requester.Email,
		RequestType:    in.RequestType,
		Status:         model.RequestPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.r.Insert(ctx, req); err != nil {
		if isUniqueViolation(err) {
			// one pending request per (book, requester)
			return nil, makeErr(ErrConflict)
		}
		return nil, err
	}

	s.emit(ctx, event.Event{
		Type:   event.RequestSent,
		UserID: req.OwnerID,
		Data: event.Data{
			BookTitle:     req.BookTitle,
			RequestType:   string(req.RequestType),
			RequesterName: req.RequesterName,
		},
	})
	return req, nil
}

func (s *service) Transition(ctx context.Context, requestID string, actorID int64, target model.RequestStatus) (*model.Request, error) {
	switch target {
	case model.RequestApproved, model.RequestRejected, model.RequestReturned:
	default:
		return nil, makeErr(ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	req, err := s.r.GetForUpdate(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = makeErr(ErrNotFound)
		}
		return nil, err
	}

	switch target {
	case model.RequestApproved, model.RequestRejected:
		if req.OwnerID != actorID {
			err = makeErr(ErrForbidden)
			return nil, err
		}
	case model.RequestReturned:
		if req.RequesterID != actorID {
			err = makeErr(ErrForbidden)
			return nil, err
		}
	}

	if !legal(req.Status, target) {
		err = makeErr(ErrInvalidTransition)
		return nil, err
	}

	now := time.Now().UTC()
	var dueAt *time.Time
	if target == model.RequestApproved && req.RequestType == model.RequestBorrow {
		d := now.Add(s.loanPeriod)
		dueAt = &d
	}

	ok, err := s.r.UpdateStatus(ctx, tx, requestID, req.Status, target, dueAt, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// another writer moved the row first
		err = makeErr(ErrInvalidTransition)
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	req.Status = target
	req.UpdatedAt = now
	if dueAt != nil {
		req.DueAt = dueAt
	}

	s.emit(ctx, transitionEvent(req, target))
	return req, nil
}

func (s *service) Withdraw(ctx context.Context, requestID string, actorID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	req, err := s.r.GetForUpdate(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = makeErr(ErrNotFound)
		}
		return err
	}
	if req.RequesterID != actorID {
		err = makeErr(ErrForbidden)
		return err
	}
	if req.Status != model.RequestPending {
		err = makeErr(ErrInvalidState)
		return err
	}
	if err = s.r.Delete(ctx, tx, requestID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *service) ListOutgoing(ctx context.Context, userID int64) ([]model.Request, error) {
	return s.r.ListByRequester(ctx, userID)
}

func (s *service) ListIncoming(ctx context.Context, userID int64) ([]model.Request, error) {
	return s.r.ListByOwner(ctx, userID)
}

func (s *service) Stats(ctx context.Context, userID int64) (*Stats, error) {
	books, err := s.books.CountByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	sent, err := s.r.CountByRequester(ctx, userID)
	if err != nil {
		return nil, err
	}
	received, err := s.r.CountByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Stats{TotalBooks: books, RequestsSent: sent, RequestsReceived: received}, nil
}

func legal(from, to model.RequestStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// transitionEvent addresses the counterpart: requester hears about
// approve/reject, owner hears about the return.
func transitionEvent(req *model.Request, target model.RequestStatus) event.Event {
	data := event.Data{
		BookTitle:     req.BookTitle,
		RequestType:   string(req.RequestType),
		RequesterName: req.RequesterName,
	}
	if req.DueAt != nil {
		data.DueDate = req.DueAt.Format("2006-01-02")
	}
	switch target {
	case model.RequestApproved:
		return event.Event{Type: event.RequestApproved, UserID: req.RequesterID, Data: data}
	case model.RequestRejected:
		return event.Event{Type: event.RequestRejected, UserID: req.RequesterID, Data: data}
	default:
		return event.Event{Type: event.RequestReturned, UserID: req.OwnerID, Data: data}
	}
}

// emit hands the committed event to the fanout engine. Failures there stay
// out of the lifecycle result.
func (s *service) emit(ctx context.Context, ev event.Event) {
	if err := s.events.HandleEvent(ctx, ev); err != nil {
		s.log.Error("lifecycle event dropped", "type", ev.Type, "user_id", ev.UserID, "err", err)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
