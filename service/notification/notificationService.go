package notification

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"bookswap/event"
	"bookswap/model"
	notifrepo "bookswap/repository/notification"
	pushrepo "bookswap/repository/push"
	"bookswap/session"

	"github.com/google/uuid"
)

// errors used by controllers

type ErrCode string

const (
	ErrForbidden ErrCode = "FORBIDDEN"
	ErrNotFound  ErrCode = "NOT_FOUND"
	ErrBadType   ErrCode = "BAD_TYPE"
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

const (
	deliverTimeout  = 5 * time.Second
	persistAttempts = 3

	defaultPageSize = 20
	maxPageSize     = 100
)

// Deliverer is the live-delivery side of the session router.
type Deliverer interface {
	Deliver(ctx context.Context, userID int64, v any) error
}

// wireMessage is the single live-delivery message type: the full
// notification record, pushed to every channel bound to the recipient.
type wireMessage struct {
	Type string              `json:"type"`
	Data *model.Notification `json:"data"`
}

type Service interface {
	// Notify is the single choke point for notification creation: renders
	// the message, persists it, then attempts live delivery asynchronously,
	// degrading to the push adapter when no channel is live.
	Notify(ctx context.Context, userID int64, typ event.Type, data event.Data) (*model.Notification, error)

	List(ctx context.Context, userID int64, page, limit int) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, id string, actorID int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	Delete(ctx context.Context, id string, actorID int64) error
	ClearAll(ctx context.Context, userID int64) (int64, error)

	event.Handler
}

type service struct {
	r       notifrepo.Repo
	router  Deliverer
	push    pushrepo.Repo
	log     *slog.Logger
	timeout time.Duration

	// tail of the delivery chain per recipient, so live deliveries for one
	// user run in Notify order without the caller waiting on transport
	mu    sync.Mutex
	tails map[int64]chan struct{}
}

func New(r notifrepo.Repo, router Deliverer, push pushrepo.Repo, log *slog.Logger) Service {
	return &service{
		r:       r,
		router:  router,
		push:    push,
		log:     log,
		timeout: deliverTimeout,
		tails:   make(map[int64]chan struct{}),
	}
}

// HandleEvent translates one lifecycle event into exactly one notification.
func (s *service) HandleEvent(ctx context.Context, ev event.Event) error {
	_, err := s.Notify(ctx, ev.UserID, ev.Type, ev.Data)
	return err
}

func (s *service) Notify(ctx context.Context, userID int64, typ event.Type, data event.Data) (*model.Notification, error) {
	msg, err := renderMessage(typ, data)
	if err != nil {
		return nil, err
	}

	n := &model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      string(typ),
		Message:   msg,
		Data:      payload(data),
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}

	// durability before returning; transport comes later
	if err := s.persist(ctx, n); err != nil {
		return nil, err
	}

	s.enqueue(n)
	return n, nil
}

func (s *service) persist(ctx context.Context, n *model.Notification) error {
	var err error
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		if err = s.r.Insert(ctx, n); err == nil {
			return nil
		}
		s.log.Warn("notification insert failed", "attempt", attempt, "id", n.ID, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return err
}

// enqueue schedules the live-delivery attempt behind any in-flight
// delivery for the same recipient. Never blocks the caller.
func (s *service) enqueue(n *model.Notification) {
	s.mu.Lock()
	prev := s.tails[n.UserID]
	done := make(chan struct{})
	s.tails[n.UserID] = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		s.dispatch(n)

		s.mu.Lock()
		if s.tails[n.UserID] == done {
			delete(s.tails, n.UserID)
		}
		s.mu.Unlock()
	}()
}

// dispatch tries the live channel first; anything short of success degrades
// to the deferred push adapter. Errors stay in the logs.
func (s *service) dispatch(n *model.Notification) {
	liveCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	err := s.router.Deliver(liveCtx, n.UserID, wireMessage{Type: "notification", Data: n})
	cancel()
	if err == nil {
		return
	}
	if !errors.Is(err, session.ErrNoRecipient) {
		s.log.Warn("live delivery failed, deferring", "user_id", n.UserID, "id", n.ID, "err", err)
	}

	// the live attempt may have burned its whole deadline; the deferred
	// attempt gets a fresh one
	pushCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.push.Push(pushCtx, n.UserID, n); err != nil {
		s.log.Warn("deferred delivery failed", "user_id", n.UserID, "id", n.ID, "err", err)
	}
}

func (s *service) List(ctx context.Context, userID int64, page, limit int) ([]model.Notification, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.r.List(ctx, userID, limit, (page-1)*limit)
}

func (s *service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.r.UnreadCount(ctx, userID)
}

func (s *service) MarkRead(ctx context.Context, id string, actorID int64) error {
	n, err := s.getOwned(ctx, id, actorID)
	if err != nil {
		return err
	}
	if n.Read {
		// idempotent
		return nil
	}
	return s.r.MarkRead(ctx, id)
}

func (s *service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.r.MarkAllRead(ctx, userID)
}

func (s *service) Delete(ctx context.Context, id string, actorID int64) error {
	if _, err := s.getOwned(ctx, id, actorID); err != nil {
		return err
	}
	return s.r.Delete(ctx, id)
}

func (s *service) ClearAll(ctx context.Context, userID int64) (int64, error) {
	return s.r.DeleteAll(ctx, userID)
}

func (s *service) getOwned(ctx context.Context, id string, actorID int64) (*model.Notification, error) {
	n, err := s.r.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if n.UserID != actorID {
		return nil, makeErr(ErrForbidden)
	}
	return n, nil
}
