// Package reminder sweeps approved borrow requests for loans coming due or
// already overdue and pushes the corresponding notifications to the
// borrower, each at most once per request.
package reminder

import (
	"context"
	"log/slog"
	"time"

	"bookswap/event"
	"bookswap/model"
	reqrepo "bookswap/repository/request"
)

type Notifier interface {
	Notify(ctx context.Context, userID int64, typ event.Type, data event.Data) (*model.Notification, error)
}

type Service interface {
	// Sweep runs one pass and reports how many notifications went out.
	Sweep(ctx context.Context) (int, error)

	// Run sweeps on a ticker until ctx is cancelled.
	Run(ctx context.Context, interval time.Duration)
}

type service struct {
	r        reqrepo.Repo
	notifier Notifier
	window   time.Duration
	log      *slog.Logger
}

func New(r reqrepo.Repo, notifier Notifier, window time.Duration, log *slog.Logger) Service {
	return &service{r: r, notifier: notifier, window: window, log: log}
}

func (s *service) Sweep(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	sent := 0

	due, err := s.r.DueForReminder(ctx, now, s.window)
	if err != nil {
		return sent, err
	}
	for _, req := range due {
		data := event.Data{BookTitle: req.BookTitle, RequestType: string(req.RequestType)}
		if req.DueAt != nil {
			data.DueDate = req.DueAt.Format("2006-01-02")
		}
		if _, err := s.notifier.Notify(ctx, req.RequesterID, event.DueDateReminder, data); err != nil {
			s.log.Error("due-date reminder failed", "request_id", req.ID, "err", err)
			continue
		}
		if err := s.r.MarkReminderSent(ctx, req.ID); err != nil {
			s.log.Error("mark reminder sent failed", "request_id", req.ID, "err", err)
			continue
		}
		sent++
	}

	overdue, err := s.r.Overdue(ctx, now)
	if err != nil {
		return sent, err
	}
	for _, req := range overdue {
		data := event.Data{BookTitle: req.BookTitle, RequestType: string(req.RequestType)}
		if _, err := s.notifier.Notify(ctx, req.RequesterID, event.BookOverdue, data); err != nil {
			s.log.Error("overdue notice failed", "request_id", req.ID, "err", err)
			continue
		}
		if err := s.r.MarkOverdueSent(ctx, req.ID); err != nil {
			s.log.Error("mark overdue sent failed", "request_id", req.ID, "err", err)
			continue
		}
		sent++
	}

	return sent, nil
}

func (s *service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.Sweep(ctx); err != nil {
				s.log.Error("reminder sweep failed", "err", err)
			} else if n > 0 {
				s.log.Info("reminder sweep", "sent", n)
			}
		}
	}
}
