// Package push is the deferred-delivery adapter: when a recipient has no
// live channel, the fanout engine hands the persisted notification here.
// Delivery is fire-and-forget and never touches the stored read flag.
package push

import (
	"context"

	"bookswap/model"
)

type Repo interface {
	Push(ctx context.Context, userID int64, n *model.Notification) error
}

// NewNoop returns an adapter that drops everything, for deployments with
// no push gateway configured.
func NewNoop() Repo { return noopRepo{} }

type noopRepo struct{}

func (noopRepo) Push(context.Context, int64, *model.Notification) error { return nil }
