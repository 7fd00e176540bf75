package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/tm-watch/internal/domain/models"
)

type Store interface {
	LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]models.OutboxEvent, error)
	MarkSent(ctx context.Context, ids []int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
}

type Relay struct {
	log       *slog.Logger
	store     Store
	dispatch  *Dispatcher
	relayID   string
	batchSize int
	interval  time.Duration
	lease     time.Duration
}

func NewRelay(log *slog.Logger, store Store, dispatch *Dispatcher, batchSize int, interval, lease time.Duration) *Relay {
	relayID := uuid.NewString()
	return &Relay{
		log:       log.With(slog.String("relay_id", relayID)),
		store:     store,
		dispatch:  dispatch,
		relayID:   relayID,
		batchSize: batchSize,
		interval:  interval,
		lease:     lease,
	}
}

// Run публикует события, пока не отменён ctx.
func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	r.log.Info("relay started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping")
			return nil
		case <-t.C:
			r.Tick(ctx)
		}
	}
}

// Tick обрабатывает одну пачку событий и возвращает число опубликованных.
func (r *Relay) Tick(ctx context.Context) int {
	events, err := r.store.LockBatch(ctx, r.relayID, r.batchSize, r.lease)
	if err != nil {
		r.log.Error("relay lock batch error", slog.Any("error", err))
		return 0
	}
	if len(events) == 0 {
		return 0
	}

	ids := make([]int64, 0, len(events))
	for _, e := range events {
		if err := r.dispatch.Dispatch(ctx, e); err != nil {
			if mErr := r.store.MarkFailed(ctx, e.ID, err.Error()); mErr != nil {
				r.log.Error("relay mark failed error", slog.Int64("event_id", e.ID), slog.Any("error", mErr))
			}
			continue
		}
		ids = append(ids, e.ID)
	}
	if len(ids) > 0 {
		if err := r.store.MarkSent(ctx, ids); err != nil {
			r.log.Error("relay mark sent error", slog.Any("error", err))
			return 0
		}
	}
	return len(ids)
}
