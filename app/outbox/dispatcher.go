package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/escomrepo/users-service/app/authors"
	"github.com/escomrepo/users-service/app/config"
	"github.com/escomrepo/users-service/app/metrics"
	"github.com/escomrepo/users-service/app/models"
	"github.com/escomrepo/users-service/app/store"
	"github.com/rs/zerolog"
)

// Dispatcher drains the outbox on a fixed interval. It is the only component
// that ever talks to the external author registry, so no user-facing request
// blocks on that service's availability. One dispatcher runs per process;
// downstream handlers are idempotent, so the at-least-once contract holds
// even if a batch is re-seen after a crash.
type Dispatcher struct {
	store    store.Storage
	client   authors.Client
	interval time.Duration
	batch    int
	retryCap int
	lg       zerolog.Logger
}

func NewDispatcher(st store.Storage, client authors.Client, cfg config.App, lg zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    st,
		client:   client,
		interval: cfg.PollInterval,
		batch:    cfg.BatchSize,
		retryCap: cfg.RetryCap,
		lg:       lg.With().Str("component", "outbox_dispatcher").Logger(),
	}
}

// Run polls until the context is cancelled. The shutdown check sits between
// batches: an in-flight batch finishes, the loop never starts another.
func (d *Dispatcher) Run(ctx context.Context) {
	d.lg.Info().
		Dur("interval", d.interval).
		Int("batch_size", d.batch).
		Int("retry_cap", d.retryCap).
		Msg("outbox dispatcher started")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		d.processPending(ctx)

		select {
		case <-ctx.Done():
			d.lg.Info().Msg("outbox dispatcher stopped")
			return
		case <-ticker.C:
		}
	}
}

// processPending drains one batch, oldest first.
func (d *Dispatcher) processPending(ctx context.Context) {
	events, err := d.store.Outbox.FetchPending(ctx, d.batch)
	if err != nil {
		if ctx.Err() == nil {
			d.lg.Error().Err(err).Msg("failed to fetch pending outbox events")
		}
		return
	}

	for _, event := range events {
		d.processEvent(ctx, event)
	}
}

func (d *Dispatcher) processEvent(ctx context.Context, event models.OutboxEvent) {
	lg := d.lg.With().
		Int64("event_id", event.ID).
		Str("event_type", event.EventType).
		Int64("user_id", event.UserID).
		Logger()

	payload, err := DecodeUserEvent(event.Payload)
	if err != nil {
		// A payload we cannot read will never become readable; retrying it
		// forever would just burn the poll loop.
		lg.Warn().Err(err).Msg("unreadable outbox payload, dead-lettering event")
		d.deadLetter(ctx, event)
		return
	}

	var handlerErr error
	switch event.EventType {
	case models.EventCreateAuthor:
		handlerErr = d.handleCreateAuthor(ctx, payload)
	case models.EventDeleteLink:
		handlerErr = d.handleDeleteLink(ctx, payload)
	default:
		lg.Warn().Msg("unknown outbox event type, dead-lettering event")
		d.deadLetter(ctx, event)
		return
	}

	if handlerErr != nil {
		lg.Error().Err(handlerErr).Msg("outbox event processing failed")
		count, err := d.store.Outbox.IncrementRetry(ctx, event.ID)
		if err != nil {
			lg.Error().Err(err).Msg("failed to increment retry count")
			return
		}
		metrics.OutboxRetriesTotal.WithLabelValues(event.EventType).Inc()
		if count >= d.retryCap {
			// The event stays in storage for audit but FetchPending will
			// never return it again. Someone has to look at it.
			lg.Warn().Int("retry_count", count).Msg("outbox event exhausted retries, dead-lettered")
			metrics.OutboxDeadLettersTotal.WithLabelValues(event.EventType).Inc()
		}
		return
	}

	if err := d.store.Outbox.MarkProcessed(ctx, event.ID); err != nil {
		lg.Error().Err(err).Msg("failed to mark outbox event processed")
		return
	}
	metrics.OutboxProcessedTotal.WithLabelValues(event.EventType).Inc()
	lg.Info().Msg("outbox event processed")
}

// deadLetter marks an event processed without running a handler. Used for
// garbage the dispatcher can never act on.
func (d *Dispatcher) deadLetter(ctx context.Context, event models.OutboxEvent) {
	if err := d.store.Outbox.MarkProcessed(ctx, event.ID); err != nil {
		d.lg.Error().Err(err).Int64("event_id", event.ID).Msg("failed to dead-letter outbox event")
		return
	}
	metrics.OutboxDeadLettersTotal.WithLabelValues(event.EventType).Inc()
}

// handleCreateAuthor is a find-or-create upsert. A prior attempt may have
// created the author and crashed before linking, so looking up by email first
// is what keeps retries from producing duplicates.
func (d *Dispatcher) handleCreateAuthor(ctx context.Context, ev *UserEvent) error {
	var authorID int

	found := d.client.FindAuthorByEmail(ctx, ev.Email)
	if found.Ok && found.Data != nil {
		authorID = found.Data.ID
	} else {
		surname := ev.LastNameP
		if ev.LastNameM != "" {
			surname = ev.LastNameP + " " + ev.LastNameM
		}
		created := d.client.CreateAuthor(ctx, ev.Name, surname, ev.Email)
		if !created.Ok || created.Data == nil {
			return fmt.Errorf("create author for %s: %s", ev.Email, created.Message)
		}
		authorID = created.Data.ID
	}

	link := d.client.CreateLink(ctx, ev.UserID, authorID)
	if !link.Ok {
		return fmt.Errorf("link user %d to author %d: %s", ev.UserID, authorID, link.Message)
	}
	return nil
}

// handleDeleteLink removes the user's registry link. An absent link means a
// prior attempt (or somebody else) already removed it, which is success.
func (d *Dispatcher) handleDeleteLink(ctx context.Context, ev *UserEvent) error {
	rel := d.client.GetLink(ctx, ev.UserID)
	if !rel.Ok || rel.Data == nil {
		d.lg.Info().Int64("user_id", ev.UserID).Msg("no registry link found, nothing to delete")
		return nil
	}

	del := d.client.DeleteLink(ctx, ev.UserID, rel.Data.ID)
	if !del.Ok {
		return fmt.Errorf("delete link for user %d: %s", ev.UserID, del.Message)
	}
	return nil
}
