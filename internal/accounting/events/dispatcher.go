// Package events fans committed ledger changes out to the report cache and Kafka.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
)

// Event is the wire form of a ledger change.
type Event struct {
	EventID uuid.UUID `json:"event_id"`
	journals.Change
}

// Publisher sends an encoded event.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// CacheBumper invalidates a tenant's cached reports.
type CacheBumper interface {
	Bump(ctx context.Context, tenantID int64) error
}

// ChangeCounter counts dispatched changes.
type ChangeCounter interface {
	ObserveChange(kind string)
}

// Dispatcher implements journals.Notifier. Failures are logged and never
// surface to the writer, whose transaction has already committed.
type Dispatcher struct {
	cache     CacheBumper
	publisher Publisher
	counter   ChangeCounter
	logger    *slog.Logger
	newID     func() uuid.UUID
}

// NewDispatcher wires the fan-out. cache and publisher may be nil.
func NewDispatcher(cache CacheBumper, publisher Publisher, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{cache: cache, publisher: publisher, logger: logger, newID: uuid.New}
}

// SetCounter attaches change metrics.
func (d *Dispatcher) SetCounter(counter ChangeCounter) {
	d.counter = counter
}

func (d *Dispatcher) Notify(ctx context.Context, change journals.Change) {
	log := d.logger.With(slog.Int64("tenant_id", change.TenantID), slog.String("kind", string(change.Kind)))
	if d.counter != nil {
		d.counter.ObserveChange(string(change.Kind))
	}
	if d.cache != nil {
		if err := d.cache.Bump(ctx, change.TenantID); err != nil {
			log.Warn("report cache bump failed", slog.Any("error", err))
		}
	}
	if d.publisher == nil {
		return
	}
	evt := Event{EventID: d.newID(), Change: change}
	payload, err := json.Marshal(evt)
	if err != nil {
		log.Error("encode ledger event", slog.Any("error", err))
		return
	}
	if err := d.publisher.Publish(ctx, []byte(strconv.FormatInt(change.TenantID, 10)), payload); err != nil {
		log.Warn("publish ledger event failed", slog.Any("error", err), slog.String("event_id", evt.EventID.String()))
		return
	}
	log.Debug("ledger event published", slog.String("event_id", evt.EventID.String()))
}

var _ journals.Notifier = (*Dispatcher)(nil)
