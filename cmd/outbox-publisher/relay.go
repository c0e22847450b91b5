package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storetrail/storetrail-backend/pkg/config"
	"github.com/storetrail/storetrail-backend/pkg/db/models"
	"github.com/storetrail/storetrail-backend/pkg/enums"
	"github.com/storetrail/storetrail-backend/pkg/logger"
	"github.com/storetrail/storetrail-backend/pkg/metrics"
	"github.com/storetrail/storetrail-backend/pkg/outbox/payloads"
	"github.com/storetrail/storetrail-backend/pkg/outbox/registry"
)

const (
	fallbackBatchSize   = 50
	fallbackMaxAttempts = 10
	publishTimeout      = 15 * time.Second
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetterStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.Resolved, error)
}

type relayStats interface {
	ObserveBatch(time.Duration)
	IncResult(string)
}

// RelayDeps collects what the relay needs. Publishers and Stats are optional.
type RelayDeps struct {
	Outbox      config.OutboxConfig
	Logger      *logger.Logger
	DB          txRunner
	Bus         pinger
	Events      outboxStore
	DeadLetters deadLetterStore
	Routes      resolver
	Publishers  topicPublishers
	Stats       relayStats
}

// Relay moves committed outbox rows onto Pub/Sub. A row leaves the pending
// set only in the transaction that claimed it.
type Relay struct {
	log         *logger.Logger
	db          txRunner
	bus         pinger
	events      outboxStore
	deadLetters deadLetterStore
	routes      resolver
	publishers  topicPublishers
	stats       relayStats

	batchSize   int
	maxAttempts int
	idle        time.Duration
}

func NewRelay(deps RelayDeps) (*Relay, error) {
	switch {
	case deps.Logger == nil:
		return nil, errors.New("outbox relay: logger is required")
	case deps.DB == nil:
		return nil, errors.New("outbox relay: database is required")
	case deps.Bus == nil:
		return nil, errors.New("outbox relay: pubsub client is required")
	case deps.Events == nil:
		return nil, errors.New("outbox relay: outbox repository is required")
	case deps.DeadLetters == nil:
		return nil, errors.New("outbox relay: dlq repository is required")
	case deps.Routes == nil:
		return nil, errors.New("outbox relay: routes are required")
	case deps.Publishers == nil:
		return nil, errors.New("outbox relay: publishers are required")
	}

	r := &Relay{
		log:         deps.Logger,
		db:          deps.DB,
		bus:         deps.Bus,
		events:      deps.Events,
		deadLetters: deps.DeadLetters,
		routes:      deps.Routes,
		publishers:  deps.Publishers,
		stats:       deps.Stats,
		batchSize:   deps.Outbox.BatchSize,
		maxAttempts: deps.Outbox.MaxAttempts,
		idle:        deps.Outbox.PollInterval(),
	}
	if r.stats == nil {
		r.stats = metrics.NewOutboxMetrics(nil)
	}
	if r.batchSize <= 0 {
		r.batchSize = fallbackBatchSize
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = fallbackMaxAttempts
	}
	return r, nil
}

// Run polls until ctx is done. Full batches are followed immediately by the
// next poll; failed passes back off exponentially.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		r.log.Error(ctx, "database unreachable", err)
		return fmt.Errorf("database ping: %w", err)
	}
	if err := r.bus.Ping(ctx); err != nil {
		r.log.Error(ctx, "pubsub unreachable", err)
		return fmt.Errorf("pubsub ping: %w", err)
	}

	wait := r.idle
	for {
		if err := ctx.Err(); err != nil {
			r.log.Info(ctx, "outbox relay stopping")
			return err
		}

		busy, err := r.drain(ctx)
		switch {
		case err != nil:
			r.log.Error(ctx, "outbox relay pass failed", err)
			wait = doubled(wait, r.idle)
		case busy:
			wait = r.idle
			continue
		default:
			wait = r.idle
		}
		if err := pause(ctx, jittered(wait)); err != nil {
			return err
		}
	}
}

// drain claims one batch and settles every row in it. It reports whether
// anything was claimed.
func (r *Relay) drain(ctx context.Context) (bool, error) {
	began := time.Now()
	claimed := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.events.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		claimed = len(rows)
		for _, row := range rows {
			if err := r.settle(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if claimed > 0 {
		r.stats.ObserveBatch(time.Since(began))
	}
	return claimed > 0, err
}

// settle publishes a row and records the outcome. Only bookkeeping failures
// are returned, which rolls back the whole batch.
func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	resolved, err := r.routes.Resolve(row)
	if err != nil {
		return r.bury(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err, rowFields(row, nil))
	}
	fields := rowFields(row, resolved)

	pubErr := r.publish(ctx, row, resolved)
	if pubErr == nil {
		if err := r.events.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", row.ID, err)
		}
		r.stats.IncResult(metrics.ResultPublished)
		r.log.Info(r.log.WithFields(ctx, fields), "check-in event relayed")
		return nil
	}

	if registry.IsPermanent(pubErr) {
		return r.bury(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, pubErr, fields)
	}
	attempt := row.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= r.maxAttempts {
		fields["terminal_reason"] = string(enums.OutboxDLQReasonMaxAttempts)
		return r.bury(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("gave up after %d attempts: %w", attempt, pubErr), fields)
	}

	fields["error"] = pubErr.Error()
	r.log.Warn(r.log.WithFields(ctx, fields), "check-in event relay failed, will retry")
	if err := r.events.MarkFailedTx(tx, row.ID, pubErr); err != nil {
		return fmt.Errorf("mark %s failed: %w", row.ID, err)
	}
	r.stats.IncResult(metrics.ResultFailed)
	return nil
}

// bury copies the row into the dead-letter table and takes it out of rotation.
func (r *Relay) bury(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = string(reason)
	fields["error"] = cause.Error()
	r.log.Warn(r.log.WithFields(ctx, fields), "check-in event dead-lettered")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := r.deadLetters.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("dead-letter %s: %w", row.ID, err)
	}
	if err := r.events.MarkTerminalTx(tx, row.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("mark %s terminal: %w", row.ID, err)
	}
	r.stats.IncResult(metrics.ResultDeadLettered)
	return nil
}

func (r *Relay) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.Resolved) error {
	topic := resolved.Route.Topic
	pub := r.publishers.For(topic)
	if pub == nil {
		return registry.Permanent(fmt.Errorf("no publisher for topic %s", topic))
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	res := pub.Publish(ctx, &gcppubsub.Message{
		Data:       row.Payload,
		Attributes: attributes(row, resolved),
	})
	if res == nil {
		return registry.Permanent(fmt.Errorf("topic %s returned no publish result", topic))
	}
	_, err := res.Get(ctx)
	return err
}

// attributes are what subscribers filter and dedupe on without opening the body.
func attributes(row models.OutboxEvent, resolved *registry.Resolved) map[string]string {
	version := resolved.Envelope.Version
	if version <= 0 {
		version = resolved.Route.Version
	}
	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(row.EventType),
		"event_version":  strconv.Itoa(version),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if checkIn, ok := resolved.Payload.(*payloads.CheckInCreatedEvent); ok {
		attrs["store_id"] = strconv.FormatInt(checkIn.StoreID, 10)
		if checkIn.Country != "" {
			attrs["country"] = checkIn.Country
		}
	}
	return attrs
}

func rowFields(row models.OutboxEvent, resolved *registry.Resolved) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	if resolved != nil {
		fields["topic"] = resolved.Route.Topic
		fields["event_id"] = resolved.Envelope.EventID
	}
	return fields
}
