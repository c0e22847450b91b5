package worker

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/storetrail/storetrail-backend/internal/analytics/router"
	"github.com/storetrail/storetrail-backend/internal/analytics/types"
	"github.com/storetrail/storetrail-backend/pkg/logger"
)

// consumerName scopes dedupe keys to this subscriber.
const consumerName = "analytics"

// Handler records one decoded check-in event. Errors wrapping
// router.ErrUnsupportedEventType or router.ErrMalformedPayload are final.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

func (fn HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type dedupe interface {
	MarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Forget(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type outcome int

const (
	ack outcome = iota
	redeliver
)

// Consumer turns check-in events from the analytics subscription into
// store_visits rows. Each event id is handled at most once per dedupe TTL.
type Consumer struct {
	sub     receiver
	handler Handler
	seen    dedupe
	log     *logger.Logger
}

func NewConsumer(sub *gcppubsub.Subscriber, handler Handler, seen dedupe, log *logger.Logger) (*Consumer, error) {
	switch {
	case sub == nil:
		return nil, errors.New("analytics subscription is required")
	case handler == nil:
		return nil, errors.New("analytics handler is required")
	case seen == nil:
		return nil, errors.New("idempotency ledger is required")
	case log == nil:
		return nil, errors.New("logger is required")
	}
	return &Consumer{sub: sub, handler: handler, seen: seen, log: log}, nil
}

// Run blocks in Receive until ctx is canceled or the subscription fails.
func (c *Consumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		if c.consume(ctx, msg) == redeliver {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) consume(ctx context.Context, msg *gcppubsub.Message) outcome {
	ctx = c.log.WithField(ctx, "message_id", msg.ID)

	env, err := decodeMessage(msg)
	if err != nil {
		c.log.Warn(c.log.WithField(ctx, "error", err.Error()), "dropping unreadable check-in message")
		return ack
	}
	ctx = c.log.WithFields(ctx, envelopeFields(env))

	eventID, err := uuid.Parse(env.EventID)
	if err != nil {
		c.log.Warn(ctx, "dropping check-in message with non-uuid event id")
		return ack
	}

	first, err := c.seen.MarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		c.log.Error(ctx, "dedupe check failed", err)
		return redeliver
	}
	if !first {
		c.log.Info(ctx, "duplicate check-in event skipped")
		return ack
	}

	err = c.handler.Handle(ctx, env)
	switch {
	case err == nil:
		c.log.Info(ctx, "store visit recorded")
		return ack
	case errors.Is(err, router.ErrUnsupportedEventType), errors.Is(err, router.ErrMalformedPayload):
		c.log.Warn(c.log.WithField(ctx, "error", err.Error()), "dropping undeliverable check-in event")
		return ack
	}

	c.log.Error(ctx, "store visit not recorded, releasing for redelivery", err)
	if delErr := c.seen.Forget(ctx, consumerName, eventID); delErr != nil {
		c.log.Error(ctx, "releasing dedupe key failed", delErr)
	}
	return redeliver
}
