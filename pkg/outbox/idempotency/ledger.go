// Package idempotency remembers which outbox events a consumer has already
// handled so Pub/Sub redeliveries are acknowledged without side effects.
package idempotency

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storetrail/storetrail-backend/pkg/redis"
)

var (
	ErrConsumerRequired = errors.New("idempotency: consumer name required")
	ErrEventIDRequired  = errors.New("idempotency: event id required")
)

// Ledger records processed event ids per consumer. Entries live in the
// shared idempotency keyspace under evt:processed:<consumer>.
type Ledger struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	now   func() time.Time
}

// NewLedger keeps markers for ttl. A zero ttl keeps them until evicted.
func NewLedger(store redis.IdempotencyStore, ttl time.Duration) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("idempotency: store required")
	}
	if ttl < 0 {
		return nil, errors.New("idempotency: ttl must not be negative")
	}
	return &Ledger{store: store, ttl: ttl, now: time.Now}, nil
}

// MarkProcessed claims eventID for consumer. It reports false when another
// delivery already claimed it.
func (l *Ledger) MarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := l.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	stamp := strconv.FormatInt(l.now().UTC().Unix(), 10)
	return l.store.SetNX(ctx, key, stamp, l.ttl)
}

// Forget drops the marker so a failed delivery can be retried.
func (l *Ledger) Forget(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := l.key(consumer, eventID)
	if err != nil {
		return err
	}
	return l.store.Del(ctx, key)
}

func (l *Ledger) key(consumer string, eventID uuid.UUID) (string, error) {
	consumer = strings.TrimSpace(consumer)
	switch {
	case consumer == "":
		return "", ErrConsumerRequired
	case eventID == uuid.Nil:
		return "", ErrEventIDRequired
	}
	return l.store.IdempotencyKey("evt:processed:"+consumer, eventID.String()), nil
}
