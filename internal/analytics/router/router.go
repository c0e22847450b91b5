package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/storetrail/storetrail-backend/internal/analytics/types"
	"github.com/storetrail/storetrail-backend/pkg/enums"
	"github.com/storetrail/storetrail-backend/pkg/logger"
	"github.com/storetrail/storetrail-backend/pkg/outbox/payloads"
	"github.com/storetrail/storetrail-backend/pkg/outbox/registry"
)

const defaultPayloadVersion = 1

var (
	ErrUnsupportedEventType = errors.New("unsupported analytics event type")
	ErrMalformedPayload     = errors.New("malformed analytics payload")
)

// Writer delivers BigQuery rows produced by analytics handlers.
type Writer interface {
	InsertStoreVisit(ctx context.Context, row types.StoreVisitRow) error
}

// Handler receives an envelope plus a decoded event payload.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

// Router dispatches analytics envelopes to the configured handler per event type.
type Router struct {
	decoders *registry.Decoders
	handlers map[enums.OutboxEventType]Handler
	logg     *logger.Logger
}

// NewRouter wires the default handlers and allows overrides for specific events.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	decoders := registry.NewDecoders()
	decoders.Register(enums.EventCheckInCreated, 1, registry.JSONDecoder[payloads.CheckInCreatedEvent]())

	handlers := map[enums.OutboxEventType]Handler{
		enums.EventCheckInCreated: newStoreVisitHandler(writer, logg),
	}
	for event, custom := range overrides {
		if _, ok := handlers[event]; !ok || custom == nil {
			continue
		}
		handlers[event] = custom
	}

	return &Router{
		decoders: decoders,
		handlers: handlers,
		logg:     logg,
	}, nil
}

// Handle decodes the envelope payload and dispatches it to the configured handler.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	handler, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("%w: empty payload for %s", ErrMalformedPayload, envelope.EventType)
	}

	version := envelope.Version
	if version <= 0 {
		version = defaultPayloadVersion
	}
	payload, err := r.decoders.Decode(envelope.EventType, version, envelope.Payload)
	if err != nil {
		return fmt.Errorf("%w: %s@v%d: %v", ErrMalformedPayload, envelope.EventType, version, err)
	}

	return handler.Handle(ctx, envelope, payload)
}
