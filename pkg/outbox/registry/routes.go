package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/storetrail/storetrail-backend/pkg/config"
	"github.com/storetrail/storetrail-backend/pkg/db/models"
	"github.com/storetrail/storetrail-backend/pkg/enums"
	"github.com/storetrail/storetrail-backend/pkg/outbox"
	"github.com/storetrail/storetrail-backend/pkg/outbox/payloads"
)

// Route says where an outbox event type is published and which aggregate owns it.
type Route struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	Version       int
	decode        Decoder
}

// Resolved is an outbox row that passed validation and whose body was decoded.
type Resolved struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// PermanentError marks a failure that retrying the same row cannot fix.
type PermanentError struct {
	Err error
}

func (e PermanentError) Error() string {
	if e.Err == nil {
		return "permanent outbox failure"
	}
	return e.Err.Error()
}

func (e PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a PermanentError.
func Permanent(err error) error {
	return PermanentError{Err: err}
}

// IsPermanent reports whether err, or anything it wraps, is a PermanentError.
func IsPermanent(err error) bool {
	var perm PermanentError
	return errors.As(err, &perm)
}

// Routes is the publisher side routing table.
type Routes struct {
	byType map[enums.OutboxEventType]Route
}

// NewRoutes binds every known event type to its configured topic.
func NewRoutes(cfg config.PubSubConfig) (*Routes, error) {
	if cfg.CheckInsTopic == "" {
		return nil, errors.New("checkins topic is required")
	}
	return &Routes{byType: map[enums.OutboxEventType]Route{
		enums.EventCheckInCreated: {
			EventType:     enums.EventCheckInCreated,
			AggregateType: enums.AggregateCheckIn,
			Topic:         cfg.CheckInsTopic,
			Version:       1,
			decode:        JSONDecoder[payloads.CheckInCreatedEvent](),
		},
	}}, nil
}

// Topics lists every destination topic, used to warm publishers at startup.
func (r *Routes) Topics() []string {
	seen := map[string]struct{}{}
	var topics []string
	for _, route := range r.byType {
		if _, dup := seen[route.Topic]; dup {
			continue
		}
		seen[route.Topic] = struct{}{}
		topics = append(topics, route.Topic)
	}
	return topics
}

// Resolve checks an outbox row against its route and decodes the envelope body.
// Every error it returns is permanent.
func (r *Routes) Resolve(row models.OutboxEvent) (*Resolved, error) {
	route, ok := r.byType[row.EventType]
	switch {
	case !ok:
		return nil, Permanent(fmt.Errorf("no route for event type %q", row.EventType))
	case route.AggregateType != row.AggregateType:
		return nil, Permanent(fmt.Errorf("%s rows belong to %s aggregates, got %s", row.EventType, route.AggregateType, row.AggregateType))
	case row.AggregateID == uuid.Nil:
		return nil, Permanent(errors.New("aggregate id is empty"))
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, Permanent(fmt.Errorf("envelope is not valid json: %w", err))
	}
	body := bytes.TrimSpace(env.Data)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, Permanent(fmt.Errorf("%s envelope has no data", row.EventType))
	}
	if env.Version != 0 && env.Version != route.Version {
		return nil, Permanent(fmt.Errorf("%s v%d is not routable", row.EventType, env.Version))
	}

	payload, err := route.decode(body)
	if err != nil {
		return nil, Permanent(fmt.Errorf("%s body: %w", row.EventType, err))
	}
	return &Resolved{Route: route, Envelope: env, Payload: payload}, nil
}
