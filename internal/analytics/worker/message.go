package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/storetrail/storetrail-backend/internal/analytics/types"
	"github.com/storetrail/storetrail-backend/pkg/enums"
	"github.com/storetrail/storetrail-backend/pkg/outbox"
)

// decodeMessage combines the stored outbox envelope with the routing
// attributes set by the relay. Envelope values win; attributes fill gaps.
func decodeMessage(msg *gcppubsub.Message) (types.Envelope, error) {
	var stored outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &stored); err != nil {
		return types.Envelope{}, fmt.Errorf("decode payload envelope: %w", err)
	}
	attr := func(key string) string { return strings.TrimSpace(msg.Attributes[key]) }

	eventType, err := enums.ParseOutboxEventType(attr("event_type"))
	if err != nil {
		return types.Envelope{}, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr("aggregate_type"))
	if err != nil {
		return types.Envelope{}, fmt.Errorf("aggregate_type: %w", err)
	}

	env := types.Envelope{
		EventID:       strings.TrimSpace(stored.EventID),
		EventType:     eventType,
		Version:       stored.Version,
		AggregateType: aggregateType,
		AggregateID:   attr("aggregate_id"),
		OccurredAt:    stored.OccurredAt,
		Payload:       stored.Data,
	}
	if env.AggregateID == "" {
		return types.Envelope{}, errors.New("aggregate_id missing")
	}
	if env.EventID == "" {
		env.EventID = attr("event_id")
	}
	if env.EventID == "" {
		return types.Envelope{}, errors.New("event_id missing")
	}
	if env.Version <= 0 {
		env.Version, _ = strconv.Atoi(attr("event_version"))
	}
	if env.OccurredAt.IsZero() {
		if created, err := time.Parse(time.RFC3339Nano, attr("created_at")); err == nil {
			env.OccurredAt = created
		}
	}
	env.OccurredAt = env.OccurredAt.UTC()
	return env, nil
}

func envelopeFields(env types.Envelope) map[string]any {
	return map[string]any{
		"event_id":       env.EventID,
		"event_type":     string(env.EventType),
		"event_version":  env.Version,
		"aggregate_type": string(env.AggregateType),
		"aggregate_id":   env.AggregateID,
		"occurred_at":    env.OccurredAt.Format(time.RFC3339Nano),
	}
}
