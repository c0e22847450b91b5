package enums

import "slices"

// OutboxAggregateType is aggregate_type_enum.
type OutboxAggregateType string

const AggregateCheckIn OutboxAggregateType = "checkin"

var aggregateTypes = []OutboxAggregateType{AggregateCheckIn}

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregateTypes, a) }

func ParseOutboxAggregateType(raw string) (OutboxAggregateType, error) {
	return parse("aggregate type", raw, aggregateTypes)
}

// OutboxEventType is event_type_enum. It doubles as the Pub/Sub event_type
// attribute.
type OutboxEventType string

const EventCheckInCreated OutboxEventType = "checkin_created"

var eventTypes = []OutboxEventType{EventCheckInCreated}

func (e OutboxEventType) IsValid() bool { return slices.Contains(eventTypes, e) }

func ParseOutboxEventType(raw string) (OutboxEventType, error) {
	return parse("event type", raw, eventTypes)
}

// OutboxDLQErrorReason is outbox_dlq_error_reason_enum: why the relay gave
// up on a row.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var dlqReasons = []OutboxDLQErrorReason{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable}

func (r OutboxDLQErrorReason) IsValid() bool { return slices.Contains(dlqReasons, r) }
