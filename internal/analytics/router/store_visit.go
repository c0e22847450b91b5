package router

import (
	"context"
	"fmt"
	"strings"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/storetrail/storetrail-backend/internal/analytics/types"
	analyticswriter "github.com/storetrail/storetrail-backend/internal/analytics/writer"
	"github.com/storetrail/storetrail-backend/pkg/logger"
	"github.com/storetrail/storetrail-backend/pkg/outbox/payloads"
)

type storeVisitHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newStoreVisitHandler(writer Writer, logg *logger.Logger) Handler {
	return &storeVisitHandler{writer: writer, logg: logg}
}

func (h *storeVisitHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.CheckInCreatedEvent)
	if !ok {
		return fmt.Errorf("%w: unexpected payload %T for checkin_created", ErrMalformedPayload, payload)
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"checkin_id": event.CheckInID.String(),
		"store_id":   event.StoreID,
		"country":    event.Country,
	})

	row, err := buildStoreVisitRow(envelope, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build store visit row", err)
		return err
	}

	if err := h.writer.InsertStoreVisit(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert store visit row", err)
		return err
	}

	h.logg.Info(logCtx, "checkin_created handler inserted store visit row")
	return nil
}

func buildStoreVisitRow(envelope types.Envelope, event *payloads.CheckInCreatedEvent) (types.StoreVisitRow, error) {
	payloadJSON, err := analyticswriter.JSONColumn(envelope.Payload)
	if err != nil {
		return types.StoreVisitRow{}, fmt.Errorf("encode payload json: %w", err)
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = envelope.OccurredAt
	}

	return types.StoreVisitRow{
		EventID:    envelope.EventID,
		OccurredAt: occurredAt.UTC(),
		CheckInID:  event.CheckInID.String(),
		UserID:     event.UserID.String(),
		StoreID:    event.StoreID,
		Brand:      nullString(event.Brand),
		Country:    nullString(event.Country),
		DistanceKm: event.DistanceKm,
		HasPhoto:   event.HasPhoto,
		HasComment: event.HasComment,
		Payload:    payloadJSON,
	}, nil
}

func nullString(value string) cbigquery.NullString {
	trimmed := strings.TrimSpace(value)
	return cbigquery.NullString{StringVal: trimmed, Valid: trimmed != ""}
}
