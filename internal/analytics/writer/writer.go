package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/storetrail/storetrail-backend/internal/analytics/types"
)

// RowInserter streams rows into a named table of the analytics dataset.
type RowInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

type Config struct {
	StoreVisitsTable string
	Retry            Retry
}

// StoreVisits writes one store_visits row per delivered check-in event. The
// insert is synchronous so the caller can ack only after the row landed. The
// event id doubles as the BigQuery insert id, which lets BigQuery drop
// redeliveries that slip past the Redis dedupe.
type StoreVisits struct {
	rows   RowInserter
	table  string
	schema cbigquery.Schema
	retry  Retry
}

func New(rows RowInserter, cfg Config) (*StoreVisits, error) {
	if rows == nil {
		return nil, errors.New("bigquery inserter is required")
	}
	table := strings.TrimSpace(cfg.StoreVisitsTable)
	if table == "" {
		return nil, errors.New("store visits table is required")
	}
	schema, err := cbigquery.InferSchema(types.StoreVisitRow{})
	if err != nil {
		return nil, fmt.Errorf("infer store visit schema: %w", err)
	}
	return &StoreVisits{rows: rows, table: table, schema: schema, retry: cfg.Retry.normalized()}, nil
}

func (w *StoreVisits) InsertStoreVisit(ctx context.Context, row types.StoreVisitRow) error {
	batch := []any{&cbigquery.StructSaver{Struct: row, Schema: w.schema, InsertID: row.EventID}}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := w.rows.InsertRows(ctx, w.table, batch)
		if err == nil {
			return nil
		}
		if attempt >= w.retry.Attempts || !Transient(err) {
			return fmt.Errorf("insert store visit %s into %s (attempt %d): %w", row.EventID, w.table, attempt, err)
		}
		if err := w.retry.sleep(ctx, attempt); err != nil {
			return err
		}
	}
}
