package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// StoreVisitRow mirrors the store_visits BigQuery schema. Blank brand and
// country are written as NULL.
type StoreVisitRow struct {
	EventID    string               `bigquery:"event_id"`
	OccurredAt time.Time            `bigquery:"occurred_at"`
	CheckInID  string               `bigquery:"checkin_id"`
	UserID     string               `bigquery:"user_id"`
	StoreID    int64                `bigquery:"store_id"`
	Brand      cbigquery.NullString `bigquery:"brand"`
	Country    cbigquery.NullString `bigquery:"country"`
	DistanceKm float64              `bigquery:"distance_km"`
	HasPhoto   bool                 `bigquery:"has_photo"`
	HasComment bool                 `bigquery:"has_comment"`
	Payload    cbigquery.NullJSON   `bigquery:"payload"`
}
