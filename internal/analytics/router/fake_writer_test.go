package router

import (
	"context"

	"github.com/storetrail/storetrail-backend/internal/analytics/types"
)

type fakeWriter struct {
	inserted []types.StoreVisitRow
	err      error
}

func (f *fakeWriter) InsertStoreVisit(_ context.Context, row types.StoreVisitRow) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, row)
	return nil
}
