package writer

import (
	"context"
	"errors"
	"net/http"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Retry bounds the insert loop: Attempts tries, waiting First then doubling up to Cap.
type Retry struct {
	Attempts int
	First    time.Duration
	Cap      time.Duration
}

func (r Retry) normalized() Retry {
	if r.Attempts <= 0 {
		r.Attempts = 3
	}
	if r.First <= 0 {
		r.First = 250 * time.Millisecond
	}
	if r.Cap <= 0 {
		r.Cap = 2 * time.Second
	}
	r.Cap = max(r.Cap, r.First)
	return r
}

// delay is the wait after the given failed attempt, counted from 1.
func (r Retry) delay(attempt int) time.Duration {
	d := r.First
	for i := 1; i < attempt && d < r.Cap; i++ {
		d *= 2
	}
	return min(d, r.Cap)
}

func (r Retry) sleep(ctx context.Context, attempt int) error {
	t := time.NewTimer(r.delay(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var (
	transientHTTP = map[int]bool{
		http.StatusRequestTimeout:      true,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusBadGateway:          true,
		http.StatusServiceUnavailable:  true,
		http.StatusGatewayTimeout:      true,
	}
	transientGRPC = map[codes.Code]bool{
		codes.Aborted:           true,
		codes.DeadlineExceeded:  true,
		codes.Internal:          true,
		codes.ResourceExhausted: true,
		codes.Unavailable:       true,
	}
	transientReasons = map[string]bool{
		"backendError":      true,
		"internalError":     true,
		"rateLimitExceeded": true,
		"timeout":           true,
	}
)

// Transient reports whether an insert error is worth retrying. Aggregated row
// errors count as transient only when every member is.
func Transient(err error) bool {
	if err == nil {
		return false
	}

	var rows cbigquery.PutMultiError
	if errors.As(err, &rows) {
		return every([]cbigquery.RowInsertionError(rows), func(r cbigquery.RowInsertionError) bool {
			return every([]error(r.Errors), Transient)
		})
	}
	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		return every([]error(multi), Transient)
	}

	var bqErr *cbigquery.Error
	if errors.As(err, &bqErr) {
		return transientReasons[bqErr.Reason]
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return transientHTTP[apiErr.Code]
	}
	if st, ok := status.FromError(err); ok {
		return transientGRPC[st.Code()]
	}
	return false
}

// every is false for an empty slice.
func every[T any](items []T, ok func(T) bool) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !ok(item) {
			return false
		}
	}
	return true
}
