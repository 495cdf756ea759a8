package repository

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/chatadmin/admin-console/internal/pkg/metrics"
	"github.com/chatadmin/admin-console/internal/pkg/tracing"
)

// instrument wraps a store call with a span and timing metrics.
func instrument(ctx context.Context, operation, collection string, fn func(ctx context.Context) error) error {
	ctx, span := tracing.StartStoreSpan(ctx, operation, collection)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.StoreOperationDurationSeconds.WithLabelValues(operation, collection).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.StoreOperationErrorsTotal.WithLabelValues(operation, collection).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
