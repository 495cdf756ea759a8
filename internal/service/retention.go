package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chatadmin/admin-console/internal/pkg/metrics"
	"github.com/chatadmin/admin-console/internal/resource"
)

const defaultRetentionInterval = time.Hour

// RetentionService periodically purges audit entries older than a fixed age.
type RetentionService struct {
	crud     ResourceService
	audit    resource.Descriptor
	days     int
	interval time.Duration
	log      *zap.Logger
	stopCh   chan struct{}
	done     chan struct{}
}

// NewRetentionService purges entries of the audit descriptor older than days,
// once at Start and then every interval.
func NewRetentionService(crud ResourceService, audit resource.Descriptor, days int, interval time.Duration, log *zap.Logger) *RetentionService {
	if interval <= 0 {
		interval = defaultRetentionInterval
	}
	return &RetentionService{
		crud:     crud,
		audit:    audit,
		days:     days,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the purge loop in a goroutine until Stop is called or ctx ends.
func (s *RetentionService) Start(ctx context.Context) {
	s.log.Info("Starting audit retention", zap.Int("days", s.days), zap.Duration("interval", s.interval))
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunOnce(ctx)
		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight purge to finish.
func (s *RetentionService) Stop() {
	close(s.stopCh)
	<-s.done
}

// RunOnce performs a single purge and returns the number of deleted entries.
func (s *RetentionService) RunOnce(ctx context.Context) int64 {
	start := time.Now()
	deleted, err := s.crud.DeleteOlderThan(ctx, s.audit, "timestamp", s.days)
	if err != nil {
		s.log.Error("Audit retention failed", zap.Error(err))
		return 0
	}
	metrics.AuditRetentionDeletedTotal.Add(float64(deleted))
	fields := []zap.Field{zap.Int64("deleted", deleted), zap.Duration("duration", time.Since(start))}
	if deleted > 0 {
		s.log.Info("Audit retention completed", fields...)
	} else {
		s.log.Debug("Audit retention completed", fields...)
	}
	return deleted
}
