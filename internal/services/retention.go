package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"proctrace/internal/config"
	"proctrace/internal/repository"
)

// Retention periodically strips raw behavioral payloads past the configured
// age, drops raw events past their TTL and retires pending sessions that
// went idle. Scored results are never touched.
type Retention struct {
	log     *zap.Logger
	cfg     *config.Manager
	results *repository.Results
	events  *repository.Events
}

func NewRetention(log *zap.Logger, cfg *config.Manager, results *repository.Results, events *repository.Events) *Retention {
	return &Retention{log: log, cfg: cfg, results: results, events: events}
}

// Start runs the sweep loop in a goroutine until ctx is canceled.
func (s *Retention) Start(ctx context.Context) {
	cfg := s.cfg.Current().Retention
	if !cfg.Enabled {
		s.log.Info("Retention sweeps disabled")
		return
	}

	s.log.Info("Starting retention sweeper",
		zap.Duration("interval", cfg.SweepInterval),
		zap.Int("behavioral_max_age_days", cfg.BehavioralMaxAge),
		zap.Int("event_ttl_days", cfg.EventTTLDays),
		zap.Duration("pending_max_age", cfg.PendingMaxAge),
	)
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.log.Info("Retention sweeper stopped")
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *Retention) sweep(ctx context.Context) {
	// Cutoffs come from the current snapshot so an operator can shorten
	// retention without a restart.
	behavioral, events, pending := sweepCutoffs(s.cfg.Current().Retention, time.Now())

	stripped, err := s.results.StripBehavioralBefore(ctx, behavioral)
	if err != nil {
		s.log.Error("Failed to strip expired behavioral payloads", zap.Error(err))
	} else if stripped > 0 {
		s.log.Info("Stripped expired behavioral payloads", zap.Int64("sessions", stripped))
	}

	deleted, err := s.events.DeleteBefore(ctx, events)
	if err != nil {
		s.log.Error("Failed to delete expired events", zap.Error(err))
	} else if deleted > 0 {
		s.log.Info("Deleted expired events", zap.Int64("events", deleted))
	}

	retired, err := s.results.DeletePendingBefore(ctx, pending)
	if err != nil {
		s.log.Error("Failed to retire stale pending sessions", zap.Error(err))
	} else if retired > 0 {
		s.log.Info("Retired stale pending sessions", zap.Int64("sessions", retired))
	}
}

// sweepCutoffs derives the three expiry cutoffs from one clock reading.
func sweepCutoffs(cfg config.RetentionConfig, now time.Time) (behavioral, events, pending time.Time) {
	return now.AddDate(0, 0, -cfg.BehavioralMaxAge),
		now.AddDate(0, 0, -cfg.EventTTLDays),
		now.Add(-cfg.PendingMaxAge)
}
