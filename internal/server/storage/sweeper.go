package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"docshelf/internal/server/database"
	"docshelf/internal/server/logging"
	"docshelf/internal/server/metrics"
)

const tombstoneBatchSize = 100

// SweepResult summarises one sweep cycle.
type SweepResult struct {
	ReleasedReservations int
	PurgedBlobs          int
	FailedBlobs          int
}

// Sweeper reconciles the metadata store with the blob store on a cron
// schedule. It releases reservations left behind by uploads that never
// committed and retries blob deletions that failed at file delete time.
type Sweeper struct {
	repo           database.Repository
	store          Store
	schedule       string
	reservationTTL time.Duration
	now            func() time.Time
	cron           *cron.Cron
}

// NewSweeper creates a sweeper. store may be nil when no blob backend is configured.
func NewSweeper(repo database.Repository, store Store, schedule string, reservationTTL time.Duration) *Sweeper {
	return &Sweeper{
		repo:           repo,
		store:          store,
		schedule:       schedule,
		reservationTTL: reservationTTL,
		now:            time.Now,
	}
}

// Start schedules sweep cycles and runs one immediately.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	logging.L().Info("sweeper started", logging.String("schedule", s.schedule))
	s.cron.Start()
	go s.RunOnce(ctx)
	return nil
}

// Stop halts scheduling and blocks until a running cycle has finished.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	logging.L().Info("sweeper stopped")
}

// RunOnce performs a single sweep cycle.
func (s *Sweeper) RunOnce(ctx context.Context) SweepResult {
	var result SweepResult

	released, err := s.repo.ReleaseStaleReservations(ctx, s.now().Add(-s.reservationTTL))
	if err != nil {
		logging.L().Error("failed to release stale reservations", logging.Err(err))
	} else {
		result.ReleasedReservations = len(released)
		for _, f := range released {
			// The blob may have been written before the upload died.
			if s.store != nil {
				if err := s.store.Delete(ctx, ObjectKey(f.FolderID, f.ID, f.Name)); err != nil {
					logging.L().Warn("failed to delete blob of stale reservation",
						logging.String("file_id", f.ID),
						logging.Err(err),
					)
				}
			}
		}
		metrics.RecordSweep("reservation", len(released))
	}

	if s.store != nil {
		s.purgeTombstones(ctx, &result)
	}

	if result.ReleasedReservations > 0 || result.PurgedBlobs > 0 || result.FailedBlobs > 0 {
		logging.L().Info("sweep cycle complete",
			logging.Int("released_reservations", result.ReleasedReservations),
			logging.Int("purged_blobs", result.PurgedBlobs),
			logging.Int("failed_blobs", result.FailedBlobs),
		)
	}
	return result
}

func (s *Sweeper) purgeTombstones(ctx context.Context, result *SweepResult) {
	tombstones, err := s.repo.ListTombstones(ctx, tombstoneBatchSize)
	if err != nil {
		logging.L().Error("failed to list blob tombstones", logging.Err(err))
		return
	}

	for _, t := range tombstones {
		if err := s.store.Delete(ctx, t.PublicID); err != nil {
			result.FailedBlobs++
			logging.L().Error("failed to delete orphaned blob",
				logging.String("public_id", t.PublicID),
				logging.Int("attempts", t.Attempts+1),
				logging.Err(err),
			)
			if err := s.repo.RecordTombstoneAttempt(ctx, t.ID, err.Error()); err != nil {
				logging.L().Error("failed to record tombstone attempt", logging.Err(err))
			}
			continue
		}

		if err := s.repo.DeleteTombstone(ctx, t.ID); err != nil {
			logging.L().Error("failed to delete tombstone", logging.Int64("id", t.ID), logging.Err(err))
			continue
		}
		result.PurgedBlobs++
	}
	metrics.RecordSweep("blob", result.PurgedBlobs)
}
