package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ZebulonRouseFrantzich/wdb/internal/binary"
	"github.com/ZebulonRouseFrantzich/wdb/internal/logging"
	"github.com/ZebulonRouseFrantzich/wdb/internal/manifest"
)

// SyncService sets up every driver declared in a manifest.
type SyncService struct {
	parser  ManifestParser
	manager DriverManager
	clock   Clock
	logger  logrus.FieldLogger
}

// NewSyncService creates a new sync service. A nil clock uses RealClock.
func NewSyncService(parser ManifestParser, manager DriverManager, clock Clock, logger logrus.FieldLogger) *SyncService {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &SyncService{
		parser:  parser,
		manager: manager,
		clock:   clock,
		logger:  logger,
	}
}

// SyncRequest contains parameters for a manifest sync.
type SyncRequest struct {
	ManifestPath string
	// Parallel bounds concurrent setups; zero uses the CPU count.
	Parallel int
	// FailFast cancels the remaining setups after the first failure.
	FailFast bool
}

// DriverOutcome is the result of one manifest entry.
type DriverOutcome struct {
	Driver manifest.Driver
	Result *binary.SetupResult
	Err    error
}

// SyncResult reports a manifest sync. Outcomes follow manifest order.
type SyncResult struct {
	Outcomes   []DriverOutcome
	Warnings   []manifest.SensitiveDataFinding
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the wall time of the sync.
func (r *SyncResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed counts the drivers that could not be set up.
func (r *SyncResult) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Sync parses the manifest and sets up its drivers concurrently. The
// returned error joins every failed setup; the result is returned
// alongside it so callers can report partial progress.
func (s *SyncService) Sync(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(req.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	result := &SyncResult{
		StartedAt: s.clock.Now(),
		Warnings:  manifest.DetectSensitiveData(string(content)),
	}
	if len(result.Warnings) > 0 {
		s.logger.WithField("findings", len(result.Warnings)).Warn("manifest may contain credentials")
	}

	m, err := s.parser.ParseString(ctx, string(content))
	if err != nil {
		return nil, err
	}
	if len(m.Drivers) == 0 {
		return nil, ErrNoDrivers
	}

	limit := req.Parallel
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	result.Outcomes = make([]DriverOutcome, len(m.Drivers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, d := range m.Drivers {
		result.Outcomes[i].Driver = d
		g.Go(func() error {
			res, err := s.manager.SetupWithResult(gctx, d.Request())
			result.Outcomes[i].Result = res
			result.Outcomes[i].Err = err
			if err != nil {
				s.logger.WithError(err).WithField("driver", d.String()).Error("driver setup failed")
				if req.FailFast {
					return err
				}
				return nil
			}
			s.logger.WithFields(logging.SetupFields(string(d.Family), res.Resolved.Version,
				res.Platform.String(), res.CacheHit)).Debug("driver synced")
			return nil
		})
	}
	groupErr := g.Wait()
	result.FinishedAt = s.clock.Now()

	var errs []error
	for _, o := range result.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Driver, o.Err))
		}
	}
	if len(errs) == 0 && groupErr != nil {
		errs = append(errs, groupErr)
	}
	if len(errs) > 0 {
		return result, errors.Join(errs...)
	}

	s.logger.WithFields(logrus.Fields{
		"drivers":  len(result.Outcomes),
		"duration": result.Duration().String(),
	}).Info("manifest synced")
	return result, nil
}
