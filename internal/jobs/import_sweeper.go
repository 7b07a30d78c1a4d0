// internal/jobs/import_sweeper.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// PendingImports is the part of the import service the sweeper drives.
type PendingImports interface {
	ProcessPending(ctx context.Context, limit int) (int, error)
}

// ImportSweeper periodically runs import jobs created out-of-band, such as
// records inserted directly by the CMS.
type ImportSweeper struct {
	sched     *cron.Cron
	imports   PendingImports
	batchSize int
	logger    *logrus.Entry
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewImportSweeper(spec string, batchSize int, imports PendingImports) (*ImportSweeper, error) {
	if batchSize <= 0 {
		batchSize = 5
	}

	s := &ImportSweeper{
		imports:   imports,
		batchSize: batchSize,
		logger:    logrus.WithField("component", "import_sweeper"),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	// A slow sweep must not overlap the next tick.
	s.sched = cron.New(
		cron.WithParser(cronParser),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := s.sched.AddFunc(spec, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid import sweep spec %q: %w", spec, err)
	}
	return s, nil
}

func (s *ImportSweeper) Start() {
	s.logger.Info("Import sweeper started")
	s.sched.Start()
}

// Stop cancels a running sweep and waits for it, up to the given timeout.
func (s *ImportSweeper) Stop(timeout time.Duration) {
	s.cancel()
	done := s.sched.Stop()
	select {
	case <-done.Done():
	case <-time.After(timeout):
		s.logger.Warn("Import sweeper did not stop in time")
	}
}

// RunOnce performs a single sweep synchronously.
func (s *ImportSweeper) RunOnce(ctx context.Context) (int, error) {
	return s.imports.ProcessPending(ctx, s.batchSize)
}

func (s *ImportSweeper) sweep() {
	start := time.Now()
	ran, err := s.RunOnce(s.ctx)
	if err != nil {
		s.logger.WithError(err).Error("Import sweep failed")
		return
	}
	if ran > 0 {
		s.logger.WithFields(logrus.Fields{
			"jobs":     ran,
			"duration": time.Since(start).String(),
		}).Info("Import sweep processed pending jobs")
	}
}
