// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	businessflow "github.com/clearlens/campaign-engine/business_flow"
	"github.com/clearlens/campaign-engine/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// CampaignScheduler periodically processes active campaigns whose next run is due.
// A run pass is driven entirely by the run flow; the scheduler only owns the cadence.
type CampaignScheduler struct {
	runFlow  businessflow.RunFlow
	logger   *log.Logger
	interval time.Duration

	logOutput io.Closer
}

func NewCampaignScheduler(runFlow businessflow.RunFlow, cfg config.SchedulerConfig, logging config.LoggingConfig) *CampaignScheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	s := &CampaignScheduler{
		runFlow:  runFlow,
		interval: interval,
	}
	s.initLogger(cfg.LogPath, logging)

	return s
}

// initLogger configures a logger that writes to both stdout and a rotating file
func (s *CampaignScheduler) initLogger(logPath string, logging config.LoggingConfig) {
	if logPath == "" {
		s.logger = log.New(os.Stdout, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return
	}

	rotator := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logging.MaxSize,
		MaxBackups: logging.MaxBackups,
		MaxAge:     logging.MaxAge,
		Compress:   logging.Compress,
	}
	s.logOutput = rotator

	mw := io.MultiWriter(os.Stdout, rotator)
	// log.Logger is goroutine-safe; include timestamps with microseconds and UTC
	s.logger = log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *CampaignScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		if s.logOutput != nil {
			_ = s.logOutput.Close()
		}
	}
}

func (s *CampaignScheduler) runOnce(ctx context.Context) {
	start := time.Now()
	if err := s.runFlow.ProcessDueCampaigns(ctx); err != nil {
		s.logger.Printf("scheduler: process due campaigns failed: %v", err)
		return
	}
	s.logger.Printf("scheduler: pass completed in %s", time.Since(start).Round(time.Millisecond))
}
