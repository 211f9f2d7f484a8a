package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"walkin/pkg/logger"
)

// JobProcessor handles background jobs for queue operations
type JobProcessor struct {
	service Service
	catalog OutletCatalog
	config  *JobConfig
	logger  *logger.Logger
	now     func() time.Time

	mu      sync.Mutex
	lastRun map[uuid.UUID]string
	done    chan struct{}
	stopped sync.Once
}

// JobConfig contains configuration for background jobs
type JobConfig struct {
	EndOfDayTime string        // HH:MM in each outlet's local time
	CheckPeriod  time.Duration // how often the clock is compared
}

// DefaultJobConfig returns default job configuration
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		EndOfDayTime: "23:59",
		CheckPeriod:  time.Minute,
	}
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(service Service, catalog OutletCatalog, config *JobConfig, log *logger.Logger) (*JobProcessor, error) {
	if config == nil {
		config = DefaultJobConfig()
	}
	if _, err := time.Parse("15:04", config.EndOfDayTime); err != nil {
		return nil, fmt.Errorf("invalid end of day time %q: %w", config.EndOfDayTime, err)
	}

	return &JobProcessor{
		service: service,
		catalog: catalog,
		config:  config,
		logger:  log,
		now:     time.Now,
		lastRun: make(map[uuid.UUID]string),
		done:    make(chan struct{}),
	}, nil
}

// Start starts all background jobs
func (jp *JobProcessor) Start(ctx context.Context) {
	go jp.startEndOfDayProcessor(ctx)
	jp.logger.Info("Queue background jobs started",
		"end_of_day_time", jp.config.EndOfDayTime,
		"check_period", jp.config.CheckPeriod.String(),
	)
}

// Stop stops all background jobs
func (jp *JobProcessor) Stop() {
	jp.stopped.Do(func() {
		close(jp.done)
		jp.logger.Info("Queue background jobs stopped")
	})
}

func (jp *JobProcessor) startEndOfDayProcessor(ctx context.Context) {
	ticker := time.NewTicker(jp.config.CheckPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jp.RunDue(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunDue closes the queue of every outlet whose local clock has passed the
// end-of-day time and that has not been closed yet today. It returns the
// number of entries closed.
func (jp *JobProcessor) RunDue(ctx context.Context) int {
	outletIDs, err := jp.catalog.ListOutletIDs(ctx)
	if err != nil {
		jp.logger.ErrorWithContext(ctx, "end of day: failed to list outlets", err, nil)
		return 0
	}

	total := 0
	for _, outletID := range outletIDs {
		settings, err := jp.catalog.GetQueueSettings(ctx, outletID)
		if err != nil {
			jp.logger.ErrorWithContext(ctx, "end of day: failed to load outlet settings", err, map[string]interface{}{
				"outlet_id": outletID.String(),
			})
			continue
		}

		local := jp.now().In(settings.Location)
		today := local.Format(DateLayout)
		if local.Format("15:04") < jp.config.EndOfDayTime || jp.ranOn(outletID) == today {
			continue
		}

		closed, err := jp.service.EndOfDayCleanup(ctx, outletID)
		if err != nil {
			jp.logger.ErrorWithContext(ctx, "end of day cleanup failed", err, map[string]interface{}{
				"outlet_id": outletID.String(),
			})
			continue
		}
		jp.markRun(outletID, today)
		total += closed
	}
	return total
}

func (jp *JobProcessor) ranOn(outletID uuid.UUID) string {
	jp.mu.Lock()
	defer jp.mu.Unlock()
	return jp.lastRun[outletID]
}

func (jp *JobProcessor) markRun(outletID uuid.UUID, date string) {
	jp.mu.Lock()
	defer jp.mu.Unlock()
	jp.lastRun[outletID] = date
}

// GetJobStatus returns the status of background jobs
func (jp *JobProcessor) GetJobStatus() map[string]interface{} {
	jp.mu.Lock()
	defer jp.mu.Unlock()
	return map[string]interface{}{
		"end_of_day_time": jp.config.EndOfDayTime,
		"check_period":    jp.config.CheckPeriod.String(),
		"outlets_closed":  len(jp.lastRun),
		"status":          "running",
	}
}
