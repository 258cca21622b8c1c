package worker

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"encorecrm/engine"
	"encorecrm/utils"
)

// EngagementWorker triggers the engagement batch on a fixed interval.
// The redis lease means a manual trigger through the API and this
// worker can never run a batch at the same time.
type EngagementWorker struct {
	Orchestrator *engine.Orchestrator
	Lock         *utils.BatchLock
	Interval     time.Duration
	Logger       *log.Logger
}

func NewEngagementWorker(orch *engine.Orchestrator, lock *utils.BatchLock, interval time.Duration, logger *log.Logger) *EngagementWorker {
	return &EngagementWorker{
		Orchestrator: orch,
		Lock:         lock,
		Interval:     interval,
		Logger:       logger,
	}
}

func (ew *EngagementWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	ew.Logger.Println("Engagement worker started")

	ticker := time.NewTicker(ew.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ew.Logger.Println("Engagement worker shutting down...")
			return
		case <-ticker.C:
			ew.runBatch(ctx)
		}
	}
}

func (ew *EngagementWorker) runBatch(ctx context.Context) {
	start := time.Now()
	runID := uuid.New().String()
	if err := ew.Lock.Acquire(ctx, runID); err != nil {
		if err == utils.ErrBatchRunning {
			ew.Logger.Println("Skipping scheduled batch: another batch is running")
			return
		}
		ew.Logger.Printf("Batch lock unavailable, skipping scheduled batch: %v", err)
		return
	}
	defer func() {
		if err := ew.Lock.Release(ctx); err != nil {
			ew.Logger.Printf("Failed to release batch lock: %v", err)
		}
	}()

	result, err := ew.Orchestrator.Run(ctx)
	if err != nil {
		ew.Logger.Printf("Scheduled engagement batch failed: %v", err)
		return
	}

	failures := 0
	for _, lr := range result.Results {
		if !lr.Success {
			failures++
		}
	}
	ew.Logger.Printf("Scheduled batch done: processed=%d failures=%d elapsed=%s",
		result.Processed, failures, utils.FormatDuration(time.Since(start)))
}
