package controller

import (
	"errors"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"encorecrm/engine"
	"encorecrm/utils"
)

type EngagementController struct {
	Orchestrator *engine.Orchestrator
	Lock         *utils.BatchLock
	Logger       *log.Logger
	Progress     *ProgressHub
}

func NewEngagementController(orch *engine.Orchestrator, lock *utils.BatchLock, hub *ProgressHub, logger *log.Logger) *EngagementController {
	return &EngagementController{
		Orchestrator: orch,
		Lock:         lock,
		Logger:       logger,
		Progress:     hub,
	}
}

// RunBatch triggers one engagement batch. Invoked with an empty body
// by the external scheduler or manually by an operator. The redis
// lease keeps overlapping triggers from double-sending.
func (ec *EngagementController) RunBatch(c *fiber.Ctx) error {
	ctx := c.UserContext()
	runID := uuid.New().String()

	if err := ec.Lock.Acquire(ctx, runID); err != nil {
		if errors.Is(err, utils.ErrBatchRunning) {
			return utils.ErrorResponse(c, fiber.StatusConflict, "An engagement batch is already running", nil)
		}
		// Lock backend down: run anyway rather than silently stalling
		// all follow-ups, but make noise about it.
		ec.Logger.Printf("Batch lock unavailable, running without overlap protection: %v", err)
		sentry.CaptureException(err)
	} else {
		defer func() {
			if err := ec.Lock.Release(ctx); err != nil {
				ec.Logger.Printf("Failed to release batch lock: %v", err)
			}
		}()
	}

	ec.Orchestrator.Progress = func(lr engine.LeadResult) {
		ec.Progress.Broadcast(lr)
	}

	result, err := ec.Orchestrator.Run(ctx)
	if err != nil {
		// Selection failure is fatal to the whole batch.
		ec.Logger.Printf("Engagement batch failed: %v", err)
		sentry.CaptureException(err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Engagement batch failed", err)
	}

	return c.JSON(fiber.Map{
		"success":   result.Success,
		"processed": result.Processed,
		"results":   result.Results,
	})
}

// GetRecommendations returns the analyzer's per-lead dashboard rows.
func (ec *EngagementController) GetRecommendations(c *fiber.Ctx) error {
	analyzer := engine.NewLeadAnalyzer(ec.Orchestrator.DB, ec.Orchestrator.Selector.Config)
	recs, err := analyzer.Analyze(time.Now())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to analyze leads", err)
	}
	return c.JSON(utils.SuccessResponse(recs))
}
