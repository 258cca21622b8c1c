package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"encorecrm/models"
	"encorecrm/utils"
)

type SettingsController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewSettingsController(db *gorm.DB, logger *log.Logger) *SettingsController {
	return &SettingsController{DB: db, Logger: logger}
}

// GetAISettings returns the global AI configuration row
func (sc *SettingsController) GetAISettings(c *fiber.Ctx) error {
	var settings models.AISettings
	if err := sc.DB.First(&settings).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "AI settings not configured", nil)
	}
	return c.JSON(utils.SuccessResponse(settings))
}

type UpdateAISettingsRequest struct {
	Enabled              *bool   `json:"enabled"`
	PrimaryModelProvider *string `json:"primary_model_provider" validate:"omitempty,oneof=GEMINI OPENAI DEEPSEEK"`
	FallbackOpenAI       *bool   `json:"fallback_openai"`
	FallbackDeepSeek     *bool   `json:"fallback_deepseek"`
}

// UpdateAISettings edits the kill switch, primary provider, and
// fallback flags
func (sc *SettingsController) UpdateAISettings(c *fiber.Ctx) error {
	var settings models.AISettings
	if err := sc.DB.First(&settings).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "AI settings not configured", nil)
	}

	var input UpdateAISettingsRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	updates := map[string]interface{}{}
	if input.Enabled != nil {
		updates["enabled"] = *input.Enabled
	}
	if input.PrimaryModelProvider != nil {
		updates["primary_model_provider"] = *input.PrimaryModelProvider
	}
	if input.FallbackOpenAI != nil {
		updates["fallback_open_ai"] = *input.FallbackOpenAI
	}
	if input.FallbackDeepSeek != nil {
		updates["fallback_deep_seek"] = *input.FallbackDeepSeek
	}

	if len(updates) > 0 {
		if err := sc.DB.Model(&settings).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update settings", err)
		}
		sc.Logger.Printf("AI settings updated: %+v", updates)
	}
	return c.JSON(utils.SuccessResponse(settings))
}
