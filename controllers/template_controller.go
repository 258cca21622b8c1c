package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"encorecrm/models"
	"encorecrm/utils"
)

type TemplateController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewTemplateController(db *gorm.DB, logger *log.Logger) *TemplateController {
	return &TemplateController{DB: db, Logger: logger}
}

type CreateTemplateRequest struct {
	SequenceNumber int    `json:"sequence_number" validate:"required,min=1,max=10"`
	Name           string `json:"name" validate:"omitempty,max=200"`
	EmailSubject   string `json:"email_subject" validate:"required,max=500"`
	EmailBody      string `json:"email_body" validate:"required"`
	SMSBody        string `json:"sms_body" validate:"omitempty,max=1600"`
	IsActive       *bool  `json:"is_active"`
}

// CreateTemplate adds a follow-up template for a sequence step
func (tc *TemplateController) CreateTemplate(c *fiber.Ctx) error {
	var input CreateTemplateRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var existing models.FollowUpTemplate
	if err := tc.DB.Where("sequence_number = ?", input.SequenceNumber).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "A template for this sequence number already exists", nil)
	}

	tpl := models.FollowUpTemplate{
		SequenceNumber: input.SequenceNumber,
		Name:           input.Name,
		EmailSubject:   input.EmailSubject,
		EmailBody:      input.EmailBody,
		SMSBody:        input.SMSBody,
		IsActive:       true,
	}
	if input.IsActive != nil {
		tpl.IsActive = *input.IsActive
	}

	if err := tc.DB.Create(&tpl).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create template", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(tpl))
}

// GetTemplates lists all templates in sequence order
func (tc *TemplateController) GetTemplates(c *fiber.Ctx) error {
	var templates []models.FollowUpTemplate
	if err := tc.DB.Order("sequence_number ASC").Find(&templates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch templates", err)
	}
	return c.JSON(utils.SuccessResponse(templates))
}

type UpdateTemplateRequest struct {
	Name         *string `json:"name"`
	EmailSubject *string `json:"email_subject" validate:"omitempty,max=500"`
	EmailBody    *string `json:"email_body"`
	SMSBody      *string `json:"sms_body" validate:"omitempty,max=1600"`
	IsActive     *bool   `json:"is_active"`
}

// UpdateTemplate edits template content or toggles it active
func (tc *TemplateController) UpdateTemplate(c *fiber.Ctx) error {
	var tpl models.FollowUpTemplate
	if err := tc.DB.First(&tpl, c.Params("id")).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Template not found", nil)
	}

	var input UpdateTemplateRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.EmailSubject != nil {
		updates["email_subject"] = *input.EmailSubject
	}
	if input.EmailBody != nil {
		updates["email_body"] = *input.EmailBody
	}
	if input.SMSBody != nil {
		updates["sms_body"] = *input.SMSBody
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) > 0 {
		if err := tc.DB.Model(&tpl).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update template", err)
		}
	}
	return c.JSON(utils.SuccessResponse(tpl))
}

// DeleteTemplate removes a template, leaving a sequence gap the
// engine tolerates
func (tc *TemplateController) DeleteTemplate(c *fiber.Ctx) error {
	if err := tc.DB.Delete(&models.FollowUpTemplate{}, c.Params("id")).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete template", err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Template deleted"})
}
