package controller

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"encorecrm/config"
	"encorecrm/models"
	"encorecrm/utils"
)

type LeadController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewLeadController(db *gorm.DB, logger *log.Logger) *LeadController {
	return &LeadController{
		DB:     db,
		Logger: logger,
	}
}

type CreateLeadRequest struct {
	DirectorName   string  `json:"director_name" validate:"omitempty,max=200"`
	DirectorEmail  string  `json:"director_email" validate:"required,email"`
	DirectorPhone  string  `json:"director_phone" validate:"omitempty,e164"`
	School         string  `json:"school" validate:"omitempty,max=200"`
	Program        string  `json:"program" validate:"omitempty,max=200"`
	Season         string  `json:"season" validate:"omitempty,max=100"`
	PerformerCount int     `json:"performer_count" validate:"omitempty,min=0,max=10000"`
	Deadline       *string `json:"deadline"` // RFC 3339
	Notes          string  `json:"notes"`
}

// CreateLead creates a new lead with validation
func (lc *LeadController) CreateLead(c *fiber.Ctx) error {
	var input CreateLeadRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if err := checkmail.ValidateFormat(input.DirectorEmail); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid director email", err)
	}
	// DNS-backed check only in production; dev and test environments
	// must not depend on a resolver.
	if config.AppConfig.Environment == "production" {
		if ok, err := utils.ValidateMXRecords(input.DirectorEmail); err != nil || !ok {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Director email domain accepts no mail", err)
		}
	}

	// Check if lead already exists
	var existing models.Lead
	if err := lc.DB.Where("director_email = ?", strings.ToLower(input.DirectorEmail)).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Lead with this email already exists", nil)
	}

	lead := models.Lead{
		DirectorName:   input.DirectorName,
		DirectorEmail:  strings.ToLower(input.DirectorEmail),
		DirectorPhone:  input.DirectorPhone,
		School:         input.School,
		Program:        input.Program,
		Season:         input.Season,
		PerformerCount: input.PerformerCount,
		Status:         models.StatusNewLead,
		Notes:          input.Notes,
	}
	if input.Deadline != nil {
		deadline, err := time.Parse(time.RFC3339, *input.Deadline)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid deadline, expected RFC 3339", err)
		}
		lead.Deadline = &deadline
	}

	if err := lc.DB.Create(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create lead", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(lead))
}

// GetLeads returns paginated leads with status and reply filters
func (lc *LeadController) GetLeads(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	if page < 1 {
		page = 1
	}

	query := lc.DB.Model(&models.Lead{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if replied := c.Query("replied"); replied != "" {
		query = query.Where("reply_detected = ?", replied == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count leads", err)
	}

	var leads []models.Lead
	if err := query.Order("updated_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&leads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", err)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:  leads,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

// GetLead returns one lead with its communication history
func (lc *LeadController) GetLead(c *fiber.Ctx) error {
	var lead models.Lead
	if err := lc.DB.Preload("Communications").First(&lead, c.Params("id")).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
	}
	return c.JSON(utils.SuccessResponse(lead))
}

type UpdateLeadRequest struct {
	DirectorName   *string `json:"director_name"`
	DirectorPhone  *string `json:"director_phone" validate:"omitempty,e164"`
	School         *string `json:"school"`
	Program        *string `json:"program"`
	Season         *string `json:"season"`
	PerformerCount *int    `json:"performer_count"`
	Status         *string `json:"status" validate:"omitempty,oneof='New Lead' 'Quote Sent' 'Follow-up Sent 1' 'Follow-up Sent 2' 'Follow-up Sent 3' 'Follow-up Sent 4' 'Reply Received - Awaiting Action' 'Invoice Sent' 'Converted - Paid' 'Inactive'"`
	Notes          *string `json:"notes"`
}

// UpdateLead applies a partial update. Manual status edits are
// authoritative: the engine never overwrites a status an operator set.
func (lc *LeadController) UpdateLead(c *fiber.Ctx) error {
	var lead models.Lead
	if err := lc.DB.First(&lead, c.Params("id")).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
	}

	var input UpdateLeadRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	updates := map[string]interface{}{}
	if input.DirectorName != nil {
		updates["director_name"] = *input.DirectorName
	}
	if input.DirectorPhone != nil {
		updates["director_phone"] = *input.DirectorPhone
	}
	if input.School != nil {
		updates["school"] = *input.School
	}
	if input.Program != nil {
		updates["program"] = *input.Program
	}
	if input.Season != nil {
		updates["season"] = *input.Season
	}
	if input.PerformerCount != nil {
		updates["performer_count"] = *input.PerformerCount
	}
	if input.Status != nil {
		updates["status"] = *input.Status
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}

	if len(updates) > 0 {
		if err := lc.DB.Model(&lead).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update lead", err)
		}
	}

	return c.JSON(utils.SuccessResponse(lead))
}

// DeleteLead soft-deletes a lead
func (lc *LeadController) DeleteLead(c *fiber.Ctx) error {
	if err := lc.DB.Delete(&models.Lead{}, c.Params("id")).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete lead", err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Lead deleted"})
}
