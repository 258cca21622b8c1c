package controller

import (
	"crypto/subtle"
	"log"

	"github.com/gofiber/fiber/v2"

	"encorecrm/config"
	"encorecrm/utils"
)

type AuthController struct {
	Logger *log.Logger
}

func NewAuthController(logger *log.Logger) *AuthController {
	return &AuthController{Logger: logger}
}

type TokenRequest struct {
	Operator string `json:"operator" validate:"required,max=100"`
	Secret   string `json:"secret" validate:"required"`
}

// IssueToken mints an operator token for clients that present the
// shared API secret. There is no user table; staff share one secret
// and tokens carry the operator name for the logs.
func (ac *AuthController) IssueToken(c *fiber.Ctx) error {
	var input TokenRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if subtle.ConstantTimeCompare([]byte(input.Secret), []byte(config.AppConfig.JWTSecret)) != 1 {
		ac.Logger.Printf("Rejected token request for operator %q", input.Operator)
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid credentials", nil)
	}

	token, err := utils.GenerateOperatorToken(input.Operator)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to issue token", err)
	}
	return c.JSON(fiber.Map{"success": true, "token": token})
}
