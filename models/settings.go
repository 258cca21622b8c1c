package models

import "gorm.io/gorm"

// AISettings is the single global configuration row for AI-backed
// content generation. Enabled is the master kill switch; when it is
// off no provider is ever called regardless of the fallback flags.
// Mutated only through the settings endpoint, read-only for the engine.
type AISettings struct {
	gorm.Model

	Enabled              bool   `gorm:"default:false" json:"enabled"`
	PrimaryModelProvider string `gorm:"default:'GEMINI'" json:"primary_model_provider"`
	FallbackOpenAI       bool   `gorm:"default:false" json:"fallback_openai"`
	FallbackDeepSeek     bool   `gorm:"default:false" json:"fallback_deepseek"`
}
