package repository

import (
	"context"

	"github.com/mzare/copyforge/models"
)

// GenerationRepository defines data access methods for generation records
type GenerationRepository interface {
	ByID(ctx context.Context, id uint) (*models.Generation, error)
	ByUUID(ctx context.Context, uuid string) (*models.Generation, error)
	ByIdempotencyKey(ctx context.Context, organizationID, key string) (*models.Generation, error)
	Save(ctx context.Context, generation *models.Generation) error
	SetGenerationRunID(ctx context.Context, id uint, runID string) error
	ByFilter(ctx context.Context, filter models.GenerationFilter, orderBy string, limit, offset int) ([]*models.Generation, error)
	Count(ctx context.Context, filter models.GenerationFilter) (int64, error)
}

// PromptTemplateRepository defines data access methods for stored prompt templates
type PromptTemplateRepository interface {
	ByID(ctx context.Context, id uint) (*models.PromptTemplate, error)
	ByAppAndType(ctx context.Context, appID, templateType string) (*models.PromptTemplate, error)
	ByAppID(ctx context.Context, appID string) ([]*models.PromptTemplate, error)
	Upsert(ctx context.Context, template *models.PromptTemplate) error
}
