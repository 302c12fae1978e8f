package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mzare/copyforge/app/dto"
	"github.com/mzare/copyforge/app/services"
	"github.com/mzare/copyforge/models"
	"github.com/mzare/copyforge/repository"
)

// TemplateFlow handles administrative prompt template management. The
// generation pipeline only reads templates; all writes come through here.
type TemplateFlow interface {
	UpsertTemplate(ctx context.Context, req *dto.UpsertTemplateRequest, metadata *ClientMetadata) (*dto.TemplateResponse, error)
	ListTemplates(ctx context.Context, appID string, metadata *ClientMetadata) (*dto.TemplateListResponse, error)
}

// TemplateFlowImpl implements TemplateFlow
type TemplateFlowImpl struct {
	templateRepo  repository.PromptTemplateRepository
	templateCache *services.TemplateCache
}

// NewTemplateFlow creates a new template flow
func NewTemplateFlow(templateRepo repository.PromptTemplateRepository, templateCache *services.TemplateCache) TemplateFlow {
	return &TemplateFlowImpl{
		templateRepo:  templateRepo,
		templateCache: templateCache,
	}
}

// UpsertTemplate creates or replaces the template stored for (app_id, type)
// and invalidates its cache entry.
func (f *TemplateFlowImpl) UpsertTemplate(ctx context.Context, req *dto.UpsertTemplateRequest, metadata *ClientMetadata) (*dto.TemplateResponse, error) {
	if strings.TrimSpace(req.Type) == "" {
		return nil, ErrTemplateTypeRequired
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrTemplateContentRequired
	}

	template := &models.PromptTemplate{
		AppID:        req.AppID,
		TemplateType: req.Type,
		Content:      req.Content,
		Placeholders: services.Placeholders(req.Content),
	}

	if err := f.templateRepo.Upsert(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to upsert template: %w", err)
	}

	if err := f.templateCache.Invalidate(ctx, req.AppID, req.Type); err != nil {
		log.Printf("WARN: template cache invalidation failed for %s/%s: %v", req.AppID, req.Type, err)
	}

	stored, err := f.templateRepo.ByAppAndType(ctx, req.AppID, req.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to reload template: %w", err)
	}
	if stored == nil {
		stored = template
	}

	resp := ToTemplateResponse(stored)
	return &resp, nil
}

// ListTemplates returns every template configured for an application
func (f *TemplateFlowImpl) ListTemplates(ctx context.Context, appID string, metadata *ClientMetadata) (*dto.TemplateListResponse, error) {
	if strings.TrimSpace(appID) == "" {
		return nil, ErrTemplateAppIDRequired
	}

	templates, err := f.templateRepo.ByAppID(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	resp := &dto.TemplateListResponse{
		AppID:     appID,
		Templates: make([]dto.TemplateResponse, 0, len(templates)),
	}
	for _, template := range templates {
		resp.Templates = append(resp.Templates, ToTemplateResponse(template))
	}

	return resp, nil
}
