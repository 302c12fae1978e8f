package repository

import (
	"context"
	"errors"

	"github.com/mzare/copyforge/models"
	"github.com/mzare/copyforge/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PromptTemplateRepositoryImpl implements the PromptTemplateRepository interface
type PromptTemplateRepositoryImpl struct {
	*BaseRepository[models.PromptTemplate, models.PromptTemplateFilter]
}

// NewPromptTemplateRepository creates a new prompt template repository
func NewPromptTemplateRepository(db *gorm.DB) PromptTemplateRepository {
	return &PromptTemplateRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PromptTemplate, models.PromptTemplateFilter](db),
	}
}

// ByAppAndType retrieves the template stored for (app_id, template_type)
func (r *PromptTemplateRepositoryImpl) ByAppAndType(ctx context.Context, appID, templateType string) (*models.PromptTemplate, error) {
	db := r.getDB(ctx)

	var template models.PromptTemplate
	err := db.Where("app_id = ? AND template_type = ?", appID, templateType).
		Last(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &template, nil
}

// ByAppID retrieves all templates configured for an application
func (r *PromptTemplateRepositoryImpl) ByAppID(ctx context.Context, appID string) ([]*models.PromptTemplate, error) {
	db := r.getDB(ctx)

	var templates []*models.PromptTemplate
	err := db.Where("app_id = ?", appID).
		Order("template_type ASC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}

	return templates, nil
}

// Upsert creates the template or replaces the content of an existing one
// keyed by (app_id, template_type)
func (r *PromptTemplateRepositoryImpl) Upsert(ctx context.Context, template *models.PromptTemplate) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "app_id"}, {Name: "template_type"}},
		DoUpdates: clause.Assignments(map[string]any{
			"content":      template.Content,
			"placeholders": template.Placeholders,
			"updated_at":   utils.UTCNow(),
		}),
	}).Create(template).Error
	if err != nil {
		return err
	}

	return nil
}
