package repository

import (
	"context"
	"errors"

	"github.com/mzare/copyforge/models"
	"github.com/mzare/copyforge/utils"
	"gorm.io/gorm"
)

// ErrDuplicateIdempotencyKey is returned by Save when another record with the
// same (organization_id, idempotency_key) pair already exists. Callers should
// re-fetch and return the winner's record.
var ErrDuplicateIdempotencyKey = errors.New("generation with this idempotency key already exists")

// GenerationRepositoryImpl implements the GenerationRepository interface
type GenerationRepositoryImpl struct {
	*BaseRepository[models.Generation, models.GenerationFilter]
}

// NewGenerationRepository creates a new generation repository
func NewGenerationRepository(db *gorm.DB) GenerationRepository {
	return &GenerationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Generation, models.GenerationFilter](db),
	}
}

// ByUUID retrieves a generation by UUID
func (r *GenerationRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Generation, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.GenerationFilter{UUID: &parsedUUID}
	generations, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(generations) == 0 {
		return nil, nil
	}

	return generations[0], nil
}

// ByIdempotencyKey retrieves the generation previously stored for the given
// (organization, idempotency key) pair. Absence of a match is not an error.
func (r *GenerationRepositoryImpl) ByIdempotencyKey(ctx context.Context, organizationID, key string) (*models.Generation, error) {
	filter := models.GenerationFilter{
		OrganizationID: &organizationID,
		IdempotencyKey: &key,
	}
	generations, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(generations) == 0 {
		return nil, nil
	}

	return generations[0], nil
}

// Save inserts a new generation record. A unique-index violation on
// (organization_id, idempotency_key) is reported as ErrDuplicateIdempotencyKey
// so that concurrent duplicate requests become a defined outcome instead of a
// silent double insert.
func (r *GenerationRepositoryImpl) Save(ctx context.Context, generation *models.Generation) error {
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

	err = db.Create(generation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && generation.IdempotencyKey != nil {
			err = ErrDuplicateIdempotencyKey
			return err
		}
		return err
	}

	return nil
}

// SetGenerationRunID persists the ledger run id onto an already-stored
// generation record. The column is write-once: a non-null value is never
// overwritten.
func (r *GenerationRepositoryImpl) SetGenerationRunID(ctx context.Context, id uint, runID string) error {
	db := r.getDB(ctx)
	return db.Model(&models.Generation{}).
		Where("id = ? AND generation_run_id IS NULL", id).
		Update("generation_run_id", runID).Error
}

// ByFilter retrieves generations based on filter criteria
func (r *GenerationRepositoryImpl) ByFilter(ctx context.Context, filter models.GenerationFilter, orderBy string, limit, offset int) ([]*models.Generation, error) {
	db := r.getDB(ctx)

	var generations []*models.Generation
	query := r.applyFilter(db, filter)

	// Apply ordering
	if orderBy != "" {
		query = query.Order(orderBy)
	}

	// Apply pagination
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&generations).Error
	if err != nil {
		return nil, err
	}

	return generations, nil
}

// Count returns the number of generations matching the filter
func (r *GenerationRepositoryImpl) Count(ctx context.Context, filter models.GenerationFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var generation models.Generation
	query := r.applyFilter(db.Model(&generation), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *GenerationRepositoryImpl) applyFilter(db *gorm.DB, filter models.GenerationFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.OrganizationID != nil {
		db = db.Where("organization_id = ?", *filter.OrganizationID)
	}
	if filter.AppID != nil {
		db = db.Where("app_id = ?", *filter.AppID)
	}
	if filter.Kind != nil {
		db = db.Where("kind = ?", *filter.Kind)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.IdempotencyKey != nil {
		db = db.Where("idempotency_key = ?", *filter.IdempotencyKey)
	}
	if filter.GenerationRunID != nil {
		db = db.Where("generation_run_id = ?", *filter.GenerationRunID)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
