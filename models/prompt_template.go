package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mzare/copyforge/utils"
	"gorm.io/gorm"
)

// PromptTemplate represents a stored prompt template, keyed uniquely by
// (app_id, template_type). Templates contain {{variable}} placeholders that
// are substituted at generation time. Managed through the admin upsert
// endpoint; the generation flow only reads them.
type PromptTemplate struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_prompt_templates_uuid" json:"uuid"`
	AppID        string         `gorm:"not null;uniqueIndex:uk_prompt_templates_app_type" json:"app_id"`
	TemplateType string         `gorm:"not null;uniqueIndex:uk_prompt_templates_app_type" json:"template_type"`
	Content      string         `gorm:"type:text;not null" json:"content"`
	Placeholders pq.StringArray `gorm:"type:text[]" json:"placeholders"`
	CreatedAt    time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt    *time.Time     `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (PromptTemplate) TableName() string {
	return "prompt_templates"
}

// BeforeCreate is called before creating a new record
func (t *PromptTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (t *PromptTemplate) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	t.UpdatedAt = &now
	return nil
}

// PromptTemplateFilter represents filter criteria for prompt templates
type PromptTemplateFilter struct {
	ID           *uint      `json:"id,omitempty"`
	UUID         *uuid.UUID `json:"uuid,omitempty"`
	AppID        *string    `json:"app_id,omitempty"`
	TemplateType *string    `json:"template_type,omitempty"`
}
