package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mzare/copyforge/utils"
	"gorm.io/gorm"
)

// GenerationKind represents the shape of a generated artifact
type GenerationKind string

const (
	GenerationKindEmail    GenerationKind = "email"
	GenerationKindSequence GenerationKind = "sequence"
	GenerationKindCalendar GenerationKind = "calendar"
)

// String returns the string representation of the kind
func (k GenerationKind) String() string {
	return string(k)
}

// Valid checks if the kind is valid
func (k GenerationKind) Valid() bool {
	switch k {
	case GenerationKindEmail, GenerationKindSequence, GenerationKindCalendar:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for GenerationKind
func (k *GenerationKind) Scan(value any) error {
	if value == nil {
		*k = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*k = GenerationKind(v)
	case []byte:
		*k = GenerationKind(string(v))
	default:
		return fmt.Errorf("cannot scan %T into GenerationKind", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for GenerationKind
func (k GenerationKind) Value() (driver.Value, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid GenerationKind: %s", k)
	}
	return string(k), nil
}

// SequenceStep represents one email in a multi-touch outreach sequence.
// DaysSinceLastStep is the delay relative to the previous step; the first
// step always carries 0.
type SequenceStep struct {
	Position          int    `json:"position"`
	BodyText          string `json:"body_text"`
	BodyHTML          string `json:"body_html,omitempty"`
	DaysSinceLastStep int    `json:"days_since_last_step"`
}

// SequenceSteps is the jsonb column holding the ordered steps
type SequenceSteps []SequenceStep

// Value implements the driver.Valuer interface for SequenceSteps
func (s SequenceSteps) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for SequenceSteps
func (s *SequenceSteps) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into SequenceSteps", value)
	}

	return json.Unmarshal(bytes, s)
}

// Generation represents one persisted generation result in the database.
// GenerationRunID is the only field mutated after the initial insert; once
// set it is never cleared.
type Generation struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UUID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_generations_uuid" json:"uuid"`
	OrganizationID string         `gorm:"not null;index:idx_generations_organization_id;uniqueIndex:uk_generations_org_idempotency_key,where:idempotency_key IS NOT NULL" json:"organization_id"`
	AppID          string         `gorm:"not null;index:idx_generations_app_id" json:"app_id"`
	BrandID        *string        `json:"brand_id,omitempty"`
	CampaignID     *string        `json:"campaign_id,omitempty"`
	Kind           GenerationKind `gorm:"type:generation_kind;not null" json:"kind"`
	TemplateType   *string        `json:"template_type,omitempty"`

	// Generated content; which fields are populated depends on Kind.
	Subject     string        `gorm:"type:text" json:"subject"`
	BodyText    string        `gorm:"type:text" json:"body_text"`
	BodyHTML    string        `gorm:"type:text" json:"body_html"`
	Steps       SequenceSteps `gorm:"type:jsonb" json:"steps,omitempty"`
	Title       string        `gorm:"type:text" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	Location    string        `gorm:"type:text" json:"location"`

	// Audit trail: the fully substituted prompt sent to the provider and the
	// provider's raw reply.
	ResolvedPrompt string `gorm:"type:text" json:"resolved_prompt"`
	RawResponse    string `gorm:"type:text" json:"raw_response"`

	TokensInput  *int `json:"tokens_input,omitempty"`
	TokensOutput *int `json:"tokens_output,omitempty"`

	GenerationRunID *string `gorm:"index:idx_generations_run_id" json:"generation_run_id,omitempty"`
	IdempotencyKey  *string `gorm:"uniqueIndex:uk_generations_org_idempotency_key,where:idempotency_key IS NOT NULL" json:"idempotency_key,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_generations_created_at" json:"created_at"`
}

// TableName returns the table name for the model
func (Generation) TableName() string {
	return "generations"
}

// BeforeCreate is called before creating a new record
func (g *Generation) BeforeCreate(tx *gorm.DB) error {
	if g.UUID == uuid.Nil {
		g.UUID = uuid.New()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = utils.UTCNow()
	}
	return nil
}

// GenerationFilter represents filter criteria for generations
type GenerationFilter struct {
	ID              *uint           `json:"id,omitempty"`
	UUID            *uuid.UUID      `json:"uuid,omitempty"`
	OrganizationID  *string         `json:"organization_id,omitempty"`
	AppID           *string         `json:"app_id,omitempty"`
	Kind            *GenerationKind `json:"kind,omitempty"`
	CampaignID      *string         `json:"campaign_id,omitempty"`
	IdempotencyKey  *string         `json:"idempotency_key,omitempty"`
	GenerationRunID *string         `json:"generation_run_id,omitempty"`
	CreatedAfter    *time.Time      `json:"created_after,omitempty"`
	CreatedBefore   *time.Time      `json:"created_before,omitempty"`
}
