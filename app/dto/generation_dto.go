package dto

// GenerateTemplateRequest is the body of POST /generate: stored-template mode.
// The template is looked up by (app_id, type) and caller variables are
// substituted into it.
type GenerateTemplateRequest struct {
	AppID          string         `json:"app_id" validate:"required,max=128"`
	Type           string         `json:"type" validate:"required,max=64"`
	Variables      map[string]any `json:"variables" validate:"required"`
	KeyMode        string         `json:"key_mode" validate:"required,oneof=byok app"`
	RunID          *string        `json:"run_id,omitempty" validate:"omitempty,max=128"`
	BrandID        *string        `json:"brand_id,omitempty" validate:"omitempty,max=128"`
	CampaignID     *string        `json:"campaign_id,omitempty" validate:"omitempty,max=128"`
	IdempotencyKey *string        `json:"idempotency_key,omitempty" validate:"omitempty,min=1,max=255"`
}

// GenerateContentRequest is the body of POST /generate/content: free prompt,
// single cold email.
type GenerateContentRequest struct {
	AppID          string  `json:"app_id" validate:"required,max=128"`
	Prompt         string  `json:"prompt" validate:"required,min=1"`
	KeyMode        string  `json:"key_mode" validate:"required,oneof=byok app"`
	RunID          *string `json:"run_id,omitempty" validate:"omitempty,max=128"`
	BrandID        *string `json:"brand_id,omitempty" validate:"omitempty,max=128"`
	CampaignID     *string `json:"campaign_id,omitempty" validate:"omitempty,max=128"`
	IdempotencyKey *string `json:"idempotency_key,omitempty" validate:"omitempty,min=1,max=255"`
}

// GenerateCalendarRequest is the body of POST /generate/calendar
type GenerateCalendarRequest struct {
	AppID          string  `json:"app_id" validate:"required,max=128"`
	Prompt         string  `json:"prompt" validate:"required,min=1"`
	KeyMode        string  `json:"key_mode" validate:"required,oneof=byok app"`
	RunID          *string `json:"run_id,omitempty" validate:"omitempty,max=128"`
	IdempotencyKey *string `json:"idempotency_key,omitempty" validate:"omitempty,min=1,max=255"`
}

// SequenceStepResponse is one step of a generated outreach sequence
type SequenceStepResponse struct {
	Position          int    `json:"position"`
	BodyText          string `json:"body_text"`
	BodyHTML          string `json:"body_html,omitempty"`
	DaysSinceLastStep int    `json:"days_since_last_step"`
}

// GenerationResponse is the success payload shared by the generation
// endpoints; which fields are populated depends on the generated shape.
type GenerationResponse struct {
	ID           string                 `json:"id"`
	Kind         string                 `json:"kind"`
	Subject      string                 `json:"subject,omitempty"`
	BodyText     string                 `json:"body_text,omitempty"`
	BodyHTML     string                 `json:"body_html,omitempty"`
	Sequence     []SequenceStepResponse `json:"sequence,omitempty"`
	Title        string                 `json:"title,omitempty"`
	Description  string                 `json:"description,omitempty"`
	Location     string                 `json:"location,omitempty"`
	TokensInput  int                    `json:"tokens_input"`
	TokensOutput int                    `json:"tokens_output"`
}
