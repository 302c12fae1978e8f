// Package businessflow contains the business logic for the application.
package businessflow

import (
	"github.com/mzare/copyforge/app/dto"
	"github.com/mzare/copyforge/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// FailurePolicy decides whether ledger failures after the generation record
// is persisted fail the request or are logged and swallowed. The two
// behaviors share one pipeline; keeping the policy an explicit value stops
// them drifting apart.
type FailurePolicy int

const (
	// PolicyBestEffort logs ledger failures at error level and still returns
	// the generated content. Generation is never blocked by ledger
	// unavailability.
	PolicyBestEffort FailurePolicy = iota
	// PolicyStrict propagates any ledger failure as a failure of the whole
	// request; these endpoints guarantee cost accounting.
	PolicyStrict
)

// String returns the policy name used in logs
func (p FailurePolicy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "best-effort"
}

// ToGenerationResponse converts a persisted generation record to the shared
// response payload.
func ToGenerationResponse(generation *models.Generation) *dto.GenerationResponse {
	resp := &dto.GenerationResponse{
		ID:          generation.UUID.String(),
		Kind:        generation.Kind.String(),
		Subject:     generation.Subject,
		BodyText:    generation.BodyText,
		BodyHTML:    generation.BodyHTML,
		Title:       generation.Title,
		Description: generation.Description,
		Location:    generation.Location,
	}

	if generation.TokensInput != nil {
		resp.TokensInput = *generation.TokensInput
	}
	if generation.TokensOutput != nil {
		resp.TokensOutput = *generation.TokensOutput
	}

	for _, step := range generation.Steps {
		resp.Sequence = append(resp.Sequence, dto.SequenceStepResponse{
			Position:          step.Position,
			BodyText:          step.BodyText,
			BodyHTML:          step.BodyHTML,
			DaysSinceLastStep: step.DaysSinceLastStep,
		})
	}

	return resp
}

// ToTemplateResponse converts a stored prompt template to its response payload
func ToTemplateResponse(template *models.PromptTemplate) dto.TemplateResponse {
	return dto.TemplateResponse{
		UUID:         template.UUID.String(),
		AppID:        template.AppID,
		Type:         template.TemplateType,
		Content:      template.Content,
		Placeholders: template.Placeholders,
		CreatedAt:    template.CreatedAt,
		UpdatedAt:    template.UpdatedAt,
	}
}
