package dto

import "time"

// UpsertTemplateRequest is the body of PUT /admin/templates; creates or
// replaces the template stored for (app_id, type).
type UpsertTemplateRequest struct {
	AppID   string `json:"app_id" validate:"required,max=128"`
	Type    string `json:"type" validate:"required,max=64"`
	Content string `json:"content" validate:"required,min=1"`
}

// TemplateResponse describes one stored prompt template
type TemplateResponse struct {
	UUID         string     `json:"uuid"`
	AppID        string     `json:"app_id"`
	Type         string     `json:"type"`
	Content      string     `json:"content"`
	Placeholders []string   `json:"placeholders"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// TemplateListResponse is the payload of GET /admin/templates/:app_id
type TemplateListResponse struct {
	AppID     string             `json:"app_id"`
	Templates []TemplateResponse `json:"templates"`
}

// UsageReportQuery filters the admin usage export
type UsageReportQuery struct {
	OrganizationID string `query:"organization_id" validate:"omitempty,max=128"`
	AppID          string `query:"app_id" validate:"omitempty,max=128"`
	From           string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To             string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}
