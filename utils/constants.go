package utils

// Context keys for request-scoped values
type contextKey string

const (
	RequestIDKey  contextKey = "request_id"
	UserAgentKey  contextKey = "user_agent"
	IPAddressKey  contextKey = "ip_address"
	EndpointKey   contextKey = "endpoint"
	TimeoutKey    contextKey = "timeout"
	CancelFuncKey contextKey = "cancel_func"
)

// Header names
const (
	// OrganizationIDHeader carries the caller organization identity, set by the
	// upstream authentication layer.
	OrganizationIDHeader = "X-Organization-ID"

	// ServiceTokenHeader carries the internal service-to-service JWT.
	ServiceTokenHeader = "X-Service-Token"
)

// Key resolution modes
const (
	KeyModeBYOK = "byok"
	KeyModeApp  = "app"
)

// Ledger constants
const (
	// LedgerServiceName identifies this service on every run it creates.
	LedgerServiceName = "copyforge"

	// LedgerTaskName identifies the billable unit of work.
	LedgerTaskName = "text-generation"
)

// Cache keys
const (
	PromptTemplateCacheKeyPrefix = "prompt_template"
)
