package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mzare/copyforge/config"
	"github.com/mzare/copyforge/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrAIGenerationFailed means the provider call itself failed
	ErrAIGenerationFailed = errors.New("AI generation failed")
	// ErrAIResponseMalformed means the provider replied but the content could
	// not be parsed into the expected shape. Fatal for the request, never
	// retried here.
	ErrAIResponseMalformed = errors.New("AI response malformed")
)

var (
	aiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copyforge_ai_requests_total",
		Help: "Total number of AI provider requests",
	}, []string{"kind", "model", "status"})

	aiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "copyforge_ai_request_duration_seconds",
		Help:    "AI provider request duration in seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
	}, []string{"kind", "model"})

	aiTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copyforge_ai_tokens_total",
		Help: "Total tokens exchanged with the AI provider",
	}, []string{"model", "direction"})
)

// EmailResult is a single generated cold email
type EmailResult struct {
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	BodyText string `json:"body_text"`
}

// SequenceResult is a generated multi-touch sequence: the opener body plus
// follow-up bodies in send order. Day offsets are applied by the caller.
type SequenceResult struct {
	Subject   string
	Body      string
	Followups []string
}

// CalendarResult is a generated calendar entry
type CalendarResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

// GenerationOutput is the tagged result of one provider invocation; exactly
// one of Email, Sequence, Calendar is set, selected by Kind. RawResponse and
// ResolvedPrompt are kept verbatim for audit.
type GenerationOutput struct {
	Kind           models.GenerationKind
	Email          *EmailResult
	Sequence       *SequenceResult
	Calendar       *CalendarResult
	Model          string
	TokensInput    int
	TokensOutput   int
	ResolvedPrompt string
	RawResponse    string
}

// AIClient generates marketing copy through an LLM provider
type AIClient interface {
	Generate(ctx context.Context, apiKey string, kind models.GenerationKind, prompt string) (*GenerationOutput, error)
	Provider() string
}

// OpenAIClient implements AIClient against the OpenAI chat completion API.
// Model ids and system prompts come from configuration; the provider API key
// is resolved per request (BYOK or shared) and passed into Generate.
type OpenAIClient struct {
	config     *config.AIConfig
	httpClient *http.Client
}

// NewOpenAIClient creates an OpenAI-backed AI client
func NewOpenAIClient(cfg *config.AIConfig) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Provider returns the provider name used for key lookups and cost names
func (c *OpenAIClient) Provider() string {
	return c.config.Provider
}

// Generate sends the substituted prompt plus the shape's fixed system
// instruction and parses the reply into the tagged output variant.
func (c *OpenAIClient) Generate(ctx context.Context, apiKey string, kind models.GenerationKind, prompt string) (*GenerationOutput, error) {
	model, systemPrompt, err := c.shapeParams(kind)
	if err != nil {
		return nil, err
	}

	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(clientConfig)

	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   c.config.MaxTokens,
		Temperature: float32(c.config.Temperature),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	aiRequestDuration.WithLabelValues(kind.String(), model).Observe(time.Since(start).Seconds())

	if err != nil {
		aiRequestsTotal.WithLabelValues(kind.String(), model, "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		aiRequestsTotal.WithLabelValues(kind.String(), model, "error").Inc()
		return nil, fmt.Errorf("%w: provider returned no choices", ErrAIGenerationFailed)
	}

	raw := resp.Choices[0].Message.Content
	output := &GenerationOutput{
		Kind:           kind,
		Model:          model,
		TokensInput:    resp.Usage.PromptTokens,
		TokensOutput:   resp.Usage.CompletionTokens,
		ResolvedPrompt: prompt,
		RawResponse:    raw,
	}

	if err := parseContent(kind, raw, output); err != nil {
		aiRequestsTotal.WithLabelValues(kind.String(), model, "malformed").Inc()
		return nil, err
	}

	aiRequestsTotal.WithLabelValues(kind.String(), model, "success").Inc()
	aiTokensTotal.WithLabelValues(model, "input").Add(float64(resp.Usage.PromptTokens))
	aiTokensTotal.WithLabelValues(model, "output").Add(float64(resp.Usage.CompletionTokens))

	return output, nil
}

func (c *OpenAIClient) shapeParams(kind models.GenerationKind) (model, systemPrompt string, err error) {
	switch kind {
	case models.GenerationKindEmail:
		return c.config.EmailModel, c.config.EmailSystemPrompt, nil
	case models.GenerationKindSequence:
		return c.config.SequenceModel, c.config.SequenceSystemPrompt, nil
	case models.GenerationKindCalendar:
		return c.config.CalendarModel, c.config.CalendarSystemPrompt, nil
	default:
		return "", "", fmt.Errorf("unsupported generation kind: %s", kind)
	}
}

// parseContent decodes the provider reply into the variant for kind. The
// reply is expected to be a JSON object; code fences some models wrap around
// JSON are stripped first.
func parseContent(kind models.GenerationKind, raw string, output *GenerationOutput) error {
	content := stripCodeFence(raw)

	switch kind {
	case models.GenerationKindEmail:
		var email EmailResult
		if err := json.Unmarshal([]byte(content), &email); err != nil {
			return fmt.Errorf("%w: %v", ErrAIResponseMalformed, err)
		}
		if email.Subject == "" || (email.BodyText == "" && email.BodyHTML == "") {
			return fmt.Errorf("%w: missing subject or body", ErrAIResponseMalformed)
		}
		if email.BodyText == "" {
			email.BodyText = email.BodyHTML
		}
		output.Email = &email

	case models.GenerationKindSequence:
		var seq struct {
			Subject   string `json:"subject"`
			Body      string `json:"body"`
			Followup1 string `json:"followup1"`
			Followup2 string `json:"followup2"`
		}
		if err := json.Unmarshal([]byte(content), &seq); err != nil {
			return fmt.Errorf("%w: %v", ErrAIResponseMalformed, err)
		}
		if seq.Subject == "" || seq.Body == "" || seq.Followup1 == "" || seq.Followup2 == "" {
			return fmt.Errorf("%w: missing sequence fields", ErrAIResponseMalformed)
		}
		output.Sequence = &SequenceResult{
			Subject:   seq.Subject,
			Body:      seq.Body,
			Followups: []string{seq.Followup1, seq.Followup2},
		}

	case models.GenerationKindCalendar:
		var cal CalendarResult
		if err := json.Unmarshal([]byte(content), &cal); err != nil {
			return fmt.Errorf("%w: %v", ErrAIResponseMalformed, err)
		}
		if cal.Title == "" {
			return fmt.Errorf("%w: missing title", ErrAIResponseMalformed)
		}
		output.Calendar = &cal

	default:
		return fmt.Errorf("unsupported generation kind: %s", kind)
	}

	return nil
}

func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	return content
}
