package businessflow

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mzare/copyforge/app/dto"
	"github.com/mzare/copyforge/app/services"
	"github.com/mzare/copyforge/config"
	"github.com/mzare/copyforge/models"
	"github.com/mzare/copyforge/repository"
	"github.com/mzare/copyforge/utils"
)

// GenerationFlow handles the generation-request pipeline end to end:
// idempotency, template resolution, key resolution, LLM invocation,
// persistence and cost reporting.
type GenerationFlow interface {
	GenerateFromTemplate(ctx context.Context, req *dto.GenerateTemplateRequest, organizationID string, metadata *ClientMetadata) (*dto.GenerationResponse, error)
	GenerateContent(ctx context.Context, req *dto.GenerateContentRequest, organizationID string, metadata *ClientMetadata) (*dto.GenerationResponse, error)
	GenerateCalendar(ctx context.Context, req *dto.GenerateCalendarRequest, organizationID string, metadata *ClientMetadata) (*dto.GenerationResponse, error)
}

// LedgerService is the slice of the ledger client the flow needs
type LedgerService interface {
	CreateRun(ctx context.Context, in services.CreateRunInput) (*services.RunRecord, error)
	UpdateRun(ctx context.Context, runID, status string) error
	AddCosts(ctx context.Context, runID string, items []services.CostItem) error
}

// KeyResolver fetches decrypted provider API keys
type KeyResolver interface {
	OrgKey(ctx context.Context, organizationID, provider string) (string, error)
	AppKey(ctx context.Context, appID, provider string) (string, error)
}

// GenerationFlowImpl implements GenerationFlow
type GenerationFlowImpl struct {
	generationRepo repository.GenerationRepository
	templateRepo   repository.PromptTemplateRepository
	templateCache  *services.TemplateCache
	aiClient       services.AIClient
	keystore       KeyResolver
	ledger         LedgerService
	genConfig      *config.GenerationConfig
}

// NewGenerationFlow creates a new generation flow
func NewGenerationFlow(
	generationRepo repository.GenerationRepository,
	templateRepo repository.PromptTemplateRepository,
	templateCache *services.TemplateCache,
	aiClient services.AIClient,
	keystore KeyResolver,
	ledger LedgerService,
	genConfig *config.GenerationConfig,
) GenerationFlow {
	return &GenerationFlowImpl{
		generationRepo: generationRepo,
		templateRepo:   templateRepo,
		templateCache:  templateCache,
		aiClient:       aiClient,
		keystore:       keystore,
		ledger:         ledger,
		genConfig:      genConfig,
	}
}

// generationInput is the normalized request the pipeline runs on, shared by
// all three entry points.
type generationInput struct {
	OrganizationID string
	AppID          string
	Kind           models.GenerationKind
	TemplateType   *string
	Variables      map[string]any
	Prompt         string
	KeyMode        string
	ParentRunID    *string
	BrandID        *string
	CampaignID     *string
	IdempotencyKey *string
	Policy         FailurePolicy
}

// GenerateFromTemplate generates from a stored template; ledger failures are
// best-effort (legacy behavior: generation is never blocked by the ledger).
func (f *GenerationFlowImpl) GenerateFromTemplate(ctx context.Context, req *dto.GenerateTemplateRequest, organizationID string, metadata *ClientMetadata) (*dto.GenerationResponse, error) {
	return f.execute(ctx, &generationInput{
		OrganizationID: organizationID,
		AppID:          req.AppID,
		Kind:           kindForTemplateType(req.Type),
		TemplateType:   utils.ToPtr(req.Type),
		Variables:      req.Variables,
		KeyMode:        req.KeyMode,
		ParentRunID:    req.RunID,
		BrandID:        req.BrandID,
		CampaignID:     req.CampaignID,
		IdempotencyKey: req.IdempotencyKey,
		Policy:         PolicyBestEffort,
	}, metadata)
}

// GenerateContent generates a single cold email from a free prompt; cost
// accounting is mandatory (strict policy).
func (f *GenerationFlowImpl) GenerateContent(ctx context.Context, req *dto.GenerateContentRequest, organizationID string, metadata *ClientMetadata) (*dto.GenerationResponse, error) {
	return f.execute(ctx, &generationInput{
		OrganizationID: organizationID,
		AppID:          req.AppID,
		Kind:           models.GenerationKindEmail,
		Prompt:         req.Prompt,
		KeyMode:        req.KeyMode,
		ParentRunID:    req.RunID,
		BrandID:        req.BrandID,
		CampaignID:     req.CampaignID,
		IdempotencyKey: req.IdempotencyKey,
		Policy:         PolicyStrict,
	}, metadata)
}

// GenerateCalendar generates a calendar entry from a free prompt; strict
// policy, same as content.
func (f *GenerationFlowImpl) GenerateCalendar(ctx context.Context, req *dto.GenerateCalendarRequest, organizationID string, metadata *ClientMetadata) (*dto.GenerationResponse, error) {
	return f.execute(ctx, &generationInput{
		OrganizationID: organizationID,
		AppID:          req.AppID,
		Kind:           models.GenerationKindCalendar,
		Prompt:         req.Prompt,
		KeyMode:        req.KeyMode,
		ParentRunID:    req.RunID,
		IdempotencyKey: req.IdempotencyKey,
		Policy:         PolicyStrict,
	}, metadata)
}

// execute runs the pipeline: idempotency check, template resolution, key
// resolution, LLM invocation, persist, then ledger accounting. The
// idempotency check comes first: a replay must return the stored output even
// if the template it was generated from has since been removed. The record
// must be durable before any ledger interaction, and the run id is linked
// back onto the record before costs are reported so per-item cost lookups
// stay possible even when cost reporting fails.
func (f *GenerationFlowImpl) execute(ctx context.Context, in *generationInput, metadata *ClientMetadata) (*dto.GenerationResponse, error) {
	// Idempotency short-circuit: a prior result means no paid work at all.
	if in.IdempotencyKey != nil && *in.IdempotencyKey != "" {
		existing, err := f.generationRepo.ByIdempotencyKey(ctx, in.OrganizationID, *in.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup failed: %w", err)
		}
		if existing != nil {
			log.Printf("INFO: idempotent hit for org %s key %s, returning generation %s",
				in.OrganizationID, *in.IdempotencyKey, existing.UUID)
			return ToGenerationResponse(existing), nil
		}
	}

	prompt := in.Prompt
	if in.TemplateType != nil {
		template, err := f.resolveTemplate(ctx, in.AppID, *in.TemplateType)
		if err != nil {
			return nil, err
		}
		prompt = services.Substitute(template.Content, in.Variables)
	}

	apiKey, err := f.resolveKey(ctx, in)
	if err != nil {
		return nil, err
	}

	output, err := f.aiClient.Generate(ctx, apiKey, in.Kind, prompt)
	if err != nil {
		return nil, err
	}

	generation, err := f.persist(ctx, in, output)
	if err != nil {
		return nil, err
	}

	if err := f.reportCosts(ctx, in, generation, output); err != nil {
		return nil, err
	}

	return ToGenerationResponse(generation), nil
}

// resolveTemplate fetches the stored template for (appID, templateType),
// reading through the cache. A missing template is a caller configuration
// error, never retried.
func (f *GenerationFlowImpl) resolveTemplate(ctx context.Context, appID, templateType string) (*models.PromptTemplate, error) {
	if cached, err := f.templateCache.Get(ctx, appID, templateType); err != nil {
		log.Printf("WARN: template cache read failed for %s/%s: %v", appID, templateType, err)
	} else if cached != nil {
		return cached, nil
	}

	template, err := f.templateRepo.ByAppAndType(ctx, appID, templateType)
	if err != nil {
		return nil, fmt.Errorf("template lookup failed: %w", err)
	}
	if template == nil {
		return nil, fmt.Errorf("%w: no template for app %s type %s", ErrTemplateNotFound, appID, templateType)
	}

	if err := f.templateCache.Set(ctx, template); err != nil {
		log.Printf("WARN: template cache write failed for %s/%s: %v", appID, templateType, err)
	}

	return template, nil
}

// resolveKey fetches the provider API key per the request's key mode
func (f *GenerationFlowImpl) resolveKey(ctx context.Context, in *generationInput) (string, error) {
	provider := f.aiClient.Provider()

	var apiKey string
	var err error
	switch in.KeyMode {
	case utils.KeyModeBYOK:
		apiKey, err = f.keystore.OrgKey(ctx, in.OrganizationID, provider)
	case utils.KeyModeApp:
		apiKey, err = f.keystore.AppKey(ctx, in.AppID, provider)
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKeyMode, in.KeyMode)
	}

	if err != nil {
		var notConfigured *services.KeyNotConfiguredError
		if errors.As(err, &notConfigured) {
			return "", fmt.Errorf("%w: %s", ErrProviderKeyNotConfigured, notConfigured.Error())
		}
		return "", fmt.Errorf("key resolution failed: %w", err)
	}

	return apiKey, nil
}

// persist writes the generation record. An insert losing the race on the
// (organization, idempotency key) unique index means a concurrent duplicate
// won; the winner's record is fetched and returned instead.
func (f *GenerationFlowImpl) persist(ctx context.Context, in *generationInput, output *services.GenerationOutput) (*models.Generation, error) {
	generation := &models.Generation{
		OrganizationID: in.OrganizationID,
		AppID:          in.AppID,
		BrandID:        in.BrandID,
		CampaignID:     in.CampaignID,
		Kind:           in.Kind,
		TemplateType:   in.TemplateType,
		ResolvedPrompt: output.ResolvedPrompt,
		RawResponse:    output.RawResponse,
		TokensInput:    utils.ToPtr(output.TokensInput),
		TokensOutput:   utils.ToPtr(output.TokensOutput),
		IdempotencyKey: normalizeKey(in.IdempotencyKey),
	}

	switch {
	case output.Email != nil:
		generation.Subject = output.Email.Subject
		generation.BodyText = output.Email.BodyText
		generation.BodyHTML = output.Email.BodyHTML
	case output.Sequence != nil:
		generation.Subject = output.Sequence.Subject
		generation.Steps = buildSequenceSteps(output.Sequence, f.genConfig.SequenceDayOffsets)
	case output.Calendar != nil:
		generation.Title = output.Calendar.Title
		generation.Description = output.Calendar.Description
		generation.Location = output.Calendar.Location
	}

	err := f.generationRepo.Save(ctx, generation)
	if err == nil {
		return generation, nil
	}

	if errors.Is(err, repository.ErrDuplicateIdempotencyKey) && generation.IdempotencyKey != nil {
		winner, fetchErr := f.generationRepo.ByIdempotencyKey(ctx, in.OrganizationID, *generation.IdempotencyKey)
		if fetchErr == nil && winner != nil {
			log.Printf("INFO: concurrent duplicate for org %s key %s, returning winner %s",
				in.OrganizationID, *generation.IdempotencyKey, winner.UUID)
			return winner, nil
		}
	}

	return nil, fmt.Errorf("failed to persist generation: %w", err)
}

// reportCosts runs the ledger leg: create run, link its id onto the record,
// attach one cost line per non-zero token count, mark the run complete.
// Failures are handled per the request's policy.
func (f *GenerationFlowImpl) reportCosts(ctx context.Context, in *generationInput, generation *models.Generation, output *services.GenerationOutput) error {
	run, err := f.ledger.CreateRun(ctx, services.CreateRunInput{
		OrganizationID: in.OrganizationID,
		AppID:          in.AppID,
		ServiceName:    utils.LedgerServiceName,
		TaskName:       utils.LedgerTaskName,
		ParentRunID:    in.ParentRunID,
	})
	if err != nil {
		return f.ledgerFailure(in, generation, output, "create run", err)
	}

	// Link the run id before reporting costs so the record stays
	// cross-referenceable even if the remaining steps fail.
	if err := f.generationRepo.SetGenerationRunID(ctx, generation.ID, run.ID); err != nil {
		return f.ledgerFailure(in, generation, output, "link run id", err)
	}
	generation.GenerationRunID = utils.ToPtr(run.ID)

	items := costItems(f.aiClient.Provider(), output)
	if len(items) > 0 {
		if err := f.ledger.AddCosts(ctx, run.ID, items); err != nil {
			return f.ledgerFailure(in, generation, output, "add costs", err)
		}
	}

	if err := f.ledger.UpdateRun(ctx, run.ID, "completed"); err != nil {
		return f.ledgerFailure(in, generation, output, "complete run", err)
	}

	return nil
}

// ledgerFailure applies the failure policy to a failed accounting step.
// Under best-effort the failure is logged at error level with every id and
// quantity needed to reconcile by hand, and the request proceeds. Under
// strict it propagates.
func (f *GenerationFlowImpl) ledgerFailure(in *generationInput, generation *models.Generation, output *services.GenerationOutput, step string, err error) error {
	runID := "unset"
	if generation.GenerationRunID != nil {
		runID = *generation.GenerationRunID
	}

	log.Printf("ERROR: ledger %s failed (policy=%s) for generation %s org %s app %s run %s: tokens_input=%d tokens_output=%d cost_names=%v: %v",
		step, in.Policy, generation.UUID, in.OrganizationID, in.AppID, runID,
		output.TokensInput, output.TokensOutput, costNames(f.aiClient.Provider(), output), err)

	if in.Policy == PolicyStrict {
		return fmt.Errorf("ledger %s failed: %w", step, err)
	}
	return nil
}

// costItems builds one line item per non-zero token count. Quantities are
// raw token counts; the ledger owns pricing.
func costItems(provider string, output *services.GenerationOutput) []services.CostItem {
	var items []services.CostItem
	if output.TokensInput > 0 {
		items = append(items, services.CostItem{
			CostName: costName(provider, output.Model, "input"),
			Quantity: output.TokensInput,
		})
	}
	if output.TokensOutput > 0 {
		items = append(items, services.CostItem{
			CostName: costName(provider, output.Model, "output"),
			Quantity: output.TokensOutput,
		})
	}
	return items
}

func costName(provider, model, direction string) string {
	return fmt.Sprintf("%s:%s:%s", provider, model, direction)
}

func costNames(provider string, output *services.GenerationOutput) []string {
	return []string{
		costName(provider, output.Model, "input"),
		costName(provider, output.Model, "output"),
	}
}

// buildSequenceSteps lays the opener and follow-ups into ordered steps with
// the configured day offsets (first step is always offset 0).
func buildSequenceSteps(seq *services.SequenceResult, dayOffsets []int) models.SequenceSteps {
	bodies := append([]string{seq.Body}, seq.Followups...)

	steps := make(models.SequenceSteps, 0, len(bodies))
	for i, body := range bodies {
		offset := 0
		if i < len(dayOffsets) {
			offset = dayOffsets[i]
		}
		steps = append(steps, models.SequenceStep{
			Position:          i + 1,
			BodyText:          body,
			DaysSinceLastStep: offset,
		})
	}

	return steps
}

// kindForTemplateType maps a template type to the generated shape; types
// named "sequence" produce multi-step output, everything else a single email.
func kindForTemplateType(templateType string) models.GenerationKind {
	if templateType == "sequence" {
		return models.GenerationKindSequence
	}
	return models.GenerationKindEmail
}

func normalizeKey(key *string) *string {
	if key == nil || *key == "" {
		return nil
	}
	return key
}
