package testing

import (
	"fmt"
	"math/rand"

	"github.com/mzare/copyforge/models"
	"github.com/mzare/copyforge/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestTemplate creates a prompt template for the given app and type
func (tf *TestFixtures) CreateTestTemplate(appID, templateType string) (*models.PromptTemplate, error) {
	template := &models.PromptTemplate{
		AppID:        appID,
		TemplateType: templateType,
		Content:      "Write a cold email for {{company}} selling {{product}} to {{audience}}.",
		Placeholders: []string{"company", "product", "audience"},
	}

	if err := tf.DB.DB.Create(template).Error; err != nil {
		return nil, fmt.Errorf("failed to create test template: %w", err)
	}

	return template, nil
}

// CreateTestGeneration creates a persisted generation of the given kind
func (tf *TestFixtures) CreateTestGeneration(organizationID, appID string, kind models.GenerationKind) (*models.Generation, error) {
	generation := &models.Generation{
		OrganizationID: organizationID,
		AppID:          appID,
		Kind:           kind,
		ResolvedPrompt: "resolved prompt",
		RawResponse:    `{"subject":"Hi","body_text":"Hello"}`,
		TokensInput:    utils.ToPtr(rand.Intn(500) + 100),
		TokensOutput:   utils.ToPtr(rand.Intn(500) + 100),
	}

	switch kind {
	case models.GenerationKindEmail:
		generation.Subject = "Test subject"
		generation.BodyText = "Test body"
	case models.GenerationKindSequence:
		generation.Steps = models.SequenceSteps{
			{Position: 1, BodyText: "Step one", DaysSinceLastStep: 0},
			{Position: 2, BodyText: "Step two", DaysSinceLastStep: 3},
			{Position: 3, BodyText: "Step three", DaysSinceLastStep: 10},
		}
	case models.GenerationKindCalendar:
		generation.Title = "Kickoff call"
		generation.Description = "Intro meeting"
		generation.Location = "Online"
	}

	if err := tf.DB.DB.Create(generation).Error; err != nil {
		return nil, fmt.Errorf("failed to create test generation: %w", err)
	}

	return generation, nil
}

// CreateTestGenerationWithIdempotencyKey creates a generation carrying an idempotency key
func (tf *TestFixtures) CreateTestGenerationWithIdempotencyKey(organizationID, appID, key string) (*models.Generation, error) {
	generation := &models.Generation{
		OrganizationID: organizationID,
		AppID:          appID,
		Kind:           models.GenerationKindEmail,
		Subject:        "Idempotent subject",
		BodyText:       "Idempotent body",
		ResolvedPrompt: "resolved prompt",
		RawResponse:    `{"subject":"Idempotent subject","body_text":"Idempotent body"}`,
		IdempotencyKey: &key,
	}

	if err := tf.DB.DB.Create(generation).Error; err != nil {
		return nil, fmt.Errorf("failed to create test generation: %w", err)
	}

	return generation, nil
}

// CleanupTestData removes all rows created by fixtures
func (tf *TestFixtures) CleanupTestData() error {
	tables := []string{"generations", "prompt_templates"}
	for _, table := range tables {
		if err := tf.DB.DB.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to cleanup table %s: %w", table, err)
		}
	}
	return nil
}
