package businessflow

import (
	"context"
	"testing"

	"github.com/mzare/copyforge/app/dto"
	"github.com/mzare/copyforge/app/services"
	"github.com/mzare/copyforge/config"
	"github.com/mzare/copyforge/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upsertRecordingTemplateRepo struct {
	fakeTemplateRepo
	upserted []*models.PromptTemplate
}

func (r *upsertRecordingTemplateRepo) Upsert(ctx context.Context, template *models.PromptTemplate) error {
	r.upserted = append(r.upserted, template)
	r.templates[template.AppID+"|"+template.TemplateType] = template
	return nil
}

func newTemplateFlowFixture() (*upsertRecordingTemplateRepo, TemplateFlow) {
	repo := &upsertRecordingTemplateRepo{
		fakeTemplateRepo: fakeTemplateRepo{templates: make(map[string]*models.PromptTemplate)},
	}
	flow := NewTemplateFlow(repo, services.NewTemplateCache(nil, &config.CacheConfig{}))
	return repo, flow
}

func TestUpsertTemplateExtractsPlaceholders(t *testing.T) {
	repo, flow := newTemplateFlowFixture()

	resp, err := flow.UpsertTemplate(context.Background(), &dto.UpsertTemplateRequest{
		AppID:   "app-1",
		Type:    "cold_email",
		Content: "Write an email for {{company}} about {{product}}. Mention {{company}} twice.",
	}, testMetadata())

	require.NoError(t, err)
	assert.Equal(t, "app-1", resp.AppID)
	assert.Equal(t, "cold_email", resp.Type)
	assert.Equal(t, []string{"company", "product"}, resp.Placeholders)

	require.Len(t, repo.upserted, 1)
	assert.Equal(t, []string{"company", "product"}, []string(repo.upserted[0].Placeholders))
}

func TestUpsertTemplateRejectsEmptyContent(t *testing.T) {
	repo, flow := newTemplateFlowFixture()

	_, err := flow.UpsertTemplate(context.Background(), &dto.UpsertTemplateRequest{
		AppID:   "app-1",
		Type:    "cold_email",
		Content: "   ",
	}, testMetadata())

	assert.ErrorIs(t, err, ErrTemplateContentRequired)
	assert.Empty(t, repo.upserted)
}

func TestUpsertTemplateRejectsEmptyType(t *testing.T) {
	repo, flow := newTemplateFlowFixture()

	_, err := flow.UpsertTemplate(context.Background(), &dto.UpsertTemplateRequest{
		AppID:   "app-1",
		Type:    "  ",
		Content: "Write an email about {{topic}}",
	}, testMetadata())

	assert.ErrorIs(t, err, ErrTemplateTypeRequired)
	assert.Empty(t, repo.upserted)
}

func TestListTemplatesRequiresAppID(t *testing.T) {
	_, flow := newTemplateFlowFixture()

	_, err := flow.ListTemplates(context.Background(), "  ", testMetadata())
	assert.ErrorIs(t, err, ErrTemplateAppIDRequired)
}

func TestListTemplatesEmptyAppReturnsEmptyList(t *testing.T) {
	_, flow := newTemplateFlowFixture()

	resp, err := flow.ListTemplates(context.Background(), "app-1", testMetadata())
	require.NoError(t, err)
	assert.Equal(t, "app-1", resp.AppID)
	assert.Empty(t, resp.Templates)
}
