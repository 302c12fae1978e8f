package repository

import (
	"context"
	"testing"

	"github.com/mzare/copyforge/models"
	apptesting "github.com/mzare/copyforge/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTemplateRepo(t *testing.T) PromptTemplateRepository {
	t.Helper()

	tdb, err := apptesting.SetupTestDB()
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := tdb.TeardownTestDB(); err != nil {
			t.Logf("teardown failed: %v", err)
		}
	})

	return NewPromptTemplateRepository(tdb.DB)
}

func TestUpsertCreatesThenReplaces(t *testing.T) {
	repo := setupTemplateRepo(t)
	ctx := context.Background()

	first := &models.PromptTemplate{
		AppID:        "app-1",
		TemplateType: "cold_email",
		Content:      "Old content with {{name}}",
		Placeholders: []string{"name"},
	}
	require.NoError(t, repo.Upsert(ctx, first))

	second := &models.PromptTemplate{
		AppID:        "app-1",
		TemplateType: "cold_email",
		Content:      "New content with {{company}}",
		Placeholders: []string{"company"},
	}
	require.NoError(t, repo.Upsert(ctx, second))

	stored, err := repo.ByAppAndType(ctx, "app-1", "cold_email")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "New content with {{company}}", stored.Content)
	assert.Equal(t, []string{"company"}, []string(stored.Placeholders))
	assert.NotNil(t, stored.UpdatedAt)

	// Replaced in place, not duplicated.
	all, err := repo.ByAppID(ctx, "app-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestByAppAndTypeMissReturnsNil(t *testing.T) {
	repo := setupTemplateRepo(t)

	stored, err := repo.ByAppAndType(context.Background(), "app-1", "nope")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestByAppIDListsAllTypes(t *testing.T) {
	repo := setupTemplateRepo(t)
	ctx := context.Background()

	for _, templateType := range []string{"sequence", "cold_email"} {
		require.NoError(t, repo.Upsert(ctx, &models.PromptTemplate{
			AppID:        "app-1",
			TemplateType: templateType,
			Content:      "content",
		}))
	}
	require.NoError(t, repo.Upsert(ctx, &models.PromptTemplate{
		AppID:        "app-2",
		TemplateType: "cold_email",
		Content:      "content",
	}))

	templates, err := repo.ByAppID(ctx, "app-1")
	require.NoError(t, err)
	require.Len(t, templates, 2)

	// Ordered by template type.
	assert.Equal(t, "cold_email", templates[0].TemplateType)
	assert.Equal(t, "sequence", templates[1].TemplateType)
}
