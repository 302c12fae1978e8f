package repository

import (
	"context"
	"testing"

	"github.com/mzare/copyforge/models"
	apptesting "github.com/mzare/copyforge/testing"
	"github.com/mzare/copyforge/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGenerationRepo(t *testing.T) (*apptesting.TestDB, GenerationRepository) {
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

	return tdb, NewGenerationRepository(tdb.DB)
}

func TestGenerationSaveAndFetch(t *testing.T) {
	_, repo := setupGenerationRepo(t)
	ctx := context.Background()

	generation := &models.Generation{
		OrganizationID: "org-1",
		AppID:          "app-1",
		Kind:           models.GenerationKindEmail,
		Subject:        "Hello",
		BodyText:       "World",
		ResolvedPrompt: "prompt",
		RawResponse:    `{"subject":"Hello","body_text":"World"}`,
		TokensInput:    utils.ToPtr(100),
		TokensOutput:   utils.ToPtr(200),
	}

	require.NoError(t, repo.Save(ctx, generation))
	assert.NotZero(t, generation.ID)
	assert.NotEmpty(t, generation.UUID)

	fetched, err := repo.ByUUID(ctx, generation.UUID.String())
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "Hello", fetched.Subject)
	assert.Equal(t, 100, *fetched.TokensInput)
}

func TestDuplicateIdempotencyKeyRejected(t *testing.T) {
	_, repo := setupGenerationRepo(t)
	ctx := context.Background()

	key := "dup-key"
	first := &models.Generation{
		OrganizationID: "org-1",
		AppID:          "app-1",
		Kind:           models.GenerationKindEmail,
		Subject:        "First",
		BodyText:       "Body",
		IdempotencyKey: &key,
	}
	require.NoError(t, repo.Save(ctx, first))

	second := &models.Generation{
		OrganizationID: "org-1",
		AppID:          "app-1",
		Kind:           models.GenerationKindEmail,
		Subject:        "Second",
		BodyText:       "Body",
		IdempotencyKey: &key,
	}
	err := repo.Save(ctx, second)
	assert.ErrorIs(t, err, ErrDuplicateIdempotencyKey)

	// Same key under another organization is fine.
	otherOrg := &models.Generation{
		OrganizationID: "org-2",
		AppID:          "app-1",
		Kind:           models.GenerationKindEmail,
		Subject:        "Other org",
		BodyText:       "Body",
		IdempotencyKey: &key,
	}
	assert.NoError(t, repo.Save(ctx, otherOrg))

	// Records without a key never collide.
	for i := 0; i < 2; i++ {
		assert.NoError(t, repo.Save(ctx, &models.Generation{
			OrganizationID: "org-1",
			AppID:          "app-1",
			Kind:           models.GenerationKindEmail,
			Subject:        "No key",
			BodyText:       "Body",
		}))
	}
}

func TestByIdempotencyKeyScopedToOrganization(t *testing.T) {
	_, repo := setupGenerationRepo(t)
	ctx := context.Background()

	key := "lookup-key"
	generation := &models.Generation{
		OrganizationID: "org-1",
		AppID:          "app-1",
		Kind:           models.GenerationKindEmail,
		Subject:        "Stored",
		BodyText:       "Body",
		IdempotencyKey: &key,
	}
	require.NoError(t, repo.Save(ctx, generation))

	found, err := repo.ByIdempotencyKey(ctx, "org-1", key)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, generation.UUID, found.UUID)

	missing, err := repo.ByIdempotencyKey(ctx, "org-2", key)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSetGenerationRunIDIsWriteOnce(t *testing.T) {
	tdb, repo := setupGenerationRepo(t)
	ctx := context.Background()

	generation := &models.Generation{
		OrganizationID: "org-1",
		AppID:          "app-1",
		Kind:           models.GenerationKindEmail,
		Subject:        "Linked",
		BodyText:       "Body",
	}
	require.NoError(t, repo.Save(ctx, generation))

	require.NoError(t, repo.SetGenerationRunID(ctx, generation.ID, "run-1"))

	// A second write must not overwrite the linked run.
	require.NoError(t, repo.SetGenerationRunID(ctx, generation.ID, "run-2"))

	var stored models.Generation
	require.NoError(t, tdb.DB.First(&stored, generation.ID).Error)
	require.NotNil(t, stored.GenerationRunID)
	assert.Equal(t, "run-1", *stored.GenerationRunID)
}

func TestGenerationByFilterAndCount(t *testing.T) {
	_, repo := setupGenerationRepo(t)
	ctx := context.Background()

	for _, kind := range []models.GenerationKind{
		models.GenerationKindEmail,
		models.GenerationKindEmail,
		models.GenerationKindCalendar,
	} {
		require.NoError(t, repo.Save(ctx, &models.Generation{
			OrganizationID: "org-1",
			AppID:          "app-1",
			Kind:           kind,
			Subject:        "S",
			BodyText:       "B",
		}))
	}

	emailKind := models.GenerationKindEmail
	emails, err := repo.ByFilter(ctx, models.GenerationFilter{
		OrganizationID: utils.ToPtr("org-1"),
		Kind:           &emailKind,
	}, "created_at ASC", 10, 0)
	require.NoError(t, err)
	assert.Len(t, emails, 2)

	total, err := repo.Count(ctx, models.GenerationFilter{OrganizationID: utils.ToPtr("org-1")})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}
