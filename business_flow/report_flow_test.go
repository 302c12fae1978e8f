package businessflow

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mzare/copyforge/app/dto"
	"github.com/mzare/copyforge/models"
	"github.com/mzare/copyforge/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type filterRecordingGenerationRepo struct {
	fakeGenerationRepo
	rows       []*models.Generation
	lastFilter models.GenerationFilter
}

func (r *filterRecordingGenerationRepo) ByFilter(ctx context.Context, filter models.GenerationFilter, orderBy string, limit, offset int) ([]*models.Generation, error) {
	r.lastFilter = filter
	if offset >= len(r.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.rows) {
		end = len(r.rows)
	}
	return r.rows[offset:end], nil
}

func TestUsageReportRendersRows(t *testing.T) {
	id := uuid.New()
	runID := "run-9"
	templateType := "cold_email"
	repo := &filterRecordingGenerationRepo{
		rows: []*models.Generation{
			{
				UUID:            id,
				OrganizationID:  "org-1",
				AppID:           "app-1",
				Kind:            models.GenerationKindEmail,
				TemplateType:    &templateType,
				TokensInput:     utils.ToPtr(120),
				TokensOutput:    utils.ToPtr(340),
				GenerationRunID: &runID,
				CreatedAt:       time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC),
			},
			{
				UUID:           uuid.New(),
				OrganizationID: "org-2",
				AppID:          "app-1",
				Kind:           models.GenerationKindCalendar,
				CreatedAt:      time.Date(2026, 8, 16, 9, 0, 0, 0, time.UTC),
			},
		},
	}

	flow := NewReportFlow(repo)
	report, err := flow.UsageReport(context.Background(), &dto.UsageReportQuery{}, testMetadata())
	require.NoError(t, err)
	require.NotEmpty(t, report)

	workbook, err := excelize.OpenReader(bytes.NewReader(report))
	require.NoError(t, err)
	defer workbook.Close()

	sheet := workbook.GetSheetName(0)

	header, err := workbook.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "UUID", header)

	firstUUID, err := workbook.GetCellValue(sheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, id.String(), firstUUID)

	firstKind, err := workbook.GetCellValue(sheet, "D2")
	require.NoError(t, err)
	assert.Equal(t, "email", firstKind)

	firstRunID, err := workbook.GetCellValue(sheet, "H2")
	require.NoError(t, err)
	assert.Equal(t, "run-9", firstRunID)

	secondOrg, err := workbook.GetCellValue(sheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "org-2", secondOrg)
}

func TestUsageReportFilterParsing(t *testing.T) {
	repo := &filterRecordingGenerationRepo{}
	flow := NewReportFlow(repo)

	_, err := flow.UsageReport(context.Background(), &dto.UsageReportQuery{
		OrganizationID: "org-1",
		AppID:          "app-1",
		From:           "2026-08-01",
		To:             "2026-08-31",
	}, testMetadata())
	require.NoError(t, err)

	require.NotNil(t, repo.lastFilter.OrganizationID)
	assert.Equal(t, "org-1", *repo.lastFilter.OrganizationID)
	require.NotNil(t, repo.lastFilter.AppID)
	assert.Equal(t, "app-1", *repo.lastFilter.AppID)

	require.NotNil(t, repo.lastFilter.CreatedAfter)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), *repo.lastFilter.CreatedAfter)

	// The "to" day is inclusive: the bound is midnight of the next day.
	require.NotNil(t, repo.lastFilter.CreatedBefore)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), *repo.lastFilter.CreatedBefore)
}

func TestUsageReportRejectsInvertedDateRange(t *testing.T) {
	flow := NewReportFlow(&filterRecordingGenerationRepo{})

	_, err := flow.UsageReport(context.Background(), &dto.UsageReportQuery{
		From: "2026-08-31",
		To:   "2026-08-01",
	}, testMetadata())

	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestUsageReportRejectsMalformedDate(t *testing.T) {
	flow := NewReportFlow(&filterRecordingGenerationRepo{})

	_, err := flow.UsageReport(context.Background(), &dto.UsageReportQuery{
		From: "31-08-2026",
	}, testMetadata())

	assert.Error(t, err)
}
