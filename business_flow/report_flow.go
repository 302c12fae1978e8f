package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/mzare/copyforge/app/dto"
	"github.com/mzare/copyforge/models"
	"github.com/mzare/copyforge/repository"
	"github.com/mzare/copyforge/utils"
	"github.com/xuri/excelize/v2"
)

// ReportFlow produces administrative usage exports
type ReportFlow interface {
	UsageReport(ctx context.Context, query *dto.UsageReportQuery, metadata *ClientMetadata) ([]byte, error)
}

// ReportFlowImpl implements ReportFlow
type ReportFlowImpl struct {
	generationRepo repository.GenerationRepository
}

// NewReportFlow creates a new report flow
func NewReportFlow(generationRepo repository.GenerationRepository) ReportFlow {
	return &ReportFlowImpl{generationRepo: generationRepo}
}

const usageReportPageSize = 500

// UsageReport exports generations matching the query as an xlsx workbook:
// one row per generation with ownership, shape, token counts and run linkage.
func (f *ReportFlowImpl) UsageReport(ctx context.Context, query *dto.UsageReportQuery, metadata *ClientMetadata) ([]byte, error) {
	filter, err := buildUsageFilter(query)
	if err != nil {
		return nil, err
	}

	workbook := excelize.NewFile()
	defer workbook.Close()

	sheet := workbook.GetSheetName(0)
	headers := []string{"UUID", "Organization", "App", "Kind", "Template Type",
		"Tokens Input", "Tokens Output", "Run ID", "Created At (UTC)"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := workbook.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write report header: %w", err)
		}
	}

	row := 2
	offset := 0
	for {
		generations, err := f.generationRepo.ByFilter(ctx, *filter, "created_at ASC", usageReportPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to load generations for report: %w", err)
		}
		if len(generations) == 0 {
			break
		}

		for _, generation := range generations {
			values := []any{
				generation.UUID.String(),
				generation.OrganizationID,
				generation.AppID,
				generation.Kind.String(),
				utils.DerefOr(generation.TemplateType, ""),
				utils.DerefOr(generation.TokensInput, 0),
				utils.DerefOr(generation.TokensOutput, 0),
				utils.DerefOr(generation.GenerationRunID, ""),
				generation.CreatedAt.UTC().Format(time.RFC3339),
			}
			for i, value := range values {
				cell, _ := excelize.CoordinatesToCellName(i+1, row)
				if err := workbook.SetCellValue(sheet, cell, value); err != nil {
					return nil, fmt.Errorf("failed to write report row: %w", err)
				}
			}
			row++
		}

		if len(generations) < usageReportPageSize {
			break
		}
		offset += usageReportPageSize
	}

	buffer, err := workbook.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	return buffer.Bytes(), nil
}

func buildUsageFilter(query *dto.UsageReportQuery) (*models.GenerationFilter, error) {
	filter := &models.GenerationFilter{}

	if query.OrganizationID != "" {
		filter.OrganizationID = utils.ToPtr(query.OrganizationID)
	}
	if query.AppID != "" {
		filter.AppID = utils.ToPtr(query.AppID)
	}

	var from, to *time.Time
	if query.From != "" {
		parsed, err := time.Parse("2006-01-02", query.From)
		if err != nil {
			return nil, fmt.Errorf("invalid from date: %w", err)
		}
		from = &parsed
	}
	if query.To != "" {
		parsed, err := time.Parse("2006-01-02", query.To)
		if err != nil {
			return nil, fmt.Errorf("invalid to date: %w", err)
		}
		end := parsed.Add(24 * time.Hour)
		to = &end
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, ErrInvalidDateRange
	}

	filter.CreatedAfter = from
	filter.CreatedBefore = to
	return filter, nil
}
