package export

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/app"
	"github.com/shrimpsizemoose/semla/internal/store"
)

var reportHeader = []interface{}{
	"Project", "Author", "Graded by", "Percentage", "Grade", "Updated",
}

// GSheetExporter periodically pushes the grading summary to configured
// Google Sheets, one scheduled job per sheet.
type GSheetExporter struct {
	store     store.GradingStore
	scheduler *gocron.Scheduler
}

func NewGSheetExporter(config *app.Config, gradingStore store.GradingStore) (*GSheetExporter, error) {
	ctx := context.Background()

	e := &GSheetExporter{
		store:     gradingStore,
		scheduler: gocron.NewScheduler(time.UTC),
	}

	for _, cfg := range config.Export.Sheets {
		svc, err := sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath))
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets service: %w", err)
		}

		sheetCfg := cfg
		_, err = e.scheduler.Cron(cfg.Schedule).Do(func() {
			if err := e.Export(svc, &sheetCfg); err != nil {
				logger.Error.Printf("Export to %s failed: %v", sheetCfg.SheetID, err)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("failed to schedule export: %w", err)
		}
	}

	e.scheduler.StartAsync()
	return e, nil
}

func (e *GSheetExporter) Stop() {
	e.scheduler.Stop()
}

func (e *GSheetExporter) Export(svc *sheets.Service, cfg *app.GSheetConfig) error {
	rows, err := e.store.FetchGradingReport()
	if err != nil {
		return fmt.Errorf("failed to fetch grading report: %w", err)
	}

	values := [][]interface{}{reportHeader}
	for _, row := range rows {
		values = append(values, []interface{}{
			row.Title,
			row.Author,
			row.GradedBy,
			row.PercentageScore,
			row.FinalGrade,
			time.Unix(row.UpdatedAt, 0).UTC().Format("2006-01-02 15:04"),
		})
	}

	updateRange := fmt.Sprintf("%s!%s", cfg.SheetName, cfg.HeaderRange)
	_, err = svc.Spreadsheets.Values.Update(cfg.SheetID, updateRange,
		&sheets.ValueRange{Values: values}).ValueInputOption("RAW").Do()
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}

	if cfg.TimestampCell != "" {
		timestamp := fmt.Sprintf("UPD: %s", time.Now().UTC().Format("2 January 15:04"))
		tsRange := fmt.Sprintf("%s!%s", cfg.SheetName, cfg.TimestampCell)
		_, err = svc.Spreadsheets.Values.Update(cfg.SheetID, tsRange,
			&sheets.ValueRange{Values: [][]interface{}{{timestamp}}}).ValueInputOption("RAW").Do()
		if err != nil {
			return fmt.Errorf("failed to update timestamp: %w", err)
		}
	}

	return nil
}
