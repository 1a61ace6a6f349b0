package services

import (
	"fmt"
	"time"

	"activity-engine/internal/entities"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type ReportServiceInterface interface {
	BuildFeedWorkbook(items []entities.ActivityItem) (*excelize.File, error)
}

type reportService struct {
	logger *zap.Logger
}

func NewReportService(logger *zap.Logger) ReportServiceInterface {
	return &reportService{logger: logger}
}

var feedHeaders = []string{"ID", "Категория", "Заголовок", "Подзаголовок", "Описание", "Статус", "Приоритет", "Время", "Live"}

// BuildFeedWorkbook выгружает срез ленты в xlsx для HR-отчетности.
func (s *reportService) BuildFeedWorkbook(items []entities.ActivityItem) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Activity"

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать лист отчета: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		s.logger.Debug("Не удалось удалить лист по умолчанию", zap.Error(err))
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось создать стиль заголовка: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &feedHeaders); err != nil {
		return nil, fmt.Errorf("не удалось записать заголовки: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(feedHeaders))
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("не удалось применить стиль заголовка: %w", err)
	}

	for i, item := range items {
		row := []interface{}{
			item.ID,
			string(item.Category),
			item.Title,
			item.Subtitle,
			item.Description,
			item.Status,
			string(item.Priority),
			item.Timestamp.Format(time.RFC3339),
			item.IsLive,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("не удалось записать строку %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(sheet, "A", lastCol, 22)
	return f, nil
}
