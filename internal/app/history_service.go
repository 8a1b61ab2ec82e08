// internal/app/history_service.go
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"hotel_ops_bot/internal/domain/workitem"

	"github.com/xuri/excelize/v2"
)

var historyHeaders = []string{"At", "Actor", "Action", "From", "To", "Before", "After"}

// HistoryService reads the audit trail of a work item.
type HistoryService struct {
	store workitem.Store
}

func NewHistoryService(store workitem.Store) *HistoryService {
	return &HistoryService{store: store}
}

// WorkItemHistory lists audit entries oldest first. An unknown item yields workitem.ErrNotFound.
func (s *HistoryService) WorkItemHistory(ctx context.Context, kind workitem.Kind, id int64) ([]*workitem.AuditEntry, error) {
	if _, err := s.store.Get(ctx, kind, id); err != nil {
		return nil, fmt.Errorf("failed to load %s work item %d: %w", kind, id, err)
	}
	entries, err := s.store.ListAudit(ctx, kind.EntityType(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit for %s work item %d: %w", kind, id, err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].At.Before(entries[j].At)
	})
	return entries, nil
}

// ExportWorkItemHistory writes the audit trail as an .xlsx workbook.
func (s *HistoryService) ExportWorkItemHistory(ctx context.Context, kind workitem.Kind, id int64, w io.Writer) error {
	entries, err := s.WorkItemHistory(ctx, kind, id)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "History"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range historyHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}
	if err := f.SetColWidth(sheetName, "A", "A", 20); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "F", "G", 60); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	for i, e := range entries {
		row := i + 2
		values := []interface{}{
			e.At.Format("2006-01-02 15:04:05"),
			e.ActorID,
			e.Action,
			statusOf(e.BeforeState),
			statusOf(e.AfterState),
			e.BeforeState,
			e.AfterState,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write history row %d: %w", row, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header row: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func statusOf(state string) string {
	var st auditState
	if err := json.Unmarshal([]byte(state), &st); err != nil {
		return ""
	}
	return string(st.Status)
}
