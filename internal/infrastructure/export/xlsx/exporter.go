package xlsx

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/erp-requisitions/internal/application/port"
	"github.com/garyjia/erp-requisitions/internal/domain/entity"
)

const (
	requisitionSheet = "Requisitions"
	itemSheet        = "Items"
	timeLayout       = "2006-01-02 15:04"
)

var requisitionHeaders = []string{
	"ID", "Status", "Requester", "Warehouse", "Items", "Total Quantity",
	"Supervisor Ack", "FA Ack", "GM Approved", "Created", "Updated", "Remarks",
}

var itemHeaders = []string{"Requisition ID", "Item ID", "Quantity"}

// Exporter writes requisitions as an xlsx workbook
type Exporter struct {
	location *time.Location
	logger   *zap.Logger
}

// NewExporter creates an xlsx exporter; nil location means UTC
func NewExporter(location *time.Location, logger *zap.Logger) *Exporter {
	if location == nil {
		location = time.UTC
	}
	return &Exporter{location: location, logger: logger}
}

// Export writes one summary row per requisition and one row per item line
func (e *Exporter) Export(w io.Writer, requisitions []*entity.Requisition) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", requisitionSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(itemSheet); err != nil {
		return fmt.Errorf("create item sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeRow(f, requisitionSheet, 1, toCells(requisitionHeaders)); err != nil {
		return err
	}
	if err := writeRow(f, itemSheet, 1, toCells(itemHeaders)); err != nil {
		return err
	}
	lastReq, _ := excelize.ColumnNumberToName(len(requisitionHeaders))
	lastItem, _ := excelize.ColumnNumberToName(len(itemHeaders))
	_ = f.SetCellStyle(requisitionSheet, "A1", lastReq+"1", headerStyle)
	_ = f.SetCellStyle(itemSheet, "A1", lastItem+"1", headerStyle)

	itemRow := 2
	for i, req := range requisitions {
		total := 0
		for _, item := range req.Items {
			total += item.Quantity
			if err := writeRow(f, itemSheet, itemRow, []interface{}{req.ID, item.ItemID, item.Quantity}); err != nil {
				return err
			}
			itemRow++
		}

		row := []interface{}{
			req.ID,
			req.Status.String(),
			req.RequesterID,
			req.WarehouseID,
			len(req.Items),
			total,
			e.stamp(req.SupervisorAckBy, req.SupervisorAckAt),
			e.stamp(req.FAManagerAckBy, req.FAManagerAckAt),
			e.stamp(req.GMApprovedBy, req.GMApprovedAt),
			e.format(req.CreatedAt),
			e.format(req.UpdatedAt),
			req.Remarks,
		}
		if err := writeRow(f, requisitionSheet, i+2, row); err != nil {
			return err
		}
	}

	widths := []float64{38, 20, 20, 14, 8, 14, 30, 30, 30, 18, 18, 40}
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(requisitionSheet, col, col, width)
	}
	_ = f.SetColWidth(itemSheet, "A", "A", 38)
	_ = f.SetColWidth(itemSheet, "B", "B", 20)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	e.logger.Debug("Requisition workbook written",
		zap.Int("requisitions", len(requisitions)),
		zap.Int("items", itemRow-2))
	return nil
}

func (e *Exporter) format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(e.location).Format(timeLayout)
}

// stamp renders "<member> @ <time>" for an audit column
func (e *Exporter) stamp(by string, at *time.Time) string {
	if by == "" {
		return ""
	}
	if at == nil {
		return by
	}
	return strings.Join([]string{by, e.format(*at)}, " @ ")
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(headers []string) []interface{} {
	cells := make([]interface{}, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	return cells
}

// Verify interface compliance
var _ port.RequisitionExporter = (*Exporter)(nil)
