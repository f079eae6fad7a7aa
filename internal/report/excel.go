package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"barbershop-system/internal/commission"
)

const (
	SummarySheet = "Summary"
	ItemsSheet   = "Items"
	LinesSheet   = "Lines"

	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// AggregateWorkbook is what an exported commission report contains.
type AggregateWorkbook struct {
	StaffName string
	Period    string
	Aggregate commission.Aggregate
	Lines     []commission.LineCommission
}

// WriteAggregate renders the workbook as xlsx into w. Amounts are written as
// two-decimal strings so spreadsheets never re-round them.
func WriteAggregate(w io.Writer, wb AggregateWorkbook) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", SummarySheet)
	agg := wb.Aggregate
	summary := [][]interface{}{
		{"Staff", wb.StaffName},
		{"Staff ID", agg.StaffID},
		{"Period", wb.Period},
		{"Sales counted", agg.SalesCounted},
		{"Services", commission.Round2(agg.TotalServices)},
		{"Products", commission.Round2(agg.TotalProducts)},
		{"Total", commission.Round2(agg.TotalOverall)},
		{"Variance", commission.Round2(agg.TotalVariance)},
	}
	if err := writeRows(f, SummarySheet, summary); err != nil {
		return err
	}

	if _, err := f.NewSheet(ItemsSheet); err != nil {
		return err
	}
	items := [][]interface{}{{"Item ID", "Category", "Name", "Quantity", "Sales base", "Commission", "Variance", "Historical lines", "Live lines"}}
	for _, it := range agg.Items {
		items = append(items, []interface{}{
			it.ItemID,
			string(it.Category),
			it.Name,
			it.Quantity,
			commission.Round2(it.SalesBase),
			commission.Round2(it.Commission),
			commission.Round2(it.Variance),
			it.HistoricalLines,
			it.LiveLines,
		})
	}
	if err := writeRows(f, ItemsSheet, items); err != nil {
		return err
	}

	if len(wb.Lines) > 0 {
		if _, err := f.NewSheet(LinesSheet); err != nil {
			return err
		}
		lines := [][]interface{}{{"Sale ID", "Line ID", "Item ID", "Category", "Subtotal", "Percentage", "Commission", "Source"}}
		for _, l := range wb.Lines {
			lines = append(lines, []interface{}{
				l.SaleID,
				l.LineItemID,
				l.ItemID,
				string(l.Category),
				commission.Round2(l.Subtotal),
				l.Percentage.String(),
				commission.Round2(l.Amount),
				string(l.Source),
			})
		}
		if err := writeRows(f, LinesSheet, lines); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
