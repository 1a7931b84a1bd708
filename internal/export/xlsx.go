package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	planSheet      = "Plano"
	overridesSheet = "Overrides"
)

// WriteXLSX writes the plan rows of WriteCSV to a "Plano" sheet, with
// numeric cells, and the override pairs to an "Overrides" sheet.
func WriteXLSX(w io.Writer, s *Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", planSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := writePlanSheet(f, s); err != nil {
		return err
	}
	if _, err := f.NewSheet(overridesSheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", overridesSheet, err)
	}
	if err := writeOverridesSheet(f, s); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func writePlanSheet(f *excelize.File, s *Snapshot) error {
	sw, err := f.NewStreamWriter(planSheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}

	header := make([]interface{}, len(csvHeader))
	for i, h := range csvHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := 2
	for i, series := range s.Series {
		entry := s.Registry[i]
		for _, m := range series.Months {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			record := []interface{}{
				string(entry.Key),
				entry.ProductCode,
				entry.ProductName,
				entry.Category,
				entry.Supplier,
				entry.DistributionCenter,
				string(series.Status),
				string(m.Month),
				m.Demand,
				m.Projected,
				m.Objective,
				m.Order,
				m.Arrival,
				m.Overridden,
			}
			if err := sw.SetRow(cell, record); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
			row++
		}
	}
	return sw.Flush()
}

func writeOverridesSheet(f *excelize.File, s *Snapshot) error {
	if err := f.SetSheetRow(overridesSheet, "A1", &[]interface{}{"sku_key", "month", "value"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, p := range s.Overrides {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(overridesSheet, cell, &[]interface{}{string(p.SKU), string(p.Month), p.Value}); err != nil {
			return fmt.Errorf("failed to write override row: %w", err)
		}
	}
	return nil
}
