// Package qatracker generates the Pullus QA Tracker workbook: the QA
// tracker, the blast freezing tracker and the definition of terms sheets,
// with dropdowns, formula columns and sample rows.
package qatracker

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

type Options struct {
	// Rows is the number of data rows prepared with formulas, styles and
	// dropdowns. Zero means DefaultRows.
	Rows int
	// SkipDemo leaves the sample rows out.
	SkipDemo bool
}

func (o Options) rows() int {
	if o.Rows <= 0 {
		return DefaultRows
	}
	return o.Rows
}

// Build creates the workbook in memory. The caller owns the returned file
// and should Close it.
func Build(opts Options) (*excelize.File, error) {
	f := excelize.NewFile()
	b := &builder{f: f, rows: opts.rows(), demo: !opts.SkipDemo}
	if err := b.build(); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Write builds the workbook and writes it as xlsx to w.
func Write(w io.Writer, opts Options) error {
	f, err := Build(opts)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Save builds the workbook and saves it to path.
func Save(path string, opts Options) error {
	f, err := Build(opts)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

type builder struct {
	f      *excelize.File
	rows   int
	demo   bool
	styles *styles
}

// lastRow is the last prepared data row; row 1 is the header.
func (b *builder) lastRow() int {
	return b.rows + 1
}

func (b *builder) build() error {
	if err := b.f.SetSheetName("Sheet1", QATrackerSheet); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	for _, name := range []string{BlastFreezingSheet, DefinitionsSheet} {
		if _, err := b.f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	var err error
	if b.styles, err = newStyles(b.f); err != nil {
		return err
	}
	steps := []struct {
		sheet string
		fn    func() error
	}{
		{QATrackerSheet, b.qaTracker},
		{BlastFreezingSheet, b.blastFreezing},
		{DefinitionsSheet, b.definitions},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.sheet, err)
		}
		slog.Debug("sheet generated", "sheet", step.sheet, "rows", b.rows)
	}
	b.f.SetActiveSheet(0)
	return nil
}

func (b *builder) header(sheet string, columns []Column, style int) error {
	for i, col := range columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := b.f.SetCellValue(sheet, name+"1", col.Header); err != nil {
			return err
		}
		if err := b.f.SetColWidth(sheet, name, name, col.Width); err != nil {
			return err
		}
	}
	last, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}
	if err := b.f.SetCellStyle(sheet, "A1", last+"1", style); err != nil {
		return err
	}
	return b.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (b *builder) setCells(sheet string, row int, cells []cellValue) error {
	for _, c := range cells {
		if err := b.f.SetCellValue(sheet, fmt.Sprintf("%s%d", c.column, row), c.value); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) qaTracker() error {
	sheet := QATrackerSheet
	if err := b.header(sheet, QATrackerColumns, b.styles.qaHeader); err != nil {
		return err
	}
	if b.demo {
		for i, rec := range DemoQARecords {
			if err := b.setCells(sheet, i+2, rec.cells()); err != nil {
				return err
			}
		}
	}
	for _, dd := range QATrackerDropdowns {
		dv := excelize.NewDataValidation(true)
		dv.Sqref = fmt.Sprintf("%s2:%s%d", dd.Column, dd.Column, b.lastRow())
		if err := dv.SetDropList(dd.Values); err != nil {
			return fmt.Errorf("dropdown %s: %w", dd.Column, err)
		}
		if err := b.f.AddDataValidation(sheet, dv); err != nil {
			return err
		}
	}
	last, err := excelize.ColumnNumberToName(len(QATrackerColumns))
	if err != nil {
		return err
	}
	centered := append([]string{"D", "E", "Y"}, statusColumns()...)
	for row := 2; row <= b.lastRow(); row++ {
		for _, d := range QATrackerDurations {
			if err := b.f.SetCellFormula(sheet, fmt.Sprintf("%s%d", d.Column, row), d.Formula(row)); err != nil {
				return err
			}
		}
		for _, s := range QATrackerStatuses {
			if err := b.f.SetCellFormula(sheet, fmt.Sprintf("%s%d", s.Column, row), s.Formula(row)); err != nil {
				return err
			}
		}
		rs := b.styles.qaRow(row)
		if err := b.f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", last, row), rs.left); err != nil {
			return err
		}
		for _, col := range centered {
			cell := fmt.Sprintf("%s%d", col, row)
			if err := b.f.SetCellStyle(sheet, cell, cell, rs.center); err != nil {
				return err
			}
		}
		if err := b.f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), rs.date); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) blastFreezing() error {
	sheet := BlastFreezingSheet
	if err := b.header(sheet, BlastFreezingColumns, b.styles.blastHeader); err != nil {
		return err
	}
	last, err := excelize.ColumnNumberToName(len(BlastFreezingColumns))
	if err != nil {
		return err
	}
	t := BlastFreezingTemperature
	for row := 2; row <= b.lastRow(); row++ {
		i := row - 2
		if b.demo && i < len(DemoBlastRecords) {
			if err := b.setCells(sheet, row, DemoBlastRecords[i].cells()); err != nil {
				return err
			}
		} else if err := b.f.SetCellValue(sheet, fmt.Sprintf("%s%d", t.Target, row), DefaultTargetTemperature); err != nil {
			return err
		}
		for _, d := range BlastFreezingDurations {
			if err := b.f.SetCellFormula(sheet, fmt.Sprintf("%s%d", d.Column, row), d.Formula(row)); err != nil {
				return err
			}
		}
		if err := b.f.SetCellFormula(sheet, fmt.Sprintf("%s%d", t.Column, row), t.Formula(row)); err != nil {
			return err
		}

		rs := b.styles.blastRow(row)
		if err := b.f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", last, row), rs.center); err != nil {
			return err
		}
		if err := b.f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), rs.date); err != nil {
			return err
		}
		if err := b.f.SetCellStyle(sheet, fmt.Sprintf("%s%d", t.Target, row), fmt.Sprintf("%s%d", t.Actual, row), rs.temperature); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) definitions() error {
	sheet := DefinitionsSheet
	if err := b.header(sheet, DefinitionColumns, b.styles.termsHeader); err != nil {
		return err
	}
	for i, def := range Definitions {
		row := i + 2
		a, c := fmt.Sprintf("A%d", row), fmt.Sprintf("C%d", row)
		if def.IsSection() {
			if err := b.f.SetCellValue(sheet, a, def.Description); err != nil {
				return err
			}
			if err := b.f.MergeCell(sheet, a, c); err != nil {
				return err
			}
			if err := b.f.SetCellStyle(sheet, a, c, b.styles.section); err != nil {
				return err
			}
		} else {
			if err := b.f.SetSheetRow(sheet, a, &[]any{def.Column, def.Description, def.Values}); err != nil {
				return err
			}
			if err := b.f.SetCellStyle(sheet, a, c, b.styles.definition); err != nil {
				return err
			}
		}
		if err := b.f.SetRowHeight(sheet, row, 25); err != nil {
			return err
		}
	}
	return nil
}
