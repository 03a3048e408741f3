// Package export writes the two-column report of a bulk translation run.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	DefaultOutputPath = "translation_report.xlsx"
	DefaultSheetName  = "Translation Report"
	columnWidth       = 50
)

// Formats lists the supported report extensions without the dot
var Formats = []string{"xlsx", "csv"}

// ErrUnsupportedFormat is returned for report paths that are neither
// .xlsx nor .csv
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Row is one translated line of the report
type Row struct {
	Source      string
	Translation string
}

// GeneratorOptions configures the report
type GeneratorOptions struct {
	OutputPath     string // .xlsx or .csv
	SheetName      string // xlsx only
	IncludeHeaders bool
	SourceHeader   string
	TargetHeader   string
}

// DefaultGeneratorOptions returns sensible defaults
func DefaultGeneratorOptions() *GeneratorOptions {
	return &GeneratorOptions{
		OutputPath:     DefaultOutputPath,
		SheetName:      DefaultSheetName,
		IncludeHeaders: true,
		SourceHeader:   "English",
		TargetHeader:   "Yoruba",
	}
}

// Generator creates report files
type Generator struct {
	options *GeneratorOptions
	rows    []Row
}

// NewGenerator creates a new report generator
func NewGenerator(options *GeneratorOptions) *Generator {
	if options == nil {
		options = DefaultGeneratorOptions()
	}
	return &Generator{options: options}
}

// AddRow adds a row to the report
func (g *Generator) AddRow(row Row) {
	g.rows = append(g.rows, row)
}

// Rows returns the rows added so far
func (g *Generator) Rows() []Row {
	return g.rows
}

// Write creates the report at path with the default sheet and headers
func Write(path string, rows []Row) error {
	opts := DefaultGeneratorOptions()
	opts.OutputPath = path

	g := NewGenerator(opts)
	for _, row := range rows {
		g.AddRow(row)
	}
	return g.Generate()
}

// Generate writes the report in the format given by the output extension
func (g *Generator) Generate() error {
	if dir := filepath.Dir(g.options.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	switch strings.ToLower(filepath.Ext(g.options.OutputPath)) {
	case ".xlsx":
		return g.GenerateXLSX()
	case ".csv":
		return g.GenerateCSV()
	default:
		return fmt.Errorf("%s: %w", g.options.OutputPath, ErrUnsupportedFormat)
	}
}

// GenerateXLSX creates a spreadsheet with one sheet
func (g *Generator) GenerateXLSX() error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := g.options.SheetName
	if sheet == "" {
		sheet = DefaultSheetName
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", "B", columnWidth); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	row := 1
	if g.options.IncludeHeaders {
		if err := f.SetSheetRow(sheet, "A1", &[]any{g.options.SourceHeader, g.options.TargetHeader}); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
		row++
	}

	for _, r := range g.rows {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", row, err)
		}
		if err := f.SetSheetRow(sheet, cell, &[]any{r.Source, r.Translation}); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		row++
	}

	if err := f.SaveAs(g.options.OutputPath); err != nil {
		return fmt.Errorf("failed to save spreadsheet: %w", err)
	}
	return nil
}

// GenerateCSV creates a CSV file
func (g *Generator) GenerateCSV() error {
	file, err := os.Create(g.options.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if g.options.IncludeHeaders {
		if err := writer.Write([]string{g.options.SourceHeader, g.options.TargetHeader}); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for _, r := range g.rows {
		if err := writer.Write([]string{r.Source, r.Translation}); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV file: %w", err)
	}
	return nil
}
