package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"bitbucket.org/mmdatafocus/menu_recon/config"
	"bitbucket.org/mmdatafocus/menu_recon/models"
	"bitbucket.org/mmdatafocus/menu_recon/utils"
)

// Header is the first row of every report, whatever the format.
var Header = []string{"menu_id", "source_menu_name", "target_menu_name", "status"}

const (
	contentTypeCSV  = "text/csv"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const sheetName = "Sheet1"

// Encoder writes reconciliation rows in one file format.
type Encoder interface {
	Encode(w io.Writer, rows []models.ReconciliationRow) error
	Format() string
	ContentType() string
}

// NewEncoder returns the encoder for a RECON_OUTPUT_FORMAT value.
func NewEncoder(format string) (Encoder, error) {
	switch format {
	case config.FormatCSV, "":
		return CSVEncoder{}, nil
	case config.FormatXLSX:
		return XLSXEncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// FileName is the report name of one outlet, e.g. menu_recon_OUTLET_01.csv.
func FileName(outletCode, format string) string {
	return fmt.Sprintf("menu_recon_%s.%s", outletCode, format)
}

func record(row models.ReconciliationRow) []string {
	return []string{
		row.MenuId,
		utils.DereferencePtr(row.SourceMenuName, ""),
		utils.DereferencePtr(row.TargetMenuName, ""),
		string(row.Status),
	}
}

// CSVEncoder writes RFC 4180 CSV with a header row. Missing names are empty fields.
type CSVEncoder struct{}

func (CSVEncoder) Format() string      { return config.FormatCSV }
func (CSVEncoder) ContentType() string { return contentTypeCSV }

func (CSVEncoder) Encode(w io.Writer, rows []models.ReconciliationRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("%w: write csv header: %w", utils.ErrorSerialization, err)
	}
	for _, row := range rows {
		if err := cw.Write(record(row)); err != nil {
			return fmt.Errorf("%w: write csv row %s: %w", utils.ErrorSerialization, row.MenuId, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: flush csv: %w", utils.ErrorSerialization, err)
	}
	return nil
}

// XLSXEncoder writes a single-sheet workbook with the same columns as the CSV.
// Every cell is a string so menu ids like "007" survive.
type XLSXEncoder struct{}

func (XLSXEncoder) Format() string      { return config.FormatXLSX }
func (XLSXEncoder) ContentType() string { return contentTypeXLSX }

func (XLSXEncoder) Encode(w io.Writer, rows []models.ReconciliationRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := setRow(f, 1, Header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, i+2, record(row)); err != nil {
			return err
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("%w: write xlsx: %w", utils.ErrorSerialization, err)
	}
	return nil
}

func setRow(f *excelize.File, rowNo int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return fmt.Errorf("%w: %w", utils.ErrorSerialization, err)
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
		return fmt.Errorf("%w: set xlsx row %d: %w", utils.ErrorSerialization, rowNo, err)
	}
	return nil
}
