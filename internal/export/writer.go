// Package export renders a batch of mapping results into the reporting
// workbook: one formatted emission-source row per invoice plus a full
// audit sheet for reviewers.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/verdantlabs/factormatch/internal/calc"
	"github.com/verdantlabs/factormatch/internal/model"
)

const (
	MainSheet  = "Emission source list"
	AuditSheet = "Calculation - Audit"

	dataCategory    = "periodic measurement"
	recordingMethod = "invoice-based"
	owningTeam      = "Finance/Accounting"
	factorOrigin    = "National emission factors"

	// Template headers occupy rows 1-3; data starts at row 4.
	firstDataRow = 4

	maxCellText = 50
)

var auditHeaders = []string{
	"Source file",
	"Invoice type",
	"Detected category",
	"Activity data (raw)",
	"Unit (raw)",
	"Location",
	"Date",
	"Route / Mode",
	"ECB rate",
	"Rate source",
	"Rate URL",
	"Selected factor row",
	"Selected factor name",
	"Selected factor unit",
	"Selected similarity",
	"Advisor rationale",
	"Advisor notes",
	"Alt candidates",
	"Activity notes",
	"Factor metadata",
	"Conversion ratio",
	"Factor value",
	"Calculated emissions (kgCO2e)",
	"Review required",
	"Run ID",
}

// Workbook implements the ResultWriter interface on top of an xlsx
// reporting template.
type Workbook struct {
	file       *excelize.File
	outputPath string
	runID      string
	mainRow    int
	auditRow   int
}

// NewWorkbook opens the template when one is given, otherwise starts a
// blank workbook, and positions the cursor on the first empty data row.
func NewWorkbook(templatePath, outputPath string) (*Workbook, error) {
	var file *excelize.File
	if templatePath != "" {
		opened, err := excelize.OpenFile(templatePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open template %s: %w", templatePath, err)
		}
		file = opened
	} else {
		file = excelize.NewFile()
		if err := file.SetSheetName(file.GetSheetName(0), MainSheet); err != nil {
			return nil, fmt.Errorf("failed to name main sheet: %w", err)
		}
	}

	idx, err := file.GetSheetIndex(MainSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect sheets: %w", err)
	}
	if idx < 0 {
		if err := file.SetSheetName(file.GetSheetName(0), MainSheet); err != nil {
			return nil, fmt.Errorf("failed to name main sheet: %w", err)
		}
	}
	idx, err = file.GetSheetIndex(AuditSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect sheets: %w", err)
	}
	if idx < 0 {
		if _, err := file.NewSheet(AuditSheet); err != nil {
			return nil, fmt.Errorf("failed to create audit sheet: %w", err)
		}
	}

	w := &Workbook{
		file:       file,
		outputPath: outputPath,
		runID:      uuid.NewString(),
		mainRow:    firstDataRow,
		auditRow:   1,
	}

	if err := w.seekFirstEmptyRow(); err != nil {
		return nil, err
	}
	if err := w.writeAuditHeader(); err != nil {
		return nil, err
	}
	return w, nil
}

// RunID identifies this batch in the audit sheet.
func (w *Workbook) RunID() string {
	return w.runID
}

// seekFirstEmptyRow scans column B from the first data row so appends
// never overwrite rows already present in the template.
func (w *Workbook) seekFirstEmptyRow() error {
	for {
		cell, err := excelize.CoordinatesToCellName(2, w.mainRow)
		if err != nil {
			return fmt.Errorf("failed to build cell name: %w", err)
		}
		value, err := w.file.GetCellValue(MainSheet, cell)
		if err != nil {
			return fmt.Errorf("failed to read cell %s: %w", cell, err)
		}
		if value == "" {
			return nil
		}
		w.mainRow++
	}
}

func (w *Workbook) writeAuditHeader() error {
	first, err := w.file.GetCellValue(AuditSheet, "A1")
	if err != nil {
		return fmt.Errorf("failed to read audit header: %w", err)
	}
	if first != "" {
		// Template already carries audit rows; continue below them.
		rows, rowsErr := w.file.GetRows(AuditSheet)
		if rowsErr != nil {
			return fmt.Errorf("failed to read audit sheet: %w", rowsErr)
		}
		w.auditRow = len(rows) + 1
		return nil
	}

	for col, header := range auditHeaders {
		if err := w.setCell(AuditSheet, col+1, 1, header); err != nil {
			return err
		}
	}
	w.auditRow = 2
	return nil
}

// Append writes the main-sheet row and the audit row for one result.
func (w *Workbook) Append(result *model.MappingResult) error {
	if err := w.appendMain(result); err != nil {
		return err
	}
	return w.appendAudit(result)
}

func (w *Workbook) appendMain(result *model.MappingResult) error {
	invoice := result.Invoice
	factor := result.Selected.Factor

	name := invoice.InvoiceType
	if name == "" {
		name = "Unknown"
	}
	if result.ReviewRequired {
		name = truncate(name, maxCellText) + " (REVIEW REQUIRED)"
	} else {
		name = truncate(name, maxCellText)
	}

	location := invoice.Location
	if location == "" {
		location = "N/A"
	}
	facilities := truncate(fmt.Sprintf("%s - %s", orUnknown(invoice.InvoiceType), location), maxCellText)

	denominator := factor.DenominatorUnit()
	activityUnit := result.ActivityUnit
	if activityUnit == "" {
		activityUnit = denominator
	}
	factorUnit := denominator
	if factorUnit == "" {
		factorUnit = result.ActivityUnit
	}
	numerator := factor.NumeratorUnit()
	if numerator == "" {
		numerator = "kgCO2e"
	}

	values := map[int]any{
		2:  name,
		3:  facilities,
		4:  result.Scope,
		5:  roundedOrNil(result.ActivityValue),
		6:  activityUnit,
		7:  dataCategory,
		8:  recordingMethod,
		9:  owningTeam,
		10: "",
		12: factorName(&factor),
		13: factorUnit,
		14: calc.Round(result.ConversionRatio),
		15: factorOrigin,
		16: factorSource(&factor),
		18: roundedOrNil(factor.Total),
		19: numerator,
		20: roundedOrNil(factor.CO2Fossil),
		21: "kgCO2e",
		22: roundedOrNil(factor.CH4Fossil),
		23: "kgCO2e",
		24: roundedOrNil(factor.CH4Biogenic),
		25: "kgCO2e",
		26: roundedOrNil(factor.N2O),
		27: "kgCO2e",
	}
	if factor.Identifier != nil {
		values[11] = *factor.Identifier
	}
	if year := factor.PublicationYear(); year > 0 {
		values[17] = year
	}

	for col, value := range values {
		if value == nil {
			continue
		}
		if err := w.setCell(MainSheet, col, w.mainRow, value); err != nil {
			return err
		}
	}

	// Up to four disaggregated gas pairs in columns 28-35.
	gasColumns := [][2]int{{28, 29}, {30, 31}, {32, 33}, {34, 35}}
	for i, gas := range factor.ExtraGases {
		if i >= len(gasColumns) {
			break
		}
		if err := w.setCell(MainSheet, gasColumns[i][0], w.mainRow, gas.Code); err != nil {
			return err
		}
		if gas.Value != nil {
			if err := w.setCell(MainSheet, gasColumns[i][1], w.mainRow, calc.Round(*gas.Value)); err != nil {
				return err
			}
		}
	}

	w.mainRow++
	return nil
}

func (w *Workbook) appendAudit(result *model.MappingResult) error {
	invoice := result.Invoice
	factor := result.Selected.Factor

	var routeParts []string
	if invoice.TransportMode != "" {
		routeParts = append(routeParts, invoice.TransportMode)
	}
	if invoice.TravelClass != "" {
		routeParts = append(routeParts, invoice.TravelClass)
	}

	category := result.DetectedCategory
	if category == "" {
		category = "Not detected"
	}

	review := "No"
	if result.ReviewRequired {
		review = "Yes"
	}

	values := []any{
		invoice.SourceFile,
		invoice.InvoiceType,
		category,
		invoice.Raw["activity_data"],
		invoice.Unit,
		invoice.Location,
		invoice.Date,
		strings.Join(routeParts, " / "),
		nil,
		nil,
		nil,
		factor.RowIndex,
		factorName(&factor),
		factor.UnitFR,
		result.Selected.Score,
		result.AdvisorRationale,
		result.AdvisorNotes,
		alternateLines(result),
		result.ActivityNotes,
		factor.Describe(),
		result.ConversionRatio,
		floatOrNil(factor.Total),
		floatOrNil(result.Emissions),
		review,
		w.runID,
	}
	if result.Rate != nil {
		values[8] = result.Rate.Rate
		values[9] = result.Rate.Source
		values[10] = result.Rate.URL
	}

	for col, value := range values {
		if value == nil {
			continue
		}
		if err := w.setCell(AuditSheet, col+1, w.auditRow, value); err != nil {
			return err
		}
	}

	w.auditRow++
	return nil
}

// Flush saves the workbook to the output path.
func (w *Workbook) Flush() error {
	dir := filepath.Dir(w.outputPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := w.file.SaveAs(w.outputPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// Close releases the underlying workbook.
func (w *Workbook) Close() error {
	return w.file.Close()
}

func (w *Workbook) setCell(sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to build cell name: %w", err)
	}
	if err := w.file.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("failed to write cell %s: %w", cell, err)
	}
	return nil
}

// alternateLines renders the advisor's alternates, falling back to the
// remaining ranked candidates when the advisor offered none.
func alternateLines(result *model.MappingResult) string {
	var lines []string
	for _, alt := range result.Alternates {
		if alt.Reason != "" {
			lines = append(lines, fmt.Sprintf("%d: %s", alt.RowIndex, alt.Reason))
		} else {
			lines = append(lines, fmt.Sprintf("%d", alt.RowIndex))
		}
	}
	if len(lines) == 0 && len(result.Candidates) > 1 {
		for _, candidate := range result.Candidates[1:] {
			lines = append(lines, fmt.Sprintf("%d: %s (sim=%.3f)",
				candidate.Factor.RowIndex, factorName(&candidate.Factor), candidate.Score))
		}
	}
	return strings.Join(lines, "\n")
}

func factorName(factor *model.FactorRecord) string {
	if factor.NameFR != "" {
		return factor.NameFR
	}
	return factor.NameEN
}

func factorSource(factor *model.FactorRecord) string {
	if factor.Source != "" {
		return factor.Source
	}
	return factor.Programme
}

func orUnknown(value string) string {
	if value == "" {
		return "Unknown"
	}
	return value
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func roundedOrNil(value *float64) any {
	if value == nil {
		return nil
	}
	return calc.Round(*value)
}

func floatOrNil(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}
