// Package catalog reads the emission-factor catalogue and invoice batches
// from xlsx workbooks.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/verdantlabs/factormatch/internal/model"
	"github.com/verdantlabs/factormatch/internal/normalize"
)

// dateLayouts covers the formats seen in catalogue exports.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"01-02-06",
	"1/2/06 15:04",
	time.RFC3339,
}

// ReadFactors loads the factor catalogue from the first sheet of the
// workbook at path. Row indices are 1-based over the data rows, matching
// the row numbering the strict-mapping table and advisor decisions use.
func ReadFactors(path string) ([]model.FactorRecord, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalogue %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	rows, err := file.GetRows(file.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := headerMap(rows[0])
	factors := make([]model.FactorRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		cell := func(name string) string {
			return normalize.CleanText(cellAt(row, header, name))
		}
		num := func(name string) *float64 {
			return normalize.SafeFloat(cellAt(row, header, name))
		}

		factor := model.FactorRecord{
			RowIndex:          i + 1,
			Identifier:        parseIdentifier(cellAt(row, header, "Identifiant de l'élément")),
			Status:            cell("Statut de l'élément"),
			NameFR:            cell("Nom base français"),
			NameEN:            cell("Nom base anglais"),
			Category:          cell("Code de la catégorie"),
			TagsFR:            cell("Tags français"),
			UnitFR:            cell("Unité français"),
			UnitEN:            cell("Unité anglais"),
			Contributor:       cell("Contributeur"),
			OtherContributors: cell("Autres Contributeurs"),
			Programme:         cell("Programme"),
			Source:            cell("Source"),
			URL:               cell("Url du programme"),
			Location:          cell("Localisation géographique"),
			CreatedAt:         parseDate(cellAt(row, header, "Date de création")),
			ModifiedAt:        parseDate(cellAt(row, header, "Date de modification")),
			Validity:          cell("Période de validité"),
			CommentsFR:        cell("Commentaire français"),
			CommentsEN:        cell("Commentaire anglais"),
			Total:             num("Total poste non décomposé"),
			CO2Fossil:         num("CO2f"),
			CH4Fossil:         num("CH4f"),
			CH4Biogenic:       num("CH4b"),
			N2O:               num("N2O"),
		}

		for slot := 1; slot <= 5; slot++ {
			code := cell(fmt.Sprintf("Code gaz supplémentaire %d", slot))
			value := num(fmt.Sprintf("Valeur gaz supplémentaire %d", slot))
			if code == "" && value == nil {
				continue
			}
			factor.ExtraGases = append(factor.ExtraGases, model.GasValue{Code: code, Value: value})
		}

		factors = append(factors, factor)
	}

	return factors, nil
}

func headerMap(row []string) map[string]int {
	header := make(map[string]int, len(row))
	for i, name := range row {
		name = normalize.CleanText(name)
		if name == "" {
			continue
		}
		if _, exists := header[name]; !exists {
			header[name] = i
		}
	}
	return header
}

func cellAt(row []string, header map[string]int, name string) string {
	idx, ok := header[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseIdentifier(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	// Identifiers sometimes come through as floats ("20523.0").
	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil
	}
	id := int64(value)
	return &id
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return &parsed
		}
	}
	return nil
}
