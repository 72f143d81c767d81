package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/verdantlabs/factormatch/internal/common"
)

func writeSheet(t *testing.T, rows [][]any) string {
	t.Helper()

	file := excelize.NewFile()
	sheet := file.GetSheetName(0)
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, file.SetCellValue(sheet, cell, value))
		}
	}

	path := filepath.Join(t.TempDir(), "sheet.xlsx")
	require.NoError(t, file.SaveAs(path))
	require.NoError(t, file.Close())
	return path
}

func TestReadFactors(t *testing.T) {
	path := writeSheet(t, [][]any{
		{
			"Identifiant de l'élément", "Statut de l'élément", "Nom base français", "Nom base anglais",
			"Code de la catégorie", "Tags français", "Unité français", "Contributeur",
			"Date de création", "Date de modification", "Total poste non décomposé", "CO2f",
			"Code gaz supplémentaire 1", "Valeur gaz supplémentaire 1",
		},
		{
			"20523", "valide", " Avion passagers ", "Passenger aircraft",
			"Transport de personnes", "avion, aérien", "kgCO2e/passager.km", "ADEME",
			"2021-06-01", "2023-02-15", "0.187", "0,182",
			"CO2b", "0.001",
		},
		{
			"", "archivé", "Taxi", "",
			"Transport de personnes", "taxi", "kgCO2e/km", "",
			"", "", "not a number", "",
			"", "",
		},
	})

	factors, err := ReadFactors(path)
	require.NoError(t, err)
	require.Len(t, factors, 2)

	first := factors[0]
	assert.Equal(t, 1, first.RowIndex)
	require.NotNil(t, first.Identifier)
	assert.Equal(t, int64(20523), *first.Identifier)
	assert.Equal(t, "Avion passagers", first.NameFR)
	assert.Equal(t, "kgCO2e/passager.km", first.UnitFR)
	require.NotNil(t, first.CreatedAt)
	assert.Equal(t, 2021, first.CreatedAt.Year())
	require.NotNil(t, first.Total)
	assert.InDelta(t, 0.187, *first.Total, 0.0001)
	// Comma decimals are accepted.
	require.NotNil(t, first.CO2Fossil)
	assert.InDelta(t, 0.182, *first.CO2Fossil, 0.0001)
	require.Len(t, first.ExtraGases, 1)
	assert.Equal(t, "CO2b", first.ExtraGases[0].Code)

	second := factors[1]
	assert.Equal(t, 2, second.RowIndex)
	assert.Nil(t, second.Identifier)
	assert.Nil(t, second.CreatedAt)
	assert.Nil(t, second.Total)
	assert.Empty(t, second.ExtraGases)
}

func TestReadFactorsEmptySheet(t *testing.T) {
	path := writeSheet(t, [][]any{{"Nom base français"}})

	factors, err := ReadFactors(path)
	require.NoError(t, err)
	assert.Empty(t, factors)
}

func TestReadFactorsMissingFile(t *testing.T) {
	_, err := ReadFactors(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
}

func TestReadInvoices(t *testing.T) {
	path := writeSheet(t, [][]any{
		{
			"source_file", "invoice_type", "activity_data", "unit", "location", "date",
			"departure_city", "destination_city", "travel_class", "transportation_type",
			"passengers_or_nights", "vendor_note",
		},
		{
			"invoice_001.pdf", " Billet d'avion ", "1389,96", "EUR", "Paris", "2024-03-12",
			"Paris", "New York", "economy", "avion",
			"2 passengers", "ACME Travel",
		},
		{"", "", "", "", "", "", "", "", "", "", "", ""},
	})

	invoices, err := ReadInvoices(path)
	require.NoError(t, err)
	require.Len(t, invoices, 1)

	invoice := invoices[0]
	assert.Equal(t, "invoice_001.pdf", invoice.SourceFile)
	assert.Equal(t, "Billet d'avion", invoice.InvoiceType)
	require.NotNil(t, invoice.ActivityData)
	assert.InDelta(t, 1389.96, *invoice.ActivityData, 0.0001)
	assert.Equal(t, "Paris", invoice.DepartureCity)
	assert.Equal(t, "New York", invoice.DestinationCity)
	assert.Equal(t, "avion", invoice.TransportMode)
	assert.Equal(t, "2 passengers", invoice.PassengersOrNights)

	// Unmapped columns survive in the raw payload.
	assert.Equal(t, "ACME Travel", invoice.Raw["vendor_note"])
}

func TestReadInvoicesEmpty(t *testing.T) {
	path := writeSheet(t, [][]any{{"source_file", "invoice_type"}})

	_, err := ReadInvoices(path)
	assert.ErrorIs(t, err, common.ErrNoInvoices)
}
