package catalog

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/verdantlabs/factormatch/internal/common"
	"github.com/verdantlabs/factormatch/internal/model"
	"github.com/verdantlabs/factormatch/internal/normalize"
)

// ReadInvoices loads an invoice batch from the first sheet of the workbook
// at path. The first row names the columns; unrecognized columns are kept
// in the record's Raw map for the audit trail.
func ReadInvoices(path string) ([]model.InvoiceRecord, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open invoices %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	rows, err := file.GetRows(file.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, common.ErrNoInvoices
	}

	header := rows[0]
	for i, name := range header {
		header[i] = normalize.CleanText(name)
	}

	invoices := make([]model.InvoiceRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		raw := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(row) {
				raw[name] = row[i]
			} else {
				raw[name] = ""
			}
		}

		if isEmptyRow(raw) {
			continue
		}

		invoices = append(invoices, model.InvoiceRecord{
			SourceFile:         normalize.CleanText(raw["source_file"]),
			InvoiceType:        normalize.CleanText(raw["invoice_type"]),
			ActivityData:       normalize.SafeFloat(raw["activity_data"]),
			Unit:               normalize.CleanText(raw["unit"]),
			Location:           normalize.CleanText(raw["location"]),
			Date:               normalize.CleanText(raw["date"]),
			DepartureCity:      normalize.CleanText(raw["departure_city"]),
			DepartureCountry:   normalize.CleanText(raw["departure_country"]),
			DestinationCity:    normalize.CleanText(raw["destination_city"]),
			DestinationCountry: normalize.CleanText(raw["destination_country"]),
			TravelClass:        normalize.CleanText(raw["travel_class"]),
			TransportMode:      normalize.CleanText(raw["transportation_type"]),
			PassengersOrNights: normalize.CleanText(raw["passengers_or_nights"]),
			Raw:                raw,
		})
	}

	if len(invoices) == 0 {
		return nil, common.ErrNoInvoices
	}
	return invoices, nil
}

func isEmptyRow(raw map[string]string) bool {
	for _, value := range raw {
		if normalize.CleanText(value) != "" {
			return false
		}
	}
	return true
}
