// Package model defines the core domain types for invoice-to-factor mapping.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// InvoiceRecord represents a single parsed invoice line from any source.
// Records are constructed once by the loader and read-only thereafter.
type InvoiceRecord struct {
	SourceFile         string
	InvoiceType        string
	ActivityData       *float64 // nil when the invoice carries no numeric quantity
	Unit               string
	Location           string
	Date               string
	DepartureCity      string
	DepartureCountry   string
	DestinationCity    string
	DestinationCountry string
	TravelClass        string
	TransportMode      string
	PassengersOrNights string
	Raw                map[string]string // original column values, kept for audit
}

// Description renders a human-readable summary of the populated fields.
func (r *InvoiceRecord) Description() string {
	var parts []string
	if r.InvoiceType != "" {
		parts = append(parts, fmt.Sprintf("invoice_type: %s", r.InvoiceType))
	}
	if r.TransportMode != "" {
		parts = append(parts, fmt.Sprintf("transport_mode: %s", r.TransportMode))
	}
	if r.Location != "" {
		parts = append(parts, fmt.Sprintf("location: %s", r.Location))
	}
	if r.DepartureCity != "" || r.DestinationCity != "" {
		parts = append(parts, fmt.Sprintf("route: %s, %s -> %s, %s",
			r.DepartureCity, r.DepartureCountry, r.DestinationCity, r.DestinationCountry))
	}
	if r.TravelClass != "" {
		parts = append(parts, fmt.Sprintf("travel_class: %s", r.TravelClass))
	}
	if r.ActivityData != nil && r.Unit != "" {
		parts = append(parts, fmt.Sprintf("activity: %v %s", *r.ActivityData, r.Unit))
	}
	if r.PassengersOrNights != "" {
		parts = append(parts, fmt.Sprintf("passengers_or_nights: %s", r.PassengersOrNights))
	}
	if r.Date != "" {
		parts = append(parts, fmt.Sprintf("date: %s", r.Date))
	}
	return strings.Join(parts, "; ")
}

// ActivityScalar returns the best-effort numeric activity for the invoice.
// When the numeric field is absent, digits are extracted from the
// passengers-or-nights text; nil when neither yields a number.
func (r *InvoiceRecord) ActivityScalar() *float64 {
	if r.ActivityData != nil {
		return r.ActivityData
	}
	if r.PassengersOrNights == "" {
		return nil
	}
	var digits strings.Builder
	for _, ch := range r.PassengersOrNights {
		if (ch >= '0' && ch <= '9') || ch == '.' {
			digits.WriteRune(ch)
		}
	}
	if digits.Len() == 0 {
		return nil
	}
	value, err := strconv.ParseFloat(digits.String(), 64)
	if err != nil {
		return nil
	}
	return &value
}
