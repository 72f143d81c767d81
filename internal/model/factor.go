package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/verdantlabs/factormatch/internal/units"
)

// GasValue is one additional disaggregated gas reading on a factor.
type GasValue struct {
	Code  string
	Value *float64
}

// FactorRecord represents one canonical emission-factor entry from the
// reference catalogue. Instances are rebuilt per search call from whatever
// the candidate source returns; they are never cached across invoices.
type FactorRecord struct {
	RowIndex          int
	Identifier        *int64
	Status            string
	NameFR            string
	NameEN            string
	Category          string
	TagsFR            string
	UnitFR            string
	UnitEN            string
	Contributor       string
	OtherContributors string
	Programme         string
	Source            string
	URL               string
	Location          string
	CreatedAt         *time.Time
	ModifiedAt        *time.Time
	Validity          string
	CommentsFR        string
	CommentsEN        string
	Total             *float64 // total kgCO2e per denominator unit, nil when unpublished
	CO2Fossil         *float64
	CH4Fossil         *float64
	CH4Biogenic       *float64
	N2O               *float64
	ExtraGases        []GasValue
}

// NumeratorUnit returns the part of the unit string before the "/",
// or the whole string when no "/" is present.
func (f *FactorRecord) NumeratorUnit() string {
	if f.UnitFR == "" {
		return ""
	}
	numerator, _, found := strings.Cut(f.UnitFR, "/")
	if !found {
		return f.UnitFR
	}
	return numerator
}

// DenominatorUnit returns the part of the unit string after the "/".
// A unit without "/" denominates in the scalar unit "1".
func (f *FactorRecord) DenominatorUnit() string {
	if f.UnitFR == "" {
		return ""
	}
	_, denominator, found := strings.Cut(f.UnitFR, "/")
	if !found {
		return "1"
	}
	return denominator
}

// IsActivityBased reports whether the factor applies to a physical
// activity quantity rather than a monetary amount.
func (f *FactorRecord) IsActivityBased() bool {
	denom := units.Normalize(f.DenominatorUnit())
	if denom == "" {
		return false
	}
	switch denom {
	case "eur", "keuro", "keur":
		return false
	}
	return true
}

// PublicationYear returns the earliest year among the factor's creation
// and modification timestamps and the leading year of its validity
// period, or 0 when none is known.
func (f *FactorRecord) PublicationYear() int {
	year := 0
	for _, ts := range []*time.Time{f.CreatedAt, f.ModifiedAt} {
		if ts == nil {
			continue
		}
		if year == 0 || ts.Year() < year {
			year = ts.Year()
		}
	}
	if len(f.Validity) >= 4 {
		if v, err := strconv.Atoi(f.Validity[:4]); err == nil {
			if year == 0 || v < year {
				year = v
			}
		}
	}
	return year
}

// Describe renders the factor's key metadata for audit output.
func (f *FactorRecord) Describe() string {
	var parts []string
	if f.NameFR != "" {
		parts = append(parts, fmt.Sprintf("Factor: %s", f.NameFR))
	}
	if f.Category != "" {
		parts = append(parts, fmt.Sprintf("Category: %s", f.Category))
	}
	if f.Contributor != "" {
		parts = append(parts, fmt.Sprintf("Contributor: %s", f.Contributor))
	}
	if f.Source != "" {
		parts = append(parts, fmt.Sprintf("Source: %s", f.Source))
	}
	if f.Total != nil {
		parts = append(parts, fmt.Sprintf("CO2e: %v", *f.Total))
	}
	if f.UnitFR != "" {
		parts = append(parts, fmt.Sprintf("Unit: %s", f.UnitFR))
	}
	return strings.Join(parts, "; ")
}
