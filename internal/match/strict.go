// Package match applies strict-mapping lookups and disambiguation rules
// to pick one factor candidate per invoice.
package match

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// StrictTable maps a lowercased, trimmed invoice type to the catalogue
// factor name it must resolve to, bypassing semantic search.
type StrictTable map[string]string

// strictEntry is the on-disk shape of one strict mapping.
type strictEntry struct {
	FactorName string `json:"factor_name"`
}

// LoadStrictTable reads a strict-mapping JSON file. A missing file is
// not an error: strict matching simply stays disabled.
func LoadStrictTable(path string) (StrictTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return StrictTable{}, nil
		}
		return nil, fmt.Errorf("failed to read strict mappings: %w", err)
	}

	var entries map[string]strictEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse strict mappings: %w", err)
	}

	table := make(StrictTable, len(entries))
	for invoiceType, entry := range entries {
		if entry.FactorName == "" {
			continue
		}
		table[strings.ToLower(strings.TrimSpace(invoiceType))] = entry.FactorName
	}
	return table, nil
}

// Lookup returns the target factor name for an invoice type, if mapped.
func (t StrictTable) Lookup(invoiceType string) (string, bool) {
	if len(t) == 0 || invoiceType == "" {
		return "", false
	}
	name, ok := t[strings.ToLower(strings.TrimSpace(invoiceType))]
	return name, ok
}
