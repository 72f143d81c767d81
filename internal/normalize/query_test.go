package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/verdantlabs/factormatch/internal/model"
)

func TestBuildSearchQuery(t *testing.T) {
	activity := 450.0
	invoice := model.InvoiceRecord{
		InvoiceType:      "Air travel booking",
		TransportMode:    "air",
		DepartureCity:    "Paris",
		DepartureCountry: "France",
		DestinationCity:  "Berlin",
		ActivityData:     &activity,
		Unit:             "EUR",
	}

	query := BuildSearchQuery(invoice)

	assert.Contains(t, query, "Air travel booking")
	assert.Contains(t, query, "450 EUR")
	assert.Contains(t, query, "mots-clés:")
	assert.Contains(t, query, "transport aérien")
	assert.Contains(t, query, "ADEME Base Carbone v23.6")

	// "air" appears in both type and mode; its hint terms must appear once.
	assert.Equal(t, 1, strings.Count(query, "passager-km"))
}

func TestBuildSearchQueryDeduplicatesCaseInsensitively(t *testing.T) {
	invoice := model.InvoiceRecord{
		InvoiceType:   "Taxi",
		TransportMode: "TAXI",
	}

	query := BuildSearchQuery(invoice)

	// The hint term and both spellings collapse to one entry each family.
	assert.Equal(t, 1, strings.Count(strings.ToLower(query), "mots-clés:"))
	keywordSection := strings.SplitN(query, "mots-clés:", 2)[1]
	assert.Equal(t, 1, strings.Count(strings.ToLower(keywordSection), "taxi;"))
}

func TestBuildSearchQueryEmptyInvoice(t *testing.T) {
	query := BuildSearchQuery(model.InvoiceRecord{})

	assert.True(t, strings.HasPrefix(query, "invoice without metadata"))
}
