package normalize

import (
	"fmt"
	"strings"

	"github.com/verdantlabs/factormatch/internal/model"
)

// querySuffix anchors every retrieval query to the factor catalogue.
const querySuffix = "ADEME Base Carbone v23.6"

// searchHints expands domain terms found in invoice text into the
// catalogue's vocabulary. Pure data, loaded once; the slice keeps hint
// expansion order deterministic.
var searchHints = []struct {
	keyword string
	terms   []string
}{
	{"air", []string{"transport aérien", "avion", "passager-km", "déplacement professionnel", "voyage aérien"}},
	{"flight", []string{"transport aérien", "avion", "passager-km", "business travel"}},
	{"hotel", []string{"hébergement", "hôtel", "nuitée", "séjour"}},
	{"accommodation", []string{"hébergement", "nuitée", "séjour"}},
	{"train", []string{"transport ferroviaire", "train", "voyage", "km"}},
	{"rail", []string{"transport ferroviaire", "train", "voyage", "km"}},
	{"taxi", []string{"taxi", "transport routier", "déplacement urbain"}},
	{"bus", []string{"transport en commun", "bus", "km"}},
	{"metro", []string{"transport en commun", "métro", "trajet"}},
	{"subway", []string{"transport en commun", "métro"}},
	{"fuel", []string{"carburant", "énergie", "litre"}},
	{"electricity", []string{"électricité", "kWh"}},
	{"telecom", []string{"télécommunications", "services numériques"}},
	{"internet", []string{"télécommunications", "internet"}},
	{"membership", []string{"services", "cotisation", "adhésion"}},
}

// BuildSearchQuery assembles the retrieval query for one invoice: the
// populated descriptive fields, followed by hint terms triggered by
// substring matches, deduplicated case-insensitively in first-seen order.
func BuildSearchQuery(invoice model.InvoiceRecord) string {
	var parts []string
	for _, value := range []string{
		invoice.InvoiceType,
		invoice.TransportMode,
		invoice.Location,
		invoice.DepartureCity,
		invoice.DepartureCountry,
		invoice.DestinationCity,
		invoice.DestinationCountry,
		invoice.TravelClass,
	} {
		if value != "" {
			parts = append(parts, value)
		}
	}
	if invoice.ActivityData != nil && invoice.Unit != "" {
		parts = append(parts, fmt.Sprintf("%v %s", *invoice.ActivityData, invoice.Unit))
	}

	searchable := strings.ToLower(strings.Join(parts, " "))

	var hints []string
	for _, hint := range searchHints {
		if strings.Contains(searchable, hint.keyword) {
			hints = append(hints, hint.terms...)
		}
	}

	if invoice.InvoiceType != "" {
		hints = append(hints, invoice.InvoiceType)
	}
	if invoice.TransportMode != "" {
		hints = append(hints, invoice.TransportMode)
	}
	if invoice.Location != "" {
		for _, segment := range strings.Split(invoice.Location, ";") {
			if segment != "" {
				hints = append(hints, strings.TrimSpace(segment))
			}
		}
	}
	if invoice.DepartureCountry != "" {
		hints = append(hints, invoice.DepartureCountry)
	}
	if invoice.DestinationCountry != "" {
		hints = append(hints, invoice.DestinationCountry)
	}

	var unique []string
	seen := make(map[string]struct{})
	for _, hint := range hints {
		normalized := strings.ToLower(strings.TrimSpace(hint))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		unique = append(unique, strings.TrimSpace(hint))
	}

	baseClause := "invoice without metadata"
	if len(parts) > 0 {
		baseClause = strings.Join(parts, "; ")
	}
	return fmt.Sprintf("%s; mots-clés: %s; %s", baseClause, strings.Join(unique, "; "), querySuffix)
}
