package classify

import "github.com/verdantlabs/factormatch/internal/model"

// DefaultProfiles returns the built-in category taxonomy. Profile order
// is significant: classification ties resolve to the first profile seen.
func DefaultProfiles() []model.CategoryProfile {
	return []model.CategoryProfile{
		{
			Name: "it_services",
			Keywords: []string{
				"programmation", "conseil it", "services d'information", "software",
				"développement", "consulting", "information technology", "tech support",
				"cloud", "saas", "software development", "it consulting",
			},
			Tags:          []string{"services", "conseil", "numérique"},
			PreferredUnit: "kgCO2e/euro",
			UnitPatterns:  []string{"euro", "€", "eur"},
		},
		{
			Name: "insurance",
			Keywords: []string{
				"assurance", "réassurance", "retraites", "insurance", "pension",
				"sécurité sociale", "social security", "garantie",
			},
			Tags:          []string{"services", "assurance", "financier"},
			PreferredUnit: "kgCO2e/euro",
			UnitPatterns:  []string{"euro", "€", "eur"},
		},
		{
			Name: "market_research",
			Keywords: []string{
				"publicité", "études de marché", "marketing", "advertising",
				"market research", "étude", "sondage", "survey",
			},
			Tags:          []string{"services", "publicité", "marketing"},
			PreferredUnit: "kgCO2e/euro",
			UnitPatterns:  []string{"euro", "€", "eur"},
		},
		{
			Name: "transportation_bus",
			Keywords: []string{
				"autobus moyen", "bus", "transport en commun", "urban area",
				"zone urbaine", "passager", "passenger",
			},
			Tags:          []string{"transport", "routier", "bus", "passager"},
			PreferredUnit: "kgCO2e/passager.km",
			UnitPatterns:  []string{"passager.km", "passenger.km", "km"},
		},
		{
			Name: "transportation_air",
			Keywords: []string{
				"avion", "aviation", "flight", "air travel", "passagers",
				"sièges", "seats", "jet", "aérien",
			},
			Tags:          []string{"transport", "aérien", "avion", "passager"},
			PreferredUnit: "kgCO2e/passager.km",
			UnitPatterns:  []string{"passager.km", "passenger.km", "km"},
		},
		{
			Name: "accommodation",
			Keywords: []string{
				"hébergement", "restauration", "hotel", "accommodation",
				"restaurant", "nuitée", "night", "séjour",
			},
			Tags:          []string{"hébergement", "hôtel", "restauration"},
			PreferredUnit: "kgCO2e/euro",
			UnitPatterns:  []string{"euro", "€", "eur", "nuitée", "night"},
		},
		{
			Name: "vehicle_rental",
			Keywords: []string{
				"autocar", "car rental", "location", "vehicle", "véhicule",
				"rental", "loueur",
			},
			Tags:          []string{"transport", "routier", "location"},
			PreferredUnit: "kgCO2e/passager.km",
			UnitPatterns:  []string{"passager.km", "passenger.km", "km"},
		},
		{
			Name: "education",
			Keywords: []string{
				"enseignement", "education", "formation", "training",
				"école", "school", "university", "cours",
			},
			Tags:          []string{"services", "enseignement", "formation"},
			PreferredUnit: "kgCO2e/euro",
			UnitPatterns:  []string{"euro", "€", "eur"},
		},
		{
			Name: "real_estate",
			Keywords: []string{
				"immobiliers", "immobilier", "real estate", "property", "foncier",
				"terrain", "bail immobilier", "location immobiliere", "lease property",
			},
			Tags:          []string{"services", "immobilier"},
			PreferredUnit: "kgCO2e/euro",
			UnitPatterns:  []string{"euro", "€", "eur"},
		},
		{
			Name: "legal_services",
			Keywords: []string{
				"juridiques", "comptables", "legal", "accounting",
				"conseil de gestion", "law", "avocat", "audit",
			},
			Tags:          []string{"services", "juridique", "comptable", "conseil"},
			PreferredUnit: "kgCO2e/euro",
			UnitPatterns:  []string{"euro", "€", "eur"},
		},
	}
}
