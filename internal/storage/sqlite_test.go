package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/factormatch/internal/common"
	"github.com/verdantlabs/factormatch/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "factors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func floatPtr(v float64) *float64 { return &v }

func testFactors() []model.FactorRecord {
	created := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	identifier := int64(20523)
	return []model.FactorRecord{
		{
			RowIndex:   10,
			Identifier: &identifier,
			Status:     "valide",
			NameFR:     "Avion passagers, moyen courrier",
			NameEN:     "Passenger aircraft, medium haul",
			Category:   "Transport de personnes",
			TagsFR:     "avion, aérien, voyage",
			UnitFR:     "kgCO2e/passager.km",
			CreatedAt:  &created,
			Total:      floatPtr(0.187),
			CO2Fossil:  floatPtr(0.182),
			ExtraGases: []model.GasValue{{Code: "CO2b", Value: floatPtr(0.001)}},
		},
		{
			RowIndex: 11,
			Status:   "archivé",
			NameFR:   "Taxi",
			Category: "Transport de personnes",
			TagsFR:   "taxi, route",
			UnitFR:   "kgCO2e/km",
			Total:    floatPtr(0.21),
		},
		{
			RowIndex: 12,
			Status:   "valide",
			NameFR:   "Hôtel, France",
			Category: "Hébergement",
			TagsFR:   "hotel, nuitée",
			UnitFR:   "kgCO2e/nuitée",
			Total:    floatPtr(6.5),
		},
	}
}

func TestSaveAndGetFactor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFactors(ctx, testFactors()))

	factor, err := store.GetFactor(ctx, 10)
	require.NoError(t, err)

	assert.Equal(t, "Avion passagers, moyen courrier", factor.NameFR)
	assert.Equal(t, "valide", factor.Status)
	require.NotNil(t, factor.Identifier)
	assert.Equal(t, int64(20523), *factor.Identifier)
	require.NotNil(t, factor.Total)
	assert.InDelta(t, 0.187, *factor.Total, 0.0001)
	require.NotNil(t, factor.CreatedAt)
	assert.Equal(t, 2021, factor.CreatedAt.Year())
	require.Len(t, factor.ExtraGases, 1)
	assert.Equal(t, "CO2b", factor.ExtraGases[0].Code)

	// Nullable columns survive round trips as nils.
	taxi, err := store.GetFactor(ctx, 11)
	require.NoError(t, err)
	assert.Nil(t, taxi.Identifier)
	assert.Nil(t, taxi.CreatedAt)
	assert.Nil(t, taxi.CO2Fossil)
}

func TestGetFactorNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetFactor(context.Background(), 999)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveFactorsUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFactors(ctx, testFactors()))
	updated := testFactors()
	updated[0].NameFR = "Avion passagers, long courrier"
	require.NoError(t, store.SaveFactors(ctx, updated))

	count, err := store.FactorCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	factor, err := store.GetFactor(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Avion passagers, long courrier", factor.NameFR)
}

func TestSaveFactorsRejectsDuplicateRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	factors := testFactors()
	factors[1].RowIndex = factors[0].RowIndex

	err := store.SaveFactors(ctx, factors)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	count, err := store.FactorCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSearchKeyword(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFactors(ctx, testFactors()))

	candidates, err := store.SearchKeyword(ctx, "avion voyage", 5)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	assert.Equal(t, 10, candidates[0].Factor.RowIndex)
	assert.InDelta(t, 1.0, candidates[0].Score, 0.0001)
}

func TestSearchKeywordPartialScore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFactors(ctx, testFactors()))

	candidates, err := store.SearchKeyword(ctx, "taxi aubergine", 5)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	assert.Equal(t, 11, candidates[0].Factor.RowIndex)
	assert.InDelta(t, 0.5, candidates[0].Score, 0.0001)
}

func TestSearchKeywordNoMatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFactors(ctx, testFactors()))

	candidates, err := store.SearchKeyword(ctx, "zzznothing", 5)
	require.NoError(t, err)
	assert.Empty(t, candidates)

	candidates, err = store.SearchKeyword(ctx, "", 5)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSearchKeywordTopK(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFactors(ctx, testFactors()))

	candidates, err := store.SearchKeyword(ctx, "transport personnes", 1)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestStrictMappingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mappings := map[string]string{
		"Billet d'avion": "Avion passagers, moyen courrier",
		"taxi":           "Taxi",
	}
	require.NoError(t, store.SaveStrictMappings(ctx, mappings))

	loaded, err := store.StrictMappings(ctx)
	require.NoError(t, err)

	// Keys are lowercased on save.
	assert.Equal(t, "Avion passagers, moyen courrier", loaded["billet d'avion"])
	assert.Equal(t, "Taxi", loaded["taxi"])

	// A second save replaces the table.
	require.NoError(t, store.SaveStrictMappings(ctx, map[string]string{"taxi": "Taxi"}))
	loaded, err = store.StrictMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestFactorCountEmpty(t *testing.T) {
	store := newTestStore(t)

	count, err := store.FactorCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	stamp, err := store.IngestedAt(context.Background())
	require.NoError(t, err)
	assert.True(t, stamp.IsZero())
}
