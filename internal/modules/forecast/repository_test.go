package forecast

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingpkg "github.com/stavrou/ballast/internal/testing"
)

func newTestRepo(t *testing.T) (*Repository, func()) {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "cache")
	return NewRepository(db.Conn(), zerolog.Nop()), cleanup
}

func sampleForecast(symbol string) AssetForecast {
	return AssetForecast{
		Symbol:         symbol,
		CurrentPrice:   100,
		ExpectedReturn: 0.1,
		Volatility:     0.2,
		Available:      true,
		Source:         SourceModel,
		FetchedAt:      time.Now().UTC().Truncate(time.Second),
	}
}

func TestStoreAndGetFresh(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	f := sampleForecast("AAPL")
	closes := []float64{98, 99, 100}
	require.NoError(t, repo.Store(f, closes, time.Hour))

	snapshot, err := repo.GetFresh("AAPL")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, f.Symbol, snapshot.Forecast.Symbol)
	assert.Equal(t, f.ExpectedReturn, snapshot.Forecast.ExpectedReturn)
	assert.Equal(t, closes, snapshot.Closes)
	assert.False(t, snapshot.Stale)
}

func TestGetFreshSkipsExpired(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	require.NoError(t, repo.Store(sampleForecast("AAPL"), nil, -time.Minute))

	snapshot, err := repo.GetFresh("AAPL")
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestGetReturnsStaleWithFlag(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	require.NoError(t, repo.Store(sampleForecast("AAPL"), []float64{1, 2, 3}, -time.Minute))

	snapshot, err := repo.Get("AAPL")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.True(t, snapshot.Stale)
	assert.Equal(t, []float64{1, 2, 3}, snapshot.Closes)
}

func TestGetUnknownSymbol(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	snapshot, err := repo.Get("UNKNOWN")
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestStoreReplacesExisting(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	first := sampleForecast("AAPL")
	require.NoError(t, repo.Store(first, nil, time.Hour))

	second := first
	second.ExpectedReturn = 0.5
	require.NoError(t, repo.Store(second, nil, time.Hour))

	snapshot, err := repo.GetFresh("AAPL")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, 0.5, snapshot.Forecast.ExpectedReturn)
}

func TestGetAllOrderedBySymbol(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	require.NoError(t, repo.Store(sampleForecast("MSFT"), nil, time.Hour))
	require.NoError(t, repo.Store(sampleForecast("AAPL"), nil, -time.Minute))

	snapshots, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, "AAPL", snapshots[0].Forecast.Symbol)
	assert.True(t, snapshots[0].Stale)
	assert.Equal(t, "MSFT", snapshots[1].Forecast.Symbol)
	assert.False(t, snapshots[1].Stale)
}

func TestSymbols(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	require.NoError(t, repo.Store(sampleForecast("MSFT"), nil, time.Hour))
	require.NoError(t, repo.Store(sampleForecast("AAPL"), nil, time.Hour))

	symbols, err := repo.Symbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)
}

func TestDeleteExpired(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	require.NoError(t, repo.Store(sampleForecast("STALE"), nil, -time.Minute))
	require.NoError(t, repo.Store(sampleForecast("FRESH"), nil, time.Hour))

	deleted, err := repo.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	symbols, err := repo.Symbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"FRESH"}, symbols)
}
