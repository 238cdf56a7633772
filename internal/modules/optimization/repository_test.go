package optimization

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingpkg "github.com/stavrou/ballast/internal/testing"
)

func TestRepositorySaveAndGet(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())

	saved := OptimizationResult{
		PortfolioID:    "0f6a2c9e-1111-4222-8333-444455556666",
		Weights:        map[string]float64{"AAPL": 0.6, "MSFT": 0.4},
		ExpectedReturn: 0.08,
		Volatility:     0.15,
		SharpeRatio:    0.2,
		Source:         SourceManual,
		CreatedAt:      time.Unix(1700000000, 0).UTC(),
	}
	require.NoError(t, repo.Save(saved))

	got, err := repo.GetByID(saved.PortfolioID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, saved, *got)
}

func TestRepositoryGetUnknownID(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())

	got, err := repo.GetByID("no-such-id")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepositoryGetRecent(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())

	base := time.Unix(1700000000, 0).UTC()
	for i, id := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Save(OptimizationResult{
			PortfolioID: id,
			Weights:     map[string]float64{"VTI": 1},
			SharpeRatio: float64(i),
			Source:      SourceScheduled,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}))
	}

	recent, err := repo.GetRecent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].PortfolioID)
	assert.Equal(t, "second", recent[1].PortfolioID)
}

func TestRepositoryGetRecentDefaultLimit(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())

	require.NoError(t, repo.Save(OptimizationResult{
		PortfolioID: "only",
		Weights:     map[string]float64{"VTI": 1},
		CreatedAt:   time.Unix(1700000000, 0).UTC(),
	}))

	recent, err := repo.GetRecent(0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
