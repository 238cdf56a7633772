package rebalancing

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingpkg "github.com/stavrou/ballast/internal/testing"
)

func TestRepositorySaveAndGetRecent(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())

	base := time.Unix(1700000000, 0).UTC()
	for i, id := range []string{"plan-a", "plan-b", "plan-c"} {
		require.NoError(t, repo.Save(RebalancePlan{
			PlanID:         id,
			PortfolioValue: 1000,
			Allocations: []Allocation{
				{Symbol: "AAPL", Weight: 0.5, Value: 500},
				{Symbol: "MSFT", Weight: 0.5, Value: 500},
			},
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	plans, err := repo.GetRecent(2)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "plan-c", plans[0].PlanID)
	assert.Equal(t, "plan-b", plans[1].PlanID)
	assert.Len(t, plans[0].Allocations, 2)
	assert.Equal(t, 500.0, plans[0].Allocations[0].Value)
}

func TestRepositorySaveWithResultReference(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())

	require.NoError(t, repo.Save(RebalancePlan{
		PlanID:         "with-result",
		PortfolioValue: 250,
		Allocations:    []Allocation{{Symbol: "VTI", Weight: 1, Value: 250}},
		ResultID:       "audit-123",
		CreatedAt:      time.Unix(1700000000, 0).UTC(),
	}))
	require.NoError(t, repo.Save(RebalancePlan{
		PlanID:         "without-result",
		PortfolioValue: 250,
		Allocations:    []Allocation{{Symbol: "VTI", Weight: 1, Value: 250}},
		CreatedAt:      time.Unix(1700000100, 0).UTC(),
	}))

	plans, err := repo.GetRecent(10)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Empty(t, plans[0].ResultID)
	assert.Equal(t, "audit-123", plans[1].ResultID)
}
