package repository

import (
	"context"
	"testing"
	"time"

	"skywager/domain/entities"
	"skywager/repository/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleableRepository_CreateAndGetByID(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewSettleableRepository(testDB.DB)
	userID := uuid.New()
	target := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)

	t.Run("single", func(t *testing.T) {
		wager := testutil.CreateTestSingle(userID, "Madrid", "temperature", "18-22", target)
		require.NoError(t, repo.Create(ctx, wager))
		require.NotZero(t, wager.ID)

		saved, err := repo.GetByID(ctx, entities.WagerKindSingle, wager.ID)
		require.NoError(t, err)
		require.NotNil(t, saved)

		assert.Equal(t, userID, saved.UserID)
		assert.Equal(t, "Madrid", saved.City)
		assert.InDelta(t, 2.5, saved.Odds, 1e-9)
		assert.Equal(t, entities.WagerResultPending, saved.Result)
		assert.True(t, saved.TargetDate.Equal(target))
		require.Len(t, saved.Legs, 1)
		assert.Zero(t, saved.Legs[0].ID, "singles carry a synthesized leg")
		assert.Equal(t, "temperature", saved.Legs[0].Kind)
		assert.Equal(t, "18-22", saved.Legs[0].Value)
		assert.Equal(t, "Madrid", saved.Legs[0].City)
	})

	t.Run("parlay", func(t *testing.T) {
		wager := testutil.CreateTestParlay(userID, target, "London", "Paris", "Rome")
		require.NoError(t, repo.Create(ctx, wager))

		saved, err := repo.GetByID(ctx, entities.WagerKindParlay, wager.ID)
		require.NoError(t, err)
		require.Len(t, saved.Legs, 3)
		for i, city := range []string{"London", "Paris", "Rome"} {
			assert.Equal(t, city, saved.Legs[i].City)
			assert.Equal(t, i, saved.Legs[i].Order)
			assert.NotZero(t, saved.Legs[i].ID)
		}
		assert.Empty(t, saved.City)
	})

	t.Run("combined", func(t *testing.T) {
		wager := testutil.CreateTestCombined(userID, "Berlin", target)
		require.NoError(t, repo.Create(ctx, wager))

		saved, err := repo.GetByID(ctx, entities.WagerKindCombined, wager.ID)
		require.NoError(t, err)
		assert.Equal(t, "Berlin", saved.City)
		assert.Equal(t, entities.CurrencyReal, saved.Currency)
		require.Len(t, saved.Legs, 2)
		assert.Empty(t, saved.Legs[0].City)
		assert.Equal(t, "Berlin", saved.LegCity(saved.Legs[0]))
		require.NotNil(t, saved.Legs[0].TimeSlot)
		assert.Equal(t, entities.TimeSlotEvening, *saved.Legs[0].TimeSlot)
		assert.Nil(t, saved.Legs[1].TimeSlot)
	})

	t.Run("missing", func(t *testing.T) {
		saved, err := repo.GetByID(ctx, entities.WagerKindParlay, 999999)
		require.NoError(t, err)
		assert.Nil(t, saved)
	})
}

func TestSettleableRepository_GetDue(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewSettleableRepository(testDB.DB)
	userID := uuid.New()
	now := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)

	// Single due by target date only
	byTarget := testutil.CreateTestSingle(userID, "Madrid", "rain", "yes", now.Add(-time.Hour))
	byTarget.ExpiresAt = now.Add(time.Hour)
	require.NoError(t, repo.Create(ctx, byTarget))

	// Single due by expiry only
	byExpiry := testutil.CreateTestSingle(userID, "Oslo", "rain", "no", now.Add(time.Hour))
	byExpiry.ExpiresAt = now.Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, byExpiry))

	notDue := testutil.CreateTestSingle(userID, "Lima", "rain", "no", now.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, notDue))

	// Parlay whose target passed but expiry did not stays pending
	parlay := testutil.CreateTestParlay(userID, now.Add(time.Hour), "London", "Paris")
	parlay.TargetDate = now.Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, parlay))

	// Combined bet whose target passed is due regardless of expiry
	combined := testutil.CreateTestCombined(userID, "Berlin", now.Add(-time.Minute))
	combined.ExpiresAt = now.Add(time.Hour)
	require.NoError(t, repo.Create(ctx, combined))

	singles, err := repo.GetDue(ctx, entities.WagerKindSingle, now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{byTarget.ID, byExpiry.ID}, ids(singles))

	parlays, err := repo.GetDue(ctx, entities.WagerKindParlay, now)
	require.NoError(t, err)
	assert.Empty(t, parlays)

	combinedDue, err := repo.GetDue(ctx, entities.WagerKindCombined, now)
	require.NoError(t, err)
	require.Len(t, combinedDue, 1)
	assert.Len(t, combinedDue[0].Legs, 2)

	// Cashed out wagers drop out of settlement
	ok, err := repo.MarkCashedOut(ctx, entities.WagerKindSingle, byTarget.ID, 120, now)
	require.NoError(t, err)
	require.True(t, ok)

	singles, err = repo.GetDue(ctx, entities.WagerKindSingle, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{byExpiry.ID}, ids(singles))
}

func TestSettleableRepository_MarkSettledIsCompareAndSet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewSettleableRepository(testDB.DB)
	now := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)

	wager := testutil.CreateTestParlay(uuid.New(), now, "London", "Paris")
	require.NoError(t, repo.Create(ctx, wager))

	ok, err := repo.MarkSettled(ctx, entities.WagerKindParlay, wager.ID, entities.WagerResultLoss, 0, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkSettled(ctx, entities.WagerKindParlay, wager.ID, entities.WagerResultWin, 500, now)
	require.NoError(t, err)
	assert.False(t, ok, "a settled wager cannot be settled again")

	ok, err = repo.MarkCashedOut(ctx, entities.WagerKindParlay, wager.ID, 10, now)
	require.NoError(t, err)
	assert.False(t, ok, "a settled wager cannot be cashed out")

	saved, err := repo.GetByID(ctx, entities.WagerKindParlay, wager.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.WagerResultLoss, saved.Result)
	assert.Zero(t, saved.Payout)
	require.NotNil(t, saved.SettledAt)
}

func TestSettleableRepository_RecordLegResults(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewSettleableRepository(testDB.DB)
	now := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)

	wager := testutil.CreateTestParlay(uuid.New(), now, "London", "Paris", "Rome")
	require.NoError(t, repo.Create(ctx, wager))

	wager.Legs[0].Result = entities.WagerResultWin
	wager.Legs[1].Result = entities.WagerResultLoss
	wager.Legs[2].Result = entities.WagerResultWin
	require.NoError(t, repo.RecordLegResults(ctx, wager))

	saved, err := repo.GetByID(ctx, entities.WagerKindParlay, wager.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.WagerResultWin, saved.Legs[0].Result)
	assert.Equal(t, entities.WagerResultLoss, saved.Legs[1].Result)
	assert.Equal(t, entities.WagerResultWin, saved.Legs[2].Result)
}

func TestSettleableRepository_GetPendingByUser(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewSettleableRepository(testDB.DB)
	now := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)
	userID := uuid.New()

	first := testutil.CreateTestSingle(userID, "Madrid", "rain", "yes", now)
	require.NoError(t, repo.Create(ctx, first))
	second := testutil.CreateTestSingle(userID, "Oslo", "rain", "yes", now)
	require.NoError(t, repo.Create(ctx, second))
	other := testutil.CreateTestSingle(uuid.New(), "Lima", "rain", "yes", now)
	require.NoError(t, repo.Create(ctx, other))

	_, err := repo.MarkSettled(ctx, entities.WagerKindSingle, second.ID, entities.WagerResultWin, 250, now)
	require.NoError(t, err)

	pending, err := repo.GetPendingByUser(ctx, entities.WagerKindSingle, userID)
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID}, ids(pending))
}

func ids(wagers []*entities.Settleable) []int64 {
	out := make([]int64, len(wagers))
	for i, w := range wagers {
		out[i] = w.ID
	}
	return out
}
