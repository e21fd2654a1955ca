package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/storage/postgres"
	"github.com/cory-johannsen/realm/internal/testutil"
)

func uniqueClearing(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func makeSummary(clearing string, ended time.Time) combat.Summary {
	return combat.Summary{
		ID:         uuid.NewString(),
		ClearingID: clearing,
		Rounds:     4,
		Deaths:     []string{"Goblin 1", "Goblin 2"},
		Fled:       []string{"Amazon"},
		Spoils: map[string]combat.Spoils{
			"hero-1": {Fame: 2, Notoriety: 4, Gold: 1},
			"hero-2": {Fame: 1, Notoriety: 2},
		},
		StartedAt: ended.Add(-time.Minute),
		EndedAt:   ended,
	}
}

func TestEncounterRepository_RecordAndGet(t *testing.T) {
	repo := postgres.NewEncounterRepository(testutil.NewPool(t))
	ctx := context.Background()

	want := makeSummary(uniqueClearing("glade"), time.Now().UTC().Truncate(time.Millisecond))
	require.NoError(t, repo.Record(ctx, want))

	got, err := repo.Get(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.ClearingID, got.ClearingID)
	assert.Equal(t, want.Rounds, got.Rounds)
	assert.Equal(t, want.Deaths, got.Deaths)
	assert.Equal(t, want.Fled, got.Fled)
	assert.Equal(t, want.Spoils, got.Spoils)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	assert.True(t, want.EndedAt.Equal(got.EndedAt))
}

func TestEncounterRepository_RecordWithoutSpoils(t *testing.T) {
	repo := postgres.NewEncounterRepository(testutil.NewPool(t))
	ctx := context.Background()

	sum := combat.Summary{
		ID:         uuid.NewString(),
		ClearingID: uniqueClearing("cave"),
		Rounds:     2,
		StartedAt:  time.Now().UTC(),
		EndedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Record(ctx, sum))

	got, err := repo.Get(ctx, sum.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Deaths)
	assert.Empty(t, got.Fled)
	assert.Empty(t, got.Spoils)
}

func TestEncounterRepository_DuplicateID(t *testing.T) {
	repo := postgres.NewEncounterRepository(testutil.NewPool(t))
	ctx := context.Background()

	sum := makeSummary(uniqueClearing("dup"), time.Now().UTC())
	require.NoError(t, repo.Record(ctx, sum))
	assert.ErrorIs(t, repo.Record(ctx, sum), postgres.ErrEncounterExists)
}

func TestEncounterRepository_GetNotFound(t *testing.T) {
	repo := postgres.NewEncounterRepository(testutil.NewPool(t))
	_, err := repo.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, postgres.ErrEncounterNotFound)
}

func TestEncounterRepository_ListByClearing(t *testing.T) {
	repo := postgres.NewEncounterRepository(testutil.NewPool(t))
	ctx := context.Background()
	clearing := uniqueClearing("ruins")
	base := time.Now().UTC().Truncate(time.Second)

	older := makeSummary(clearing, base.Add(-time.Hour))
	newer := makeSummary(clearing, base)
	other := makeSummary(uniqueClearing("elsewhere"), base)
	for _, s := range []combat.Summary{older, newer, other} {
		require.NoError(t, repo.Record(ctx, s))
	}

	list, err := repo.ListByClearing(ctx, clearing, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
	assert.Equal(t, older.Spoils, list[1].Spoils)

	list, err = repo.ListByClearing(ctx, clearing, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, newer.ID, list[0].ID)

	list, err = repo.ListByClearing(ctx, uniqueClearing("empty"), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// Property: whatever spoils are recorded are read back unchanged.
func TestProperty_EncounterSpoilsRoundTrip(t *testing.T) {
	repo := postgres.NewEncounterRepository(testutil.NewPool(t))
	ctx := context.Background()
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 4).Draw(rt, "characters")
		spoils := make(map[string]combat.Spoils, n)
		for i := 0; i < n; i++ {
			spoils[fmt.Sprintf("c%d", i)] = combat.Spoils{
				Fame:      rapid.IntRange(0, 50).Draw(rt, "fame"),
				Notoriety: rapid.IntRange(0, 50).Draw(rt, "notoriety"),
				Gold:      rapid.IntRange(0, 50).Draw(rt, "gold"),
			}
		}
		sum := makeSummary(uniqueClearing("prop"), time.Now().UTC())
		sum.Spoils = spoils
		require.NoError(rt, repo.Record(ctx, sum))
		got, err := repo.Get(ctx, sum.ID)
		require.NoError(rt, err)
		assert.Equal(rt, spoils, got.Spoils)
	})
}

func TestEncounterRepository_IsRecorder(t *testing.T) {
	var _ combat.Recorder = postgres.NewEncounterRepository(nil)
}
