package datasource

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/richard-senior/podds/pkg/podds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTripPreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	matches, err := ParseFootballDataCSV(strings.NewReader(premierLeagueCSV), "2324_E0.csv")
	require.NoError(t, err)
	// saved out of key order, so any ordering by id would show
	n, err := s.SaveMatches(ctx, []*podds.Match{matches[2], matches[0], matches[1]})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	loaded, err := s.Matches(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, "Brighton", loaded[0].HomeTeam)
	assert.Equal(t, "Burnley", loaded[1].HomeTeam)
	assert.Equal(t, "Arsenal", loaded[2].HomeTeam)

	burnley := loaded[1]
	assert.Equal(t, matches[0].ID, burnley.ID)
	assert.Equal(t, 3, burnley.AwayGoals)
	assert.Equal(t, 6, burnley.HomeCorners)
	assert.Equal(t, 8.50, burnley.HomeOdds)
	assert.Equal(t, 2.35, burnley.Under25Odds)
	assert.True(t, matches[0].Date.Equal(burnley.Date))
	assert.Equal(t, -1.0, loaded[0].Over25Odds)
}

func TestStoreReimportUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first := podds.NewMatch()
	first.Div, first.HomeTeam, first.AwayTeam = "E0", "Arsenal", "Chelsea"
	first.Date = time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)
	first.HomeGoals, first.AwayGoals = 1, 0

	second := podds.NewMatch()
	second.Div, second.HomeTeam, second.AwayTeam = "E0", "Chelsea", "Arsenal"
	second.Date = time.Date(2024, 2, 1, 15, 0, 0, 0, time.UTC)
	second.HomeGoals, second.AwayGoals = 2, 2

	_, err := s.SaveMatches(ctx, []*podds.Match{first, second})
	require.NoError(t, err)

	corrected := *first
	corrected.HomeGoals = 3
	require.NoError(t, s.Save(ctx, &corrected))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	loaded, err := s.Matches(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded[0].HomeGoals, "update keeps the original position")
	assert.Equal(t, "Chelsea", loaded[1].HomeTeam)

	found := &podds.Match{}
	require.NoError(t, s.FindByPrimaryKey(ctx, found, first.GetPrimaryKey()))
	assert.Equal(t, 3, found.HomeGoals)

	exists, err := s.Exists(ctx, second)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, second))
	exists, err = s.Exists(ctx, second)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Error(t, s.FindByPrimaryKey(ctx, &podds.Match{}, map[string]any{"id": "missing"}))
}

func TestStoreQueries(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	matches, err := ParseFootballDataCSV(strings.NewReader(premierLeagueCSV), "2324_E0.csv")
	require.NoError(t, err)
	_, err = s.SaveMatches(ctx, matches)
	require.NoError(t, err)

	arsenal, err := s.MatchesWhere(ctx, `"homeTeam" = ?`, "Arsenal")
	require.NoError(t, err)
	require.Len(t, arsenal, 1)
	assert.Equal(t, "Nott'm Forest", arsenal[0].AwayTeam)

	divs, err := s.Divisions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"E0"}, divs)

	d, err := s.LoadDataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())
	assert.True(t, d.HasColumn(podds.ColumnCorners))
}

func TestStoreRejectsMatchWithoutTeams(t *testing.T) {
	s := openTestStore(t)
	_, err := s.SaveMatches(context.Background(), []*podds.Match{podds.NewMatch()})
	assert.Error(t, err)

	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count, "failed import is rolled back")
}

func TestStoreEmptyDataset(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LoadDataset(context.Background())
	assert.ErrorIs(t, err, podds.ErrEmptyDataset)
}

func TestStoreOnDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "podds.db")

	s, err := OpenStore(ctx, path)
	require.NoError(t, err)
	m := podds.NewMatch()
	m.HomeTeam, m.AwayTeam, m.HomeGoals, m.AwayGoals = "Leeds", "Hull", 1, 1
	require.NoError(t, s.Save(ctx, m))
	require.NoError(t, s.Close())

	s, err = OpenStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGenerateCreateTableSQL(t *testing.T) {
	sql := generateCreateTableSQL(&podds.Match{}, "match")
	assert.True(t, strings.HasPrefix(sql, `CREATE TABLE IF NOT EXISTS "match" (`))
	assert.Contains(t, sql, `"homeGoals" INTEGER DEFAULT -1`)
	assert.Contains(t, sql, `PRIMARY KEY ("id")`)

	indexes := generateIndexSQL(&podds.Match{}, "match")
	assert.Contains(t, indexes, `CREATE INDEX IF NOT EXISTS "idx_match_homeTeam" ON "match"("homeTeam")`)
	for _, q := range indexes {
		assert.NotContains(t, q, `("id")`, "the key is already indexed")
	}
}
