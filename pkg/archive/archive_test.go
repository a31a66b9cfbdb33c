package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/richard-senior/matchpredict/pkg/footballdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

var season = []footballdata.MatchRecord{
	{HomeTeam: "Wolves", AwayTeam: "Arsenal", Result: footballdata.Away},
	{HomeTeam: "Arsenal", AwayTeam: "Chelsea", Result: footballdata.Home},
	{HomeTeam: "Chelsea", AwayTeam: "Wolves", Result: footballdata.Draw},
}

func TestSaveAndLoadSeason(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t)

	require.NoError(t, a.SaveSeason(ctx, "premier-league", "2025/2026", season))

	got, err := a.LoadSeason(ctx, "E0", "2526")
	require.NoError(t, err)
	assert.Equal(t, season, got, "rows come back in file order")

	got, err = a.LoadSeason(ctx, "E0", "2425")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = a.LoadSeason(ctx, "E0", "last year")
	assert.Error(t, err)
}

func TestSaveSeasonReplaces(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t)

	require.NoError(t, a.SaveSeason(ctx, "E0", "2526", season))
	require.NoError(t, a.SaveSeason(ctx, "E0", "2526", season[:1]))

	got, err := a.LoadSeason(ctx, "E0", "2526")
	require.NoError(t, err)
	assert.Equal(t, season[:1], got)
}

func TestSeasons(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t)

	require.NoError(t, a.SaveSeason(ctx, "E0", "2425", season))
	require.NoError(t, a.SaveSeason(ctx, "SP1", "2526", season[:2]))
	require.NoError(t, a.SaveSeason(ctx, "E0", "2526", season[:1]))

	got, err := a.Seasons(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "E0", got[0].League)
	assert.Equal(t, "2526", got[0].Season)
	assert.Equal(t, 1, got[0].Matches)
	assert.Equal(t, "SP1", got[1].League)
	assert.Equal(t, 2, got[1].Matches)
	assert.Equal(t, "2425", got[2].Season)
	assert.False(t, got[2].StoredAt.IsZero())
}

func TestLoaderReadsArchive(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t)
	require.NoError(t, a.SaveSeason(ctx, "E0", "2526", season))

	src, err := footballdata.ArchiveSource("E0", "2025/2026")
	require.NoError(t, err)
	got, err := footballdata.NewLoader(footballdata.WithArchive(a)).Load(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, season, got)

	_, err = footballdata.NewLoader(footballdata.WithArchive(a)).Load(ctx, "archive://SP1/2526")
	assert.ErrorIs(t, err, footballdata.ErrDataUnavailable, "an empty season is unavailable data")
}

func TestOpenCreatesDatabaseDirectory(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "matchpredict", "archive.db")

	a, err := Open(ctx, DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, a.SaveSeason(ctx, "E0", "2526", season))
	require.NoError(t, a.Close())

	_, err = os.Stat(dsn)
	require.NoError(t, err)

	reopened, err := Open(ctx, DriverSQLite, dsn)
	require.NoError(t, err)
	defer reopened.Close()
	records, err := reopened.LoadSeason(ctx, "E0", "2526")
	require.NoError(t, err)
	assert.Equal(t, season, records)
}

func TestIsFilePath(t *testing.T) {
	assert.True(t, isFilePath("/tmp/matchpredict/archive.db"))
	assert.False(t, isFilePath(":memory:"))
	assert.False(t, isFilePath("file::memory:?cache=shared"))
	assert.False(t, isFilePath(""))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &Archive{driver: DriverPostgres}
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", pg.rebind("SELECT 1 WHERE a = ? AND b = ?"))

	lite := &Archive{driver: DriverSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestPersistableSQL(t *testing.T) {
	assert.Equal(t,
		"INSERT INTO matches (league, season, row_no, home_team, away_team, result, stored_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		insertSQL(storedMatch{}))
	assert.Equal(t,
		"SELECT league, season, row_no, home_team, away_team, result, stored_at FROM matches WHERE row_no = ?",
		selectSQL(&storedMatch{}, "WHERE row_no = ?"))

	m := storedMatch{League: "E0", RowNo: 3, Result: "H"}
	values := valuesOf(&m)
	assert.Equal(t, []any{"E0", "", 3, "", "", "H", int64(0)}, values)

	targets := scanTargets(&m)
	*(targets[1].(*string)) = "2526"
	assert.Equal(t, "2526", m.Season)
}
