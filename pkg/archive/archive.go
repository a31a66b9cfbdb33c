// Package archive stores downloaded league seasons in SQL so that a model can be
// retrained without reaching football-data.co.uk again.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/pkg/footballdata"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Archive is a SQL backed store of league seasons. It satisfies footballdata.SeasonReader.
type Archive struct {
	db     *sql.DB
	driver string
}

// SeasonSummary describes one archived league season.
type SeasonSummary struct {
	League   string    `json:"league"`
	Season   string    `json:"season"`
	Matches  int       `json:"matches"`
	StoredAt time.Time `json:"storedAt"`
}

type storedMatch struct {
	League   string `column:"league"`
	Season   string `column:"season"`
	RowNo    int    `column:"row_no"`
	HomeTeam string `column:"home_team"`
	AwayTeam string `column:"away_team"`
	Result   string `column:"result"`
	StoredAt int64  `column:"stored_at"`
}

func (storedMatch) TableName() string { return "matches" }

// Open connects to the database and applies any pending migrations.
// For sqlite the dsn is a file path or ":memory:".
func Open(ctx context.Context, driver, dsn string) (*Archive, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported archive driver %q", driver)
	}
	if driver == DriverSQLite && isFilePath(dsn) {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if driver == DriverSQLite {
		// one connection, otherwise every :memory: connection is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to archive: %w", err)
	}
	if err := migrateUp(db, driver); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("Opened match archive", driver)
	return &Archive{db: db, driver: driver}, nil
}

// isFilePath reports whether a sqlite dsn names a plain file rather than
// an in-memory database or a file: URI.
func isFilePath(dsn string) bool {
	return dsn != "" && !strings.Contains(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:")
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// rebind rewrites ? placeholders as $1, $2... for postgres.
func (a *Archive) rebind(query string) string {
	if a.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SaveSeason replaces the archived records of a league season.
func (a *Archive) SaveSeason(ctx context.Context, league, season string, records []footballdata.MatchRecord) error {
	league, season, err := normalise(league, season)
	if err != nil {
		return err
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	del := a.rebind("DELETE FROM matches WHERE league = ? AND season = ?")
	if _, err := tx.ExecContext(ctx, del, league, season); err != nil {
		return fmt.Errorf("failed to clear season %s/%s: %w", league, season, err)
	}

	stmt, err := tx.PrepareContext(ctx, a.rebind(insertSQL(storedMatch{})))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for i, r := range records {
		if !r.Complete() {
			continue
		}
		row := storedMatch{
			League:   league,
			Season:   season,
			RowNo:    i,
			HomeTeam: r.HomeTeam,
			AwayTeam: r.AwayTeam,
			Result:   r.Result.Code(),
			StoredAt: now,
		}
		if _, err := stmt.ExecContext(ctx, valuesOf(row)...); err != nil {
			return fmt.Errorf("failed to store row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit season %s/%s: %w", league, season, err)
	}
	logger.Info("Archived", len(records), "matches for", league, season)
	return nil
}

// LoadSeason returns the archived records of a league season in their original order.
func (a *Archive) LoadSeason(ctx context.Context, league, season string) ([]footballdata.MatchRecord, error) {
	league, season, err := normalise(league, season)
	if err != nil {
		return nil, err
	}
	q := a.rebind(selectSQL(storedMatch{}, "WHERE league = ? AND season = ? ORDER BY row_no"))
	rows, err := a.db.QueryContext(ctx, q, league, season)
	if err != nil {
		return nil, fmt.Errorf("failed to query season %s/%s: %w", league, season, err)
	}
	defer rows.Close()

	var out []footballdata.MatchRecord
	for rows.Next() {
		var m storedMatch
		if err := rows.Scan(scanTargets(&m)...); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		result, err := footballdata.ParseResult(m.Result)
		if err != nil {
			return nil, fmt.Errorf("row %d of %s/%s: %w", m.RowNo, league, season, err)
		}
		out = append(out, footballdata.MatchRecord{HomeTeam: m.HomeTeam, AwayTeam: m.AwayTeam, Result: result})
	}
	return out, rows.Err()
}

// Seasons lists every archived league season, newest season first.
func (a *Archive) Seasons(ctx context.Context) ([]SeasonSummary, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT league, season, COUNT(*), MAX(stored_at)
		FROM matches GROUP BY league, season ORDER BY season DESC, league`)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	defer rows.Close()

	var out []SeasonSummary
	for rows.Next() {
		var s SeasonSummary
		var stored int64
		if err := rows.Scan(&s.League, &s.Season, &s.Matches, &stored); err != nil {
			return nil, fmt.Errorf("failed to scan season: %w", err)
		}
		s.StoredAt = time.Unix(stored, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

func normalise(league, season string) (string, string, error) {
	code, err := footballdata.ResolveLeague(league)
	if err != nil {
		return "", "", err
	}
	sc, err := footballdata.SeasonCode(season)
	if err != nil {
		return "", "", err
	}
	return code, sc, nil
}
