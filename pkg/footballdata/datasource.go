package footballdata

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/richard-senior/matchpredict/internal/logger"
)

const (
	// BaseURL is the football-data.co.uk site root.
	BaseURL = "https://www.football-data.co.uk"

	DefaultLeague = "E0"
	DefaultSeason = "2025/2026"

	// ArchiveScheme prefixes sources that are read from the match archive, e.g. archive://E0/2526.
	ArchiveScheme = "archive://"

	ColumnHomeTeam = "HomeTeam"
	ColumnAwayTeam = "AwayTeam"
	ColumnResult   = "FTR"
)

// Leagues maps friendly names to football-data.co.uk division codes.
var Leagues = map[string]string{
	"premier-league": "E0",
	"championship":   "E1",
	"league-one":     "E2",
	"league-two":     "E3",
	"laliga":         "SP1",
	"bundesliga":     "D1",
	"serie-a":        "I1",
	"ligue-1":        "F1",
	"eredivisie":     "N1",
	"scottish-prem":  "SC0",
}

var (
	longSeasonPattern  = regexp.MustCompile(`^(\d{2})(\d{2})/(\d{2})(\d{2})$`)
	shortSeasonPattern = regexp.MustCompile(`^\d{4}$`)
	leaguePattern      = regexp.MustCompile(`^[A-Z]{1,3}\d?$`)
)

// Fetcher retrieves the body of a remote resource.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// SeasonReader returns the archived records of one league season.
type SeasonReader interface {
	LoadSeason(ctx context.Context, league, season string) ([]MatchRecord, error)
}

// SeasonCode converts "2025/2026" into the four digit code "2526" used in football-data URLs.
// A value that is already a four digit code is returned unchanged.
func SeasonCode(season string) (string, error) {
	season = strings.TrimSpace(season)
	if shortSeasonPattern.MatchString(season) {
		return season, nil
	}
	m := longSeasonPattern.FindStringSubmatch(season)
	if m == nil {
		return "", fmt.Errorf("season must be in the format 'yyyy/yyyy', got %q", season)
	}
	return m[2] + m[4], nil
}

// SourceURL builds the download URL of a league season.
func SourceURL(league, season string) (string, error) {
	code, err := ResolveLeague(league)
	if err != nil {
		return "", err
	}
	sc, err := SeasonCode(season)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/mmz4281/%s/%s.csv", BaseURL, sc, code), nil
}

// ResolveLeague accepts either a division code ("SP1") or a friendly name ("laliga").
func ResolveLeague(league string) (string, error) {
	league = strings.TrimSpace(league)
	if code, ok := Leagues[strings.ToLower(league)]; ok {
		return code, nil
	}
	if leaguePattern.MatchString(league) {
		return league, nil
	}
	return "", fmt.Errorf("unknown league %q", league)
}

// ArchiveSource builds an archive:// source for a league season.
func ArchiveSource(league, season string) (string, error) {
	code, err := ResolveLeague(league)
	if err != nil {
		return "", err
	}
	sc, err := SeasonCode(season)
	if err != nil {
		return "", err
	}
	return ArchiveScheme + code + "/" + sc, nil
}

// SeasonOfURL recovers the division code and season code from a football-data.co.uk
// download URL such as https://www.football-data.co.uk/mmz4281/2526/E0.csv.
func SeasonOfURL(source string) (league, season string, ok bool) {
	if !isRemote(source) {
		return "", "", false
	}
	u, err := url.Parse(source)
	if err != nil {
		return "", "", false
	}
	m := csvLinkPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return "", "", false
	}
	return m[2], m[1], true
}

func parseArchiveSource(source string) (league, season string, err error) {
	rest := strings.TrimPrefix(source, ArchiveScheme)
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("archive source must look like archive://<league>/<season>")
	}
	if league, err = ResolveLeague(parts[0]); err != nil {
		return "", "", err
	}
	if season, err = SeasonCode(parts[1]); err != nil {
		return "", "", err
	}
	return league, season, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// ParseCSV reads a football-data style CSV and keeps the HomeTeam, AwayTeam and FTR columns.
// Rows missing any of the three values, or carrying a result other than H, D or A, are dropped
// and counted.
func ParseCSV(r io.Reader) (records []MatchRecord, dropped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, 0, fmt.Errorf("file is empty")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse CSV header: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if _, seen := index[h]; !seen {
			index[h] = i
		}
	}
	var missing []string
	for _, col := range []string{ColumnHomeTeam, ColumnAwayTeam, ColumnResult} {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, 0, fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}

	field := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to parse CSV at line %d: %w", line, err)
		}
		rec := MatchRecord{
			HomeTeam: field(row, ColumnHomeTeam),
			AwayTeam: field(row, ColumnAwayTeam),
		}
		if code := field(row, ColumnResult); code != "" {
			if rec.Result, err = ParseResult(code); err != nil {
				logger.Warn("Dropping row with unrecognised result at line", line, code)
			}
		}
		if !rec.Complete() {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped, nil
}

// Loader turns a source reference into match records.
type Loader struct {
	fetcher Fetcher
	cache   Cache
	archive SeasonReader
}

// Option configures a Loader.
type Option func(*Loader)

// WithFetcher sets the client used for http(s) sources.
func WithFetcher(f Fetcher) Option {
	return func(l *Loader) { l.fetcher = f }
}

// WithCache sets the raw CSV cache consulted before remote fetches.
func WithCache(c Cache) Option {
	return func(l *Loader) { l.cache = c }
}

// WithArchive enables archive:// sources.
func WithArchive(a SeasonReader) Option {
	return func(l *Loader) { l.archive = a }
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{cache: NopCache{}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches the source and returns its complete match records.
// Every failure, including a file with no usable rows, is reported as a DataUnavailableError.
func (l *Loader) Load(ctx context.Context, source string) ([]MatchRecord, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, unavailable("<empty>", errors.New("no source configured"))
	}

	var records []MatchRecord
	if strings.HasPrefix(source, ArchiveScheme) {
		league, season, err := parseArchiveSource(source)
		if err != nil {
			return nil, unavailable(source, err)
		}
		if l.archive == nil {
			return nil, unavailable(source, errors.New("no match archive configured"))
		}
		records, err = l.archive.LoadSeason(ctx, league, season)
		if err != nil {
			return nil, unavailable(source, err)
		}
	} else {
		raw, err := l.Fetch(ctx, source)
		if err != nil {
			return nil, err
		}
		var dropped int
		records, dropped, err = ParseCSV(bytes.NewReader(raw))
		if err != nil {
			return nil, unavailable(source, err)
		}
		if dropped > 0 {
			logger.Info("Dropped incomplete rows from", source, dropped)
		}
	}

	if len(records) == 0 {
		return nil, unavailable(source, errors.New("no complete match rows"))
	}
	logger.Info("Loaded match records from", source, len(records))
	return records, nil
}

// Fetch returns the raw bytes of an http(s) URL or local file, consulting the cache for remote sources.
func (l *Loader) Fetch(ctx context.Context, source string) ([]byte, error) {
	if !isRemote(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, unavailable(source, err)
		}
		return data, nil
	}

	if data, ok, err := l.cache.Get(ctx, source); err != nil {
		logger.Warn("Cache read failed for", source, err)
	} else if ok {
		logger.Debug("Returning cached data for", source)
		return data, nil
	}

	if l.fetcher == nil {
		return nil, unavailable(source, errors.New("no HTTP client configured"))
	}
	logger.Info("Fetching match data from", source)
	data, err := l.fetcher.Get(ctx, source)
	if err != nil {
		return nil, unavailable(source, err)
	}
	if err := l.cache.Set(ctx, source, data); err != nil {
		logger.Warn("Failed to cache data for", source, err)
	}
	return data, nil
}
