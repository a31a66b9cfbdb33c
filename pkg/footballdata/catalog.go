package footballdata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultCatalogPage lists the English divisions.
const DefaultCatalogPage = BaseURL + "/englandm.php"

// CatalogEntry is one downloadable league season linked from a football-data.co.uk page.
type CatalogEntry struct {
	League   string `json:"league"`
	Season   string `json:"season"`
	Division string `json:"division"`
	URL      string `json:"url"`
}

var csvLinkPattern = regexp.MustCompile(`mmz4281/(\d{4})/([A-Za-z0-9]+)\.csv$`)

// ParseCatalog extracts every season CSV link from an HTML page. Relative links are resolved against base.
// Entries are ordered newest season first, then by league code.
func ParseCatalog(r io.Reader, base *url.URL) ([]CatalogEntry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog page: %w", err)
	}

	seen := make(map[string]bool)
	var entries []CatalogEntry
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		m := csvLinkPattern.FindStringSubmatch(strings.TrimSpace(href))
		if m == nil {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := ref.String()
		if base != nil {
			abs = base.ResolveReference(ref).String()
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		entries = append(entries, CatalogEntry{
			League:   m[2],
			Season:   m[1],
			Division: strings.Join(strings.Fields(s.Text()), " "),
			URL:      abs,
		})
	})

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Season != entries[j].Season {
			return entries[i].Season > entries[j].Season
		}
		return entries[i].League < entries[j].League
	})
	return entries, nil
}

// Catalog downloads pageURL and lists the league seasons it links to.
func Catalog(ctx context.Context, f Fetcher, pageURL string) ([]CatalogEntry, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog page %q: %w", pageURL, err)
	}
	body, err := f.Get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog page: %w", err)
	}
	return ParseCatalog(bytes.NewReader(body), base)
}
