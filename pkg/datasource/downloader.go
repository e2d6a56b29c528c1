package datasource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/richard-senior/podds/internal/logger"
)

// DefaultBaseURL is where football-data.co.uk publishes one CSV per season and division
const DefaultBaseURL = "https://www.football-data.co.uk/mmz4281"

var (
	seasonPattern   = regexp.MustCompile(`^\d{4}$`)
	divisionPattern = regexp.MustCompile(`^[A-Z]{1,3}\d?$`)
)

// Getter fetches a URL, satisfied by *transport.HTTPClient
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Downloader fetches season files into a local directory that LoadDirectory can read
type Downloader struct {
	client  Getter
	baseURL string
	dir     string
}

// NewDownloader creates a downloader writing into dir. An empty baseURL uses DefaultBaseURL
func NewDownloader(client Getter, baseURL, dir string) *Downloader {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Downloader{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		dir:     dir,
	}
}

// SeasonCode converts "2024/2025" into the football-data.co.uk form "2425".
// Codes already in that form are returned unchanged
func SeasonCode(season string) (string, error) {
	season = strings.TrimSpace(season)
	if seasonPattern.MatchString(season) {
		return season, nil
	}
	if len(season) == 9 && season[4] == '/' {
		code := season[2:4] + season[7:9]
		if seasonPattern.MatchString(code) {
			return code, nil
		}
	}
	return "", fmt.Errorf("season must be 'yyyy/yyyy' or 'yyyy', got: %q", season)
}

// URL returns the download location of a season file
func (d *Downloader) URL(season, division string) string {
	return fmt.Sprintf("%s/%s/%s.csv", d.baseURL, season, division)
}

// Path returns the cache file of a season file. Names sort oldest season first
func (d *Downloader) Path(season, division string) string {
	return filepath.Join(d.dir, fmt.Sprintf("%s_%s.csv", season, division))
}

// Fetch downloads one season file unless it is already cached, or refresh is set.
// The current season is still being played so callers pass refresh for it
func (d *Downloader) Fetch(ctx context.Context, season, division string, refresh bool) (string, error) {
	code, err := SeasonCode(season)
	if err != nil {
		return "", err
	}
	division = strings.ToUpper(strings.TrimSpace(division))
	if !divisionPattern.MatchString(division) {
		return "", fmt.Errorf("invalid division code: %q", division)
	}

	path := d.Path(code, division)
	if !refresh {
		if _, err := os.Stat(path); err == nil {
			logger.Debug("Using cached file", path)
			return path, nil
		}
	}

	url := d.URL(code, division)
	logger.Info("Fetching historical data from", url)
	data, err := d.client.Get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch data from external source: %w", err)
	}

	if _, err := ParseFootballDataCSV(strings.NewReader(string(data)), url); err != nil {
		return "", fmt.Errorf("downloaded file %s is not usable: %w", url, err)
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to move cache file into place: %w", err)
	}
	logger.Info("Cached data to", path)
	return path, nil
}

// FetchAll downloads every season and division combination, returning the files written or reused.
// The last season listed is treated as current and always refreshed
func (d *Downloader) FetchAll(ctx context.Context, seasons, divisions []string) ([]string, error) {
	var paths []string
	for i, season := range seasons {
		current := i == len(seasons)-1
		for _, division := range divisions {
			if err := ctx.Err(); err != nil {
				return paths, err
			}
			path, err := d.Fetch(ctx, season, division, current)
			if err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}
