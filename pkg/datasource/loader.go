package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
)

// LoadFile parses a single football-data.co.uk CSV file
func LoadFile(path string) ([]*podds.Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	matches, err := ParseFootballDataCSV(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return matches, nil
}

// LoadDirectory parses every .csv file in dir oldest season first. Files named
// like 9900_E0.csv or 2425_E0.csv are ordered by the year the season starts,
// anything else follows them in name order.
// Files lacking a required column are skipped with a warning
func LoadDirectory(dir string) ([]*podds.Match, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, e.Name())
	}
	sortBySeason(files)

	var all []*podds.Match
	for _, name := range files {
		matches, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			var missing *ErrMissingColumns
			if errors.As(err, &missing) {
				logger.Warn("Skipping file", name, err)
				continue
			}
			return nil, err
		}
		all = append(all, matches...)
	}

	logger.Info("Loaded", len(all), "matches from", len(files), "files in", dir)
	return all, nil
}

// seasonStart reads the starting year from a season file name.
// football-data.co.uk codes begin at 9394, so two digit years from 90 are in the 1900s
func seasonStart(name string) (int, bool) {
	code, _, found := strings.Cut(name, "_")
	if !found || !seasonPattern.MatchString(code) {
		return 0, false
	}
	yy, _ := strconv.Atoi(code[:2])
	if yy >= 90 {
		return 1900 + yy, true
	}
	return 2000 + yy, true
}

func sortBySeason(files []string) {
	sort.SliceStable(files, func(i, j int) bool {
		yi, oki := seasonStart(files[i])
		yj, okj := seasonStart(files[j])
		switch {
		case oki && okj && yi != yj:
			return yi < yj
		case oki != okj:
			return oki
		}
		return files[i] < files[j]
	})
}

// LoadDataset loads a directory of CSV files into an immutable dataset
func LoadDataset(dir string) (*podds.Dataset, error) {
	matches, err := LoadDirectory(dir)
	if err != nil {
		return nil, err
	}
	d, err := podds.NewDataset(matches)
	if err != nil {
		return nil, fmt.Errorf("failed to build dataset from %s: %w", dir, err)
	}
	return d, nil
}
