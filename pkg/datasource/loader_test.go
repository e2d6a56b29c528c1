package datasource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadDirectoryOrdersFilesBySeason(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2425_E0.csv", "Div,HomeTeam,AwayTeam,FTHG,FTAG\nE0,Arsenal,Chelsea,2,2\n")
	writeFile(t, dir, "2324_E0.csv", "Div,HomeTeam,AwayTeam,FTHG,FTAG\nE0,Chelsea,Arsenal,1,0\nE0,Arsenal,Spurs,3,1\n")
	writeFile(t, dir, "notes.txt", "not a csv")
	writeFile(t, dir, "broken.csv", "Div,HomeTeam,AwayTeam\nE0,Arsenal,Chelsea\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0755))

	matches, err := LoadDirectory(dir)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "Chelsea", matches[0].HomeTeam)
	assert.Equal(t, "Spurs", matches[1].AwayTeam)
	assert.Equal(t, 2, matches[2].HomeGoals)
	assert.Equal(t, "2425_E0.csv", matches[2].Source)
}

func TestLoadDirectoryOrdersAcrossTheCentury(t *testing.T) {
	dir := t.TempDir()
	header := "Div,HomeTeam,AwayTeam,FTHG,FTAG\n"
	writeFile(t, dir, "2425_E0.csv", header+"E0,Arsenal,Chelsea,3,0\n")
	writeFile(t, dir, "0001_E0.csv", header+"E0,Arsenal,Chelsea,2,0\n")
	writeFile(t, dir, "9900_E0.csv", header+"E0,Arsenal,Chelsea,1,0\n")
	writeFile(t, dir, "cup.csv", header+"E0,Arsenal,Chelsea,4,0\n")

	matches, err := LoadDirectory(dir)
	require.NoError(t, err)

	var sources []string
	for _, m := range matches {
		sources = append(sources, m.Source)
	}
	assert.Equal(t, []string{"9900_E0.csv", "0001_E0.csv", "2425_E0.csv", "cup.csv"}, sources)
}

func TestSortBySeason(t *testing.T) {
	files := []string{"2425_E1.csv", "b.csv", "9394_E0.csv", "2425_E0.csv", "a.csv", "9900_E0.csv"}
	sortBySeason(files)
	assert.Equal(t, []string{"9394_E0.csv", "9900_E0.csv", "2425_E0.csv", "2425_E1.csv", "a.csv", "b.csv"}, files)

	year, ok := seasonStart("9900_E0.csv")
	assert.True(t, ok)
	assert.Equal(t, 1999, year)
	_, ok = seasonStart("E0.csv")
	assert.False(t, ok)
}

func TestLoadDirectoryMissing(t *testing.T) {
	_, err := LoadDirectory(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorContains(t, err, "failed to read data directory")
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2324_E0.csv", premierLeagueCSV)

	d, err := LoadDataset(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())
	assert.True(t, d.HasTeam("man city"))

	empty := t.TempDir()
	_, err = LoadDataset(empty)
	assert.Error(t, err)
}
