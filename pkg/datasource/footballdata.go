package datasource

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
)

// ////////////////////////////////////////////////////////////////////
// Football-Data.co.uk
// ////////////////////////////////////////////////////////////////////

// RequiredColumns must all be present in a football-data.co.uk file for it to be usable
var RequiredColumns = []string{"HomeTeam", "AwayTeam", "FTHG", "FTAG"}

// bookmakers whose 1X2 prices are averaged when no market average is published
var bookies = []string{"B365", "BF", "BS", "BW", "GB", "IW", "LB", "PS", "SO", "SB", "SJ", "SY", "VC", "WH"}

// ErrMissingColumns is returned when a file lacks one of RequiredColumns
type ErrMissingColumns struct {
	Columns []string
}

func (e *ErrMissingColumns) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// ParseFootballDataCSV reads a football-data.co.uk CSV, one Match per usable row.
// Rows without teams or a full time score are skipped with a warning; source is recorded on each match
func ParseFootballDataCSV(r io.Reader, source string) ([]*podds.Match, error) {
	reader := csv.NewReader(r)
	// trailing columns vary between seasons and some rows are ragged
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err == io.EOF {
		return []*podds.Match{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	// Clean up the header row, the first cell often carries a BOM
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
		if headers[0] == "" || strings.Contains(headers[0], "Div") {
			headers[0] = "Div"
		}
	}

	if missing := missingColumns(headers); len(missing) > 0 {
		return nil, &ErrMissingColumns{Columns: missing}
	}

	var matches []*podds.Match
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			logger.Warn("Skipping unreadable row", line, err)
			continue
		}

		row := make(map[string]string, len(headers))
		for j, value := range record {
			if j < len(headers) {
				row[headers[j]] = strings.TrimSpace(value)
			}
		}

		// Blank trailing lines are common
		if row["HomeTeam"] == "" && row["AwayTeam"] == "" {
			continue
		}

		match, err := ParseFootballDataRow(row)
		if err != nil {
			logger.Warn("Skipping row", line, "of", source, err)
			continue
		}
		match.Source = source
		matches = append(matches, match)
	}

	logger.Debug("Parsed", len(matches), "matches from", source)
	return matches, nil
}

// ParseFootballDataRow converts a header-keyed CSV row into a Match
func ParseFootballDataRow(row map[string]string) (*podds.Match, error) {
	home := strings.TrimSpace(row["HomeTeam"])
	away := strings.TrimSpace(row["AwayTeam"])
	if home == "" || away == "" {
		return nil, fmt.Errorf("missing team names")
	}

	homeGoals, err := strconv.Atoi(row["FTHG"])
	if err != nil || homeGoals < 0 {
		return nil, fmt.Errorf("invalid home goals %q", row["FTHG"])
	}
	awayGoals, err := strconv.Atoi(row["FTAG"])
	if err != nil || awayGoals < 0 {
		return nil, fmt.Errorf("invalid away goals %q", row["FTAG"])
	}

	match := podds.NewMatch()
	match.Div = row["Div"]
	match.HomeTeam = home
	match.AwayTeam = away
	match.HomeGoals = homeGoals
	match.AwayGoals = awayGoals

	if row["Date"] != "" {
		if t, err := ParseFootballDataDateTime(row["Date"], row["Time"]); err == nil {
			match.Date = t
		} else {
			logger.Debug("Unparseable date for", home, "v", away, err)
		}
	}

	match.HalfTimeHomeGoals = intField(row, "HTHG")
	match.HalfTimeAwayGoals = intField(row, "HTAG")
	match.HomeCorners = intField(row, "HC")
	match.AwayCorners = intField(row, "AC")
	match.HomeYellowCards = intField(row, "HY")
	match.AwayYellowCards = intField(row, "AY")
	match.HomeRedCards = intField(row, "HR")
	match.AwayRedCards = intField(row, "AR")
	match.HomeFouls = intField(row, "HF")
	match.AwayFouls = intField(row, "AF")

	match.HomeOdds, match.DrawOdds, match.AwayOdds = AverageOdds(row)
	match.Over25Odds, match.Under25Odds = TotalGoalsOdds(row)

	return match, nil
}

// ParseFootballDataDateTime parses "dd/mm/yyyy" or "dd/mm/yy" with an optional "HH:MM" kick off.
// Times are UK local and returned in UTC; a missing time means 15:00
func ParseFootballDataDateTime(date, kickOff string) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, fmt.Errorf("no date given")
	}
	kickOff = strings.TrimSpace(kickOff)
	if kickOff == "" {
		kickOff = "15:00"
	}
	dtStr := date + " " + kickOff

	var parsed time.Time
	var parseErr error
	for _, format := range []string{"02/01/2006 15:04", "02/01/06 15:04"} {
		if parsed, parseErr = time.Parse(format, dtStr); parseErr == nil {
			break
		}
	}
	if parseErr != nil {
		return time.Time{}, fmt.Errorf("could not parse date from %s: %w", dtStr, parseErr)
	}

	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		return parsed.UTC(), nil
	}
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, loc).UTC(), nil
}

// AverageOdds returns the market average 1X2 prices, (-1, -1, -1) when the row has none.
// Published averages (closing, then pre-match, then the older Betbrain columns) win over
// an average computed from individual bookmakers
func AverageOdds(row map[string]string) (float64, float64, float64) {
	for _, prefix := range []string{"AvgC", "Avg", "BbAv"} {
		if h, d, a, ok := oddsTriple(row, prefix); ok {
			return h, d, a
		}
	}

	var homeTotal, drawTotal, awayTotal float64
	var count int
	for _, suffix := range []string{"C", ""} {
		for _, bookie := range bookies {
			if h, d, a, ok := oddsTriple(row, bookie+suffix); ok {
				homeTotal += h
				drawTotal += d
				awayTotal += a
				count++
			}
		}
		if count > 0 {
			n := float64(count)
			return round2(homeTotal / n), round2(drawTotal / n), round2(awayTotal / n)
		}
	}
	return -1, -1, -1
}

// TotalGoalsOdds returns the over/under 2.5 goals prices, (-1, -1) when the row has none
func TotalGoalsOdds(row map[string]string) (float64, float64) {
	for _, prefix := range []string{"Avg", "BbAv", "B365"} {
		over, errOver := floatField(row, prefix+">2.5")
		under, errUnder := floatField(row, prefix+"<2.5")
		if errOver == nil && errUnder == nil {
			return over, under
		}
	}
	return -1, -1
}

// FieldIsBlank reports whether a field is missing, empty or holds the -1 absence marker
func FieldIsBlank(field string, row map[string]string) bool {
	value, ok := row[field]
	if !ok {
		return true
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return true
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && f == -1 {
		return true
	}
	return false
}

func missingColumns(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	var missing []string
	for _, c := range RequiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

func oddsTriple(row map[string]string, prefix string) (float64, float64, float64, bool) {
	h, err := floatField(row, prefix+"H")
	if err != nil {
		return 0, 0, 0, false
	}
	d, err := floatField(row, prefix+"D")
	if err != nil {
		return 0, 0, 0, false
	}
	a, err := floatField(row, prefix+"A")
	if err != nil {
		return 0, 0, 0, false
	}
	return h, d, a, true
}

// floatField parses a positive price
func floatField(row map[string]string, field string) (float64, error) {
	if FieldIsBlank(field, row) {
		return 0, fmt.Errorf("%s is blank", field)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[field]), 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s is not a valid price: %v", field, v)
	}
	return v, nil
}

// intField parses a non-negative count, -1 when absent or malformed
func intField(row map[string]string, field string) int {
	if FieldIsBlank(field, row) {
		return -1
	}
	v, err := strconv.Atoi(strings.TrimSpace(row[field]))
	if err != nil || v < 0 {
		return -1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
