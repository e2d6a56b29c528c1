package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// LevenshteinDistance calculates the edit distance between two strings, rune by rune
func LevenshteinDistance(s1, s2 string) int {
	a, b := []rune(s1), []rune(s2)
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// two rolling rows of the distance matrix
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// FuzzyMatchScore returns a similarity between 0.0 and 1.0, ignoring case and surrounding space.
// A name contained in the other ("Man Utd" in "Man Utd FC") scores by how much of the longer it covers
func FuzzyMatchScore(str1, str2 string) float64 {
	a := strings.ToLower(strings.TrimSpace(str1))
	b := strings.ToLower(strings.TrimSpace(str2))

	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	score := 1.0 - float64(LevenshteinDistance(a, b))/float64(maxLen)
	if a != "" && b != "" && (strings.Contains(a, b) || strings.Contains(b, a)) {
		minLen := min(len([]rune(a)), len([]rune(b)))
		score = math.Max(score, 0.5+0.5*float64(minLen)/float64(maxLen))
	}
	return score
}

// ClosestMatch returns the candidate most similar to name, or "" when none scores at least threshold.
// Ties go to the earlier candidate
func ClosestMatch(name string, candidates []string, threshold float64) (string, float64) {
	best, bestScore := "", -1.0
	for _, c := range candidates {
		if s := FuzzyMatchScore(name, c); s > bestScore {
			best, bestScore = c, s
		}
	}
	if bestScore < threshold {
		return "", bestScore
	}
	return best, bestScore
}

// GetAsString converts various types to string
// If s is a string, return it
// If s is any form of number, format it and return it
func GetAsString(s any) (string, error) {
	switch v := s.(type) {
	case nil:
		return "", fmt.Errorf("cannot convert nil to string")
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// GetAsInteger converts JSON numbers and numeric strings to int.
// Fractional values are an error rather than being truncated
func GetAsInteger(s any) (int, error) {
	switch v := s.(type) {
	case nil:
		return 0, fmt.Errorf("cannot convert nil to integer")
	case int:
		return v, nil
	case int64:
		if v > math.MaxInt32 || v < math.MinInt32 {
			return 0, fmt.Errorf("int64 value %d is out of int range", v)
		}
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("float64 value %v is not a whole number", v)
		}
		if v > math.MaxInt32 || v < math.MinInt32 {
			return 0, fmt.Errorf("float64 value %v is out of int range", v)
		}
		return int(v), nil
	case string:
		result, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("cannot convert string '%s' to integer: %w", v, err)
		}
		return result, nil
	default:
		return 0, fmt.Errorf("cannot convert type %T to integer", s)
	}
}

// GetAsFloat converts JSON numbers and numeric strings to float64
func GetAsFloat(s any) (float64, error) {
	switch v := s.(type) {
	case nil:
		return 0, fmt.Errorf("cannot convert nil to float")
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		result, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert string '%s' to float: %w", v, err)
		}
		return result, nil
	default:
		return 0, fmt.Errorf("cannot convert type %T to float", s)
	}
}
