package tools

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/protocol"
	"github.com/richard-senior/podds/pkg/util"
)

// SuggestionThreshold is the fuzzy score a team name needs before it is offered as a correction
const SuggestionThreshold = 0.6

// PoddsTools exposes a predictor as MCP tools
type PoddsTools struct {
	predictor *podds.Predictor
}

// NewPoddsTools binds the tool handlers to a predictor
func NewPoddsTools(p *podds.Predictor) *PoddsTools {
	return &PoddsTools{predictor: p}
}

// Predictor returns the bound predictor
func (t *PoddsTools) Predictor() *podds.Predictor {
	return t.predictor
}

// ListTeamsTool returns the team listing tool definition
func ListTeamsTool() protocol.Tool {
	return protocol.Tool{
		Name:        "podds_list_teams",
		Description: "Lists the teams present in the loaded match history. Use this to find the exact spelling before asking for a prediction",
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"filter": {
					Type:        "string",
					Description: "Optional case insensitive substring, for example 'man' for Man City and Man United",
				},
			},
		},
	}
}

// PredictMatchTool returns the full prediction tool definition
func PredictMatchTool() protocol.Tool {
	return protocol.Tool{
		Name: "podds_predict_match",
		Description: `
		Predicts a football match by Monte Carlo simulation of a Poisson goal model built from recent form.
		Returns expected goals, home/draw/away probabilities, the most likely scores, both teams to score,
		over/under goal lines, Asian handicap lines, corners and cards where the data has them,
		value bets against the latest bookmaker odds and a recommended pick with a confidence out of 8.
		`,
		InputSchema: protocol.InputSchema{
			Type:       "object",
			Properties: requestProperties(),
			Required:   []string{"home", "away"},
		},
	}
}

// ValueBetsTool returns the value bet tool definition
func ValueBetsTool() protocol.Tool {
	props := requestProperties()
	props["home_odds"] = protocol.ToolProperty{
		Type:        "number",
		Description: "Decimal odds for a home win. Supply all three odds to test your own prices, otherwise the latest fixture odds in the data are used",
	}
	props["draw_odds"] = protocol.ToolProperty{
		Type:        "number",
		Description: "Decimal odds for a draw",
	}
	props["away_odds"] = protocol.ToolProperty{
		Type:        "number",
		Description: "Decimal odds for an away win",
	}
	return protocol.Tool{
		Name:        "podds_value_bets",
		Description: "Compares simulated home/draw/away probabilities with bookmaker implied probabilities and lists outcomes whose edge clears the threshold",
		InputSchema: protocol.InputSchema{
			Type:       "object",
			Properties: props,
			Required:   []string{"home", "away"},
		},
	}
}

func requestProperties() map[string]protocol.ToolProperty {
	return map[string]protocol.ToolProperty{
		"home": {
			Type:        "string",
			Description: "The home team as spelled in the data, for example 'Man United'",
		},
		"away": {
			Type:        "string",
			Description: "The away team as spelled in the data",
		},
		"simulations": {
			Type:        "integer",
			Description: "Optional number of simulated matches. Omit to use the defaults",
		},
		"last_matches": {
			Type:        "integer",
			Description: "Optional number of recent matches used for form. Omit to use the configured window",
		},
		"min_edge": {
			Type:        "number",
			Description: "Optional edge a value bet must exceed, between 0 and 1. 0.05 means five percentage points",
		},
	}
}

// HandleListTeams lists the known teams, optionally filtered
func (t *PoddsTools) HandleListTeams(params any) (any, error) {
	logger.Info("Handling list teams tool invocation")

	filter := ""
	if paramsMap, ok := params.(map[string]any); ok {
		if v, exists := paramsMap["filter"]; exists && v != nil {
			s, err := util.GetAsString(v)
			if err != nil {
				return nil, fmt.Errorf("filter must be a string: %w", podds.ErrInvalidRequest)
			}
			filter = strings.ToLower(strings.TrimSpace(s))
		}
	}

	d := t.predictor.Dataset()
	teams := []string{}
	for _, team := range d.Teams() {
		if filter == "" || strings.Contains(strings.ToLower(team), filter) {
			teams = append(teams, team)
		}
	}
	sort.Strings(teams)

	columns := []string{}
	for _, c := range d.Columns() {
		columns = append(columns, string(c))
	}

	return map[string]any{
		"teams":   teams,
		"count":   len(teams),
		"matches": d.Len(),
		"columns": columns,
	}, nil
}

// HandlePredictMatch runs every analyzer for the fixture
func (t *PoddsTools) HandlePredictMatch(params any) (any, error) {
	logger.Info("Handling predict match tool invocation")

	req, err := RequestFromParams(params)
	if err != nil {
		return nil, err
	}
	prediction, err := t.predictor.Predict(req)
	if err != nil {
		return nil, t.explain(err, req)
	}
	logger.Inform(prediction.Pick.Describe(prediction.Home, prediction.Away))
	return prediction, nil
}

// HandleValueBets reports value against the latest fixture odds or the odds supplied
func (t *PoddsTools) HandleValueBets(params any) (any, error) {
	logger.Info("Handling value bets tool invocation")

	req, err := RequestFromParams(params)
	if err != nil {
		return nil, err
	}
	odds, supplied, err := oddsFromParams(params.(map[string]any))
	if err != nil {
		return nil, err
	}

	var report *podds.ValueBetReport
	if supplied {
		report, err = t.predictor.ValueBetsForOdds(req, odds)
	} else {
		report, err = t.predictor.ValueBets(req)
	}
	if err != nil {
		return nil, t.explain(err, req)
	}
	return report, nil
}

// RequestFromParams builds a prediction request from tool arguments
func RequestFromParams(params any) (podds.Request, error) {
	var req podds.Request
	if params == nil {
		return req, fmt.Errorf("no params given: %w", podds.ErrInvalidRequest)
	}
	paramsMap, ok := params.(map[string]any)
	if !ok {
		return req, fmt.Errorf("invalid parameters format: %w", podds.ErrInvalidRequest)
	}

	var err error
	if req.Home, err = requiredString(paramsMap, "home"); err != nil {
		return req, err
	}
	if req.Away, err = requiredString(paramsMap, "away"); err != nil {
		return req, err
	}
	if v, exists := paramsMap["simulations"]; exists && v != nil {
		if req.Simulations, err = util.GetAsInteger(v); err != nil {
			return req, fmt.Errorf("simulations: %v: %w", err, podds.ErrInvalidRequest)
		}
	}
	if v, exists := paramsMap["last_matches"]; exists && v != nil {
		if req.LastMatches, err = util.GetAsInteger(v); err != nil {
			return req, fmt.Errorf("last_matches: %v: %w", err, podds.ErrInvalidRequest)
		}
	}
	if v, exists := paramsMap["min_edge"]; exists && v != nil {
		edge, err := util.GetAsFloat(v)
		if err != nil {
			return req, fmt.Errorf("min_edge: %v: %w", err, podds.ErrInvalidRequest)
		}
		req.MinEdge = &edge
	}
	return req, nil
}

func requiredString(paramsMap map[string]any, key string) (string, error) {
	v, exists := paramsMap[key]
	if !exists || v == nil {
		return "", fmt.Errorf("%s parameter is required: %w", key, podds.ErrInvalidRequest)
	}
	s, err := util.GetAsString(v)
	if err != nil || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%s parameter must be a team name: %w", key, podds.ErrInvalidRequest)
	}
	return s, nil
}

// oddsFromParams reads home_odds, draw_odds and away_odds. All or none must be given
func oddsFromParams(paramsMap map[string]any) (podds.MatchOdds, bool, error) {
	keys := []string{"home_odds", "draw_odds", "away_odds"}
	values := make([]float64, 0, len(keys))
	for _, key := range keys {
		v, exists := paramsMap[key]
		if !exists || v == nil {
			continue
		}
		f, err := util.GetAsFloat(v)
		if err != nil {
			return podds.MatchOdds{}, false, fmt.Errorf("%s: %v: %w", key, err, podds.ErrInvalidRequest)
		}
		values = append(values, f)
	}
	switch len(values) {
	case 0:
		return podds.MatchOdds{}, false, nil
	case len(keys):
		return podds.MatchOdds{Home: values[0], Draw: values[1], Away: values[2]}, true, nil
	default:
		return podds.MatchOdds{}, false, fmt.Errorf("home_odds, draw_odds and away_odds must be given together: %w", podds.ErrInvalidRequest)
	}
}

// explain adds a spelling suggestion to unknown team errors
func (t *PoddsTools) explain(err error, req podds.Request) error {
	return ExplainError(t.predictor.Dataset(), err, req)
}

// ExplainError adds the closest known team name to an unknown team error
func ExplainError(d *podds.Dataset, err error, req podds.Request) error {
	if !errors.Is(err, podds.ErrUnknownTeam) {
		return err
	}
	for _, name := range []string{req.Home, req.Away} {
		if d.HasTeam(name) {
			continue
		}
		if suggestion := SuggestTeam(d, name); suggestion != "" {
			return fmt.Errorf("%w (did you mean %s?)", err, suggestion)
		}
	}
	return err
}

// SuggestTeam returns the known team closest to name, or "" when nothing is close
func SuggestTeam(d *podds.Dataset, name string) string {
	suggestion, score := util.ClosestMatch(name, d.Teams(), SuggestionThreshold)
	if suggestion != "" {
		logger.Debug(fmt.Sprintf("Suggesting %s for %s (score %.2f)", suggestion, name, score))
	}
	return suggestion
}
