package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/richard-senior/podds/internal/config"
	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/datasource"
	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/server"
	"github.com/richard-senior/podds/pkg/tools"
	"github.com/richard-senior/podds/pkg/transport"
)

const usage = `usage: podds [-config file.yaml] <command> [arguments]

commands:
  serve                  serve the prediction tools over MCP on stdin/stdout
  http                   serve the JSON API
  predict HOME AWAY      predict one fixture
  valuebets HOME AWAY    compare the model with bookmaker odds
  teams [FILTER]         list the teams in the loaded data
  fetch                  download the configured seasons from football-data.co.uk
  import                 load the CSV directory into the SQLite store
`

func main() {
	configPath := flag.String("config", os.Getenv("PODDS_CONFIG"), "YAML configuration file")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	command, args := flag.Arg(0), flag.Args()[1:]
	// stdout carries the protocol when serving MCP
	if err := cfg.ApplyLogging(command == "serve"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, command, args); err != nil {
		logger.Error("podds "+command+" failed:", err)
		if command != "serve" {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, command string, args []string) error {
	switch command {
	case "serve":
		return serve(ctx, cfg)
	case "http":
		return serveHTTP(ctx, cfg)
	case "predict":
		return predict(ctx, cfg, args)
	case "valuebets":
		return valueBets(ctx, cfg, args)
	case "teams":
		return teams(ctx, cfg, args)
	case "fetch":
		return fetch(ctx, cfg, args)
	case "import":
		return importCSV(ctx, cfg)
	default:
		return fmt.Errorf("unknown command %q, run podds -h for help", command)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	pt, err := newTools(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("Starting podds MCP server")
	return server.NewServer(transport.NewStdioTransport(), pt).Start()
}

func serveHTTP(ctx context.Context, cfg *config.Config) error {
	pt, err := newTools(ctx, cfg)
	if err != nil {
		return err
	}
	s := server.NewHTTPServer(cfg.Server, pt)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("Shutting down HTTP API")
		s.Stop()
		return nil
	}
}

// requestFlags are shared by predict and valuebets
type requestFlags struct {
	fs          *flag.FlagSet
	simulations *int
	lastMatches *int
	minEdge     *float64
}

func newRequestFlags(name string) *requestFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return &requestFlags{
		fs:          fs,
		simulations: fs.Int("simulations", 0, "simulated matches, 0 for the defaults"),
		lastMatches: fs.Int("last", 0, "recent matches used for form, 0 for the configured window"),
		minEdge:     fs.Float64("min-edge", -1, "edge a value bet must exceed, negative for the configured threshold"),
	}
}

// parse reads the flags and the HOME AWAY pair that follows them
func (f *requestFlags) parse(args []string) (podds.Request, error) {
	if err := f.fs.Parse(args); err != nil {
		return podds.Request{}, err
	}
	if f.fs.NArg() != 2 {
		return podds.Request{}, fmt.Errorf("%s needs exactly two teams, HOME AWAY: %w", f.fs.Name(), podds.ErrInvalidRequest)
	}
	req := podds.Request{
		Home:        f.fs.Arg(0),
		Away:        f.fs.Arg(1),
		Simulations: *f.simulations,
		LastMatches: *f.lastMatches,
	}
	if *f.minEdge >= 0 {
		req.MinEdge = f.minEdge
	}
	return req, nil
}

func predict(ctx context.Context, cfg *config.Config, args []string) error {
	req, err := newRequestFlags("predict").parse(args)
	if err != nil {
		return err
	}
	pt, err := newTools(ctx, cfg)
	if err != nil {
		return err
	}

	prediction, err := pt.Predictor().Predict(req)
	if err != nil {
		return tools.ExplainError(pt.Predictor().Dataset(), err, req)
	}
	logger.Highlight(fmt.Sprintf("%s v %s: %s (confidence %d/8)", prediction.Home, prediction.Away,
		prediction.Pick.Describe(prediction.Home, prediction.Away), prediction.Pick.Confidence))
	return printJSON(prediction)
}

func valueBets(ctx context.Context, cfg *config.Config, args []string) error {
	rf := newRequestFlags("valuebets")
	oddsFlag := rf.fs.String("odds", "", "home,draw,away decimal odds, empty for the latest fixture in the data")
	req, err := rf.parse(args)
	if err != nil {
		return err
	}
	pt, err := newTools(ctx, cfg)
	if err != nil {
		return err
	}

	params := map[string]any{"home": req.Home, "away": req.Away, "simulations": req.Simulations, "last_matches": req.LastMatches}
	if req.MinEdge != nil {
		params["min_edge"] = *req.MinEdge
	}
	if *oddsFlag != "" {
		parts := strings.Split(*oddsFlag, ",")
		if len(parts) != 3 {
			return fmt.Errorf("odds must be home,draw,away: %w", podds.ErrInvalidRequest)
		}
		for i, key := range []string{"home_odds", "draw_odds", "away_odds"} {
			params[key] = strings.TrimSpace(parts[i])
		}
	}

	report, err := pt.HandleValueBets(params)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func teams(ctx context.Context, cfg *config.Config, args []string) error {
	pt, err := newTools(ctx, cfg)
	if err != nil {
		return err
	}
	params := map[string]any{}
	if len(args) > 0 {
		params["filter"] = strings.Join(args, " ")
	}
	listing, err := pt.HandleListTeams(params)
	if err != nil {
		return err
	}
	return printJSON(listing)
}

func fetch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	seasons := fs.String("seasons", strings.Join(cfg.Data.Seasons, ","), "comma separated seasons, oldest first, e.g. 2324,2425")
	divisions := fs.String("divisions", strings.Join(cfg.Data.Divisions, ","), "comma separated divisions, e.g. E0,E1")
	if err := fs.Parse(args); err != nil {
		return err
	}

	seasonList, divisionList := splitList(*seasons), splitList(*divisions)
	if len(seasonList) == 0 || len(divisionList) == 0 {
		return errors.New("fetch needs at least one season and one division, in the config file or as flags")
	}

	d := datasource.NewDownloader(transport.NewHTTPClient(cfg.Data.Timeout), cfg.Data.BaseURL, cfg.Data.Dir)
	paths, err := d.FetchAll(ctx, seasonList, divisionList)
	if err != nil {
		return err
	}
	logger.Inform("Fetched", len(paths), "files into", cfg.Data.Dir)

	if cfg.Data.Source == config.SourceSQLite {
		return importCSV(ctx, cfg)
	}
	return nil
}

func importCSV(ctx context.Context, cfg *config.Config) error {
	matches, err := datasource.LoadDirectory(cfg.Data.Dir)
	if err != nil {
		return err
	}
	store, err := datasource.OpenStore(ctx, cfg.Data.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	saved, err := store.SaveMatches(ctx, matches)
	if err != nil {
		return err
	}
	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	logger.Inform(fmt.Sprintf("Imported %d matches into %s, %d stored", saved, cfg.Data.DBPath, total))
	return nil
}

// newTools loads the dataset from the configured source and builds the predictor
func newTools(ctx context.Context, cfg *config.Config) (*tools.PoddsTools, error) {
	var dataset *podds.Dataset
	var err error
	switch cfg.Data.Source {
	case config.SourceSQLite:
		var store *datasource.Store
		store, err = datasource.OpenStore(ctx, cfg.Data.DBPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		dataset, err = store.LoadDataset(ctx)
	default:
		dataset, err = datasource.LoadDataset(cfg.Data.Dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match history: %w", err)
	}

	predictor, err := podds.NewPredictor(dataset, &cfg.Engine)
	if err != nil {
		return nil, err
	}
	return tools.NewPoddsTools(predictor), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
