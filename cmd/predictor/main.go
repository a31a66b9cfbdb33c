package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/richard-senior/matchpredict/internal/api"
	"github.com/richard-senior/matchpredict/internal/bootstrap"
	"github.com/richard-senior/matchpredict/internal/config"
	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/internal/processor"
	"github.com/richard-senior/matchpredict/pkg/footballdata"
	"github.com/richard-senior/matchpredict/pkg/server"
	"github.com/richard-senior/matchpredict/pkg/transport"
)

const usage = `Usage: predictor [-config file] <command> [flags] [args]

Commands:
  serve     web form on -addr (default)
  mcp       MCP tool server on stdin/stdout
  ask       one-shot query, e.g. ask predict Arsenal vs Chelsea
  archive   download the configured season into the match archive
  leagues   list the seasons football-data.co.uk publishes

Run 'predictor <command> -h' for the flags of a command.
`

func main() {
	configPath := flag.String("config", "", "config file (default ~/.matchpredict/config.toml)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", err)
	}

	fs := flag.NewFlagSet(command, flag.ExitOnError)
	cfg.BindFlags(fs)
	inputFile := fs.String("input", "", "ask: read the query JSON from this file")
	outputFile := fs.String("output", "", "ask: write the answer to this file")
	catalogPage := fs.String("page", footballdata.DefaultCatalogPage, "leagues: football-data.co.uk page to scan")
	fs.Parse(args)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", err)
	}
	// stdout belongs to the protocol in mcp mode and to the answer in ask mode
	quiet := command == "mcp" || command == "ask"
	if err := bootstrap.ConfigureLogging(cfg, quiet); err != nil {
		logger.Fatal("Failed to configure logging", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		logger.Fatal("Startup failed", err)
	}
	defer deps.Close()

	switch command {
	case "serve":
		err = runServe(ctx, cfg, deps)
	case "mcp":
		err = runMCP(ctx, cfg, deps)
	case "ask":
		err = runAsk(ctx, cfg, deps, *inputFile, *outputFile, fs.Args())
	case "archive":
		err = runArchive(ctx, cfg, deps)
	case "leagues":
		err = runLeagues(ctx, deps, *catalogPage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, footballdata.ErrDataUnavailable) {
			logger.Error("Match data is unavailable, cannot start", err)
		} else {
			logger.Error(command+" failed", err)
		}
		deps.Close()
		os.Exit(1)
	}
}

func runServe(ctx context.Context, cfg *config.Config, deps *bootstrap.Deps) error {
	svc, err := deps.Train(ctx, cfg)
	if err != nil {
		return err
	}
	srv := api.NewHTTPServer(cfg.Server.Addr, svc, cfg.GetReadTimeout(), cfg.GetWriteTimeout())
	return api.Serve(ctx, srv)
}

func runMCP(ctx context.Context, cfg *config.Config, deps *bootstrap.Deps) error {
	svc, err := deps.Train(ctx, cfg)
	if err != nil {
		return err
	}
	return server.NewServer(transport.NewStdioTransport(), svc).Start(ctx)
}

func runAsk(ctx context.Context, cfg *config.Config, deps *bootstrap.Deps, inputFile, outputFile string, args []string) error {
	var input []byte
	var err error
	switch {
	case inputFile != "":
		if input, err = os.ReadFile(inputFile); err != nil {
			return fmt.Errorf("read input file: %w", err)
		}
	case len(args) > 0:
		input, err = json.Marshal(processor.QueryRequest{
			Query:     strings.Join(args, " "),
			RequestID: fmt.Sprintf("cli-%d", os.Getpid()),
		})
		if err != nil {
			return err
		}
	default:
		if input, err = io.ReadAll(os.Stdin); err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}

	svc, err := deps.Train(ctx, cfg)
	if err != nil {
		return err
	}
	result, err := processor.NewProcessor(svc).ProcessRequest(input)
	if err != nil {
		return err
	}
	if outputFile != "" {
		return os.WriteFile(outputFile, result, 0o644)
	}
	fmt.Println(string(result))
	return nil
}

func runArchive(ctx context.Context, cfg *config.Config, deps *bootstrap.Deps) error {
	league, season, err := cfg.ArchiveKey()
	if err != nil {
		return err
	}
	source, err := cfg.ResolvedSource()
	if err != nil {
		return err
	}
	if err := deps.OpenArchive(ctx, cfg); err != nil {
		return err
	}
	records, err := deps.Loader.Load(ctx, source)
	if err != nil {
		return err
	}
	if err := deps.Archive.SaveSeason(ctx, league, season, records); err != nil {
		return err
	}
	logger.Inform("Archived", len(records), "matches of", league, season)

	seasons, err := deps.Archive.Seasons(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LEAGUE\tSEASON\tMATCHES\tSTORED\tSOURCE")
	for _, s := range seasons {
		ref, _ := footballdata.ArchiveSource(s.League, s.Season)
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", s.League, s.Season, s.Matches, s.StoredAt.Format("2006-01-02 15:04"), ref)
	}
	return w.Flush()
}

func runLeagues(ctx context.Context, deps *bootstrap.Deps, page string) error {
	entries, err := footballdata.Catalog(ctx, deps.Client, page)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LEAGUE\tSEASON\tDIVISION\tURL")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.League, e.Season, e.Division, e.URL)
	}
	return w.Flush()
}
