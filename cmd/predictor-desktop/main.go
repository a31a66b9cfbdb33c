package main

import (
	"context"
	"flag"
	"os"

	"github.com/richard-senior/matchpredict/internal/bootstrap"
	"github.com/richard-senior/matchpredict/internal/config"
	"github.com/richard-senior/matchpredict/internal/gui"
	"github.com/richard-senior/matchpredict/internal/logger"
)

func main() {
	cfg, err := config.Load(config.PathFromArgs(os.Args[1:]))
	if err != nil {
		logger.Fatal("Failed to load config", err)
	}
	flag.String("config", "", "config file (default ~/.matchpredict/config.toml)")
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", err)
	}
	if err := bootstrap.ConfigureLogging(cfg, false); err != nil {
		logger.Fatal("Failed to configure logging", err)
	}

	ctx := context.Background()
	deps, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		logger.Fatal("Startup failed", err)
	}
	defer deps.Close()

	svc, err := deps.Train(ctx, cfg)
	if err != nil {
		logger.Fatal("Match data is unavailable, cannot start", err)
	}
	gui.NewApp(svc).Run()
}
