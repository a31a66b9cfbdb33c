// Package bootstrap turns a Config into a trained prediction service.
// Every front-end goes through it so they all load, encode and fit the same way.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richard-senior/matchpredict/internal/config"
	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/pkg/archive"
	"github.com/richard-senior/matchpredict/pkg/footballdata"
	"github.com/richard-senior/matchpredict/pkg/predictor"
	"github.com/richard-senior/matchpredict/pkg/transport"
)

// Deps holds the resources built from a Config. Close releases them.
type Deps struct {
	Client  *transport.Client
	Loader  *footballdata.Loader
	Archive *archive.Archive // nil unless the source is archive:// or OpenArchive was called

	redis *redis.Client
}

// ConfigureLogging applies the log section. In MCP mode everything goes to stderr.
func ConfigureLogging(cfg *config.Config, mcp bool) error {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	logger.SetShowDateTime(cfg.Log.DateTime)
	if mcp {
		logger.SetMCPMode(true)
		return nil
	}
	out, err := cfg.LogOutput()
	if err != nil {
		return err
	}
	return logger.SetLogOutput(out)
}

// Build creates the HTTP client, download cache and loader described by cfg.
func Build(ctx context.Context, cfg *config.Config) (*Deps, error) {
	timeout, err := cfg.GetFetchTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid data timeout: %w", err)
	}
	d := &Deps{
		Client: transport.NewClient(transport.ClientOptions{
			Timeout:           timeout,
			UserAgent:         cfg.Data.UserAgent,
			RequestsPerSecond: cfg.Data.RequestsPerSecond,
			CABundle:          cfg.Data.CABundle,
		}),
	}

	cache, err := d.cache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts := []footballdata.Option{footballdata.WithFetcher(d.Client), footballdata.WithCache(cache)}

	if cfg.UsesArchive() {
		if err := d.OpenArchive(ctx, cfg); err != nil {
			d.Close()
			return nil, err
		}
		opts = append(opts, footballdata.WithArchive(d.Archive))
	}
	d.Loader = footballdata.NewLoader(opts...)
	return d, nil
}

// cache picks the download cache. An unreachable redis degrades to no caching.
func (d *Deps) cache(ctx context.Context, cfg *config.Config) (footballdata.Cache, error) {
	ttl, err := cfg.GetCacheTTL()
	if err != nil {
		return nil, fmt.Errorf("invalid cache TTL: %w", err)
	}
	switch cfg.Cache.Backend {
	case config.CacheFile:
		c, err := footballdata.NewFileCache(cfg.Cache.Dir, ttl)
		if err != nil {
			logger.Warn("File cache unavailable, downloading every time", err)
			return footballdata.NopCache{}, nil
		}
		return c, nil
	case config.CacheRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("Redis cache unavailable, downloading every time", cfg.Cache.RedisAddr, err)
			rdb.Close()
			return footballdata.NopCache{}, nil
		}
		d.redis = rdb
		return footballdata.NewRedisCache(rdb, cfg.Cache.RedisPrefix, ttl), nil
	}
	return footballdata.NopCache{}, nil
}

// OpenArchive connects to the configured match archive if it is not open yet.
func (d *Deps) OpenArchive(ctx context.Context, cfg *config.Config) error {
	if d.Archive != nil {
		return nil
	}
	a, err := archive.Open(ctx, cfg.Archive.Driver, cfg.Archive.DSN)
	if err != nil {
		return err
	}
	d.Archive = a
	return nil
}

// Train loads the configured source and fits a service on it.
// Any failure to obtain data is returned as a footballdata.DataUnavailableError.
func (d *Deps) Train(ctx context.Context, cfg *config.Config) (*predictor.Service, error) {
	source, err := cfg.ResolvedSource()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.PredictorOptions()
	if err != nil {
		return nil, err
	}

	logger.Info("Loading match data from", source)
	records, err := d.Loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}

	logger.Info("Training forest on", len(records), "matches")
	svc, err := predictor.NewService(records, opts)
	if err != nil {
		return nil, err
	}
	LogReport(svc.Report())
	return svc, nil
}

// LogReport writes a one-line summary of a fitted model.
func LogReport(r predictor.Report) {
	logger.Highlight(fmt.Sprintf("Model %s accuracy %s (%s, %d evaluated, %d trained, %d teams)",
		r.ModelID, r.AccuracyPercent(), r.Mode, r.EvalSamples, r.TrainSamples, r.Teams))
	if r.FellBack() {
		logger.Warn("Holdout evaluation was requested but the data is too small to split; accuracy is measured on the training rows")
	}
}

func (d *Deps) Close() error {
	var errs []error
	if d.Archive != nil {
		errs = append(errs, d.Archive.Close())
	}
	if d.redis != nil {
		errs = append(errs, d.redis.Close())
	}
	return errors.Join(errs...)
}
