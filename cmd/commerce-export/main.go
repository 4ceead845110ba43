// Command commerce-export streams every record of one resource type as JSON lines.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Sternrassler/commerce-client/pkg/adapter"
	"github.com/Sternrassler/commerce-client/pkg/client"
	"github.com/Sternrassler/commerce-client/pkg/logging"
	"github.com/Sternrassler/commerce-client/pkg/metrics"
	"github.com/Sternrassler/commerce-client/pkg/ratelimit"
	"github.com/Sternrassler/commerce-client/pkg/record"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// config is read from the environment.
type config struct {
	APIURL      string
	APIToken    string
	UserAgent   string
	Resource    string
	Sideloads   []string
	RedisURL    string
	MetricsAddr string
	Logging     logging.Config
}

func loadConfig(getenv func(string) string) (config, error) {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	logCfg, err := logging.FromEnv(getenv)
	if err != nil {
		return config{}, err
	}

	cfg := config{
		APIURL:      getenv("API_URL"),
		APIToken:    getenv("API_TOKEN"),
		UserAgent:   get("USER_AGENT", "commerce-export/0.1.0"),
		Resource:    getenv("RESOURCE"),
		RedisURL:    getenv("REDIS_URL"),
		MetricsAddr: getenv("METRICS_ADDR"),
		Logging:     logCfg,
	}
	for _, s := range strings.Split(getenv("SIDELOADS"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			cfg.Sideloads = append(cfg.Sideloads, s)
		}
	}

	if cfg.APIURL == "" {
		return config{}, errors.New("API_URL is required")
	}
	if cfg.Resource == "" {
		return config{}, errors.New("RESOURCE is required")
	}
	return cfg, nil
}

func newRedisClient(raw string) (*redis.Client, error) {
	if strings.HasPrefix(raw, "redis://") || strings.HasPrefix(raw, "rediss://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: raw}), nil
}

// run exports cfg.Resource to out and returns the number of records written.
func run(ctx context.Context, cfg config, out io.Writer, logger zerolog.Logger) (int, error) {
	clientCfg := client.DefaultConfig(cfg.APIURL, cfg.UserAgent)
	clientCfg.Logger = &logger
	if cfg.APIToken != "" {
		clientCfg.Token = client.StaticToken(cfg.APIToken)
	}

	if cfg.RedisURL != "" {
		redisClient, err := newRedisClient(cfg.RedisURL)
		if err != nil {
			return 0, err
		}
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return 0, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info().Str("redis", cfg.RedisURL).Msg("Sharing rate-limit state through Redis")
		clientCfg.RateLimitStore = ratelimit.NewRedisStore(redisClient, ratelimit.DefaultRedisPrefix)
	}

	exec, err := client.New(clientCfg)
	if err != nil {
		return 0, fmt.Errorf("create client: %w", err)
	}
	defer exec.Close()

	primary := adapter.NewResource(cfg.Resource)
	registry := adapter.NewRegistry()
	registry.Resource(primary)
	for _, name := range cfg.Sideloads {
		registry.Resource(adapter.NewResource(name))
	}

	session := adapter.NewSession(exec, registry, adapter.SessionConfig{Logger: &logger})
	a, _ := session.Adapter(primary.CollectionKey)

	enc := json.NewEncoder(out)
	records, err := a.WhereEach(ctx, adapter.Query{}, func(rec *record.Record) error {
		return enc.Encode(rec)
	})
	if err != nil {
		return 0, fmt.Errorf("export %s: %w", primary.CollectionKey, err)
	}

	for _, name := range cfg.Sideloads {
		res := adapter.NewResource(name)
		if related, ok := session.Adapter(res.CollectionKey); ok {
			logger.Info().
				Str("resource", res.CollectionKey).
				Int("records", related.Identity().Len()).
				Msg("Sideloaded records cached")
		}
	}

	return len(records), nil
}

func main() {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "commerce-export: %v\n", err)
		os.Exit(2)
	}

	logging.Setup(cfg.Logging)
	logger := logging.NewLogger("commerce-export")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	n, err := run(ctx, cfg, os.Stdout, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Export failed")
		os.Exit(1)
	}
	logger.Info().Str("resource", cfg.Resource).Int("records", n).Msg("Export complete")
}
