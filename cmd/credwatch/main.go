package main

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "credwatch",
		Usage:   "timeline reputation signals daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "api-host",
			Usage:   "method, hostname, and port of the profile lookup API",
			Value:   "https://api.x.com",
			EnvVars: []string{"CREDWATCH_API_HOST"},
		},
		&cli.StringFlag{
			Name:    "bearer-token",
			Usage:   "bearer token for the profile lookup API; lookups degrade to absent without it",
			EnvVars: []string{"CREDWATCH_BEARER_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "csrf-token",
			Usage:   "session csrf token forwarded with each lookup",
			EnvVars: []string{"CREDWATCH_CSRF_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL; if set, the profile cache is shared across replicas",
			EnvVars: []string{"CREDWATCH_REDIS_URL"},
		},
		&cli.DurationFlag{
			Name:    "cache-ttl",
			Usage:   "how long profile lookups (including negative results) stay cached",
			Value:   10 * time.Minute,
			EnvVars: []string{"CREDWATCH_CACHE_TTL"},
		},
		&cli.IntFlag{
			Name:    "cache-size",
			Usage:   "max cached profiles (in-process cache only)",
			Value:   50000,
			EnvVars: []string{"CREDWATCH_CACHE_SIZE"},
		},
		&cli.DurationFlag{
			Name:    "ratelimit-cooldown",
			Usage:   "pause on new external lookups after the API throttles us",
			Value:   60 * time.Second,
			EnvVars: []string{"CREDWATCH_RATELIMIT_COOLDOWN"},
		},
		&cli.Float64Flag{
			Name:    "lookup-rate",
			Usage:   "max external profile lookups per second",
			Value:   3,
			EnvVars: []string{"CREDWATCH_LOOKUP_RATE"},
		},
		&cli.DurationFlag{
			Name:    "scan-debounce",
			Usage:   "settle time between a scan trigger and the pass it starts",
			Value:   600 * time.Millisecond,
			EnvVars: []string{"CREDWATCH_SCAN_DEBOUNCE"},
		},
		&cli.DurationFlag{
			Name:    "element-delay",
			Usage:   "minimum delay between successive external lookups within one pass",
			Value:   300 * time.Millisecond,
			EnvVars: []string{"CREDWATCH_ELEMENT_DELAY"},
		},
		&cli.DurationFlag{
			Name:    "cohort-interval",
			Usage:   "minimum interval between re-analyses of the same discussion context",
			Value:   90 * time.Second,
			EnvVars: []string{"CREDWATCH_COHORT_INTERVAL"},
		},
		&cli.DurationFlag{
			Name:    "startup-delay",
			Usage:   "settle time before the forced first scan pass",
			Value:   2500 * time.Millisecond,
			EnvVars: []string{"CREDWATCH_STARTUP_DELAY"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the HTTP API",
			Value:   ":8700",
			EnvVars: []string{"CREDWATCH_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics",
			Value:   ":8701",
			EnvVars: []string{"CREDWATCH_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity: debug, info, warn, error",
			Value:   "info",
			EnvVars: []string{"CREDWATCH_LOG_LEVEL"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Action: func(cctx *cli.Context) error {
		logger := configLogger(cctx.String("log-level"))
		srv, err := NewServer(Config{
			APIHost:           cctx.String("api-host"),
			BearerToken:       cctx.String("bearer-token"),
			CSRFToken:         cctx.String("csrf-token"),
			RedisURL:          cctx.String("redis-url"),
			CacheTTL:          cctx.Duration("cache-ttl"),
			CacheSize:         cctx.Int("cache-size"),
			RatelimitCooldown: cctx.Duration("ratelimit-cooldown"),
			LookupRate:        cctx.Float64("lookup-rate"),
			ScanDebounce:      cctx.Duration("scan-debounce"),
			ElementDelay:      cctx.Duration("element-delay"),
			CohortInterval:    cctx.Duration("cohort-interval"),
			StartupDelay:      cctx.Duration("startup-delay"),
			Bind:              cctx.String("bind"),
			MetricsListen:     cctx.String("metrics-listen"),
			Logger:            logger,
		})
		if err != nil {
			return err
		}
		return srv.RunAPI()
	},
}

func configLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
	return logger
}
