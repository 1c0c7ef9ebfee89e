package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Sternrassler/repolist-client/internal/config"
	"github.com/Sternrassler/repolist-client/pkg/client"
	"github.com/Sternrassler/repolist-client/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app carries the resolved configuration from the root command to its
// subcommands.
type app struct {
	configPath string
	cfg        config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "repolist",
		Short: "Browse the public GitHub repository listing",
		Long: `repolist pages through the public GitHub repository listing and loads
star counts on demand. "serve" exposes the browser over HTTP; "dump" walks the
listing and prints repositories as JSON lines.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.config/repolist/config.toml)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.Bool("log-pretty", false, "human-readable log output")
	flags.String("redis-url", "", "Redis for the response cache and quota tracker (redis://... or host:port)")
	flags.String("user-agent", "", "User-Agent sent to GitHub")
	flags.String("base-url", "", "GitHub REST API base URL")

	root.AddCommand(newServeCmd(a), newDumpCmd(a))
	return root
}

// load resolves the configuration: file, then environment, then flags.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	for name, dst := range map[string]*string{
		"log-level":  &cfg.LogLevel,
		"redis-url":  &cfg.RedisURL,
		"user-agent": &cfg.UserAgent,
		"base-url":   &cfg.BaseURL,
	} {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	if flags.Changed("log-pretty") {
		cfg.LogPretty, _ = flags.GetBool("log-pretty")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(cfg.LogLevel)
	logCfg.Pretty = cfg.LogPretty
	logCfg.Output = cmd.ErrOrStderr()
	logging.Setup(logCfg)

	return nil
}

// newClient builds the GitHub client, connecting to Redis when configured.
// The returned cleanup closes both.
func (a *app) newClient(ctx context.Context) (*client.Client, func(), error) {
	clientCfg := client.DefaultConfig(a.cfg.UserAgent)
	clientCfg.BaseURL = a.cfg.BaseURL
	clientCfg.Timeout = a.cfg.Timeout

	var redisClient *redis.Client
	if a.cfg.RedisURL != "" {
		opts, err := redisOptions(a.cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
		}
		log.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
		clientCfg.Redis = redisClient
	}

	githubClient, err := client.New(clientCfg)
	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}
		return nil, nil, fmt.Errorf("create github client: %w", err)
	}

	cleanup := func() {
		githubClient.Close()
		if redisClient != nil {
			redisClient.Close()
		}
	}
	return githubClient, cleanup, nil
}

func redisOptions(raw string) (*redis.Options, error) {
	if strings.Contains(raw, "://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: raw}, nil
}
