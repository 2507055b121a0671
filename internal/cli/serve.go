package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pivotview/internal/server"
	"github.com/matzehuels/pivotview/pkg/cache"
	"github.com/matzehuels/pivotview/pkg/pipeline"
)

// Environment variables read by serve. Flags take precedence.
const (
	envAddr         = "PIVOTVIEW_ADDR"
	envRedisURL     = "PIVOTVIEW_REDIS_URL"
	envDataDir      = "PIVOTVIEW_DATA_DIR"
	envBackendURL   = "PIVOTVIEW_BACKEND_URL"
	envBackendToken = "PIVOTVIEW_BACKEND_TOKEN"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	envFile  string
	addr     string
	redisURL string
	dataDir  string
	backends []string
	timeout  time.Duration
	noCache  bool
}

// serveCommand runs the HTTP API until interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pivot HTTP API",
		Long: `Serve exposes the render pipeline over HTTP:

  POST /v1/render            view and artifacts as JSON
  POST /v1/render/{format}   one artifact with its content type
  POST /v1/distinct          distinct values of a field

Settings are read from flags, then from the environment (` + envAddr + `,
` + envRedisURL + `, ` + envDataDir + `, ` + envBackendURL + `,
` + envBackendToken + `), which may be populated from a .env file.

Remote sources are only fetched from the listed backends, and the backend
token is only sent to them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFile(opts.envFile); err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("addr") {
				opts.addr = envOr(envAddr, opts.addr)
			}
			if !flags.Changed("redis") {
				opts.redisURL = envOr(envRedisURL, opts.redisURL)
			}
			if !flags.Changed("data-dir") {
				opts.dataDir = envOr(envDataDir, opts.dataDir)
			}
			if !flags.Changed("backend") {
				opts.backends = splitList(os.Getenv(envBackendURL))
			}
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "environment file to load, if present")
	cmd.Flags().StringVar(&opts.addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().StringVar(&opts.redisURL, "redis", "", "Redis URL for the shared cache (default: local file cache)")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "directory payload files are served from (default: file sources disabled)")
	cmd.Flags().StringSliceVar(&opts.backends, "backend", nil, "backend origin remote sources may use (repeatable; default: remote sources disabled)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "backend request timeout")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	store, err := c.serveCache(ctx, opts)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(store, nil, c.Logger)
	defer runner.Close()

	var headers map[string]string
	if token := os.Getenv(envBackendToken); token != "" {
		headers = map[string]string{"Authorization": "Bearer " + token}
		if len(opts.backends) == 0 {
			printWarning("%s is set but no backend is allowed; the token is unused", envBackendToken)
		}
	}

	srv := server.New(server.Config{
		Addr:     opts.addr,
		Runner:   runner,
		Logger:   c.Logger,
		DataDir:  opts.dataDir,
		Backends: opts.backends,
		Headers:  headers,
		Timeout:  opts.timeout,
	})

	printSuccess("Listening on %s", opts.addr)
	if opts.dataDir != "" {
		printDetail("serving payload files from %s", opts.dataDir)
	}
	for _, b := range opts.backends {
		printDetail("backend %s", b)
	}
	return srv.ListenAndServe(ctx)
}

func (c *CLI) serveCache(ctx context.Context, opts serveOpts) (cache.Cache, error) {
	if opts.noCache {
		return cache.NewNullCache(), nil
	}
	if opts.redisURL != "" {
		rc, err := cache.NewRedisCache(ctx, opts.redisURL)
		if err != nil {
			return nil, err
		}
		c.Logger.Info("using redis cache")
		return rc, nil
	}
	return newCache(false)
}

// loadEnvFile loads path into the environment. A missing file is ignored;
// variables already set win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
