package main

import (
	"fmt"
	"os"

	"github.com/andresuchdata/autopo-py/minioctl/internal/config"
	"github.com/andresuchdata/autopo-py/minioctl/internal/shell"
	"github.com/andresuchdata/autopo-py/minioctl/internal/storage"
	"github.com/andresuchdata/autopo-py/minioctl/pkg/logger"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "minioctl",
		Usage: "Interactive bucket and object operations against a MinIO server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "endpoint",
				Usage: "Server address as host:port or http(s) URL",
			},
			&cli.StringFlag{
				Name:  "access-key",
				Usage: "Access key",
			},
			&cli.StringFlag{
				Name:  "secret-key",
				Usage: "Secret key",
			},
			&cli.BoolFlag{
				Name:  "secure",
				Usage: "Use HTTPS",
			},
			&cli.StringFlag{
				Name:  "region",
				Usage: "Bucket region",
			},
			&cli.StringFlag{
				Name:  "console-url",
				Usage: "Web console suggested when there are no buckets",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Action: run,
	}
}

// resolveConfig overlays explicitly set flags on the loaded configuration.
func resolveConfig(c *cli.Context, cfg config.Config) config.Config {
	if c.IsSet("endpoint") {
		cfg.Storage.Endpoint = c.String("endpoint")
	}
	if c.IsSet("access-key") {
		cfg.Storage.AccessKey = c.String("access-key")
	}
	if c.IsSet("secret-key") {
		cfg.Storage.SecretKey = c.String("secret-key")
	}
	if c.IsSet("secure") {
		cfg.Storage.UseSSL = c.Bool("secure")
	}
	if c.IsSet("region") {
		cfg.Storage.Region = c.String("region")
	}
	if c.IsSet("console-url") {
		cfg.App.ConsoleURL = c.String("console-url")
	}
	if c.IsSet("log-level") {
		cfg.App.LogLevel = c.String("log-level")
	}
	return cfg
}

func run(c *cli.Context) error {
	cfg := resolveConfig(c, *config.Load())
	logger.SetLevel(cfg.App.LogLevel)

	out := c.App.Writer
	fmt.Fprintln(out, "Connecting to MinIO server...")

	client, err := storage.NewMinioClient(storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Region:    cfg.Storage.Region,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to connect to MinIO: %v", err), 1)
	}

	logger.Log.Info().Str("endpoint", client.Endpoint()).Msg("storage client ready")
	fmt.Fprintf(out, "Connected to MinIO at %s\n", cfg.Storage.Endpoint)

	session := shell.New(client, c.App.Reader, out, shell.Options{
		ConsoleURL: cfg.App.ConsoleURL,
	})
	return session.Run(c.Context)
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("minioctl failed")
	}
}
