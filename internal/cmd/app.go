// Package cmd provides the CLI commands for ntnkb.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/ntnkb/ntnkb/internal/apperrors"
	"github.com/ntnkb/ntnkb/internal/enrich"
	"github.com/ntnkb/ntnkb/internal/notion"
	"github.com/ntnkb/ntnkb/internal/reader"
	"github.com/ntnkb/ntnkb/internal/reconcile"
	"github.com/ntnkb/ntnkb/internal/schema"
	"github.com/ntnkb/ntnkb/internal/storage"
	"github.com/ntnkb/ntnkb/internal/sync"
	"github.com/ntnkb/ntnkb/internal/version"
	"github.com/ntnkb/ntnkb/internal/webhook"
)

// Default ports.
const defaultWebhookPort = 8080

var (
	// konfig is the global koanf instance.
	konfig = koanf.New(".")
)

// verboseFlag is the shared verbose flag for all commands.
var verboseFlag = &cli.BoolFlag{
	Name:  "verbose",
	Usage: "Enable verbose logging",
}

// LogFormat represents the log output format.
type LogFormat string

const (
	// LogFormatText is the human-readable text format (default).
	LogFormatText LogFormat = "text"
	// LogFormatJSON is the JSON-formatted structured logs.
	LogFormatJSON LogFormat = "json"
)

// getLogFormat returns the configured log format from NKB_LOG_FORMAT environment variable.
func getLogFormat() LogFormat {
	val := strings.ToLower(os.Getenv("NKB_LOG_FORMAT"))
	switch val {
	case "json":
		return LogFormatJSON
	case "text", "":
		return LogFormatText
	default:
		// Invalid format - will warn after logger is set up
		return LogFormatText
	}
}

// setupLogging configures the global logger based on the verbose flag and NKB_LOG_FORMAT.
func setupLogging(cmd *cli.Command) {
	level := slog.LevelInfo
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}

	format := getLogFormat()
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case LogFormatText:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))

	// Warn about invalid format after logger is set up
	envVal := strings.ToLower(os.Getenv("NKB_LOG_FORMAT"))
	if envVal != "" && envVal != "text" && envVal != "json" {
		slog.Warn("Invalid NKB_LOG_FORMAT value, using text format", "value", envVal)
	}

	if level == slog.LevelDebug {
		slog.Debug("Verbose logging enabled")
	}
}

// NewApp creates the CLI application.
func NewApp() *cli.Command {
	return &cli.Command{
		Name:    "ntnkb",
		Usage:   "Sync a hierarchical Notion workspace into a curated knowledge base database",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Notion API token",
				Sources: cli.EnvVars("NOTION_TOKEN"),
			},
			verboseFlag,
		},
		Before: func(ctx context.Context, _ *cli.Command) (context.Context, error) {
			// Load environment variables with NKB_ prefix
			if err := konfig.Load(env.Provider(".", env.Opt{
				Prefix: "NKB_",
			}), nil); err != nil {
				return ctx, fmt.Errorf("load env: %w", err)
			}

			return ctx, nil
		},
		Commands: []*cli.Command{
			syncCommand(),
			verifyCommand(),
			provisionCommand(),
			serveCommand(),
		},
	}
}

// databaseFlags are shared by commands that address the destination database.
func databaseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-id",
			Aliases: []string{"d"},
			Usage:   "Destination database ID (resolved by name when empty)",
			Sources: cli.EnvVars("NKB_DATABASE_ID"),
		},
		&cli.StringFlag{
			Name:    "database-name",
			Usage:   "Destination database name for find-by-name resolution",
			Value:   schema.DefaultDatabaseName,
			Sources: cli.EnvVars("NKB_DATABASE_NAME"),
		},
		&cli.StringFlag{
			Name:    "schema-file",
			Usage:   "JSON schema override file (replaces the built-in schema)",
			Sources: cli.EnvVars("NKB_SCHEMA_FILE"),
		},
	}
}

// syncCommand creates the sync subcommand.
func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Read the workspace, enrich content pages and reconcile them into the database",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Root page ID or URL of the source workspace",
				Sources: cli.EnvVars("NKB_ROOT_PAGE"),
			},
			verboseFlag,
		}, databaseFlags()...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd)
			return ctx, nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rootPageID, err := resolveRootPage(cmd)
			if err != nil {
				return err
			}

			syncer, verifier, err := buildPipeline(ctx, cmd)
			if err != nil {
				return err
			}

			if result := verifier.VerifyDatabase(ctx, cmd.String("database-id")); !result.Success {
				return fmt.Errorf("%w: %s", apperrors.ErrDatabaseNotFound, result.Error)
			}

			report, err := syncer.Run(ctx, rootPageID)
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}

			displaySyncReport(report)
			return nil
		},
	}
}

// verifyCommand creates the verify subcommand.
func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Check that the destination database exists and is accessible",
		Flags: append([]cli.Flag{verboseFlag}, databaseFlags()...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd)
			return ctx, nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := setupClient(cmd)
			if err != nil {
				return err
			}

			verifier, err := buildVerifier(cmd, newDatabaseClient(client, cmd))
			if err != nil {
				return err
			}

			result := verifier.VerifyDatabase(ctx, cmd.String("database-id"))
			displayVerifyResult(&result)
			if !result.Success {
				return fmt.Errorf("%w: %s", apperrors.ErrDatabaseNotFound, result.Error)
			}
			return nil
		},
	}
}

// provisionCommand creates the provision subcommand.
func provisionCommand() *cli.Command {
	return &cli.Command{
		Name:  "provision",
		Usage: "Find the destination database by name or create it under a parent page",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "parent",
				Aliases: []string{"p"},
				Usage:   "Parent page ID or URL under which to create the database",
				Sources: cli.EnvVars("NKB_PARENT_PAGE"),
			},
			verboseFlag,
		}, databaseFlags()...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd)
			return ctx, nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			parentInput := cmd.String("parent")
			if parentInput == "" {
				return apperrors.ErrParentPageRequired
			}

			parentPageID, err := notion.ParsePageIDOrURL(parentInput)
			if err != nil {
				return fmt.Errorf("invalid parent page ID or URL: %w", err)
			}

			client, err := setupClient(cmd)
			if err != nil {
				return err
			}

			verifier, err := buildVerifier(cmd, newDatabaseClient(client, cmd))
			if err != nil {
				return err
			}

			result := verifier.CreateDatabaseIfNeeded(ctx, parentPageID)
			displayVerifyResult(&result)
			if !result.Success {
				return fmt.Errorf("%w: %s", apperrors.ErrDatabaseNotFound, result.Error)
			}
			return nil
		},
	}
}

// serveCommand creates the serve subcommand for the webhook server.
func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the webhook server and run background syncs on workspace events",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP port to listen on",
				Value:   defaultWebhookPort,
				Sources: cli.EnvVars("NKB_WEBHOOK_PORT"),
			},
			&cli.StringFlag{
				Name:    "secret",
				Usage:   "Webhook secret for signature verification (optional, skips verification if not set)",
				Sources: cli.EnvVars("NKB_WEBHOOK_SECRET"),
			},
			&cli.StringFlag{
				Name:    "path",
				Usage:   "Webhook endpoint path",
				Value:   "/webhooks/notion",
				Sources: cli.EnvVars("NKB_WEBHOOK_PATH"),
			},
			&cli.DurationFlag{
				Name:    "sync-delay",
				Usage:   "Debounce delay before a webhook-triggered sync",
				Sources: cli.EnvVars("NKB_WEBHOOK_SYNC_DELAY"),
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Root page ID or URL of the source workspace",
				Sources: cli.EnvVars("NKB_ROOT_PAGE"),
			},
			verboseFlag,
		}, databaseFlags()...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd)
			return ctx, nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			secret := cmd.String("secret")
			if secret == "" {
				slog.Warn("webhook secret not configured - signature verification disabled (set --secret or NKB_WEBHOOK_SECRET)")
			}

			rootPageID, err := resolveRootPage(cmd)
			if err != nil {
				return err
			}

			syncer, verifier, err := buildPipeline(ctx, cmd)
			if err != nil {
				return err
			}

			if result := verifier.VerifyDatabase(ctx, cmd.String("database-id")); !result.Success {
				return fmt.Errorf("%w: %s", apperrors.ErrDatabaseNotFound, result.Error)
			}

			cfg := webhook.LoadConfigFromEnv()
			cfg.Secret = secret
			cfg.Port = cmd.Int("port")
			cfg.Path = cmd.String("path")
			if cmd.IsSet("sync-delay") {
				cfg.SyncDelay = cmd.Duration("sync-delay")
			}

			opts := []webhook.SyncWorkerOption{}
			if cfg.SyncDelay > 0 {
				opts = append(opts, webhook.WithSyncDelay(cfg.SyncDelay))
			}
			worker := webhook.NewSyncWorker(syncer, rootPageID, slog.Default(), opts...)

			server := webhook.NewServer(cfg, slog.Default(), worker)
			return server.Start(ctx)
		},
	}
}

// resolveRootPage extracts the root page ID from the --root flag.
func resolveRootPage(cmd *cli.Command) (string, error) {
	rootInput := cmd.String("root")
	if rootInput == "" {
		return "", apperrors.ErrRootPageRequired
	}

	rootPageID, err := notion.ParsePageIDOrURL(rootInput)
	if err != nil {
		return "", fmt.Errorf("invalid root page ID or URL: %w", err)
	}
	return rootPageID, nil
}

// setupClient creates the Notion client from command flags.
func setupClient(cmd *cli.Command) (*notion.Client, error) {
	token := cmd.String("token")
	if token == "" {
		token = os.Getenv("NOTION_TOKEN")
	}
	if token == "" {
		return nil, apperrors.ErrNotionTokenRequired
	}

	return notion.NewClient(token), nil
}

// newDatabaseClient creates the destination database client from flags.
func newDatabaseClient(client *notion.Client, cmd *cli.Command) *notion.DatabaseClient {
	return notion.NewDatabaseClient(client, cmd.String("database-id"), cmd.String("database-name"),
		notion.WithDatabaseLogger(slog.Default()))
}

// buildVerifier creates the schema verifier, applying a schema override file
// when configured.
func buildVerifier(cmd *cli.Command, controller schema.DatabaseController) (*schema.Verifier, error) {
	opts := []schema.VerifierOption{schema.WithVerifierLogger(slog.Default())}

	if schemaFile := cmd.String("schema-file"); schemaFile != "" {
		override, err := schema.LoadFile(schemaFile)
		if err != nil {
			return nil, fmt.Errorf("load schema override: %w", err)
		}
		slog.Info("using schema override", "file", schemaFile)
		opts = append(opts, schema.WithSchema(override))
	}

	return schema.NewVerifier(controller, opts...), nil
}

// buildPipeline assembles the full sync pipeline: source reader,
// enrichment, image archival, reconciliation engine and syncer. The
// enricher and archiver are optional and skipped when unconfigured.
func buildPipeline(ctx context.Context, cmd *cli.Command) (*sync.Syncer, *schema.Verifier, error) {
	client, err := setupClient(cmd)
	if err != nil {
		return nil, nil, err
	}

	dbClient := newDatabaseClient(client, cmd)

	verifier, err := buildVerifier(cmd, dbClient)
	if err != nil {
		return nil, nil, err
	}

	contentReader := reader.New(client, reader.WithReaderLogger(slog.Default()))
	engine := reconcile.NewEngine(dbClient, reconcile.WithEngineLogger(slog.Default()))

	syncOpts := []sync.SyncerOption{sync.WithSyncLogger(slog.Default())}

	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		enrichOpts := []enrich.AnthropicOption{enrich.WithEnrichLogger(slog.Default())}
		if imageURL := os.Getenv("NKB_IMAGE_API_URL"); imageURL != "" {
			images := enrich.NewImageClient(imageURL, os.Getenv("NKB_IMAGE_API_KEY"),
				enrich.WithImageLogger(slog.Default()))
			enrichOpts = append(enrichOpts, enrich.WithImageClient(images))
		}
		syncOpts = append(syncOpts, sync.WithEnricher(enrich.NewClient(apiKey, enrichOpts...)))
	} else {
		slog.Warn("ANTHROPIC_API_KEY not configured - summaries fall back to local truncation")
	}

	if endpoint := os.Getenv("NKB_R2_ENDPOINT"); endpoint != "" {
		bucket, bucketErr := storage.NewBucket(ctx,
			endpoint,
			os.Getenv("NKB_R2_ACCESS_KEY"),
			os.Getenv("NKB_R2_SECRET_KEY"),
			os.Getenv("NKB_R2_BUCKET"),
			os.Getenv("NKB_R2_PUBLIC_URL"),
			storage.WithBucketLogger(slog.Default()))
		if bucketErr != nil {
			return nil, nil, fmt.Errorf("create bucket client: %w", bucketErr)
		}
		syncOpts = append(syncOpts, sync.WithArchiver(
			storage.NewArchiver(bucket, storage.WithArchiverLogger(slog.Default()))))
	} else {
		slog.Info("NKB_R2_ENDPOINT not configured - image archival disabled")
	}

	return sync.NewSyncer(contentReader, engine, syncOpts...), verifier, nil
}
