package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/dfryer1193/postimport/blog/application"
	"github.com/dfryer1193/postimport/blog/persistence"
	"github.com/dfryer1193/postimport/internal/config"
	"github.com/dfryer1193/postimport/shared/db/sqlite"
	gh "github.com/dfryer1193/postimport/shared/github"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type options struct {
	contentDir string
	assetsDir  string
	dbPath     string
	timeout    time.Duration
	prune      bool
	github     *gh.PublisherConfig
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	opts := &options{github: cfg.GitHub}

	cmd := &cobra.Command{
		Use:   "save-post <url>",
		Short: "Import a remote article into the blog content tree",
		Long: `Fetches an article, extracts its main content, converts it to Markdown
and stores it as <content-dir>/<slug>.md. Images are downloaded into
<assets-dir>/<slug>/ and referenced with relative paths.`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.contentDir, "content-dir", cfg.ContentDir, "Directory posts are written to")
	cmd.Flags().StringVar(&opts.assetsDir, "assets-dir", cfg.AssetsDir, "Root directory for downloaded images")
	cmd.Flags().StringVar(&opts.dbPath, "db", cfg.SQLite.Path, "Path of the asset ledger database")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", cfg.FetchTimeout, "Timeout for each network request")
	cmd.Flags().BoolVar(&opts.prune, "prune", cfg.PruneStaleAssets, "Delete assets of the post folder not referenced by this import")

	return cmd
}

func run(ctx context.Context, out io.Writer, sourceURL string, opts *options) error {
	database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: opts.dbPath})
	if err := database.Connect(ctx); err != nil {
		return fmt.Errorf("failed to open asset ledger: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close asset ledger")
		}
	}()

	client := &http.Client{}
	images := persistence.NewImageRepository(database.DB(), opts.assetsDir)
	posts := persistence.NewPostRepository(opts.contentDir)

	service := application.NewImportService(
		application.NewHTTPPageSource(client, opts.timeout),
		application.NewReadabilityExtractor(),
		application.NewMarkdownConverter(),
		application.NewAssetFetcher(client, images, opts.timeout),
		posts,
		images,
		opts.assetsDir,
		application.WithProgress(out),
		application.WithPruneStaleAssets(opts.prune),
		application.WithPublisher(gh.NewPublisher(opts.github)),
	)

	result, err := service.Import(ctx, sourceURL)
	if err != nil {
		return err
	}

	if len(result.StaleAssets) > 0 && !opts.prune {
		fmt.Fprintf(out, "%d stale assets left in %s (rerun with --prune to remove them)\n", len(result.StaleAssets), result.AssetDir)
	}
	return nil
}
