package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/dfryer1193/postimport/blog/application"
	"github.com/dfryer1193/postimport/blog/persistence"
	"github.com/dfryer1193/postimport/internal/config"
	"github.com/dfryer1193/postimport/internal/middleware"
	"github.com/dfryer1193/postimport/internal/rest"
	"github.com/dfryer1193/postimport/shared/db/sqlite"
	gh "github.com/dfryer1193/postimport/shared/github"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	database := sqlite.NewSQLiteDB(cfg.SQLite)
	if err := database.Connect(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	client := &http.Client{}
	images := persistence.NewImageRepository(database.DB(), cfg.AssetsDir)
	posts := persistence.NewPostRepository(cfg.ContentDir)
	fetcher := application.NewAssetFetcher(client, images, cfg.FetchTimeout)
	publisher := gh.NewPublisher(cfg.GitHub)
	if publisher != nil {
		log.Info().Str("repo", cfg.GitHub.Owner+"/"+cfg.GitHub.Repo).Msg("Publishing posts to GitHub")
	}

	importService := application.NewImportService(
		application.NewHTTPPageSource(client, cfg.FetchTimeout),
		application.NewReadabilityExtractor(),
		application.NewMarkdownConverter(),
		fetcher,
		posts,
		images,
		cfg.AssetsDir,
		application.WithPruneStaleAssets(cfg.PruneStaleAssets),
		application.WithPublisher(publisher),
	)
	draftService := application.NewDraftService(fetcher, posts, cfg.AssetsDir, publisher)
	uploadService := application.NewUploadService(images)
	postService := application.NewPostService(posts, application.NewMarkdownRenderer())

	router := gin.New()
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.CustomRecovery(middleware.HandlePanics()))
	rest.NewApi(router, rest.NewHandlers(importService, draftService, uploadService, postService, cfg.AssetsDir))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}

	go func() {
		log.Info().Msg("Starting server on port :" + fmt.Sprint(cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to shutdown server")
	}

	log.Info().Msg("Server stopped")
}
