package application

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/dfryer1193/postimport/blog/domain"
	"github.com/rs/zerolog/log"
)

// publishPost mirrors a written post and the assets stored for it. Publishing
// is best effort: local files are the source of truth.
func publishPost(ctx context.Context, publisher domain.PostPublisher, slug, postPath, assetsDir string, assets []string) {
	content, err := os.ReadFile(postPath)
	if err != nil {
		log.Error().Err(err).Str("path", postPath).Msg("Failed to read post for publishing")
		return
	}

	if err := publisher.PublishPost(ctx, slug, content); err != nil {
		log.Error().Err(err).Str("slug", slug).Msg("Failed to publish post")
	}

	sort.Strings(assets)
	for _, name := range assets {
		data, err := os.ReadFile(filepath.Join(assetsDir, slug, name))
		if err != nil {
			log.Error().Err(err).Str("slug", slug).Str("file", name).Msg("Failed to read asset for publishing")
			continue
		}
		if err := publisher.PublishAsset(ctx, slug, name, data); err != nil {
			log.Error().Err(err).Str("slug", slug).Str("file", name).Msg("Failed to publish asset")
		}
	}
}
