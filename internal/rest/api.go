package rest

import (
	"context"

	"github.com/dfryer1193/postimport/blog/application"
	"github.com/dfryer1193/postimport/blog/domain"
	"github.com/gin-gonic/gin"
)

// Importer imports a remote article by URL.
type Importer interface {
	Import(ctx context.Context, sourceURL string) (*application.ImportResult, error)
}

// DraftSaver persists editor drafts.
type DraftSaver interface {
	Save(ctx context.Context, in application.DraftInput) (string, error)
}

// ImageUploader stores editor uploads.
type ImageUploader interface {
	Save(ctx context.Context, originalName string, content []byte) (string, string, error)
}

// PostReader provides read-side views of stored posts.
type PostReader interface {
	SearchIndex(ctx context.Context) ([]application.SearchEntry, error)
	Preview(ctx context.Context, slug string) (*domain.Post, []byte, error)
}

// Handlers bundles the dependencies of the admin HTTP endpoints.
type Handlers struct {
	importer  Importer
	drafts    DraftSaver
	uploads   ImageUploader
	posts     PostReader
	assetsDir string
}

func NewHandlers(importer Importer, drafts DraftSaver, uploads ImageUploader, posts PostReader, assetsDir string) *Handlers {
	return &Handlers{
		importer:  importer,
		drafts:    drafts,
		uploads:   uploads,
		posts:     posts,
		assetsDir: assetsDir,
	}
}

func NewApi(router *gin.Engine, h *Handlers) {
	apiGroup := router.Group("api")
	{
		apiGroup.POST("/save-post", h.SavePost)
		apiGroup.POST("/import", h.ImportPost)
		apiGroup.POST("/upload-image", h.UploadImage)
		apiGroup.GET("/search.json", h.SearchIndex)
		apiGroup.GET("/posts/:slug/preview", h.PreviewPost)
	}

	router.GET("/local-images/*path", h.LocalImage)
}
