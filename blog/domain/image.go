package domain

import (
	"context"
	"path"
	"time"
)

// Image represents an asset downloaded or uploaded into a per-article folder
// under the assets tree.
type Image struct {
	Folder      string
	Filename    string
	SourceURL   string
	ContentType string
	Hash        string
	Content     []byte
	UpdatedAt   time.Time
	CreatedAt   time.Time
}

// Path is the asset's location relative to the assets root.
func (i *Image) Path() string {
	return path.Join(i.Folder, i.Filename)
}

// ImageReference is one image discovered while converting an article body.
type ImageReference struct {
	OriginalSource string
	AltText        string
	Index          int
}

type ImageRepository interface {
	// SaveImage saves an image to both filesystem and ledger
	SaveImage(ctx context.Context, img *Image) error

	// GetImage retrieves an image record from the ledger
	GetImage(ctx context.Context, path string) (*Image, error)

	// ListImages returns the ledger records stored under a folder
	ListImages(ctx context.Context, folder string) ([]*Image, error)

	// DeleteImage removes an image from both filesystem and ledger
	DeleteImage(ctx context.Context, path string) error
}
