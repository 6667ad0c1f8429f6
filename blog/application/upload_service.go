package application

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dfryer1193/postimport/blog/domain"
	"github.com/gabriel-vasile/mimetype"
)

const uploadFolder = "uploads"

// UploadService stores images uploaded from the editor.
type UploadService struct {
	images domain.ImageRepository
	now    func() time.Time
}

func NewUploadService(images domain.ImageRepository) *UploadService {
	return &UploadService{
		images: images,
		now:    time.Now,
	}
}

// Save stores content under the uploads folder with a millisecond timestamp
// prefix and returns the stored file name together with its editor URL.
func (s *UploadService) Save(ctx context.Context, originalName string, content []byte) (string, string, error) {
	base := filepath.Base(filepath.Clean("/" + originalName))
	if base == "/" || base == "." {
		base = "upload"
	}

	filename := fmt.Sprintf("%d-%s", s.now().UnixMilli(), unsafeFilenameChars.ReplaceAllString(base, "_"))
	image := &domain.Image{
		Folder:      uploadFolder,
		Filename:    filename,
		ContentType: mimetype.Detect(content).String(),
		Hash:        calculateHash(content),
		Content:     content,
	}
	if err := s.images.SaveImage(ctx, image); err != nil {
		return "", "", fmt.Errorf("failed to store upload %s: %w", originalName, err)
	}

	return filename, LocalImagesPrefix + uploadFolder + "/" + filename, nil
}
