package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dfryer1193/postimport/blog/domain"
	"github.com/dfryer1193/postimport/shared/db/sqlite"
)

func setupTestImageRepo(t *testing.T) (*SQLiteImageRepository, string) {
	t.Helper()
	tmp := t.TempDir()

	database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: filepath.Join(tmp, "ledger.db")})
	if err := database.Connect(context.Background()); err != nil {
		t.Fatalf("Failed to open ledger: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	assetsRoot := filepath.Join(tmp, "assets", "images")
	return NewImageRepository(database.DB(), assetsRoot), assetsRoot
}

func TestImageRepository_SaveImage(t *testing.T) {
	repo, assetsRoot := setupTestImageRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	img := &domain.Image{
		Folder:      "my-first-post",
		Filename:    "cover.png",
		SourceURL:   "https://example.com/cover.png",
		ContentType: "image/png",
		Hash:        "abc123",
		Content:     []byte("fake image content"),
		UpdatedAt:   now,
		CreatedAt:   now,
	}

	if err := repo.SaveImage(ctx, img); err != nil {
		t.Fatalf("Failed to insert image: %v", err)
	}

	img.Hash = "def456"
	img.Content = []byte("updated content")
	img.UpdatedAt = now.Add(time.Hour)
	if err := repo.SaveImage(ctx, img); err != nil {
		t.Fatalf("Failed to update image: %v", err)
	}

	retrieved, err := repo.GetImage(ctx, "my-first-post/cover.png")
	if err != nil {
		t.Fatalf("Failed to get image: %v", err)
	}
	if retrieved.Hash != "def456" {
		t.Errorf("Hash = %q, want %q", retrieved.Hash, "def456")
	}
	if retrieved.SourceURL != img.SourceURL {
		t.Errorf("SourceURL = %q, want %q", retrieved.SourceURL, img.SourceURL)
	}

	content, err := os.ReadFile(filepath.Join(assetsRoot, "my-first-post", "cover.png"))
	if err != nil {
		t.Fatalf("image file not written: %v", err)
	}
	if string(content) != "updated content" {
		t.Errorf("file content = %q, want %q", content, "updated content")
	}
}

func TestImageRepository_GetImage_NotFound(t *testing.T) {
	repo, _ := setupTestImageRepo(t)

	if _, err := repo.GetImage(context.Background(), "nope/missing.jpg"); err == nil {
		t.Error("Expected error for non-existent image, got nil")
	}
	if _, err := repo.GetImage(context.Background(), ""); err == nil {
		t.Error("Expected error for empty path, got nil")
	}
}

func TestImageRepository_ListImages(t *testing.T) {
	repo, _ := setupTestImageRepo(t)
	ctx := context.Background()

	for _, img := range []*domain.Image{
		{Folder: "post-a", Filename: "b.png", Hash: "1", Content: []byte("b")},
		{Folder: "post-a", Filename: "a.jpg", Hash: "2", Content: []byte("a")},
		{Folder: "post-b", Filename: "c.gif", Hash: "3", Content: []byte("c")},
	} {
		if err := repo.SaveImage(ctx, img); err != nil {
			t.Fatalf("SaveImage(%s) failed: %v", img.Path(), err)
		}
	}

	images, err := repo.ListImages(ctx, "post-a")
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("ListImages returned %d images, want 2", len(images))
	}
	if images[0].Filename != "a.jpg" || images[1].Filename != "b.png" {
		t.Errorf("ListImages order = [%s %s], want [a.jpg b.png]", images[0].Filename, images[1].Filename)
	}

	empty, err := repo.ListImages(ctx, "post-z")
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("ListImages for unknown folder = %v, want empty slice", empty)
	}
}

func TestImageRepository_DeleteImage(t *testing.T) {
	repo, assetsRoot := setupTestImageRepo(t)
	ctx := context.Background()

	img := &domain.Image{Folder: "old-post", Filename: "stale.gif", Hash: "hash123", Content: []byte("gif")}
	if err := repo.SaveImage(ctx, img); err != nil {
		t.Fatalf("Failed to insert image: %v", err)
	}

	if err := repo.DeleteImage(ctx, img.Path()); err != nil {
		t.Fatalf("Failed to delete image: %v", err)
	}

	if _, err := repo.GetImage(ctx, img.Path()); err == nil {
		t.Error("Expected error for deleted image, got nil")
	}
	if _, err := os.Stat(filepath.Join(assetsRoot, "old-post", "stale.gif")); !os.IsNotExist(err) {
		t.Errorf("image file still present after delete: %v", err)
	}
}

func TestImageRepository_DeleteImage_Traversal(t *testing.T) {
	repo, _ := setupTestImageRepo(t)

	if err := repo.DeleteImage(context.Background(), "../../etc/passwd"); err == nil {
		t.Error("Expected error for path outside the assets root, got nil")
	}
}

func TestImageRepository_SaveImage_Invalid(t *testing.T) {
	repo, _ := setupTestImageRepo(t)
	ctx := context.Background()

	tests := []struct {
		name string
		img  *domain.Image
	}{
		{name: "nil image", img: nil},
		{name: "empty folder", img: &domain.Image{Filename: "a.png"}},
		{name: "empty filename", img: &domain.Image{Folder: "post"}},
		{name: "folder traversal", img: &domain.Image{Folder: "..", Filename: "a.png"}},
		{name: "filename with separator", img: &domain.Image{Folder: "post", Filename: "../a.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.SaveImage(ctx, tt.img); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}
