package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/dfryer1193/postimport/blog/domain"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

const (
	defaultExtension    = "jpg"
	maxSourceNameLen    = 50
	DefaultFetchTimeout = 30 * time.Second
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// ImageFetcher downloads a remote image into an asset folder.
type ImageFetcher interface {
	FetchAndStore(ctx context.Context, sourceURL string, folder string) (string, bool)
}

// AssetFetcher downloads images and persists them through the image repository.
// Failures never propagate: they are logged and reported through the ok flag.
type AssetFetcher struct {
	client  *http.Client
	images  domain.ImageRepository
	timeout time.Duration
	now     func() time.Time
	randN   func(int) int
}

var _ ImageFetcher = (*AssetFetcher)(nil)

func NewAssetFetcher(client *http.Client, images domain.ImageRepository, timeout time.Duration) *AssetFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &AssetFetcher{
		client:  client,
		images:  images,
		timeout: timeout,
		now:     time.Now,
		randN:   rand.IntN,
	}
}

// FetchAndStore downloads sourceURL into folder and returns the stored file name.
func (f *AssetFetcher) FetchAndStore(ctx context.Context, sourceURL string, folder string) (string, bool) {
	filename, err := f.fetchAndStore(ctx, sourceURL, folder)
	if err != nil {
		log.Error().Err(err).Str("url", sourceURL).Str("folder", folder).Msg("Failed to download image")
		return "", false
	}
	return filename, true
}

func (f *AssetFetcher) fetchAndStore(ctx context.Context, sourceURL string, folder string) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse image url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported image url scheme %q", u.Scheme)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create image request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status fetching image: %s", resp.Status)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read image body: %w", err)
	}

	detected := mimetype.Detect(content)
	if !strings.HasPrefix(detected.String(), "image/") {
		return "", fmt.Errorf("response is not an image: detected %s", detected.String())
	}

	contentType := resp.Header.Get("Content-Type")
	filename := deriveFilename(u, extensionForContentType(contentType), f.now(), f.randN(1000))

	image := &domain.Image{
		Folder:      folder,
		Filename:    filename,
		SourceURL:   sourceURL,
		ContentType: contentType,
		Hash:        calculateHash(content),
		Content:     content,
	}
	if err := f.images.SaveImage(ctx, image); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	return filename, nil
}

// extensionForContentType maps a declared content type to a file extension.
// Checks are substring matches in a fixed order.
func extensionForContentType(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "png"):
		return "png"
	case strings.Contains(ct, "gif"):
		return "gif"
	case strings.Contains(ct, "webp"):
		return "webp"
	case strings.Contains(ct, "jpeg"):
		return "jpg"
	case strings.Contains(ct, "svg"):
		return "svg"
	default:
		return defaultExtension
	}
}

// deriveFilename picks a local file name for an image. The last path segment
// of the source is used when it looks like a file name, otherwise a
// timestamped name is generated. The result only contains [A-Za-z0-9._-] and
// always carries an extension.
func deriveFilename(u *url.URL, ext string, now time.Time, n int) string {
	name := path.Base(u.EscapedPath())
	if name == "." || name == "/" {
		name = ""
	}

	if name == "" || len(name) > maxSourceNameLen || !strings.Contains(name, ".") {
		name = fmt.Sprintf("image-%d-%d.%s", now.UnixMilli(), n, ext)
	}

	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	if path.Ext(name) == "" {
		name += "." + ext
	}
	return name
}

func calculateHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
