package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dfryer1193/postimport/blog/domain"
	"github.com/rs/zerolog/log"
)

const (
	assetLinkPrefix  = "../../assets/images/"
	defaultHeroImage = "../../assets/blog-placeholder-3.jpg"
)

// ErrInvalidURL is returned when the import source is not an absolute http(s) URL.
var ErrInvalidURL = errors.New("invalid source url")

var placeholderRegex = regexp.MustCompile(`\]\(\./image-placeholder-(\d+)\)`)

// ImportResult summarizes one completed import.
type ImportResult struct {
	Slug        string
	Title       string
	PostPath    string
	AssetDir    string
	Images      int
	Localized   int
	StaleAssets []string
}

type ImportOption func(*ImportService)

// WithPublisher mirrors every written post and asset through publisher.
func WithPublisher(publisher domain.PostPublisher) ImportOption {
	return func(s *ImportService) {
		s.publisher = publisher
	}
}

// WithPruneStaleAssets deletes ledger assets of the post folder that the
// current import did not produce.
func WithPruneStaleAssets(prune bool) ImportOption {
	return func(s *ImportService) {
		s.prune = prune
	}
}

// WithProgress writes human readable progress lines to w.
func WithProgress(w io.Writer) ImportOption {
	return func(s *ImportService) {
		s.progress = w
	}
}

// ImportService imports a remote article into the content tree: page fetch,
// article extraction, metadata, Markdown conversion, image localization and
// the final write of the post file.
type ImportService struct {
	pages     PageSource
	extractor ContentExtractor
	converter *MarkdownConverter
	fetcher   ImageFetcher
	posts     domain.PostRepository
	images    domain.ImageRepository
	assetsDir string

	publisher domain.PostPublisher
	prune     bool
	progress  io.Writer
	now       func() time.Time
}

func NewImportService(
	pages PageSource,
	extractor ContentExtractor,
	converter *MarkdownConverter,
	fetcher ImageFetcher,
	posts domain.PostRepository,
	images domain.ImageRepository,
	assetsDir string,
	opts ...ImportOption,
) *ImportService {
	s := &ImportService{
		pages:     pages,
		extractor: extractor,
		converter: converter,
		fetcher:   fetcher,
		posts:     posts,
		images:    images,
		assetsDir: assetsDir,
		progress:  io.Discard,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Import runs the pipeline for sourceURL. Page retrieval and extraction
// failures abort the import; image failures only degrade it.
func (s *ImportService) Import(ctx context.Context, sourceURL string) (*ImportResult, error) {
	pageURL, err := url.Parse(sourceURL)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") || pageURL.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, sourceURL)
	}

	s.printf("Fetching %s...\n", sourceURL)
	html, err := s.pages.Fetch(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	draft, err := s.extractor.Extract(html, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract article from %s: %w", sourceURL, err)
	}
	s.printf("Title: %s\n", draft.Title)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page metadata: %w", err)
	}
	meta := DeriveMetadata(doc, draft.Title, s.now())

	markdown, refs, err := s.converter.Convert(draft.BodyHTML, pageURL)
	if err != nil {
		return nil, err
	}

	assetDir := filepath.Join(s.assetsDir, meta.Slug)
	if len(refs) > 0 {
		if err := os.MkdirAll(assetDir, 0755); err != nil {
			log.Error().Err(err).Str("dir", assetDir).Msg("Failed to create asset directory")
		}
	}

	s.printf("Found %d images. Downloading...\n", len(refs))
	resolved := s.resolveImages(ctx, meta.Slug, refs)

	post := &domain.Post{
		Slug:        meta.Slug,
		Title:       draft.Title,
		Description: draft.Excerpt,
		PubDate:     meta.PubDate,
		HeroImage:   resolved.hero,
		Tags:        meta.Tags,
		Body:        replacePlaceholders(markdown, resolved.destinations),
	}

	postPath, err := s.posts.SavePost(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to save post %s: %w", meta.Slug, err)
	}
	s.printf("Saved article to %s\n", postPath)
	s.printf("Images saved to %s\n", assetDir)

	stale := s.reconcileAssets(ctx, meta.Slug, resolved.stored)

	if s.publisher != nil {
		publishPost(ctx, s.publisher, meta.Slug, postPath, s.assetsDir, resolved.storedNames())
	}

	log.Info().
		Str("slug", meta.Slug).
		Str("path", postPath).
		Int("images", len(refs)).
		Int("localized", len(resolved.stored)).
		Msg("Imported article")

	return &ImportResult{
		Slug:        meta.Slug,
		Title:       draft.Title,
		PostPath:    postPath,
		AssetDir:    assetDir,
		Images:      len(refs),
		Localized:   len(resolved.stored),
		StaleAssets: stale,
	}, nil
}

type resolvedImages struct {
	destinations []string
	hero         string
	stored       map[string]bool
}

func (r resolvedImages) storedNames() []string {
	names := make([]string, 0, len(r.stored))
	for name := range r.stored {
		names = append(names, name)
	}
	return names
}

// resolveImages fetches references one at a time in document order. A stored
// image resolves to its relative asset path, a failed one to its source URL.
// Only the first reference can become the hero image.
func (s *ImportService) resolveImages(ctx context.Context, folder string, refs []domain.ImageReference) resolvedImages {
	resolved := resolvedImages{
		destinations: make([]string, len(refs)),
		hero:         defaultHeroImage,
		stored:       make(map[string]bool),
	}

	for _, ref := range refs {
		filename, ok := s.fetcher.FetchAndStore(ctx, ref.OriginalSource, folder)
		if !ok {
			resolved.destinations[ref.Index] = ref.OriginalSource
			continue
		}

		relative := assetLinkPrefix + folder + "/" + filename
		resolved.destinations[ref.Index] = relative
		resolved.stored[filename] = true
		if ref.Index == 0 {
			resolved.hero = relative
		}
	}

	return resolved
}

// replacePlaceholders swaps every placeholder destination for its resolution
// in a single pass. Placeholders without a resolution are left untouched.
func replacePlaceholders(markdown string, destinations []string) string {
	return placeholderRegex.ReplaceAllStringFunc(markdown, func(match string) string {
		sub := placeholderRegex.FindStringSubmatch(match)
		index, err := strconv.Atoi(sub[1])
		if err != nil || index >= len(destinations) {
			return match
		}
		return "](" + destinations[index] + ")"
	})
}

// reconcileAssets reports ledger assets of folder that were not produced by
// the current run and removes them when pruning is enabled. Only downloaded
// assets are considered; editor uploads carry no source URL and are never stale.
func (s *ImportService) reconcileAssets(ctx context.Context, folder string, kept map[string]bool) []string {
	if s.images == nil {
		return nil
	}

	records, err := s.images.ListImages(ctx, folder)
	if err != nil {
		log.Warn().Err(err).Str("folder", folder).Msg("Failed to list stored assets")
		return nil
	}

	var stale []string
	for _, record := range records {
		if kept[record.Filename] || record.SourceURL == "" {
			continue
		}
		stale = append(stale, record.Path())

		if !s.prune {
			log.Warn().Str("path", record.Path()).Msg("Stale asset left in place")
			continue
		}
		if err := s.images.DeleteImage(ctx, record.Path()); err != nil {
			log.Error().Err(err).Str("path", record.Path()).Msg("Failed to prune stale asset")
			continue
		}
		log.Info().Str("path", record.Path()).Msg("Pruned stale asset")
	}

	return stale
}

func (s *ImportService) printf(format string, args ...any) {
	fmt.Fprintf(s.progress, format, args...)
}
