package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dfryer1193/postimport/blog/domain"
	"github.com/rs/zerolog/log"
)

// ErrInvalidDraft is returned for drafts that are missing required fields or
// carry an unusable slug.
var ErrInvalidDraft = errors.New("invalid draft")

var (
	draftSlugRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	// ![alt](destination "optional title"), destination either <bracketed> or
	// bare with at most one level of balanced parentheses
	markdownImageRegex = regexp.MustCompile(`!\[([^\]]*)\]\(\s*(<[^<>\n]*>|(?:[^\s()]|\([^\s()]*\))+)((?:\s+"[^"]*")?)\s*\)`)

	// Upload paths only count where a URL can start, not inside remote URLs.
	editorPathRegex = regexp.MustCompile(`(^|[\s("'=<])` + regexp.QuoteMeta(LocalImagesPrefix))
)

// DraftInput is a post assembled in the editor.
type DraftInput struct {
	Slug        string
	Title       string
	Content     string
	Description string
	PubDate     string
	Tags        []string
	HeroImage   string
}

// DraftService saves editor drafts as posts, localizing remote images on the way.
type DraftService struct {
	fetcher   ImageFetcher
	posts     domain.PostRepository
	publisher domain.PostPublisher
	assetsDir string
	now       func() time.Time
}

func NewDraftService(fetcher ImageFetcher, posts domain.PostRepository, assetsDir string, publisher domain.PostPublisher) *DraftService {
	return &DraftService{
		fetcher:   fetcher,
		posts:     posts,
		publisher: publisher,
		assetsDir: assetsDir,
		now:       time.Now,
	}
}

// Save writes the draft and returns the path of the post file.
func (s *DraftService) Save(ctx context.Context, in DraftInput) (string, error) {
	if in.Slug == "" || in.Title == "" || in.Content == "" {
		return "", fmt.Errorf("%w: missing required fields", ErrInvalidDraft)
	}
	if !draftSlugRegex.MatchString(in.Slug) {
		return "", fmt.Errorf("%w: slug %q must only contain letters, digits, '-' and '_'", ErrInvalidDraft, in.Slug)
	}

	body, stored := s.localizeImages(ctx, in.Slug, in.Content)
	body = rewriteEditorPaths(body)

	hero := rewriteEditorPaths(strings.TrimSpace(in.HeroImage))
	if hero == "" {
		hero = defaultHeroImage
	}

	pubDate := strings.TrimSpace(in.PubDate)
	if pubDate == "" {
		pubDate = s.now().Format(dateLayout)
	}

	post := &domain.Post{
		Slug:        in.Slug,
		Title:       in.Title,
		Description: in.Description,
		PubDate:     pubDate,
		HeroImage:   hero,
		Tags:        CleanTags(in.Tags),
		Body:        body,
	}

	postPath, err := s.posts.SavePost(ctx, post)
	if err != nil {
		return "", fmt.Errorf("failed to save draft %s: %w", in.Slug, err)
	}

	if s.publisher != nil {
		publishPost(ctx, s.publisher, in.Slug, postPath, s.assetsDir, stored)
	}

	log.Info().Str("slug", in.Slug).Str("path", postPath).Int("localized", len(stored)).Msg("Saved draft")
	return postPath, nil
}

// localizeImages downloads remote image destinations into the slug folder and
// splices the stored paths into the body by match position, so repeated or
// overlapping sources can not be rewritten twice.
func (s *DraftService) localizeImages(ctx context.Context, slug, content string) (string, []string) {
	matches := markdownImageRegex.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content, nil
	}

	var (
		b      strings.Builder
		stored []string
		last   int
	)
	for _, m := range matches {
		destStart, destEnd := m[4], m[5]
		dest := strings.TrimSuffix(strings.TrimPrefix(content[destStart:destEnd], "<"), ">")
		if !isRemoteImage(dest) {
			continue
		}

		filename, ok := s.fetcher.FetchAndStore(ctx, dest, slug)
		if !ok {
			continue
		}

		b.WriteString(content[last:destStart])
		b.WriteString(assetLinkPrefix + slug + "/" + filename)
		last = destEnd
		stored = append(stored, filename)
	}
	b.WriteString(content[last:])

	return b.String(), stored
}

func isRemoteImage(dest string) bool {
	u, err := url.Parse(dest)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// rewriteEditorPaths maps editor upload URLs onto the site's asset tree.
func rewriteEditorPaths(s string) string {
	return editorPathRegex.ReplaceAllString(s, "${1}"+assetLinkPrefix)
}
