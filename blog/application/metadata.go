package application

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/rs/zerolog/log"
)

const (
	fallbackSlug = "untitled"
	defaultTag   = "imported"
	dateLayout   = "2006-01-02"
)

const (
	tagSelector     = `meta[property="article:tag"], meta[name="keywords"]`
	pubDateSelector = `meta[property="article:published_time"], meta[name="date"], meta[name="pubdate"]`
)

var (
	slugStripRegex = regexp.MustCompile(`[^\w\s-]`)
	slugSpaceRegex = regexp.MustCompile(`\s+`)
	slugTrimRegex  = regexp.MustCompile(`^-+|-+$`)
)

// PostMetadata holds the frontmatter fields derived from a source page.
type PostMetadata struct {
	Slug    string
	Tags    []string
	PubDate string
}

// DeriveMetadata computes slug, tags and publication date for an imported page.
func DeriveMetadata(doc *goquery.Document, title string, now time.Time) PostMetadata {
	return PostMetadata{
		Slug:    Slugify(title),
		Tags:    ExtractTags(doc),
		PubDate: ExtractPubDate(doc, now),
	}
}

// Slugify turns a title into a file-name-safe identifier. Characters outside
// word characters, whitespace and hyphens are dropped rather than transliterated.
func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = slugStripRegex.ReplaceAllString(slug, "")
	slug = slugSpaceRegex.ReplaceAllString(slug, "-")
	slug = slugTrimRegex.ReplaceAllString(slug, "")
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// ExtractTags collects tags from article:tag and keywords meta elements in
// document order.
func ExtractTags(doc *goquery.Document) []string {
	var values []string
	doc.Find(tagSelector).Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok {
			values = append(values, content)
		}
	})
	return NormalizeTags(values)
}

// NormalizeTags splits comma separated values, trims them and removes empty
// entries and exact duplicates while keeping first-seen order. An empty result
// becomes the single default tag.
func NormalizeTags(values []string) []string {
	var parts []string
	for _, value := range values {
		parts = append(parts, strings.Split(value, ",")...)
	}
	return CleanTags(parts)
}

// CleanTags trims tags and drops empty entries and exact duplicates, keeping
// first-seen order. Tags are never split, so "C, C++" stays one tag.
func CleanTags(values []string) []string {
	seen := make(map[string]struct{})
	tags := make([]string, 0, len(values))
	for _, value := range values {
		tag := strings.TrimSpace(value)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return []string{defaultTag}
	}
	return tags
}

// ExtractPubDate returns the page's publication date as YYYY-MM-DD. Pages
// without a usable date get the local date of now.
func ExtractPubDate(doc *goquery.Document, now time.Time) string {
	today := now.Format(dateLayout)

	content := strings.TrimSpace(doc.Find(pubDateSelector).First().AttrOr("content", ""))
	if content == "" {
		return today
	}

	pubDate, err := parsePubDate(content)
	if err != nil {
		log.Warn().Err(err).Str("value", content).Msg("Could not parse publication date, using today")
		return today
	}
	return pubDate
}

func parsePubDate(value string) (string, error) {
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return "", fmt.Errorf("failed to parse date %q: %w", value, err)
	}
	return t.UTC().Format(dateLayout), nil
}
