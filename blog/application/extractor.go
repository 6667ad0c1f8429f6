package application

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dfryer1193/postimport/blog/domain"
	readability "github.com/go-shiori/go-readability"
)

const untitled = "Untitled"

// ErrNoArticle is returned when a page has no recognizable article content.
var ErrNoArticle = errors.New("no article content found")

// ContentExtractor isolates the main article of an HTML page.
type ContentExtractor interface {
	Extract(html string, pageURL *url.URL) (*domain.ArticleDraft, error)
}

// ReadabilityExtractor extracts articles with the readability algorithm.
type ReadabilityExtractor struct{}

var _ ContentExtractor = (*ReadabilityExtractor)(nil)

func NewReadabilityExtractor() *ReadabilityExtractor {
	return &ReadabilityExtractor{}
}

func (e *ReadabilityExtractor) Extract(html string, pageURL *url.URL) (*domain.ArticleDraft, error) {
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoArticle, err)
	}

	content := strings.TrimSpace(article.Content)
	if content == "" {
		return nil, ErrNoArticle
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = fallbackTitle(html)
	}

	return &domain.ArticleDraft{
		Title:    title,
		BodyHTML: content,
		Excerpt:  strings.TrimSpace(article.Excerpt),
	}, nil
}

// fallbackTitle looks for a title in the document head and headings when the
// readability pass produced none.
func fallbackTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return untitled
	}

	candidates := []string{
		doc.Find("title").First().Text(),
		doc.Find("h1").First().Text(),
		doc.Find(`meta[property="og:title"]`).First().AttrOr("content", ""),
	}
	for _, candidate := range candidates {
		if title := strings.Join(strings.Fields(candidate), " "); title != "" {
			return title
		}
	}
	return untitled
}
