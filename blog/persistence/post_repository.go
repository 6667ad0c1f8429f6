package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/dfryer1193/postimport/blog/domain"
	"github.com/rs/zerolog/log"
)

var _ domain.PostRepository = (*FilePostRepository)(nil)

// FilePostRepository implements domain.PostRepository on top of the blog's
// content directory, one <slug>.md file per post.
type FilePostRepository struct {
	contentDir string
}

// NewPostRepository creates a new FilePostRepository rooted at contentDir
func NewPostRepository(contentDir string) *FilePostRepository {
	return &FilePostRepository{
		contentDir: contentDir,
	}
}

// PostPath returns the deterministic location of the content file for slug.
func (r *FilePostRepository) PostPath(slug string) string {
	return filepath.Join(r.contentDir, slug+".md")
}

// SavePost writes the post, silently replacing a previous file with the same slug.
func (r *FilePostRepository) SavePost(ctx context.Context, p *domain.Post) (string, error) {
	if p == nil {
		return "", fmt.Errorf("post cannot be nil")
	}

	if err := validateSegment(p.Slug); err != nil {
		return "", fmt.Errorf("invalid post slug: %w", err)
	}

	content, err := EncodePost(p)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.contentDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create content directory: %w", err)
	}

	path := r.PostPath(p.Slug)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write post file: %w", err)
	}

	return path, nil
}

// GetPost reads a single post by slug
func (r *FilePostRepository) GetPost(ctx context.Context, slug string) (*domain.Post, error) {
	if err := validateSegment(slug); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPostNotFound, err)
	}

	content, err := os.ReadFile(r.PostPath(slug))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPostNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read post file: %w", err)
	}

	return DecodePost(slug, content)
}

// ListPosts reads every Markdown file in the content directory. Files that
// cannot be parsed are logged and skipped.
func (r *FilePostRepository) ListPosts(ctx context.Context) ([]*domain.Post, error) {
	entries, err := os.ReadDir(r.contentDir)
	if errors.Is(err, os.ErrNotExist) {
		return []*domain.Post{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read content directory: %w", err)
	}

	posts := make([]*domain.Post, 0, len(entries))
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".md" && ext != ".mdx") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(r.contentDir, entry.Name()))
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read post file")
			continue
		}

		post, err := DecodePost(strings.TrimSuffix(entry.Name(), ext), content)
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Skipping post with invalid frontmatter")
			continue
		}
		posts = append(posts, post)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PubDate > posts[j].PubDate
	})

	return posts, nil
}

// EncodePost renders the content file: frontmatter in the fixed order
// title, description, pubDate, heroImage, tags, then a blank line and the body.
func EncodePost(p *domain.Post) ([]byte, error) {
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %s\n", quoteScalar(p.Title))
	fmt.Fprintf(&b, "description: %s\n", quoteScalar(p.Description))
	fmt.Fprintf(&b, "pubDate: %s\n", quoteScalar(p.PubDate))
	fmt.Fprintf(&b, "heroImage: %s\n", quoteScalar(p.HeroImage))
	fmt.Fprintf(&b, "tags: %s\n", tags)
	b.WriteString("---\n\n")
	b.WriteString(p.Body)

	return b.Bytes(), nil
}

type postFrontmatter struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	PubDate     string   `yaml:"pubDate"`
	HeroImage   string   `yaml:"heroImage"`
	Tags        []string `yaml:"tags"`
}

// DecodePost parses a content file produced by EncodePost (or written by hand).
func DecodePost(slug string, content []byte) (*domain.Post, error) {
	var meta postFrontmatter
	body, err := frontmatter.Parse(bytes.NewReader(content), &meta)
	if err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	return &domain.Post{
		Slug:        slug,
		Title:       meta.Title,
		Description: meta.Description,
		PubDate:     meta.PubDate,
		HeroImage:   meta.HeroImage,
		Tags:        meta.Tags,
		Body:        strings.TrimLeft(string(body), "\r\n"),
	}, nil
}

// yamlLineBreaks covers every rune YAML treats as a line break.
var yamlLineBreaks = strings.NewReplacer(
	"\r\n", " ",
	"\r", " ",
	"\n", " ",
	"\u0085", " ",
	"\u2028", " ",
	"\u2029", " ",
)

// quoteScalar emits a single-quoted YAML scalar. Quotes are doubled and line
// breaks collapse to spaces so every field stays on one line.
func quoteScalar(value string) string {
	value = yamlLineBreaks.Replace(value)
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// encodeTags renders tags as a compact JSON array literal.
func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tags); err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	// encoding/json escapes U+2028 and U+2029 but leaves NEL raw
	return strings.ReplaceAll(strings.TrimSuffix(buf.String(), "\n"), "\u0085", `\u0085`), nil
}
