package domain

import (
	"context"
	"errors"
)

// Post represents a blog post as persisted in the content tree.
// The file base name is always the slug, so the path is fully determined by
// the content directory and Slug.
type Post struct {
	Slug        string
	Title       string
	Description string
	PubDate     string
	HeroImage   string
	Tags        []string
	Body        string
}

type PostRepository interface {
	// SavePost writes the post to <contentDir>/<slug>.md, overwriting any existing file.
	SavePost(ctx context.Context, p *Post) (string, error)

	// GetPost reads a post back from the content tree.
	GetPost(ctx context.Context, slug string) (*Post, error)

	// ListPosts returns every post in the content tree, ordered by publish date descending.
	ListPosts(ctx context.Context) ([]*Post, error)
}

// ErrPostNotFound is returned when no content file exists for a slug.
var ErrPostNotFound = errors.New("post not found")
