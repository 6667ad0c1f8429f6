package application

import (
	"context"
	"fmt"

	"github.com/dfryer1193/postimport/blog/domain"
)

// SearchEntry is one post as listed in the search index.
type SearchEntry struct {
	Slug        string
	Title       string
	Description string
	PubDate     string
	Tags        []string
}

// PostService serves read-side views of the stored posts.
type PostService struct {
	posts    domain.PostRepository
	markdown MarkdownRenderer
}

func NewPostService(posts domain.PostRepository, markdown MarkdownRenderer) *PostService {
	return &PostService{
		posts:    posts,
		markdown: markdown,
	}
}

// SearchIndex lists every post, newest first. Posts without a description get
// the first paragraph of their body instead.
func (s *PostService) SearchIndex(ctx context.Context) ([]SearchEntry, error) {
	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	entries := make([]SearchEntry, 0, len(posts))
	for _, p := range posts {
		description := p.Description
		if description == "" {
			description = extractSnippet([]byte(p.Body))
		}
		entries = append(entries, SearchEntry{
			Slug:        p.Slug,
			Title:       p.Title,
			Description: description,
			PubDate:     p.PubDate,
			Tags:        p.Tags,
		})
	}

	return entries, nil
}

// Preview renders a stored post body to HTML.
func (s *PostService) Preview(ctx context.Context, slug string) (*domain.Post, []byte, error) {
	post, err := s.posts.GetPost(ctx, slug)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.markdown.Render([]byte(post.Body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to render post %s: %w", slug, err)
	}

	return post, result.HTMLContent, nil
}
