package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dfryer1193/postimport/blog/domain"
)

func TestEncodePost(t *testing.T) {
	post := &domain.Post{
		Slug:        "my-first-post",
		Title:       "It's My First Post",
		Description: "Line one\nline 'two'",
		PubDate:     "2024-03-01",
		HeroImage:   "../../assets/images/my-first-post/cover.png",
		Tags:        []string{"go", "a&b"},
		Body:        "Hello ![x](../../assets/images/my-first-post/cover.png)\n",
	}

	got, err := EncodePost(post)
	if err != nil {
		t.Fatalf("EncodePost failed: %v", err)
	}

	want := "---\n" +
		"title: 'It''s My First Post'\n" +
		"description: 'Line one line ''two'''\n" +
		"pubDate: '2024-03-01'\n" +
		"heroImage: '../../assets/images/my-first-post/cover.png'\n" +
		"tags: [\"go\",\"a&b\"]\n" +
		"---\n" +
		"\n" +
		"Hello ![x](../../assets/images/my-first-post/cover.png)\n"

	if string(got) != want {
		t.Errorf("EncodePost() =\n%s\nwant\n%s", got, want)
	}
}

func TestPostRepository_RoundTrip(t *testing.T) {
	repo := NewPostRepository(filepath.Join(t.TempDir(), "content", "blog"))
	ctx := context.Background()

	post := &domain.Post{
		Slug:        "hello-world-2024",
		Title:       "Hello, World! 2024",
		Description: "A 'quoted' summary",
		PubDate:     "2024-01-15",
		HeroImage:   "../../assets/blog-placeholder-3.jpg",
		Tags:        []string{"imported"},
		Body:        "# Heading\n\nSome text.",
	}

	path, err := repo.SavePost(ctx, post)
	if err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	if filepath.Base(path) != "hello-world-2024.md" {
		t.Errorf("path = %q, want base hello-world-2024.md", path)
	}

	got, err := repo.GetPost(ctx, "hello-world-2024")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}

	if got.Title != post.Title {
		t.Errorf("Title = %q, want %q", got.Title, post.Title)
	}
	if got.Description != post.Description {
		t.Errorf("Description = %q, want %q", got.Description, post.Description)
	}
	if got.PubDate != post.PubDate {
		t.Errorf("PubDate = %q, want %q", got.PubDate, post.PubDate)
	}
	if got.HeroImage != post.HeroImage {
		t.Errorf("HeroImage = %q, want %q", got.HeroImage, post.HeroImage)
	}
	if !reflect.DeepEqual(got.Tags, post.Tags) {
		t.Errorf("Tags = %v, want %v", got.Tags, post.Tags)
	}
	if strings.TrimSpace(got.Body) != post.Body {
		t.Errorf("Body = %q, want %q", got.Body, post.Body)
	}
}

func TestPostRepository_RoundTrip_LineBreaks(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "CRLF", input: "a\r\nb"},
		{name: "LF", input: "a\nb"},
		{name: "Lone CR", input: "a\rb"},
		{name: "Next line", input: "a\u0085b"},
		{name: "Line separator", input: "a\u2028b"},
		{name: "Paragraph separator", input: "a\u2029b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := &domain.Post{
				Slug:        "breaks",
				Title:       tt.input,
				Description: tt.input,
				PubDate:     "2024-01-15",
				Tags:        []string{tt.input, "plain"},
				Body:        "Body",
			}

			content, err := EncodePost(post)
			if err != nil {
				t.Fatalf("EncodePost failed: %v", err)
			}
			if !strings.Contains(string(content), "title: 'a b'\n") {
				t.Errorf("title not written on a single line:\n%q", content)
			}

			got, err := DecodePost("breaks", content)
			if err != nil {
				t.Fatalf("DecodePost failed: %v", err)
			}
			if got.Title != "a b" {
				t.Errorf("Title = %q, want %q", got.Title, "a b")
			}
			if got.Description != "a b" {
				t.Errorf("Description = %q, want %q", got.Description, "a b")
			}
			if !reflect.DeepEqual(got.Tags, post.Tags) {
				t.Errorf("Tags = %q, want %q", got.Tags, post.Tags)
			}

			again, err := EncodePost(got)
			if err != nil {
				t.Fatalf("EncodePost (second pass) failed: %v", err)
			}
			if string(again) != string(content) {
				t.Errorf("re-encoding changed the file:\n%q\nwant\n%q", again, content)
			}
		})
	}
}

func TestPostRepository_SavePost_Overwrites(t *testing.T) {
	repo := NewPostRepository(t.TempDir())
	ctx := context.Background()

	post := &domain.Post{Slug: "same", Title: "First", PubDate: "2024-01-01", Tags: []string{"a"}}
	if _, err := repo.SavePost(ctx, post); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	post.Title = "Second"
	if _, err := repo.SavePost(ctx, post); err != nil {
		t.Fatalf("SavePost (overwrite) failed: %v", err)
	}

	got, err := repo.GetPost(ctx, "same")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != "Second" {
		t.Errorf("Title = %q, want %q", got.Title, "Second")
	}
}

func TestPostRepository_SavePost_Invalid(t *testing.T) {
	repo := NewPostRepository(t.TempDir())

	if _, err := repo.SavePost(context.Background(), nil); err == nil {
		t.Error("SavePost should return error for nil post")
	}
	if _, err := repo.SavePost(context.Background(), &domain.Post{Slug: "../escape"}); err == nil {
		t.Error("SavePost should reject a slug with a path separator")
	}
}

func TestPostRepository_GetPost_NotFound(t *testing.T) {
	repo := NewPostRepository(t.TempDir())

	for _, slug := range []string{"nonexistent", "..", ""} {
		_, err := repo.GetPost(context.Background(), slug)
		if !errors.Is(err, domain.ErrPostNotFound) {
			t.Errorf("GetPost(%q) err = %v, want ErrPostNotFound", slug, err)
		}
	}
}

func TestPostRepository_ListPosts(t *testing.T) {
	dir := t.TempDir()
	repo := NewPostRepository(dir)
	ctx := context.Background()

	for _, p := range []*domain.Post{
		{Slug: "older", Title: "Older", PubDate: "2023-05-01", Tags: []string{"a"}},
		{Slug: "newest", Title: "Newest", PubDate: "2024-06-01", Tags: []string{"b"}},
		{Slug: "middle", Title: "Middle", PubDate: "2024-01-01", Tags: []string{"c"}},
	} {
		if _, err := repo.SavePost(ctx, p); err != nil {
			t.Fatalf("SavePost failed: %v", err)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.md"), []byte("---\ntitle: [unclosed\n---\n"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	posts, err := repo.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}

	if len(posts) != 3 {
		t.Fatalf("ListPosts returned %d posts, want 3", len(posts))
	}
	for i, want := range []string{"newest", "middle", "older"} {
		if posts[i].Slug != want {
			t.Errorf("posts[%d].Slug = %q, want %q", i, posts[i].Slug, want)
		}
	}
}

func TestPostRepository_ListPosts_MissingDirectory(t *testing.T) {
	repo := NewPostRepository(filepath.Join(t.TempDir(), "does-not-exist"))

	posts, err := repo.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Errorf("ListPosts = %v, want empty slice", posts)
	}
}
