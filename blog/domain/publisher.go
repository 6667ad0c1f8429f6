package domain

import "context"

// PostPublisher mirrors written posts and their assets to a remote content
// repository. Implementations decide where inside the repository files land.
type PostPublisher interface {
	PublishPost(ctx context.Context, slug string, content []byte) error
	PublishAsset(ctx context.Context, folder string, filename string, content []byte) error
}
