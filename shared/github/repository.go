package github

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/dfryer1193/postimport/blog/domain"
	"github.com/google/go-github/v75/github"
	"github.com/rs/zerolog/log"
)

// PublisherConfig holds the target repository and the directories posts and
// assets are written to inside it.
type PublisherConfig struct {
	Token       string
	Owner       string
	Repo        string
	Branch      string
	ContentPath string
	AssetsPath  string
}

// NewPublisherConfig reads the publisher configuration from the environment.
func NewPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		Token:       os.Getenv("GITHUB_TOKEN"),
		Owner:       os.Getenv("GITHUB_OWNER"),
		Repo:        os.Getenv("GITHUB_REPO"),
		Branch:      getEnv("GITHUB_BRANCH", "main"),
		ContentPath: getEnv("GITHUB_CONTENT_PATH", "src/content/blog"),
		AssetsPath:  getEnv("GITHUB_ASSETS_PATH", "src/assets/images"),
	}
}

// Enabled reports whether enough is configured to publish.
func (c *PublisherConfig) Enabled() bool {
	return c.Token != "" && c.Owner != "" && c.Repo != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GithubPostPublisher is an implementation of domain.PostPublisher that commits
// files through the GitHub contents API.
type GithubPostPublisher struct {
	client *github.Client
	cfg    *PublisherConfig
}

var _ domain.PostPublisher = (*GithubPostPublisher)(nil)

// NewGithubPostPublisher creates a new GithubPostPublisher.
func NewGithubPostPublisher(client *github.Client, cfg *PublisherConfig) *GithubPostPublisher {
	return &GithubPostPublisher{
		client: client,
		cfg:    cfg,
	}
}

// NewPublisher returns a publisher for cfg, or nil when publishing is not configured.
func NewPublisher(cfg *PublisherConfig) domain.PostPublisher {
	if cfg == nil || !cfg.Enabled() {
		return nil
	}
	return NewGithubPostPublisher(NewClient(cfg.Token), cfg)
}

// NewClient returns a GitHub client authenticated with token.
func NewClient(token string) *github.Client {
	return github.NewClient(nil).WithAuthToken(token)
}

// PublishPost commits the post file for slug.
func (g *GithubPostPublisher) PublishPost(ctx context.Context, slug string, content []byte) error {
	repoPath := path.Join(g.cfg.ContentPath, slug+".md")
	return g.putFile(ctx, repoPath, content, fmt.Sprintf("Import post %s", slug))
}

// PublishAsset commits one asset of a post folder.
func (g *GithubPostPublisher) PublishAsset(ctx context.Context, folder string, filename string, content []byte) error {
	repoPath := path.Join(g.cfg.AssetsPath, folder, filename)
	return g.putFile(ctx, repoPath, content, fmt.Sprintf("Add asset %s/%s", folder, filename))
}

// putFile creates or updates repoPath. Files whose content already matches
// the branch are left alone so re-imports do not produce empty commits.
func (g *GithubPostPublisher) putFile(ctx context.Context, repoPath string, content []byte, message string) error {
	sha, err := g.existingSHA(ctx, repoPath)
	if err != nil {
		return err
	}

	if sha != "" && sha == gitBlobSHA(content) {
		log.Debug().Str("path", repoPath).Msg("Remote file unchanged, skipping")
		return nil
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
		Branch:  github.Ptr(g.cfg.Branch),
	}

	if sha == "" {
		op := fmt.Sprintf("creating file %s", repoPath)
		if _, _, err := g.client.Repositories.CreateFile(ctx, g.cfg.Owner, g.cfg.Repo, repoPath, opts); err != nil {
			return handleGithubError(op, err)
		}
	} else {
		op := fmt.Sprintf("updating file %s", repoPath)
		opts.SHA = github.Ptr(sha)
		if _, _, err := g.client.Repositories.UpdateFile(ctx, g.cfg.Owner, g.cfg.Repo, repoPath, opts); err != nil {
			return handleGithubError(op, err)
		}
	}

	log.Info().Str("repo", g.GetRepoFullName()).Str("path", repoPath).Msg("Published file")
	return nil
}

// existingSHA returns the blob SHA of repoPath on the configured branch, or
// an empty string when the file does not exist yet.
func (g *GithubPostPublisher) existingSHA(ctx context.Context, repoPath string) (string, error) {
	op := fmt.Sprintf("getting file %s at ref %s", repoPath, g.cfg.Branch)
	fileContent, _, _, err := g.client.Repositories.GetContents(ctx, g.cfg.Owner, g.cfg.Repo, repoPath, &github.RepositoryContentGetOptions{
		Ref: g.cfg.Branch,
	})
	if isNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", handleGithubError(op, err)
	}
	if fileContent == nil {
		return "", fmt.Errorf("github: %s is not a file", repoPath)
	}
	return fileContent.GetSHA(), nil
}

// GetRepoFullName returns the repository's full name (e.g., "owner/repo").
func (g *GithubPostPublisher) GetRepoFullName() string {
	return fmt.Sprintf("%s/%s", g.cfg.Owner, g.cfg.Repo)
}

func gitBlobSHA(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func isNotFound(err error) bool {
	var errResp *github.ErrorResponse
	return errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound
}

// handleGithubError inspects an error from the go-github client and returns a more informative, structured error.
func handleGithubError(op string, err error) error {
	if err == nil {
		return nil
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return fmt.Errorf("github: %s failed with status %d: %s", op, errResp.Response.StatusCode, strings.TrimSpace(errResp.Message))
	}

	return fmt.Errorf("github: %s failed: %w", op, err)
}
