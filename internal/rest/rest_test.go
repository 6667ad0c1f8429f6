package rest

import (
	"context"

	"github.com/dfryer1193/postimport/blog/application"
	"github.com/dfryer1193/postimport/blog/domain"
	"github.com/gin-gonic/gin"
)

type fakeImporter struct {
	result *application.ImportResult
	err    error
	gotURL string
}

func (f *fakeImporter) Import(ctx context.Context, sourceURL string) (*application.ImportResult, error) {
	f.gotURL = sourceURL
	return f.result, f.err
}

type fakeDraftSaver struct {
	path  string
	err   error
	input application.DraftInput
	calls int
}

func (f *fakeDraftSaver) Save(ctx context.Context, in application.DraftInput) (string, error) {
	f.calls++
	f.input = in
	return f.path, f.err
}

type fakeUploader struct {
	err     error
	name    string
	content []byte
}

func (f *fakeUploader) Save(ctx context.Context, originalName string, content []byte) (string, string, error) {
	f.name = originalName
	f.content = content
	if f.err != nil {
		return "", "", f.err
	}
	return "1-" + originalName, "/local-images/uploads/1-" + originalName, nil
}

type fakePostReader struct {
	entries []application.SearchEntry
	post    *domain.Post
	html    []byte
	err     error
}

func (f *fakePostReader) SearchIndex(ctx context.Context) ([]application.SearchEntry, error) {
	return f.entries, f.err
}

func (f *fakePostReader) Preview(ctx context.Context, slug string) (*domain.Post, []byte, error) {
	return f.post, f.html, f.err
}

type testDeps struct {
	importer *fakeImporter
	drafts   *fakeDraftSaver
	uploads  *fakeUploader
	posts    *fakePostReader
}

func newTestRouter(assetsDir string, deps *testDeps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if deps.importer == nil {
		deps.importer = &fakeImporter{}
	}
	if deps.drafts == nil {
		deps.drafts = &fakeDraftSaver{}
	}
	if deps.uploads == nil {
		deps.uploads = &fakeUploader{}
	}
	if deps.posts == nil {
		deps.posts = &fakePostReader{}
	}

	router := gin.New()
	NewApi(router, NewHandlers(deps.importer, deps.drafts, deps.uploads, deps.posts, assetsDir))
	return router
}
