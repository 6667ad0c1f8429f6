package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/dfryer1193/postimport/blog/application"
	"github.com/dfryer1193/postimport/blog/domain"
)

func doJSON(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not a JSON object: %q", w.Body.String())
	}
	return body
}

func TestSavePost(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		saveErr     error
		wantStatus  int
		wantMessage string
		wantCalls   int
	}{
		{
			name:        "Saved",
			body:        `{"slug":"my-post","title":"T","content":"Body","tags":["a"],"heroImage":"/local-images/uploads/h.png"}`,
			wantStatus:  http.StatusOK,
			wantMessage: "Saved successfully",
			wantCalls:   1,
		},
		{
			name:        "Missing slug",
			body:        `{"title":"T","content":"Body"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Missing required fields",
		},
		{
			name:        "Missing content",
			body:        `{"slug":"s","title":"T"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Missing required fields",
		},
		{
			name:        "Malformed JSON",
			body:        `{"slug":`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid request body",
		},
		{
			name:        "Invalid slug",
			body:        `{"slug":"../x","title":"T","content":"Body"}`,
			saveErr:     fmt.Errorf("%w: bad slug", application.ErrInvalidDraft),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid slug",
			wantCalls:   1,
		},
		{
			name:        "Unexpected failure",
			body:        `{"slug":"s","title":"T","content":"Body"}`,
			saveErr:     errors.New("disk on fire at /secret/path"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Internal Server Error",
			wantCalls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts := &fakeDraftSaver{path: "/content/my-post.md", err: tt.saveErr}
			router := newTestRouter(t.TempDir(), &testDeps{drafts: drafts})

			w := doJSON(t, router, http.MethodPost, "/api/save-post", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}

			body := decodeBody(t, w)
			if body["message"] != tt.wantMessage {
				t.Errorf("message = %v, want %q", body["message"], tt.wantMessage)
			}
			if drafts.calls != tt.wantCalls {
				t.Errorf("Save called %d times, want %d", drafts.calls, tt.wantCalls)
			}
			if strings.Contains(w.Body.String(), "secret") {
				t.Error("error detail leaked into the response")
			}
			if tt.wantStatus == http.StatusOK {
				if body["path"] != "/content/my-post.md" {
					t.Errorf("path = %v", body["path"])
				}
				if !reflect.DeepEqual(drafts.input.Tags, []string{"a"}) || drafts.input.HeroImage != "/local-images/uploads/h.png" {
					t.Errorf("draft input not forwarded: %+v", drafts.input)
				}
			}
		})
	}
}

func TestImportPost(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{name: "Imported", body: `{"url":"https://example.com/post"}`, wantStatus: http.StatusOK},
		{name: "Missing url", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "Invalid url", body: `{"url":"nope"}`, err: application.ErrInvalidURL, wantStatus: http.StatusBadRequest},
		{name: "No article", body: `{"url":"https://example.com/post"}`, err: fmt.Errorf("wrapped: %w", application.ErrNoArticle), wantStatus: http.StatusUnprocessableEntity},
		{name: "Unreachable", body: `{"url":"https://example.com/post"}`, err: fmt.Errorf("%w: timeout", application.ErrFetchPage), wantStatus: http.StatusBadGateway},
		{name: "Unexpected", body: `{"url":"https://example.com/post"}`, err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			importer := &fakeImporter{
				result: &application.ImportResult{Slug: "post", PostPath: "/content/post.md", Images: 2, Localized: 1},
				err:    tt.err,
			}
			router := newTestRouter(t.TempDir(), &testDeps{importer: importer})

			w := doJSON(t, router, http.MethodPost, "/api/import", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}

			body := decodeBody(t, w)
			if _, ok := body["message"]; !ok {
				t.Errorf("response has no message: %v", body)
			}
			if tt.wantStatus == http.StatusOK {
				if importer.gotURL != "https://example.com/post" {
					t.Errorf("imported URL = %q", importer.gotURL)
				}
				if body["slug"] != "post" || body["images"] != float64(2) || body["localized"] != float64(1) {
					t.Errorf("unexpected body: %v", body)
				}
			}
		})
	}
}

func TestSearchIndex(t *testing.T) {
	posts := &fakePostReader{entries: []application.SearchEntry{
		{Slug: "b", Title: "B", Description: "d", PubDate: "2024-01-02", Tags: []string{"x"}},
		{Slug: "a", Title: "A", PubDate: "2024-01-01", Tags: []string{"imported"}},
	}}
	router := newTestRouter(t.TempDir(), &testDeps{posts: posts})

	w := doJSON(t, router, http.MethodGet, "/api/search.json", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	expected := `[{"slug":"b","title":"B","description":"d","pubDate":"2024-01-02","tags":["x"]},` +
		`{"slug":"a","title":"A","description":"","pubDate":"2024-01-01","tags":["imported"]}]`
	if w.Body.String() != expected {
		t.Errorf("body = %s\nwant   %s", w.Body.String(), expected)
	}
}

func TestSearchIndex_Empty(t *testing.T) {
	router := newTestRouter(t.TempDir(), &testDeps{posts: &fakePostReader{}})

	w := doJSON(t, router, http.MethodGet, "/api/search.json", "")
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Errorf("status = %d, body = %s; want 200 []", w.Code, w.Body.String())
	}
}

func TestSearchIndex_Error(t *testing.T) {
	router := newTestRouter(t.TempDir(), &testDeps{posts: &fakePostReader{err: errors.New("io")}})

	w := doJSON(t, router, http.MethodGet, "/api/search.json", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestPreviewPost(t *testing.T) {
	tests := []struct {
		name       string
		reader     *fakePostReader
		wantStatus int
	}{
		{
			name:       "Rendered",
			reader:     &fakePostReader{post: &domain.Post{Title: "Hello"}, html: []byte("<p>Hello</p>")},
			wantStatus: http.StatusOK,
		},
		{
			name:       "Not found",
			reader:     &fakePostReader{err: fmt.Errorf("%w: x", domain.ErrPostNotFound)},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "Render failure",
			reader:     &fakePostReader{err: errors.New("bad markdown")},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t.TempDir(), &testDeps{posts: tt.reader})

			w := doJSON(t, router, http.MethodGet, "/api/posts/hello/preview", "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if w.Body.String() != "<p>Hello</p>" {
					t.Errorf("body = %q", w.Body.String())
				}
				if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
					t.Errorf("Content-Type = %q", ct)
				}
			}
		})
	}
}
