package mediasource

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/egfanboy/mediapire-gateway/pkg/types"
)

const browseRootBody = `{
  "title": "Reolink",
  "media_content_id": "media-source://reolink",
  "can_expand": true,
  "can_play": false,
  "media_class": "directory",
  "children": [
    {"title": "Front door", "media_content_id": "media-source://reolink/CAM|0", "can_expand": true, "children": []},
    {"title": "", "media_content_id": "media-source://reolink/FILE|0|a.mp4", "can_expand": false, "can_play": true,
     "children": [{"title": "ignored", "media_content_id": "x"}]}
  ]
}`

func newTestIntegration(t *testing.T, srv *httptest.Server, token string) MediaSourceIntegration {
	t.Helper()
	i, err := NewMediaSourceIntegration(Config{BaseUrl: srv.URL + "/core/api", Token: token, RootId: "media-source://reolink"}, nil)
	if err != nil {
		t.Fatalf("new integration: %v", err)
	}
	return i
}

func TestBrowse_DefaultsToRootAndSendsToken(t *testing.T) {
	var gotPath, gotId, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotId = r.URL.Query().Get("media_content_id")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, browseRootBody)
	}))
	defer srv.Close()

	node, err := newTestIntegration(t, srv, "secret").Browse(context.Background(), "")
	if err != nil {
		t.Fatalf("browse: %v", err)
	}

	if gotPath != "/core/api/media_source/browse" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotId != "media-source://reolink" {
		t.Fatalf("expected root id, got %q", gotId)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected authorization %q", gotAuth)
	}

	if node.ContentID != "media-source://reolink" || !node.CanExpand || node.Parent != nil {
		t.Fatalf("unexpected root node %+v", node)
	}
	if len(node.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(node.Children))
	}
	if node.Children[0].Title != "Front door" || !node.Children[0].CanExpand {
		t.Fatalf("unexpected first child %+v", node.Children[0])
	}
	leaf := node.Children[1]
	if leaf.CanExpand || len(leaf.Children) != 0 {
		t.Fatalf("leaf must not carry children: %+v", leaf)
	}
	if leaf.DisplayTitle() != "media-source://reolink/FILE|0|a.mp4" {
		t.Fatalf("expected id as display title, got %q", leaf.DisplayTitle())
	}
}

func TestBrowse_NoTokenNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Errorf("authorization header must be omitted without a token")
		}
		fmt.Fprint(w, `{"media_content_id": "x", "can_expand": false}`)
	}))
	defer srv.Close()

	if _, err := newTestIntegration(t, srv, "").Browse(context.Background(), "x"); err != nil {
		t.Fatalf("browse: %v", err)
	}
}

func TestBrowse_ParentAndSpecialCharacters(t *testing.T) {
	id := types.ContentID("media-source://reolink/a&b=c d/ö?")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("media_content_id"); got != string(id) {
			t.Errorf("backend received %q, want %q", got, id)
		}
		fmt.Fprint(w, `{"media_content_id": "child", "parent": "media-source://reolink", "can_expand": true, "children": []}`)
	}))
	defer srv.Close()

	node, err := newTestIntegration(t, srv, "").Browse(context.Background(), id)
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if node.Parent == nil || *node.Parent != "media-source://reolink" {
		t.Fatalf("expected parent, got %v", node.Parent)
	}
}

func TestBrowse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"non 2xx", http.StatusUnauthorized, `{"message":"no"}`, func(err error) bool {
			var be *BackendError
			return errors.As(err, &be) && be.StatusCode == http.StatusUnauthorized
		}},
		{"invalid json", http.StatusOK, `<html>`, func(err error) bool { return errors.Is(err, ErrMalformedResponse) }},
		{"missing id", http.StatusOK, `{"title": "x"}`, func(err error) bool { return errors.Is(err, ErrMalformedResponse) }},
		{"child missing id", http.StatusOK, `{"media_content_id": "a", "can_expand": true, "children": [{"title": "b"}]}`,
			func(err error) bool { return errors.Is(err, ErrMalformedResponse) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestIntegration(t, srv, "").Browse(context.Background(), "a")
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

func TestBrowse_ConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	i, err := NewMediaSourceIntegration(Config{BaseUrl: "http://" + addr}, nil)
	if err != nil {
		t.Fatalf("new integration: %v", err)
	}

	_, err = i.Browse(context.Background(), "a")
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/core/api/media_source/resolve" {
			http.NotFound(w, r)
			return
		}
		switch r.URL.Query().Get("media_content_id") {
		case "abs":
			fmt.Fprint(w, `{"url": "http://origin/video.mp4", "mime_type": "video/mp4"}`)
		case "rel":
			fmt.Fprint(w, `{"url": "/media/local/clip.mp4?authSig=abc", "mime_type": "video/mp4"}`)
		case "empty":
			fmt.Fprint(w, `{"url": "", "mime_type": "video/mp4"}`)
		default:
			fmt.Fprint(w, `{"mime_type": "video/mp4"}`)
		}
	}))
	defer srv.Close()

	i := newTestIntegration(t, srv, "")

	got, err := i.Resolve(context.Background(), "abs")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Url != "http://origin/video.mp4" || got.MimeType != "video/mp4" {
		t.Fatalf("unexpected resolve result %+v", got)
	}

	got, err = i.Resolve(context.Background(), "rel")
	if err != nil {
		t.Fatalf("resolve relative: %v", err)
	}
	if want := srv.URL + "/media/local/clip.mp4?authSig=abc"; got.Url != want {
		t.Fatalf("relative url resolved to %q, want %q", got.Url, want)
	}

	for _, id := range []types.ContentID{"empty", "missing"} {
		if _, err := i.Resolve(context.Background(), id); !errors.Is(err, ErrNotResolvable) {
			t.Fatalf("%s: expected ErrNotResolvable, got %v", id, err)
		}
	}
}

func TestNewMediaSourceIntegration_RejectsRelativeBase(t *testing.T) {
	if _, err := NewMediaSourceIntegration(Config{BaseUrl: "supervisor/core/api"}, nil); err == nil {
		t.Fatalf("expected error for relative base url")
	}
}
