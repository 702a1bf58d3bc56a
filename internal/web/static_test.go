package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fallthroughBody = "fallthrough"

func fallthroughHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(fallthroughBody))
	})
}

func newPublicDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "css"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	files := map[string]string{
		"css/site.css": "body{margin:0}",
		".secret":      "hidden",
		"favicon.png":  "\x89PNG fake icon",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestStaticMiddleware(t *testing.T) {
	dir := newPublicDir(t)
	handler := staticMiddleware(dir, fallthroughHandler())

	cases := []struct {
		name   string
		method string
		target string
		want   string
	}{
		{"serves existing file", http.MethodGet, "/css/site.css", "body{margin:0}"},
		{"missing file falls through", http.MethodGet, "/css/missing.css", fallthroughBody},
		{"directory falls through", http.MethodGet, "/css/", fallthroughBody},
		{"root falls through", http.MethodGet, "/", fallthroughBody},
		{"dotfile falls through", http.MethodGet, "/.secret", fallthroughBody},
		{"traversal stays inside", http.MethodGet, "/../../etc/passwd", fallthroughBody},
		{"post falls through", http.MethodPost, "/css/site.css", fallthroughBody},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if got := rec.Body.String(); got != tc.want {
				t.Fatalf("expected body %q, got %q", tc.want, got)
			}
		})
	}
}

func TestStaticMiddlewareConditionalGet(t *testing.T) {
	dir := newPublicDir(t)
	handler := staticMiddleware(dir, fallthroughHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/css/site.css", nil))
	lastModified := rec.Header().Get("Last-Modified")
	if lastModified == "" {
		t.Fatalf("expected Last-Modified header")
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Fatalf("unexpected content type %q", ct)
	}

	req := httptest.NewRequest(http.MethodGet, "/css/site.css", nil)
	req.Header.Set("If-Modified-Since", lastModified)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rec.Code)
	}
}

func TestStaticMiddlewareDisabled(t *testing.T) {
	next := fallthroughHandler()
	rec := httptest.NewRecorder()
	staticMiddleware("", next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))
	if rec.Body.String() != fallthroughBody {
		t.Fatalf("expected passthrough when no dir configured")
	}
}

func TestNewFaviconMissingFile(t *testing.T) {
	if _, err := NewFavicon(filepath.Join(t.TempDir(), "favicon.png")); err == nil {
		t.Fatalf("expected error for missing favicon")
	}
	if _, err := NewFavicon(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory favicon")
	}
}

func TestFaviconMiddleware(t *testing.T) {
	dir := newPublicDir(t)
	icon, err := NewFavicon(filepath.Join(dir, "favicon.png"))
	if err != nil {
		t.Fatalf("NewFavicon returned error: %v", err)
	}
	handler := faviconMiddleware(icon, fallthroughHandler())

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rec.Body.String() != "\x89PNG fake icon" {
			t.Fatalf("unexpected body %q", rec.Body.String())
		}
		if rec.Header().Get("Content-Type") != "image/x-icon" {
			t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
		}
		if rec.Header().Get("Cache-Control") != "public, max-age=31536000" {
			t.Fatalf("unexpected cache control %q", rec.Header().Get("Cache-Control"))
		}
	})

	t.Run("if-none-match", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/favicon.ico", nil)
		req.Header.Set("If-None-Match", icon.etag)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotModified {
			t.Fatalf("expected 304, got %d", rec.Code)
		}
	})

	t.Run("options", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/favicon.ico", nil))

		if rec.Code != http.StatusOK || rec.Header().Get("Allow") != faviconAllow {
			t.Fatalf("unexpected OPTIONS response: %d %q", rec.Code, rec.Header().Get("Allow"))
		}
	})

	t.Run("post", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/favicon.ico", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
		if rec.Header().Get("Allow") != faviconAllow {
			t.Fatalf("expected Allow header on 405")
		}
	})

	t.Run("other paths pass through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.png", nil))

		if rec.Body.String() != fallthroughBody {
			t.Fatalf("expected passthrough, got %q", rec.Body.String())
		}
	})
}
