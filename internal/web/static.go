package web

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

const (
	faviconPath   = "/favicon.ico"
	faviconMaxAge = 365 * 24 * time.Hour
	faviconAllow  = "GET, HEAD, OPTIONS"
)

// staticMiddleware serves regular files found under dir for GET and HEAD
// requests. Everything else, including missing files and directories, is
// passed on to next.
func staticMiddleware(dir string, next http.Handler) http.Handler {
	if dir == "" {
		return next
	}
	root := http.Dir(dir)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		name := path.Clean("/" + r.URL.Path)
		if hasDotSegment(name) {
			next.ServeHTTP(w, r)
			return
		}

		f, err := root.Open(name)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || !info.Mode().IsRegular() {
			next.ServeHTTP(w, r)
			return
		}

		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

func hasDotSegment(name string) bool {
	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// Favicon is an icon held in memory and served at /favicon.ico.
type Favicon struct {
	body    []byte
	etag    string
	modTime time.Time
}

// NewFavicon reads the icon at path. A missing file is an error.
func NewFavicon(path string) (*Favicon, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat favicon: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("favicon %s is a directory", path)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read favicon: %w", err)
	}

	sum := sha256.Sum256(body)
	return &Favicon{
		body:    body,
		etag:    `"` + base64.RawURLEncoding.EncodeToString(sum[:12]) + `"`,
		modTime: info.ModTime(),
	}, nil
}

// faviconMiddleware answers /favicon.ico and passes other paths to next.
func faviconMiddleware(icon *Favicon, next http.Handler) http.Handler {
	if icon == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != faviconPath {
			next.ServeHTTP(w, r)
			return
		}

		switch r.Method {
		case http.MethodGet, http.MethodHead:
		case http.MethodOptions:
			w.Header().Set("Allow", faviconAllow)
			w.Header().Set("Content-Length", "0")
			w.WriteHeader(http.StatusOK)
			return
		default:
			w.Header().Set("Allow", faviconAllow)
			writeError(w, http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(faviconMaxAge.Seconds())))
		w.Header().Set("Content-Type", "image/x-icon")
		w.Header().Set("ETag", icon.etag)
		http.ServeContent(w, r, faviconPath, icon.modTime, bytes.NewReader(icon.body))
	})
}
