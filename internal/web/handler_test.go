package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/demo-service/internal/config"
	"github.com/eugenenazirov/demo-service/internal/views"
)

const testIndex = `<ul>
<li>{{.SERVICE_TENANT}}</li>
<li>{{.SERVICE_ENVIRONMENT}}</li>
<li>{{.SERVICE_NAME}}</li>
<li>{{.SERVICE_VERSION}}</li>
<li>{{.SERVICE_URL}}</li>
</ul>`

func loadTestViews(t *testing.T) *views.TemplateSet {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(testIndex), 0o600); err != nil {
		t.Fatalf("write view: %v", err)
	}
	set, err := views.Load(dir)
	if err != nil {
		t.Fatalf("load views: %v", err)
	}
	return set
}

type failingRenderer struct{}

func (failingRenderer) Render(io.Writer, string, any) error {
	return errors.New("boom")
}

func TestHandlerRendersDefaults(t *testing.T) {
	handler := NewHandler(loadTestViews(t), config.ResolveService(nil), zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<li>aws</li>") {
		t.Fatalf("expected tenant default in body: %s", body)
	}
	if strings.Count(body, "<li>default</li>") != 4 {
		t.Fatalf("expected four default values in body: %s", body)
	}
}

func TestHandlerRendersConfiguredValues(t *testing.T) {
	svc := config.ResolveService(config.MapLookup(map[string]string{
		config.KeyTenant:      "gcp",
		config.KeyEnvironment: "production",
		config.KeyName:        "storefront",
		config.KeyVersion:     "3.1.0",
		config.KeyURL:         "demo.example.com",
	}))
	handler := NewHandler(loadTestViews(t), svc, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, want := range []string{"gcp", "production", "storefront", "3.1.0", "demo.example.com"} {
		if !strings.Contains(rec.Body.String(), "<li>"+want+"</li>") {
			t.Fatalf("expected %q in body: %s", want, rec.Body.String())
		}
	}
}

func TestHandlerRenderFailureReturns500(t *testing.T) {
	handler := NewHandler(failingRenderer{}, config.ResolveService(nil), zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(contextWithRequestID(req.Context(), "req-1"))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected plain text error, got %q", ct)
	}
}

func TestHandlerWithUnknownView(t *testing.T) {
	handler := NewHandler(loadTestViews(t), config.ResolveService(nil), zaptest.NewLogger(t), WithView("missing"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unknown view, got %d", rec.Code)
	}
}

func TestRequestIDHelpers(t *testing.T) {
	ctx := contextWithRequestID(context.Background(), "abc")
	if got := requestIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}
	if got := requestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty id, got %s", got)
	}
}
