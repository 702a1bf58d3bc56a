package web

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/eugenenazirov/demo-service/internal/config"
	"github.com/eugenenazirov/demo-service/internal/views"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// IndexView is the view rendered for every request that is not a static asset.
const IndexView = "index"

// Handler renders the index view with the deployment identity for any method
// and path.
type Handler struct {
	renderer views.Renderer
	logger   *zap.Logger
	view     string
	data     map[string]string
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithView overrides the rendered view name.
func WithView(name string) HandlerOption {
	return func(h *Handler) {
		h.view = name
	}
}

// NewHandler constructs a Handler. The template data is captured once since
// the service identity never changes after startup.
func NewHandler(renderer views.Renderer, svc config.ServiceConfig, logger *zap.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		renderer: renderer,
		logger:   logger,
		view:     IndexView,
		data:     svc.TemplateData(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Render(w, h.view, h.data); err != nil {
		h.logger.Error("render failed",
			zap.String("view", h.view),
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError)
	}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func writeError(w http.ResponseWriter, status int) {
	w.Header().Del("Content-Length")
	http.Error(w, http.StatusText(status), status)
}
