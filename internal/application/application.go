package application

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/eugenenazirov/demo-service/internal/config"
	"github.com/eugenenazirov/demo-service/internal/lifecycle"
	"github.com/eugenenazirov/demo-service/internal/views"
	"github.com/eugenenazirov/demo-service/internal/web"
)

// App encapsulates the application dependencies, HTTP server and lifecycle.
type App struct {
	router    http.Handler
	lifecycle *lifecycle.Controller
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	viewsDir, err := resolveDir(cfg.ViewsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to locate views: %w", err)
	}
	set, err := views.Load(viewsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load views: %w", err)
	}

	publicDir, err := resolveDir(cfg.PublicDir)
	if err != nil {
		return nil, fmt.Errorf("failed to locate public assets: %w", err)
	}

	faviconPath, err := resolveDir(cfg.FaviconPath)
	if err != nil {
		return nil, fmt.Errorf("failed to locate favicon: %w", err)
	}
	icon, err := web.NewFavicon(faviconPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load favicon: %w", err)
	}

	handler := web.NewHandler(set, cfg.Service, logger)
	router := web.NewRouter(handler, logger,
		web.WithStaticDir(publicDir),
		web.WithFavicon(icon),
		web.WithLogging(cfg.EnableRequestLogging),
		web.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	server := NewServer(cfg, router)

	logger.Info("application configured",
		zap.String("tenant", cfg.Service.Tenant),
		zap.String("environment", cfg.Service.Environment),
		zap.String("service", cfg.Service.Name),
		zap.String("version", cfg.Service.Version),
		zap.String("public_dir", publicDir),
		zap.String("views_dir", set.Dir()),
	)

	return &App{
		router: router,
		lifecycle: lifecycle.New(server, logger,
			lifecycle.WithExitDelay(cfg.ExitDelay),
			lifecycle.WithShutdownTimeout(cfg.ShutdownTimeout),
		),
	}, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start binds the listener and serves in the background.
func (a *App) Start() error {
	return a.lifecycle.Start()
}

// Lifecycle returns the controller driving the server shutdown sequence.
func (a *App) Lifecycle() *lifecycle.Controller {
	return a.lifecycle
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// resolveDir anchors a relative path at the module root when one can be
// found, and falls back to the working directory otherwise.
func resolveDir(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	if resolved, err := resolveProjectPath(path); err == nil {
		return resolved, nil
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("unable to locate %s: %w", path, err)
	}
	return path, nil
}

// resolveProjectPath joins relative onto the module root and checks it exists.
func resolveProjectPath(relative string) (string, error) {
	root, err := findModuleRoot()
	if err != nil {
		return "", err
	}

	candidate := filepath.Join(root, relative)
	if _, err := os.Stat(candidate); err != nil {
		return "", fmt.Errorf("unable to locate %s under %s", relative, root)
	}
	return candidate, nil
}

// findModuleRoot walks up from the working directory to the nearest go.mod.
func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no go.mod above working directory")
		}
		dir = parent
	}
}
