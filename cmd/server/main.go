package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/demo-service/internal/application"
	"github.com/eugenenazirov/demo-service/internal/config"
	"github.com/eugenenazirov/demo-service/internal/lifecycle"
	"github.com/eugenenazirov/demo-service/internal/logging"
)

var (
	signalNotify = signal.Notify
	signalStop   = signal.Stop
)

type cliArgs struct {
	envFile   string
	overrides *config.CLIOverrides
}

func parseArgs(args []string) (cliArgs, error) {
	kingpinApp := kingpin.New("demo-service", "Demo service - renders the deployment identity page and serves static assets")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	envFile := kingpinApp.Flag("env-file", "Path to dotenv file (missing file is ignored)").Default(config.DefaultEnvFile).String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	publicDir := kingpinApp.Flag("public-dir", "Directory served as static assets").String()
	viewsDir := kingpinApp.Flag("views-dir", "Directory holding view templates").String()
	exitDelay := kingpinApp.Flag("exit-delay", "Wait between closing the listener and exiting").Default("-1s").Duration()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	if _, err := kingpinApp.Parse(args); err != nil {
		return cliArgs{}, err
	}

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
	}

	if *port != "" {
		overrides.Port = port
	}
	if *publicDir != "" {
		overrides.PublicDir = publicDir
	}
	if *viewsDir != "" {
		overrides.ViewsDir = viewsDir
	}
	if *exitDelay >= 0 {
		overrides.ExitDelay = exitDelay
	}
	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}
	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}
	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	return cliArgs{envFile: *envFile, overrides: overrides}, nil
}

func main() {
	args, err := parseArgs(os.Args[1:])
	kingpin.FatalIfError(err, "invalid arguments")

	envLoaded, err := config.LoadEnvFile(args.envFile)
	if err != nil {
		panic(fmt.Sprintf("failed to load env file: %v", err))
	}

	cfg, err := config.Load(args.overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Debug("environment resolved",
		zap.String("env_file", args.envFile),
		zap.Bool("env_file_loaded", envLoaded),
	)

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	quit, stopSignals := subscribeSignals()
	defer stopSignals()

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	res := waitForShutdown(app.Lifecycle(), quit, logger)
	if res.Abandoned || res.Err != nil {
		logger.Error("server terminated uncleanly",
			zap.Bool("abandoned_connections", res.Abandoned),
			zap.Error(res.Err),
		)
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("server terminated")
}

// subscribeSignals starts buffering SIGINT and SIGTERM. It runs before the
// listener is bound so an early signal still goes through the shutdown
// sequence instead of the default action.
func subscribeSignals() (chan os.Signal, func()) {
	quit := make(chan os.Signal, 2)
	signalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	return quit, func() { signalStop(quit) }
}

// waitForShutdown forwards signals from quit to the controller until it
// terminates. Every signal maps to the same idempotent BeginShutdown call.
func waitForShutdown(ctrl *lifecycle.Controller, quit <-chan os.Signal, logger *zap.Logger) lifecycle.Result {
	for {
		select {
		case sig := <-quit:
			logger.Info("signal received, closing HTTP server", zap.Stringer("signal", sig))
			ctrl.BeginShutdown()
		case <-ctrl.Done():
			res, _ := ctrl.AwaitTerminated(context.Background())
			return res
		}
	}
}
