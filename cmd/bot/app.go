package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"scorebot/internal/cache"
	"scorebot/internal/config"
	"scorebot/internal/driver"
	"scorebot/internal/i18n"
	"scorebot/internal/kernel"
	"scorebot/internal/observability"
	"scorebot/modules/help"
	"scorebot/modules/pingpong"
	"scorebot/modules/tracker"
	scorecache "scorebot/pkg/cache"
	"scorebot/pkg/scorebot"
	scores "scorebot/pkg/tracker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

const tracerName = "scorebot"

// healthProbeKey is read, never written, by the cache health check.
const healthProbeKey = "healthz-probe"

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dirPath, err := config.ResolveDir()
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	dir, err := config.LoadDir(dirPath)
	if err != nil {
		return fmt.Errorf("load config dir: %w", err)
	}
	app, err := config.LoadApp(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(os.Stdout, app.Level())
	logger.Info("configuration loaded", "dir", dir.Path(), "sections", dir.Sections())

	return runBot(ctx, app, driver.Environment{
		Logger: logger,
		Secret: secretLookup(dir),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	})
}

// runBot wires every component from app and blocks until ctx ends or the
// kernel stops.
func runBot(ctx context.Context, app config.App, env driver.Environment) error {
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
		env.Logger = logger
	}

	store, err := cache.Open(ctx, app.Cache)
	if err != nil {
		return err
	}
	defer func() {
		if err := cache.Close(store); err != nil {
			logger.Error("close cache", "error", err)
		}
	}()

	bundle, err := i18n.LoadEmbedded()
	if err != nil {
		return fmt.Errorf("load locales: %w", err)
	}
	localizer := bundle.Localizer(app.Locale)

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := kernel.NewMetrics(metricsRegistry)
	if err != nil {
		return fmt.Errorf("new metrics: %w", err)
	}

	kernelRuntime := buildKernelRuntime(logger, app, metrics, localizer.Text(i18n.KeyCommandFailed))

	runtimes, err := buildDriverRuntime(ctx, app, env)
	if err != nil {
		return err
	}
	router, err := driver.NewRouter(runtimes)
	if err != nil {
		return fmt.Errorf("build outbound router: %w", err)
	}

	repository := scores.NewRepository(store, scores.WithLogger(logger))
	if err := registerRuntimeServices(kernelRuntime, router, localizer, repository); err != nil {
		return err
	}
	if err := registerRuntimeModules(ctx, kernelRuntime, logger, app); err != nil {
		return err
	}
	if err := registerRuntimeDrivers(kernelRuntime, runtimes); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	runCtx, stopRun := context.WithCancel(groupCtx)
	defer stopRun()

	group.Go(func() error {
		defer stopRun()
		if err := kernelRuntime.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("run kernel: %w", err)
		}
		return nil
	})
	if app.Metrics.Addr != "" {
		server, err := observability.NewServer(
			app.Metrics.Addr,
			observability.NewRouter(metricsRegistry, map[string]observability.HealthCheck{
				"cache": cacheHealthCheck(store),
			}),
			logger,
		)
		if err != nil {
			stopRun()
			_ = group.Wait()
			return err
		}
		group.Go(func() error {
			return server.Run(runCtx)
		})
	}

	return group.Wait()
}

func buildKernelRuntime(logger *slog.Logger, app config.App, metrics *kernel.Metrics, failureReply string) *kernel.Kernel {
	return kernel.New(
		kernel.WithLogger(logger),
		kernel.WithModuleHookTimeout(app.Kernel.ModuleHookTimeout),
		kernel.WithShutdownTimeout(app.Kernel.ShutdownTimeout),
		kernel.WithQueueSize(app.Kernel.QueueSize),
		kernel.WithWorkers(app.Kernel.Workers),
		kernel.WithHandlerTimeout(app.Kernel.HandlerTimeout),
		kernel.WithFailureReply(failureReply),
		kernel.WithMetrics(metrics),
		kernel.WithTracer(otel.Tracer(tracerName)),
	)
}

func buildDriverRuntime(ctx context.Context, app config.App, env driver.Environment) ([]driver.Runtime, error) {
	registry, err := driver.NewBuiltinRegistry()
	if err != nil {
		return nil, fmt.Errorf("new builtin driver registry: %w", err)
	}

	definitions := make([]driver.Definition, 0, len(app.Drivers))
	for _, entry := range app.Drivers {
		definitions = append(definitions, driver.Definition{
			Name:    entry.Name,
			Type:    entry.Type,
			Enabled: entry.IsEnabled(),
			Config:  entry.Config,
		})
	}

	runtimes, err := registry.BuildEnabled(ctx, definitions, env)
	if err != nil {
		return nil, fmt.Errorf("build drivers: %w", err)
	}
	if len(runtimes) == 0 {
		return nil, fmt.Errorf("build drivers: no enabled driver (known types %v)", registry.Types())
	}

	return runtimes, nil
}

func registerRuntimeServices(
	kernelRuntime *kernel.Kernel,
	outbound scorebot.Outbound,
	localizer scorebot.Localizer,
	repository *scores.Repository,
) error {
	if err := kernelRuntime.RegisterService(scorebot.ServiceOutbound, outbound); err != nil {
		return fmt.Errorf("register outbound service: %w", err)
	}
	if err := kernelRuntime.RegisterService(scorebot.ServiceLocalizer, localizer); err != nil {
		return fmt.Errorf("register localizer service: %w", err)
	}
	if err := kernelRuntime.RegisterService(tracker.ServiceRepository, repository); err != nil {
		return fmt.Errorf("register tracker repository service: %w", err)
	}

	return nil
}

// registerRuntimeModules registers modules in matching priority order.
func registerRuntimeModules(ctx context.Context, kernelRuntime *kernel.Kernel, logger *slog.Logger, app config.App) error {
	modules := []scorebot.Module{
		tracker.New(tracker.WithLogger(logger), tracker.WithHelpAliases(app.HelpAliases...)),
		pingpong.New(pingpong.WithLogger(logger)),
		help.New(),
	}
	for _, module := range modules {
		if err := kernelRuntime.RegisterModule(ctx, module); err != nil {
			return fmt.Errorf("register %s module: %w", module.Name(), err)
		}
	}

	return nil
}

func registerRuntimeDrivers(kernelRuntime *kernel.Kernel, runtimes []driver.Runtime) error {
	for _, runtime := range runtimes {
		if err := kernelRuntime.RegisterDriver(runtime.Driver); err != nil {
			return fmt.Errorf("register driver %s: %w", runtime.Name, err)
		}
	}

	return nil
}

func secretLookup(dir *config.Dir) func(key string) string {
	return func(key string) string {
		return dir.String(config.SectionSecrets, key, "")
	}
}

func cacheHealthCheck(store scorecache.Store) observability.HealthCheck {
	return func(ctx context.Context) error {
		if _, err := store.Has(ctx, healthProbeKey); err != nil {
			return fmt.Errorf("cache unreachable: %w", err)
		}
		return nil
	}
}
