package kernel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"scorebot/pkg/scorebot"
)

// Kernel owns modules, drivers, the command registry, and the inbound queue.
type Kernel struct {
	cfg config

	services *ServiceRegistry
	commands *CommandRegistry
	queue    chan scorebot.Message

	mu          sync.RWMutex
	modules     map[string]scorebot.Module
	moduleOrder []string
	drivers     map[string]scorebot.Driver
	driverOrder []string

	runMu   sync.Mutex
	running bool
}

// New creates a new kernel runtime.
func New(options ...Option) *Kernel {
	cfg := defaultConfig()
	for _, option := range options {
		option(&cfg)
	}

	kernelRuntime := &Kernel{
		cfg:         cfg,
		services:    NewServiceRegistry(),
		commands:    NewCommandRegistry(),
		queue:       make(chan scorebot.Message, cfg.queueSize),
		modules:     make(map[string]scorebot.Module),
		drivers:     make(map[string]scorebot.Driver),
		moduleOrder: make([]string, 0),
		driverOrder: make([]string, 0),
	}
	if err := kernelRuntime.services.Register(
		scorebot.ServiceCommandCatalog,
		&registryCommandCatalog{registry: kernelRuntime.commands},
	); err != nil {
		cfg.onAsyncError(context.Background(), "register command catalog service", err)
	}

	return kernelRuntime
}

// Services exposes the kernel service registry.
func (k *Kernel) Services() scorebot.ServiceRegistry {
	return k.services
}

// Commands exposes the command registry.
func (k *Kernel) Commands() *CommandRegistry {
	return k.commands
}

// RegisterService registers a runtime service singleton.
func (k *Kernel) RegisterService(name string, service any) error {
	if err := k.services.Register(name, service); err != nil {
		return fmt.Errorf("register service %s: %w", name, err)
	}

	return nil
}

type moduleRuntime struct {
	services scorebot.ServiceRegistry
}

func (r moduleRuntime) Services() scorebot.ServiceRegistry {
	return r.services
}

// RegisterModule runs the module OnRegister hook and appends its commands to
// the registry. Modules registered earlier take matching priority.
func (k *Kernel) RegisterModule(ctx context.Context, module scorebot.Module) error {
	if module == nil {
		return fmt.Errorf("register module: nil module")
	}
	name := module.Name()
	if name == "" {
		return fmt.Errorf("register module: empty module name")
	}

	k.mu.Lock()
	if _, exists := k.modules[name]; exists {
		k.mu.Unlock()
		return fmt.Errorf("register module %s: %w", name, scorebot.ErrModuleAlreadyRegistered)
	}
	k.modules[name] = module
	k.moduleOrder = append(k.moduleOrder, name)
	k.mu.Unlock()

	hookCtx, cancel := context.WithTimeout(ctx, k.cfg.moduleHookTimeout)
	defer cancel()

	if err := runSafely("module "+name+" OnRegister", func() error {
		return module.OnRegister(hookCtx, moduleRuntime{services: k.services})
	}); err != nil {
		k.rollbackModuleRegistration(name)
		return fmt.Errorf("register module %s: %w", name, err)
	}

	for _, command := range module.Commands() {
		if err := k.commands.Register(name, command); err != nil {
			k.rollbackModuleRegistration(name)
			return fmt.Errorf("register module %s: %w", name, err)
		}
	}

	return nil
}

// RegisterDriver registers a platform driver.
func (k *Kernel) RegisterDriver(driver scorebot.Driver) error {
	if driver == nil {
		return fmt.Errorf("register driver: nil driver")
	}
	name := driver.Name()
	if name == "" {
		return fmt.Errorf("register driver: empty name")
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.drivers[name]; exists {
		return fmt.Errorf("register driver %s: %w", name, scorebot.ErrDriverAlreadyRegistered)
	}

	k.drivers[name] = driver
	k.driverOrder = append(k.driverOrder, name)

	return nil
}

// Publish queues message for dispatch, blocking while the queue is full.
func (k *Kernel) Publish(ctx context.Context, message scorebot.Message) error {
	if err := message.Validate(); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	select {
	case k.queue <- message:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish message: %w", ctx.Err())
	}
}

// Run starts modules, workers, and drivers, and blocks until cancellation, a
// fatal driver error, or every driver returning. Messages already queued when
// drivers stop are still dispatched within the shutdown timeout.
func (k *Kernel) Run(ctx context.Context) error {
	if err := k.startRun(); err != nil {
		return err
	}
	defer k.finishRun()

	outbound, err := scorebot.ResolveAs[scorebot.Outbound](k.services, scorebot.ServiceOutbound)
	if err != nil {
		return fmt.Errorf("kernel run: %w", err)
	}
	dispatcher := newDispatcher(k.commands, outbound, k.cfg)

	if err := k.startModules(ctx); err != nil {
		return err
	}

	workerCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	waitWorkers := k.startWorkers(workerCtx, dispatcher)

	runCtx, runCancel := context.WithCancel(ctx)
	driverErr, waitDrivers := k.startDrivers(runCtx)

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case err := <-driverErr:
		runErr = err
	}

	runCancel()
	waitDrivers()
	stopWorkers()
	waitWorkers()

	if dropped := k.drainQueue(); dropped > 0 {
		k.cfg.logger.WarnContext(ctx, "dropped queued messages at shutdown", "count", dropped)
	}

	shutdownErr := k.shutdownAll(ctx)

	if isContextCancellation(runErr) {
		runErr = nil
	}
	if runErr != nil && shutdownErr != nil {
		return errors.Join(runErr, shutdownErr)
	}
	if runErr != nil {
		return runErr
	}
	if shutdownErr != nil {
		return shutdownErr
	}

	return nil
}

// startRun serializes Run invocations and rejects concurrent starts.
func (k *Kernel) startRun() error {
	k.runMu.Lock()
	defer k.runMu.Unlock()

	if k.running {
		return fmt.Errorf("kernel run: already running")
	}
	k.running = true

	return nil
}

// finishRun releases the single-run guard set by startRun.
func (k *Kernel) finishRun() {
	k.runMu.Lock()
	k.running = false
	k.runMu.Unlock()
}

// startModules invokes OnStart in registration order with per-module timeouts.
func (k *Kernel) startModules(ctx context.Context) error {
	order, modules := k.moduleSnapshot()

	for _, name := range order {
		module, exists := modules[name]
		if !exists {
			continue
		}
		hookCtx, cancel := context.WithTimeout(ctx, k.cfg.moduleHookTimeout)
		err := runSafely("module "+name+" OnStart", func() error {
			return module.OnStart(hookCtx)
		})
		cancel()
		if err != nil {
			return fmt.Errorf("start module %s: %w", name, err)
		}
	}

	return nil
}

// startWorkers launches the dispatch workers and returns a wait function
// bounded by the shutdown timeout.
func (k *Kernel) startWorkers(ctx context.Context, dispatcher *Dispatcher) func() {
	done := make(chan struct{})
	workerWG := &sync.WaitGroup{}

	for worker := range k.cfg.workers {
		workerWG.Add(1)
		go func(workerID int) {
			defer workerWG.Done()
			for {
				select {
				case <-ctx.Done():
					k.flushQueue(ctx, dispatcher, workerID)
					return
				case message := <-k.queue:
					k.dispatchOne(ctx, dispatcher, workerID, message)
				}
			}
		}(worker)
	}

	go func() {
		workerWG.Wait()
		close(done)
	}()

	return func() {
		select {
		case <-done:
		case <-time.After(k.cfg.shutdownTimeout):
			k.cfg.logger.Warn("dispatch workers did not stop before shutdown timeout")
		}
	}
}

// dispatchOne runs one message to completion. Cancelling ctx does not abort
// an in-flight dispatch; the handler timeout bounds it instead.
func (k *Kernel) dispatchOne(ctx context.Context, dispatcher *Dispatcher, workerID int, message scorebot.Message) {
	handlerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.cfg.handlerTimeout)
	defer cancel()

	err := runSafely(fmt.Sprintf("dispatch worker %d", workerID), func() error {
		_, err := dispatcher.Dispatch(handlerCtx, message)
		return err
	})
	if err != nil {
		k.cfg.onAsyncError(handlerCtx, "dispatch", err)
	}
}

// flushQueue dispatches messages queued before the drivers stopped.
func (k *Kernel) flushQueue(ctx context.Context, dispatcher *Dispatcher, workerID int) {
	for {
		select {
		case message := <-k.queue:
			k.dispatchOne(ctx, dispatcher, workerID, message)
		default:
			return
		}
	}
}

func (k *Kernel) drainQueue() int {
	dropped := 0
	for {
		select {
		case <-k.queue:
			dropped++
		default:
			return dropped
		}
	}
}

// startDrivers runs all registered drivers concurrently and returns:
// - an error channel delivering the first fatal driver error, and
// - a wait function that blocks for driver completion up to shutdown timeout.
func (k *Kernel) startDrivers(ctx context.Context) (<-chan error, func()) {
	errChannel := make(chan error, 1)
	done := make(chan struct{})
	workerWG := &sync.WaitGroup{}

	order, drivers := k.driverSnapshot()

	for _, name := range order {
		driver := drivers[name]
		if driver == nil {
			continue
		}

		workerWG.Add(1)
		go func(driverName string, adapter scorebot.Driver) {
			defer workerWG.Done()
			err := runSafely("driver "+driverName+" Start", func() error {
				return adapter.Start(ctx, k)
			})
			if err == nil || isContextCancellation(err) {
				return
			}
			select {
			case errChannel <- fmt.Errorf("run driver %s: %w", driverName, err):
			default:
			}
		}(name, driver)
	}

	go func() {
		workerWG.Wait()
		close(done)
	}()

	wait := func() {
		select {
		case <-done:
		case <-time.After(k.cfg.shutdownTimeout):
		}
	}

	go func() {
		<-done
		select {
		case errChannel <- context.Canceled:
		default:
		}
	}()

	return errChannel, wait
}

// shutdownAll tears down drivers and modules in a bounded timeout window.
// It uses WithoutCancel to ensure cleanup still runs after parent cancellation.
func (k *Kernel) shutdownAll(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.cfg.shutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := k.shutdownDrivers(shutdownCtx); err != nil {
		shutdownErr = errors.Join(shutdownErr, err)
	}
	if err := k.shutdownModules(shutdownCtx); err != nil {
		shutdownErr = errors.Join(shutdownErr, err)
	}

	if shutdownErr != nil {
		return fmt.Errorf("kernel shutdown: %w", shutdownErr)
	}

	return nil
}

// shutdownDrivers executes driver Shutdown in reverse registration order.
func (k *Kernel) shutdownDrivers(ctx context.Context) error {
	order, drivers := k.driverSnapshot()

	var shutdownErr error
	for idx := len(order) - 1; idx >= 0; idx-- {
		name := order[idx]
		driver := drivers[name]
		if driver == nil {
			continue
		}
		err := runSafely("driver "+name+" Shutdown", func() error {
			return driver.Shutdown(ctx)
		})
		if err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("shutdown driver %s: %w", name, err))
		}
	}

	return shutdownErr
}

// shutdownModules invokes OnShutdown in reverse registration order.
func (k *Kernel) shutdownModules(ctx context.Context) error {
	order, modules := k.moduleSnapshot()

	var shutdownErr error
	for idx := len(order) - 1; idx >= 0; idx-- {
		name := order[idx]
		module := modules[name]
		if module == nil {
			continue
		}
		hookCtx, cancel := context.WithTimeout(ctx, k.cfg.moduleHookTimeout)
		err := runSafely("module "+name+" OnShutdown", func() error {
			return module.OnShutdown(hookCtx)
		})
		cancel()
		if err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("shutdown module %s: %w", name, err))
		}
	}

	return shutdownErr
}

// rollbackModuleRegistration removes a partially registered module.
func (k *Kernel) rollbackModuleRegistration(name string) {
	k.commands.Unregister(name)

	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.modules, name)
	k.moduleOrder = removeOrderedName(k.moduleOrder, name)
}

func (k *Kernel) moduleSnapshot() ([]string, map[string]scorebot.Module) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	order := append([]string(nil), k.moduleOrder...)
	modules := make(map[string]scorebot.Module, len(k.modules))
	for name, module := range k.modules {
		modules[name] = module
	}

	return order, modules
}

func (k *Kernel) driverSnapshot() ([]string, map[string]scorebot.Driver) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	order := append([]string(nil), k.driverOrder...)
	drivers := make(map[string]scorebot.Driver, len(k.drivers))
	for name, driver := range k.drivers {
		drivers[name] = driver
	}

	return order, drivers
}

func removeOrderedName(order []string, name string) []string {
	kept := order[:0]
	for _, candidate := range order {
		if candidate != name {
			kept = append(kept, candidate)
		}
	}

	return kept
}

func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

var _ scorebot.MessageSink = (*Kernel)(nil)
