package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/tickloom/swmread/internal/configuration"
	"github.com/tickloom/swmread/internal/queue"
	"github.com/tickloom/swmread/internal/reader"
	"github.com/tickloom/swmread/internal/schema"
	"github.com/tickloom/swmread/internal/signalgate"
	"github.com/tickloom/swmread/internal/storefile"
	"github.com/tickloom/swmread/internal/tick"
	"github.com/tickloom/swmread/internal/trap"
	"github.com/tickloom/swmread/internal/ui"
)

//nolint:gochecknoglobals
var (
	ExitCode = 0
	Version  string

	datasetNames = []string{"dset-0", "dset-1"}

	storePath  = flag.String("f", "./my_store_file", "path to the store file")
	envFile    = flag.String("env", "", "environment file with configuration overrides")
	iterFlag   = flag.String("n", "", "number of read iterations")
	noWait     = flag.Bool("W", false, "do not wait for the writer-finished signal")
	uiEnabled  = flag.Bool("ui", false, "enable the UI")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
)

// newStdoutHandler returns the terminal [slog.Handler] used whenever the UI
// does not own the log stream.
func newStdoutHandler() slog.Handler {
	return tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	})
}

func setupLogging() *SlogManager {
	logManager := NewSlogManager()
	logManager.AddHandler("stdout", newStdoutHandler())
	slog.SetDefault(slog.New(logManager))

	return logManager
}

// setupSignalHandlers installs the process signal front-end: SIGINT and
// SIGTERM cancel the run, SIGUSR1 carries the writer-finished notification
// into the gate and SIGUSR2 forces a garbage collection cycle.
func setupSignalHandlers(cancel context.CancelFunc, gate *signalgate.Gate) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChan
		cancel()
	}()

	sigChan2 := make(chan os.Signal, 1)
	signal.Notify(sigChan2, syscall.SIGUSR1)
	go func() {
		for range sigChan2 {
			gate.Notify()
		}
	}()

	sigChan3 := make(chan os.Signal, 1)
	signal.Notify(sigChan3, syscall.SIGUSR2)
	go func() {
		for range sigChan3 {
			runtime.GC()
		}
	}()
}

// parseIterations validates the iteration budget flag. An empty value selects
// the default budget; anything else must be an unsigned integer no larger
// than the platform's maximum signed integer.
func parseIterations(value string) (int, error) {
	if value == "" {
		return reader.DefaultIterations, nil
	}

	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("(main) %w: -n=%q is not an unsigned integer", ErrInvalidFlag, value)
	}

	if parsed > math.MaxInt {
		return 0, fmt.Errorf("(main) %w: -n=%q exceeds %d", ErrInvalidFlag, value, math.MaxInt)
	}

	return int(parsed), nil
}

func startApp(ctx context.Context, wg *sync.WaitGroup, app *App) {
	defer wg.Done()

	if app.uiHandler != nil {
		slog.Info("Waiting for UI...")
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if app.uiHandler.Ready.Load() || app.uiHandler.Failed.Load() {
				break
			}
		}
	}

	if err := app.Launch(ctx); err != nil {
		ExitCode = 1
	}
}

func startUI(wg *sync.WaitGroup, app *App, logManager *SlogManager) {
	defer wg.Done()

	if app.uiHandler == nil {
		return
	}

	logManager.RemoveHandler("stdout")
	logManager.AddHandler("ui", tint.NewHandler(app.uiHandler.LogWriter, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))

	defer func() {
		logManager.RemoveHandler("ui")
		logManager.AddHandler("stdout", newStdoutHandler())
	}()

	if err := app.LaunchUI(); err != nil {
		slog.Error("UI failure: falling back to terminal.", "err", err)
	}
}

func main() {
	defer func() {
		os.Exit(ExitCode)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flag.Parse()
	logManager := setupLogging()

	gate := signalgate.New()
	setupSignalHandlers(cancel, gate)

	memObserver := newMemoryObserver(ctx)
	defer memObserver.Stop()

	cpuProfiler := NewCPUProfiler(ctx, cpuprofile)
	defer cpuProfiler.Stop()

	allocProfiler := NewAllocProfiler(ctx, memprofile)
	defer allocProfiler.Stop()

	iterations, err := parseIterations(*iterFlag)
	if err != nil {
		slog.Error("Failed to parse the iteration budget.",
			"err", err,
		)
		ExitCode = 1

		return
	}

	osProvider := &schema.OS{}
	unixProvider := &schema.Unix{}
	configProvider := &configuration.GodotenvProvider{}

	configHandler := configuration.NewHandler(configProvider)

	cfg, err := configHandler.BuildStoreConfig(*envFile)
	if err != nil {
		slog.Error("Failed to build the session configuration.",
			"err", err,
		)
		ExitCode = 1

		return
	}

	clock := tick.NewClock()
	driver := tick.NewDriver(clock, cfg.TickLen)
	defer driver.Stop()

	faultTrap := trap.New()

	file, err := storefile.Open(*storePath, storefile.ReadOnly, cfg, clock, faultTrap, osProvider, unixProvider)
	if err != nil {
		slog.Error("Failed to open the store file.",
			"path", *storePath,
			"err", err,
		)
		ExitCode = 1

		return
	}
	defer file.Close()

	readQueue := queue.NewReadQueue()

	readerHandler, err := reader.NewHandler(file, faultTrap, gate, readQueue, reader.Config{
		Datasets:      datasetNames,
		Iterations:    iterations,
		Delay:         cfg.TickLen,
		WaitForSignal: !*noWait,
	})
	if err != nil {
		slog.Error("Failed to establish the reader handler.",
			"err", err,
		)
		ExitCode = 1

		return
	}

	var uiHandler *ui.Handler
	if uiEnabled != nil && *uiEnabled {
		uiHandler = ui.NewHandler(ctx, cancel, readQueue, faultTrap)
	}

	var wg sync.WaitGroup
	app := NewApp(readerHandler, uiHandler)

	wg.Add(1)
	go startUI(&wg, app, logManager)

	wg.Add(1)
	go startApp(ctx, &wg, app)

	wg.Wait()
}
