package pluginmetrics

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/internal/nilcheck"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/runtime"
)

var (
	// ErrLoggerNil is returned when the Logger is nil and cannot proceed.
	ErrLoggerNil = errors.New("logger is nil")
	// ErrNilLauncher is returned when a launcher method is called on a nil receiver.
	ErrNilLauncher = errors.New("launcher is nil")
	// ErrEmptyApp is returned when an app name is empty or whitespace.
	ErrEmptyApp = errors.New("app name is empty")
	// ErrNilApp is returned when a nil app instance is provided.
	ErrNilApp = errors.New("app is nil")
	// ErrDuplicateApp is returned when a name is registered twice.
	ErrDuplicateApp = errors.New("app name already registered")
	// ErrConfigFailed is returned when launcher option application collected errors.
	ErrConfigFailed = errors.New("launcher configuration failed")
)

// App is a long-running component started by the Launcher, such as the
// exporter loop or the HTTP server.
type App interface {
	Run(launcher *Launcher) error
}

// LauncherOption configures a Launcher.
type LauncherOption func(l *Launcher)

// WithLogger sets the launcher logger. It is required by RunWithError.
func WithLogger(logger log.Logger) LauncherOption {
	return func(l *Launcher) {
		l.Logger = logger
	}
}

// RunApp registers app under name. Registration errors surface from RunWithError.
func RunApp(name string, app App) LauncherOption {
	return func(l *Launcher) {
		if err := l.Add(name, app); err != nil {
			l.configErrors = append(l.configErrors, fmt.Errorf("add app %q: %w", name, err))
		}
	}
}

// Launcher runs every registered App concurrently and waits for all of them.
type Launcher struct {
	Logger       log.Logger
	apps         map[string]App
	configErrors []error
}

// NewLauncher creates a Launcher.
func NewLauncher(opts ...LauncherOption) *Launcher {
	l := &Launcher{apps: make(map[string]App)}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Add registers a under appName.
func (l *Launcher) Add(appName string, a App) error {
	if l == nil {
		return ErrNilLauncher
	}

	if strings.TrimSpace(appName) == "" {
		return ErrEmptyApp
	}

	if nilcheck.Interface(a) {
		return ErrNilApp
	}

	if l.apps == nil {
		l.apps = make(map[string]App)
	}

	if _, exists := l.apps[appName]; exists {
		return ErrDuplicateApp
	}

	l.apps[appName] = a

	return nil
}

// Run is RunWithError for callers that only want the failure logged.
func (l *Launcher) Run() {
	err := l.RunWithError()
	if err == nil || l == nil || nilcheck.Interface(l.Logger) {
		return
	}

	l.Logger.Log(context.Background(), log.LevelError, "launcher error", log.Err(err))
}

// RunWithError starts every app in a recovered goroutine, in name order, and
// blocks until all have returned. App errors are joined, each prefixed with
// the app name.
func (l *Launcher) RunWithError() error {
	if l == nil {
		return ErrNilLauncher
	}

	if nilcheck.Interface(l.Logger) {
		return ErrLoggerNil
	}

	if len(l.configErrors) > 0 {
		return errors.Join(append([]error{ErrConfigFailed}, l.configErrors...)...)
	}

	names := make([]string, 0, len(l.apps))
	for name := range l.apps {
		names = append(names, name)
	}

	slices.Sort(names)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	ctx := context.Background()
	l.Logger.Log(ctx, log.LevelInfo, "starting apps", log.Int("count", len(names)))

	wg.Add(len(names))

	for _, name := range names {
		app := l.apps[name]

		runtime.SafeGoWithContextAndComponent(ctx, l.Logger, "launcher", "run_app_"+name, runtime.KeepRunning,
			func(ctx context.Context) {
				defer wg.Done()

				l.Logger.Log(ctx, log.LevelInfo, "app starting", log.String("app", name))

				if err := app.Run(l); err != nil {
					l.Logger.Log(ctx, log.LevelError, "app error", log.String("app", name), log.Err(err))

					mu.Lock()
					errs = append(errs, fmt.Errorf("%s: %w", name, err))
					mu.Unlock()

					return
				}

				l.Logger.Log(ctx, log.LevelInfo, "app finished", log.String("app", name))
			},
		)
	}

	wg.Wait()

	l.Logger.Log(ctx, log.LevelInfo, "launcher terminated")

	return errors.Join(errs...)
}
