// Package wire provides dependency injection for the orphanscan application.
// Long-lived resources (run history database, NATS connection, metrics
// registry) are created lazily once per process; per-pass dependencies
// such as the Tracker A session are built fresh for every pass.
package wire

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/example/orphanscan/internal/adapters/atr"
	cliadapter "github.com/example/orphanscan/internal/adapters/cli"
	"github.com/example/orphanscan/internal/adapters/credentials"
	"github.com/example/orphanscan/internal/adapters/elastic"
	"github.com/example/orphanscan/internal/adapters/jira"
	"github.com/example/orphanscan/internal/adapters/metrics"
	"github.com/example/orphanscan/internal/adapters/natsevents"
	"github.com/example/orphanscan/internal/adapters/sqlite"
	"github.com/example/orphanscan/internal/app"
	"github.com/example/orphanscan/internal/config"
	"github.com/example/orphanscan/internal/core/reconcile"
	"github.com/example/orphanscan/internal/db"
	"github.com/example/orphanscan/internal/ports/primary"
	"github.com/example/orphanscan/internal/ports/secondary"
)

// JiraCredentials is the Tracker B login supplied on the command line.
type JiraCredentials struct {
	Username string
	Password string
}

// Validate rejects blank credentials.
func (c JiraCredentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" || strings.TrimSpace(c.Password) == "" {
		return fmt.Errorf("%w: expected <JIRA_USERNAME> <JIRA_PASSWORD>", reconcile.ErrMissingCredentials)
	}
	return nil
}

var (
	mu       sync.Mutex
	settings *config.Settings
	logger   *slog.Logger

	historyOnce sync.Once
	database    *sql.DB
	runRepo     *sqlite.RunRepository
	historyErr  error

	eventsOnce sync.Once
	publisher  *natsevents.Publisher

	metricsOnce sync.Once
	recorder    *metrics.Recorder
)

// Configure installs the settings and logger used by every constructor.
// It must be called before any other function in this package.
func Configure(s *config.Settings, l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	settings = s
	logger = l
}

// Settings returns the configured settings, falling back to defaults.
func Settings() *config.Settings {
	mu.Lock()
	defer mu.Unlock()
	if settings == nil {
		d := config.Defaults()
		settings = &d
	}
	return settings
}

// Logger returns the configured logger, falling back to slog.Default().
func Logger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// RunRepository returns the singleton run history repository.
func RunRepository() (*sqlite.RunRepository, error) {
	historyOnce.Do(func() {
		database, historyErr = db.Open(Settings().History.Path)
		if historyErr != nil {
			return
		}
		runRepo = sqlite.NewRunRepository(database)
	})
	return runRepo, historyErr
}

// RunHistoryService returns a RunHistoryService over the history database.
func RunHistoryService() (primary.RunHistoryService, error) {
	repo, err := RunRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return app.NewRunHistoryService(repo), nil
}

// RunAdapter returns a new RunAdapter writing to stdout.
func RunAdapter() (*cliadapter.RunAdapter, error) {
	return RunAdapterWithOutput(os.Stdout)
}

// RunAdapterWithOutput returns a new RunAdapter writing to the given output.
func RunAdapterWithOutput(out io.Writer) (*cliadapter.RunAdapter, error) {
	service, err := RunHistoryService()
	if err != nil {
		return nil, err
	}
	return cliadapter.NewRunAdapter(service, out), nil
}

// CredentialProvider returns the provider selected by credentials.source.
func CredentialProvider() (secondary.CredentialProvider, error) {
	s := Settings()
	switch s.Credentials.Source {
	case config.CredentialSourceEnv:
		return credentials.NewEnvProvider(s.TrackerA.Username), nil
	default:
		provider, err := credentials.NewConsulProvider(s.Credentials.ConsulAddress, s.TrackerA.Username, s.Credentials.PasswordKey, s.Credentials.BaseURLKey)
		if err != nil {
			return nil, err
		}
		return provider, nil
	}
}

// EventPublisher returns the singleton NATS publisher, or nil when events
// are disabled or the server cannot be reached.
func EventPublisher() *natsevents.Publisher {
	eventsOnce.Do(func() {
		s := Settings()
		if s.Events.NatsURL == "" {
			return
		}
		p, err := natsevents.Connect(s.Events.NatsURL, s.Events.Subject)
		if err != nil {
			Logger().Warn("orphan events disabled", "error", err)
			return
		}
		publisher = p
	})
	return publisher
}

// MetricsRecorder returns the singleton metrics recorder.
func MetricsRecorder() *metrics.Recorder {
	metricsOnce.Do(func() {
		s := Settings()
		recorder = metrics.New(s.Metrics.PushgatewayURL, s.Metrics.Job)
	})
	return recorder
}

// ReconcileService performs the per-pass bootstrap: admin credential,
// Tracker A login, plugin configuration, then the Tracker B and index
// clients. Any failure here is fatal for the pass.
func ReconcileService(ctx context.Context, jiraCreds JiraCredentials) (*app.ReconcileServiceImpl, error) {
	if err := jiraCreds.Validate(); err != nil {
		return nil, err
	}

	s := Settings()
	log := Logger()
	httpClient := &http.Client{Timeout: s.HTTPTimeout}

	provider, err := CredentialProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to create credential provider: %w", err)
	}
	admin, err := provider.AdminCredential(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracker A credential: %w", err)
	}

	platform, err := atr.NewClient(atr.Config{
		BaseURL:     admin.BaseURL,
		Username:    admin.Username,
		Password:    admin.Password,
		LoginPath:   s.TrackerA.LoginPath,
		PluginPath:  s.TrackerA.PluginPath,
		TicketsPath: s.TrackerA.TicketsPath,
		HTTPClient:  httpClient,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}
	if err := platform.Login(ctx); err != nil {
		return nil, fmt.Errorf("failed to log in to tracker A: %w", err)
	}

	doc, err := platform.PluginConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin configuration: %w", err)
	}
	plugin, err := config.ParsePlugin(*doc)
	if err != nil {
		return nil, err
	}

	searcher, err := jira.NewClient(jira.Config{
		HomeURL:    plugin.HomeURL,
		Username:   jiraCreds.Username,
		Password:   jiraCreds.Password,
		SearchPath: s.TrackerB.SearchPath,
		HTTPClient: httpClient,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	index, err := elastic.New(elastic.Config{
		Addresses: s.Index.Addresses,
		Username:  s.Index.Username,
		Password:  s.Index.Password,
	})
	if err != nil {
		return nil, err
	}

	deps := app.ReconcileDeps{
		Plugin:   plugin,
		Platform: platform,
		Searcher: searcher,
		Index:    index,
		Resolver: s.Index,
		Metrics:  MetricsRecorder(),
		Logger:   log,
	}
	if s.History.Enabled {
		if repo, err := RunRepository(); err != nil {
			log.Warn("run history disabled", "error", err)
		} else {
			deps.History = repo
		}
	}
	if p := EventPublisher(); p != nil {
		deps.Events = p
	}

	return app.NewReconcileService(deps, app.ReconcileOptions{
		ExcludedStates: s.ExcludedStates,
		PageSize:       s.TrackerA.PageSize,
		MaxResults:     s.TrackerB.MaxResults,
		EpicMaxResults: s.TrackerB.EpicMaxResults,
		EpicBatchSize:  s.TrackerB.EpicBatchSize,
		SearchIndex:    s.Index.SearchIndex,
		NumberField:    s.Index.NumberField,
	}), nil
}

// Pass returns a PassFunc that bootstraps and runs one pass. The Tracker A
// session is re-established on every call.
func Pass(jiraCreds JiraCredentials, dryRun bool) app.PassFunc {
	return func(ctx context.Context) (*reconcile.RunResult, error) {
		service, err := ReconcileService(ctx, jiraCreds)
		if err != nil {
			return nil, err
		}
		return service.Run(ctx, primary.RunOptions{DryRun: dryRun})
	}
}

// ScheduleService returns a scheduler running Pass on cronSpec.
func ScheduleService(jiraCreds JiraCredentials, cronSpec string, runOnStart, dryRun bool) (*app.ScheduleServiceImpl, error) {
	if err := jiraCreds.Validate(); err != nil {
		return nil, err
	}
	return app.NewScheduleService(Pass(jiraCreds, dryRun), cronSpec, runOnStart, Logger())
}

// ReconcileAdapterWithOutput bootstraps a pass and returns an adapter
// printing its summary to out.
func ReconcileAdapterWithOutput(ctx context.Context, jiraCreds JiraCredentials, out io.Writer) (*cliadapter.ReconcileAdapter, error) {
	service, err := ReconcileService(ctx, jiraCreds)
	if err != nil {
		return nil, err
	}
	return cliadapter.NewReconcileAdapter(service, out), nil
}

// Close releases the process-wide resources.
func Close() {
	if publisher != nil {
		publisher.Close()
	}
	if database != nil {
		if err := database.Close(); err != nil {
			Logger().Warn("failed to close run history", "error", err)
		}
	}
}
