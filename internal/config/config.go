// Package config loads the job settings file and parses the Tracker B
// plugin configuration into typed values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default endpoint paths on Tracker A.
const (
	DefaultLoginPath   = "atr-gateway/identity-management/api/v1/auth/user/login"
	DefaultPluginPath  = "atr-gateway/ticket-management/api/v1/plugin/plugin-jira/conf"
	DefaultTicketsPath = "atr-gateway/ticket-management/api/v1/tickets"
)

// Credential sources.
const (
	CredentialSourceConsul = "consul"
	CredentialSourceEnv    = "env"
)

// Settings is the job configuration read from the YAML settings file.
// Every field has a default, so an absent file is a valid configuration.
type Settings struct {
	ExcludedStates []string      `yaml:"excluded_states"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`

	TrackerA    TrackerASettings   `yaml:"tracker_a"`
	TrackerB    TrackerBSettings   `yaml:"tracker_b"`
	Index       IndexSettings      `yaml:"index"`
	Credentials CredentialSettings `yaml:"credentials"`
	History     HistorySettings    `yaml:"history"`
	Events      EventSettings      `yaml:"events"`
	Metrics     MetricsSettings    `yaml:"metrics"`
	Schedule    ScheduleSettings   `yaml:"schedule"`
}

// TrackerASettings configures the internal ticket platform client.
type TrackerASettings struct {
	Username    string `yaml:"username"`
	PageSize    int    `yaml:"page_size"`
	LoginPath   string `yaml:"login_path"`
	PluginPath  string `yaml:"plugin_path"`
	TicketsPath string `yaml:"tickets_path"`
}

// TrackerBSettings configures JQL searches.
type TrackerBSettings struct {
	SearchPath     string `yaml:"search_path"`
	MaxResults     int    `yaml:"max_results"`
	EpicMaxResults int    `yaml:"epic_max_results"`
	EpicBatchSize  int    `yaml:"epic_batch_size"`
}

// IndexSettings configures the Elasticsearch index.
type IndexSettings struct {
	Addresses   []string `yaml:"addresses"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	SearchIndex string   `yaml:"search_index"`
	NumberField string   `yaml:"number_field"`

	// Indices maps a lower-cased ticket type to its index name. Types
	// without an entry fall back to IndexTemplate, a fmt pattern taking
	// the type.
	Indices       map[string]string `yaml:"indices"`
	IndexTemplate string            `yaml:"index_template"`
}

// CredentialSettings selects where the Tracker A admin credential comes from.
type CredentialSettings struct {
	Source        string `yaml:"source"`
	ConsulAddress string `yaml:"consul_address"`
	PasswordKey   string `yaml:"password_key"`
	BaseURLKey    string `yaml:"base_url_key"`
}

// HistorySettings configures the SQLite run history.
type HistorySettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// EventSettings configures NATS publication of marked orphans.
// An empty URL disables publication.
type EventSettings struct {
	NatsURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// MetricsSettings configures the Prometheus Pushgateway push at run end.
// An empty URL disables pushing.
type MetricsSettings struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// ScheduleSettings configures watch mode.
type ScheduleSettings struct {
	Cron       string `yaml:"cron"`
	RunOnStart bool   `yaml:"run_on_start"`
}

// Defaults returns the settings used when no file overrides them.
func Defaults() Settings {
	historyPath := filepath.Join(".orphanscan", "history.db")
	if home, err := os.UserHomeDir(); err == nil {
		historyPath = filepath.Join(home, ".orphanscan", "history.db")
	}

	return Settings{
		ExcludedStates: []string{"Closed", "Resolved"},
		HTTPTimeout:    60 * time.Second,
		TrackerA: TrackerASettings{
			Username:    "admin",
			PageSize:    10000,
			LoginPath:   DefaultLoginPath,
			PluginPath:  DefaultPluginPath,
			TicketsPath: DefaultTicketsPath,
		},
		TrackerB: TrackerBSettings{
			SearchPath:     "rest/api/2/search",
			MaxResults:     500,
			EpicMaxResults: 500,
			EpicBatchSize:  400,
		},
		Index: IndexSettings{
			Addresses:     []string{"http://localhost:9200"},
			SearchIndex:   "*",
			NumberField:   "fields.atr_coredata_number.value",
			Indices:       map[string]string{},
			IndexTemplate: "%s",
		},
		Credentials: CredentialSettings{
			Source:      CredentialSourceConsul,
			PasswordKey: "configuration/aaam-atr-v3-identity-management/admin.password",
			BaseURLKey:  "configuration/generic/base.url",
		},
		History: HistorySettings{
			Enabled: true,
			Path:    historyPath,
		},
		Events: EventSettings{
			Subject: "orphanscan.orphan.marked",
		},
		Metrics: MetricsSettings{
			Job: "orphanscan",
		},
		Schedule: ScheduleSettings{
			Cron: "0 * * * *",
		},
	}
}

// LoadSettings reads the YAML settings file at path over the defaults,
// then applies ORPHANSCAN_* environment overrides. An empty path falls
// back to ORPHANSCAN_CONFIG; if that is unset too only defaults and the
// environment apply.
func LoadSettings(path string) (*Settings, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv("ORPHANSCAN_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (s *Settings) Validate() error {
	if s.TrackerA.PageSize <= 0 {
		return fmt.Errorf("tracker_a.page_size must be positive (got %d)", s.TrackerA.PageSize)
	}
	if s.TrackerB.MaxResults <= 0 {
		return fmt.Errorf("tracker_b.max_results must be positive (got %d)", s.TrackerB.MaxResults)
	}
	if s.TrackerB.EpicMaxResults <= 0 {
		return fmt.Errorf("tracker_b.epic_max_results must be positive (got %d)", s.TrackerB.EpicMaxResults)
	}
	if s.TrackerB.EpicBatchSize <= 0 {
		return fmt.Errorf("tracker_b.epic_batch_size must be positive (got %d)", s.TrackerB.EpicBatchSize)
	}
	switch s.Credentials.Source {
	case CredentialSourceConsul, CredentialSourceEnv:
	default:
		return fmt.Errorf("credentials.source must be %q or %q (got %q)", CredentialSourceConsul, CredentialSourceEnv, s.Credentials.Source)
	}
	if len(s.Index.Addresses) == 0 {
		return fmt.Errorf("index.addresses must list at least one address")
	}
	return nil
}

// IndexFor resolves the index holding documents of ticketType.
func (s IndexSettings) IndexFor(ticketType string) string {
	t := strings.ToLower(strings.TrimSpace(ticketType))
	if idx, ok := s.Indices[t]; ok && idx != "" {
		return idx
	}
	if strings.Contains(s.IndexTemplate, "%s") {
		return fmt.Sprintf(s.IndexTemplate, t)
	}
	return t
}

func applyEnv(cfg *Settings) {
	if v := getEnv("ORPHANSCAN_ES_ADDRESSES", ""); v != "" {
		cfg.Index.Addresses = strings.Split(v, ",")
	}
	cfg.Index.Username = getEnv("ORPHANSCAN_ES_USERNAME", cfg.Index.Username)
	cfg.Index.Password = getEnv("ORPHANSCAN_ES_PASSWORD", cfg.Index.Password)
	cfg.Events.NatsURL = getEnv("ORPHANSCAN_NATS_URL", cfg.Events.NatsURL)
	cfg.Metrics.PushgatewayURL = getEnv("ORPHANSCAN_PUSHGATEWAY_URL", cfg.Metrics.PushgatewayURL)
	cfg.History.Path = getEnv("ORPHANSCAN_HISTORY_PATH", cfg.History.Path)
	cfg.Credentials.Source = getEnv("ORPHANSCAN_CREDENTIAL_SOURCE", cfg.Credentials.Source)
	cfg.Credentials.ConsulAddress = getEnv("ORPHANSCAN_CONSUL_ADDRESS", cfg.Credentials.ConsulAddress)
	cfg.TrackerA.PageSize = getEnvInt("ORPHANSCAN_PAGE_SIZE", cfg.TrackerA.PageSize)
	cfg.TrackerB.EpicBatchSize = getEnvInt("ORPHANSCAN_EPIC_BATCH_SIZE", cfg.TrackerB.EpicBatchSize)
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
