package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

const (
	StoreDriverPostgrest = "postgrest"
	StoreDriverPostgres  = "postgres"
	StoreDriverMemory    = "memory"
)

//go:embed filters.yaml
var defaultFilters []byte

type Config struct {
	LogLevel  string
	LogFormat string

	StoreDriver   string
	SupabaseURL   string
	SupabaseKey   string
	PostgresDSN   string
	StoreFixture  string
	GuidesTable   string
	StoreRPS      float64
	StorePageSize int

	FiltersFile string
	AllowCreate bool

	RetryMaxAttempts      int
	RetryInitialBackoffMS int
	RetryMaxBackoffMS     int
	BreakerEnabled        bool
	BreakerMinRequests    int
	BreakerFailureRatio   float64
	BreakerOpenTimeoutMS  int

	NATSURL     string
	NATSSubject string
	NATSGroup   string

	ReportDir string

	PushgatewayURL string
	MetricsPort    string
}

// LoadEnvFiles loads ENV_FILE when set, otherwise .env.local then .env.
// Variables already present in the environment are never overwritten.
func LoadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env.local: %w", err)
	}
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func Load() Config {
	return Config{
		LogLevel:  mustEnv("LOG_LEVEL", "info"),
		LogFormat: mustEnv("LOG_FORMAT", "text"),

		StoreDriver:   strings.ToLower(mustEnv("HUB_STORE_DRIVER", StoreDriverPostgrest)),
		SupabaseURL:   mustEnv("SUPABASE_URL", ""),
		SupabaseKey:   mustEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		PostgresDSN:   mustEnv("POSTGRES_DSN", ""),
		StoreFixture:  mustEnv("HUB_STORE_FIXTURE", ""),
		GuidesTable:   mustEnv("HUB_GUIDES_TABLE", "guides"),
		StoreRPS:      mustEnvFloat("HUB_STORE_RPS", 10),
		StorePageSize: mustEnvInt("HUB_STORE_PAGE_SIZE", 500),

		FiltersFile: mustEnv("HUB_FILTERS_FILE", ""),
		AllowCreate: mustEnvBool("HUB_ALLOW_CREATE", true),

		RetryMaxAttempts:      mustEnvInt("HUB_RETRY_MAX_ATTEMPTS", 3),
		RetryInitialBackoffMS: mustEnvInt("HUB_RETRY_INITIAL_BACKOFF_MS", 200),
		RetryMaxBackoffMS:     mustEnvInt("HUB_RETRY_MAX_BACKOFF_MS", 2000),
		BreakerEnabled:        mustEnvBool("HUB_BREAKER_ENABLED", true),
		BreakerMinRequests:    mustEnvInt("HUB_BREAKER_MIN_REQUESTS", 10),
		BreakerFailureRatio:   mustEnvFloat("HUB_BREAKER_FAILURE_RATIO", 0.5),
		BreakerOpenTimeoutMS:  mustEnvInt("HUB_BREAKER_OPEN_TIMEOUT_MS", 30000),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "guides.changed"),
		NATSGroup:   mustEnv("NATS_QUEUE_GROUP", ""),

		ReportDir: mustEnv("REPORT_DIR", "./data/reports"),

		PushgatewayURL: mustEnv("PUSHGATEWAY_URL", ""),
		MetricsPort:    mustEnv("METRICS_PORT", "9090"),
	}
}

// Validate rejects configurations that would reach the store without the
// credentials it needs.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgrest:
		var missing []string
		if strings.TrimSpace(c.SupabaseURL) == "" {
			missing = append(missing, "SUPABASE_URL")
		}
		if strings.TrimSpace(c.SupabaseKey) == "" {
			missing = append(missing, "SUPABASE_SERVICE_ROLE_KEY")
		}
		if len(missing) > 0 {
			return domain.WrapError(domain.ErrConfig, "validate config", fmt.Errorf("missing %s", strings.Join(missing, ", ")))
		}
		u, err := url.Parse(c.SupabaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return domain.WrapError(domain.ErrConfig, "validate config", fmt.Errorf("SUPABASE_URL %q is not an absolute url", c.SupabaseURL))
		}
	case StoreDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return domain.WrapError(domain.ErrConfig, "validate config", errors.New("missing POSTGRES_DSN"))
		}
		if !dsnHasPassword(c.PostgresDSN) {
			return domain.WrapError(domain.ErrConfig, "validate config", errors.New("POSTGRES_DSN carries no password"))
		}
	case StoreDriverMemory:
	default:
		return domain.WrapError(domain.ErrConfig, "validate config", fmt.Errorf("unknown HUB_STORE_DRIVER %q", c.StoreDriver))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return domain.WrapError(domain.ErrConfig, "validate config", fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat))
	}
	return nil
}

// LoadFilters returns the embedded filter configuration, or the file named by
// HUB_FILTERS_FILE when set.
func (c Config) LoadFilters() (domain.FilterConfig, error) {
	raw := defaultFilters
	source := "embedded filters"
	if c.FiltersFile != "" {
		data, err := os.ReadFile(c.FiltersFile)
		if err != nil {
			return domain.FilterConfig{}, domain.WrapError(domain.ErrConfig, "read filters", err)
		}
		raw = data
		source = c.FiltersFile
	}
	return ParseFilters(raw, source)
}

func ParseFilters(raw []byte, source string) (domain.FilterConfig, error) {
	var filters domain.FilterConfig
	if err := yaml.Unmarshal(raw, &filters); err != nil {
		return domain.FilterConfig{}, domain.WrapError(domain.ErrConfig, "parse "+source, err)
	}
	if err := filters.Validate(); err != nil {
		return domain.FilterConfig{}, fmt.Errorf("%s: %w", source, err)
	}
	return filters, nil
}

func dsnHasPassword(dsn string) bool {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil || u.User == nil {
			return false
		}
		pass, ok := u.User.Password()
		return ok && pass != ""
	}
	for _, field := range strings.Fields(dsn) {
		if v, ok := strings.CutPrefix(field, "password="); ok && v != "" {
			return true
		}
	}
	return false
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
