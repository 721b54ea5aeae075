package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// DefaultSource is the data.gov.in water quality resource.
const DefaultSource = "data_gov_in"

const defaultDataGovURL = "https://api.data.gov.in/rest/water-quality"

// dotenvPath is loaded before reading the environment. Variables already set
// in the process environment take precedence.
var dotenvPath = ".env"

// Source describes one upstream open-data endpoint.
type Source struct {
	Name      string
	Type      string // reading source type, "government" or "sensor"
	APIURL    string
	APIKey    string
	RateLimit int // requests per minute
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	// IngestInterval of zero runs the pipeline once and exits.
	IngestInterval time.Duration

	DatabaseURL  string
	ProbeTimeout time.Duration
	SQLitePath   string

	AllowSampleData bool
	SampleSeed      uint64

	Sources        []Source
	PageSize       int
	MaxPages       int
	RequestTimeout time.Duration

	// Weather enrichment is enabled when WeatherAPIKey is set.
	WeatherAPIKey       string
	WeatherBaseURL      string
	WeatherMaxLocations int
	WeatherCacheSize    int

	// Reading publication is enabled when KafkaBrokers is non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// Raw page archival is enabled when ArchiveBucket is set.
	ArchiveBucket   string
	ArchivePrefix   string
	ArchiveRegion   string
	ArchiveEndpoint string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load(dotenvPath)

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		DatabaseURL:     databaseURL(),
		SQLitePath:      sharedcfg.EnvOrDefault("SQLITE_PATH", "water_quality_data.db"),
		WeatherAPIKey:   strings.TrimSpace(os.Getenv("WEATHER_API_KEY")),
		WeatherBaseURL:  sharedcfg.EnvOrDefault("WEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5/weather"),
		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "water-quality-readings"),
		ArchiveBucket:   strings.TrimSpace(os.Getenv("ARCHIVE_BUCKET")),
		ArchivePrefix:   sharedcfg.EnvOrDefault("ARCHIVE_PREFIX", "raw"),
		ArchiveRegion:   sharedcfg.EnvOrDefault("ARCHIVE_REGION", "us-east-1"),
		ArchiveEndpoint: os.Getenv("ARCHIVE_ENDPOINT"),
	}

	if cfg.IngestInterval, err = parseDuration("INGEST_INTERVAL", "0s", true); err != nil {
		return nil, err
	}
	if cfg.ProbeTimeout, err = parseDuration("DB_PROBE_TIMEOUT", "5s", false); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = parseDuration("REQUEST_TIMEOUT", "30s", false); err != nil {
		return nil, err
	}
	if cfg.AllowSampleData, err = parseBool("ALLOW_SAMPLE_DATA", false); err != nil {
		return nil, err
	}
	if cfg.SampleSeed, err = strconv.ParseUint(sharedcfg.EnvOrDefault("SAMPLE_SEED", "42"), 10, 64); err != nil {
		return nil, errors.New("invalid SAMPLE_SEED")
	}
	if cfg.PageSize, err = parsePositiveInt("PAGE_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = parsePositiveInt("MAX_PAGES", 50); err != nil {
		return nil, err
	}
	if cfg.WeatherMaxLocations, err = parsePositiveInt("WEATHER_MAX_LOCATIONS", 5); err != nil {
		return nil, err
	}
	if cfg.WeatherCacheSize, err = parsePositiveInt("WEATHER_CACHE_SIZE", 256); err != nil {
		return nil, err
	}
	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}
	if cfg.Sources, err = loadSources(); err != nil {
		return nil, err
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// Credentials maps source names, plus "weather", to their configured keys.
func (c *Config) Credentials() map[string]string {
	creds := make(map[string]string, len(c.Sources)+1)
	for _, s := range c.Sources {
		creds[s.Name] = s.APIKey
	}
	creds[WeatherCredential] = c.WeatherAPIKey
	return creds
}

// WeatherCredential is the credential name of the weather API.
const WeatherCredential = "weather"

func loadSources() ([]Source, error) {
	names := strings.Split(sharedcfg.EnvOrDefault("SOURCES", DefaultSource), ",")
	seen := make(map[string]bool, len(names))
	var sources []Source
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		prefix := strings.ToUpper(name) + "_"

		defaultURL := ""
		if name == DefaultSource {
			defaultURL = defaultDataGovURL
		}
		src := Source{
			Name:   name,
			Type:   sharedcfg.EnvOrDefault(prefix+"SOURCE_TYPE", "government"),
			APIURL: sharedcfg.EnvOrDefault(prefix+"API_URL", defaultURL),
			APIKey: strings.TrimSpace(os.Getenv(prefix + "API_KEY")),
		}
		if src.APIURL == "" {
			return nil, fmt.Errorf("%sAPI_URL is required", prefix)
		}
		if src.Type != "government" && src.Type != "sensor" {
			return nil, fmt.Errorf("invalid %sSOURCE_TYPE", prefix)
		}
		rate, err := parsePositiveInt(prefix+"RATE_LIMIT", 100)
		if err != nil {
			return nil, err
		}
		src.RateLimit = rate
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return nil, errors.New("SOURCES is required")
	}
	return sources, nil
}

// databaseURL returns DATABASE_URL or a URL assembled from the DB_* parts.
func databaseURL() string {
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		return v
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(sharedcfg.EnvOrDefault("DB_USER", "postgres"), os.Getenv("DB_PASSWORD")),
		Host:     net.JoinHostPort(sharedcfg.EnvOrDefault("DB_HOST", "localhost"), sharedcfg.EnvOrDefault("DB_PORT", "5432")),
		Path:     "/" + sharedcfg.EnvOrDefault("DB_NAME", "aqua_ai_db"),
		RawQuery: "sslmode=" + sharedcfg.EnvOrDefault("DB_SSLMODE", "disable"),
	}
	return u.String()
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}
