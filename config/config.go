package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	apperr "estefy/inmoworker/pkg/errors"
)

// Config holds the application configuration
type Config struct {
	// Operation mode
	RunOnce       bool          // run a single crawl and exit instead of looping
	CrawlInterval time.Duration // wait between crawl rounds in loop mode
	Debug         bool

	// Sources
	EnabledSources  []string // zonaprop, mercadolibre
	ZonapropURL     string
	MercadolibreURL string
	MaxPages        int // 0 means follow pagination until it ends

	// Politeness
	ItemDelayMin time.Duration
	ItemDelayMax time.Duration
	PageDelayMin time.Duration
	PageDelayMax time.Duration
	MinFetchGap  time.Duration // hard floor between outgoing requests

	// Retry and escalation
	MaxRetries    int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	ChallengeWait time.Duration
	FetchTimeout  time.Duration

	// Browser tier
	BrowserEnabled  bool
	BrowserBin      string // empty means let rod find or download one
	BrowserHeadless bool
	PageLoadTimeout time.Duration
	DebugDir        string
	DebugMaxFiles   int

	// Currency normalization
	USDThreshold float64
	ExchangeRate float64

	// Output
	OutputDir  string
	SQLitePath string // empty disables the SQLite sink
	FlushEvery int

	// Cooldown cache
	CacheAddr string // empty selects the in-memory cache
	CacheTTL  time.Duration

	// Publishing
	RedisAddr    string // empty disables publishing
	RedisDB      int
	StreamPrefix string
	StreamCount  int
	StreamMaxLen int64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		RunOnce:       getEnvAsBool("RUN_ONCE", true),
		CrawlInterval: getEnvAsDuration("CRAWL_INTERVAL", 6*time.Hour),
		Debug:         getEnvAsBool("DEBUG", false),

		EnabledSources:  getEnvAsSlice("SOURCES", []string{"zonaprop", "mercadolibre"}),
		ZonapropURL:     getEnv("ZONAPROP_URL", "https://www.zonaprop.com.ar/departamentos-alquiler-capital-federal.html"),
		MercadolibreURL: getEnv("MERCADOLIBRE_URL", "https://inmuebles.mercadolibre.com.ar/departamentos/alquiler/capital-federal/"),
		MaxPages:        getEnvAsInt("MAX_PAGES", 0),

		ItemDelayMin: getEnvAsDuration("ITEM_DELAY_MIN", 2*time.Second),
		ItemDelayMax: getEnvAsDuration("ITEM_DELAY_MAX", 5*time.Second),
		PageDelayMin: getEnvAsDuration("PAGE_DELAY_MIN", 5*time.Second),
		PageDelayMax: getEnvAsDuration("PAGE_DELAY_MAX", 12*time.Second),
		MinFetchGap:  getEnvAsDuration("MIN_FETCH_GAP", 1*time.Second),

		MaxRetries:    getEnvAsInt("MAX_RETRIES", 5),
		BackoffBase:   getEnvAsDuration("BACKOFF_BASE", 2*time.Second),
		BackoffMax:    getEnvAsDuration("BACKOFF_MAX", 60*time.Second),
		ChallengeWait: getEnvAsDuration("CHALLENGE_WAIT", 20*time.Second),
		FetchTimeout:  getEnvAsDuration("FETCH_TIMEOUT", 30*time.Second),

		BrowserEnabled:  getEnvAsBool("BROWSER_ENABLED", true),
		BrowserBin:      getEnv("BROWSER_BIN", ""),
		BrowserHeadless: getEnvAsBool("BROWSER_HEADLESS", true),
		PageLoadTimeout: getEnvAsDuration("PAGE_LOAD_TIMEOUT", 45*time.Second),
		DebugDir:        getEnv("DEBUG_DIR", "debug"),
		DebugMaxFiles:   getEnvAsInt("DEBUG_MAX_FILES", 3),

		USDThreshold: getEnvAsFloat("USD_THRESHOLD", 5000),
		ExchangeRate: getEnvAsFloat("EXCHANGE_RATE", 1000),

		OutputDir:  getEnv("OUTPUT_DIR", "resultados"),
		SQLitePath: getEnv("SQLITE_PATH", "propiedades.db"),
		FlushEvery: getEnvAsInt("FLUSH_EVERY", 20),

		CacheAddr: getEnv("MEMCACHE_ADDR", ""),
		CacheTTL:  getEnvAsDuration("CACHE_TTL", 30*time.Minute),

		RedisAddr:    getEnv("REDIS_ADDR", ""),
		RedisDB:      getEnvAsInt("REDIS_DB", 0),
		StreamPrefix: getEnv("STREAM_PREFIX", "streamPropiedades"),
		StreamCount:  getEnvAsInt("STREAM_COUNT", 1),
		StreamMaxLen: int64(getEnvAsInt("STREAM_MAXLEN", 500)),
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if len(c.EnabledSources) == 0 {
		return apperr.NewConfiguration("no sources enabled", nil)
	}
	for _, s := range c.EnabledSources {
		if s != "zonaprop" && s != "mercadolibre" {
			return apperr.NewConfiguration("unknown source: "+s, nil)
		}
	}
	if c.MaxRetries < 1 {
		return apperr.NewConfiguration("MAX_RETRIES must be at least 1", nil)
	}
	if c.BackoffBase <= 0 || c.BackoffMax < c.BackoffBase {
		return apperr.NewConfiguration("backoff bounds are inverted", nil)
	}
	if c.ItemDelayMax < c.ItemDelayMin || c.PageDelayMax < c.PageDelayMin {
		return apperr.NewConfiguration("delay bounds are inverted", nil)
	}
	if c.ExchangeRate <= 0 {
		return apperr.NewConfiguration("EXCHANGE_RATE must be positive", nil)
	}
	if c.OutputDir == "" {
		return apperr.NewConfiguration("OUTPUT_DIR must not be empty", nil)
	}
	if !c.RunOnce && c.CrawlInterval <= 0 {
		return apperr.NewConfiguration("CRAWL_INTERVAL must be positive in loop mode", nil)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsSlice gets an environment variable as a comma separated list
func getEnvAsSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
