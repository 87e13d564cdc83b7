package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// dateLayout is the layout used for every date window variable (YYYY-MM-DD).
const dateLayout = "2006-01-02"

// Config holds the full application configuration loaded from environment variables or .env file.
//
// It is composed of smaller structs, one per concern: the HTTP server, the
// run-history database, the NSE data provider, the bar cache, the screening
// criteria and the report outputs.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	NSE_BASE_URL=https://www.nseindia.com
//	SCREEN_PRICE_MIN=1000
//	SCREEN_PRICE_MAX=4000
//	SCREEN_HIGHLOW_FROM=2024-08-20
//	SCREEN_HIGHLOW_TO=2024-09-03
//	OUTPUT_ELIGIBLE_FILE=marketCapEligibleEquities.csv
//	OUTPUT_STOCK_DIR=stock_data
type Config struct {
	Server   ServerConfig   // HTTP server configuration
	Postgres PostgresConfig // PostgreSQL connection settings (run history)
	NSE      NSEConfig      // Market data provider settings
	Redis    RedisConfig    // Optional historical bar cache
	Screen   ScreenConfig   // Screening thresholds and windows
	Output   OutputConfig   // Report file locations
	Schedule ScheduleConfig // Recurring screening runs (schedule mode)
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string // The TCP port the HTTP server will listen on (e.g., "8080")
}

// PostgresConfig defines connection details for PostgreSQL.
//
// Fields:
//   - Host, Port, User, Password, DBName, SSLMode: connection parameters.
//   - URL: computed DSN used by database/sql to connect.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// NSEConfig configures the HTTP client talking to the NSE India endpoints.
type NSEConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second; 0 disables limiting
	UserAgent string
}

// RedisConfig configures the historical bar cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// ScreenConfig carries every threshold used by the eligibility filter and the
// volatility screener.
//
// DeltaFrom/DeltaTo default to the high/low window; when they differ the
// screener fetches the delta window separately.
type ScreenConfig struct {
	PriceMin          float64
	PriceMax          float64
	MinTotalMarketCap float64
	FFMCRatioMin      float64
	FFMCRatioMax      float64
	RangeThreshold    float64
	MinFluctuation    float64
	HighLowFrom       time.Time
	HighLowTo         time.Time
	DeltaFrom         time.Time
	DeltaTo           time.Time
	Concurrency       int
	DegeneratePolicy  string // "volatile" or "skip"
}

// OutputConfig defines where reports are written and whether runs are recorded.
type OutputConfig struct {
	EligibleFile   string
	StockDir       string
	HistoryEnabled bool
}

// ScheduleConfig drives the schedule mode. Cron uses the six-field format
// (with seconds) and is evaluated in Timezone.
type ScheduleConfig struct {
	Cron       string
	Timezone   string
	RunOnStart bool
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used by cmd and the app wiring.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing or malformed, validateConfig() terminates
//     the app with a descriptive log message.
func LoadConfig() {
	setDefaults()

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		NSE: NSEConfig{
			BaseURL:   strings.TrimRight(viper.GetString("NSE_BASE_URL"), "/"),
			Timeout:   viper.GetDuration("NSE_TIMEOUT"),
			RateLimit: viper.GetFloat64("NSE_RATE_LIMIT"),
			UserAgent: viper.GetString("NSE_USER_AGENT"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			TTL:      viper.GetDuration("REDIS_TTL"),
		},
		Screen: ScreenConfig{
			PriceMin:          viper.GetFloat64("SCREEN_PRICE_MIN"),
			PriceMax:          viper.GetFloat64("SCREEN_PRICE_MAX"),
			MinTotalMarketCap: viper.GetFloat64("SCREEN_MIN_TOTAL_MARKET_CAP"),
			FFMCRatioMin:      viper.GetFloat64("SCREEN_FFMC_RATIO_MIN"),
			FFMCRatioMax:      viper.GetFloat64("SCREEN_FFMC_RATIO_MAX"),
			RangeThreshold:    viper.GetFloat64("SCREEN_RANGE_THRESHOLD"),
			MinFluctuation:    viper.GetFloat64("SCREEN_MIN_FLUCTUATION"),
			Concurrency:       viper.GetInt("SCREEN_CONCURRENCY"),
			DegeneratePolicy:  strings.ToLower(strings.TrimSpace(viper.GetString("SCREEN_DEGENERATE_POLICY"))),
		},
		Output: OutputConfig{
			EligibleFile:   viper.GetString("OUTPUT_ELIGIBLE_FILE"),
			StockDir:       viper.GetString("OUTPUT_STOCK_DIR"),
			HistoryEnabled: viper.GetBool("HISTORY_ENABLED"),
		},
		Schedule: ScheduleConfig{
			Cron:       strings.TrimSpace(viper.GetString("SCHEDULE_CRON")),
			Timezone:   strings.TrimSpace(viper.GetString("SCHEDULE_TIMEZONE")),
			RunOnStart: viper.GetBool("SCHEDULE_RUN_ON_START"),
		},
	}

	AppConfig.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Postgres.User,
		AppConfig.Postgres.Password,
		AppConfig.Postgres.Host,
		AppConfig.Postgres.Port,
		AppConfig.Postgres.DBName,
		AppConfig.Postgres.SSLMode,
	)

	// Date windows are parsed separately so malformed values are reported together.
	var badDates []string
	AppConfig.Screen.HighLowFrom = parseDate("SCREEN_HIGHLOW_FROM", &badDates)
	AppConfig.Screen.HighLowTo = parseDate("SCREEN_HIGHLOW_TO", &badDates)
	AppConfig.Screen.DeltaFrom = parseDate("SCREEN_DELTA_FROM", &badDates)
	AppConfig.Screen.DeltaTo = parseDate("SCREEN_DELTA_TO", &badDates)
	if AppConfig.Screen.DeltaFrom.IsZero() {
		AppConfig.Screen.DeltaFrom = AppConfig.Screen.HighLowFrom
	}
	if AppConfig.Screen.DeltaTo.IsZero() {
		AppConfig.Screen.DeltaTo = AppConfig.Screen.HighLowTo
	}

	validateConfig(badDates)
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "nsepulse")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("NSE_BASE_URL", "https://www.nseindia.com")
	viper.SetDefault("NSE_TIMEOUT", "20s")
	viper.SetDefault("NSE_RATE_LIMIT", 3)
	viper.SetDefault("NSE_USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")

	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_TTL", "6h")

	viper.SetDefault("SCREEN_PRICE_MIN", 1000)
	viper.SetDefault("SCREEN_PRICE_MAX", 4000)
	viper.SetDefault("SCREEN_MIN_TOTAL_MARKET_CAP", 10000)
	viper.SetDefault("SCREEN_FFMC_RATIO_MIN", 50)
	viper.SetDefault("SCREEN_FFMC_RATIO_MAX", 75)
	viper.SetDefault("SCREEN_RANGE_THRESHOLD", 300)
	viper.SetDefault("SCREEN_MIN_FLUCTUATION", 20)
	viper.SetDefault("SCREEN_HIGHLOW_FROM", "2024-08-20")
	viper.SetDefault("SCREEN_HIGHLOW_TO", "2024-09-03")
	viper.SetDefault("SCREEN_DELTA_FROM", "")
	viper.SetDefault("SCREEN_DELTA_TO", "")
	viper.SetDefault("SCREEN_CONCURRENCY", 8)
	viper.SetDefault("SCREEN_DEGENERATE_POLICY", "volatile")

	viper.SetDefault("OUTPUT_ELIGIBLE_FILE", "marketCapEligibleEquities.csv")
	viper.SetDefault("OUTPUT_STOCK_DIR", "stock_data")
	viper.SetDefault("HISTORY_ENABLED", false)

	// 16:30 IST on weekdays, an hour after the NSE close.
	viper.SetDefault("SCHEDULE_CRON", "0 30 16 * * 1-5")
	viper.SetDefault("SCHEDULE_TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("SCHEDULE_RUN_ON_START", false)
}

// parseDate reads key as YYYY-MM-DD. Empty values yield the zero time; malformed
// values are appended to bad.
func parseDate(key string, bad *[]string) time.Time {
	s := strings.TrimSpace(viper.GetString(key))
	if s == "" {
		return time.Time{}
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		*bad = append(*bad, key)
		return time.Time{}
	}
	return d
}

// validateConfig ensures required variables are present and terminates
// the application if they are missing.
func validateConfig(badDates []string) {
	if problems := checkConfig(AppConfig, badDates); len(problems) > 0 {
		log.Fatalf("❌ Invalid configuration: %v\n", problems)
	}
}

// checkConfig returns the list of invalid or missing keys for cfg.
func checkConfig(cfg Config, badDates []string) []string {
	missing := append([]string(nil), badDates...)

	if cfg.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if cfg.NSE.BaseURL == "" {
		missing = append(missing, "NSE_BASE_URL")
	}
	if cfg.NSE.RateLimit < 0 {
		missing = append(missing, "NSE_RATE_LIMIT")
	}
	if cfg.Screen.PriceMin > cfg.Screen.PriceMax {
		missing = append(missing, "SCREEN_PRICE_MIN/SCREEN_PRICE_MAX")
	}
	if cfg.Screen.FFMCRatioMin > cfg.Screen.FFMCRatioMax {
		missing = append(missing, "SCREEN_FFMC_RATIO_MIN/SCREEN_FFMC_RATIO_MAX")
	}
	if cfg.Screen.HighLowFrom.IsZero() || cfg.Screen.HighLowTo.IsZero() || cfg.Screen.HighLowFrom.After(cfg.Screen.HighLowTo) {
		missing = append(missing, "SCREEN_HIGHLOW_FROM/SCREEN_HIGHLOW_TO")
	}
	if cfg.Screen.DeltaFrom.After(cfg.Screen.DeltaTo) {
		missing = append(missing, "SCREEN_DELTA_FROM/SCREEN_DELTA_TO")
	}
	if cfg.Screen.Concurrency < 1 {
		missing = append(missing, "SCREEN_CONCURRENCY")
	}
	switch cfg.Screen.DegeneratePolicy {
	case "volatile", "skip":
	default:
		missing = append(missing, "SCREEN_DEGENERATE_POLICY")
	}
	if cfg.Output.EligibleFile == "" {
		missing = append(missing, "OUTPUT_ELIGIBLE_FILE")
	}
	if cfg.Output.StockDir == "" {
		missing = append(missing, "OUTPUT_STOCK_DIR")
	}
	if cfg.Schedule.Cron == "" {
		missing = append(missing, "SCHEDULE_CRON")
	}
	if cfg.Output.HistoryEnabled {
		if cfg.Postgres.Host == "" {
			missing = append(missing, "POSTGRES_HOST")
		}
		if cfg.Postgres.Port == 0 {
			missing = append(missing, "POSTGRES_PORT")
		}
		if cfg.Postgres.User == "" {
			missing = append(missing, "POSTGRES_USER")
		}
		if cfg.Postgres.DBName == "" {
			missing = append(missing, "POSTGRES_DB")
		}
	}

	return missing
}
