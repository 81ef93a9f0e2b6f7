// Package config loads and validates the environment-driven configuration
// for one process, accumulating every missing required key rather than
// failing on the first.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/liquidwatch/engine/internal/domain"
)

// Config is the fully-resolved runtime configuration for one process.
type Config struct {
	MongoURI      string
	MongoDBName   string
	TelegramToken string
	FuturesWSURL  string

	TelegramChannelID    string // optional; empty disables broadcast
	ChannelMinLiquidation float64
	RedisHost            string
	RedisPort            string

	CascadeWindow      time.Duration
	CascadeMinCount    int
	CascadeMinVolume   float64
	OISurgeThreshold   float64
	OIScanInterval     time.Duration
	WSShardSize        int
	WSRefresh          time.Duration
	WSPing             time.Duration
	WSReconnectBackoff time.Duration
	Retention          time.Duration
	RetentionTick      time.Duration

	HTTPAddr string

	SymbolsToTrack []string
}

// required lists the env vars whose absence is a ConfigInvalid, fail-fast
// condition. Everything else in Config has a documented default.
var required = []string{"MONGO_URI", "MONGO_DB_NAME", "TELEGRAM_BOT_TOKEN", "FUTURES_WS_URL"}

// Load reads the process environment into a Config, applying documented
// defaults for every tuning knob. It returns a wrapped
// domain.ErrConfigInvalid naming every missing required variable at once.
func Load() (*Config, error) {
	var missing []string
	for _, key := range required {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required env vars: %v", domain.ErrConfigInvalid, missing)
	}

	cfg := &Config{
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDBName:   os.Getenv("MONGO_DB_NAME"),
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		FuturesWSURL:  os.Getenv("FUTURES_WS_URL"),

		TelegramChannelID: os.Getenv("TELEGRAM_CHANNEL_ID"),
		RedisHost:         os.Getenv("REDIS_HOST"),
		RedisPort:         os.Getenv("REDIS_PORT"),

		ChannelMinLiquidation: 250000,
		CascadeWindow:         10 * time.Second,
		CascadeMinCount:       3,
		CascadeMinVolume:      100000,
		OISurgeThreshold:      2.5,
		OIScanInterval:        15 * time.Minute,
		WSShardSize:           50,
		WSRefresh:             24 * time.Hour,
		WSPing:                30 * time.Second,
		WSReconnectBackoff:    5 * time.Second,
		Retention:             48 * time.Hour,
		RetentionTick:         24 * time.Hour,

		HTTPAddr: ":8080",

		SymbolsToTrack: DefaultSymbolUniverse,
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}

	if v := os.Getenv("CHANNEL_MIN_LIQUIDATION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ChannelMinLiquidation = f
		}
	}

	if path := os.Getenv("SYMBOLS_FILE"); path != "" {
		symbols, err := loadSymbolsFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
		cfg.SymbolsToTrack = symbols
	}

	return cfg, nil
}

// dsnPattern matches the connection-string shape used by Mongo/Redis URIs so
// Redact can scrub credentials before a config summary is logged.
var dsnPattern = regexp.MustCompile(`://[^:]+:[^@]+@`)

// Redact masks the credential portion of a connection string, mirroring the
// teacher's DSN-redaction pattern for safe startup logging.
func Redact(uri string) string {
	return dsnPattern.ReplaceAllString(uri, "://***:***@")
}
