package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type BankApp struct {
	Name  string
	AppID string // empty means "resolve via app search"
}

// DefaultBanks is the built-in target set; override with BANK_APPS.
var DefaultBanks = []BankApp{
	{Name: "Commercial Bank of Ethiopia", AppID: "com.combanketh.mobilebanking"},
	{Name: "Bank of Abyssinia", AppID: "com.boa.apollo"},
	{Name: "Dashen Bank", AppID: "com.dashen.dashensuperapp"},
}

type Config struct {
	AppEnv      string
	StatusAddr  string
	MetricsAddr string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr string
	RedisDB   int
	RedisPass string

	PlayBase      string
	PlayRPS       int
	PlayLang      string
	PlayRegions   []string
	PlayPageSize  int
	PlayPageDelay time.Duration

	ClassifierURL       string
	ClassifierBatch     int
	ClassifierThreshold float64

	Workers     int
	ReviewCount int
	CacheTTL    time.Duration
	ExportCSV   string

	Banks []BankApp
}

// DSN builds the MySQL connection string from the DB_* parameters.
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		StatusAddr:  env("STATUS_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),

		DBHost:     env("DB_HOST", "localhost"),
		DBPort:     atoi("DB_PORT", 3306),
		DBUser:     env("DB_USER", "root"),
		DBPassword: env("DB_PASSWORD", ""),
		DBName:     env("DB_NAME", "bank_reviews"),

		RedisAddr: env("REDIS_ADDR", "localhost:6379"),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),

		PlayBase:      env("PLAY_BASE_URL", "https://play-reviews.googleapis.example/v1"),
		PlayRPS:       atoi("PLAY_RPS", 5),
		PlayLang:      env("PLAY_LANG", "en"),
		PlayRegions:   splitList(env("PLAY_REGIONS", "et,us,gb")),
		PlayPageSize:  atoi("PLAY_PAGE_SIZE", 200),
		PlayPageDelay: time.Duration(atoi("PLAY_PAGE_DELAY_MS", 1000)) * time.Millisecond,

		ClassifierURL:       env("CLASSIFIER_URL", ""),
		ClassifierBatch:     atoi("CLASSIFIER_BATCH", 100),
		ClassifierThreshold: atof("CLASSIFIER_THRESHOLD", 0.7),

		Workers:     atoi("INGEST_WORKERS", 3),
		ReviewCount: atoi("INGEST_REVIEW_COUNT", 400),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 86400)) * time.Second,
		ExportCSV:   env("EXPORT_CSV", ""),

		Banks: parseBanks(os.Getenv("BANK_APPS")),
	}
	if c.ClassifierURL == "" {
		log.Warn().Msg("CLASSIFIER_URL is empty; falling back to the lexicon scorer")
	}
	return c
}

// parseBanks parses "Name=app.id;Name2;Name3=app.id3". An entry without
// an app id is resolved through app search at ingest time.
func parseBanks(s string) []BankApp {
	if strings.TrimSpace(s) == "" {
		return DefaultBanks
	}
	var out []BankApp
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, id, _ := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, BankApp{Name: name, AppID: strings.TrimSpace(id)})
	}
	if len(out) == 0 {
		return DefaultBanks
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
