package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/reengageai/reengage/batch"
	"github.com/reengageai/reengage/compose"
	"github.com/reengageai/reengage/persistent"
	"github.com/reengageai/reengage/whop"
	"github.com/sirupsen/logrus"
)

const defaultThresholdDays = 14

type databaseConfig struct {
	driver persistent.Driver
	dsn    string
}

type whopConfig struct {
	apiKey         string
	appId          string
	baseURL        string
	tokenPublicKey string
}

type config struct {
	debug  bool
	syslog bool

	database     databaseConfig
	runStorePath string

	listenAddr   string
	allowOrigins string
	cronSecret   string

	thresholdDays    int
	pageSize         int
	candidateTimeout time.Duration
	schedule         *batch.Schedule

	whop whopConfig

	openaiKey     string
	openaiBaseURL string
	compose       compose.Config
}

func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		logrus.Fatalln(key + " not set!")
	}
	return value
}

func envOr(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logrus.WithError(err).Fatalln(key + " is not a number!")
	}
	return parsed
}

func databaseConfigFromEnv() databaseConfig {
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		return databaseConfig{driver: persistent.DriverPostgres, dsn: dsn}
	}
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		return databaseConfig{driver: persistent.DriverSqlite, dsn: fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)}
	}
	logrus.Fatalln("Environment variable POSTGRES_DSN or SQLITE_PATH is not set!")
	return databaseConfig{}
}

// batchConfigFromEnv reads everything the batch job needs. Used by serve and run-batch.
func batchConfigFromEnv(cfg *config) {
	cfg.thresholdDays = intEnv("INACTIVITY_THRESHOLD_DAYS", defaultThresholdDays)
	if cfg.thresholdDays <= 0 {
		logrus.Fatalln("INACTIVITY_THRESHOLD_DAYS must be positive!")
	}
	cfg.pageSize = intEnv("BATCH_PAGE_SIZE", batch.DefaultPageSize)
	cfg.candidateTimeout = batch.DefaultCandidateTimeout
	if value := os.Getenv("CANDIDATE_TIMEOUT"); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil {
			logrus.WithError(err).Fatalln("CANDIDATE_TIMEOUT is not a duration!")
		}
		cfg.candidateTimeout = timeout
	}
	cfg.runStorePath = envOr("RUN_STORE_PATH", "kv.db")

	cfg.whop.apiKey = requireEnv("WHOP_API_KEY")
	cfg.whop.baseURL = os.Getenv("WHOP_API_BASE_URL")

	cfg.openaiKey = requireEnv("OPENAI_API_KEY")
	cfg.openaiBaseURL = os.Getenv("OPENAI_BASE_URL")
	cfg.compose = compose.DefaultConfig()
	cfg.compose.Model = envOr("OPENAI_MODEL", cfg.compose.Model)
	cfg.compose.MaxTokens = int64(intEnv("OPENAI_MAX_TOKENS", int(cfg.compose.MaxTokens)))
	if value := os.Getenv("OPENAI_TEMPERATURE"); value != "" {
		temperature, err := strconv.ParseFloat(value, 64)
		if err != nil {
			logrus.WithError(err).Fatalln("OPENAI_TEMPERATURE is not a number!")
		}
		cfg.compose.Temperature = temperature
	}
}

func serveConfigFromEnv() config {
	cfg := config{
		debug:        os.Getenv("DEBUG") == "true",
		syslog:       os.Getenv("SYSLOG") == "true",
		database:     databaseConfigFromEnv(),
		listenAddr:   envOr("LISTEN_ADDR", ":2137"),
		allowOrigins: envOr("ALLOW_ORIGINS", "*"),
		cronSecret:   requireEnv("CRON_SECRET"),
	}
	batchConfigFromEnv(&cfg)

	cfg.whop.appId = os.Getenv("WHOP_APP_ID")
	cfg.whop.tokenPublicKey = requireEnv("WHOP_TOKEN_PUBLIC_KEY")

	if value := os.Getenv("DAILY_SCHEDULE"); value != "" {
		schedule, err := batch.ParseSchedule(value)
		if err != nil {
			logrus.WithError(err).Fatalln("Invalid DAILY_SCHEDULE.")
		}
		cfg.schedule = &schedule
	}
	return cfg
}

func (c config) whopClient() *whop.Client {
	return whop.NewClient(c.whop.baseURL, c.whop.apiKey)
}

// scheduleDescription is shown on the dashboard.
func (c config) scheduleDescription() string {
	if c.schedule == nil {
		return "daily (external trigger)"
	}
	return "daily at " + c.schedule.String()
}
