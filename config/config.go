/*
Package config loads server configuration from the environment.

PURPOSE:
  Centralizes runtime configuration: HTTP port, database path, log level,
  and the station profile stamped onto reports. A .env file is loaded when
  present so local development does not need exported variables; real
  environment variables always win.

VARIABLES:
  PORT             HTTP server port (default: 8080)
  DB_PATH          SQLite database path (default: station.db, ":memory:" ok)
  LOG_LEVEL        logrus level: debug, info, warn, error (default: info)
  STATION_NAME     Company name shown on report headers
  STATION_ADDRESS  Company address shown on report headers
  STATION_PHONE    Company phone shown on report headers

USAGE:
  cfg := config.Load()
  store, err := sqlite.New(cfg.DBPath)

SEE ALSO:
  - cmd/server/main.go: The only consumer
*/
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/forecourt/station-ledger/reports"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port     int
	DBPath   string
	LogLevel logrus.Level
	Company  reports.CompanyProfile
}

// Load reads configuration from the environment, with a best-effort .env
// load first. Missing values fall back to defaults; Load never fails.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:     8080,
		DBPath:   "station.db",
		LogLevel: logrus.InfoLevel,
		Company: reports.CompanyProfile{
			Name:    getEnv("STATION_NAME", "Filling Station"),
			Address: os.Getenv("STATION_ADDRESS"),
			Phone:   os.Getenv("STATION_PHONE"),
		},
	}

	if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil && p > 0 {
		cfg.Port = p
	}
	if db := os.Getenv("DB_PATH"); db != "" {
		cfg.DBPath = db
	}
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		cfg.LogLevel = lvl
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
