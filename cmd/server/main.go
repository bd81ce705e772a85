/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the station ledger server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment, flags override)
  2. Initialize SQLite store
  3. Seed the default chart on an empty database
  4. Create the report builder and API handler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/station.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - config/config.go: Environment configuration
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forecourt/station-ledger/api"
	"github.com/forecourt/station-ledger/config"
	"github.com/forecourt/station-ledger/factory"
	"github.com/forecourt/station-ledger/ledger"
	"github.com/forecourt/station-ledger/reports"
	"github.com/forecourt/station-ledger/shiftclose"
	"github.com/forecourt/station-ledger/store/sqlite"
)

func main() {
	cfg := config.Load()

	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	log := logrus.New()
	log.SetLevel(cfg.LogLevel)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	posting, err := seedChart(context.Background(), store)
	if err != nil {
		log.WithError(err).Fatal("failed to seed chart of accounts")
	}

	builder := reports.NewBuilder(store, store, cfg.Company)
	handler := api.NewHandler(store, builder, log)
	handler.SetPostingAccounts(posting)

	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": *port, "db": *dbPath}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}

// seedChart installs the default chart when the database is empty and
// returns the accounts that shift closes post against. SaveAccount upserts
// by account number, so re-running against an existing database is safe.
func seedChart(ctx context.Context, store *sqlite.Store) (shiftclose.PostingAccounts, error) {
	f := factory.NewChartFactory()
	accounts, err := f.ParseChart(factory.DefaultStationChartJSON())
	if err != nil {
		return shiftclose.PostingAccounts{}, err
	}

	var posting shiftclose.PostingAccounts
	for _, a := range accounts {
		saved, err := store.SaveAccount(ctx, a)
		if err != nil {
			return shiftclose.PostingAccounts{}, err
		}
		switch {
		case saved.Group == ledger.GroupCashInHand && posting.CashAccountID == 0:
			posting.CashAccountID = saved.ID
		case saved.AccountNumber == "4001":
			posting.SalesAccountID = saved.ID
		}
	}
	return posting, nil
}
