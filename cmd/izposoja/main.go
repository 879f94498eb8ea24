package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/izposoja/internal/api"
	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/boltstore"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/store"
)

type config struct {
	dbPath    string
	boltPath  string
	addr      string
	adminUser string
	logPath   string
	attempts  int
}

func parseFlags(args []string) (*config, error) {
	fs := flag.NewFlagSet("izposoja", flag.ContinueOnError)
	cfg := &config{}

	fs.StringVar(&cfg.dbPath, "db", "izposoja.sqlite3", "")
	fs.StringVar(&cfg.dbPath, "d", "izposoja.sqlite3", "")
	fs.StringVar(&cfg.boltPath, "bolt", "", "")
	fs.StringVar(&cfg.boltPath, "b", "", "")
	fs.StringVar(&cfg.addr, "addr", ":8080", "")
	fs.StringVar(&cfg.addr, "a", ":8080", "")
	fs.StringVar(&cfg.adminUser, "user", "admin", "")
	fs.StringVar(&cfg.adminUser, "u", "admin", "")
	fs.StringVar(&cfg.logPath, "log", "", "")
	fs.StringVar(&cfg.logPath, "l", "", "")
	fs.IntVar(&cfg.attempts, "retries", lending.DefaultMaxAttempts, "")
	fs.IntVar(&cfg.attempts, "r", lending.DefaultMaxAttempts, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: izposoja [flags]

Flags:
  -d, -db <path>          SQLite database path (default: izposoja.sqlite3)
  -b, -bolt <path>        keep items and loans in this BoltDB file instead of SQLite
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -r, -retries <n>        attempts per loan transition under contention (default: 5)
  -h, -help               show this help and exit
`)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	if cfg.attempts < 1 {
		return nil, fmt.Errorf("retries must be at least 1, got %d", cfg.attempts)
	}
	return cfg, nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config) error {
	// First run: create the database and an admin account.
	if _, err := os.Stat(cfg.dbPath); os.IsNotExist(err) {
		password, err := initDatabase(cfg.dbPath, cfg.adminUser)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		printInitResult(cfg.dbPath, cfg.adminUser, password)
		fmt.Println()
	}

	database, err := db.Open(cfg.dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	slog.Info("database ready", "path", cfg.dbPath)

	jwtSecret, err := store.GetJWTSecret(context.Background(), database)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	loans, closeLoans, err := openLoanStore(cfg, database)
	if err != nil {
		return err
	}
	defer closeLoans()

	svc := lending.NewService(loans, &store.Directory{DB: database})
	svc.MaxAttempts = cfg.attempts

	metrics := api.NewMetrics()
	router := api.NewRouter(database, svc, auth.NewSessions(jwtSecret), metrics)

	server := &http.Server{
		Addr:              cfg.addr,
		Handler:           api.LoggingMiddleware(metrics, router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}

	slog.Info("server stopped, closing databases")
	return nil
}

// openLoanStore picks the item and loan backend. Users always live in SQLite.
func openLoanStore(cfg *config, database *sql.DB) (lending.Store, func(), error) {
	if cfg.boltPath == "" {
		return &store.SQLite{DB: database}, func() {}, nil
	}

	bolt, err := boltstore.Open(cfg.boltPath)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("using bolt store for items and loans", "path", cfg.boltPath)
	return bolt, func() { bolt.Close() }, nil
}
