package main

//
//  @title           escrowd API
//  @version         1.0
//  @description     Two-currency escrow ledger: open, settle and cancel STB/GNR trades.
//  @termsOfService  https://github.com/guttosm/escrowd
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/escrowd
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @securityDefinitions.apikey BearerAuth
//  @in                         header
//  @name                       Authorization
//
//  @tag.name        trades
//  @tag.description Open, settle, cancel and list trades
//
//  @tag.name        accounts
//  @tag.description Account balances and administration
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guttosm/escrowd/config"
	_ "github.com/guttosm/escrowd/docs" // swagger docs
	"github.com/guttosm/escrowd/internal/app"
	"github.com/guttosm/escrowd/internal/auth"
	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/guttosm/escrowd/internal/ingestion"
	"github.com/guttosm/escrowd/internal/ledger"
	"github.com/guttosm/escrowd/internal/logger"
	"github.com/guttosm/escrowd/internal/storage/postgres"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): A context with timeout for graceful shutdown.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Drains pending notifications and closes storage.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// runMigrate applies the embedded goose migrations to the configured database.
func runMigrate(cfg config.Config) error {
	db, err := app.InitPostgres(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return postgres.Migrate(db)
}

// runAccount opens a single account on the configured storage.
func runAccount(ctx context.Context, cfg config.Config, id, stb, gnr string) (*models.Account, error) {
	s, err := decimal.NewFromString(stb)
	if err != nil {
		return nil, fmt.Errorf("invalid --stb: %w", err)
	}
	g, err := decimal.NewFromString(gnr)
	if err != nil {
		return nil, fmt.Errorf("invalid --gnr: %w", err)
	}

	repos, err := app.OpenStorage(cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = repos.Close() }()

	return ledger.New(repos).OpenAccount(ctx, id, models.NewBalances(s, g))
}

// runToken signs a bearer token for account.
func runToken(cfg config.Config, account string, admin bool) (string, error) {
	if account == "" {
		return "", errors.New("--account is required")
	}
	issuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return "", err
	}
	return issuer.Generate(account, admin)
}

// runImport seeds accounts from every .csv file in dir.
func runImport(ctx context.Context, cfg config.Config, dir string, parallel int) (ingestion.Summary, error) {
	repos, err := app.OpenStorage(cfg)
	if err != nil {
		return ingestion.Summary{}, err
	}
	defer func() { _ = repos.Close() }()

	return ingestion.ImportDirectory(ctx, dir, ledger.New(repos), parallel)
}

// main is the entry point of the escrowd application.
//
// Modes (selected via --mode flag):
//   - api:     Starts the REST API (default).
//   - migrate: Applies PostgreSQL migrations.
//   - account: Opens one account (--account, --stb, --gnr).
//   - token:   Prints a bearer token (--account, --admin).
//   - import:  Seeds accounts from ';' separated .csv files in --dir.
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	mode := flag.String("mode", "api", "Mode: api, migrate, account, token or import")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	account := flag.String("account", "", "Account id for account and token modes")
	stb := flag.String("stb", "0", "Starting STB balance for account mode")
	gnr := flag.String("gnr", "0", "Starting GNR balance for account mode")
	admin := flag.Bool("admin", false, "Issue an admin token in token mode")
	dir := flag.String("dir", "./data/accounts", "Directory with .csv account files for import mode")
	parallel := flag.Int("parallel", 0, "How many files to import concurrently (0=auto up to CPU, max 8)")
	flag.Parse()

	cfg := config.AppConfig

	switch *mode {
	case "api":
		logger.L().Info().Str("storage", cfg.Storage.Driver).Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	case "migrate":
		if err := runMigrate(cfg); err != nil {
			logger.L().Fatal().Err(err).Msg("migration failed")
		}
		logger.L().Info().Msg("migrations applied")

	case "account":
		acc, err := runAccount(ctx, cfg, *account, *stb, *gnr)
		if err != nil {
			logger.L().Fatal().Err(err).Str("account", *account).Msg("open account failed")
		}
		logger.L().Info().Str("account", acc.ID).
			Str("stb", acc.Balances.Get(models.CurrencySTB).String()).
			Str("gnr", acc.Balances.Get(models.CurrencyGNR).String()).
			Msg("account opened")

	case "token":
		token, err := runToken(cfg, *account, *admin)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("token issue failed")
		}
		fmt.Println(token)

	case "import":
		sum, err := runImport(ctx, cfg, *dir, *parallel)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("import failed")
		}
		logger.L().Info().Int("files", sum.Files).Int("created", sum.Created).Int("skipped", sum.Skipped).
			Msg("import completed successfully")

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
