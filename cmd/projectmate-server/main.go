package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/existflow/projectmate/internal/account"
	"github.com/existflow/projectmate/internal/board"
	"github.com/existflow/projectmate/internal/config"
	"github.com/existflow/projectmate/internal/db"
	"github.com/existflow/projectmate/internal/invite"
	"github.com/existflow/projectmate/internal/logger"
	"github.com/existflow/projectmate/internal/project"
	"github.com/existflow/projectmate/internal/store"
	"github.com/existflow/projectmate/internal/store/mongostore"
	"github.com/existflow/projectmate/internal/store/sqlstore"
	"github.com/existflow/projectmate/internal/token"
	"github.com/existflow/projectmate/internal/view"
	"github.com/existflow/projectmate/server"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "projectmate-server",
	Short:        "ProjectMate API server",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadServer(configPath)
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func main() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config (default $PROJECTMATE_CONFIG)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run(ctx context.Context, cfg config.Server) error {
	logConfig := logger.DefaultConfig()
	logConfig.Level = logger.ParseLevel(cfg.LogLevel)
	logConfig.FilePath = cfg.LogFile
	logConfig.Console = cfg.LogConsole
	if err := logger.Init(logConfig); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open store", logger.F("driver", cfg.Driver), logger.Err(err))
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("Error closing store", logger.Err(err))
		}
	}()

	tokens, err := token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	srv := server.New(server.Services{
		Accounts: account.NewService(st),
		Projects: project.NewService(st),
		Board:    board.NewService(st),
		Invites:  invite.NewService(st, invite.WithTTL(cfg.InvitationTTL)),
		Views:    view.NewPopulator(st),
		Tokens:   tokens,
	}, server.Options{
		RateLimit:    cfg.RateLimit,
		RateBurst:    cfg.RateBurst,
		AuthAttempts: cfg.AuthAttempts,
		AuthWindow:   cfg.AuthWindow,
		CORSOrigins:  cfg.CORSOrigins,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if cfg.SweepInterval > 0 {
		sweeper := invite.NewSweeper(st, cfg.SweepInterval, cfg.SweepRetention)
		var expired, purged int64
		sweeper.SetOnSweep(func(r invite.SweepResult) {
			expired += r.Expired
			purged += r.Purged
			logger.Debug("Invitation sweep totals",
				logger.F("expired_total", expired),
				logger.F("purged_total", purged))
		})
		sweeper.Start()
		defer sweeper.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// openStore opens the configured backend. An empty sqlite dsn uses the
// default database path.
func openStore(ctx context.Context, cfg config.Server) (store.Store, error) {
	switch cfg.Driver {
	case "mongo":
		return mongostore.Open(ctx, mongostore.Options{
			URI:          cfg.DSN,
			Database:     cfg.MongoDatabase,
			Transactions: cfg.MongoTransactions,
		})
	case "sqlite", "postgres":
		dsn := cfg.DSN
		if cfg.Driver == "sqlite" && dsn == "" {
			path, err := db.DefaultSQLitePath()
			if err != nil {
				return nil, err
			}
			dsn = path
		}
		return sqlstore.Open(ctx, cfg.Driver, dsn)
	default:
		return nil, errors.New("unknown store driver " + cfg.Driver)
	}
}
