package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	providerport "github.com/thematters/settlement-ledger/internal/domain/port/provider"
	badgeUseCase "github.com/thematters/settlement-ledger/internal/domain/usecase/badge"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/chainsync"
	ledgerUseCase "github.com/thematters/settlement-ledger/internal/domain/usecase/ledger"
	payoutUseCase "github.com/thematters/settlement-ledger/internal/domain/usecase/payout"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/reconcile"
	vaultUseCase "github.com/thematters/settlement-ledger/internal/domain/usecase/vault"

	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/api/handler"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/api/routes"
	collaboratorAdapter "github.com/thematters/settlement-ledger/internal/infrastructure/adapter/collaborator"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/database"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/database/migration"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/logger"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/provider/chain"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/provider/internaltx"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/provider/likenet"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/provider/processor"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/repository"
	timeProvider "github.com/thematters/settlement-ledger/internal/infrastructure/adapter/time"
	"github.com/thematters/settlement-ledger/internal/infrastructure/config"
	"github.com/thematters/settlement-ledger/internal/infrastructure/scheduler"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	appLogger := logger.NewZapLogger(cfg.Environment == config.Production)
	tp := timeProvider.NewRealTimeProvider()

	// Database
	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Username:        cfg.Database.Username,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		QueryTimeout:    cfg.Database.QueryTimeout,
		LogLevel:        cfg.Logger.Level,
	}
	conn, err := database.NewConnection(dbConfig)
	if err != nil {
		appLogger.Error("Failed to connect to database", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			appLogger.Warn("Failed to close database", map[string]any{"error": err.Error()})
		}
	}()

	if err := migration.NewManager(conn.DB, appLogger).Run(); err != nil {
		appLogger.Error("Failed to run migrations", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	// Repositories
	txRepo := repository.NewTransactionRepository(conn.DB, appLogger)
	accountRepo := repository.NewPayoutAccountRepository(conn.DB, appLogger, tp)
	savepointRepo := repository.NewSavepointRepository(conn.DB, appLogger, tp)
	badgeRepo := repository.NewBadgeRepository(conn.DB, appLogger)
	lockRepo := repository.NewUserLockRepository(conn.DB, appLogger, tp)
	uow := database.NewUnitOfWork(conn.DB, appLogger, tp)

	// Collaborators
	collabConfig := collaboratorAdapter.Config{
		UserServiceURL: cfg.Collaborators.UserServiceURL,
		NotifierURL:    cfg.Collaborators.NotifierURL,
		AlerterURL:     cfg.Collaborators.AlerterURL,
		Timeout:        cfg.Collaborators.Timeout,
	}
	users := collaboratorAdapter.NewUserClient(collabConfig, appLogger)
	notifier := collaboratorAdapter.NewNotifierClient(collabConfig, appLogger)
	alerter := collaboratorAdapter.NewAlerterClient(collabConfig, appLogger)

	// Payment rails
	processorClient := processor.NewClient(processor.Config{
		BaseURL:    cfg.Processor.BaseURL,
		APIKey:     cfg.Processor.APIKey,
		Timeout:    cfg.Processor.Timeout,
		RefreshURL: cfg.Processor.RefreshURL,
		ReturnURL:  cfg.Processor.ReturnURL,
	}, appLogger)
	likeClient := likenet.NewClient(likenet.Config{
		BaseURL: cfg.LikeNet.BaseURL,
		APIKey:  cfg.LikeNet.APIKey,
		Timeout: cfg.LikeNet.Timeout,
	}, appLogger)

	rails := providerport.NewRegistry()
	rails.Register(entity.ProviderInternal, internaltx.NewRail())
	rails.Register(entity.ProviderProcessor, processorClient)
	rails.Register(entity.ProviderLikeNet, likeClient)

	checkers := map[entity.TransactionProvider]providerport.StatusChecker{
		entity.ProviderProcessor: processorClient,
		entity.ProviderLikeNet:   likeClient,
	}

	// Use cases
	ledgerSvc := ledgerUseCase.NewService(txRepo, users, notifier, alerter, tp, appLogger)

	payoutCfg, err := payoutConfig(cfg)
	if err != nil {
		appLogger.Error("Invalid payout configuration", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	payoutSvc := payoutUseCase.NewService(
		ledgerSvc, accountRepo, uow, lockRepo, users, alerter,
		rails, processorClient, payoutCfg, tp, appLogger,
	)
	vaultSvc := vaultUseCase.NewService(ledgerSvc, users, rails, tp, appLogger)

	reconciler := reconcile.NewReconciler(
		ledgerSvc, alerter,
		reconcile.UnknownTxSeverity(cfg.Ledger.UnknownTxSeverity),
		appLogger,
	)
	sweep := reconcile.NewSweep(ledgerSvc, txRepo, checkers, alerter, reconcile.SweepConfig{
		MaxPendingAge: cfg.Scheduler.SweepMaxAge,
		BatchLimit:    cfg.Scheduler.SweepBatchLimit,
	}, tp, appLogger)
	badges := badgeUseCase.NewAggregator(txRepo, badgeRepo, tp, appLogger)

	// Chain synchronizer, only when an RPC endpoint is configured
	var synchronizer *chainsync.Synchronizer
	if cfg.Chain.RPCEndpoint != "" {
		reader, err := chain.NewReader(cfg.Chain.RPCEndpoint, cfg.Chain.CurationContract, appLogger)
		if err != nil {
			appLogger.Error("Failed to connect to chain", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		synchronizer = chainsync.NewSynchronizer(
			ledgerSvc, savepointRepo, reader, users, alerter,
			chainsync.Config{
				Chain:              entity.Chain(cfg.Chain.Chain),
				ConfirmationDepth:  cfg.Chain.ConfirmationDepth,
				BatchSize:          cfg.Chain.BatchSize,
				InitialBlock:       cfg.Chain.InitialBlock,
				AlertAfterFailures: cfg.Chain.AlertAfterFailures,
			}, tp, appLogger,
		)

		// Vault withdrawals need a signing key as well as the RPC connection
		if cfg.Chain.SignerKey != "" {
			chainRail, err := chain.NewRail(
				reader.Client(), cfg.Chain.VaultContract,
				cfg.Chain.SignerKey, cfg.Chain.ChainID, appLogger,
			)
			if err != nil {
				appLogger.Error("Failed to set up vault rail", map[string]any{"error": err.Error()})
				os.Exit(1)
			}
			rails.Register(entity.ProviderBlockchain, chainRail)
			checkers[entity.ProviderBlockchain] = chainRail
		} else {
			appLogger.Warn("Chain signer key not configured, vault withdrawals disabled", nil)
		}
	} else {
		appLogger.Warn("Chain RPC endpoint not configured, synchronizer disabled", nil)
	}

	// Background jobs
	jobs := scheduler.NewScheduler(scheduler.Config{
		ChainSyncSpec:  cfg.Scheduler.ChainSyncSpec,
		SweepSpec:      cfg.Scheduler.SweepSpec,
		BadgeSpec:      cfg.Scheduler.BadgeSpec,
		BadgeThreshold: cfg.Scheduler.BadgeThreshold,
	}, synchronizer, sweep, badges, tp, appLogger)
	if err := jobs.Start(); err != nil {
		appLogger.Error("Failed to start scheduler", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	// HTTP surface
	currency := entity.Currency(cfg.Payout.Currency)
	ledgerHandler := handler.NewLedgerHandler(ledgerSvc, currency, appLogger)
	payoutHandler := handler.NewPayoutHandler(payoutSvc, currency, appLogger)
	vaultHandler := handler.NewVaultHandler(vaultSvc, appLogger)
	webhookHandler := handler.NewWebhookHandler(
		processor.NewWebhookVerifier(cfg.Processor.WebhookSecret),
		reconciler, payoutSvc, appLogger,
	)

	router := gin.New()
	routes.SetupMiddlewares(router, appLogger)
	routes.SetupRoutes(router, ledgerHandler, payoutHandler, vaultHandler, webhookHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("Starting server", map[string]any{
			"addr": server.Addr,
			"env":  cfg.Environment,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Failed to start server", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...", nil)

	jobs.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", map[string]any{"error": err.Error()})
	}

	if err := appLogger.Flush(); err != nil {
		log.Printf("Failed to flush logger: %v", err)
	}
}

// payoutConfig parses the decimal-valued payout settings
func payoutConfig(cfg *config.Config) (payoutUseCase.Config, error) {
	minimum, err := decimal.NewFromString(cfg.Payout.MinimumAmount)
	if err != nil {
		return payoutUseCase.Config{}, fmt.Errorf("invalid payout minimum %q: %w", cfg.Payout.MinimumAmount, err)
	}
	feePercent, err := decimal.NewFromString(cfg.Payout.FeePercent)
	if err != nil {
		return payoutUseCase.Config{}, fmt.Errorf("invalid payout fee percent %q: %w", cfg.Payout.FeePercent, err)
	}
	return payoutUseCase.Config{
		MinimumAmount: minimum,
		FeePercent:    feePercent,
		Currency:      entity.Currency(cfg.Payout.Currency),
		LockTimeout:   cfg.Payout.LockTimeout,
	}, nil
}
