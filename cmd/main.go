package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/avollmer/oauthd/internal/api/http/handler"
	"github.com/avollmer/oauthd/internal/api/http/middleware"
	"github.com/avollmer/oauthd/internal/api/http/router"
	"github.com/avollmer/oauthd/internal/config"
	"github.com/avollmer/oauthd/internal/keys"
	"github.com/avollmer/oauthd/internal/logger"
	"github.com/avollmer/oauthd/internal/repository/postgres"
	"github.com/avollmer/oauthd/internal/server"
	"github.com/avollmer/oauthd/internal/service"
	storage "github.com/avollmer/oauthd/internal/storage/minio"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

// keySweepInterval is how often retiring keys are checked for
// retirement and purge.
const keySweepInterval = 10 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	clientRepo := postgres.NewClientRepository(db)
	userRepo := postgres.NewUserRepository(db)
	requestRepo := postgres.NewAuthorizationRequestRepository(db)
	codeRepo := postgres.NewAuthorizationCodeRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	signingKeyRepo := postgres.NewSigningKeyRepository(db)
	roleRepo := postgres.NewRoleRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	auditRecorder := service.NewAuditRecorder(auditRepo, cfg.Audit.FailClosed, cfg.Audit.QueryLimit, logger)

	keyManager := keys.NewManager(signingKeyRepo, cfg.Keys.Retention, cfg.Keys.PurgeGrace, logger)
	if err := keyManager.EnsureActive(ctx); err != nil {
		logger.Fatal("failed to ensure active signing key", "error", err)
	}

	tokenService := service.NewTokenService(keyManager, refreshTokenRepo, userRepo, auditRecorder, service.TokenConfig{
		Issuer:     cfg.Token.Issuer,
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
		ClockSkew:  cfg.Token.ClockSkew,
	}, logger)

	authFlow := service.NewAuthorizationFlow(clientRepo, requestRepo, codeRepo, tokenService, auditRecorder, service.FlowConfig{
		CodeTTL:            cfg.Token.CodeTTL,
		AllowPartialScopes: cfg.Consent.AllowPartialScopes,
		AllowPlainPKCE:     cfg.Consent.AllowPlainPKCE,
	}, logger)

	rbacService := service.NewRBAC(roleRepo, userRepo, auditRecorder, logger)

	var archiver *service.AuditArchiver
	if cfg.Archive.Enabled {
		minioClient, err := minio.New(cfg.Archive.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Archive.AccessKey, cfg.Archive.SecretKey, ""),
			Secure: cfg.Archive.UseSSL,
		})
		if err != nil {
			logger.Fatal("failed to create minio client", "error", err)
		}
		archiveStorage, err := storage.NewClient(ctx, minioClient, cfg.Archive.Bucket)
		if err != nil {
			logger.Fatal("failed to initialize archive storage", "error", err)
		}
		archiver = service.NewAuditArchiver(auditRecorder, archiveStorage, logger)
	}

	oauthHandler := handler.NewOAuth(authFlow, tokenService, clientRepo, logger)
	wellKnownHandler := handler.NewWellKnown(cfg.Token.Issuer, keyManager, logger)
	adminHandler := handler.NewAdmin(rbacService, auditRecorder, archiver, tokenService, keyManager, logger)
	authenticate := middleware.NewAuthenticate(tokenService, rbacService, logger)

	mux := router.New(oauthHandler, wellKnownHandler, adminHandler, authenticate, db, logger).Register()
	httpServer := server.NewHTTPServer(mux, fmt.Sprintf(":%s", cfg.HTTP.Port))

	var listener server.Listener
	if cfg.HTTP.EnableHTTPS {
		listener = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		listener = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Starting server on", "address", httpServer.Address())
		if err := httpServer.Start(listener); err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sweepKeys(ctx, keyManager, logger)
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", httpServer.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

// sweepKeys periodically retires and purges signing keys until the
// context is cancelled.
func sweepKeys(ctx context.Context, keyManager *keys.Manager, logger *logger.Logger) {
	ticker := time.NewTicker(keySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := keyManager.Sweep(ctx); err != nil {
				logger.Error("signing key sweep failed", "error", err)
			}
		}
	}
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
