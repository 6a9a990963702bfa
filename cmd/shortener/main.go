package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Totarae/shorttty/internal/auth"
	"github.com/Totarae/shorttty/internal/cache"
	"github.com/Totarae/shorttty/internal/config"
	"github.com/Totarae/shorttty/internal/database"
	"github.com/Totarae/shorttty/internal/geo"
	grpchealth "github.com/Totarae/shorttty/internal/grpc/health"
	"github.com/Totarae/shorttty/internal/handlers"
	"github.com/Totarae/shorttty/internal/objectstore"
	"github.com/Totarae/shorttty/internal/qr"
	"github.com/Totarae/shorttty/internal/repositories"
	"github.com/Totarae/shorttty/internal/router"
	"github.com/Totarae/shorttty/internal/service"
	"github.com/Totarae/shorttty/internal/session"
	"github.com/Totarae/shorttty/internal/storage"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		exit(err)
	}
}

func exit(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run() error {
	// Инициализация конфигурации
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Инициализация конфигурации", cfg.Fields()...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Failed to close resources", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("Сервер запущен", zap.String("address", cfg.ServerAddress), zap.Bool("https", cfg.EnableHTTPS))
		var err error
		if cfg.EnableHTTPS {
			err = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var health *grpchealth.Server
	if cfg.GRPCAddress != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddress)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		health = grpchealth.NewServer(a.service, logger, grpchealth.DefaultInterval)
		go health.Watch(ctx)
		go func() {
			if err := health.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("Получен сигнал остановки")
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if health != nil {
		health.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Сервер остановлен")
	return nil
}

// app собранные зависимости HTTP-сервера.
type app struct {
	handler http.Handler
	service *service.ShortenerService
	auth    *auth.Auth
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	repo, err := a.openRepository(ctx, cfg, logger)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}

	objects, err := objectstore.NewFileStore(cfg.ObjectStorageDir, cfg.BaseURL)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}

	linkCache, err := cache.New(ctx, cfg.CacheBackend, cfg.RedisAddr, cfg.RedisPassword, logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("init cache: %w", err), a.Close())
	}
	a.closers = append(a.closers, linkCache.Close)

	a.service = service.NewShortenerService(repo, service.Options{
		QR:          qr.New(cfg.QRRenderer, cfg.QREndpoint, cfg.QRSize),
		Objects:     objects,
		Geo:         geo.NewClient(cfg.GeoEndpoint, cfg.GeoTimeout),
		Cache:       linkCache,
		CacheTTL:    cfg.CacheTTL,
		DedupWindow: cfg.ClickDedupWindow,
	}, logger, cfg.BaseURL)

	secret := cfg.JWTSecret
	if secret == "" {
		secret = randomSecret()
		logger.Warn("JWT_SECRET is empty, sessions will not survive restart")
	}

	sessions := session.NewProvider()
	unsubscribe := a.service.LogSessionEvents(sessions)
	a.closers = append(a.closers, func() error {
		unsubscribe()
		return nil
	})

	a.auth = auth.New(auth.Config{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		RedirectURL:  cfg.OAuthRedirectURL,
		UserInfoURL:  cfg.OAuthUserInfoURL,
		FrontendURL:  cfg.FrontendURL,
		Secret:       secret,
		TTL:          cfg.SessionTTL,
		Secure:       cfg.EnableHTTPS,
	}, sessions, logger)

	a.handler = router.NewRouter(handlers.NewHandler(a.service, a.auth, logger), logger,
		router.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		router.WithTrustedProxy(cfg.TrustProxyHeaders))
	return a, nil
}

// openRepository выбирает хранилище по режиму конфигурации.
func (a *app) openRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.Repository, error) {
	switch cfg.Mode {
	case config.ModeDatabase:
		if err := database.Migrate(cfg.DatabaseDSN, cfg.PgMigrationsPath, logger); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		db, err := database.NewDB(ctx, cfg.DatabaseDSN, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			db.Close()
			return nil
		})
		return repositories.NewLinkRepository(db), nil

	case config.ModeSQLite:
		repo, err := repositories.NewSQLRepository(ctx, cfg.SQLiteDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, repo.Close)
		logger.Info("Using SQL storage")
		return repo, nil

	default:
		store, err := storage.NewLinkStore(cfg.FileStoragePath, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Using local storage", zap.String("file", cfg.FileStoragePath))
		return store, nil
	}
}

// Close освобождает ресурсы в обратном порядке.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
