package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	nats "github.com/nats-io/nats.go"
	"golang.org/x/time/rate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/contacts-api/config"
	httpadapter "github.com/example/contacts-api/internal/adapters/http"
	apiv1 "github.com/example/contacts-api/internal/adapters/http/api/v1"
	"github.com/example/contacts-api/internal/adapters/http/api/v1/handlers"
	mw "github.com/example/contacts-api/internal/adapters/http/middleware"
	natsadapter "github.com/example/contacts-api/internal/adapters/nats"
	repo "github.com/example/contacts-api/internal/adapters/postgres"
	cache "github.com/example/contacts-api/internal/adapters/redis"
	avatars "github.com/example/contacts-api/internal/adapters/s3"
	mail "github.com/example/contacts-api/internal/adapters/smtp"
	"github.com/example/contacts-api/internal/domain"
	"github.com/example/contacts-api/internal/token"
	"github.com/example/contacts-api/internal/usecase"
	pkglog "github.com/example/contacts-api/pkg/log"
)

type App struct {
	cfg      *config.Config
	logger   pkglog.Logger
	db       *gorm.DB
	store    *cache.Store
	natsConn *nats.Conn
	echo     *echo.Echo
}

func New(ctx context.Context) (*App, error) {
	cfg := config.MustLoad()
	log := pkglog.New(cfg.AppEnv, cfg.AppName)

	db, err := gorm.Open(postgres.Open(buildDSN(cfg)), &gorm.Config{
		Logger:         loggerForGorm(cfg),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Contact{}); err != nil {
		return nil, err
	}

	var store *cache.Store
	var revocation usecase.RevocationStore
	var limiter mw.Limiter
	if cfg.RedisAddr != "" {
		store, err = cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RateLimitAttempts, cfg.RateLimitWindow)
		if err != nil {
			return nil, err
		}
		revocation = store
		limiter = store
	} else {
		log.Warn().Msg("redis not configured; using in-process rate limiter, token revocation disabled")
		every := cfg.RateLimitWindow / time.Duration(cfg.RateLimitAttempts)
		limiter = mw.NewLocalLimiter(rate.Every(every), cfg.RateLimitAttempts, 10*time.Minute)
	}

	codec, err := token.NewCodec(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, err
	}

	mailer := mail.New(mail.Config{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		User:      cfg.SMTPUser,
		Password:  cfg.SMTPPassword,
		From:      cfg.SMTPFrom,
		Security:  cfg.SMTPSecurity,
		PublicURL: cfg.PublicURL,
	})
	if !mailer.Enabled() {
		log.Warn().Msg("smtp not configured; outbound mail disabled")
	}

	storage, err := avatars.New(ctx, avatars.Config{
		Region:       cfg.S3Region,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		BaseEndpoint: cfg.S3BaseEndpoint,
		Bucket:       cfg.S3Bucket,
	})
	if err != nil {
		return nil, err
	}

	userRepo := repo.NewUserRepository(db)
	contactRepo := repo.NewContactRepository(db)

	authService := usecase.NewAuthService(cfg, log, userRepo, codec, revocation, mailer)
	contactService := usecase.NewContactService(contactRepo, log)
	userService := usecase.NewUserService(userRepo, storage, revocation, log)

	authMW := mw.NewAuthMiddleware(authService)
	ready := func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
	router := httpadapter.NewRouter(cfg, apiv1.NewRouter(
		handlers.NewAuthHandler(authService),
		handlers.NewContactHandler(contactService),
		handlers.NewUserHandler(userService),
		authMW.Handler,
		limiter,
	), ready)

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Warn().Err(err).Msg("nats connect failed")
		} else {
			var dl natsadapter.Denylist
			if store != nil {
				dl = store
			}
			verifyHandler := natsadapter.NewVerifyHandler(codec, dl)
			if err := verifyHandler.Subscribe(nc, cfg.NATSVerifySubject, cfg.AppName); err != nil {
				log.Warn().Err(err).Msg("nats subscribe failed")
			}
		}
	}

	e := echo.New()
	router.Setup(e)

	return &App{cfg: cfg, logger: log, db: db, store: store, natsConn: nc, echo: e}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.echo.Shutdown(shutdownCtx)
	}()
	go func() {
		errCh <- a.echo.Start(fmt.Sprintf("%s:%s", a.cfg.HTTPHost, a.cfg.HTTPPort))
	}()
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) Close() {
	if a.natsConn != nil {
		_ = a.natsConn.Drain()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func buildDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
}

func loggerForGorm(cfg *config.Config) logger.Interface {
	level := logger.Warn
	if cfg.AppEnv == "local" {
		level = logger.Info
	}
	return logger.Default.LogMode(level)
}
