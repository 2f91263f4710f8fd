package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/grievance-box-api/api/swagger"
	"github.com/noah-isme/grievance-box-api/internal/dto"
	"github.com/noah-isme/grievance-box-api/internal/handler"
	"github.com/noah-isme/grievance-box-api/internal/identity"
	"github.com/noah-isme/grievance-box-api/internal/middleware"
	"github.com/noah-isme/grievance-box-api/internal/repository"
	"github.com/noah-isme/grievance-box-api/internal/service"
	"github.com/noah-isme/grievance-box-api/pkg/cache"
	"github.com/noah-isme/grievance-box-api/pkg/config"
	"github.com/noah-isme/grievance-box-api/pkg/database"
	"github.com/noah-isme/grievance-box-api/pkg/logger"
	"github.com/noah-isme/grievance-box-api/pkg/middleware/bodylimit"
	corsmiddleware "github.com/noah-isme/grievance-box-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/grievance-box-api/pkg/middleware/requestid"
)

// @title Grievance Box API
// @version 1.0.0
// @description Grievance letters filed by students and handled by teachers and admins.
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	bands, err := identity.NewBands(cfg.Identity.AdminStartIndex, cfg.Identity.TeacherStartIndex, cfg.Identity.StudentStartIndex)
	if err != nil {
		return fmt.Errorf("identity bands: %w", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
		logr.Info("migrations applied")
	}

	rdb, err := cache.NewRedis(context.Background(), cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	validate := validator.New()
	metrics := service.NewMetricsService()

	identityRepo := repository.NewIdentityRepository(db, bands)
	letterRepo := repository.NewLetterRepository(db)
	sessionRepo := repository.NewSessionRepository(rdb)

	authSvc := service.NewAuthService(identityRepo, sessionRepo, bands, metrics, validate, logr.Named("auth"), service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	identitySvc := service.NewIdentityService(identityRepo, validate, logr.Named("identity"))
	if cfg.Bootstrap.Enabled() {
		created, err := identitySvc.BootstrapAdmin(context.Background(), dto.CreateAdminRequest{
			Name:     cfg.Bootstrap.AdminName,
			Email:    cfg.Bootstrap.AdminEmail,
			Password: cfg.Bootstrap.AdminPassword,
		})
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			logr.Info("bootstrap admin created", zap.String("email", cfg.Bootstrap.AdminEmail))
		}
	}
	letterSvc := service.NewLetterService(letterRepo, metrics, validate, logr.Named("letters"))

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(bodylimit.Middleware(cfg.MaxBodyBytes))
	r.Use(middleware.Metrics(metrics, "/metrics"))

	handler.Register(r, handler.Routes{
		Auth:       handler.NewAuthHandler(authSvc, handler.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure}),
		Identities: handler.NewIdentityHandler(identitySvc),
		Letters:    handler.NewLetterHandler(letterSvc),
		Metrics: handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
			"postgres": db,
			"redis":    handler.PingerFunc(sessionRepo.Ping),
		}),
		Session: middleware.Session(authSvc, cfg.Session.CookieName),
		Logger:  logr,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logr.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logr.Info("server stopped")
	return nil
}
