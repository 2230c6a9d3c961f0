// Package app wires configuration, storage and the HTTP API into a
// runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/approval"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/audit"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/backup"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/cache"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/config"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/db"
	adminapi "github.com/KentaroKojima0029/daiko.kanucard.support/internal/http/api/admin"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/http/api/public"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/jobs"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/notify"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/progress"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/request"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/security"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/settings"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/shopify"
)

const shutdownTimeout = 10 * time.Second

// Migrate opens the database, runs migrations and seeds the configured
// admin account.
func Migrate(ctx context.Context, cfg *config.Config) error {
	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	return seedAdmin(ctx, conn, cfg.Admin)
}

// Run boots the support backend and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	configureLogging(cfg.Log)

	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errSeed := seedAdmin(ctx, conn, cfg.Admin); errSeed != nil {
		return errSeed
	}
	if errSettings := settings.RefreshDBConfigSnapshot(ctx, conn); errSettings != nil {
		return fmt.Errorf("app: load settings: %w", errSettings)
	}

	requests := request.NewService(conn)
	engine := progress.NewEngine(conn)
	approvals := approval.NewService(conn)
	auditor := audit.NewRecorder(conn)

	var notifier notify.Notifier
	if strings.TrimSpace(cfg.SendGrid.APIKey) != "" {
		notifier = notify.NewSendGridNotifier(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	} else {
		notifier = notify.LogNotifier{}
	}
	dispatcher := notify.NewDispatcher(conn, notifier)

	progressCache := cache.NewProgressCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL.Std())
	defer func() {
		if errClose := progressCache.Close(); errClose != nil {
			log.WithError(errClose).Warn("close progress cache failed")
		}
	}()

	uploader := backup.NewUploader(cfg.FTP.Addr, cfg.FTP.User, cfg.FTP.Password, cfg.FTP.Dir,
		db.SQLitePathFromDSN(cfg.Database.DSN))
	shop := shopify.NewClient(cfg.Shopify.ShopDomain, cfg.Shopify.AccessToken)

	scheduler := jobs.NewScheduler(cfg.Scheduler, dispatcher, uploader, auditor)
	scheduler.Start()
	defer scheduler.Stop()

	router := buildRouter(cfg, conn, requests, engine, approvals, auditor, dispatcher, progressCache, uploader, shop)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Server.Addr)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
		}
	}()

	select {
	case errServe := <-errCh:
		return errServe
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("shutdown: %w", errShutdown)
	}
	return nil
}

// buildRouter assembles the gin engine with both API surfaces.
func buildRouter(cfg *config.Config, conn *gorm.DB, requests *request.Service, engine *progress.Engine, approvals *approval.Service, auditor *audit.Recorder, dispatcher *notify.Dispatcher, progressCache *cache.ProgressCache, uploader *backup.Uploader, shop *shopify.Client) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	if len(cfg.CORS.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public.RegisterPublicRoutes(router, conn, requests, approvals, dispatcher, progressCache)
	adminapi.RegisterAdminRoutes(router, adminapi.Deps{
		DB:            conn,
		JWT:           cfg.JWT,
		Requests:      requests,
		Engine:        engine,
		Approvals:     approvals,
		Auditor:       auditor,
		Dispatcher:    dispatcher,
		ProgressCache: progressCache,
		Uploader:      uploader,
		Shop:          shop,
	})
	return router
}

// configureLogging applies level and file rotation settings to logrus.
func configureLogging(cfg config.LogConfig) {
	level, errLevel := log.ParseLevel(cfg.Level)
	if errLevel != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.TrimSpace(cfg.File) != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	}
}

// seedAdmin creates the configured admin account when it does not exist.
// Existing accounts are left untouched so password changes survive restarts.
func seedAdmin(ctx context.Context, conn *gorm.DB, seed config.AdminSeedConfig) error {
	email := strings.ToLower(strings.TrimSpace(seed.Email))
	if email == "" || strings.TrimSpace(seed.Password) == "" {
		return nil
	}

	var existing models.Admin
	errFind := conn.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if errFind == nil {
		return nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("app: find seed admin: %w", errFind)
	}

	hash, errHash := security.HashPassword(seed.Password)
	if errHash != nil {
		return fmt.Errorf("app: hash seed admin password: %w", errHash)
	}
	admin := models.Admin{
		Email:    email,
		Password: hash,
		Name:     seed.Name,
		Active:   true,
	}
	if errCreate := conn.WithContext(ctx).Create(&admin).Error; errCreate != nil {
		return fmt.Errorf("app: create seed admin: %w", errCreate)
	}
	log.Infof("seeded admin account %s", email)
	return nil
}
