// Package app wires configuration, storage and the HTTP surfaces together.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/toolshelf/toolshelf/internal/audit"
	"github.com/toolshelf/toolshelf/internal/cache"
	"github.com/toolshelf/toolshelf/internal/config"
	"github.com/toolshelf/toolshelf/internal/db"
	"github.com/toolshelf/toolshelf/internal/http/api/admin"
	"github.com/toolshelf/toolshelf/internal/http/api/front"
	"github.com/toolshelf/toolshelf/internal/metrics"
	"github.com/toolshelf/toolshelf/internal/security"
	"github.com/toolshelf/toolshelf/internal/twofactor"
)

const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs schema migrations.
func Migrate(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	configureLogging(cfg)

	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// Run boots the catalog server and blocks until ctx is cancelled.
func Run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	configureLogging(cfg)

	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	cipher, errCipher := security.NewCipher(cfg.App.EncryptionKey)
	if errCipher != nil {
		return errCipher
	}
	twoFactor := twofactor.NewService(cfg.App.Name, cipher)

	store := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer store.Close()

	recorder := audit.NewRecorder(conn)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), metrics.Middleware(), requestLogger())

	front.RegisterRoutes(engine, conn, cfg.JWT, twoFactor, store, recorder)
	admin.RegisterRoutes(engine, conn, cfg.JWT, twoFactor, store, recorder)
	engine.GET("/metrics", metrics.Handler())
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Server.Addr)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
			return
		}
		errCh <- nil
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
		return errShutdown
	}
	return <-errCh
}

// configureLogging applies the configured level and, when a file is set,
// rotating file output.
func configureLogging(cfg *config.Config) {
	level, errLevel := log.ParseLevel(cfg.Log.Level)
	if errLevel != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Log.File != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}
}

// requestLogger logs each request at debug with method, path and status.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("request")
	}
}
