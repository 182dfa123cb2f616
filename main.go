package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/loggo"

	"connectme/auth"
	"connectme/config"
	"connectme/controllers"
	"connectme/data"
	"connectme/realtime"
)

var logger = loggo.GetLogger("connectme")

// Эталонный сервер хранилища пост-итов: HTTP-контракт поверх SQLite.
func main() {
	cfg := config.Load()
	if err := cfg.ConfigureLogging(); err != nil {
		logger.Warningf("invalid LOG_CONFIG %q: %v", cfg.LogConfig, err)
	}

	db, err := data.Open(cfg.Server.DBPath)
	if err != nil {
		logger.Criticalf("failed to initialize database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	jwtService := auth.NewService(cfg.Server.JWTSecret)
	anonKey, err := jwtService.GenerateAnonKey(0)
	if err != nil {
		logger.Criticalf("failed to generate anon key: %v", err)
		os.Exit(1)
	}
	logger.Infof("anon key for clients (ANON_KEY): %s", anonKey)

	rdb := realtime.NewClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
		logger.Infof("publishing changes to redis %s, channel %s", cfg.Redis.Addr, realtime.Channel)
	}

	postIts := controllers.NewPostItController(data.NewPostItStore(data.NewKV(db)), realtime.NewPublisher(rdb))
	router := controllers.NewRouter(cfg.Server.BasePath, postIts, jwtService)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("starting server on :%s%s", cfg.Server.Port, cfg.Server.BasePath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Criticalf("server failed: %v", err)
		os.Exit(1)
	}
}
