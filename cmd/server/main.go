package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/cache"
	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/config"
	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/httpapi"
	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/service"
	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/store"
	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/store/memory"
	sqlitestore "github.com/Chiwu19/Yumm-Yard-Tracker/internal/store/sqlite"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.SQLitePath != "" {
		db, err := sqlitestore.New(ctx, cfg.SQLitePath)
		if err != nil {
			log.Fatalf("sqlite unavailable (%v) and SQLITE_PATH is set; refusing to start with in-memory fallback", err)
		}
		repo = db
		closers = append(closers, db.Close)
		log.Printf("repository: sqlite (%s)", cfg.SQLitePath)
	} else {
		repo = memory.NewSeeded()
		log.Println("repository: in-memory")
	}

	liveCache := cache.LiveSalesCache(cache.NoopLiveSalesCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisLiveSalesCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			liveCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("live-sales cache: redis")
		}
	} else {
		log.Println("live-sales cache: noop")
	}

	svc := service.New(repo, liveCache, time.Duration(cfg.LiveCacheTTLSeconds)*time.Second)
	api := httpapi.New(svc, cfg.AllowedOrigin, time.Duration(cfg.DayCloseTokenSeconds)*time.Second)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("tracker backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}
