package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/gallery-widget/gateway/internal/album"
	"github.com/gallery-widget/gateway/internal/config"
	appMiddleware "github.com/gallery-widget/gateway/internal/middleware"
)

func main() {
	cfg := config.Load()

	handler := album.NewHandler(album.NewScraper(cfg.AlbumBaseURL, nil))

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Mount("/", handler.Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.AlbumPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("album scraper listening on :%s (upstream=%s)", cfg.AlbumPort, cfg.AlbumBaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}
