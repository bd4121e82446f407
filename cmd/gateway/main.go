//	@title			Gallery Widget Object Gateway
//	@version		1.0
//	@description	Stores, serves and removes gallery images in an object store.
//
//	@host		localhost:8787
//	@BasePath	/

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
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/gallery-widget/gateway/internal/config"
	"github.com/gallery-widget/gateway/internal/gateway"
	appMiddleware "github.com/gallery-widget/gateway/internal/middleware"
	"github.com/gallery-widget/gateway/internal/storage"

	_ "github.com/gallery-widget/gateway/docs/swagger"
)

func main() {
	cfg := config.Load()

	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}
	if store == nil {
		log.Println("STORAGE_DRIVER not set: upload, delete and transform will report a missing bucket binding")
	} else {
		log.Printf("object storage ready (driver=%s bucket=%s)", cfg.StorageDriver, cfg.StorageBucket)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(gateway.New(store)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Docs get their own listener so every path on the gateway port stays a gateway path.
	var docs *http.Server
	if cfg.SwaggerUI() {
		docs = &http.Server{
			Addr:         ":" + cfg.SwaggerPort,
			Handler:      newDocsRouter(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("gateway listening on :%s (env=%s)", cfg.Port, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	if docs != nil {
		go func() {
			log.Printf("swagger UI at http://localhost:%s/swagger/", cfg.SwaggerPort)
			if err := docs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("docs server error: %v", err)
			}
		}()
	}

	<-quit
	log.Println("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if docs != nil {
		if err := docs.Shutdown(ctx); err != nil {
			log.Printf("docs shutdown: %v", err)
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}

// newRouter mounts the gateway on every path. It is also the 405 handler so
// that non-standard methods still get CORS headers from the gateway.
func newRouter(gw http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	r.Handle("/*", gw)
	r.MethodNotAllowed(gw.ServeHTTP)
	return r
}

// newDocsRouter serves the swagger UI and doc.json.
func newDocsRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	return r
}
