package album

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/gallery-widget/gateway/internal/response"
)

// Handler serves the album import endpoint.
type Handler struct {
	scraper *Scraper
}

// NewHandler creates a new album Handler.
func NewHandler(scraper *Scraper) *Handler {
	return &Handler{scraper: scraper}
}

type importRequest struct {
	AlbumKey string `json:"albumKey"`
}

// ImportResponse lists the images found in an album.
type ImportResponse struct {
	Success  bool    `json:"success"`
	Images   []Image `json:"images"`
	AlbumKey string  `json:"albumKey"`
	Count    int     `json:"count"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Routes mounts the import endpoint on every path behind wildcard CORS.
// Every OPTIONS request, preflight or not, is answered with 200 "ok".
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders:     []string{"authorization", "x-client-info", "apikey", "content-type"},
		OptionsPassthrough: true,
	}))
	r.Options("/*", h.Options)
	r.Post("/*", h.Import)
	return r
}

// Options acknowledges a CORS preflight or plain OPTIONS probe.
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Import decodes {albumKey}, scrapes the album and writes the image list.
// Every failure is reported as a 500 with success=false.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, fmt.Errorf("invalid request body: %w", err))
		return
	}

	images, err := h.scraper.Fetch(r.Context(), req.AlbumKey)
	if err != nil {
		h.fail(w, err)
		return
	}

	response.OK(w, ImportResponse{
		Success:  true,
		Images:   images,
		AlbumKey: req.AlbumKey,
		Count:    len(images),
	})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	log.Printf("album import error: %v", err)
	response.JSON(w, http.StatusInternalServerError, failureResponse{Success: false, Error: err.Error()})
}
