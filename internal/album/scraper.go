// Package album scrapes image URLs and captions from a hosted photo-album page.
// It never touches the object store.
package album

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptLanguage = "zh-TW,zh;q=0.9,en-US;q=0.8,en;q=0.7"

	maxPageBytes = 10 << 20
)

// ErrMissingKey is returned when no album key is supplied.
var ErrMissingKey = errors.New("missing albumKey parameter")

// thumbPattern matches <div class="th" data-url="..." data-caption="...">.
var thumbPattern = regexp.MustCompile(`(?i)<div\s+class="th"\s+data-url="([^"]+)"(?:\s+data-caption="([^"]*)")?`)

// Image is one picture found on an album page.
type Image struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// Scraper fetches album pages from a single host.
type Scraper struct {
	client  *http.Client
	baseURL string
}

// NewScraper creates a Scraper for albums under baseURL. A nil client gets a
// default one with a 30 second timeout.
func NewScraper(baseURL string, client *http.Client) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Scraper{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Fetch downloads the album page for albumKey and extracts its images in page order.
func (s *Scraper) Fetch(ctx context.Context, albumKey string) ([]Image, error) {
	if albumKey == "" {
		return nil, ErrMissingKey
	}

	albumURL := s.baseURL + "/" + url.PathEscape(albumKey)
	log.Printf("album: fetching %s", albumURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, albumURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build album request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch album page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch album page: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read album page: %w", err)
	}

	images := Extract(string(body))
	log.Printf("album: extracted %d images from %s", len(images), albumURL)
	return images, nil
}

// Extract returns every thumbnail container's URL and caption. A missing
// caption is returned as an empty string.
func Extract(html string) []Image {
	images := make([]Image, 0)
	for _, m := range thumbPattern.FindAllStringSubmatch(html, -1) {
		if m[1] == "" {
			continue
		}
		images = append(images, Image{URL: m[1], Caption: m[2]})
	}
	return images
}
