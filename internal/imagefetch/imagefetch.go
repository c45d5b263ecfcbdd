package imagefetch

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

var extensionContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".bmp":  "image/bmp",
	".ico":  "image/x-icon",
}

// Fetcher downloads images and inlines them as data URIs, caching results
// in a bounded LRU keyed by source URL.
type Fetcher struct {
	httpClient *http.Client
	cache      *lru.Cache[string, string]
}

func New(timeout time.Duration, cacheSize int) *Fetcher {
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		panic("imagefetch: failed to construct bounded cache: " + err.Error())
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
	}
}

// Fetch returns a "data:<content-type>;base64,<payload>" URI for url, or
// ("", false) if the image could not be fetched or its content type could
// not be determined.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, bool) {
	if url == "" {
		return "", false
	}

	if cached, ok := f.cache.Get(url); ok {
		return cached, true
	}

	dataURI, ok := f.fetch(ctx, url)
	if ok {
		f.cache.Add(url, dataURI)
	}
	return dataURI, ok
}

func (f *Fetcher) fetch(ctx context.Context, url string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false
	}

	contentType := contentTypeFor(resp.Header.Get("Content-Type"), url)
	if contentType == "" {
		return "", false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false
	}

	payload := base64.StdEncoding.EncodeToString(body)
	return "data:" + contentType + ";base64," + payload, true
}

func contentTypeFor(header, url string) string {
	header = strings.TrimSpace(strings.ToLower(header))
	if idx := strings.Index(header, ";"); idx >= 0 {
		header = header[:idx]
	}
	if strings.HasPrefix(header, "image/") {
		return header
	}

	ext := strings.ToLower(path.Ext(stripQuery(url)))
	return extensionContentTypes[ext]
}

func stripQuery(url string) string {
	if idx := strings.IndexAny(url, "?#"); idx >= 0 {
		return url[:idx]
	}
	return url
}
