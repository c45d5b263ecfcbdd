package imagefetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchInlinesImageFromContentTypeHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("fake-png-bytes"))
	}))
	defer srv.Close()

	f := New(5*time.Second, 1000)
	dataURI, ok := f.Fetch(context.Background(), srv.URL)
	if !ok {
		t.Fatal("expected Fetch to succeed")
	}
	if !strings.HasPrefix(dataURI, "data:image/png;base64,") {
		t.Errorf("dataURI = %q, want image/png data URI", dataURI)
	}
}

func TestFetchFallsBackToExtension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake-jpeg-bytes"))
	}))
	defer srv.Close()

	f := New(5*time.Second, 1000)
	dataURI, ok := f.Fetch(context.Background(), srv.URL+"/photo.jpg")
	if !ok {
		t.Fatal("expected Fetch to succeed via extension fallback")
	}
	if !strings.HasPrefix(dataURI, "data:image/jpeg;base64,") {
		t.Errorf("dataURI = %q, want image/jpeg data URI", dataURI)
	}
}

func TestFetchUnknownContentTypeReturnsFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not an image"))
	}))
	defer srv.Close()

	f := New(5*time.Second, 1000)
	_, ok := f.Fetch(context.Background(), srv.URL+"/page.html")
	if ok {
		t.Error("expected Fetch to fail for unresolvable content type")
	}
}

func TestFetchNonSuccessStatusReturnsFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(5*time.Second, 1000)
	_, ok := f.Fetch(context.Background(), srv.URL+"/missing.png")
	if ok {
		t.Error("expected Fetch to fail on 404")
	}
}

func TestFetchEmptyURLReturnsFalse(t *testing.T) {
	f := New(5*time.Second, 1000)
	_, ok := f.Fetch(context.Background(), "")
	if ok {
		t.Error("expected Fetch to fail on empty URL")
	}
}

func TestFetchCachesResult(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	f := New(5*time.Second, 1000)
	f.Fetch(context.Background(), srv.URL)
	f.Fetch(context.Background(), srv.URL)

	if calls != 1 {
		t.Errorf("expected 1 HTTP call due to caching, got %d", calls)
	}
}
