package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatStats(t *testing.T) {
	out := formatStats(&cacheStats{
		Entries:            3,
		TotalBytes:         2048,
		Hits:               10,
		Misses:             4,
		EnhancementEntries: 2,
	})
	for _, want := range []string{"Entries:       3", "2.0 KiB", "Hits:          10", "Enhancements:    2"} {
		if !strings.Contains(out, want) {
			t.Errorf("formatted stats missing %q:\n%s", want, out)
		}
	}
}

func TestAPIClientCacheStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cache/stats" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"entries":5,"totalBytes":100,"hits":9}`))
	}))
	defer srv.Close()

	stats, err := newAPIClient(srv.URL).CacheStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Entries != 5 || stats.TotalBytes != 100 || stats.Hits != 9 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestAPIClientResolveQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"url":"https://cdn.example.com/a.jpg","source":"stored"}`))
	}))
	defer srv.Close()

	res, err := newAPIClient(srv.URL).Resolve(context.Background(), "https://t.me/mygroup", "", "My Group", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != "stored" {
		t.Errorf("expected stored source, got %q", res.Source)
	}
	if !strings.Contains(gotQuery, "telegram_url=https%3A%2F%2Ft.me%2Fmygroup") {
		t.Errorf("telegram_url not escaped in query: %s", gotQuery)
	}
	if !strings.Contains(gotQuery, "name=My+Group") {
		t.Errorf("name missing from query: %s", gotQuery)
	}
	if strings.Contains(gotQuery, "fallback_url") {
		t.Errorf("empty fallback_url should be omitted: %s", gotQuery)
	}
}

func TestAPIClientErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"url is required"}`))
	}))
	defer srv.Close()

	_, err := newAPIClient(srv.URL).CacheStats(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "url is required") {
		t.Errorf("expected server error message, got %v", err)
	}
}
