package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func analyzeServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestAnalyzeSuccess(t *testing.T) {
	srv := analyzeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/analyze" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if body["url"] != "https://t.me/golangbr" {
			t.Errorf("url = %q", body["url"])
		}
		json.NewEncoder(w).Encode(AnalyzeResult{
			Success: true,
			URL:     "https://t.me/golangbr",
			OpenGraph: OpenGraph{
				Title:          "Go Brasil",
				Image:          "https://cdn4.telesco.pe/file/abc.jpg",
				HasCustomImage: true,
			},
			IsValidForRegistration: true,
		})
	})

	c := NewClient(srv.URL, time.Second)
	res, err := c.Analyze(context.Background(), "https://t.me/golangbr")
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if res.OpenGraph.Image != "https://cdn4.telesco.pe/file/abc.jpg" {
		t.Errorf("image = %q", res.OpenGraph.Image)
	}
	if !res.OpenGraph.HasCustomImage || !res.IsValidForRegistration {
		t.Error("flags not decoded")
	}
}

func TestAnalyzeReportedFailure(t *testing.T) {
	srv := analyzeServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(AnalyzeResult{Success: false, Error: "channel not found"})
	})

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Analyze(context.Background(), "https://t.me/missing"); err == nil {
		t.Error("Analyze() succeeded on a failure response")
	}
}

func TestAnalyzeMalformedResponse(t *testing.T) {
	srv := analyzeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	})

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Analyze(context.Background(), "https://t.me/x"); err == nil {
		t.Error("Analyze() succeeded on malformed JSON")
	}
}

func TestAnalyzeRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := analyzeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(AnalyzeResult{Success: true, OpenGraph: OpenGraph{Image: "https://x/i.jpg"}})
	})

	c := NewClient(srv.URL, time.Second)
	res, err := c.Analyze(context.Background(), "https://t.me/retry")
	if err != nil {
		t.Fatalf("Analyze() error after retries: %v", err)
	}
	if res.OpenGraph.Image != "https://x/i.jpg" {
		t.Errorf("image = %q", res.OpenGraph.Image)
	}
	if hits.Load() != 3 {
		t.Errorf("origin hits = %d, want 3", hits.Load())
	}
}

func TestAnalyzeDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := analyzeServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Analyze(context.Background(), "https://t.me/x"); err == nil {
		t.Fatal("Analyze() succeeded on 404")
	}
	if hits.Load() != 1 {
		t.Errorf("origin hits = %d, want 1", hits.Load())
	}
}

func TestAnalyzeDeduplicatesConcurrentCalls(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := analyzeServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		json.NewEncoder(w).Encode(AnalyzeResult{Success: true})
	})

	c := NewClient(srv.URL, 5*time.Second)
	const callers = 6
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Analyze(context.Background(), "https://t.me/shared"); err != nil {
				t.Errorf("Analyze() error: %v", err)
			}
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if hits.Load() != 1 {
		t.Errorf("origin hits = %d, want 1", hits.Load())
	}
}

func TestAnalyzeContextCanceled(t *testing.T) {
	srv := analyzeServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.Analyze(ctx, "https://t.me/slow"); err == nil {
		t.Error("Analyze() succeeded past its deadline")
	}
}

func TestOptimizeURL(t *testing.T) {
	got := OptimizeURL("https://cdn4.telesco.pe/file/abc.jpg")
	if !strings.HasPrefix(got, "https://wsrv.nl/?url=https%3A%2F%2Fcdn4.telesco.pe%2Ffile%2Fabc.jpg") {
		t.Errorf("unexpected proxy URL: %s", got)
	}
	for _, param := range []string{"w=400", "h=400", "fit=cover", "a=attention"} {
		if !strings.Contains(got, param) {
			t.Errorf("missing %s in %s", param, got)
		}
	}
	if OptimizeURL("") != "" {
		t.Error("OptimizeURL(\"\") should be empty")
	}
}
