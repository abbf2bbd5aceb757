package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResponseWriterDefaults(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected default status code 200, got %d", rw.statusCode)
	}
	if rw.bytesWritten != 0 {
		t.Errorf("Expected 0 bytes written, got %d", rw.bytesWritten)
	}
}

func TestResponseWriterWriteHeader(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	rw.WriteHeader(http.StatusNotFound)
	if rw.statusCode != http.StatusNotFound {
		t.Errorf("Expected status code 404, got %d", rw.statusCode)
	}

	// Second WriteHeader should be ignored
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusNotFound {
		t.Errorf("Expected status code to remain 404, got %d", rw.statusCode)
	}
}

func TestResponseWriterWrite(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	data := []byte("hello world")
	n, err := rw.Write(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != len(data) {
		t.Errorf("Expected %d bytes written, got %d", len(data), n)
	}
	if rw.bytesWritten != int64(len(data)) {
		t.Errorf("Expected bytesWritten=%d, got %d", len(data), rw.bytesWritten)
	}
}

func TestDefaultLoggingConfig(t *testing.T) {
	config := DefaultLoggingConfig()

	if config.LogStaticFiles {
		t.Error("Expected LogStaticFiles to default to false")
	}
	if !config.LogHealthChecks {
		t.Error("Expected LogHealthChecks to default to true")
	}
	if len(config.SkipExtensions) == 0 {
		t.Error("Expected SkipExtensions to have default values")
	}
}

func TestLoggerMiddleware(t *testing.T) {
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	middleware := Logger(DefaultLoggingConfig())
	wrapped := middleware(handler)

	req := httptest.NewRequest("GET", "/api/resolve", nil)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	if !handlerCalled {
		t.Error("Expected handler to be called")
	}
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestShouldSkip(t *testing.T) {
	config := LoggingConfig{
		SkipPaths:       []string{"/internal"},
		SkipExtensions:  []string{".css", ".js"},
		LogStaticFiles:  false,
		LogHealthChecks: false,
	}

	tests := []struct {
		path string
		want bool
	}{
		{"/internal/debug", true},
		{"/healthz", true},
		{"/app.css", true},
		{"/APP.JS", true},
		{"/api/resolve", false},
	}

	for _, tt := range tests {
		if got := shouldSkip(tt.path, config); got != tt.want {
			t.Errorf("shouldSkip(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain string", "normal", "normal"},
		{"newline replaced", "a\nb", "a b"},
		{"carriage return replaced", "a\rb", "a b"},
		{"null byte stripped", "a\x00b", "ab"},
		{"ansi escape stripped", "a\x1b[31mb", "a[31mb"},
		{"tab preserved", "a\tb", "a\tb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogField(tt.input); got != tt.want {
				t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*http.Request)
		remote string
		want   string
	}{
		{
			name:   "RemoteAddr only",
			setup:  func(_ *http.Request) {},
			remote: "192.0.2.1:1234",
			want:   "192.0.2.1",
		},
		{
			name:   "X-Forwarded-For single",
			setup:  func(r *http.Request) { r.Header.Set("X-Forwarded-For", "203.0.113.7") },
			remote: "192.0.2.1:1234",
			want:   "203.0.113.7",
		},
		{
			name:   "X-Forwarded-For chain takes first",
			setup:  func(r *http.Request) { r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1") },
			remote: "192.0.2.1:1234",
			want:   "203.0.113.7",
		},
		{
			name:   "X-Real-IP",
			setup:  func(r *http.Request) { r.Header.Set("X-Real-IP", "203.0.113.9") },
			remote: "192.0.2.1:1234",
			want:   "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			tt.setup(req)
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultCompressionConfig(t *testing.T) {
	config := DefaultCompressionConfig()

	if config.MinSize <= 0 {
		t.Error("Expected positive MinSize")
	}

	// JSON must compress; image payloads must not.
	hasJSON := false
	for _, ct := range config.CompressibleTypes {
		if ct == "application/json" {
			hasJSON = true
		}
		if strings.HasPrefix(ct, "image/") && ct != "image/svg+xml" {
			t.Errorf("raster image type %q should not be compressible", ct)
		}
	}
	if !hasJSON {
		t.Error("Expected application/json to be compressible")
	}
}

func TestCompressionMiddleware(t *testing.T) {
	largeJSON := `{"data":"` + strings.Repeat("x", 2048) + `"}`

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(largeJSON))
	})

	middleware := Compression(DefaultCompressionConfig())
	wrapped := middleware(handler)

	t.Run("compresses large JSON", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/stats", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		if w.Header().Get("Content-Encoding") != "gzip" {
			t.Fatal("Expected gzip Content-Encoding")
		}

		gr, err := gzip.NewReader(w.Body)
		if err != nil {
			t.Fatalf("Failed to create gzip reader: %v", err)
		}
		decompressed, err := io.ReadAll(gr)
		if err != nil {
			t.Fatalf("Failed to decompress: %v", err)
		}
		if string(decompressed) != largeJSON {
			t.Error("Decompressed body does not match original")
		}
	})

	t.Run("skips without Accept-Encoding", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/stats", nil)
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		if w.Header().Get("Content-Encoding") == "gzip" {
			t.Error("Compressed despite missing Accept-Encoding")
		}
		if w.Body.String() != largeJSON {
			t.Error("Body was modified without compression")
		}
	})

	t.Run("skips small responses", func(t *testing.T) {
		small := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ok":true}`))
		})
		req := httptest.NewRequest("GET", "/api/health", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		middleware(small).ServeHTTP(w, req)

		if w.Header().Get("Content-Encoding") == "gzip" {
			t.Error("Compressed a response below MinSize")
		}
	})

	t.Run("skips image responses", func(t *testing.T) {
		img := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte(strings.Repeat("j", 4096)))
		})
		req := httptest.NewRequest("GET", "/api/image", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		middleware(img).ServeHTTP(w, req)

		if w.Header().Get("Content-Encoding") == "gzip" {
			t.Error("Compressed a JPEG payload")
		}
	})
}

func TestCompressionWithMultipleWrites(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		for i := 0; i < 10; i++ {
			w.Write([]byte(strings.Repeat("chunk", 100)))
		}
	})

	middleware := Compression(DefaultCompressionConfig())
	req := httptest.NewRequest("GET", "/api/stats", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	middleware(handler).ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatal("Expected gzip Content-Encoding")
	}

	gr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("Failed to create gzip reader: %v", err)
	}
	decompressed, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("Failed to decompress: %v", err)
	}
	if len(decompressed) != 10*500 {
		t.Errorf("Expected %d bytes, got %d", 10*500, len(decompressed))
	}
}

func TestDefaultMetricsConfig(t *testing.T) {
	config := DefaultMetricsConfig()

	expectedPaths := []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"}
	for _, path := range expectedPaths {
		found := false
		for _, skip := range config.SkipPaths {
			if skip == path {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected %q to be in default SkipPaths", path)
		}
	}
}

func TestMetricsMiddlewareSkipPaths(t *testing.T) {
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	middleware := Metrics(DefaultMetricsConfig())
	wrapped := middleware(handler)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	if !handlerCalled {
		t.Error("Expected handler to be called even for skipped paths")
	}
}

func TestMetricsMiddlewareStatusCode(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	middleware := Metrics(DefaultMetricsConfig())
	wrapped := middleware(handler)

	req := httptest.NewRequest("GET", "/api/resolve", nil)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Errorf("Expected status 418, got %d", w.Code)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"short path untouched", "/api/resolve", "/api/resolve"},
		{"root untouched", "/", "/"},
		{"deep path truncated", "/api/image/a/b/c/d", "/api/image/a/{path}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	})

	req := httptest.NewRequest("GET", "/api/resolve", nil)
	w := httptest.NewRecorder()
	RequestID(handler).ServeHTTP(w, req)

	if seen == "" || seen == "-" {
		t.Fatal("Expected a generated request ID in the context")
	}
	if got := w.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("Response header ID %q does not match context ID %q", got, seen)
	}
}

func TestRequestIDHonorsUpstream(t *testing.T) {
	handler := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		if got := GetRequestID(r.Context()); got != "upstream-id" {
			t.Errorf("GetRequestID() = %q, want upstream-id", got)
		}
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	w := httptest.NewRecorder()
	RequestID(handler).ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "upstream-id" {
		t.Errorf("Response header = %q, want upstream-id", got)
	}
}

func TestGetRequestIDWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if got := GetRequestID(req.Context()); got != "-" {
		t.Errorf("GetRequestID() without middleware = %q, want -", got)
	}
}
