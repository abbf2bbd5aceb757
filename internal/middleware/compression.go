package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// CompressionConfig controls the gzip middleware.
type CompressionConfig struct {
	// MinSize is the smallest body, in bytes, worth compressing.
	MinSize int
	// Level is passed to gzip.NewWriterLevel.
	Level int
	// CompressibleTypes lists the media types eligible for compression.
	// Image bytes are already compressed and are never on this list,
	// with the exception of SVG.
	CompressibleTypes []string
}

// DefaultCompressionConfig covers what this service actually emits:
// JSON from the API surface, plain text and HTML from error paths, and
// SVG fallback avatars. JPEG and PNG responses stay untouched.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.DefaultCompression,
		CompressibleTypes: []string{
			"application/json",
			"text/plain",
			"text/html",
			"image/svg+xml",
		},
	}
}

// deferredWriter buffers the response until it knows the size and
// content type, then either streams through gzip or passes the bytes
// along untouched. Handlers never see the difference.
type deferredWriter struct {
	http.ResponseWriter
	config   CompressionConfig
	pool     *sync.Pool
	gz       *gzip.Writer
	pending  []byte
	status   int
	decided  bool
	compress bool
}

func (d *deferredWriter) WriteHeader(status int) {
	if d.decided {
		return
	}
	d.status = status
}

func (d *deferredWriter) Write(p []byte) (int, error) {
	if d.decided {
		if d.gz != nil {
			return d.gz.Write(p)
		}
		return d.ResponseWriter.Write(p)
	}

	d.pending = append(d.pending, p...)
	if len(d.pending) > d.config.MinSize {
		d.decide()
	}
	return len(p), nil
}

// compressible reports whether the response's media type is on the
// allow list. Parameters like charset are ignored.
func (d *deferredWriter) compressible() bool {
	ct := d.Header().Get("Content-Type")
	if ct == "" {
		return false
	}
	media := strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	for _, allowed := range d.config.CompressibleTypes {
		if media == allowed {
			return true
		}
	}
	return false
}

// decide commits to compressed or plain output and flushes the buffer.
// Called once, either when the buffer outgrows MinSize or at Close.
func (d *deferredWriter) decide() {
	if d.decided {
		return
	}
	d.decided = true

	d.compress = len(d.pending) >= d.config.MinSize && d.compressible()
	if d.compress {
		// Content-Length no longer matches the wire bytes.
		d.Header().Del("Content-Length")
		d.Header().Set("Content-Encoding", "gzip")
		d.Header().Add("Vary", "Accept-Encoding")

		d.gz = d.pool.Get().(*gzip.Writer)
		d.gz.Reset(d.ResponseWriter)
		d.ResponseWriter.WriteHeader(d.status)
		d.gz.Write(d.pending)
	} else {
		d.ResponseWriter.WriteHeader(d.status)
		d.ResponseWriter.Write(d.pending)
	}
	d.pending = nil
}

func (d *deferredWriter) Close() error {
	if !d.decided {
		d.decide()
	}
	if d.gz != nil {
		err := d.gz.Close()
		d.pool.Put(d.gz)
		d.gz = nil
		return err
	}
	return nil
}

// Flush implements http.Flusher so streamed responses still work.
func (d *deferredWriter) Flush() {
	if !d.decided {
		d.decide()
	}
	if d.gz != nil {
		d.gz.Flush()
	}
	if f, ok := d.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Compression returns middleware that gzips compressible responses for
// clients that advertise gzip support.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	// One pool per middleware instance so the configured level sticks.
	pool := &sync.Pool{
		New: func() interface{} {
			w, err := gzip.NewWriterLevel(io.Discard, config.Level)
			if err != nil {
				w = gzip.NewWriter(io.Discard)
			}
			return w
		},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				next.ServeHTTP(w, r)
				return
			}
			// Protocol upgrades must keep the raw connection.
			if r.Header.Get("Upgrade") != "" {
				next.ServeHTTP(w, r)
				return
			}

			dw := &deferredWriter{
				ResponseWriter: w,
				config:         config,
				pool:           pool,
				status:         http.StatusOK,
				pending:        make([]byte, 0, config.MinSize+1),
			}
			defer dw.Close()
			next.ServeHTTP(dw, r)
		})
	}
}
