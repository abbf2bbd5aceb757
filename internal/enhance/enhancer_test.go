package enhance

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
)

// testImage renders a deterministic gradient so filter output is stable
// across runs.
func testImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: uint8(((x + y) * 255) / (w + h)),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNeedsEnhancement(t *testing.T) {
	tests := []struct {
		w, h int
		want bool
	}{
		{100, 100, true},
		{399, 800, true},
		{800, 399, true},
		{400, 400, false},
		{1200, 900, false},
	}
	for _, tt := range tests {
		img := image.NewNRGBA(image.Rect(0, 0, tt.w, tt.h))
		if got := NeedsEnhancement(img); got != tt.want {
			t.Errorf("NeedsEnhancement(%dx%d) = %v, want %v", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestProcessEnhancesSmallImage(t *testing.T) {
	e := New()
	src := testImage(t, 100, 80)

	res, err := e.Process(context.Background(), "https://cdn.example.com/small.png", "image/png", src, Options{})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if res.Path != PathEnhance {
		t.Fatalf("path = %q, want enhance", res.Path)
	}
	if res.ContentType != "image/jpeg" {
		t.Errorf("content type = %q, want image/jpeg", res.ContentType)
	}

	out, err := imaging.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("output did not decode: %v", err)
	}
	// 100x80 with a default 800 bound gives scale 8: 800x640 out.
	if b := out.Bounds(); b.Dx() != 800 || b.Dy() != 640 {
		t.Errorf("output = %dx%d, want 800x640", b.Dx(), b.Dy())
	}
}

func TestProcessUpscalesAtLeastTwofold(t *testing.T) {
	e := New()
	// The long side is over half the 800 bound, so the raw scale would
	// be 1.6; the floor forces a full 2x.
	src := testImage(t, 500, 300)

	res, err := e.Process(context.Background(), "https://cdn.example.com/wide.png", "image/png", src, Options{})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if res.Path != PathEnhance {
		t.Fatalf("path = %q, want enhance", res.Path)
	}
	out, err := imaging.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("output did not decode: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 1000 || b.Dy() != 600 {
		t.Errorf("output = %dx%d, want 1000x600", b.Dx(), b.Dy())
	}
}

func TestProcessOptimizesLargeImage(t *testing.T) {
	e := New()
	src := testImage(t, 1200, 900)

	res, err := e.Process(context.Background(), "https://cdn.example.com/big.png", "image/png", src, Options{MaxDimension: 600, Quality: 80})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if res.Path != PathOptimize {
		t.Fatalf("path = %q, want optimize", res.Path)
	}

	out, err := imaging.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("output did not decode: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 600 || b.Dy() != 450 {
		t.Errorf("output = %dx%d, want 600x450", b.Dx(), b.Dy())
	}
}

func TestProcessDeterministic(t *testing.T) {
	src := testImage(t, 120, 90)

	a, err := New().Process(context.Background(), "u", "image/png", src, Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := New().Process(context.Background(), "u", "image/png", src, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Data, b.Data) {
		t.Error("two runs over the same input produced different bytes")
	}
}

func TestProcessUndecodableFallsThrough(t *testing.T) {
	e := New()
	src := []byte("not an image at all")

	res, err := e.Process(context.Background(), "https://example.com/broken", "text/plain", src, Options{})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if res.Path != PathPassthrough {
		t.Errorf("path = %q, want passthrough", res.Path)
	}
	if !bytes.Equal(res.Data, src) {
		t.Error("passthrough did not return the original bytes")
	}
	if res.ContentType != "text/plain" {
		t.Errorf("content type = %q, want original", res.ContentType)
	}
}

func TestProcessCachesByURL(t *testing.T) {
	e := New()
	first := testImage(t, 100, 100)
	second := testImage(t, 200, 200)

	a, err := e.Process(context.Background(), "same-url", "image/png", first, Options{})
	if err != nil {
		t.Fatal(err)
	}
	// Different bytes, same URL: the cached result must win.
	b, err := e.Process(context.Background(), "same-url", "image/png", second, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Data, b.Data) {
		t.Error("second request for the same URL bypassed the cache")
	}
	if e.Size() != 1 {
		t.Errorf("cache size = %d, want 1", e.Size())
	}
}

func TestClearCache(t *testing.T) {
	e := New()
	src := testImage(t, 100, 100)

	if _, err := e.Process(context.Background(), "u1", "image/png", src, Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Process(context.Background(), "u2", "image/png", src, Options{}); err != nil {
		t.Fatal(err)
	}
	if e.Size() != 2 {
		t.Fatalf("cache size = %d, want 2", e.Size())
	}

	e.ClearCache()
	if e.Size() != 0 {
		t.Errorf("cache size after clear = %d, want 0", e.Size())
	}
}

func TestProcessConcurrentSameURL(t *testing.T) {
	e := New()
	src := testImage(t, 150, 150)

	const callers = 8
	results := make([]*Result, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.Process(context.Background(), "shared", "image/png", src, Options{})
			if err != nil {
				t.Errorf("Process() error: %v", err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent callers did not share one pipeline run")
		}
	}
	if e.Size() != 1 {
		t.Errorf("cache size = %d, want 1", e.Size())
	}
}

func TestProcessCanceled(t *testing.T) {
	e := New()
	src := testImage(t, 100, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Process(ctx, "canceled", "image/png", src, Options{}); err == nil {
		t.Error("Process() with canceled context succeeded")
	}
	if e.Size() != 0 {
		t.Errorf("canceled run was cached, size = %d", e.Size())
	}
}
