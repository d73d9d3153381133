package pollinations

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"promptcanvas/internal/imagegen"
)

func TestGenerateRequestsFixedDimensionsAndSeed(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("fake-png-bytes"))
	}))
	defer upstream.Close()

	c := New(upstream.URL, rand.New(rand.NewSource(1)))
	result, err := c.Generate(context.Background(), "glowing city skyline")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if gotPath != "/prompt/glowing%20city%20skyline" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotQuery["width"][0] != "512" || gotQuery["height"][0] != "512" {
		t.Fatalf("expected 512x512 output, got %v", gotQuery)
	}
	if gotQuery["nologo"][0] != "true" {
		t.Fatal("branding suppression flag missing")
	}
	seed, err := strconv.Atoi(gotQuery["seed"][0])
	if err != nil || seed < 0 || seed > 9_999_999 {
		t.Fatalf("seed out of range: %v", gotQuery["seed"])
	}
	if result.Seed != seed {
		t.Fatalf("returned seed %d must match requested seed %d", result.Seed, seed)
	}
	if string(result.Image) != "fake-png-bytes" {
		t.Fatal("image bytes must be passed through unchanged")
	}
	if result.ContentType != "image/png" {
		t.Fatalf("upstream content type must be preserved, got %q", result.ContentType)
	}
}

func TestGenerateSeedsAreDeterministicWithFixedSource(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer upstream.Close()

	a := New(upstream.URL, rand.New(rand.NewSource(99)))
	b := New(upstream.URL, rand.New(rand.NewSource(99)))
	ra, err := a.Generate(context.Background(), "some prompt")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	rb, err := b.Generate(context.Background(), "some prompt")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if ra.Seed != rb.Seed {
		t.Fatalf("identical sources must yield identical seeds: %d vs %d", ra.Seed, rb.Seed)
	}
}

func TestGenerateUpstreamErrorStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	c := New(upstream.URL, rand.New(rand.NewSource(1)))
	if _, err := c.Generate(context.Background(), "some prompt"); !errors.Is(err, imagegen.ErrUpstream) {
		t.Fatalf("expected ErrUpstream on non-2xx, got %v", err)
	}
}

func TestGenerateUnreachableUpstream(t *testing.T) {
	c := New("http://127.0.0.1:0", rand.New(rand.NewSource(1)))
	if _, err := c.Generate(context.Background(), "some prompt"); !errors.Is(err, imagegen.ErrUpstream) {
		t.Fatalf("expected ErrUpstream when unreachable, got %v", err)
	}
}

func TestGenerateRejectsEmptyBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	c := New(upstream.URL, rand.New(rand.NewSource(1)))
	if _, err := c.Generate(context.Background(), "some prompt"); !errors.Is(err, imagegen.ErrUpstream) {
		t.Fatalf("expected ErrUpstream on empty body, got %v", err)
	}
}

func TestDefaultContentTypeWhenUpstreamOmitsIt(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	}))
	defer upstream.Close()

	c := New(upstream.URL, rand.New(rand.NewSource(1)))
	result, err := c.Generate(context.Background(), "some prompt")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if result.ContentType != "image/jpeg" {
		t.Fatalf("expected jpeg fallback content type, got %q", result.ContentType)
	}
}
