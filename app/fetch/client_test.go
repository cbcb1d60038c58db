package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// testOptions builds a client with zero-delay limit and retry
// policies so tests run instantly.
func testOptions(extra ...Option) []Option {
	opts := []Option{
		WithLimitPolicy(LimitPolicy{}),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 3}),
	}
	return append(opts, extra...)
}

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>approved</body></html>"))
	}))
	defer server.Close()

	client := NewClient(testOptions()...)

	body, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(body) != "<html><body>approved</body></html>" {
		t.Errorf("Expected page body, got '%s'", string(body))
	}
}

func TestFetchRetryBound(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testOptions()...)

	_, err := client.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected an error from a persistently failing server")
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", got)
	}
	if !IsTransient(err) {
		t.Errorf("Expected a transient error, got %v", err)
	}
}

func TestFetchPermanentNotRetried(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testOptions()...)

	_, err := client.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected an error for a 404 response")
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("Expected a single attempt for a permanent failure, got %d", got)
	}
	if !IsPermanent(err) {
		t.Errorf("Expected a permanent error, got %v", err)
	}
}

func TestFetchRateLimitedRetried(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(testOptions()...)

	body, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected recovery after rate limiting, got %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("Expected 'ok', got '%s'", string(body))
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestFetchMalformedURL(t *testing.T) {
	client := NewClient(testOptions()...)

	_, err := client.Fetch(context.Background(), "://not-a-url")
	if err == nil {
		t.Fatal("Expected an error for a malformed URL")
	}
	if !IsPermanent(err) {
		t.Errorf("Expected a permanent error, got %v", err)
	}
}

func TestFetchBrowserHeaders(t *testing.T) {
	var captured http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(testOptions(WithUserAgent("Test Browser/1.0"))...)

	if _, err := client.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := captured.Get("User-Agent"); got != "Test Browser/1.0" {
		t.Errorf("Expected user agent 'Test Browser/1.0', got '%s'", got)
	}
	if got := captured.Get("Accept-Language"); got != "en-US,en;q=0.9" {
		t.Errorf("Expected Accept-Language header, got '%s'", got)
	}
	if got := captured.Get("Sec-Fetch-Site"); got != "none" {
		t.Errorf("Expected Sec-Fetch-Site 'none' without referer, got '%s'", got)
	}
	if got := captured.Get("Referer"); got != "" {
		t.Errorf("Expected no Referer header, got '%s'", got)
	}
}

func TestFetchRefererHeaders(t *testing.T) {
	var captured http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(testOptions(WithReferer("https://example.com/listing"))...)

	if _, err := client.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := captured.Get("Referer"); got != "https://example.com/listing" {
		t.Errorf("Expected Referer header, got '%s'", got)
	}
	if got := captured.Get("Sec-Fetch-Site"); got != "same-origin" {
		t.Errorf("Expected Sec-Fetch-Site 'same-origin' with referer, got '%s'", got)
	}
}

func TestFetchSessionCookieCarried(t *testing.T) {
	var secondCookie string
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc123"})
		} else {
			if c, err := r.Cookie("session"); err == nil {
				secondCookie = c.Value
			}
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(testOptions()...)

	ctx := context.Background()
	if _, err := client.Fetch(ctx, server.URL); err != nil {
		t.Fatalf("Expected no error on first fetch, got %v", err)
	}
	if _, err := client.Fetch(ctx, server.URL); err != nil {
		t.Fatalf("Expected no error on second fetch, got %v", err)
	}

	if secondCookie != "abc123" {
		t.Errorf("Expected session cookie 'abc123' on second request, got '%s'", secondCookie)
	}
}

func TestFetchWarmUpSetsReferer(t *testing.T) {
	var lastReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastReferer = r.Header.Get("Referer")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(testOptions()...)

	ctx := context.Background()
	client.WarmUp(ctx, server.URL+"/listing")

	if _, err := client.Fetch(ctx, server.URL+"/node/1"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if lastReferer != server.URL+"/listing" {
		t.Errorf("Expected listing referer after warm-up, got '%s'", lastReferer)
	}
}

func TestFetchCharsetDecoded(t *testing.T) {
	// "Muñoz" encoded as ISO-8859-1
	encoded, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte("Muñoz"))
	if err != nil {
		t.Fatalf("Failed to build fixture: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write(encoded)
	}))
	defer server.Close()

	client := NewClient(testOptions()...)

	body, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(body) != "Muñoz" {
		t.Errorf("Expected decoded UTF-8 'Muñoz', got '%s'", string(body))
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 0},
		{2, time.Second},
		{3, 2 * time.Second},
		{4, 4 * time.Second},
	}

	for _, tt := range tests {
		if got := policy.Delay(tt.attempt); got != tt.expected {
			t.Errorf("Expected delay %v for attempt %d, got %v", tt.expected, tt.attempt, got)
		}
	}
}
