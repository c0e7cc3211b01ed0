package worker

import (
	"context"
	"testing"
	"time"
)

// allow takes a token for rawURL's host without waiting
func allow(t *testing.T, l *Limiter, rawURL string) bool {
	t.Helper()
	host, err := hostOf(rawURL)
	if err != nil {
		t.Fatalf("hostOf(%q): %v", rawURL, err)
	}
	return l.getLimiter(host).Allow()
}

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 1 {
		t.Errorf("expected default burst 1 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://localhost:8080/api/claims/extract"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "http://claims.internal/api/claims/evaluate"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	url := "http://localhost:8080/api/claims/extract"

	if err := limiter.Wait(context.Background(), url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Same host, different path shares the bucket.
	if allow(t, limiter, "http://localhost:8080/api/claims/evaluate") {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	if !allow(t, limiter, "http://other:8080/api/claims/evaluate") {
		t.Errorf("expected allow for other host")
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	limiter := NewLimiter(0.5, 1)
	url := "http://localhost:8080/api"
	_ = limiter.Wait(context.Background(), url)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, url); err == nil {
		t.Error("expected wait to fail when the deadline is shorter than the refill")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !allow(t, limiter, "http://localhost:8080/api") {
			t.Fatalf("expected unlimited limiter to allow request %d", i)
		}
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetHostRate("slow:8080", 0.1, 1)

	if !allow(t, limiter, "http://slow:8080/api") {
		t.Errorf("first request should pass")
	}
	if allow(t, limiter, "http://slow:8080/api") {
		t.Errorf("second request should fail")
	}
	if !allow(t, limiter, "http://fast:8080/api") {
		t.Errorf("other host should pass")
	}
}

func TestLimiter_SetHostRateUnlimited(t *testing.T) {
	limiter := NewLimiter(0.1, 1)
	limiter.SetHostRate("claims.internal", 0, 0)

	for i := 0; i < 50; i++ {
		if !allow(t, limiter, "http://claims.internal/api/claims/extract") {
			t.Fatalf("expected unlimited host to allow request %d", i)
		}
	}
	if err := limiter.Wait(context.Background(), "http://claims.internal/api/claims/evaluate"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestHostOf(t *testing.T) {
	host, err := hostOf("http://localhost:8080/api/claims/extract")
	if err != nil {
		t.Fatalf("hostOf failed: %v", err)
	}
	if host != "localhost:8080" {
		t.Errorf("expected localhost:8080, got %s", host)
	}

	if _, err := hostOf("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
}
