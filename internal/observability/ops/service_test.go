package ops

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	logx "chorebot/pkg/logx"
)

func newTestService(healthy bool) *Service {
	return New(Config{}, Deps{
		Health: func(context.Context) (any, bool) {
			return map[string]any{"chores": 3}, healthy
		},
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("chorebot_chores 3\n"))
		}),
	}, logx.Nop())
}

func do(t *testing.T, h http.Handler, path, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	h := newTestService(true).Handler(Config{})
	rec := do(t, h, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"chores": 3`) {
		t.Fatalf("body = %q", rec.Body.String())
	}

	h = newTestService(false).Handler(Config{})
	if rec := do(t, h, "/healthz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy status = %d", rec.Code)
	}
}

func TestTokenAuth(t *testing.T) {
	t.Parallel()
	h := newTestService(true).Handler(Config{Token: "s3cret"})

	if rec := do(t, h, "/metrics", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", rec.Code)
	}
	if rec := do(t, h, "/metrics", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status = %d", rec.Code)
	}
	rec := do(t, h, "/metrics", "s3cret")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "chorebot_chores 3") {
		t.Fatalf("bearer: status = %d body = %q", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, "/healthz?token=s3cret", ""); rec.Code != http.StatusOK {
		t.Fatalf("query token: status = %d", rec.Code)
	}
}

func TestPprofToggle(t *testing.T) {
	t.Parallel()
	s := newTestService(true)
	if rec := do(t, s.Handler(Config{}), "/debug/pprof/", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("pprof disabled: status = %d", rec.Code)
	}
	if rec := do(t, s.Handler(Config{Pprof: true}), "/debug/pprof/", ""); rec.Code != http.StatusOK {
		t.Fatalf("pprof enabled: status = %d", rec.Code)
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	s := newTestService(true)
	ctx := context.Background()
	s.Reconfigure(ctx, Config{Enabled: true, Addr: "127.0.0.1:0"})

	deadline := time.Now().Add(2 * time.Second)
	for s.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	s.Reconfigure(stopCtx, Config{})
	if s.Supervisor() != nil {
		t.Fatal("supervisor still set after stop")
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"127.0.0.1:9464": true,
		"localhost:1":    true,
		"[::1]:80":       true,
		":9464":          false,
		"0.0.0.0:9464":   false,
		"10.0.0.5:80":    false,
	}
	for addr, want := range cases {
		if got := isLoopbackAddr(addr); got != want {
			t.Errorf("isLoopbackAddr(%q) = %v, want %v", addr, got, want)
		}
	}
}
