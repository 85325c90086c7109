package observability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRouterEndpoints(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "scorebot_test_total", Help: "test"})
	registry.MustRegister(counter)
	counter.Inc()

	tests := []struct {
		name       string
		checks     map[string]HealthCheck
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "metrics",
			path:       "/metrics",
			wantStatus: http.StatusOK,
			wantBody:   "scorebot_test_total 1",
		},
		{
			name: "healthy",
			checks: map[string]HealthCheck{
				"cache": func(context.Context) error { return nil },
			},
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `"cache":"ok"`,
		},
		{
			name: "unhealthy",
			checks: map[string]HealthCheck{
				"cache": func(context.Context) error { return errors.New("disk full") },
			},
			path:       "/healthz",
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `"cache":"disk full"`,
		},
		{
			name:       "unknown path",
			path:       "/nope",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodGet, testCase.path, nil)
			NewRouter(registry, testCase.checks).ServeHTTP(recorder, request)

			if recorder.Code != testCase.wantStatus {
				t.Fatalf("status = %d, want %d", recorder.Code, testCase.wantStatus)
			}
			if !strings.Contains(recorder.Body.String(), testCase.wantBody) {
				t.Fatalf("body = %q, want containing %q", recorder.Body.String(), testCase.wantBody)
			}
		})
	}
}

func TestServerServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	server, err := NewServer(listener.Addr().String(), NewRouter(prometheus.NewRegistry(), nil), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx, listener)
	}()

	client := &http.Client{Timeout: 2 * time.Second}
	var response *http.Response
	for attempt := 0; attempt < 50; attempt++ {
		response, err = client.Get("http://" + listener.Addr().String() + "/healthz")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	_ = response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", response.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewServerValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewServer("", http.NotFoundHandler(), nil); err == nil {
		t.Fatal("expected empty address error")
	}
	if _, err := NewServer(":0", nil, nil); err == nil {
		t.Fatal("expected nil handler error")
	}
}

func TestNewLoggerHonorsLevel(t *testing.T) {
	t.Parallel()

	var output bytes.Buffer
	logger := NewLogger(&output, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown", "channel", "-42")

	if strings.Contains(output.String(), "hidden") {
		t.Fatalf("output = %q, info should be filtered", output.String())
	}
	if !strings.Contains(output.String(), `"msg":"shown"`) || !strings.Contains(output.String(), `"channel":"-42"`) {
		t.Fatalf("output = %q, want JSON warn record", output.String())
	}
}
