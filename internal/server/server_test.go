package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/shiplog-io/shiplog/internal/config"
	"github.com/shiplog-io/shiplog/internal/sink/sinktest"
)

func newTestServer(t *testing.T, fake *sinktest.Fake) *Server {
	t.Helper()
	cfg := &config.Config{
		AWS:    &config.AWSConfig{Region: "us-east-1"},
		Server: config.ServerConfig{Port: "0"},
	}
	return New(cfg, fake, nil, zerolog.Nop())
}

func TestServer_Healthz(t *testing.T) {
	srv := newTestServer(t, sinktest.New())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestServer_PublishEndToEnd(t *testing.T) {
	fake := sinktest.New()
	srv := newTestServer(t, fake)

	body := "2023-06-01.10:00:00  build started\nplain output\n"
	req := httptest.NewRequest(http.MethodPost, "/publish?group=ci&stream=job/3", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	events := fake.Events("ci", "job/3")
	if len(events) != 2 {
		t.Fatalf("expected 2 events appended, got %d", len(events))
	}
	if events[0].Message != "build started" {
		t.Fatalf("unexpected first message %q", events[0].Message)
	}
}

func TestServer_RunsWithoutDatabase(t *testing.T) {
	srv := newTestServer(t, sinktest.New())

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
