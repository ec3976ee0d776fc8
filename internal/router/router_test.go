package router

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskboard/internal/auth"
	"github.com/monocle-dev/taskboard/internal/config"
	"github.com/monocle-dev/taskboard/internal/handlers"
	"github.com/monocle-dev/taskboard/internal/middleware"
	"github.com/monocle-dev/taskboard/internal/storage"
	"github.com/monocle-dev/taskboard/internal/testutil"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Storage.Root = t.TempDir()

	tokens, err := auth.NewJWT(cfg.Auth.JWTSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	blobs, err := storage.NewLocalStore(cfg.Storage.Root, "")
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := handlers.New(handlers.Options{Config: cfg, DB: db, Blobs: blobs, Tokens: tokens, Logger: logger})
	return NewRouter(Dependencies{Config: cfg, DB: db, Tokens: tokens, Handler: h, Logger: logger})
}

func TestPanicRendersErrorEnvelope(t *testing.T) {
	r := newTestRouter(t)
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var body middleware.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	if body.StatusCode != http.StatusInternalServerError || body.Success || body.Message != "Something went wrong" {
		t.Errorf("body = %+v", body)
	}
}

func TestHealthUsesEnvelope(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		StatusCode int    `json:"statusCode"`
		Success    bool   `json:"success"`
		Message    string `json:"message"`
		Data       struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.StatusCode != http.StatusOK || !body.Success || body.Data.Status != "ok" {
		t.Errorf("body = %+v", body)
	}
}
