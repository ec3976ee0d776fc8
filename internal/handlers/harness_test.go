package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskboard/internal/auth"
	"github.com/monocle-dev/taskboard/internal/config"
	"github.com/monocle-dev/taskboard/internal/handlers"
	"github.com/monocle-dev/taskboard/internal/models"
	"github.com/monocle-dev/taskboard/internal/router"
	"github.com/monocle-dev/taskboard/internal/storage"
	"github.com/monocle-dev/taskboard/internal/testutil"
	"gorm.io/gorm"
)

type harness struct {
	t      *testing.T
	db     *gorm.DB
	tokens *auth.JWT
	root   string
	engine *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := testutil.OpenDB(t)

	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Storage.Root = t.TempDir()
	cfg.Storage.MaxAttempts = 1
	cfg.Storage.RetryBackoff = 0

	tokens, err := auth.NewJWT(cfg.Auth.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewJWT: %v", err)
	}

	blobs, err := storage.NewLocalStore(cfg.Storage.Root, cfg.Storage.BaseURL)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := handlers.New(handlers.Options{
		Config: cfg,
		DB:     gdb,
		Blobs:  blobs,
		Tokens: tokens,
		Logger: logger,
	})

	engine := router.NewRouter(router.Dependencies{
		Config:  cfg,
		DB:      gdb,
		Tokens:  tokens,
		Handler: h,
		Logger:  logger,
	})

	return &harness{t: t, db: gdb, tokens: tokens, root: cfg.Storage.Root, engine: engine}
}

func (h *harness) send(req *http.Request, as *models.User) *httptest.ResponseRecorder {
	h.t.Helper()

	if as != nil {
		token, err := h.tokens.Generate(as.ID, as.Email)
		if err != nil {
			h.t.Fatalf("Generate: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

// do sends body as JSON.
func (h *harness) do(method, path string, as *models.User, body any) *httptest.ResponseRecorder {
	h.t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return h.send(req, as)
}

type upload struct {
	name    string
	content string
}

func (h *harness) multipart(path string, as *models.User, fields map[string]string, files ...upload) *httptest.ResponseRecorder {
	h.t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			h.t.Fatalf("WriteField: %v", err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile("attachments", f.name)
		if err != nil {
			h.t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := io.WriteString(part, f.content); err != nil {
			h.t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		h.t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return h.send(req, as)
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Errors     []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func expect(t *testing.T, rec *httptest.ResponseRecorder, status int) envelope {
	t.Helper()

	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, status, rec.Body.String())
	}

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	if env.StatusCode != status {
		t.Errorf("envelope statusCode = %d, want %d", env.StatusCode, status)
	}
	if env.Success != (status < 400) {
		t.Errorf("envelope success = %v for status %d", env.Success, status)
	}
	return env
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}
