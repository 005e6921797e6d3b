package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barter-api/config"
	"github.com/kendall-kelly/barter-api/middleware"
	"github.com/kendall-kelly/barter-api/models"
	"github.com/kendall-kelly/barter-api/observability"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret-0123456789abcdef0123"

// testServer is the fully wired application over an in-memory database
type testServer struct {
	router *gin.Engine
	app    *App
	db     *gorm.DB
	cfg    *config.Config
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DatabaseDriver:     config.DriverSQLite,
		DatabaseURL:        ":memory:",
		Port:               "8080",
		GoEnv:              "test",
		AuthMode:           config.AuthModeLocal,
		JWTSecret:          testJWTSecret,
		UploadDir:          t.TempDir(),
		AvatarDir:          t.TempDir(),
		LockTTL:            10 * time.Second,
		LockWait:           2 * time.Second,
		KafkaTradeTopic:    "trade-events",
		TradeTransitions:   config.TransitionsPermissive,
		CORSAllowedOrigins: []string{"*"},
		LogLevel:           "error",
	}
}

// newTestServer builds the application the way run does; mutate adjusts the
// config before anything is wired.
func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	observability.InitLogger("error", false)
	observability.InitMetrics()

	cfg := testConfig(t)
	for _, fn := range mutate {
		fn(cfg)
	}
	require.NoError(t, cfg.Validate())

	require.NoError(t, config.ConnectDatabase(cfg))
	db := config.GetDB()
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
		config.SetDB(nil)
	})
	require.NoError(t, config.Migrate(db))

	app, err := newApp(context.Background(), cfg, db)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	return &testServer{router: setupRouter(app), app: app, db: db, cfg: cfg}
}

func (s *testServer) token(t *testing.T, subject string) string {
	t.Helper()
	token, err := middleware.GenerateLocalToken(s.cfg.JWTSecret, subject, time.Hour)
	require.NoError(t, err)
	return token
}

// do sends a request; an empty token sends no Authorization header
func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// register creates a profile through the API and returns the caller's token
func (s *testServer) register(t *testing.T, first, last string) (string, uint) {
	t.Helper()
	token := s.token(t, "local|"+first)
	w := s.do(t, http.MethodPost, "/api/v1/users", token, map[string]string{
		"first_name": first,
		"last_name":  last,
		"email":      fmt.Sprintf("%s@example.com", first),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var profile struct {
		ID uint `json:"id"`
	}
	decodeResponse(t, w, &profile)
	return token, profile.ID
}

// listItem creates an item through the API
func (s *testServer) listItem(t *testing.T, token, title string) uint {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/items", token, map[string]interface{}{
		"title":    title,
		"category": "misc",
		"price":    10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var item models.ItemView
	decodeResponse(t, w, &item)
	return item.ID
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// decodeResponse unpacks the envelope and, when data is non-nil, its payload
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data interface{}) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if data != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeResponse(t, w, nil)
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}
