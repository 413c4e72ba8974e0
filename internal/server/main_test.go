package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"vexillum/internal/config"
	"vexillum/internal/database"
	"vexillum/internal/models"
	"vexillum/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MockIdentityProvider is a mock of identity.Provider.
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) Name() string { return "google" }

func (m *MockIdentityProvider) AuthCodeURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockIdentityProvider) Exchange(ctx context.Context, code string) (*models.ExternalIdentity, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExternalIdentity), args.Error(1)
}

type testServer struct {
	*Server
	app      *fiber.App
	mr       *miniredis.Miniredis
	provider *MockIdentityProvider
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                "test",
		Port:               "0",
		JWTSecret:          strings.Repeat("s", 32),
		JWTTTLHours:        1,
		AllowedOrigins:     "http://localhost:5173",
		PageSize:           20,
		DBDriver:           "sqlite",
		StorageBackend:     "local",
		PublicUploadPrefix: "/uploads",
		MaxUploadMB:        2,
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	provider := new(MockIdentityProvider)
	s, err := NewServerWithDeps(testConfig(), setupTestDB(t), rdb, store, provider)
	require.NoError(t, err)

	return &testServer{Server: s, app: s.App(), mr: mr, provider: provider}
}

func (ts *testServer) createUser(t *testing.T, name string, admin bool) *models.User {
	t.Helper()
	u := &models.User{Subject: "google:" + name, Name: name, Email: name + "@example.com", IsAdmin: admin}
	require.NoError(t, ts.db.Create(u).Error)
	return u
}

func (ts *testServer) tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := ts.generateToken(u.ID)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, req *http.Request, token string) *http.Response {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (ts *testServer) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	return ts.do(t, httptest.NewRequest(http.MethodGet, path, nil), token)
}

func (ts *testServer) sendJSON(t *testing.T, method, path string, body interface{}, token string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return ts.do(t, req, token)
}

func (ts *testServer) sendForm(t *testing.T, method, path string, fields map[string]string, image []byte, token string) *http.Response {
	t.Helper()
	body, contentType := multipartBody(t, fields, image)
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", contentType)
	return ts.do(t, req, token)
}

func multipartBody(t *testing.T, fields map[string]string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "flag.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body models.ErrorResponse
	decode(t, resp, &body)
	return body.Code
}

func tinyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(y % 256), B: uint8(x % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// submitDesign posts a design through the API and returns its public id.
func (ts *testServer) submitDesign(t *testing.T, token, title, hashtags string) string {
	t.Helper()
	resp := ts.sendForm(t, http.MethodPost, "/api/designs", map[string]string{
		"title":       title,
		"description": "about " + title,
		"hashtags":    hashtags,
	}, tinyPNG(t, 12, 8), token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var design struct {
		ID string `json:"id"`
	}
	decode(t, resp, &design)
	require.NotEmpty(t, design.ID)
	return design.ID
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
