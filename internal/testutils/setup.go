package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/ovrm/mediahub/internal/config"
	"github.com/ovrm/mediahub/internal/media"
	"github.com/ovrm/mediahub/internal/models"
	"github.com/ovrm/mediahub/internal/server"
	"github.com/ovrm/mediahub/internal/storage"
)

func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err, "Failed to create test database")

	err = db.AutoMigrate(
		&models.Media{},
	)
	assert.NoError(t, err, "Failed to migrate test database")

	return db
}

// TestMediaConfig is the default pipeline configuration for tests: webp
// enabled, a cropped square thumb and an aspect-preserving medium size.
func TestMediaConfig() config.MediaConfig {
	thumbEdge := 100
	mediumWidth := 600
	return config.MediaConfig{
		StorageDriver: "local",
		StoragePath:   "media/",
		WebpEnabled:   true,
		SizeProfiles: []config.SizeProfile{
			{Name: "thumb", Width: &thumbEdge, Height: &thumbEdge, Crop: true},
			{Name: "medium", Width: &mediumWidth},
		},
	}
}

type TestEnv struct {
	App     *fiber.App
	DB      *gorm.DB
	Disk    storage.Disk
	Service *media.Service
	Config  *config.Config
}

// SetupTestApp wires a full app against an in-memory database and a local
// disk rooted in a per-test temp directory.
func SetupTestApp(t *testing.T) *TestEnv {
	db := TestDB(t)

	cfg := &config.Config{
		Media:     TestMediaConfig(),
		UploadDir: t.TempDir(),
	}

	disk, err := storage.NewLocal(cfg.UploadDir)
	assert.NoError(t, err, "Failed to initialize storage")

	svc := media.NewService(db, disk, cfg.Media)
	handler := media.NewHandler(svc, db, disk)
	app := server.New(cfg, handler)

	return &TestEnv{
		App:     app,
		DB:      db,
		Disk:    disk,
		Service: svc,
		Config:  cfg,
	}
}

func MakeRequest(app *fiber.App, method, url string, body interface{}) (*httptest.ResponseRecorder, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, url, bodyReader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()

	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}

	rec.Code = resp.StatusCode

	io.Copy(rec.Body, resp.Body)
	resp.Body.Close()

	return rec, nil
}

func MakeMultipartRequestWithFile(app *fiber.App, method, url, filename string, content []byte, fields map[string]string) (*httptest.ResponseRecorder, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, val := range fields {
		writer.WriteField(key, val)
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	part.Write(content)

	contentType := writer.FormDataContentType()
	writer.Close()

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}

	rec.Code = resp.StatusCode
	io.Copy(rec.Body, resp.Body)
	resp.Body.Close()

	return rec, nil
}

func ParseResponse(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) {
	if resp.Body.Len() == 0 {
		t.Log("Warning: Response body is empty")
		return
	}

	err := json.NewDecoder(resp.Body).Decode(v)
	if err != nil && err != io.EOF {
		t.Logf("Response body: %s", resp.Body.String())
		assert.NoError(t, err, "Failed to parse response")
	}
}

type StandardResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    interface{}  `json:"data"`
	Error   *ErrorDetail `json:"error"`
	Meta    *Meta        `json:"meta"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

func AssertSuccess(t *testing.T, resp *httptest.ResponseRecorder) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.True(t, result.Success, "Expected success response")
	assert.Empty(t, result.Error, "Expected no error")
}

func AssertError(t *testing.T, resp *httptest.ResponseRecorder, expectedCode string) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.False(t, result.Success, "Expected error response")
	assert.NotNil(t, result.Error, "Expected error object")
	assert.Equal(t, expectedCode, result.Error.Code, "Error code mismatch")
}
