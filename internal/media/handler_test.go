package media_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovrm/mediahub/internal/media"
	"github.com/ovrm/mediahub/internal/models"
	"github.com/ovrm/mediahub/internal/testutils"
)

func TestUploadHandler(t *testing.T) {
	env := testutils.SetupTestApp(t)

	t.Run("Success - Upload image with metadata", func(t *testing.T) {
		resp, err := testutils.MakeMultipartRequestWithFile(env.App, "POST", "/media/upload",
			"Team Photo.jpg", encodeTestImage(t, "jpeg", 300, 200), map[string]string{
				"collection": "gallery",
				"alt":        "The whole team",
			})
		require.NoError(t, err)
		assert.Equal(t, 201, resp.Code)
		testutils.AssertSuccess(t, resp)

		var record models.Media
		require.NoError(t, env.DB.First(&record).Error)
		assert.Equal(t, "team-photo.jpg", record.FileName)
		assert.Equal(t, "gallery", record.CollectionName)
		assert.Equal(t, "The whole team", record.Alt)
		assert.NotNil(t, record.WebpName)

		renditions, err := record.Renditions()
		require.NoError(t, err)
		assert.Contains(t, renditions, "thumb")
	})

	t.Run("Success - withThumbnails false skips renditions", func(t *testing.T) {
		resp, err := testutils.MakeMultipartRequestWithFile(env.App, "POST", "/media/upload",
			"no-thumbs.jpg", encodeTestImage(t, "jpeg", 300, 200), map[string]string{
				"withThumbnails": "false",
			})
		require.NoError(t, err)
		assert.Equal(t, 201, resp.Code)

		var record models.Media
		require.NoError(t, env.DB.Where("file_name = ?", "no-thumbs.jpg").First(&record).Error)
		renditions, err := record.Renditions()
		require.NoError(t, err)
		assert.Empty(t, renditions)
	})

	t.Run("Error - Missing file", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "POST", "/media/upload", nil)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.Code)
		testutils.AssertError(t, resp, "BAD_REQUEST")
	})

	t.Run("Alt text is sanitized", func(t *testing.T) {
		resp, err := testutils.MakeMultipartRequestWithFile(env.App, "POST", "/media/upload",
			"sneaky.jpg", encodeTestImage(t, "jpeg", 50, 50), map[string]string{
				"alt": `<script>alert('x')</script>plain alt`,
			})
		require.NoError(t, err)
		assert.Equal(t, 201, resp.Code)

		var record models.Media
		require.NoError(t, env.DB.Where("file_name = ?", "sneaky.jpg").First(&record).Error)
		assert.Equal(t, "plain alt", record.Alt)
	})
}

func TestImportHandler(t *testing.T) {
	env := testutils.SetupTestApp(t)

	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(encodeTestImage(t, "jpeg", 200, 100))
	}))
	defer imageSrv.Close()

	htmlSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>not an image</body></html>"))
	}))
	defer htmlSrv.Close()

	t.Run("Success - Import remote image", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "POST", "/media/import", map[string]interface{}{
			"url": imageSrv.URL + "/banner.jpg",
		})
		require.NoError(t, err)
		assert.Equal(t, 201, resp.Code)
		testutils.AssertSuccess(t, resp)

		var record models.Media
		require.NoError(t, env.DB.Where("file_name = ?", "banner.jpg").First(&record).Error)
	})

	t.Run("Error - Remote content is not an image", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "POST", "/media/import", map[string]interface{}{
			"url": htmlSrv.URL + "/page.html",
		})
		require.NoError(t, err)
		assert.Equal(t, 422, resp.Code)
		testutils.AssertError(t, resp, "UNPROCESSABLE_ENTITY")
	})

	t.Run("Error - Missing url", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "POST", "/media/import", map[string]interface{}{})
		require.NoError(t, err)
		assert.Equal(t, 422, resp.Code)
		testutils.AssertError(t, resp, "VALIDATION_ERROR")
	})
}

func TestListHandler(t *testing.T) {
	env := testutils.SetupTestApp(t)

	for i := 0; i < 3; i++ {
		collection := "gallery"
		if i == 2 {
			collection = "docs"
		}
		_, err := env.Service.IngestFromUpload(media.UploadSource{
			Name:       fmt.Sprintf("file-%d.jpg", i),
			TmpPath:    writeTempFile(t, fmt.Sprintf("f%d.jpg", i), encodeTestImage(t, "jpeg", 60, 60)),
			Collection: collection,
		})
		require.NoError(t, err)
	}

	t.Run("List all", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/media/", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		assert.True(t, result.Success)
		require.NotNil(t, result.Meta)
		assert.Equal(t, int64(3), result.Meta.Total)
	})

	t.Run("Filter by collection", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/media/?collection=docs", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		require.NotNil(t, result.Meta)
		assert.Equal(t, int64(1), result.Meta.Total)
	})
}

func TestGetUpdateDeleteHandlers(t *testing.T) {
	env := testutils.SetupTestApp(t)

	record, err := env.Service.IngestFromUpload(media.UploadSource{
		Name:           "subject.jpg",
		TmpPath:        writeTempFile(t, "subject.jpg", encodeTestImage(t, "jpeg", 300, 200)),
		Collection:     "gallery",
		WithThumbnails: true,
	})
	require.NoError(t, err)

	t.Run("Get existing", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", fmt.Sprintf("/media/%d", record.ID), nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.Code)
		testutils.AssertSuccess(t, resp)
	})

	t.Run("Get missing", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/media/99999", nil)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.Code)
		testutils.AssertError(t, resp, "NOT_FOUND")
	})

	t.Run("Update alt and data bag", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "PUT", fmt.Sprintf("/media/%d", record.ID), map[string]interface{}{
			"alt":  "Updated alt",
			"data": map[string]interface{}{"credit": "jane"},
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		var updated models.Media
		require.NoError(t, env.DB.First(&updated, record.ID).Error)
		assert.Equal(t, "Updated alt", updated.Alt)
		assert.Contains(t, string(updated.Data), "jane")
		// File fields stay fixed.
		assert.Equal(t, record.FileName, updated.FileName)
	})

	t.Run("Delete removes row and blobs", func(t *testing.T) {
		originalPath := storedFilePath(env, record, record.FileName)
		assert.FileExists(t, originalPath)

		resp, err := testutils.MakeRequest(env.App, "DELETE", fmt.Sprintf("/media/%d", record.ID), nil)
		require.NoError(t, err)
		assert.Equal(t, 204, resp.Code)

		var gone models.Media
		assert.Error(t, env.DB.First(&gone, record.ID).Error)

		_, statErr := os.Stat(originalPath)
		assert.True(t, os.IsNotExist(statErr), "original blob should be deleted")
		assert.Equal(t, 0, countStoredFiles(t, env))
	})
}
