package media

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ovrm/mediahub/internal/models"
	"github.com/ovrm/mediahub/internal/response"
	"github.com/ovrm/mediahub/internal/storage"
)

var policy = bluemonday.UGCPolicy()

func sanitizeInput(input string) string {
	return policy.Sanitize(input)
}

// Handler exposes the ingestion pipeline over HTTP.
type Handler struct {
	svc  *Service
	db   *gorm.DB
	disk storage.Disk
}

func NewHandler(svc *Service, db *gorm.DB, disk storage.Disk) *Handler {
	return &Handler{svc: svc, db: db, disk: disk}
}

// UploadHandler ingests a multipart upload: file plus optional collection,
// alt and withThumbnails fields.
func (h *Handler) UploadHandler(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "File is required", nil)
	}

	withThumbnails := true
	if raw := c.FormValue("withThumbnails", "true"); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			withThumbnails = parsed
		}
	}

	tmpPath := filepath.Join(os.TempDir(), "upload-"+uuid.NewString())
	if err := c.SaveFile(file, tmpPath); err != nil {
		return response.InternalError(c, "Failed to buffer upload")
	}
	defer os.Remove(tmpPath)

	media, err := h.svc.IngestFromUpload(UploadSource{
		Name:           file.Filename,
		TmpPath:        tmpPath,
		MimeType:       file.Header.Get("Content-Type"),
		Collection:     c.FormValue("collection", ""),
		Alt:            sanitizeInput(c.FormValue("alt", "")),
		WithThumbnails: withThumbnails,
	})
	if err != nil {
		if errors.Is(err, ErrMissingNameOrPath) || errors.Is(err, ErrFileNotFound) {
			return response.BadRequest(c, err.Error(), nil)
		}
		return response.InternalError(c, "Failed to store media: "+err.Error())
	}

	return response.Created(c, media, "Media uploaded successfully")
}

// ImportHandler ingests a remote URL. A fetch that yields no record (dead
// link, non-image content) is reported as unprocessable rather than a server
// error.
func (h *Handler) ImportHandler(c *fiber.Ctx) error {
	var body struct {
		URL          string `json:"url"`
		TimeoutInSec int    `json:"timeout_in_sec"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if body.URL == "" {
		return response.ValidationError(c, map[string]string{
			"url": "url is required",
		})
	}

	media, err := h.svc.IngestFromURL(body.URL, time.Duration(body.TimeoutInSec)*time.Second)
	if err != nil {
		return response.InternalError(c, "Failed to store media: "+err.Error())
	}
	if media == nil {
		return response.UnprocessableEntity(c, "Remote content could not be imported as media")
	}

	return response.Created(c, media, "Media imported successfully")
}

func (h *Handler) ListHandler(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	collection := c.Query("collection", "")

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	var media []models.Media
	var total int64

	query := h.db.Model(&models.Media{})
	if collection != "" {
		query = query.Where("collection_name = ?", collection)
	}

	query.Count(&total)
	query.Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&media)

	meta := response.CalculateMeta(page, limit, total)
	return response.SuccessWithMeta(c, media, meta, "Media files retrieved successfully")
}

func (h *Handler) GetHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid media ID", nil)
	}

	var media models.Media
	if err := h.db.First(&media, id).Error; err != nil {
		return response.NotFound(c, "Media")
	}

	return response.Success(c, media, "Media retrieved successfully")
}

// UpdateHandler edits the mutable fields only; file name, renditions and
// storage path are fixed at ingestion time.
func (h *Handler) UpdateHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid media ID", nil)
	}

	var media models.Media
	if err := h.db.First(&media, id).Error; err != nil {
		return response.NotFound(c, "Media")
	}

	var body struct {
		Alt  string         `json:"alt"`
		Data map[string]any `json:"data"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	media.Alt = sanitizeInput(body.Alt)
	if body.Data != nil {
		encoded, err := json.Marshal(body.Data)
		if err != nil {
			return response.BadRequest(c, "Invalid data payload", err.Error())
		}
		media.Data = datatypes.JSON(encoded)
	}

	if err := h.db.Save(&media).Error; err != nil {
		return response.InternalError(c, "Failed to update media")
	}

	return response.Success(c, media, "Media updated successfully")
}

// DeleteHandler removes the record and every blob written for it: original,
// webp sibling and all renditions.
func (h *Handler) DeleteHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid media ID", nil)
	}

	var media models.Media
	if err := h.db.First(&media, id).Error; err != nil {
		return response.NotFound(c, "Media")
	}

	failed := false
	for _, name := range blobNames(&media) {
		if err := h.disk.Delete(media.Path + name); err != nil {
			failed = true
		}
	}
	if failed {
		c.Append("X-Warning", "Media deleted from database but some files may still exist in storage")
	}

	if err := h.db.Delete(&media).Error; err != nil {
		return response.InternalError(c, "Failed to delete media")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// blobNames lists every file name the record owns within its storage path.
func blobNames(m *models.Media) []string {
	names := []string{m.FileName}
	if m.WebpName != nil {
		names = append(names, *m.WebpName)
	}

	renditions, err := m.Renditions()
	if err != nil {
		return names
	}
	for _, r := range renditions {
		names = append(names, r.FileName)
		if r.WebpName != nil {
			names = append(names, *r.WebpName)
		}
	}
	return names
}
