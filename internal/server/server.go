package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ovrm/mediahub/internal/config"
	"github.com/ovrm/mediahub/internal/media"
)

func New(cfg *config.Config, h *media.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 100 * 1024 * 1024,
	})

	// Local-driver blobs are served straight off the upload directory; the
	// s3 driver serves from the bucket/CDN instead.
	if cfg.Media.StorageDriver == "local" || cfg.Media.StorageDriver == "" {
		app.Static("/uploads", cfg.UploadDir, fiber.Static{
			Compress:  true,
			ByteRange: true,
			Browse:    false,
			MaxAge:    3600,
		})
	}

	SetupRoutes(app, h)

	return app
}
