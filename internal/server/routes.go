package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/ovrm/mediahub/internal/media"
)

func SetupRoutes(app *fiber.App, h *media.Handler) {
	// Middleware
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Media API is running",
		})
	})

	// ==========================================
	// MEDIA LIBRARY
	// ==========================================
	mediaGroup := app.Group("/media")

	mediaGroup.Post("/upload", h.UploadHandler)
	mediaGroup.Post("/import", h.ImportHandler)
	mediaGroup.Get("/", h.ListHandler)
	mediaGroup.Get("/:id", h.GetHandler)
	mediaGroup.Put("/:id", h.UpdateHandler)
	mediaGroup.Delete("/:id", h.DeleteHandler)
}
