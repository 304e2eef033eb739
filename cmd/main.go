package main

import (
	"log"
	"os"

	"github.com/ovrm/mediahub/internal/config"
	"github.com/ovrm/mediahub/internal/database"
	"github.com/ovrm/mediahub/internal/media"
	"github.com/ovrm/mediahub/internal/server"
	"github.com/ovrm/mediahub/internal/storage"
)

func main() {
	cfg := config.Load()

	requiredEnvVars := map[string]string{
		"DB_HOST":     os.Getenv("DB_HOST"),
		"DB_NAME":     os.Getenv("DB_NAME"),
		"DB_USER":     os.Getenv("DB_USER"),
		"DB_PASSWORD": os.Getenv("DB_PASSWORD"),
	}

	for key, value := range requiredEnvVars {
		if value == "" {
			log.Fatalf("❌ Required environment variable %s is not set", key)
		}
	}
	log.Println("✅ Required environment variables validated")

	// ========== DATABASE SETUP ==========
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("❌ Database connection failed:", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal("❌ Migration failed: ", err)
	}
	log.Println("✅ Database migrated successfully")

	// ========== STORAGE SETUP ==========
	disk, err := storage.New(cfg)
	if err != nil {
		log.Fatal("❌ Failed to initialize storage:", err)
	}
	switch cfg.Media.StorageDriver {
	case "s3":
		log.Printf("☁️  Using S3 storage: %s (region: %s)", cfg.S3Bucket, cfg.S3Region)
	default:
		log.Printf("💾 Using LOCAL storage mode (%s)", cfg.UploadDir)
	}

	if len(cfg.Media.SizeProfiles) == 0 {
		log.Println("⚠️  No IMAGE_SIZES configured, uploads will not get renditions")
	} else {
		log.Printf("🖼️  %d image size profile(s) configured", len(cfg.Media.SizeProfiles))
	}

	// ========== START SERVER ==========
	svc := media.NewService(db, disk, cfg.Media)
	handler := media.NewHandler(svc, db, disk)
	app := server.New(cfg, handler)

	log.Printf("🚀 Media server starting on %s", cfg.ServerAddr)
	log.Printf("📚 Health check: %s/health", cfg.ServerAddr)

	if err := app.Listen(cfg.ServerAddr); err != nil {
		log.Fatal("❌ Failed to start server:", err)
	}
}
