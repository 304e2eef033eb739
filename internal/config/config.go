package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	Media MediaConfig

	// Local storage root; files are served from here when the driver is local
	UploadDir string

	S3Bucket      string
	S3Region      string
	CloudFrontURL string
}

// MediaConfig is the ingestion pipeline's configuration surface. It is passed
// explicitly into the media service, never read from the environment at use
// time.
type MediaConfig struct {
	StorageDriver string // "local" or "s3"
	StoragePath   string // root prefix, year/month scopes are created under it
	WebpEnabled   bool
	// Longest edge cap for stored originals; 0 means unlimited
	MaxOriginalDimension int
	SizeProfiles         []SizeProfile
}

// SizeProfile names a target box for generated renditions. A profile needs at
// least one of Width/Height to be usable; Crop only applies when both are set.
type SizeProfile struct {
	Name   string `json:"-"`
	Width  *int   `json:"width"`
	Height *int   `json:"height"`
	Crop   bool   `json:"crop"`
}

func (p SizeProfile) Usable() bool {
	return p.Width != nil || p.Height != nil
}

func Load() *Config {
	_ = godotenv.Load()

	profiles, err := ParseSizeProfiles(getEnv("IMAGE_SIZES", ""))
	if err != nil {
		log.Printf("⚠️  Invalid IMAGE_SIZES, no renditions will be generated: %v", err)
	}

	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "mediahub"),
		Media: MediaConfig{
			StorageDriver:        getEnv("STORAGE_DRIVER", "local"),
			StoragePath:          normalizePrefix(getEnv("STORAGE_PATH", "media/")),
			WebpEnabled:          getBoolEnv("WEBP_ENABLED", true),
			MaxOriginalDimension: getIntEnv("MAX_ORIGINAL_IMAGE_DIMENSIONS", 0),
			SizeProfiles:         profiles,
		},
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3Region:      getEnv("S3_REGION", ""),
		CloudFrontURL: getEnv("CLOUDFRONT_URL", ""),
	}

	log.Println("✅ Config loaded")
	return cfg
}

// ParseSizeProfiles reads the IMAGE_SIZES JSON object, e.g.
// {"thumb":{"width":150,"height":150,"crop":true},"medium":{"width":600}}.
// Declaration order is preserved so renditions generate in a stable order.
func ParseSizeProfiles(raw string) ([]SizeProfile, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var profiles []SizeProfile
	for dec.More() {
		nameTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name := nameTok.(string)

		var p SizeProfile
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		p.Name = name
		profiles = append(profiles, p)
	}

	return profiles, nil
}

func normalizePrefix(path string) string {
	path = strings.TrimPrefix(path, "/")
	if path != "" && !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}
