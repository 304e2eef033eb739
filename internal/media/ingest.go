package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ovrm/mediahub/internal/config"
	"github.com/ovrm/mediahub/internal/models"
	"github.com/ovrm/mediahub/internal/storage"
)

const (
	connectTimeout  = 5 * time.Second
	defaultTimeout  = 60 * time.Second
	emptyJSONObject = "{}"
)

var (
	ErrMissingNameOrPath = errors.New("cannot store file, missing file name or path")
	ErrFileNotFound      = errors.New("cannot store file, invalid file path")
	ErrNotAnImage        = errors.New("remote content is not an image")
)

// imageExtensions are the formats stored as-is; everything else that decodes
// as an image is re-encoded to jpg, and webp originals become png for broad
// viewer compatibility.
var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true,
}

// Service is the media ingestion pipeline. All collaborators are injected;
// nothing reads ambient configuration at ingest time.
type Service struct {
	db     *gorm.DB
	disk   storage.Disk
	cfg    config.MediaConfig
	client *http.Client
	alloc  *allocator
	now    func() time.Time
}

func NewService(db *gorm.DB, disk storage.Disk, cfg config.MediaConfig) *Service {
	return &Service{
		db:   db,
		disk: disk,
		cfg:  cfg,
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
		alloc: newAllocator(),
		now:   time.Now,
	}
}

// UploadSource is an interactive upload: the request already parsed the file
// to a temporary path and knows its client-reported name and MIME type.
type UploadSource struct {
	Name           string
	TmpPath        string
	MimeType       string
	Collection     string
	Alt            string
	WithThumbnails bool
}

// PathSource ingests a file that is already on the local filesystem.
type PathSource struct {
	Path string
}

// URLSource fetches a remote image. Timeout bounds the whole fetch; zero
// means the 60s default. The connect timeout is always 5s.
type URLSource struct {
	URL     string
	Timeout time.Duration
}

// ingestInput is the canonical form every source variant is validated into
// before the pipeline proceeds.
type ingestInput struct {
	fileName       string
	data           []byte
	mimeType       string
	collection     string
	alt            string
	withThumbnails bool
}

func (src UploadSource) normalize() (ingestInput, error) {
	if src.Name == "" || src.TmpPath == "" {
		return ingestInput{}, ErrMissingNameOrPath
	}
	data, err := os.ReadFile(src.TmpPath)
	if err != nil {
		return ingestInput{}, fmt.Errorf("%w: %s", ErrFileNotFound, src.TmpPath)
	}
	return ingestInput{
		fileName:       src.Name,
		data:           data,
		mimeType:       src.MimeType,
		collection:     src.Collection,
		alt:            src.Alt,
		withThumbnails: src.WithThumbnails,
	}, nil
}

func (src PathSource) normalize() (ingestInput, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return ingestInput{}, fmt.Errorf("%w: %s", ErrFileNotFound, src.Path)
	}
	return ingestInput{
		fileName:       filepath.Base(src.Path),
		data:           data,
		withThumbnails: true,
	}, nil
}

// IngestFromUpload validates an upload tuple and runs the pipeline. Errors
// surface before any blob is written.
func (s *Service) IngestFromUpload(src UploadSource) (*models.Media, error) {
	in, err := src.normalize()
	if err != nil {
		return nil, err
	}
	return s.store(in)
}

// IngestFromPath ingests an existing local file, thumbnails included.
func (s *Service) IngestFromPath(path string) (*models.Media, error) {
	in, err := (PathSource{Path: path}).normalize()
	if err != nil {
		return nil, err
	}
	return s.store(in)
}

// IngestFromURL fetches a remote image and runs the pipeline on it. Fetch
// failures -- timeouts, non-2xx responses, non-image content -- are logged
// and yield (nil, nil): no record, no blob writes, and no error, since remote
// media going away is an expected outcome. Failures after the fetch (disk or
// database) still propagate.
func (s *Service) IngestFromURL(rawURL string, timeout time.Duration) (*models.Media, error) {
	src := URLSource{URL: rawURL, Timeout: timeout}

	tmpPath, err := s.fetchRemote(src)
	if err != nil {
		log.Printf("⚠️  Remote media fetch failed for %s: %v", rawURL, err)
		return nil, nil
	}
	defer os.Remove(tmpPath)

	in, err := (PathSource{Path: tmpPath}).normalize()
	if err != nil {
		return nil, err
	}
	if name := remoteFileName(rawURL); name != "" {
		in.fileName = name
	}

	return s.store(in)
}

// fetchRemote downloads the URL into a temp file and verifies the content is
// an image before handing it to the pipeline.
func (s *Service) fetchRemote(src URLSource) (string, error) {
	timeout := src.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmpPath := filepath.Join(os.TempDir(), "media-"+uuid.NewString())
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return "", err
	}
	if _, err := tmp.ReadFrom(resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	if mimeType := http.DetectContentType(data); !strings.HasPrefix(mimeType, "image") {
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: received %s", ErrNotAnImage, mimeType)
	}

	return tmpPath, nil
}

// remoteFileName derives a stored name from the URL path; the random temp
// name is only used when the URL carries no usable basename.
func remoteFileName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := filepath.Base(parsed.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// uploadPath returns the year/month storage scope, creating it on the disk
// when missing. Chronological scopes keep any one directory from growing
// without bound.
func (s *Service) uploadPath() (string, error) {
	now := s.now()
	scope := fmt.Sprintf("%s%s/%s/", s.cfg.StoragePath, now.Format("2006"), now.Format("01"))
	if !s.disk.Exists(scope) {
		if err := s.disk.MakeDirectory(scope); err != nil {
			return "", err
		}
	}
	return scope, nil
}

// store runs the pipeline on normalized input: classify, allocate a unique
// name, write the original (re-encoded and optionally downscaled for images),
// write the webp sibling, generate renditions, then persist the record once
// everything is on disk.
func (s *Service) store(in ingestInput) (*models.Media, error) {
	scope, err := s.uploadPath()
	if err != nil {
		return nil, err
	}

	origExt := strings.TrimPrefix(strings.ToLower(filepath.Ext(in.fileName)), ".")
	base := normalizeFileName(strings.TrimSuffix(in.fileName, filepath.Ext(in.fileName)))
	isImage := isReadableImage(in.data)

	var fileName string
	var webpName *string
	var webpSize *int64

	if isImage {
		ext := origExt
		// webp originals are stored as png for browser compatibility
		if ext == "webp" {
			ext = "png"
		}
		if !imageExtensions[ext] {
			ext = "jpg"
		}

		img, err := decodeImage(in.data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		if max := s.cfg.MaxOriginalDimension; max > 0 {
			img = capDimensions(img, max)
		}

		encoded, err := encodeImage(img, ext)
		if err != nil {
			return nil, fmt.Errorf("failed to encode original as %s: %w", ext, err)
		}

		fileName = s.alloc.Allocate(s.disk, scope, base, ext)
		defer s.alloc.Release(scope, fileName)
		if err := s.disk.Put(scope+fileName, encoded); err != nil {
			return nil, err
		}

		if s.cfg.WebpEnabled {
			name := s.alloc.Allocate(s.disk, scope, base, "webp")
			defer s.alloc.Release(scope, name)

			webpData, err := encodeWebp(img)
			if err != nil {
				log.Printf("⚠️  Skipping webp sibling for %s: %v", fileName, err)
			} else {
				if err := s.disk.Put(scope+name, webpData); err != nil {
					return nil, err
				}
				size, err := s.disk.Size(scope + name)
				if err != nil {
					return nil, err
				}
				webpName = &name
				webpSize = &size
			}
		}
	} else {
		fileName = s.alloc.Allocate(s.disk, scope, base, origExt)
		defer s.alloc.Release(scope, fileName)
		if err := s.disk.Put(scope+fileName, in.data); err != nil {
			return nil, err
		}
	}

	mimeType := in.mimeType
	if mimeType == "" {
		probed, err := s.disk.ProbeMimeType(scope + fileName)
		if err != nil {
			return nil, fmt.Errorf("failed to probe mime type: %w", err)
		}
		mimeType = probed
	}

	fileSize, err := s.disk.Size(scope + fileName)
	if err != nil {
		return nil, err
	}

	imageSizes := datatypes.JSON([]byte(emptyJSONObject))
	if isImage && in.withThumbnails {
		// renditions derive from the undownscaled source bytes
		sizes, err := s.generateImageSizes(in.data, scope+fileName)
		if err != nil {
			return nil, err
		}
		if len(sizes) > 0 {
			encoded, err := json.Marshal(sizes)
			if err != nil {
				return nil, err
			}
			imageSizes = datatypes.JSON(encoded)
		}
	}

	record := &models.Media{
		CollectionName: in.collection,
		Path:           scope,
		FileName:       fileName,
		Alt:            in.alt,
		MimeType:       mimeType,
		FileSize:       fileSize,
		WebpName:       webpName,
		WebpSize:       webpSize,
		ImageSizes:     imageSizes,
		Data:           datatypes.JSON([]byte(emptyJSONObject)),
	}

	if err := s.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to save media record: %w", err)
	}

	return record, nil
}
