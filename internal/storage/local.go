package storage

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// LocalDisk stores blobs under a root directory on the local filesystem.
type LocalDisk struct {
	root string
}

func NewLocal(root string) (*LocalDisk, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %v", root, err)
	}
	return &LocalDisk{root: root}, nil
}

// resolve maps a storage key to a filesystem path, refusing keys that would
// escape the root directory.
func (d *LocalDisk) resolve(path string) (string, error) {
	full := filepath.Join(d.root, filepath.FromSlash(path))

	absRoot, err := filepath.Abs(d.root)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %v", err)
	}
	absFull, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("invalid file path: %v", err)
	}
	if absFull != absRoot && !strings.HasPrefix(absFull, absRoot+string(os.PathSeparator)) {
		return "", fmt.Errorf("file path outside storage root")
	}

	return full, nil
}

func (d *LocalDisk) Exists(path string) bool {
	full, err := d.resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return !os.IsNotExist(err)
}

func (d *LocalDisk) MakeDirectory(path string) error {
	full, err := d.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(full, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %v", path, err)
	}
	return nil
}

func (d *LocalDisk) Put(path string, data []byte) error {
	full, err := d.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return fmt.Errorf("failed to save file %s: %v", path, err)
	}
	return nil
}

func (d *LocalDisk) Size(path string) (int64, error) {
	full, err := d.resolve(path)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ProbeMimeType sniffs the content type from the first 512 bytes of the file.
func (d *LocalDisk) ProbeMimeType(path string) (string, error) {
	full, err := d.resolve(path)
	if err != nil {
		return "", err
	}
	f, err := os.Open(full)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}

func (d *LocalDisk) Delete(path string) error {
	full, err := d.resolve(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(full); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", path)
	}
	if err := os.Remove(full); err != nil {
		return fmt.Errorf("failed to delete file %s: %v", path, err)
	}
	return nil
}

func (d *LocalDisk) URL(path string) string {
	return "/" + strings.TrimPrefix(d.root, "./") + "/" + path
}
