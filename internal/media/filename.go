package media

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/ovrm/mediahub/internal/storage"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeFileName lowercases the base name and collapses every run of
// characters outside [a-z0-9] into a single hyphen. A hyphen left dangling at
// the end ("My Photo!" -> "my-photo-") is dropped so names read cleanly
// before the extension.
func normalizeFileName(name string) string {
	return strings.TrimRight(nonAlphanumeric.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// allocator hands out file names that do not yet exist in a storage scope.
// The exists-check-then-write sequence is not atomic on the disk itself, so
// the allocator additionally tracks names it has handed out but that are not
// written yet; concurrent ingestions through the same service therefore never
// claim the same candidate. Racing across processes is still the storage
// backend's problem.
type allocator struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

func newAllocator() *allocator {
	return &allocator{inflight: map[string]struct{}{}}
}

// Allocate returns the first unused name of the form base.ext, base-1.ext,
// base-2.ext, ... within scope, and reserves it until Release is called.
func (a *allocator) Allocate(disk storage.Disk, scope, base, ext string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := 0; ; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		if ext != "" {
			candidate += "." + ext
		}

		full := scope + candidate
		if _, held := a.inflight[full]; held {
			continue
		}
		if disk.Exists(full) {
			continue
		}

		a.inflight[full] = struct{}{}
		return candidate
	}
}

// Release drops the reservation for a previously allocated name. Callers do
// this once the file is written (Exists covers it from then on) or when the
// write was abandoned.
func (a *allocator) Release(scope, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.inflight, scope+name)
}
