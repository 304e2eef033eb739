package media

import (
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ovrm/mediahub/internal/storage"
)

func TestNormalizeFileName(t *testing.T) {
	cases := map[string]string{
		"My Photo!":        "my-photo",
		"UPPER_case Name":  "upper-case-name",
		"already-clean":    "already-clean",
		"weird---spacing":  "weird-spacing",
		"Ünïcode & stuff":  "-n-code-stuff",
		"1234":             "1234",
		"trailing dots...": "trailing-dots",
	}

	for input, expected := range cases {
		assert.Equal(t, expected, normalizeFileName(input), "input: %q", input)
	}
}

func TestNormalizeFileNameIdempotent(t *testing.T) {
	slug := regexp.MustCompile(`^[a-z0-9-]*$`)

	inputs := []string{"My Photo!", "file (1) copy", "über.café", "x"}
	for _, input := range inputs {
		once := normalizeFileName(input)
		assert.Equal(t, once, normalizeFileName(once), "normalize should be idempotent for %q", input)
		assert.True(t, slug.MatchString(once), "normalized %q should be a slug, got %q", input, once)
	}
}

func testDisk(t *testing.T) *storage.LocalDisk {
	disk, err := storage.NewLocal(t.TempDir())
	assert.NoError(t, err)
	return disk
}

func TestAllocatorFirstName(t *testing.T) {
	disk := testDisk(t)
	alloc := newAllocator()

	name := alloc.Allocate(disk, "media/2026/08/", "photo", "jpg")
	assert.Equal(t, "photo.jpg", name)
}

func TestAllocatorSkipsExisting(t *testing.T) {
	disk := testDisk(t)
	alloc := newAllocator()

	assert.NoError(t, disk.Put("media/2026/08/photo.jpg", []byte("a")))
	assert.NoError(t, disk.Put("media/2026/08/photo-1.jpg", []byte("b")))

	name := alloc.Allocate(disk, "media/2026/08/", "photo", "jpg")
	assert.Equal(t, "photo-2.jpg", name)
}

func TestAllocatorWithoutExtension(t *testing.T) {
	disk := testDisk(t)
	alloc := newAllocator()

	assert.NoError(t, disk.Put("media/2026/08/readme", []byte("a")))

	name := alloc.Allocate(disk, "media/2026/08/", "readme", "")
	assert.Equal(t, "readme-1", name)
}

// Concurrent allocations for the same base must never hand out the same
// candidate, even though nothing has been written to disk yet.
func TestAllocatorConcurrent(t *testing.T) {
	disk := testDisk(t)
	alloc := newAllocator()

	const n = 20
	var wg sync.WaitGroup
	names := make(chan string, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			names <- alloc.Allocate(disk, "media/2026/08/", "photo", "jpg")
		}()
	}
	wg.Wait()
	close(names)

	seen := map[string]bool{}
	for name := range names {
		assert.False(t, seen[name], "name %q allocated twice", name)
		seen[name] = true
	}
	assert.Len(t, seen, n)
}

func TestAllocatorRelease(t *testing.T) {
	disk := testDisk(t)
	alloc := newAllocator()

	name := alloc.Allocate(disk, "media/2026/08/", "photo", "jpg")
	assert.Equal(t, "photo.jpg", name)

	// Released without a write: the name becomes available again.
	alloc.Release("media/2026/08/", name)
	again := alloc.Allocate(disk, "media/2026/08/", "photo", "jpg")
	assert.Equal(t, "photo.jpg", again)
}

func TestAllocatorManyCollisions(t *testing.T) {
	disk := testDisk(t)
	alloc := newAllocator()

	for i := 0; i < 5; i++ {
		name := alloc.Allocate(disk, "media/2026/08/", "photo", "jpg")
		expected := "photo.jpg"
		if i > 0 {
			expected = fmt.Sprintf("photo-%d.jpg", i)
		}
		assert.Equal(t, expected, name)
		assert.NoError(t, disk.Put("media/2026/08/"+name, []byte("x")))
		alloc.Release("media/2026/08/", name)
	}
}
