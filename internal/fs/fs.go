package fs

// A minimal file system abstraction for module discovery. The mock
// implementation backs the bundler tests so they can describe a whole source
// tree as a map without touching the disk.

import (
	"path"
	"sort"
	"strings"
	"sync"
)

type EntryKind uint8

const (
	DirEntry  EntryKind = 1
	FileEntry EntryKind = 2
)

type Entry struct {
	Kind EntryKind
}

type FS interface {
	// The returned map is cached across invocations. Do not mutate it.
	ReadDirectory(path string) map[string]Entry
	ReadFile(path string) (string, bool)

	// Path manipulation is part of the interface so the mock used in tests
	// behaves the same on every platform.
	Abs(path string) (string, bool)
	Dir(path string) string
	Base(path string) string
	Join(parts ...string) string
	Cwd() string
}

////////////////////////////////////////////////////////////////////////////////

type mockFS struct {
	mutex sync.Mutex
	dirs  map[string]map[string]Entry
	files map[string]string
}

// MockFS builds an in-memory file system from a map of file path to contents.
// Intermediate directories are implied.
func MockFS(input map[string]string) FS {
	dirs := make(map[string]map[string]Entry)
	files := make(map[string]string)

	for k, v := range input {
		files[k] = v
		original := k

		for {
			kDir := path.Dir(k)
			dir, ok := dirs[kDir]
			if !ok {
				dir = make(map[string]Entry)
				dirs[kDir] = dir
			}
			if kDir == k {
				break
			}
			if k == original {
				dir[path.Base(k)] = Entry{Kind: FileEntry}
			} else {
				dir[path.Base(k)] = Entry{Kind: DirEntry}
			}
			k = kDir
		}
	}

	return &mockFS{dirs: dirs, files: files}
}

func (fs *mockFS) ReadDirectory(path string) map[string]Entry {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	return fs.dirs[path]
}

func (fs *mockFS) ReadFile(path string) (string, bool) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	contents, ok := fs.files[path]
	return contents, ok
}

func (*mockFS) Abs(p string) (string, bool) {
	return path.Clean(path.Join("/", p)), true
}

func (*mockFS) Dir(p string) string {
	return path.Dir(p)
}

func (*mockFS) Base(p string) string {
	return path.Base(p)
}

func (*mockFS) Join(parts ...string) string {
	return path.Clean(path.Join(parts...))
}

func (*mockFS) Cwd() string {
	return "/"
}

// SortedKeys is a helper for deterministic directory iteration.
func SortedKeys(entries map[string]Entry) []string {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// HasPythonExt reports whether a path names a Python source file.
func HasPythonExt(p string) bool {
	return strings.HasSuffix(p, ".py")
}
