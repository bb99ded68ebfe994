package fs

import (
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

type realFS struct {
	mutex sync.Mutex

	// Stores the entries for directories we've listed before
	entries map[string]map[string]Entry

	cwd string
}

func RealFS() FS {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}
	return &realFS{
		entries: make(map[string]map[string]Entry),
		cwd:     cwd,
	}
}

func (fs *realFS) ReadDirectory(dir string) map[string]Entry {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	if cached, ok := fs.entries[dir]; ok {
		return cached
	}

	names, err := readdir(dir)
	var entries map[string]Entry
	if err == nil {
		entries = make(map[string]Entry, len(names))
		for _, name := range names {
			if info, err := os.Stat(filepath.Join(dir, name)); err == nil {
				kind := FileEntry
				if info.IsDir() {
					kind = DirEntry
				}
				entries[name] = Entry{Kind: kind}
			}
		}
	}

	// Cache even on failure so an inaccessible directory is only tried once
	fs.entries[dir] = entries
	return entries
}

func (fs *realFS) ReadFile(path string) (string, bool) {
	buffer, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(buffer), true
}

func (fs *realFS) Abs(p string) (string, bool) {
	abs, err := filepath.Abs(p)
	return abs, err == nil
}

func (fs *realFS) Dir(p string) string {
	return filepath.Dir(p)
}

func (fs *realFS) Base(p string) string {
	return filepath.Base(p)
}

func (fs *realFS) Join(parts ...string) string {
	return filepath.Clean(filepath.Join(parts...))
}

func (fs *realFS) Cwd() string {
	return fs.cwd
}

func readdir(dirname string) ([]string, error) {
	f, err := os.Open(dirname)
	if pathErr, ok := err.(*os.PathError); ok {
		err = pathErr.Unwrap()
	}

	// Windows returns ENOTDIR for a missing directory
	if err == syscall.ENOTDIR {
		return nil, syscall.ENOENT
	}
	if err != nil {
		return nil, err
	}

	defer f.Close()
	return f.Readdirnames(-1)
}
