package gallery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Files stores image files under a root directory. Writes are atomic.
type Files struct {
	root string // absolute
}

// NewFiles returns a Files rooted at root, creating the directory.
func NewFiles(root string) (*Files, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("gallery: create dir: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("gallery: resolve root: %w", err)
	}
	return &Files{root: abs}, nil
}

// Root returns the absolute root directory.
func (f *Files) Root() string { return f.root }

// safePath resolves name against the root and rejects anything that would
// leave it.
func (f *Files) safePath(name string) (string, error) {
	cleaned := filepath.Clean(name)
	if name == "" || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("gallery: invalid file name %q", name)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("gallery: path escapes root: %s", name)
	}
	return abs, nil
}

// Write atomically replaces name with data: tmp file, fsync, rename.
func (f *Files) Write(name string, data []byte) error {
	abs, err := f.safePath(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(abs), ".tiedye-tmp-*")
	if err != nil {
		return fmt.Errorf("gallery: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("gallery: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("gallery: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("gallery: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("gallery: rename: %w", err)
	}
	success = true
	return nil
}

// Read returns the content of name.
func (f *Files) Read(name string) ([]byte, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("gallery: read %s: %w", name, err)
	}
	return data, nil
}

// Delete removes name. A missing file is not an error.
func (f *Files) Delete(name string) error {
	abs, err := f.safePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("gallery: delete %s: %w", name, err)
	}
	return nil
}

// Exists reports whether name is present.
func (f *Files) Exists(name string) bool {
	abs, err := f.safePath(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// List returns the names of the files with the given suffix.
func (f *Files) List(suffix string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != f.root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), suffix) && !strings.HasPrefix(d.Name(), ".") {
			out = append(out, d.Name())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gallery: list: %w", err)
	}
	return out, nil
}
