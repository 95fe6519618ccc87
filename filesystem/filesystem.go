package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

var (
	ErrFileNotFound = errors.New("filesystem: file not found")
	ErrInvalidPath  = errors.New("filesystem: invalid path")
)

// Filesystem stores files under a single root directory. Names are always
// relative to that root and may not escape it.
type Filesystem interface {
	Root() string

	ReadFile(name string) ([]byte, error)
	WriteFile(name string, content []byte) error
	DeleteFile(name string) error
	FileExists(name string) (bool, error)

	CreateDirectory(name string) error
}

type localFileSystem struct {
	root string
}

func NewLocalFileSystem(root string) Filesystem {
	return &localFileSystem{root: root}
}

func (filesystem *localFileSystem) Root() string {
	return filesystem.root
}

// resolve maps name to a path below root.
func (filesystem *localFileSystem) resolve(name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return filepath.Join(filesystem.root, name), nil
}

// ensureFile reports ErrFileNotFound unless path names a regular file.
// Directories are never served or removed as files.
func (filesystem *localFileSystem) ensureFile(path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrFileNotFound, name)
	}
	return nil
}

func (filesystem *localFileSystem) ReadFile(name string) ([]byte, error) {
	path, err := filesystem.resolve(name)
	if err != nil {
		return nil, err
	}

	if err := filesystem.ensureFile(path, name); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return nil, err
	}

	return content, nil
}

// WriteFile creates or truncates name, creating parent directories as needed.
func (filesystem *localFileSystem) WriteFile(name string, content []byte) error {
	path, err := filesystem.resolve(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0770); err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Error("closing file error", "file", path, "error", closeErr)
		}
	}()

	if _, err := file.Write(content); err != nil {
		return err
	}

	return file.Sync()
}

func (filesystem *localFileSystem) DeleteFile(name string) error {
	path, err := filesystem.resolve(name)
	if err != nil {
		return err
	}

	if err := filesystem.ensureFile(path, name); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return err
	}

	return nil
}

func (filesystem *localFileSystem) FileExists(name string) (bool, error) {
	path, err := filesystem.resolve(name)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	return !info.IsDir(), nil
}

// CreateDirectory creates name and its parents. "." creates the root itself.
func (filesystem *localFileSystem) CreateDirectory(name string) error {
	path, err := filesystem.resolve(name)
	if err != nil {
		return err
	}

	return os.MkdirAll(path, 0770)
}
