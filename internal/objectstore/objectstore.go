// Package objectstore публичное хранилище файлов (картинки QR).
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Totarae/shorttty/internal/model"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Store хранит объекты и выдаёт их публичные адреса.
type Store interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	Get(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}

// FileStore объекты в каталоге на диске, раздаются через /storage/{name}.
type FileStore struct {
	dir     string
	baseURL string
}

func NewFileStore(dir, baseURL string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("object storage dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create object storage dir: %w", err)
	}
	return &FileStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// PublicURL адрес, по которому объект доступен снаружи.
func (s *FileStore) PublicURL(name string) string {
	return s.baseURL + "/storage/" + name
}

func (s *FileStore) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	path, err := s.path(name)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp object: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return "", errors.Join(fmt.Errorf("write object: %w", err), tmp.Close(), os.Remove(tmp.Name()))
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Join(err, os.Remove(tmp.Name()))
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", errors.Join(fmt.Errorf("store object: %w", err), os.Remove(tmp.Name()))
	}
	return s.PublicURL(name), nil
}

func (s *FileStore) Get(_ context.Context, name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, model.ErrNotFound
	}
	return data, err
}

func (s *FileStore) Delete(_ context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileStore) path(name string) (string, error) {
	if !validName.MatchString(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid object name %q: %w", name, model.ErrNotFound)
	}
	return filepath.Join(s.dir, name), nil
}

// NameFromURL достаёт имя объекта из публичного адреса.
func NameFromURL(publicURL string) string {
	idx := strings.LastIndex(publicURL, "/storage/")
	if idx < 0 {
		return ""
	}
	return publicURL[idx+len("/storage/"):]
}
