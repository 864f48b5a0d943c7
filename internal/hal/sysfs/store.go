// internal/hal/sysfs/store.go
package sysfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tamzrod/openracer/internal/hal"
)

// storeSize is the number of persisted bytes (magic + age).
const storeSize = 2

// FileStore persists the non-volatile slots in a small file.
// Writes go through a temp file + rename so a power cut leaves either the
// old or the new contents.
type FileStore struct {
	path string
}

// OpenFileStore opens path, creating it with the factory image
// (magic marker, age 0) when it does not exist.
func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("sysfs store: path required")
	}
	s := &FileStore{path: path}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		return s, nil
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sysfs store: %w", err)
		}
		img := make([]byte, storeSize)
		img[hal.SlotMagic] = hal.Magic
		if err := s.write(img); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("sysfs store: %w", err)
	}
}

func (s *FileStore) Load(slot uint8) (uint8, error) {
	img, err := s.read()
	if err != nil {
		return 0, err
	}
	if int(slot) >= len(img) {
		return 0, fmt.Errorf("sysfs store: slot %d out of range", slot)
	}
	return img[slot], nil
}

func (s *FileStore) Save(slot uint8, value uint8) error {
	if int(slot) >= storeSize {
		return fmt.Errorf("sysfs store: slot %d out of range", slot)
	}
	img, err := s.read()
	if err != nil {
		return err
	}
	img[slot] = value
	return s.write(img)
}

func (s *FileStore) read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("sysfs store: %w", err)
	}
	// short files (e.g. truncated) read back as zero-filled
	img := make([]byte, storeSize)
	copy(img, data)
	return img, nil
}

func (s *FileStore) write(img []byte) error {
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, img, 0o644); err != nil {
		return fmt.Errorf("sysfs store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("sysfs store: %w", err)
	}
	return nil
}
