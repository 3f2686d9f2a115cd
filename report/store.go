package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"bitbucket.org/mmdatafocus/menu_recon/models"
	"bitbucket.org/mmdatafocus/menu_recon/utils"
)

// FileStore writes one report file per outlet into Dir. Reruns overwrite.
type FileStore struct {
	Dir     string
	Encoder Encoder
}

func NewFileStore(dir string, enc Encoder) *FileStore {
	return &FileStore{Dir: dir, Encoder: enc}
}

// Path is where Save puts the report of outletCode.
func (s *FileStore) Path(outletCode string) string {
	return filepath.Join(s.Dir, FileName(outletCode, s.Encoder.Format()))
}

// Save writes to a temp file next to the destination and renames it, so a
// failed write never leaves a truncated report behind.
func (s *FileStore) Save(ctx context.Context, outletCode string, rows []models.ReconciliationRow) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create output dir %s: %w", utils.ErrorSerialization, s.Dir, err)
	}

	tmp, err := os.CreateTemp(s.Dir, ".menu_recon_*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %w", utils.ErrorSerialization, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := s.Encoder.Encode(tmp, rows); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: close %s: %w", utils.ErrorSerialization, tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("%w: chmod %s: %w", utils.ErrorSerialization, tmpName, err)
	}

	dest := s.Path(outletCode)
	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("%w: rename to %s: %w", utils.ErrorSerialization, dest, err)
	}
	return dest, nil
}

// Saver is implemented by FileStore and GCSStore.
type Saver interface {
	Save(ctx context.Context, outletCode string, rows []models.ReconciliationRow) (string, error)
}

// Tee saves to every store in order and reports the first store's location.
// It stops at the first failure.
type Tee []Saver

func NewTee(stores ...Saver) Tee {
	return Tee(stores)
}

func (t Tee) Save(ctx context.Context, outletCode string, rows []models.ReconciliationRow) (string, error) {
	if len(t) == 0 {
		return "", errors.New("no report store configured")
	}
	var first string
	for i, s := range t {
		loc, err := s.Save(ctx, outletCode, rows)
		if err != nil {
			return "", err
		}
		if i == 0 {
			first = loc
		}
	}
	return first, nil
}
