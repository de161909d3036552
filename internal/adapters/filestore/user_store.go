// Package filestore keeps the user record as a JSON file on local disk.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/findash/findash/internal/errors"
	"github.com/findash/findash/internal/ports"
)

const (
	dirMode  = 0o700
	fileMode = 0o600
)

var _ ports.UserStore = (*UserStore)(nil)

// UserStore persists one named record at <dir>/<name>.json. Writes go to a temp
// file in the same directory and are renamed into place, so a reader never sees
// a partial record.
type UserStore struct {
	path string
}

// NewUserStore creates the directory if needed and returns a store for name.
func NewUserStore(dir, name string) (*UserStore, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("record name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid record name %q", name)
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("session directory cannot be empty")
	}
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &UserStore{path: filepath.Join(dir, name+".json")}, nil
}

// Path returns the file holding the record.
func (s *UserStore) Path() string { return s.path }

func (s *UserStore) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NotFound("user record not found")
		}
		return nil, fmt.Errorf("read user record: %w", err)
	}
	return data, nil
}

func (s *UserStore) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()

	if err := writeAndClose(tmp, data); err != nil {
		return errors.Join(err, removeIfExists(tmpName))
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.Join(fmt.Errorf("replace user record: %w", err), removeIfExists(tmpName))
	}
	return nil
}

func (s *UserStore) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := removeIfExists(s.path); err != nil {
		return fmt.Errorf("delete user record: %w", err)
	}
	return nil
}

func writeAndClose(f *os.File, data []byte) error {
	if err := f.Chmod(fileMode); err != nil {
		_ = f.Close()
		return fmt.Errorf("chmod temp record: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync temp record: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp record: %w", err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
