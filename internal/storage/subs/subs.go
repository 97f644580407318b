package subs

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	nameLength = 5
	Extension  = ".yaml"
	alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	dirPerm  = 0o755
	filePerm = 0o644
)

type fileStore struct {
	fs  afero.Fs
	log *slog.Logger
}

func NewFileStore(log *slog.Logger) *fileStore {
	return NewFileStoreWithFS(afero.NewOsFs(), log)
}

func NewFileStoreWithFS(fs afero.Fs, log *slog.Logger) *fileStore {
	return &fileStore{
		fs:  fs,
		log: log.With(slog.String("item", "SubscriptionStore")),
	}
}

// NewPath returns dir joined with a random name. Names are not checked for collisions.
func (s *fileStore) NewPath(dir string) string {
	return filepath.Join(dir, RandomName()+Extension)
}

func (s *fileStore) EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("cannot create dir %s: %w", dir, err)
	}

	return nil
}

func (s *fileStore) Write(path string, content []byte) error {
	if err := afero.WriteFile(s.fs, path, content, filePerm); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	s.log.Debug("Subscription written", slog.String("path", path), slog.Int("size", len(content)))

	return nil
}

// Remove deletes the file at path. A missing file is not an error.
func (s *fileStore) Remove(path string) error {
	err := s.fs.Remove(path)
	switch {
	case err == nil:
		s.log.Debug("Subscription removed", slog.String("path", path))
	case errors.Is(err, os.ErrNotExist):
		s.log.Warn("Subscription file already gone", slog.String("path", path))
	default:
		return fmt.Errorf("cannot remove %s: %w", path, err)
	}

	return nil
}

func RandomName() string {
	b := make([]byte, nameLength)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}

	return string(b)
}
