package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jgivc/proxyctl/internal/control"
	"github.com/jgivc/proxyctl/internal/entity"
	"github.com/jgivc/proxyctl/internal/metrics"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

const (
	tmpSuffix = ".tmp"
	dirPerm   = 0o755
	filePerm  = 0o644
)

// Load reads settings from path. A missing file yields empty settings.
func Load(fs afero.Fs, path string) (entity.Settings, error) {
	var st entity.Settings

	content, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return st, nil
		}

		return st, fmt.Errorf("cannot read settings %s: %w", path, err)
	}

	if err := yaml.Unmarshal(content, &st); err != nil {
		return st, fmt.Errorf("cannot parse settings %s: %w", path, err)
	}

	return st, nil
}

type persister struct {
	fs   afero.Fs
	path string
	rt   *control.Runtime
	log  *slog.Logger
}

func NewPersister(fs afero.Fs, path string, rt *control.Runtime, log *slog.Logger) *persister {
	return &persister{
		fs:   fs,
		path: path,
		rt:   rt,
		log:  log.With(slog.String("item", "SettingsPersister")),
	}
}

// Flush writes the settings if they are dirty and clears the flag. On a failed write the
// flag is set again so the next flush retries.
func (p *persister) Flush() error {
	var (
		snap  entity.Settings
		dirty bool
	)

	err := p.rt.Settings().Read(nil, func(l *control.Lease, st *entity.Settings) error {
		return p.rt.State().Write(l, func(_ *control.Lease, s *entity.RuntimeState) error {
			if !s.Dirty {
				return nil
			}
			dirty, snap, s.Dirty = true, st.Clone(), false

			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("cannot snapshot settings: %w", err)
	}

	if !dirty {
		return nil
	}

	err = p.save(snap)
	metrics.SettingsFlushes.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		if derr := p.rt.MarkDirty(nil); derr != nil {
			p.log.Error("Cannot restore dirty flag", slog.Any("error", derr))
		}

		return err
	}

	p.log.Debug("Settings saved", slog.String("path", p.path))

	return nil
}

func (p *persister) save(st entity.Settings) error {
	content, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("cannot serialize settings: %w", err)
	}

	if err := p.fs.MkdirAll(filepath.Dir(p.path), dirPerm); err != nil {
		return fmt.Errorf("cannot create settings dir: %w", err)
	}

	tmp := p.path + tmpSuffix
	if err := afero.WriteFile(p.fs, tmp, content, filePerm); err != nil {
		return fmt.Errorf("cannot write settings: %w", err)
	}

	if err := p.fs.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("cannot replace settings: %w", err)
	}

	return nil
}

// Run flushes every interval until ctx is done, then flushes once more.
func (p *persister) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := p.Flush(); err != nil {
				p.log.Error("Cannot flush settings on shutdown", slog.Any("error", err))
			}

			return
		case <-ticker.C:
			if err := p.Flush(); err != nil {
				p.log.Error("Cannot flush settings", slog.Any("error", err))
			}
		}
	}
}
