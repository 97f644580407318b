package control

import (
	"github.com/jgivc/proxyctl/internal/entity"
	"github.com/jgivc/proxyctl/internal/process"
)

type (
	SettingsGuard = Guard[entity.Settings]
	StateGuard    = Guard[entity.RuntimeState]
	ProcessGuard  = Guard[process.Controller]
	StatusGuard   = Guard[entity.StatusRegister]
)

// Runtime owns every guarded aggregate for the life of the process. Handlers and
// background tasks hold only the handles they need.
type Runtime struct {
	settings *SettingsGuard
	state    *StateGuard
	process  *ProcessGuard
	download *StatusGuard
	update   *StatusGuard
}

func New(settings entity.Settings, state entity.RuntimeState, proc process.Controller) *Runtime {
	return &Runtime{
		settings: NewGuard(RankSettings, settings.Clone()),
		state:    NewGuard(RankState, state),
		process:  NewGuard(RankProcess, proc),
		download: NewGuard(RankDownloadStatus, entity.StatusRegister{}),
		update:   NewGuard(RankUpdateStatus, entity.StatusRegister{}),
	}
}

func (r *Runtime) Settings() *SettingsGuard { return r.settings }

func (r *Runtime) State() *StateGuard { return r.state }

func (r *Runtime) Process() *ProcessGuard { return r.process }

func (r *Runtime) DownloadStatus() *StatusGuard { return r.download }

func (r *Runtime) UpdateStatus() *StatusGuard { return r.update }

// MarkDirty flags the settings for persistence. It may be nested under any guard
// ranked below state.
func (r *Runtime) MarkDirty(l *Lease) error {
	return r.state.Write(l, func(_ *Lease, s *entity.RuntimeState) error {
		s.Dirty = true

		return nil
	})
}

// Dirty and the other lease-less accessors below acquire their guard at top level
// and must not be called from inside a critical section.
func (r *Runtime) Dirty() (bool, error) {
	var dirty bool
	err := r.state.Read(nil, func(_ *Lease, s *entity.RuntimeState) error {
		dirty = s.Dirty

		return nil
	})

	return dirty, err
}

func (r *Runtime) HomeDir() (string, error) {
	var home string
	err := r.state.Read(nil, func(_ *Lease, s *entity.RuntimeState) error {
		home = s.HomeDir

		return nil
	})

	return home, err
}

func (r *Runtime) SettingsSnapshot() (entity.Settings, error) {
	var snap entity.Settings
	err := r.settings.Read(nil, func(_ *Lease, s *entity.Settings) error {
		snap = s.Clone()

		return nil
	})

	return snap, err
}

func readStatus(g *StatusGuard) (entity.TaskStatus, error) {
	var status entity.TaskStatus
	err := g.Read(nil, func(_ *Lease, r *entity.StatusRegister) error {
		status = r.Status

		return nil
	})

	return status, err
}

func (r *Runtime) DownloadStatusValue() (entity.TaskStatus, error) {
	return readStatus(r.download)
}

func (r *Runtime) UpdateStatusValue() (entity.TaskStatus, error) {
	return readStatus(r.update)
}
