package process

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jgivc/proxyctl/internal/common"
	"github.com/jgivc/proxyctl/internal/config"
	ps "github.com/shirou/gopsutil/v3/process"
)

// engine runs the proxy binary as a child process. It is not safe for concurrent
// use; callers serialize through the process guard.
type engine struct {
	cfg  *config.EngineConfig
	cmd  *exec.Cmd
	done chan struct{}
	path string
	log  *slog.Logger
}

func NewEngine(cfg *config.EngineConfig, log *slog.Logger) *engine {
	return &engine{
		cfg: cfg,
		log: log.With(slog.String("item", "Engine")),
	}
}

func (e *engine) Run(configPath string) error {
	if configPath == "" {
		return common.ErrNoProfile
	}

	if e.Running() {
		if err := e.Stop(); err != nil {
			return fmt.Errorf("cannot stop running engine: %w", err)
		}
	}

	args := make([]string, len(e.cfg.Args))
	for i, arg := range e.cfg.Args {
		args[i] = strings.ReplaceAll(arg, config.ConfigPathPlaceholder, configPath)
	}

	cmd := exec.Command(e.cfg.Binary, args...)
	cmd.Dir = e.cfg.WorkDir
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("cannot start %s: %w", e.cfg.Binary, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := cmd.Wait(); err != nil {
			e.log.Warn("Engine exited", slog.Int("pid", cmd.Process.Pid), slog.Any("error", err))

			return
		}
		e.log.Info("Engine exited", slog.Int("pid", cmd.Process.Pid))
	}()

	e.cmd, e.done, e.path = cmd, done, configPath
	e.log.Info("Engine started", slog.Int("pid", cmd.Process.Pid), slog.String("config", configPath))

	return nil
}

func (e *engine) Stop() error {
	if e.alive() {
		return e.stopChild()
	}

	orphans, err := e.findByName()
	if err != nil {
		return fmt.Errorf("cannot list processes: %w", err)
	}
	if len(orphans) < 1 {
		return common.ErrProcessNotRunning
	}

	for _, p := range orphans {
		if err := p.Terminate(); err != nil {
			return fmt.Errorf("cannot terminate pid %d: %w", p.Pid, err)
		}
		e.log.Info("Terminated engine not started by us", slog.Int("pid", int(p.Pid)))
	}

	return nil
}

func (e *engine) stopChild() error {
	if err := e.cmd.Process.Signal(os.Interrupt); err != nil {
		e.log.Warn("Cannot interrupt engine", slog.Any("error", err))
	}

	select {
	case <-e.done:
		return nil
	case <-time.After(e.cfg.StopTimeout):
	}

	if err := e.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("cannot kill pid %d: %w", e.cmd.Process.Pid, err)
	}
	<-e.done

	return nil
}

// Running also reports engines left over from a previous run of the backend.
func (e *engine) Running() bool {
	if e.alive() {
		return true
	}

	procs, err := e.findByName()
	if err != nil {
		e.log.Error("Cannot list processes", slog.Any("error", err))

		return false
	}

	return len(procs) > 0
}

func (e *engine) ConfigPath() string {
	return e.path
}

func (e *engine) alive() bool {
	if e.cmd == nil {
		return false
	}

	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

func (e *engine) findByName() ([]*ps.Process, error) {
	procs, err := ps.Processes()
	if err != nil {
		return nil, err
	}

	self := int32(os.Getpid())
	var found []*ps.Process
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		name, err := p.Name()
		if err != nil {
			continue
		}
		if name == e.cfg.ProcessName {
			found = append(found, p)
		}
	}

	return found, nil
}
