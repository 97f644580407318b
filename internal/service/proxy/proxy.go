package proxy

import (
	"log/slog"

	"github.com/jgivc/proxyctl/internal/control"
	"github.com/jgivc/proxyctl/internal/entity"
	"github.com/jgivc/proxyctl/internal/metrics"
	"github.com/jgivc/proxyctl/internal/process"
)

const (
	serviceName = "proxy"
)

type ProxyService struct {
	rt  *control.Runtime
	log *slog.Logger
}

func NewProxyService(rt *control.Runtime, log *slog.Logger) *ProxyService {
	return &ProxyService{
		rt:  rt,
		log: log.With(slog.String("service", serviceName)),
	}
}

// SetEnabled starts or stops the engine and records the requested value. The flag follows
// the request even when the engine action fails. Locks: settings, process, state.
func (p *ProxyService) SetEnabled(enabled bool) (bool, error) {
	err := p.rt.Settings().Write(nil, func(l *control.Lease, st *entity.Settings) error {
		if st.Enabled == enabled {
			return nil
		}

		return p.rt.Process().Write(l, func(l *control.Lease, proc *process.Controller) error {
			if enabled {
				p.start(st, *proc)
			} else {
				p.stop(*proc)
			}

			st.Enabled = enabled
			p.log.Debug("Enabled flag changed", slog.Bool("enabled", enabled))

			return p.rt.MarkDirty(l)
		})
	})
	if err != nil {
		return false, err
	}

	return enabled, nil
}

func (p *ProxyService) start(st *entity.Settings, proc process.Controller) {
	if st.CurrentSub == "" {
		if len(st.Subscriptions) > 0 {
			st.CurrentSub = st.Subscriptions[0].Path
			p.log.Info("No profile selected, using the first one", slog.String("path", st.CurrentSub))
		} else {
			p.log.Error("No profile selected and no subscriptions available")
		}
	}

	err := proc.Run(st.CurrentSub)
	metrics.EngineTransitions.WithLabelValues("start", metrics.Result(err)).Inc()
	if err != nil {
		p.log.Error("Cannot start engine", slog.String("path", st.CurrentSub), slog.Any("error", err))

		return
	}
	p.log.Info("Engine enabled", slog.String("path", st.CurrentSub))
}

func (p *ProxyService) stop(proc process.Controller) {
	err := proc.Stop()
	metrics.EngineTransitions.WithLabelValues("stop", metrics.Result(err)).Inc()
	if err != nil {
		p.log.Error("Cannot stop engine", slog.Any("error", err))

		return
	}
	p.log.Info("Engine disabled")
}

// Running reports whether the engine is alive. An enabled flag left over from a dead
// engine is reset to false and marked for persistence.
func (p *ProxyService) Running() (bool, error) {
	var running bool
	err := p.rt.Settings().Write(nil, func(l *control.Lease, st *entity.Settings) error {
		return p.rt.Process().Read(l, func(l *control.Lease, proc *process.Controller) error {
			running = (*proc).Running()
			if running || !st.Enabled {
				return nil
			}

			p.log.Warn("Engine is not running but settings say enabled, resetting")
			st.Enabled = false

			return p.rt.MarkDirty(l)
		})
	})

	return running, err
}
