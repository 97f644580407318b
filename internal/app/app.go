package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jgivc/proxyctl/internal/adapter/fetch"
	"github.com/jgivc/proxyctl/internal/adapter/validate"
	"github.com/jgivc/proxyctl/internal/config"
	"github.com/jgivc/proxyctl/internal/control"
	"github.com/jgivc/proxyctl/internal/entity"
	httphandler "github.com/jgivc/proxyctl/internal/handler/http"
	"github.com/jgivc/proxyctl/internal/handler/rpc"
	"github.com/jgivc/proxyctl/internal/metrics"
	"github.com/jgivc/proxyctl/internal/process"
	"github.com/jgivc/proxyctl/internal/service/network"
	"github.com/jgivc/proxyctl/internal/service/proxy"
	"github.com/jgivc/proxyctl/internal/service/subscription"
	"github.com/jgivc/proxyctl/internal/storage/settings"
	"github.com/jgivc/proxyctl/internal/storage/subs"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	shutdownTimeout = 5 * time.Second
)

type Persister interface {
	Flush() error
	Run(ctx context.Context, interval time.Duration)
}

type App struct {
	cfgPath     string
	cfg         *config.Config
	srv         *http.Server
	rt          *control.Runtime
	subs        *subscription.SubscriptionService
	dispatcher  *rpc.Dispatcher
	persister   Persister
	pool        *ants.Pool
	stopPersist context.CancelFunc
	persistDone chan struct{}
	logCloser   io.Closer
	log         *slog.Logger
}

func New(cfgPath string) *App {
	return &App{
		cfgPath: cfgPath,
	}
}

// nopCloser stands in for the log writer when logging goes to stderr, which must stay open.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	lo := &slog.HandlerOptions{}
	switch cfg.LogLevel {
	case config.LogLevelInfo:
		lo.Level = slog.LevelInfo
	case config.LogLevelWarn:
		lo.Level = slog.LevelWarn
	case config.LogLevelError:
		lo.Level = slog.LevelError
	case config.LogLevelDebug:
		lo.Level = slog.LevelDebug
	default:
		panic("unknown log level")
	}

	if cfg.Log.File == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, lo)), nopCloser{}
	}

	w := &lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	}

	return slog.New(slog.NewTextHandler(w, lo)), w
}

func (a *App) Start() {
	a.cfg = config.MustLoad(a.cfgPath)
	log, closer := newLogger(a.cfg)
	a.log, a.logCloser = log, closer

	fs := afero.NewOsFs()
	settingsPath := a.cfg.SettingsPath()
	st, err := settings.Load(fs, settingsPath)
	if err != nil {
		panic(err)
	}

	engine := process.NewEngine(&a.cfg.Engine, log)
	a.rt = control.New(st, entity.RuntimeState{HomeDir: a.cfg.HomeDir}, engine)

	a.pool, err = ants.NewPool(a.cfg.Update.Workers)
	if err != nil {
		panic(err)
	}

	reg := prometheus.NewRegistry()
	metrics.Register(reg)

	a.subs = subscription.NewSubscriptionService(a.cfg, a.rt,
		fetch.NewFetcher(a.cfg.Fetch.Timeout, log),
		validate.NewYAMLValidator(),
		subs.NewFileStore(log),
		a.pool, log)
	proxySrv := proxy.NewProxyService(a.rt, log)
	netSrv := network.NewNetworkService(a.cfg.Network.ResetCommands, log)

	a.dispatcher = rpc.NewDefaultDispatcher(rpc.NewHandlers(proxySrv, netSrv, a.subs, log))

	a.persister = settings.NewPersister(fs, settingsPath, a.rt, log)
	ctx, cancel := context.WithCancel(context.Background())
	a.stopPersist, a.persistDone = cancel, make(chan struct{})
	go func() {
		defer close(a.persistDone)
		a.persister.Run(ctx, a.cfg.Persist.Interval)
	}()

	if st.Enabled {
		a.restoreEngine(st.CurrentSub)
	}

	a.srv = &http.Server{
		Addr:    a.cfg.Listen,
		Handler: httphandler.NewRouter(a.dispatcher, reg, log),
	}

	go func() {
		log.Info("Start listen", slog.String("addr", a.cfg.Listen))

		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Could not serve", slog.String("listen_addr", a.cfg.Listen), slog.Any("error", err))
			os.Exit(2)
		}
	}()
}

// restoreEngine starts the engine for settings persisted as enabled.
func (a *App) restoreEngine(path string) {
	err := a.rt.Process().Write(nil, func(_ *control.Lease, proc *process.Controller) error {
		return (*proc).Run(path)
	})
	if err != nil {
		a.log.Error("Cannot restore engine", slog.String("path", path), slog.Any("error", err))
	}
}

func (a *App) Dispatcher() *rpc.Dispatcher {
	return a.dispatcher
}

func (a *App) Update() {
	if _, err := a.subs.UpdateAll(); err != nil {
		a.log.Error("Cannot start subscription update", slog.Any("error", err))

		return
	}

	fmt.Println("Subscription update started.")
}

func (a *App) Flush() {
	if err := a.persister.Flush(); err != nil {
		a.log.Error("Cannot flush settings", slog.Any("error", err))
	}
}

func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.srv.Shutdown(ctx); err != nil {
		a.log.Error("Cannot shutdown server", slog.Any("error", err))
	}

	a.stopPersist()
	<-a.persistDone

	// in-flight refreshes are not waited for
	a.pool.Release()

	if err := a.logCloser.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "cannot close log: %s\n", err)
	}
}
