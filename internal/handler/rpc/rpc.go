package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jgivc/proxyctl/internal/common"
	"github.com/jgivc/proxyctl/internal/entity"
	"github.com/jgivc/proxyctl/internal/service/subscription"
)

const (
	resetNetworkTimeout = 30 * time.Second
)

type ProxyService interface {
	SetEnabled(enabled bool) (bool, error)
	Running() (bool, error)
}

type NetworkService interface {
	Reset(ctx context.Context) error
}

type SubscriptionService interface {
	Download(url string) (*subscription.Task, error)
	UpdateAll() (*subscription.Task, error)
	Delete(index int) error
	Select(path string) error
	List() ([]entity.Subscription, error)
	DownloadStatus() (entity.TaskStatus, error)
	UpdateStatus() (entity.TaskStatus, error)
}

// Handler is the boundary signature used by the front-end transport.
type Handler func(params []Primitive) []Primitive

type Handlers struct {
	proxy ProxyService
	net   NetworkService
	subs  SubscriptionService
	log   *slog.Logger
}

func NewHandlers(proxy ProxyService, net NetworkService, subs SubscriptionService, log *slog.Logger) *Handlers {
	return &Handlers{
		proxy: proxy,
		net:   net,
		subs:  subs,
		log:   log.With(slog.String("handler", "RPC")),
	}
}

func empty() []Primitive {
	return []Primitive{}
}

// Handler returns the boundary handler for method.
func (h *Handlers) Handler(method string) Handler {
	return func(params []Primitive) []Primitive {
		req, ok := Decode(method, params)
		if !ok {
			h.log.Debug("No input provided", slog.String("method", method))

			return empty()
		}

		return h.Handle(req)
	}
}

// Handle never fails; errors are logged and produce an empty result.
func (h *Handlers) Handle(req Request) []Primitive {
	log := h.log.With(slog.String("method", req.Method()))

	switch r := req.(type) {
	case QueryEnabledRequest:
		running, err := h.proxy.Running()
		if err != nil {
			log.Error("Cannot query engine status", slog.Any("error", err))

			return empty()
		}

		return []Primitive{running}

	case SetEnabledRequest:
		enabled, err := h.proxy.SetEnabled(r.Enabled)
		if err != nil {
			log.Error("Cannot set enabled", slog.Bool("enabled", r.Enabled), slog.Any("error", err))

			return empty()
		}

		return []Primitive{enabled}

	case ResetNetworkRequest:
		ctx, cancel := context.WithTimeout(context.Background(), resetNetworkTimeout)
		defer cancel()

		if err := h.net.Reset(ctx); err != nil {
			log.Error("Cannot reset network", slog.Any("error", err))

			return empty()
		}
		log.Info("Network reset")

		return empty()

	case DownloadSubRequest:
		if _, err := h.subs.Download(r.URL); err != nil {
			log.Error("Cannot start download", slog.String("url", r.URL), slog.Any("error", err))
		}

		return empty()

	case DownloadStatusRequest:
		return statusResult(log, h.subs.DownloadStatus)

	case ListSubsRequest:
		list, err := h.subs.List()
		if err != nil {
			log.Error("Cannot list subscriptions", slog.Any("error", err))

			return empty()
		}

		raw, err := json.Marshal(list)
		if err != nil {
			log.Error("Cannot serialize subscriptions", slog.Any("error", err))

			return empty()
		}

		return []Primitive{string(raw)}

	case DeleteSubRequest:
		index, err := toIndex(r.Index)
		if err != nil {
			log.Warn("Invalid subscription index", slog.Float64("index", r.Index), slog.Any("error", err))

			return empty()
		}

		if err := h.subs.Delete(index); err != nil {
			log.Error("Cannot delete subscription", slog.Int("index", index), slog.Any("error", err))
		}

		return empty()

	case SelectSubRequest:
		if err := h.subs.Select(r.Path); err != nil {
			log.Error("Cannot select subscription", slog.String("path", r.Path), slog.Any("error", err))
		}

		return empty()

	case UpdateSubsRequest:
		if _, err := h.subs.UpdateAll(); err != nil {
			log.Error("Cannot start update", slog.Any("error", err))
		}

		return empty()

	case UpdateStatusRequest:
		return statusResult(log, h.subs.UpdateStatus)

	default:
		log.Error("Unhandled request", slog.String("type", fmt.Sprintf("%T", req)))

		return empty()
	}
}

func statusResult(log *slog.Logger, get func() (entity.TaskStatus, error)) []Primitive {
	status, err := get()
	if err != nil {
		log.Error("Cannot read status", slog.Any("error", err))

		return empty()
	}

	return []Primitive{status.String()}
}

func toIndex(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, common.ErrIndexOutOfRange
	}

	return int(f), nil
}
