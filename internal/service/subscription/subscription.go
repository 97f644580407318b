package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/jgivc/proxyctl/internal/common"
	"github.com/jgivc/proxyctl/internal/config"
	"github.com/jgivc/proxyctl/internal/control"
	"github.com/jgivc/proxyctl/internal/entity"
	"github.com/jgivc/proxyctl/internal/metrics"
	"github.com/panjf2000/ants/v2"
)

const (
	serviceName = "subscription"
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Validator interface {
	Validate(content []byte) error
}

type FileStore interface {
	NewPath(dir string) string
	EnsureDir(path string) error
	Write(path string, content []byte) error
	Remove(path string) error
}

type SubscriptionService struct {
	rt        *control.Runtime
	fetcher   Fetcher
	validator Validator
	store     FileStore
	pool      *ants.Pool
	subsDir   string
	timeout   time.Duration
	log       *slog.Logger
}

func NewSubscriptionService(cfg *config.Config, rt *control.Runtime, fetcher Fetcher, validator Validator,
	store FileStore, pool *ants.Pool, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		rt:        rt,
		fetcher:   fetcher,
		validator: validator,
		store:     store,
		pool:      pool,
		subsDir:   cfg.SubsDir,
		timeout:   cfg.Fetch.Timeout,
		log:       log.With(slog.String("service", serviceName)),
	}
}

// Download marks the download register as Downloading and fetches url in the background.
// Progress is observed through DownloadStatus.
func (s *SubscriptionService) Download(url string) (*Task, error) {
	home, err := s.rt.HomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot get home dir: %w", err)
	}
	dir := filepath.Join(home, s.subsDir)

	var gen uint64
	if err := s.rt.DownloadStatus().Write(nil, func(_ *control.Lease, r *entity.StatusRegister) error {
		gen = r.Begin()

		return nil
	}); err != nil {
		return nil, fmt.Errorf("cannot set download status: %w", err)
	}

	task := newTask()
	log := s.log.With(slog.String("task", task.ID.String()), slog.String("url", url))
	log.Info("Download started")

	go func() {
		defer close(task.done)
		s.finishDownload(log, gen, s.download(log, dir, url))
	}()

	return task, nil
}

func (s *SubscriptionService) download(log *slog.Logger, dir, url string) entity.TaskStatus {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	content, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		log.Error("Cannot download subscription", slog.Any("error", err))

		return entity.StatusFailed
	}

	if err := s.validator.Validate(content); err != nil {
		log.Error("Downloaded subscription is not a valid profile", slog.Any("error", err))

		return entity.StatusError
	}

	path := s.store.NewPath(dir)
	if err := s.store.EnsureDir(path); err != nil {
		log.Error("Cannot create subscription dir", slog.Any("error", err))

		return entity.StatusError
	}

	// A failed write is only logged; the entry is still recorded.
	if err := s.store.Write(path, content); err != nil {
		log.Error("Cannot save subscription", slog.String("path", path), slog.Any("error", err))
	}

	if err := s.rt.Settings().Write(nil, func(l *control.Lease, st *entity.Settings) error {
		st.Subscriptions = append(st.Subscriptions, entity.NewSubscription(path, url))

		return s.rt.MarkDirty(l)
	}); err != nil {
		log.Error("Cannot record subscription", slog.String("path", path), slog.Any("error", err))

		return entity.StatusError
	}

	log.Info("Subscription downloaded", slog.String("path", path))

	return entity.StatusSuccess
}

func (s *SubscriptionService) finishDownload(log *slog.Logger, gen uint64, status entity.TaskStatus) {
	metrics.SubscriptionDownloads.WithLabelValues(status.String()).Inc()

	var applied bool
	if err := s.rt.DownloadStatus().Write(nil, func(_ *control.Lease, r *entity.StatusRegister) error {
		applied = r.Finish(gen, status)

		return nil
	}); err != nil {
		log.Error("Cannot set download status", slog.String("status", status.String()), slog.Any("error", err))

		return
	}

	if !applied {
		log.Debug("Download superseded, status not reported", slog.String("status", status.String()))
	}
}

// UpdateAll re-fetches every subscription in place. The update register reports Success
// as soon as the refreshes are spawned; it neither waits for nor inspects their outcome.
func (s *SubscriptionService) UpdateAll() (*Task, error) {
	var gen uint64
	if err := s.rt.UpdateStatus().Write(nil, func(_ *control.Lease, r *entity.StatusRegister) error {
		gen = r.Begin()

		return nil
	}); err != nil {
		return nil, fmt.Errorf("cannot set update status: %w", err)
	}

	snap, err := s.rt.SettingsSnapshot()
	if err != nil {
		s.finishUpdate(gen, entity.StatusFailed)

		return nil, fmt.Errorf("cannot read subscriptions: %w", err)
	}

	task := newTask()
	log := s.log.With(slog.String("task", task.ID.String()))
	log.Info("Update started", slog.Int("count", len(snap.Subscriptions)))

	go func() {
		defer close(task.done)

		// Submit blocks while every worker is busy, so each hand-off gets its own goroutine.
		for _, sub := range snap.Subscriptions {
			go s.submitRefresh(log, sub)
		}

		s.finishUpdate(gen, entity.StatusSuccess)
	}()

	return task, nil
}

func (s *SubscriptionService) submitRefresh(log *slog.Logger, sub entity.Subscription) {
	if err := s.pool.Submit(func() { s.refresh(log, sub) }); err != nil {
		metrics.SubscriptionUpdates.WithLabelValues(metrics.ResultError).Inc()
		log.Error("Cannot schedule refresh", slog.String("path", sub.Path), slog.Any("error", err))
	}
}

func (s *SubscriptionService) refresh(log *slog.Logger, sub entity.Subscription) {
	log = log.With(slog.String("path", sub.Path), slog.String("url", sub.URL))

	err := s.refreshOne(sub)
	metrics.SubscriptionUpdates.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		log.Error("Cannot update subscription", slog.Any("error", err))

		return
	}

	log.Info("Subscription updated")
}

func (s *SubscriptionService) refreshOne(sub entity.Subscription) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	content, err := s.fetcher.Fetch(ctx, sub.URL)
	if err != nil {
		return err
	}

	if err := s.validator.Validate(content); err != nil {
		return err
	}

	return s.store.Write(sub.Path, content)
}

func (s *SubscriptionService) finishUpdate(gen uint64, status entity.TaskStatus) {
	if err := s.rt.UpdateStatus().Write(nil, func(_ *control.Lease, r *entity.StatusRegister) error {
		r.Finish(gen, status)

		return nil
	}); err != nil {
		s.log.Error("Cannot set update status", slog.String("status", status.String()), slog.Any("error", err))
	}
}

// Delete removes the backing file and then the entry. The entry is kept if the file
// cannot be removed.
func (s *SubscriptionService) Delete(index int) error {
	if index < 0 {
		return common.ErrIndexOutOfRange
	}

	return s.rt.Settings().Write(nil, func(l *control.Lease, st *entity.Settings) error {
		if index >= len(st.Subscriptions) {
			return common.ErrIndexOutOfRange
		}

		item := st.Subscriptions[index]
		if err := s.store.Remove(item.Path); err != nil {
			s.log.Error("Cannot delete subscription file", slog.String("path", item.Path), slog.Any("error", err))

			return err
		}

		st.Subscriptions = slices.Delete(st.Subscriptions, index, index+1)
		if st.CurrentSub == item.Path {
			st.CurrentSub = ""
		}
		s.log.Info("Subscription deleted", slog.Int("index", index), slog.String("path", item.Path))

		return s.rt.MarkDirty(l)
	})
}

// Select sets the current profile. path is not checked against the subscription list.
func (s *SubscriptionService) Select(path string) error {
	return s.rt.Settings().Write(nil, func(l *control.Lease, st *entity.Settings) error {
		st.CurrentSub = path
		s.log.Info("Profile selected", slog.String("path", path))

		return s.rt.MarkDirty(l)
	})
}

func (s *SubscriptionService) List() ([]entity.Subscription, error) {
	snap, err := s.rt.SettingsSnapshot()
	if err != nil {
		return nil, err
	}

	if snap.Subscriptions == nil {
		return []entity.Subscription{}, nil
	}

	return snap.Subscriptions, nil
}

func (s *SubscriptionService) DownloadStatus() (entity.TaskStatus, error) {
	return s.rt.DownloadStatusValue()
}

func (s *SubscriptionService) UpdateStatus() (entity.TaskStatus, error) {
	return s.rt.UpdateStatusValue()
}
