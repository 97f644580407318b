package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jgivc/proxyctl/internal/common"
)

const (
	maxBodySize = 16 << 20
	userAgent   = "clash.meta"
)

type fetcher struct {
	cl  *http.Client
	log *slog.Logger
}

// NewFetcher returns a fetcher whose requests are bounded by timeout end to end.
func NewFetcher(timeout time.Duration, log *slog.Logger) *fetcher {
	return &fetcher{
		cl:  &http.Client{Timeout: timeout},
		log: log.With(slog.String("item", "Fetcher")),
	}
}

func (f *fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.cl.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d: %w", url, resp.StatusCode, common.ErrUnexpectedResponse)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("cannot read body of %s: %w", url, err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes: %w", url, maxBodySize, common.ErrUnexpectedResponse)
	}

	f.log.Debug("Fetched", slog.String("url", url), slog.Int("size", len(body)))

	return body, nil
}
