package httphandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jgivc/proxyctl/internal/common"
	"github.com/jgivc/proxyctl/internal/handler/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxBodySize = 1 << 20
)

type Dispatcher interface {
	Call(method string, params []rpc.Primitive) ([]rpc.Primitive, error)
}

// NewRouter exposes the dispatcher as POST /v1/call/{method} with a JSON array body.
func NewRouter(d Dispatcher, gatherer prometheus.Gatherer, log *slog.Logger) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Error("Cannot write healthz response", slog.Any("error", err))
		}
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	api.Handle("/call/{method}", NewCallHandler(d, log)).Methods(http.MethodPost)

	return r
}

func NewCallHandler(d Dispatcher, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "CallHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		method := mux.Vars(r)["method"]

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			http.Error(w, "Cannot read body", http.StatusBadRequest)

			return
		}

		var params []rpc.Primitive
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &params); err != nil {
				log.Debug("Bad params", slog.String("method", method), slog.Any("error", err))
				http.Error(w, "Params must be a JSON array", http.StatusBadRequest)

				return
			}
		}

		result, err := d.Call(method, params)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrUnknownMethod):
				http.Error(w, "Unknown method", http.StatusNotFound)
			default:
				http.Error(w, "Cannot call method", http.StatusInternalServerError)
			}

			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			log.Error("Cannot write response", slog.String("method", method), slog.Any("error", err))
		}
	}
}
