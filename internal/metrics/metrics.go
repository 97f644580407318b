package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SubscriptionDownloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "proxyctl",
			Name:      "subscription_downloads_total",
			Help:      "Single subscription downloads by final status.",
		},
		[]string{"status"},
	)

	SubscriptionUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "proxyctl",
			Name:      "subscription_updates_total",
			Help:      "Per-subscription refresh outcomes of bulk updates.",
		},
		[]string{"result"},
	)

	EngineTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "proxyctl",
			Name:      "engine_transitions_total",
			Help:      "Proxy engine start/stop attempts.",
		},
		[]string{"action", "result"},
	)

	SettingsFlushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "proxyctl",
			Name:      "settings_flushes_total",
			Help:      "Settings persistence attempts.",
		},
		[]string{"result"},
	)
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

func Result(err error) string {
	if err != nil {
		return ResultError
	}

	return ResultOK
}

// Register registers the proxyctl metrics into reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(SubscriptionDownloads, SubscriptionUpdates, EngineTransitions, SettingsFlushes)
}
