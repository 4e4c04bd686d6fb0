// Package metrics exposes Prometheus counters and gauges for the LINE
// master/simulator daemons: frame traffic, diagnostic errors, schedule
// activity and virtual-bus contention.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/kstaniek/line-bus/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters and gauges.
var (
	FramesTx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "line_frames_tx_total",
		Help: "Total frames written to the LINE transport.",
	})
	FramesRx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "line_frames_rx_total",
		Help: "Total response frames successfully received from the LINE transport.",
	})
	TransportErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "line_transport_errors_total",
		Help: "Transport-level errors by kind (timeout, checksum, header, incomplete, self_echo, write).",
	}, []string{"kind"})
	BusContention = promauto.NewCounter(prometheus.CounterOpts{
		Name: "line_virtual_bus_contention_total",
		Help: "Total requests with more than one virtual-bus responder.",
	})
	ScheduleEntriesFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "line_schedule_entries_fired_total",
		Help: "Total schedule entries performed, labeled by schedule name.",
	}, []string{"schedule"})
	ScheduleNoOpSlots = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "line_schedule_noop_slots_total",
		Help: "Total priority-aging slots that elapsed without any entry crossing its threshold.",
	}, []string{"schedule"})
	UserRequestDecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "line_user_request_decode_errors_total",
		Help: "Total responses that failed to decode against their network.Request definition.",
	})
	NodeStatusUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "line_node_status_updates_total",
		Help: "Total diagnostic node-status property updates, labeled by property.",
	}, []string{"property"})
	SimulatedPeripherals = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "line_simulated_peripherals",
		Help: "Current number of peripherals attached to the virtual bus.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrTimeout    = "timeout"
	ErrChecksum   = "checksum"
	ErrHeader     = "header"
	ErrIncomplete = "incomplete"
	ErrSelfEcho   = "self_echo"
	ErrWrite      = "write"
)

// StartHTTP serves Prometheus metrics at /metrics and readiness at /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters so daemons can log a cheap periodic summary
// without scraping Prometheus in-process.
var (
	localFramesTx      uint64
	localFramesRx      uint64
	localErrors        uint64
	localContention    uint64
	localDecodeErrors  uint64
	localPeripherals   int64
)

// Snapshot is a cheap copy of the local counters.
type Snapshot struct {
	FramesTx      uint64
	FramesRx      uint64
	Errors        uint64
	Contention    uint64
	DecodeErrors  uint64
	Peripherals   int64
}

func Snap() Snapshot {
	return Snapshot{
		FramesTx:     atomic.LoadUint64(&localFramesTx),
		FramesRx:     atomic.LoadUint64(&localFramesRx),
		Errors:       atomic.LoadUint64(&localErrors),
		Contention:   atomic.LoadUint64(&localContention),
		DecodeErrors: atomic.LoadUint64(&localDecodeErrors),
		Peripherals:  atomic.LoadInt64(&localPeripherals),
	}
}

func IncFramesTx() {
	FramesTx.Inc()
	atomic.AddUint64(&localFramesTx, 1)
}

func IncFramesRx() {
	FramesRx.Inc()
	atomic.AddUint64(&localFramesRx, 1)
}

func IncTransportError(kind string) {
	TransportErrors.WithLabelValues(kind).Inc()
	atomic.AddUint64(&localErrors, 1)
}

func IncBusContention() {
	BusContention.Inc()
	atomic.AddUint64(&localContention, 1)
}

func IncScheduleEntryFired(schedule string) {
	ScheduleEntriesFired.WithLabelValues(schedule).Inc()
}

func IncScheduleNoOpSlot(schedule string) {
	ScheduleNoOpSlots.WithLabelValues(schedule).Inc()
}

func IncUserRequestDecodeError() {
	UserRequestDecodeErrors.Inc()
	atomic.AddUint64(&localDecodeErrors, 1)
}

func IncNodeStatusUpdate(property string) {
	NodeStatusUpdates.WithLabelValues(property).Inc()
}

func SetSimulatedPeripherals(n int) {
	SimulatedPeripherals.Set(float64(n))
	atomic.StoreInt64(&localPeripherals, int64(n))
}

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, kind := range []string{ErrTimeout, ErrChecksum, ErrHeader, ErrIncomplete, ErrSelfEcho, ErrWrite} {
		TransportErrors.WithLabelValues(kind).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// Ready is a concise alias used at call sites.
func Ready() bool { return IsReady() }
