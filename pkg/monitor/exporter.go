package monitor

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	monitors   = map[string]*Monitor{}
	monitorsMu sync.RWMutex

	avgTimeGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "momentum_monitor_avg_time_ms",
		Help: "Average processing time in milliseconds for monitor",
	}, []string{"monitor"})

	successRateGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "momentum_monitor_success_rate",
		Help: "Success rate (0..1) for monitor",
	}, []string{"monitor"})

	countGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "momentum_monitor_count",
		Help: "Number of samples in sliding window for monitor",
	}, []string{"monitor"})

	// NegotiationsGauge tracks currently open negotiation connections.
	NegotiationsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "momentum_open_negotiations",
		Help: "Number of open matchmaking websocket connections",
	})

	// SearchingGauge tracks accounts currently counted as searching.
	SearchingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "momentum_searching_players",
		Help: "Approximate number of players in the searching state",
	})
)

func init() {
	prometheus.MustRegister(avgTimeGauge)
	prometheus.MustRegister(successRateGauge)
	prometheus.MustRegister(countGauge)
	prometheus.MustRegister(NegotiationsGauge)
	prometheus.MustRegister(SearchingGauge)
}

func registerMonitor(m *Monitor) {
	if m == nil {
		return
	}
	monitorsMu.Lock()
	defer monitorsMu.Unlock()
	monitors[m.name] = m
}

// CollectMetrics samples all registered monitors into the gauges.
func CollectMetrics() {
	monitorsMu.RLock()
	defer monitorsMu.RUnlock()
	for name, m := range monitors {
		avg, succ, cnt := m.GetStats()
		avgTimeGauge.WithLabelValues(name).Set(avg)
		successRateGauge.WithLabelValues(name).Set(succ)
		countGauge.WithLabelValues(name).Set(float64(cnt))
	}
}

// StartSampler runs the periodic gauge refresh in the background.
func StartSampler(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			CollectMetrics()
		}
	}()
}

// Handler returns the Prometheus metrics handler for mounting into gin.
func Handler() http.Handler {
	return promhttp.Handler()
}
