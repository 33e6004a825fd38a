package monitor

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wfunc/minesweeper/logger"
)

type Metrics struct {
	OnlinePlayers    prometheus.Gauge
	ActiveRooms      prometheus.Gauge
	MessagesReceived prometheus.Counter
	MessageLatency   prometheus.Histogram
	GamesFinished    *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of online players",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of active rooms",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		GamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Finished games by outcome",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.OnlinePlayers,
		m.ActiveRooms,
		m.MessagesReceived,
		m.MessageLatency,
		m.GamesFinished,
	)

	return m
}

type Monitor struct {
	metrics      *Metrics
	registry     *prometheus.Registry
	server       *http.Server
	startTime    time.Time
	requestCount int64
	games        map[string]int64
	mutex        sync.Mutex
}

// NewMonitor 每个 Monitor 使用独立的 registry
func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Monitor{
		metrics:   NewMetrics(namespace, reg),
		registry:  reg,
		startTime: time.Now(),
		games:     make(map[string]int64),
	}
}

// expvar 是进程级的, 只能发布一次
var (
	publishOnce sync.Once
	current     struct {
		sync.RWMutex
		m *Monitor
	}
)

func (m *Monitor) publish() {
	current.Lock()
	current.m = m
	current.Unlock()

	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			if mon := active(); mon != nil {
				return time.Since(mon.startTime).Seconds()
			}
			return 0
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			if mon := active(); mon != nil {
				return mon.RequestCount()
			}
			return 0
		}))
		expvar.Publish("games", expvar.Func(func() interface{} {
			if mon := active(); mon != nil {
				return mon.GamesByOutcome()
			}
			return nil
		}))
	})
}

func active() *Monitor {
	current.RLock()
	defer current.RUnlock()
	return current.m
}

// Handler serves /metrics and /debug/vars.
func (m *Monitor) Handler() http.Handler {
	m.publish()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	return mux
}

func (m *Monitor) StartServer(addr string) {
	m.server = &http.Server{Addr: addr, Handler: m.Handler()}
	go func() {
		logger.Log.Infof("Metrics server listening on %s", addr)
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Errorf("Metrics server error: %v", err)
		}
	}()
}

func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

// GameFinished counts a settled game under its outcome label.
func (m *Monitor) GameFinished(outcome string) {
	m.metrics.GamesFinished.WithLabelValues(outcome).Inc()
	m.mutex.Lock()
	m.games[outcome]++
	m.mutex.Unlock()
}

func (m *Monitor) RequestCount() int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.requestCount
}

// GamesByOutcome returns a copy of the finished-game counts.
func (m *Monitor) GamesByOutcome() map[string]int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	out := make(map[string]int64, len(m.games))
	for k, v := range m.games {
		out[k] = v
	}
	return out
}

// String 用于日志
func (m *Monitor) String() string {
	b, _ := json.Marshal(m.GamesByOutcome())
	return fmt.Sprintf("requests=%d games=%s", m.RequestCount(), b)
}
