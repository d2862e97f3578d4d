// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/careerplay/ccm/events"
)

type Metrics struct {
	OnlinePlayers       prometheus.Gauge
	ActiveRooms         prometheus.Gauge
	RoomsInGame         prometheus.Gauge
	GamesCompleted      prometheus.Counter
	GamesCancelled      prometheus.Counter
	RoundsScored        prometheus.Counter
	SubmissionsReceived prometheus.Counter
	RoundScores         prometheus.Histogram
	MessageLatency      prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected human players",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of perpetual rooms",
		}),
		RoomsInGame: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_in_game",
			Help:      "Rooms currently running a game session",
		}),
		GamesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_completed_total",
			Help:      "Total completed game sessions",
		}),
		GamesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_cancelled_total",
			Help:      "Total cancelled game sessions",
		}),
		RoundsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_scored_total",
			Help:      "Total scored rounds across all rooms",
		}),
		SubmissionsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_received_total",
			Help:      "Total participant submissions received",
		}),
		RoundScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_final_score",
			Help:      "Distribution of per-round final scores",
			Buckets:   prometheus.LinearBuckets(0, 20, 7),
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Gateway message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	prometheus.MustRegister(
		m.OnlinePlayers,
		m.ActiveRooms,
		m.RoomsInGame,
		m.GamesCompleted,
		m.GamesCancelled,
		m.RoundsScored,
		m.SubmissionsReceived,
		m.RoundScores,
		m.MessageLatency,
	)
	return m
}

type Monitor struct {
	metrics     *Metrics
	startTime   time.Time
	roomsInGame map[string]bool
	mutex       sync.Mutex
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		metrics:     NewMetrics(namespace),
		startTime:   time.Now(),
		roomsInGame: make(map[string]bool),
	}
}

func (m *Monitor) StartServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())

	expvar.Publish("uptime_seconds", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))

	go http.ListenAndServe(addr, nil)
}

// ConsumeEvents keeps gauges and counters current from the engine bus.
func (m *Monitor) ConsumeEvents(ch <-chan events.Event) {
	for ev := range ch {
		m.HandleEvent(ev)
	}
}

func (m *Monitor) HandleEvent(ev events.Event) {
	switch ev.Type {
	case events.TypeRoundScored:
		m.metrics.RoundsScored.Inc()
		if ev.RoundScored != nil {
			for _, play := range ev.RoundScored.Plays {
				m.metrics.RoundScores.Observe(float64(play.FinalScore))
			}
		}
	case events.TypeGameCompleted:
		m.metrics.GamesCompleted.Inc()
	case events.TypeGameCancelled:
		m.metrics.GamesCancelled.Inc()
	case events.TypeRoomStatusChanged:
		if ev.RoomStatus == nil {
			return
		}
		m.mutex.Lock()
		m.roomsInGame[ev.RoomID] = ev.RoomStatus.Status == "active"
		n := 0
		for _, active := range m.roomsInGame {
			if active {
				n++
			}
		}
		m.mutex.Unlock()
		m.metrics.RoomsInGame.Set(float64(n))
	}
}

func (m *Monitor) IncOnlinePlayers() { m.metrics.OnlinePlayers.Inc() }

func (m *Monitor) DecOnlinePlayers() { m.metrics.OnlinePlayers.Dec() }

func (m *Monitor) SetActiveRooms(count int) { m.metrics.ActiveRooms.Set(float64(count)) }

func (m *Monitor) IncSubmissionsReceived() { m.metrics.SubmissionsReceived.Inc() }

func (m *Monitor) ObserveMessageLatency(d time.Duration) {
	m.metrics.MessageLatency.Observe(d.Seconds())
}
