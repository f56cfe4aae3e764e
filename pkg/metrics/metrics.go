package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics содержит все метрики приложения
type Metrics struct {
	// Room метрики
	RoomsTotal      *prometheus.CounterVec
	RoomDuration    *prometheus.HistogramVec
	RoomsActive     prometheus.Gauge
	RoomSpectators  prometheus.Gauge

	// Matchmaking метрики
	QueueSize       *prometheus.GaugeVec
	QueueWaitTime   *prometheus.HistogramVec
	MatchesFormed   prometheus.Counter

	// Sandbox метрики
	SubmissionsTotal    *prometheus.CounterVec
	SubmissionDuration  *prometheus.HistogramVec
	SandboxRunsInFlight prometheus.Gauge
	SandboxTimeouts     *prometheus.CounterVec

	// AI problem loop метрики
	AIProblemsGenerated *prometheus.CounterVec
	AIGenerationLatency prometheus.Histogram

	// HTTP метрики
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database метрики
	DBQueryDuration *prometheus.HistogramVec
	DBConnections   *prometheus.GaugeVec

	// Cache метрики
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// New создаёт новый экземпляр метрик
func New() *Metrics {
	return &Metrics{
		// Room метрики
		RoomsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitbattle_rooms_total",
				Help: "Total number of rooms created, labeled by how they ended",
			},
			[]string{"outcome", "game_mode"},
		),
		RoomDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bitbattle_room_duration_seconds",
				Help:    "Room lifetime from creation to ENDED, in seconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"game_mode"},
		),
		RoomsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bitbattle_rooms_active",
				Help: "Number of rooms currently in LOBBY or ACTIVE state",
			},
		),
		RoomSpectators: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bitbattle_room_spectators",
				Help: "Total number of connected spectators across all rooms",
			},
		),

		// Matchmaking метрики
		QueueSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bitbattle_queue_size",
				Help: "Current matchmaking queue size",
			},
			[]string{"difficulty", "game_mode"},
		),
		QueueWaitTime: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bitbattle_queue_wait_time_seconds",
				Help:    "Time spent waiting in the matchmaking queue before pairing",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"game_mode"},
		),
		MatchesFormed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bitbattle_matches_formed_total",
				Help: "Total number of matches formed by the pairing pass",
			},
		),

		// Sandbox метрики
		SubmissionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitbattle_submissions_total",
				Help: "Total number of code submissions processed",
			},
			[]string{"language", "outcome"},
		),
		SubmissionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bitbattle_submission_duration_seconds",
				Help:    "Total time to execute a submission against all test cases",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"language"},
		),
		SandboxRunsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bitbattle_sandbox_runs_in_flight",
				Help: "Number of sandbox containers currently executing",
			},
		),
		SandboxTimeouts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitbattle_sandbox_timeouts_total",
				Help: "Total number of sandbox executions killed for exceeding the time limit",
			},
			[]string{"language"},
		),

		// AI problem loop метрики
		AIProblemsGenerated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitbattle_ai_problems_generated_total",
				Help: "Total number of AI-generated problems, labeled by final status",
			},
			[]string{"difficulty", "status"},
		),
		AIGenerationLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bitbattle_ai_generation_latency_seconds",
				Help:    "Latency of a single LLM problem generation call",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),

		// HTTP метрики
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitbattle_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bitbattle_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bitbattle_http_requests_in_flight",
				Help: "Number of HTTP requests currently being served",
			},
		),

		// Database метрики
		DBQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bitbattle_db_query_duration_seconds",
				Help:    "Database query duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
			},
			[]string{"query_type"},
		),
		DBConnections: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bitbattle_db_connections",
				Help: "Number of database connections",
			},
			[]string{"state"}, // "in_use", "idle", "open"
		),

		// Cache метрики
		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitbattle_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitbattle_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),
	}
}

// RecordRoomEnded записывает завершение комнаты
func (m *Metrics) RecordRoomEnded(gameMode, outcome string, duration time.Duration) {
	m.RoomsTotal.WithLabelValues(outcome, gameMode).Inc()
	m.RoomDuration.WithLabelValues(gameMode).Observe(duration.Seconds())
}

// RecordSubmission записывает обработанную отправку решения
func (m *Metrics) RecordSubmission(language, outcome string, duration time.Duration) {
	m.SubmissionsTotal.WithLabelValues(language, outcome).Inc()
	m.SubmissionDuration.WithLabelValues(language).Observe(duration.Seconds())
}

// RecordSandboxTimeout записывает убийство контейнера по таймауту
func (m *Metrics) RecordSandboxTimeout(language string) {
	m.SandboxTimeouts.WithLabelValues(language).Inc()
}

// RecordAIProblemGenerated записывает итоговый статус сгенерированной задачи
func (m *Metrics) RecordAIProblemGenerated(difficulty, status string) {
	m.AIProblemsGenerated.WithLabelValues(difficulty, status).Inc()
}

// RecordHTTPRequest записывает HTTP запрос
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDBQuery записывает запрос к БД
func (m *Metrics) RecordDBQuery(queryType string, duration time.Duration) {
	m.DBQueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
}

// RecordCacheHit записывает попадание в кэш
func (m *Metrics) RecordCacheHit(cacheType string) {
	m.CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss записывает промах кэша
func (m *Metrics) RecordCacheMiss(cacheType string) {
	m.CacheMisses.WithLabelValues(cacheType).Inc()
}

// SetQueueSize устанавливает размер очереди матчмейкинга
func (m *Metrics) SetQueueSize(difficulty, gameMode string, size int) {
	m.QueueSize.WithLabelValues(difficulty, gameMode).Set(float64(size))
}

// SetDBConnections устанавливает количество соединений с БД
func (m *Metrics) SetDBConnections(inUse, idle, open int) {
	m.DBConnections.WithLabelValues("in_use").Set(float64(inUse))
	m.DBConnections.WithLabelValues("idle").Set(float64(idle))
	m.DBConnections.WithLabelValues("open").Set(float64(open))
}
