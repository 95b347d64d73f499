// Package observability содержит Prometheus-метрики сервера и HTTP-эндпоинт /metrics.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/bedrock-server/internal/logging"
)

const namespace = "bedrock"

// Metrics - счётчики протокола, мира и кэша. Nil *Metrics допустим:
// все методы тогда ничего не делают.
type Metrics struct {
	packetsDecoded *prometheus.CounterVec
	packetsEncoded *prometheus.CounterVec
	decodeFailures *prometheus.CounterVec
	batchBytesIn   prometheus.Counter
	batchBytesOut  prometheus.Counter
	sessions       prometheus.Gauge

	chunkLoads         prometheus.Counter
	chunkSaves         prometheus.Counter
	chunkGenerations   prometheus.Counter
	chunkRegenerations prometheus.Counter
	chunksResident     prometheus.Gauge

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		packetsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_decoded_total",
			Help:      "Декодированные пакеты по опкоду.",
		}, []string{"packet"}),
		packetsEncoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_encoded_total",
			Help:      "Отправленные пакеты по опкоду.",
		}, []string{"packet"}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Ошибки декодирования по причине.",
		}, []string{"reason"}),
		batchBytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_bytes_in_total",
			Help:      "Принятые байты батчей до распаковки.",
		}),
		batchBytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_bytes_out_total",
			Help:      "Отправленные байты батчей после сжатия.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Количество активных сессий.",
		}),
		chunkLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_loads_total",
			Help:      "Чанки, загруженные из хранилища.",
		}),
		chunkSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_saves_total",
			Help:      "Чанки, записанные в хранилище.",
		}),
		chunkGenerations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_generations_total",
			Help:      "Чанки, сгенерированные впервые.",
		}),
		chunkRegenerations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_regenerations_total",
			Help:      "Чанки, пересозданные после ошибки загрузки.",
		}),
		chunksResident: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunks_resident",
			Help:      "Чанки в памяти.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_cache_hits_total",
			Help:      "Попадания в кэш сетевых payload чанков.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_cache_misses_total",
			Help:      "Промахи кэша сетевых payload чанков.",
		}),
	}

	reg.MustRegister(
		m.packetsDecoded, m.packetsEncoded, m.decodeFailures,
		m.batchBytesIn, m.batchBytesOut, m.sessions,
		m.chunkLoads, m.chunkSaves, m.chunkGenerations, m.chunkRegenerations, m.chunksResident,
		m.cacheHits, m.cacheMisses,
	)
	return m
}

// PacketDecoded учитывает принятый пакет.
func (m *Metrics) PacketDecoded(name string) {
	if m != nil {
		m.packetsDecoded.WithLabelValues(name).Inc()
	}
}

// PacketEncoded учитывает отправленный пакет.
func (m *Metrics) PacketEncoded(name string) {
	if m != nil {
		m.packetsEncoded.WithLabelValues(name).Inc()
	}
}

// DecodeFailure учитывает ошибку декодирования.
func (m *Metrics) DecodeFailure(reason string) {
	if m != nil {
		m.decodeFailures.WithLabelValues(reason).Inc()
	}
}

// BatchIn учитывает байты принятого батча.
func (m *Metrics) BatchIn(n int) {
	if m != nil {
		m.batchBytesIn.Add(float64(n))
	}
}

// BatchOut учитывает байты отправленного батча.
func (m *Metrics) BatchOut(n int) {
	if m != nil {
		m.batchBytesOut.Add(float64(n))
	}
}

// SessionOpened увеличивает счётчик активных сессий.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.sessions.Inc()
	}
}

// SessionClosed уменьшает счётчик активных сессий.
func (m *Metrics) SessionClosed() {
	if m != nil {
		m.sessions.Dec()
	}
}

// ChunkLoaded учитывает загрузку чанка.
func (m *Metrics) ChunkLoaded() {
	if m != nil {
		m.chunkLoads.Inc()
	}
}

// ChunkSaved учитывает запись чанка.
func (m *Metrics) ChunkSaved() {
	if m != nil {
		m.chunkSaves.Inc()
	}
}

// ChunkGenerated учитывает генерацию нового чанка.
func (m *Metrics) ChunkGenerated() {
	if m != nil {
		m.chunkGenerations.Inc()
	}
}

// ChunkRegenerated учитывает пересоздание испорченного чанка.
func (m *Metrics) ChunkRegenerated() {
	if m != nil {
		m.chunkRegenerations.Inc()
	}
}

// SetResidentChunks обновляет количество чанков в памяти.
func (m *Metrics) SetResidentChunks(n int) {
	if m != nil {
		m.chunksResident.Set(float64(n))
	}
}

// CacheHit учитывает попадание в кэш.
func (m *Metrics) CacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

// CacheMiss учитывает промах кэша.
func (m *Metrics) CacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

// StartHTTP запускает эндпоинт /metrics на addr в отдельной горутине.
func StartHTTP(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
	return srv
}
