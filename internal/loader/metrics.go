package loader

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Метрики общие для всех загрузчиков процесса
var (
	slabsRequested = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "world_loader",
		Name:      "slabs_requested_total",
		Help:      "Слэбы, принятые к загрузке (включая пустые заглушки).",
	})
	slabsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "world_loader",
		Name:      "slabs_rejected_total",
		Help:      "Запросы слэбов, отклонённые из-за переполнения очередей или ограничения частоты.",
	})
	slabPhases = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "world_loader",
		Name:      "slab_phases_total",
		Help:      "Слэбы, прошедшие стадию конвейера загрузки.",
	}, []string{"phase"})
	slabLoadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "world_loader",
		Name:      "slab_load_duration_seconds",
		Help:      "Время от начала задачи загрузки до стадии Done.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
	terrainUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "world_loader",
		Name:      "terrain_updates_total",
		Help:      "Изменения рельефа по результату применения.",
	}, []string{"result"})
	loadErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "world_loader",
		Name:      "terrain_errors_total",
		Help:      "Ошибки источника рельефа.",
	})
	slabsLoading = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "world_loader",
		Name:      "tasks_inflight",
		Help:      "Текущее число задач загрузки и обновления слэбов.",
	})
)

func init() {
	prometheus.MustRegister(slabsRequested, slabsRejected, slabPhases, slabLoadDuration,
		terrainUpdates, loadErrors, slabsLoading)
}

const (
	phaseTerrain   = "terrain"
	phaseIsolation = "isolation"
	phaseDone      = "done"
	phaseStale     = "superseded"
)
