package pathfind

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	searches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "world_pathfind",
		Name:      "searches_total",
		Help:      "Поиски пути по результату.",
	}, []string{"result"})
	searchRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "world_pathfind",
		Name:      "retries_total",
		Help:      "Повторы поиска из-за изменений мира.",
	})
	searchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "world_pathfind",
		Name:      "search_duration_seconds",
		Help:      "Время поиска пути, включая ожидание слэбов.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	})
	routeLength = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "world_pathfind",
		Name:      "route_areas",
		Help:      "Число зон в найденных маршрутах.",
		Buckets:   prometheus.LinearBuckets(1, 4, 12),
	})
)

func init() {
	prometheus.MustRegister(searches, searchRetries, searchDuration, routeLength)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "found"
	case errors.Is(err, ErrNoPath):
		return "no_path"
	case errors.Is(err, ErrWorldChanged):
		return "world_changed"
	default:
		return "error"
	}
}
