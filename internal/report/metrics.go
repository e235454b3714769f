package report

import (
	"context"
	"strconv"

	"github.com/ionutmarisca/School-Timetable-AI/internal/domain"
	"github.com/ionutmarisca/School-Timetable-AI/internal/ga"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	generation        prometheus.Gauge
	bestFitness       prometheus.Gauge
	populationFitness prometheus.Gauge
	runs              *prometheus.CounterVec
	runDuration       prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "timetable",
			Name:      "generation",
			Help:      "Current generation of the running search.",
		}),
		bestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "timetable",
			Name:      "best_fitness",
			Help:      "Best fitness of the current generation.",
		}),
		populationFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "timetable",
			Name:      "population_fitness",
			Help:      "Sum of all fitness values of the current generation.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timetable",
			Name:      "runs_total",
			Help:      "Finished searches by whether a clash-free timetable was found.",
		}, []string{"solved"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "timetable",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a finished search.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}

	for _, c := range []prometheus.Collector{m.generation, m.bestFitness, m.populationFitness, m.runs, m.runDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) OnGeneration(_ context.Context, stats ga.GenerationStats) {
	m.generation.Set(float64(stats.Generation))
	m.bestFitness.Set(stats.BestFitness)
	m.populationFitness.Set(stats.PopulationFitness)
}

func (m *Metrics) ObserveFinal(report *domain.FinalReport) {
	m.generation.Set(float64(report.Generations))
	m.bestFitness.Set(report.BestFitness)
	m.populationFitness.Set(report.PopulationFitness)
	m.runs.WithLabelValues(strconv.FormatBool(report.Solved)).Inc()
	m.runDuration.Observe(report.Elapsed.Seconds())
}
