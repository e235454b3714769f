package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/ionutmarisca/School-Timetable-AI/internal/domain"
	"github.com/ionutmarisca/School-Timetable-AI/internal/ga"
	"github.com/ionutmarisca/School-Timetable-AI/internal/timetable"
)

// Observers 将每一代的统计转发给多个观察者
type Observers []ga.Observer

func (o Observers) OnGeneration(ctx context.Context, stats ga.GenerationStats) {
	for _, observer := range o {
		observer.OnGeneration(ctx, stats)
	}
}

// LogObserver 每隔 Every 代打印一次最好的适应度
type LogObserver struct {
	Logger *slog.Logger
	RunID  string
	Every  int
}

func (l *LogObserver) OnGeneration(ctx context.Context, stats ga.GenerationStats) {
	if l.Every > 1 && stats.Generation%l.Every != 0 {
		return
	}
	l.Logger.InfoContext(ctx, "完成一代",
		"run", l.RunID,
		"generation", stats.Generation,
		"bestFitness", stats.BestFitness,
		"populationFitness", stats.PopulationFitness,
		"meanFitness", stats.MeanFitness,
		"stdDevFitness", stats.StdDevFitness,
	)
}

func NewGenerationReport(runID string, stats ga.GenerationStats) domain.GenerationReport {
	return domain.GenerationReport{
		RunID:             runID,
		Generation:        stats.Generation,
		BestFitness:       stats.BestFitness,
		PopulationFitness: stats.PopulationFitness,
		MeanFitness:       stats.MeanFitness,
		StdDevFitness:     stats.StdDevFitness,
	}
}

// NewFinalReport 将最好的个体还原为课表并重新计算冲突数量
func NewFinalReport(runID string, result *ga.Result, t *timetable.Timetable, elapsed time.Duration) (*domain.FinalReport, error) {
	chromosome := result.Best.Chromosome()

	classes, err := t.CreateClasses(chromosome)
	if err != nil {
		return nil, err
	}

	return &domain.FinalReport{
		RunID:             runID,
		Generations:       result.Generations,
		Solved:            result.Solved,
		BestFitness:       result.Best.Fitness(),
		PopulationFitness: result.PopulationFitness,
		Clashes:           t.CalcClashes(classes),
		Classes:           classes,
		Elapsed:           elapsed,
	}, nil
}
