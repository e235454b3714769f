package ga

import (
	"context"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// EvaluationStrategy 计算种群中每个个体的适应度，并在全部完成后写入种群总适应度
type EvaluationStrategy interface {
	Evaluate(ctx context.Context, pop *Population, ev Evaluator) error
}

// LocalStrategy 在当前进程内用有界的 goroutine 池并行计算适应度
type LocalStrategy struct {
	maxGoroutines int
}

// NewLocalStrategy maxGoroutines <= 0 时使用 CPU 核数
func NewLocalStrategy(maxGoroutines int) *LocalStrategy {
	if maxGoroutines <= 0 {
		maxGoroutines = runtime.NumCPU()
	}
	return &LocalStrategy{maxGoroutines: maxGoroutines}
}

func (s *LocalStrategy) Evaluate(ctx context.Context, pop *Population, ev Evaluator) error {
	p := pool.New().WithMaxGoroutines(s.maxGoroutines).WithContext(ctx).WithCancelOnError()

	// 每个任务只写自己的个体，ev 只读
	for _, ind := range pop.individuals {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := CalcFitness(ind, ev)
			return err
		})
	}

	if err := p.Wait(); err != nil {
		return err
	}

	// 等所有任务结束后再按槽位顺序求和
	populationFitness := 0.0
	for _, ind := range pop.individuals {
		populationFitness += ind.Fitness()
	}
	pop.SetPopulationFitness(populationFitness)

	return nil
}
