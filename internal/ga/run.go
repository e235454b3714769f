package ga

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// GenerationStats 是每一代评估完成后的统计
type GenerationStats struct {
	Generation        int
	BestFitness       float64
	PopulationFitness float64
	MeanFitness       float64
	StdDevFitness     float64
}

// Observer 接收每一代的统计，实现不应该阻塞太久
type Observer interface {
	OnGeneration(ctx context.Context, stats GenerationStats)
}

type RunOptions struct {
	Evaluator      Evaluator
	Strategy       EvaluationStrategy
	MaxGenerations int
	Observer       Observer // 可以为 nil
}

// Result 没有找到无冲突的课表时 Solved 为 false，这不是错误
type Result struct {
	Best              *Individual
	Generations       int
	PopulationFitness float64
	Solved            bool
}

func NewGenerationStats(generation int, pop *Population) GenerationStats {
	values := pop.FitnessValues()

	mean, std := 0.0, 0.0
	switch {
	case len(values) > 1:
		mean, std = stat.MeanStdDev(values, nil)
	case len(values) == 1:
		mean = values[0]
	}

	best := 0.0
	if ind := pop.Fittest(0); ind != nil {
		best = ind.Fitness()
	}

	return GenerationStats{
		Generation:        generation,
		BestFitness:       best,
		PopulationFitness: pop.PopulationFitness(),
		MeanFitness:       mean,
		StdDevFitness:     std,
	}
}

// Run 执行完整的进化过程，直到找到无冲突的课表或超过最大迭代次数
// ctx 只在两代之间检查
func (g *GeneticAlgorithm) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if opts.Evaluator == nil || opts.Strategy == nil {
		return nil, errors.New("缺少评估器或评估策略")
	}
	if opts.MaxGenerations < 0 {
		return nil, fmt.Errorf("%w: 最大迭代次数不能为负数", ErrInvalidConfig)
	}

	pop := g.InitPopulation(opts.Evaluator)
	if err := opts.Strategy.Evaluate(ctx, pop, opts.Evaluator); err != nil {
		return nil, err
	}

	generation := 1

	for !g.IsTerminationConditionMet(generation, opts.MaxGenerations) && !g.IsSolved(pop) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if opts.Observer != nil {
			opts.Observer.OnGeneration(ctx, NewGenerationStats(generation, pop))
		}

		pop = g.CrossoverPopulation(pop)
		pop = g.MutatePopulation(pop, opts.Evaluator)

		if err := opts.Strategy.Evaluate(ctx, pop, opts.Evaluator); err != nil {
			return nil, fmt.Errorf("第 %d 代评估失败: %w", generation, err)
		}

		generation++
	}

	return &Result{
		Best:              pop.Fittest(0),
		Generations:       generation,
		PopulationFitness: pop.PopulationFitness(),
		Solved:            g.IsSolved(pop),
	}, nil
}
