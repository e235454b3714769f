package ga

import (
	"errors"
	"fmt"
	"math/rand"
)

var ErrNegativeClashCount = errors.New("冲突数量不能为负数")

// GeneticAlgorithm 持有遗传算子，只在单个 goroutine 中使用
type GeneticAlgorithm struct {
	cfg Config
	rng *rand.Rand
}

func New(cfg Config, rng *rand.Rand) (*GeneticAlgorithm, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: 缺少随机数源", ErrInvalidConfig)
	}

	return &GeneticAlgorithm{
		cfg: cfg,
		rng: rng,
	}, nil
}

func (g *GeneticAlgorithm) Config() Config {
	return g.cfg
}

// 交叉时排名 [0, ElitismCount) 的个体为精英，变异时排名 [0, ElitismCount] 的个体不变异，
// 两者相差一个个体，保持原有的行为
func (g *GeneticAlgorithm) crossoverEliteCount() int {
	return g.cfg.ElitismCount
}

func (g *GeneticAlgorithm) mutationEliteCount() int {
	return g.cfg.ElitismCount + 1
}

func (g *GeneticAlgorithm) InitPopulation(ev Evaluator) *Population {
	return NewRandomPopulation(g.cfg.PopulationSize, ev, g.rng)
}

// IsTerminationConditionMet 迭代次数超过上限时为 true
func (g *GeneticAlgorithm) IsTerminationConditionMet(generations int, maxGenerations int) bool {
	return generations > maxGenerations
}

// IsSolved 最好的个体没有冲突时为 true
// 冲突为 0 时 1/(0+1) 恰好等于 1.0，所以这里可以直接比较
func (g *GeneticAlgorithm) IsSolved(pop *Population) bool {
	best := pop.Fittest(0)
	return best != nil && best.Fitness() == 1.0
}

// CalcFitness 计算并写入个体的适应度: 1 / (clashes + 1)
func CalcFitness(ind *Individual, ev Evaluator) (float64, error) {
	clashes, err := ev.ClashCount(ind.chromosome)
	if err != nil {
		return 0, err
	}
	if clashes < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeClashCount, clashes)
	}

	fitness := 1 / float64(clashes+1)
	ind.SetFitness(fitness)

	return fitness, nil
}

// SelectParent 锦标赛选择：打乱种群后取前 TournamentSize 个个体，返回其中最好的一个
// 种群比 TournamentSize 小时整个种群参加锦标赛，空种群返回 nil
func (g *GeneticAlgorithm) SelectParent(pop *Population) *Individual {
	size := min(g.cfg.TournamentSize, pop.Size())
	tournament := NewPopulation(size)

	pop.Shuffle(g.rng)
	for i := 0; i < size; i++ {
		_ = tournament.SetIndividual(i, pop.individuals[i])
	}

	return tournament.Fittest(0)
}

// CrossoverPopulation 均匀交叉，新种群的槽位顺序为旧种群的排名顺序
func (g *GeneticAlgorithm) CrossoverPopulation(pop *Population) *Population {
	newPop := NewPopulation(pop.Size())

	for i := 0; i < pop.Size(); i++ {
		parent1 := pop.Fittest(i)

		// 精英直接保留
		if i < g.crossoverEliteCount() || g.cfg.CrossoverRate <= g.rng.Float64() {
			_ = newPop.SetIndividual(i, parent1.Clone())
			continue
		}

		parent2 := g.SelectParent(pop)
		offspring := NewIdentityIndividual(parent1.ChromosomeLength())

		// 每个基因各有一半的概率来自两个父本
		for geneIndex := 0; geneIndex < parent1.ChromosomeLength(); geneIndex++ {
			if g.rng.Float64() < 0.5 {
				offspring.chromosome[geneIndex] = parent1.chromosome[geneIndex]
			} else {
				offspring.chromosome[geneIndex] = parent2.chromosome[geneIndex]
			}
		}

		_ = newPop.SetIndividual(i, offspring)
	}

	return newPop
}

// MutatePopulation 对非精英个体的每个基因以 MutationRate 的概率替换为一个新随机个体的对应基因
func (g *GeneticAlgorithm) MutatePopulation(pop *Population, ev Evaluator) *Population {
	newPop := NewPopulation(pop.Size())

	for i := 0; i < pop.Size(); i++ {
		ind := pop.Fittest(i).Clone()

		if i >= g.mutationEliteCount() {
			// 每个被变异的个体都使用一个完整的新随机个体作为基因来源
			donor := NewRandomIndividual(ev, g.rng)
			mutated := false

			for geneIndex := 0; geneIndex < ind.ChromosomeLength(); geneIndex++ {
				if g.cfg.MutationRate > g.rng.Float64() {
					ind.chromosome[geneIndex] = donor.chromosome[geneIndex]
					mutated = true
				}
			}

			if mutated {
				ind.SetFitness(Unevaluated)
			}
		}

		_ = newPop.SetIndividual(i, ind)
	}

	return newPop
}
