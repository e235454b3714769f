package ga

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sort"
)

var ErrIndexOutOfRange = errors.New("种群下标越界")

// Population 是一代的全部个体
// fittest 是按适应度降序的视图，在个体或适应度发生变化后需要重新计算
// rankedFitness 记录排序时每个排名上的适应度，用来发现直接对个体调用 SetFitness 的情况
type Population struct {
	individuals       []*Individual
	populationFitness float64

	fittest       []*Individual
	rankedFitness []float64
	dirty         bool
}

// NewPopulation 创建 size 个空的占位个体
func NewPopulation(size int) *Population {
	individuals := make([]*Individual, size)
	for i := range individuals {
		individuals[i] = NewIdentityIndividual(0)
	}

	return &Population{
		individuals:       individuals,
		populationFitness: Unevaluated,
		dirty:             true,
	}
}

func NewRandomPopulation(size int, ev Evaluator, rng *rand.Rand) *Population {
	individuals := make([]*Individual, size)
	for i := range individuals {
		individuals[i] = NewRandomIndividual(ev, rng)
	}

	return &Population{
		individuals:       individuals,
		populationFitness: Unevaluated,
		dirty:             true,
	}
}

func (pop *Population) Size() int {
	return len(pop.individuals)
}

// Individuals 返回当前槽位顺序的个体切片的拷贝，个体本身是共享的
func (pop *Population) Individuals() []*Individual {
	return slices.Clone(pop.individuals)
}

func (pop *Population) Individual(index int) (*Individual, error) {
	if index < 0 || index >= len(pop.individuals) {
		return nil, fmt.Errorf("%w: %d 不在 [0, %d) 中", ErrIndexOutOfRange, index, len(pop.individuals))
	}
	return pop.individuals[index], nil
}

func (pop *Population) SetIndividual(index int, ind *Individual) error {
	if index < 0 || index >= len(pop.individuals) {
		return fmt.Errorf("%w: %d 不在 [0, %d) 中", ErrIndexOutOfRange, index, len(pop.individuals))
	}
	pop.individuals[index] = ind
	pop.dirty = true
	return nil
}

// Fittest 返回适应度排名第 rank 的个体（0 为最好），适应度相同时按槽位顺序
// rank 越界时返回 nil
func (pop *Population) Fittest(rank int) *Individual {
	if rank < 0 || rank >= len(pop.individuals) {
		return nil
	}

	if pop.dirty || pop.fitnessChanged() {
		pop.fittest = slices.Clone(pop.individuals)
		sort.SliceStable(pop.fittest, func(i, j int) bool {
			return pop.fittest[i].Fitness() > pop.fittest[j].Fitness()
		})
		pop.rankedFitness = make([]float64, len(pop.fittest))
		for i, ind := range pop.fittest {
			pop.rankedFitness[i] = ind.Fitness()
		}
		pop.dirty = false
	}

	return pop.fittest[rank]
}

func (pop *Population) fitnessChanged() bool {
	if len(pop.rankedFitness) != len(pop.fittest) {
		return true
	}
	for i, ind := range pop.fittest {
		if ind.Fitness() != pop.rankedFitness[i] {
			return true
		}
	}
	return false
}

// Invalidate 强制下次访问时重新计算排名
func (pop *Population) Invalidate() {
	pop.dirty = true
}

// Shuffle 打乱槽位顺序，只用于锦标赛抽样
// 没有适应度发生变化，所以已经计算好的排名仍然有效
func (pop *Population) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(pop.individuals), func(i, j int) {
		pop.individuals[i], pop.individuals[j] = pop.individuals[j], pop.individuals[i]
	})
}

func (pop *Population) PopulationFitness() float64 {
	return pop.populationFitness
}

// SetPopulationFitness 在一轮评估全部完成后调用，同时使排名失效
func (pop *Population) SetPopulationFitness(fitness float64) {
	pop.populationFitness = fitness
	pop.dirty = true
}

// FitnessValues 按槽位顺序返回每个个体的适应度
func (pop *Population) FitnessValues() []float64 {
	values := make([]float64, len(pop.individuals))
	for i, ind := range pop.individuals {
		values[i] = ind.Fitness()
	}
	return values
}
