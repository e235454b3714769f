package ga

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strconv"
	"strings"
)

// Unevaluated 表示个体的适应度尚未计算
const Unevaluated = -1.0

var ErrGeneOutOfRange = errors.New("基因下标越界")

// Individual 是一个候选课表：定长的整数染色体加上缓存的适应度
type Individual struct {
	chromosome []int
	fitness    float64
}

// NewRandomIndividual 为每节课随机选择时间段、教室和该课程的一位教师
// 这里不做任何去重，冲突会在计算适应度时被惩罚
func NewRandomIndividual(ev Evaluator, rng *rand.Rand) *Individual {
	chromosome := make([]int, GenesPerSession*ev.SessionCount())

	for i := 0; i < ev.SessionCount(); i++ {
		chromosome[GenesPerSession*i] = ev.RandomTimeslotID(rng)
		chromosome[GenesPerSession*i+1] = ev.RandomRoomID(rng)
		chromosome[GenesPerSession*i+2] = ev.RandomProfessorID(rng, ev.SessionModuleID(i))
	}

	return &Individual{
		chromosome: chromosome,
		fitness:    Unevaluated,
	}
}

// NewIdentityIndividual 创建 gene[i] = i 的占位个体
func NewIdentityIndividual(length int) *Individual {
	chromosome := make([]int, length)
	for i := range chromosome {
		chromosome[i] = i
	}

	return &Individual{
		chromosome: chromosome,
		fitness:    Unevaluated,
	}
}

// NewIndividual 使用给定染色体的拷贝创建个体
func NewIndividual(chromosome []int) *Individual {
	return &Individual{
		chromosome: slices.Clone(chromosome),
		fitness:    Unevaluated,
	}
}

// Chromosome 返回染色体的拷贝
func (ind *Individual) Chromosome() []int {
	return slices.Clone(ind.chromosome)
}

func (ind *Individual) ChromosomeLength() int {
	return len(ind.chromosome)
}

func (ind *Individual) Gene(offset int) (int, error) {
	if offset < 0 || offset >= len(ind.chromosome) {
		return 0, fmt.Errorf("%w: %d 不在 [0, %d) 中", ErrGeneOutOfRange, offset, len(ind.chromosome))
	}
	return ind.chromosome[offset], nil
}

func (ind *Individual) SetGene(offset int, gene int) error {
	if offset < 0 || offset >= len(ind.chromosome) {
		return fmt.Errorf("%w: %d 不在 [0, %d) 中", ErrGeneOutOfRange, offset, len(ind.chromosome))
	}
	ind.chromosome[offset] = gene
	return nil
}

func (ind *Individual) Fitness() float64 {
	return ind.fitness
}

func (ind *Individual) SetFitness(fitness float64) {
	ind.fitness = fitness
}

// Clone 深拷贝个体，新个体不会与原个体共享染色体
func (ind *Individual) Clone() *Individual {
	return &Individual{
		chromosome: slices.Clone(ind.chromosome),
		fitness:    ind.fitness,
	}
}

func (ind *Individual) ContainsGene(gene int) bool {
	return slices.Contains(ind.chromosome, gene)
}

func (ind *Individual) String() string {
	var sb strings.Builder
	for _, gene := range ind.chromosome {
		sb.WriteString(strconv.Itoa(gene))
		sb.WriteString(",")
	}
	return sb.String()
}

// overwrite 用收到的染色体覆盖个体，长度必须一致
func (ind *Individual) overwrite(chromosome []int) error {
	if len(chromosome) != len(ind.chromosome) {
		return fmt.Errorf("染色体长度不一致: 期望 %d, 实际 %d", len(ind.chromosome), len(chromosome))
	}
	copy(ind.chromosome, chromosome)
	ind.fitness = Unevaluated
	return nil
}
