package ga

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/ionutmarisca/School-Timetable-AI/internal/cluster"
	"github.com/ionutmarisca/School-Timetable-AI/internal/utils"
	"github.com/stretchr/testify/require"
)

// fakeEvaluator 每节课的时间段与教室 id 相同时记一次冲突
type fakeEvaluator struct {
	Sessions   int
	Timeslots  int
	Rooms      int
	Professors int
	Clashes    *int // 不为 nil 时固定返回这个冲突数量
}

func newFakeEvaluator(sessions int) *fakeEvaluator {
	return &fakeEvaluator{Sessions: sessions, Timeslots: 4, Rooms: 4, Professors: 3}
}

func fixedClashes(n int) *fakeEvaluator {
	ev := newFakeEvaluator(3)
	ev.Clashes = &n
	return ev
}

func (f *fakeEvaluator) SessionCount() int { return f.Sessions }
func (f *fakeEvaluator) SessionModuleID(session int) int { return session }
func (f *fakeEvaluator) RandomTimeslotID(rng *rand.Rand) int { return 1 + rng.Intn(f.Timeslots) }
func (f *fakeEvaluator) RandomRoomID(rng *rand.Rand) int { return 1 + rng.Intn(f.Rooms) }

func (f *fakeEvaluator) RandomProfessorID(rng *rand.Rand, moduleID int) int {
	return 1 + rng.Intn(f.Professors)
}

func (f *fakeEvaluator) ClashCount(chromosome []int) (int, error) {
	if len(chromosome) != GenesPerSession*f.Sessions {
		return 0, errors.New("length mismatch")
	}
	if f.Clashes != nil {
		return *f.Clashes, nil
	}

	clashes := 0
	for i := 0; i < f.Sessions; i++ {
		if chromosome[GenesPerSession*i] == chromosome[GenesPerSession*i+1] {
			clashes++
		}
	}
	return clashes, nil
}

type fakeCodec struct{}

func (fakeCodec) EncodeState(ev Evaluator) ([]byte, error) {
	return cluster.EncodeGob(ev.(*fakeEvaluator))
}

func (fakeCodec) DecodeState(data []byte) (Evaluator, error) {
	var ev fakeEvaluator
	if err := cluster.DecodeGob(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func newTestAlgorithm(t *testing.T, cfg Config) *GeneticAlgorithm {
	t.Helper()

	g, err := New(cfg, utils.NewRand(42))
	require.NoError(t, err)
	return g
}

func defaultTestConfig() Config {
	return Config{
		PopulationSize: 20,
		MutationRate:   0.05,
		CrossoverRate:  0.9,
		ElitismCount:   2,
		TournamentSize: 5,
	}
}

// evaluatedPopulation 创建并在本地计算好适应度的种群
func evaluatedPopulation(t *testing.T, g *GeneticAlgorithm, ev Evaluator) *Population {
	t.Helper()

	pop := g.InitPopulation(ev)
	require.NoError(t, NewLocalStrategy(2).Evaluate(context.Background(), pop, ev))
	return pop
}

func chromosomes(pop *Population) [][]int {
	result := make([][]int, pop.Size())
	for i, ind := range pop.individuals {
		result[i] = ind.Chromosome()
	}
	return result
}

func rankedChromosomes(pop *Population) [][]int {
	result := make([][]int, pop.Size())
	for i := range result {
		result[i] = pop.Fittest(i).Chromosome()
	}
	return result
}
