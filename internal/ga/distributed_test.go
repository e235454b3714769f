package ga

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ionutmarisca/School-Timetable-AI/internal/cluster"
	"github.com/ionutmarisca/School-Timetable-AI/internal/utils"
	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startWorkers 为 0 号以外的每个成员启动一个 worker，返回等待它们退出的函数
func startWorkers(t *testing.T, ctx context.Context, comms []*cluster.LocalComm) func() error {
	t.Helper()

	p := pool.New().WithErrors().WithContext(ctx)
	for _, comm := range comms[1:] {
		worker, err := NewWorkerStrategy(comm, fakeCodec{}, slog.Default())
		require.NoError(t, err)
		p.Go(worker.Serve)
	}
	return p.Wait
}

func newCoordinator(t *testing.T, size int) (*CoordinatorStrategy, []*cluster.LocalComm) {
	t.Helper()

	comms, err := cluster.NewLocalGroup(size)
	require.NoError(t, err)
	t.Cleanup(func() { _ = comms[0].Close() })

	coordinator, err := NewCoordinatorStrategy(comms[0], fakeCodec{}, slog.Default())
	require.NoError(t, err)
	return coordinator, comms
}

func TestDistributedMatchesLocal(t *testing.T) {
	for _, size := range []int{2, 4} {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		coordinator, comms := newCoordinator(t, size)
		wait := startWorkers(t, ctx, comms)

		ev := newFakeEvaluator(5)
		g := newTestAlgorithm(t, Config{PopulationSize: 3, MutationRate: 0.1, CrossoverRate: 0.9, ElitismCount: 1, TournamentSize: 2})
		pop := g.InitPopulation(ev)

		expected := 0.0
		for _, ind := range pop.Individuals() {
			fitness, err := CalcFitness(ind.Clone(), ev)
			require.NoError(t, err)
			expected += fitness
		}

		require.NoError(t, coordinator.Evaluate(ctx, pop, ev))
		assert.InDelta(t, expected, pop.PopulationFitness(), 1e-9)

		// 每个个体的适应度也写回了协调者的种群
		local := 0.0
		for _, ind := range pop.Individuals() {
			assert.NotEqual(t, Unevaluated, ind.Fitness())
			local += ind.Fitness()
		}
		assert.InDelta(t, expected, local, 1e-9)

		require.NoError(t, coordinator.Shutdown(ctx))
		require.NoError(t, wait())
	}
}

func TestDistributedRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	coordinator, comms := newCoordinator(t, 3)
	wait := startWorkers(t, ctx, comms)

	g, err := New(defaultTestConfig(), utils.NewRand(5))
	require.NoError(t, err)

	result, err := g.Run(ctx, RunOptions{
		Evaluator:      newFakeEvaluator(4),
		Strategy:       coordinator,
		MaxGenerations: 5,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, result.Generations, 6)
	assert.Greater(t, result.PopulationFitness, 0.0)

	require.NoError(t, coordinator.Shutdown(ctx))
	require.NoError(t, wait())
}

func TestDistributedNegativeClashCount(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	coordinator, comms := newCoordinator(t, 2)
	wait := startWorkers(t, ctx, comms)

	ev := fixedClashes(-2)
	pop := NewRandomPopulation(2, ev, utils.NewRand(1))

	err := coordinator.Evaluate(ctx, pop, ev)
	assert.ErrorIs(t, err, ErrNegativeClashCount)

	// worker 回复错误之后仍然在等待下一个个体
	require.NoError(t, coordinator.Shutdown(ctx))
	require.NoError(t, wait())
}

func TestCoordinatorRequiresWorkers(t *testing.T) {
	comms, err := cluster.NewLocalGroup(1)
	require.NoError(t, err)

	_, err = NewCoordinatorStrategy(comms[0], fakeCodec{}, nil)
	assert.ErrorIs(t, err, cluster.ErrGroupTooSmall)
}

func TestRoles(t *testing.T) {
	comms, err := cluster.NewLocalGroup(3)
	require.NoError(t, err)

	assert.Equal(t, RoleCoordinator, RoleOf(comms[0]))
	assert.Equal(t, RoleWorker, RoleOf(comms[1]))
	assert.Equal(t, "worker", RoleOf(comms[2]).String())

	_, err = NewCoordinatorStrategy(comms[1], fakeCodec{}, nil)
	assert.ErrorIs(t, err, ErrNotCoordinator)

	_, err = NewWorkerStrategy(comms[0], fakeCodec{}, nil)
	assert.ErrorIs(t, err, ErrNotWorker)
}

func TestWorkerStopsOnCancel(t *testing.T) {
	comms, err := cluster.NewLocalGroup(2)
	require.NoError(t, err)

	worker, err := NewWorkerStrategy(comms[1], fakeCodec{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, worker.Serve(ctx), context.DeadlineExceeded)
}

func TestWorkerStopsOnShutdownBeforeGenome(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	coordinator, comms := newCoordinator(t, 2)
	wait := startWorkers(t, ctx, comms)

	state, err := fakeCodec{}.EncodeState(newFakeEvaluator(2))
	require.NoError(t, err)
	worker, err := comms[0].Ssend(ctx, cluster.AnyRank, cluster.TagState, state)
	require.NoError(t, err)
	require.Equal(t, 1, worker)

	// 只发送了排课数据，worker 此时在等待染色体
	start := time.Now()
	require.NoError(t, coordinator.Shutdown(ctx))
	require.NoError(t, wait())
	assert.Less(t, time.Since(start), time.Second)
}

func TestWorkerRejectsUnexpectedTagAfterState(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, comms := newCoordinator(t, 2)
	wait := startWorkers(t, ctx, comms)

	state, err := fakeCodec{}.EncodeState(newFakeEvaluator(2))
	require.NoError(t, err)
	_, err = comms[0].Ssend(ctx, cluster.AnyRank, cluster.TagState, state)
	require.NoError(t, err)
	_, err = comms[0].Ssend(ctx, 1, cluster.TagFitness, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, wait(), ErrProtocol)
}

func TestLocalStrategyWritesFitness(t *testing.T) {
	ev := newFakeEvaluator(5)
	pop := NewRandomPopulation(30, ev, utils.NewRand(8))

	require.NoError(t, NewLocalStrategy(0).Evaluate(context.Background(), pop, ev))

	sum := 0.0
	for _, ind := range pop.Individuals() {
		clashes, err := ev.ClashCount(ind.Chromosome())
		require.NoError(t, err)
		assert.Equal(t, 1/float64(clashes+1), ind.Fitness())
		sum += ind.Fitness()
	}
	assert.InDelta(t, sum, pop.PopulationFitness(), 1e-9)
}

func TestLocalStrategyPropagatesError(t *testing.T) {
	ev := fixedClashes(-1)
	pop := NewRandomPopulation(4, ev, utils.NewRand(8))

	err := NewLocalStrategy(2).Evaluate(context.Background(), pop, ev)
	assert.ErrorIs(t, err, ErrNegativeClashCount)
}
