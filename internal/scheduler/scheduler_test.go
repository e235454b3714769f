package scheduler

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ionutmarisca/School-Timetable-AI/internal/cluster"
	"github.com/ionutmarisca/School-Timetable-AI/internal/domain"
	"github.com/ionutmarisca/School-Timetable-AI/internal/ga"
	"github.com/ionutmarisca/School-Timetable-AI/internal/seed"
	"github.com/ionutmarisca/School-Timetable-AI/internal/timetable"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParameters() *Parameters {
	return &Parameters{
		GA: ga.Config{
			PopulationSize: 12,
			MutationRate:   0.02,
			CrossoverRate:  0.9,
			ElitismCount:   2,
			TournamentSize: 3,
		},
		MaxGenerations: 4,
		Seed:           2024,
		RunID:          "test-run",
	}
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()

	s, err := New(testParameters(), seed.SampleInput())
	require.NoError(t, err)
	return s
}

func TestNewRejectsBadParameters(t *testing.T) {
	p := testParameters()
	p.GA.TournamentSize = 100
	_, err := New(p, seed.SampleInput())
	assert.ErrorIs(t, err, ga.ErrInvalidConfig)

	p = testParameters()
	p.MaxGenerations = -1
	_, err = New(p, seed.SampleInput())
	assert.ErrorIs(t, err, ga.ErrInvalidConfig)

	_, err = New(testParameters(), domain.TimetableInput{})
	assert.ErrorIs(t, err, timetable.ErrInvalidInput)
}

func TestNewGeneratesRunID(t *testing.T) {
	p := testParameters()
	p.RunID = ""

	s, err := New(p, seed.SampleInput())
	require.NoError(t, err)
	assert.Len(t, s.RunID(), 36)
}

func TestScheduleLocal(t *testing.T) {
	s := newTestScheduler(t)

	report, err := s.Schedule(context.Background(), ga.NewLocalStrategy(2), nil)
	require.NoError(t, err)

	assert.Equal(t, "test-run", report.RunID)
	assert.Len(t, report.Classes, s.Timetable().SessionCount())
	assert.LessOrEqual(t, report.Generations, 5)
	assert.InDelta(t, 1/float64(report.Clashes+1), report.BestFitness, 1e-9)
	assert.Equal(t, report.Clashes == 0, report.Solved)
}

// 同一个种子下，分布式评估与本地评估得到完全相同的进化过程
func TestScheduleInprocMatchesLocal(t *testing.T) {
	local, err := newTestScheduler(t).Schedule(context.Background(), ga.NewLocalStrategy(2), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	distributed, err := newTestScheduler(t).ScheduleInproc(ctx, 3, nil, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, local.Generations, distributed.Generations)
	assert.Equal(t, local.Classes, distributed.Classes)
	assert.InDelta(t, local.PopulationFitness, distributed.PopulationFitness, 1e-9)
}

func TestScheduleInprocRequiresWorkers(t *testing.T) {
	_, err := newTestScheduler(t).ScheduleInproc(context.Background(), 0, nil, slog.Default())
	assert.ErrorIs(t, err, cluster.ErrGroupTooSmall)
}

func TestScheduleOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	comms := make([]*cluster.RedisComm, 2)
	for rank := range comms {
		comm, err := cluster.NewRedisComm(rdb, cluster.RedisOptions{RunID: "redis-run", Rank: rank, Size: 2})
		require.NoError(t, err)
		comms[rank] = comm
	}

	errs := make(chan error, 1)
	go func() {
		if err := comms[1].Join(ctx); err != nil {
			errs <- err
			return
		}
		errs <- ServeWorker(ctx, comms[1], slog.Default())
	}()
	require.NoError(t, comms[0].Join(ctx))

	p := testParameters()
	p.MaxGenerations = 2
	s, err := New(p, seed.SampleInput())
	require.NoError(t, err)

	distributed, err := s.ScheduleCoordinator(ctx, comms[0], nil, slog.Default())
	require.NoError(t, err)
	require.NoError(t, <-errs)

	s, err = New(p, seed.SampleInput())
	require.NoError(t, err)
	local, err := s.Schedule(context.Background(), ga.NewLocalStrategy(1), nil)
	require.NoError(t, err)

	assert.Equal(t, local.Classes, distributed.Classes)
	assert.InDelta(t, local.PopulationFitness, distributed.PopulationFitness, 1e-9)
}

func TestServeWorkerRejectsCoordinator(t *testing.T) {
	comms, err := cluster.NewLocalGroup(2)
	require.NoError(t, err)

	assert.ErrorIs(t, ServeWorker(context.Background(), comms[0], nil), ga.ErrNotWorker)
}
