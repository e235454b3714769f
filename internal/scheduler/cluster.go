package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ionutmarisca/School-Timetable-AI/internal/cluster"
	"github.com/ionutmarisca/School-Timetable-AI/internal/domain"
	"github.com/ionutmarisca/School-Timetable-AI/internal/ga"
	"github.com/ionutmarisca/School-Timetable-AI/internal/timetable"
	"github.com/sourcegraph/conc/pool"
)

const shutdownTimeout = 10 * time.Second

// ScheduleCoordinator 在 0 号进程上运行遗传算法，适应度交给其他进程计算
// 结束时通知 worker 退出，ctx 被取消时除外
func (s *Scheduler) ScheduleCoordinator(ctx context.Context, comm cluster.Comm, observer ga.Observer, logger *slog.Logger) (*domain.FinalReport, error) {
	strategy, err := ga.NewCoordinatorStrategy(comm, timetable.Codec{}, logger)
	if err != nil {
		return nil, err
	}

	report, runErr := s.Schedule(ctx, strategy, observer)
	if runErr != nil && ctx.Err() != nil {
		return nil, runErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := strategy.Shutdown(shutdownCtx); err != nil {
		if runErr != nil {
			return nil, runErr
		}
		return nil, err
	}

	return report, runErr
}

// ServeWorker 在非 0 号进程上循环计算适应度，直到协调者通知退出
func ServeWorker(ctx context.Context, comm cluster.Comm, logger *slog.Logger) error {
	worker, err := ga.NewWorkerStrategy(comm, timetable.Codec{}, logger)
	if err != nil {
		return err
	}
	return worker.Serve(ctx)
}

// ScheduleInproc 在当前进程中用 goroutine 模拟一个协调者和 workers 个 worker
func (s *Scheduler) ScheduleInproc(ctx context.Context, workers int, observer ga.Observer, logger *slog.Logger) (*domain.FinalReport, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: workers=%d", cluster.ErrGroupTooSmall, workers)
	}

	comms, err := cluster.NewLocalGroup(workers + 1)
	if err != nil {
		return nil, err
	}
	defer comms[0].Close()

	var report *domain.FinalReport

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		r, err := s.ScheduleCoordinator(ctx, comms[0], observer, logger)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	for _, comm := range comms[1:] {
		p.Go(func(ctx context.Context) error {
			return ServeWorker(ctx, comm, logger)
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}

	return report, nil
}
