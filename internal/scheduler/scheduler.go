package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/ionutmarisca/School-Timetable-AI/internal/domain"
	"github.com/ionutmarisca/School-Timetable-AI/internal/ga"
	"github.com/ionutmarisca/School-Timetable-AI/internal/report"
	"github.com/ionutmarisca/School-Timetable-AI/internal/timetable"
	"github.com/ionutmarisca/School-Timetable-AI/internal/utils"
)

type Scheduler struct {
	parameters *Parameters
	timetable  *timetable.Timetable
	algorithm  *ga.GeneticAlgorithm
	runID      string
}

// New 校验参数和排课数据，任何错误都在开始迭代之前返回
func New(parameters *Parameters, input domain.TimetableInput) (*Scheduler, error) {
	if parameters.MaxGenerations < 0 {
		return nil, fmt.Errorf("%w: 最大迭代次数不能为负数", ga.ErrInvalidConfig)
	}

	t, err := timetable.New(input)
	if err != nil {
		return nil, err
	}

	algorithm, err := ga.New(parameters.GA, utils.NewRand(parameters.Seed))
	if err != nil {
		return nil, err
	}

	runID := parameters.RunID
	if runID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		runID = id.String()
	}

	return &Scheduler{
		parameters: parameters,
		timetable:  t,
		algorithm:  algorithm,
		runID:      runID,
	}, nil
}

func (s *Scheduler) RunID() string {
	return s.runID
}

func (s *Scheduler) Timetable() *timetable.Timetable {
	return s.timetable
}

// Schedule 运行遗传算法并返回最好的课表，observer 可以为 nil
func (s *Scheduler) Schedule(ctx context.Context, strategy ga.EvaluationStrategy, observer ga.Observer) (*domain.FinalReport, error) {
	start := time.Now()

	result, err := s.algorithm.Run(ctx, ga.RunOptions{
		Evaluator:      s.timetable,
		Strategy:       strategy,
		MaxGenerations: s.parameters.MaxGenerations,
		Observer:       observer,
	})
	if err != nil {
		return nil, err
	}

	return report.NewFinalReport(s.runID, result, s.timetable, time.Since(start))
}
