package ga

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ionutmarisca/School-Timetable-AI/internal/cluster"
)

var (
	ErrNotCoordinator = errors.New("只有 0 号进程可以作为协调者")
	ErrNotWorker      = errors.New("0 号进程不能作为 worker")
	ErrProtocol       = errors.New("评估协议错误")
)

// StateCodec 将评估器序列化为可以发送给 worker 的快照
type StateCodec interface {
	EncodeState(ev Evaluator) ([]byte, error)
	DecodeState(data []byte) (Evaluator, error)
}

// fitnessReply 是 worker 返回给协调者的结果
type fitnessReply struct {
	Fitness       float64
	Err           string
	NegativeClash bool
}

type Role int

const (
	RoleCoordinator Role = iota
	RoleWorker
)

func (r Role) String() string {
	if r == RoleCoordinator {
		return "coordinator"
	}
	return "worker"
}

// RoleOf 根据进程编号确定角色，整个运行期间不会改变
func RoleOf(comm cluster.Comm) Role {
	if comm.Rank() == cluster.CoordinatorRank {
		return RoleCoordinator
	}
	return RoleWorker
}

// CoordinatorStrategy 将每个个体依次分发给空闲的 worker 并汇总适应度
// 同一时间只有一个个体在计算中
type CoordinatorStrategy struct {
	comm   cluster.Comm
	codec  StateCodec
	logger *slog.Logger
}

func NewCoordinatorStrategy(comm cluster.Comm, codec StateCodec, logger *slog.Logger) (*CoordinatorStrategy, error) {
	if comm.Size() < 2 {
		// 没有 worker 时协调者会永远等待，必须在启动时拒绝
		return nil, fmt.Errorf("%w: size=%d", cluster.ErrGroupTooSmall, comm.Size())
	}
	if comm.Rank() != cluster.CoordinatorRank {
		return nil, fmt.Errorf("%w: rank=%d", ErrNotCoordinator, comm.Rank())
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CoordinatorStrategy{
		comm:   comm,
		codec:  codec,
		logger: logger,
	}, nil
}

func (s *CoordinatorStrategy) Evaluate(ctx context.Context, pop *Population, ev Evaluator) error {
	// 每一代的排课数据不变，只序列化一次
	state, err := s.codec.EncodeState(ev)
	if err != nil {
		return fmt.Errorf("无法序列化排课数据: %w", err)
	}

	populationFitness := 0.0

	for k, ind := range pop.individuals {
		// 1. 将排课数据交给任意一个空闲的 worker，返回值为接收的 worker
		worker, err := s.comm.Ssend(ctx, cluster.AnyRank, cluster.TagState, state)
		if err != nil {
			return fmt.Errorf("无法分发第 %d 个个体的排课数据: %w", k, err)
		}

		// 2. 将染色体发给同一个 worker
		genome, err := cluster.EncodeGob(ind.chromosome)
		if err != nil {
			return err
		}
		if _, err := s.comm.Ssend(ctx, worker, cluster.TagGenome, genome); err != nil {
			return fmt.Errorf("无法发送第 %d 个个体的染色体给 worker %d: %w", k, worker, err)
		}

		// 3. 等待适应度
		msg, err := s.comm.Recv(ctx, cluster.AnyRank, cluster.AnyTag)
		if err != nil {
			return fmt.Errorf("无法接收第 %d 个个体的适应度: %w", k, err)
		}
		if msg.Tag != cluster.TagFitness {
			return fmt.Errorf("%w: 期望 %s, 收到 %s", ErrProtocol, cluster.TagFitness, msg.Tag)
		}

		var reply fitnessReply
		if err := cluster.DecodeGob(msg.Payload, &reply); err != nil {
			return fmt.Errorf("无法解析 worker %d 的适应度: %w", msg.Source, err)
		}
		if reply.NegativeClash {
			return fmt.Errorf("worker %d: %w", msg.Source, ErrNegativeClashCount)
		}
		if reply.Err != "" {
			return fmt.Errorf("worker %d 计算第 %d 个个体失败: %s", msg.Source, k, reply.Err)
		}

		// 同一时间只有一个个体在计算，所以收到的结果一定属于个体 k
		ind.SetFitness(reply.Fitness)
		populationFitness += reply.Fitness
	}

	pop.SetPopulationFitness(populationFitness)

	return nil
}

// Shutdown 通知所有 worker 本次运行结束，只在运行结束时调用一次
func (s *CoordinatorStrategy) Shutdown(ctx context.Context) error {
	for rank := 0; rank < s.comm.Size(); rank++ {
		if rank == cluster.CoordinatorRank {
			continue
		}
		if _, err := s.comm.Ssend(ctx, rank, cluster.TagShutdown, nil); err != nil {
			return fmt.Errorf("无法通知 worker %d 退出: %w", rank, err)
		}
	}

	s.logger.Info("已通知所有 worker 退出", "workers", s.comm.Size()-1)
	return nil
}

// WorkerStrategy 在整个运行期间循环接收个体并计算适应度
type WorkerStrategy struct {
	comm   cluster.Comm
	codec  StateCodec
	logger *slog.Logger

	// 上一次收到的快照，内容相同时复用已经解析好的评估器
	lastState []byte
	lastEval  Evaluator
}

func NewWorkerStrategy(comm cluster.Comm, codec StateCodec, logger *slog.Logger) (*WorkerStrategy, error) {
	if comm.Rank() == cluster.CoordinatorRank {
		return nil, ErrNotWorker
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &WorkerStrategy{
		comm:   comm,
		codec:  codec,
		logger: logger,
	}, nil
}

// Serve 阻塞直到收到协调者的退出消息或 ctx 被取消
func (w *WorkerStrategy) Serve(ctx context.Context) error {
	evaluated := 0

	for {
		// 1. 等待排课数据或退出消息
		msg, err := w.comm.Recv(ctx, cluster.CoordinatorRank, cluster.AnyTag)
		if err != nil {
			return err
		}

		switch msg.Tag {
		case cluster.TagShutdown:
			w.logger.Info("worker 退出", "rank", w.comm.Rank(), "evaluated", evaluated)
			return nil
		case cluster.TagState:
		default:
			return fmt.Errorf("%w: worker 期望 %s, 收到 %s", ErrProtocol, cluster.TagState, msg.Tag)
		}

		ev, stateErr := w.decodeState(msg.Payload)

		// 2. 协调者随后会发送染色体，即使快照无法解析也要接收，否则协调者会一直阻塞
		// 协调者在两次发送之间失败时会直接发送退出消息
		genomeMsg, err := w.comm.Recv(ctx, cluster.CoordinatorRank, cluster.AnyTag)
		if err != nil {
			return err
		}
		switch genomeMsg.Tag {
		case cluster.TagShutdown:
			w.logger.Info("worker 退出", "rank", w.comm.Rank(), "evaluated", evaluated)
			return nil
		case cluster.TagGenome:
		default:
			return fmt.Errorf("%w: worker 期望 %s, 收到 %s", ErrProtocol, cluster.TagGenome, genomeMsg.Tag)
		}

		// 3. 计算适应度并同步发送给协调者
		reply := w.evaluate(ev, stateErr, genomeMsg.Payload)
		payload, err := cluster.EncodeGob(reply)
		if err != nil {
			return err
		}
		if _, err := w.comm.Ssend(ctx, cluster.CoordinatorRank, cluster.TagFitness, payload); err != nil {
			return err
		}

		evaluated++
	}
}

func (w *WorkerStrategy) decodeState(data []byte) (Evaluator, error) {
	if w.lastEval != nil && bytes.Equal(w.lastState, data) {
		return w.lastEval, nil
	}

	ev, err := w.codec.DecodeState(data)
	if err != nil {
		return nil, err
	}

	w.lastState = data
	w.lastEval = ev
	return ev, nil
}

func (w *WorkerStrategy) evaluate(ev Evaluator, stateErr error, genomePayload []byte) fitnessReply {
	if stateErr != nil {
		return fitnessReply{Err: fmt.Sprintf("无法解析排课数据: %v", stateErr)}
	}

	var chromosome []int
	if err := cluster.DecodeGob(genomePayload, &chromosome); err != nil {
		return fitnessReply{Err: fmt.Sprintf("无法解析染色体: %v", err)}
	}

	// 按收到的排课数据分配一个新个体，再用收到的染色体覆盖
	ind := NewIdentityIndividual(GenesPerSession * ev.SessionCount())
	if err := ind.overwrite(chromosome); err != nil {
		return fitnessReply{Err: err.Error()}
	}

	fitness, err := CalcFitness(ind, ev)
	if err != nil {
		w.logger.Error("计算适应度失败", "rank", w.comm.Rank(), "error", err)
		return fitnessReply{Err: err.Error(), NegativeClash: errors.Is(err, ErrNegativeClashCount)}
	}

	return fitnessReply{Fitness: fitness}
}
