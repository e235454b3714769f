package cluster

import (
	"context"
	"errors"
	"fmt"
)

// Tag 用于区分同一对进程之间的不同消息
type Tag int

const (
	AnyTag Tag = -1

	TagState    Tag = 1 // 排课数据快照
	TagGenome   Tag = 2 // 个体的染色体
	TagFitness  Tag = 3 // worker 计算出的适应度
	TagShutdown Tag = 4 // 本次运行结束
)

// KnownTags 为所有可以被发送的标签，AnyTag 接收时会在其中匹配
var KnownTags = []Tag{TagState, TagGenome, TagFitness, TagShutdown}

func (t Tag) String() string {
	switch t {
	case AnyTag:
		return "any"
	case TagState:
		return "state"
	case TagGenome:
		return "genome"
	case TagFitness:
		return "fitness"
	case TagShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("tag(%d)", int(t))
	}
}

// AnyRank 作为接收方的来源时匹配任何其他进程，作为发送方的目标时交给任意一个已经在等待的进程
const AnyRank = -1

// CoordinatorRank 协调者固定为 0 号进程
const CoordinatorRank = 0

var (
	ErrClosed        = errors.New("进程组已关闭")
	ErrInvalidRank   = errors.New("进程编号不合法")
	ErrInvalidTag    = errors.New("消息标签不合法")
	ErrSendToSelf    = errors.New("不能给自己发送消息")
	ErrGroupTooSmall = errors.New("进程组至少需要两个进程")
)

type Message struct {
	Source  int
	Tag     Tag
	Payload []byte
}

// Comm 是一个进程在固定进程组中的通信句柄，在程序启动时建立一次，运行结束时关闭
//
// Ssend 是同步发送：直到某个匹配的接收方取走消息后才返回，返回值为接收方的编号。
// Recv 阻塞直到有匹配 (source, tag) 的消息到达。
type Comm interface {
	Rank() int
	Size() int
	Ssend(ctx context.Context, dest int, tag Tag, payload []byte) (int, error)
	Recv(ctx context.Context, source int, tag Tag) (Message, error)
	Close() error
}

func validateSend(rank, size, dest int, tag Tag) error {
	if dest != AnyRank && (dest < 0 || dest >= size) {
		return fmt.Errorf("%w: %d", ErrInvalidRank, dest)
	}
	if dest == rank {
		return ErrSendToSelf
	}
	if tag == AnyTag {
		return fmt.Errorf("%w: 发送时必须指定标签", ErrInvalidTag)
	}
	return nil
}

func validateRecv(size, source int) error {
	if source != AnyRank && (source < 0 || source >= size) {
		return fmt.Errorf("%w: %d", ErrInvalidRank, source)
	}
	return nil
}

func matches(want int, got int) bool {
	return want == AnyRank || want == got
}

func matchesTag(want Tag, got Tag) bool {
	return want == AnyTag || want == got
}
