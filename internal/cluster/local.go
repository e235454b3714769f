package cluster

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// pendingSend 是一条还没有被接收的消息，发送方阻塞在 delivered 上
type pendingSend struct {
	source    int
	dest      int
	tag       Tag
	payload   []byte
	delivered chan int // 接收方的编号
}

// pendingRecv 是一个已经发出但还没有匹配的接收
type pendingRecv struct {
	rank   int
	source int
	tag    Tag
	result chan Message
}

// hub 是进程内进程组的共享状态，所有匹配都在同一把锁下完成
type hub struct {
	mu     sync.Mutex
	size   int
	sends  []*pendingSend
	recvs  []*pendingRecv
	closed bool
	done   chan struct{}
}

// LocalComm 是进程内进程组中的一个成员，用 goroutine 代替进程
type LocalComm struct {
	hub  *hub
	rank int
}

// NewLocalGroup 创建 size 个共享同一个进程组的句柄，下标即编号
func NewLocalGroup(size int) ([]*LocalComm, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRank, size)
	}

	h := &hub{
		size: size,
		done: make(chan struct{}),
	}

	comms := make([]*LocalComm, size)
	for i := range comms {
		comms[i] = &LocalComm{hub: h, rank: i}
	}

	return comms, nil
}

func (c *LocalComm) Rank() int {
	return c.rank
}

func (c *LocalComm) Size() int {
	return c.hub.size
}

func (c *LocalComm) Ssend(ctx context.Context, dest int, tag Tag, payload []byte) (int, error) {
	if err := validateSend(c.rank, c.hub.size, dest, tag); err != nil {
		return 0, err
	}

	h := c.hub
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return 0, ErrClosed
	}

	// 已经有接收方在等待，直接交付
	for i, r := range h.recvs {
		if r.rank != c.rank && matches(dest, r.rank) && matches(r.source, c.rank) && matchesTag(r.tag, tag) {
			h.recvs = slices.Delete(h.recvs, i, i+1)
			h.mu.Unlock()

			r.result <- Message{Source: c.rank, Tag: tag, Payload: payload}
			return r.rank, nil
		}
	}

	s := &pendingSend{
		source:    c.rank,
		dest:      dest,
		tag:       tag,
		payload:   payload,
		delivered: make(chan int, 1),
	}
	h.sends = append(h.sends, s)
	h.mu.Unlock()

	select {
	case receiver := <-s.delivered:
		return receiver, nil
	case <-ctx.Done():
		if h.removeSend(s) {
			return 0, ctx.Err()
		}
		// 在取消的同时已经被接收了
		return <-s.delivered, nil
	case <-h.done:
		if h.removeSend(s) {
			return 0, ErrClosed
		}
		return <-s.delivered, nil
	}
}

func (c *LocalComm) Recv(ctx context.Context, source int, tag Tag) (Message, error) {
	if err := validateRecv(c.hub.size, source); err != nil {
		return Message{}, err
	}

	h := c.hub
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return Message{}, ErrClosed
	}

	// 按到达顺序找第一条匹配的消息
	for i, s := range h.sends {
		if s.source != c.rank && matches(s.dest, c.rank) && matches(source, s.source) && matchesTag(tag, s.tag) {
			h.sends = slices.Delete(h.sends, i, i+1)
			h.mu.Unlock()

			s.delivered <- c.rank
			return Message{Source: s.source, Tag: s.tag, Payload: s.payload}, nil
		}
	}

	r := &pendingRecv{
		rank:   c.rank,
		source: source,
		tag:    tag,
		result: make(chan Message, 1),
	}
	h.recvs = append(h.recvs, r)
	h.mu.Unlock()

	select {
	case msg := <-r.result:
		return msg, nil
	case <-ctx.Done():
		if h.removeRecv(r) {
			return Message{}, ctx.Err()
		}
		return <-r.result, nil
	case <-h.done:
		if h.removeRecv(r) {
			return Message{}, ErrClosed
		}
		return <-r.result, nil
	}
}

// Close 关闭整个进程组，所有阻塞中的调用返回 ErrClosed
func (c *LocalComm) Close() error {
	h := c.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.closed {
		h.closed = true
		close(h.done)
	}

	return nil
}

func (h *hub) removeSend(s *pendingSend) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	i := slices.Index(h.sends, s)
	if i < 0 {
		return false
	}
	h.sends = slices.Delete(h.sends, i, i+1)
	return true
}

func (h *hub) removeRecv(r *pendingRecv) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	i := slices.Index(h.recvs, r)
	if i < 0 {
		return false
	}
	h.recvs = slices.Delete(h.recvs, i, i+1)
	return true
}
