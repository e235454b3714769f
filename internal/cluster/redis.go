package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix    = "timetable"
	defaultPollTimeout  = time.Second
	defaultAckTTL       = time.Minute
	defaultJoinInterval = 200 * time.Millisecond
)

// envelope 是存放在 redis 列表中的一条消息
type envelope struct {
	Source  int
	Tag     Tag
	Payload []byte
	AckKey  string
}

type RedisOptions struct {
	RunID        string
	Rank         int
	Size         int
	KeyPrefix    string
	PollTimeout  time.Duration // 单次 BLPOP 的超时，超时后检查 ctx 并重试
	AckTTL       time.Duration
	JoinInterval time.Duration
	Logger       *slog.Logger
}

// RedisComm 用 redis 列表在多个进程之间实现同步点对点消息
//
// 每个 (目标, 来源, 标签) 对应一个列表，发送给任意进程的消息放在按 (来源, 标签) 划分的公共列表中。
// 接收方用 BLPOP 同时等待所有匹配的列表；取走消息后向消息中的 ack 列表写入自己的编号，
// 发送方阻塞在 ack 列表上，从而得到同步发送的语义。
type RedisComm struct {
	rdb  *redis.Client
	opts RedisOptions
}

func NewRedisComm(rdb *redis.Client, opts RedisOptions) (*RedisComm, error) {
	if opts.Size < 1 {
		return nil, fmt.Errorf("%w: size=%d", ErrInvalidRank, opts.Size)
	}
	if opts.Rank < 0 || opts.Rank >= opts.Size {
		return nil, fmt.Errorf("%w: rank=%d size=%d", ErrInvalidRank, opts.Rank, opts.Size)
	}
	if opts.RunID == "" {
		return nil, errors.New("缺少运行 id")
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = defaultKeyPrefix
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = defaultPollTimeout
	}
	if opts.AckTTL <= 0 {
		opts.AckTTL = defaultAckTTL
	}
	if opts.JoinInterval <= 0 {
		opts.JoinInterval = defaultJoinInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &RedisComm{
		rdb:  rdb,
		opts: opts,
	}, nil
}

func (c *RedisComm) Rank() int {
	return c.opts.Rank
}

func (c *RedisComm) Size() int {
	return c.opts.Size
}

func (c *RedisComm) key(parts ...any) string {
	key := fmt.Sprintf("%s:%s", c.opts.KeyPrefix, c.opts.RunID)
	for _, part := range parts {
		key += fmt.Sprintf(":%v", part)
	}
	return key
}

func (c *RedisComm) directKey(dest, source int, tag Tag) string {
	return c.key("direct", dest, source, int(tag))
}

func (c *RedisComm) anyKey(source int, tag Tag) string {
	return c.key("any", source, int(tag))
}

func (c *RedisComm) membersKey() string {
	return c.key("members")
}

// Join 登记自己并等待进程组中的所有进程都已登记
func (c *RedisComm) Join(ctx context.Context) error {
	if err := c.rdb.SAdd(ctx, c.membersKey(), c.opts.Rank).Err(); err != nil {
		return fmt.Errorf("登记进程失败: %w", err)
	}

	ticker := time.NewTicker(c.opts.JoinInterval)
	defer ticker.Stop()

	for {
		n, err := c.rdb.SCard(ctx, c.membersKey()).Result()
		if err != nil {
			return fmt.Errorf("查询进程组成员失败: %w", err)
		}
		if int(n) >= c.opts.Size {
			c.opts.Logger.Info("进程组已就绪", "run", c.opts.RunID, "rank", c.opts.Rank, "size", c.opts.Size)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *RedisComm) Ssend(ctx context.Context, dest int, tag Tag, payload []byte) (int, error) {
	if err := validateSend(c.opts.Rank, c.opts.Size, dest, tag); err != nil {
		return 0, err
	}

	ackID, err := uuid.NewV4()
	if err != nil {
		return 0, err
	}
	ackKey := c.key("ack", ackID.String())

	data, err := EncodeGob(envelope{
		Source:  c.opts.Rank,
		Tag:     tag,
		Payload: payload,
		AckKey:  ackKey,
	})
	if err != nil {
		return 0, err
	}

	var mailbox string
	if dest == AnyRank {
		mailbox = c.anyKey(c.opts.Rank, tag)
	} else {
		mailbox = c.directKey(dest, c.opts.Rank, tag)
	}

	if err := c.rdb.RPush(ctx, mailbox, data).Err(); err != nil {
		return 0, fmt.Errorf("发送消息失败: %w", err)
	}

	// 等待接收方确认
	for {
		res, err := c.rdb.BLPop(ctx, c.opts.PollTimeout, ackKey).Result()
		if err == nil {
			receiver, err := strconv.Atoi(res[1])
			if err != nil {
				return 0, fmt.Errorf("无法解析确认消息: %w", err)
			}
			return receiver, nil
		}

		if ctx.Err() != nil {
			// 尽量撤回还没有被取走的消息
			_ = c.rdb.LRem(context.Background(), mailbox, 1, data).Err()
			return 0, ctx.Err()
		}
		if !errors.Is(err, redis.Nil) {
			return 0, fmt.Errorf("等待确认失败: %w", err)
		}
	}
}

func (c *RedisComm) Recv(ctx context.Context, source int, tag Tag) (Message, error) {
	if err := validateRecv(c.opts.Size, source); err != nil {
		return Message{}, err
	}
	if source == c.opts.Rank {
		return Message{}, ErrSendToSelf
	}

	sources := []int{source}
	if source == AnyRank {
		sources = sources[:0]
		for r := 0; r < c.opts.Size; r++ {
			if r != c.opts.Rank {
				sources = append(sources, r)
			}
		}
	}

	tags := []Tag{tag}
	if tag == AnyTag {
		tags = KnownTags
	}

	keys := make([]string, 0, 2*len(sources)*len(tags))
	for _, s := range sources {
		for _, t := range tags {
			keys = append(keys, c.directKey(c.opts.Rank, s, t), c.anyKey(s, t))
		}
	}

	for {
		res, err := c.rdb.BLPop(ctx, c.opts.PollTimeout, keys...).Result()
		if err != nil {
			if ctx.Err() != nil {
				return Message{}, ctx.Err()
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return Message{}, fmt.Errorf("接收消息失败: %w", err)
		}

		var env envelope
		if err := DecodeGob([]byte(res[1]), &env); err != nil {
			return Message{}, fmt.Errorf("无法解析消息: %w", err)
		}

		// 确认之后发送方才会返回
		pipe := c.rdb.TxPipeline()
		pipe.RPush(ctx, env.AckKey, c.opts.Rank)
		pipe.Expire(ctx, env.AckKey, c.opts.AckTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			return Message{}, fmt.Errorf("确认消息失败: %w", err)
		}

		c.opts.Logger.Debug("收到消息", "rank", c.opts.Rank, "source", env.Source, "tag", env.Tag.String())

		return Message{Source: env.Source, Tag: env.Tag, Payload: env.Payload}, nil
	}
}

// Close 注销自己，不会关闭 redis 客户端
func (c *RedisComm) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return c.rdb.SRem(ctx, c.membersKey(), c.opts.Rank).Err()
}
