package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ionutmarisca/School-Timetable-AI/internal/cluster"
	"github.com/ionutmarisca/School-Timetable-AI/internal/config"
	"github.com/ionutmarisca/School-Timetable-AI/internal/domain"
	"github.com/ionutmarisca/School-Timetable-AI/internal/ga"
	"github.com/ionutmarisca/School-Timetable-AI/internal/report"
	"github.com/ionutmarisca/School-Timetable-AI/internal/repository"
	"github.com/ionutmarisca/School-Timetable-AI/internal/scheduler"
	"github.com/ionutmarisca/School-Timetable-AI/internal/seed"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var logEvery int
	var metricsAddr string

	flag.IntVar(&logEvery, "log-every", 10, "每隔多少代打印一次日志")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "运行期间暴露监控指标的地址，例如 :9100，为空时不暴露")
	flag.Parse()

	os.Exit(run(logEvery, metricsAddr))
}

// run 返回进程的退出码，所有 defer 都会在退出前执行
func run(logEvery int, metricsAddr string) int {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	/**********************************************
	 * 连接 redis，worker 只需要这一步
	 **********************************************/
	var comm *cluster.RedisComm
	if cfg.Cluster.Transport == config.TransportRedis {
		comm, err = joinRedis(ctx, cfg, logger)
		if err != nil {
			logger.Error("无法加入进程组", "error", err)
			return 1
		}
		defer comm.Close()

		if ga.RoleOf(comm) == ga.RoleWorker {
			logger.Info("以 worker 身份运行", "rank", comm.Rank(), "size", comm.Size())
			if err := scheduler.ServeWorker(ctx, comm, logger); err != nil {
				logger.Error("worker 异常退出", "error", err)
				return 1
			}
			return 0
		}
	}

	/**********************************************
	 * 读取排课数据
	 **********************************************/
	input, err := loadInput(cfg, logger)
	if err != nil {
		logger.Error("无法读取排课数据", "error", err)
		return 1
	}

	s, err := scheduler.New(&scheduler.Parameters{
		GA: ga.Config{
			PopulationSize: cfg.GA.PopulationSize,
			MutationRate:   cfg.GA.MutationRate,
			CrossoverRate:  cfg.GA.CrossoverRate,
			ElitismCount:   cfg.GA.ElitismCount,
			TournamentSize: cfg.GA.TournamentSize,
		},
		MaxGenerations: cfg.GA.MaxGenerations,
		Seed:           cfg.GA.Seed,
		RunID:          cfg.Cluster.RunID,
	}, *input)
	if err != nil {
		logger.Error("无法创建排课器", "error", err)
		return 1
	}

	/**********************************************
	 * 注册观察者
	 **********************************************/
	observers := report.Observers{&report.LogObserver{Logger: logger, RunID: s.RunID(), Every: logEvery}}

	reg := prometheus.NewRegistry()
	metrics, err := report.NewMetrics(reg)
	if err != nil {
		logger.Error("无法注册监控指标", "error", err)
		return 1
	}
	observers = append(observers, metrics)

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:     metricsAddr,
			Handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("无法启动监控服务", "error", err)
			}
		}()
		defer srv.Close()
	}

	var publisher *report.Publisher
	if cfg.RabbitMQ.DSN != "" {
		conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
		if err != nil {
			logger.Error("无法连接到 rabbitmq", "error", err)
			return 1
		}
		defer conn.Close()

		ch, err := conn.Channel()
		if err != nil {
			logger.Error("无法建立通道", "error", err)
			return 1
		}
		defer ch.Close()

		if _, err := ch.QueueDeclare(cfg.RabbitMQ.Queue, true, false, false, false, nil); err != nil {
			logger.Error("无法声明队列", "error", err)
			return 1
		}

		publisher = report.NewPublisher(ch, cfg.RabbitMQ.Queue, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second, s.RunID(), logger)
		observers = append(observers, publisher)
	}

	/**********************************************
	 * 开始求解
	 **********************************************/
	logger.Info("开始排课",
		"run", s.RunID(),
		"transport", cfg.Cluster.Transport,
		"sessions", s.Timetable().SessionCount(),
		"populationSize", cfg.GA.PopulationSize,
	)

	var final *domain.FinalReport
	switch cfg.Cluster.Transport {
	case config.TransportLocal:
		final, err = s.Schedule(ctx, ga.NewLocalStrategy(cfg.Cluster.Workers), observers)
	case config.TransportInproc:
		final, err = s.ScheduleInproc(ctx, cfg.Cluster.Size-1, observers, logger)
	case config.TransportRedis:
		final, err = s.ScheduleCoordinator(ctx, comm, observers, logger)
	}
	if err != nil {
		logger.Error("排课失败", "error", err)
		return 1
	}

	metrics.ObserveFinal(final)
	if publisher != nil {
		if err := publisher.PublishFinal(context.WithoutCancel(ctx), final); err != nil {
			logger.Error("无法发布排课结果", "error", err)
		}
	}

	fmt.Print(report.FormatFinal(final))

	if !final.Solved {
		logger.Warn("没有找到无冲突的课表", "generations", final.Generations, "clashes", final.Clashes)
	}

	return 0
}

func joinRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*cluster.RedisComm, error) {
	if cfg.Cluster.RunID == "" {
		return nil, errors.New("redis 模式下必须配置 CLUSTER_RUN_ID")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Redis.ConnectTimeout)*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("无法连接到 redis: %w", err)
	}

	comm, err := cluster.NewRedisComm(rdb, cluster.RedisOptions{
		RunID:     cfg.Cluster.RunID,
		Rank:      cfg.Cluster.Rank,
		Size:      cfg.Cluster.Size,
		KeyPrefix: cfg.Redis.KeyPrefix,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	joinCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Cluster.JoinTimeout)*time.Second)
	defer cancel()
	if err := comm.Join(joinCtx); err != nil {
		// Join 失败前可能已经登记，需要注销
		_ = comm.Close()
		return nil, err
	}

	return comm, nil
}

func loadInput(cfg *config.Config, logger *slog.Logger) (*domain.TimetableInput, error) {
	if cfg.Database.DSN == "" {
		logger.Info("未配置数据库，使用内置的示例数据")
		return seed.SampleStore{}.GetTimetableInput()
	}

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	defer dbpool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()
	if err := dbpool.PingContext(ctx); err != nil {
		return nil, err
	}

	return repository.NewRepository(cfg, dbpool).GetTimetableInput()
}
