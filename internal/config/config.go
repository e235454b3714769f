package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

const (
	TransportLocal  = "local"  // 单进程，goroutine 池并行计算
	TransportInproc = "inproc" // 单进程，用 goroutine 模拟协调者和 worker
	TransportRedis  = "redis"  // 多进程，通过 redis 交换消息
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"120"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN"` // 为空时使用内置的示例数据
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	GA struct {
		PopulationSize int     `env:"POPULATION_SIZE" envDefault:"100"`
		MutationRate   float64 `env:"MUTATION_RATE" envDefault:"0.01"`
		CrossoverRate  float64 `env:"CROSSOVER_RATE" envDefault:"0.9"`
		ElitismCount   int     `env:"ELITISM_COUNT" envDefault:"2"`
		TournamentSize int     `env:"TOURNAMENT_SIZE" envDefault:"5"`
		MaxGenerations int     `env:"MAX_GENERATIONS" envDefault:"1000"`
		Seed           int64   `env:"SEED" envDefault:"0"` // 0 表示使用当前时间
	} `envPrefix:"GA_"`
	Cluster struct {
		Transport   string `env:"TRANSPORT" envDefault:"local"`
		RunID       string `env:"RUN_ID"`
		Rank        int    `env:"RANK" envDefault:"0"`
		Size        int    `env:"SIZE" envDefault:"2"`
		Workers     int    `env:"WORKERS" envDefault:"0"` // local 模式下的最大并发数，0 表示 CPU 核数
		JoinTimeout int    `env:"JOIN_TIMEOUT" envDefault:"60"`
	} `envPrefix:"CLUSTER_"`
	Redis struct {
		Host           string `env:"HOST" envDefault:"localhost"`
		Port           int    `env:"PORT" envDefault:"6379"`
		Password       string `env:"PASSWORD"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		KeyPrefix      string `env:"KEY_PREFIX" envDefault:"timetable"`
	} `envPrefix:"REDIS_"`
	RabbitMQ struct {
		DSN            string `env:"DSN"` // 为空时不发布报告
		Queue          string `env:"QUEUE" envDefault:"timetable_report_queue"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	JWT struct {
		Secret string `env:"SECRET"`
	} `envPrefix:"JWT_"`
	Email struct {
		To   string `env:"TO"`
		SMTP struct {
			Username    string `env:"USERNAME"`
			Password    string `env:"PASSWORD"`
			Host        string `env:"HOST"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	switch cfg.Cluster.Transport {
	case TransportLocal, TransportInproc, TransportRedis:
	default:
		return nil, errors.New("CLUSTER_TRANSPORT 只能是 local、inproc 或 redis")
	}

	return cfg, nil
}
