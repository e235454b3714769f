package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/ionutmarisca/School-Timetable-AI/internal/config"
	"github.com/ionutmarisca/School-Timetable-AI/internal/domain"
	"github.com/ionutmarisca/School-Timetable-AI/internal/repository"
	"github.com/ionutmarisca/School-Timetable-AI/internal/seed"
	"github.com/ionutmarisca/School-Timetable-AI/internal/utils"
	"github.com/jackc/pgx/v5/pgconn"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var rooms, timeslots, professors, modules, groups int
	var randSeed int64

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入示例数据, 2: 插入随机数据)")
	flag.IntVar(&rooms, "rooms", 10, "随机生成的教室数量")
	flag.IntVar(&timeslots, "timeslots", 20, "随机生成的时间段数量")
	flag.IntVar(&professors, "professors", 10, "随机生成的教师数量")
	flag.IntVar(&modules, "modules", 15, "随机生成的课程数量")
	flag.IntVar(&groups, "groups", 20, "随机生成的小组数量")
	flag.Int64Var(&randSeed, "seed", 0, "随机种子，0 表示使用当前时间")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.Database.DSN == "" {
		logger.Error("未配置 DATABASE_DSN")
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	var input domain.TimetableInput
	switch op {
	case 0:
		logger.Error("未指定操作")
		return
	case 1:
		input = seed.SampleInput()
	case 2:
		if rooms <= 0 || timeslots <= 0 || professors <= 0 || modules <= 0 || groups <= 0 {
			logger.Error("请输入合法的数量")
			return
		}
		input = seed.RandomInput(utils.NewRand(randSeed), rooms, timeslots, professors, modules, groups)
	default:
		logger.Error("指定的操作非法")
		return
	}

	if err := repo.InsertTimetableInput(&input); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// 主键冲突说明数据库中已经有数据
			logger.Error("数据库中已经存在排课数据，请先清空", "constraint", pgErr.ConstraintName)
			return
		}
		logger.Error("无法插入排课数据", slog.String("error", err.Error()))
		return
	}

	logger.Info("插入排课数据成功",
		slog.Int("rooms", len(input.Rooms)),
		slog.Int("timeslots", len(input.Timeslots)),
		slog.Int("professors", len(input.Professors)),
		slog.Int("modules", len(input.Modules)),
		slog.Int("groups", len(input.Groups)),
	)
}
