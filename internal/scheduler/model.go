package scheduler

import "github.com/ionutmarisca/School-Timetable-AI/internal/ga"

// 遗传算法参数
type Parameters struct {
	GA             ga.Config // 种群大小、变异率、交叉率、精英数量、锦标赛大小
	MaxGenerations int       // 最大迭代次数
	Seed           int64     // 随机种子，0 表示使用当前时间
	RunID          string    // 为空时自动生成
}
