package ga

import "math/rand"

// Evaluator 是遗传算法对排课模型的全部依赖
// ClashCount 会被多个 goroutine 同时调用，实现必须是只读的
type Evaluator interface {
	// SessionCount 返回需要排的课的数量，染色体长度为它的三倍
	SessionCount() int
	SessionModuleID(session int) int
	RandomTimeslotID(rng *rand.Rand) int
	RandomRoomID(rng *rand.Rand) int
	RandomProfessorID(rng *rand.Rand, moduleID int) int
	ClashCount(chromosome []int) (int, error)
}

// GenesPerSession 每节课占用的基因数量：时间段、教室、教师
const GenesPerSession = 3
