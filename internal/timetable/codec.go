package timetable

import (
	"fmt"

	"github.com/ionutmarisca/School-Timetable-AI/internal/cluster"
	"github.com/ionutmarisca/School-Timetable-AI/internal/domain"
	"github.com/ionutmarisca/School-Timetable-AI/internal/ga"
)

// Codec 用 gob 传输 TimetableInput，worker 收到后重新构造 Timetable
type Codec struct{}

func (Codec) EncodeState(ev ga.Evaluator) ([]byte, error) {
	t, ok := ev.(*Timetable)
	if !ok {
		return nil, fmt.Errorf("不支持的评估器类型 %T", ev)
	}
	return cluster.EncodeGob(t.Input())
}

func (Codec) DecodeState(data []byte) (ga.Evaluator, error) {
	var input domain.TimetableInput
	if err := cluster.DecodeGob(data, &input); err != nil {
		return nil, err
	}
	return New(input)
}
