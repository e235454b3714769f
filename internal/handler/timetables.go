package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ionutmarisca/School-Timetable-AI/internal/domain"
	"github.com/ionutmarisca/School-Timetable-AI/internal/ga"
	"github.com/ionutmarisca/School-Timetable-AI/internal/scheduler"
	"github.com/ionutmarisca/School-Timetable-AI/internal/timetable"
)

func (h *Handler) GetTimetableInput(w http.ResponseWriter, r *http.Request) {
	input := r.Context().Value(InputCtxKey).(*domain.TimetableInput)

	h.successResponse(w, r, "获取排课数据成功", input)
}

func (h *Handler) GenerateTimetable(w http.ResponseWriter, r *http.Request) {
	// 未提供的字段使用配置中的默认值
	req := struct {
		PopulationSize int                    `json:"populationSize"`
		MutationRate   float64                `json:"mutationRate"`
		CrossoverRate  float64                `json:"crossoverRate"`
		ElitismCount   int                    `json:"elitismCount"`
		TournamentSize int                    `json:"tournamentSize"`
		MaxGenerations int                    `json:"maxGenerations" validate:"min=0,max=100000"`
		Seed           int64                  `json:"seed"`
		Input          *domain.TimetableInput `json:"input"` // 为空时使用已保存的排课数据
	}{
		PopulationSize: h.config.GA.PopulationSize,
		MutationRate:   h.config.GA.MutationRate,
		CrossoverRate:  h.config.GA.CrossoverRate,
		ElitismCount:   h.config.GA.ElitismCount,
		TournamentSize: h.config.GA.TournamentSize,
		MaxGenerations: h.config.GA.MaxGenerations,
		Seed:           h.config.GA.Seed,
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 请求中带了排课数据时不需要读取已保存的数据
	input := req.Input
	if input == nil {
		stored, err := h.store.GetTimetableInput()
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		input = stored
	}

	s, err := scheduler.New(&scheduler.Parameters{
		GA: ga.Config{
			PopulationSize: req.PopulationSize,
			MutationRate:   req.MutationRate,
			CrossoverRate:  req.CrossoverRate,
			ElitismCount:   req.ElitismCount,
			TournamentSize: req.TournamentSize,
		},
		MaxGenerations: req.MaxGenerations,
		Seed:           req.Seed,
	}, *input)
	if err != nil {
		switch {
		case errors.Is(err, ga.ErrInvalidConfig), errors.Is(err, timetable.ErrInvalidInput):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	var observer ga.Observer
	if h.metrics != nil {
		observer = h.metrics
	}

	sub, _ := r.Context().Value(SubCtxKey).(string)
	slog.Info("开始排课", "run", s.RunID(), "sub", sub, "sessions", s.Timetable().SessionCount())

	result, err := s.Schedule(r.Context(), ga.NewLocalStrategy(h.config.Cluster.Workers), observer)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveFinal(result)
	}

	if !result.Solved {
		h.successResponse(w, r, "未能找到没有冲突的课表，返回迭代中最好的结果", result)
		return
	}
	h.successResponse(w, r, "排课成功", result)
}
