package handler

import (
	"github.com/go-chi/chi/v5"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/ionutmarisca/School-Timetable-AI/internal/config"
	"github.com/ionutmarisca/School-Timetable-AI/internal/domain"
	"github.com/ionutmarisca/School-Timetable-AI/internal/report"
	"github.com/ionutmarisca/School-Timetable-AI/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InputStore 提供排课数据，*repository.Repository 和内置示例数据都实现了它
type InputStore interface {
	GetTimetableInput() (*domain.TimetableInput, error)
}

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	store      InputStore
	translator ut.Translator
	metrics    *report.Metrics
	gatherer   prometheus.Gatherer

	Mux *chi.Mux
}

// NewHandler 中 metrics 和 gatherer 可以为 nil，此时不暴露 /metrics
func NewHandler(cfg *config.Config, store InputStore, metrics *report.Metrics, gatherer prometheus.Gatherer) (*Handler, error) {
	validate, trans, err := utils.NewValidator()
	if err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		store:      store,
		translator: trans,
		metrics:    metrics,
		gatherer:   gatherer,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	if h.gatherer != nil {
		h.Mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	// 配置了 JWT 密钥时以下 API 需要携带令牌
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/timetables", func(r chi.Router) {
			r.With(h.timetableInput).Get("/input", h.GetTimetableInput)
			r.Post("/generate", h.GenerateTimetable)
		})
	})
}
