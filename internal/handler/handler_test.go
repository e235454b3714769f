package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ionutmarisca/School-Timetable-AI/internal/config"
	"github.com/ionutmarisca/School-Timetable-AI/internal/domain"
	"github.com/ionutmarisca/School-Timetable-AI/internal/report"
	"github.com/ionutmarisca/School-Timetable-AI/internal/seed"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.GA.PopulationSize = 10
	cfg.GA.MutationRate = 0.02
	cfg.GA.CrossoverRate = 0.9
	cfg.GA.ElitismCount = 1
	cfg.GA.TournamentSize = 3
	cfg.GA.MaxGenerations = 3
	cfg.GA.Seed = 1
	cfg.Cluster.Workers = 2
	return cfg
}

type brokenStore struct{}

func (brokenStore) GetTimetableInput() (*domain.TimetableInput, error) {
	return nil, errors.New("数据库不可用")
}

func newTestHandler(t *testing.T, cfg *config.Config) *Handler {
	t.Helper()
	return newTestHandlerWithStore(t, cfg, seed.SampleStore{})
}

func newTestHandlerWithStore(t *testing.T, cfg *config.Config, store InputStore) *Handler {
	t.Helper()

	reg := prometheus.NewRegistry()
	metrics, err := report.NewMetrics(reg)
	require.NoError(t, err)

	h, err := NewHandler(cfg, store, metrics, reg)
	require.NoError(t, err)
	h.RegisterRoutes()
	return h
}

func do(t *testing.T, h *Handler, req *http.Request) (*httptest.ResponseRecorder, response) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	var resp response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestGetTimetableInput(t *testing.T) {
	h := newTestHandler(t, testConfig())

	rec, resp := do(t, h, httptest.NewRequest(http.MethodGet, "/timetables/input", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	var input domain.TimetableInput
	require.NoError(t, json.Unmarshal(resp.Data, &input))
	assert.Len(t, input.Rooms, 4)
	assert.Len(t, input.Groups, 8)
}

func TestGenerateTimetable(t *testing.T) {
	h := newTestHandler(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/timetables/generate", strings.NewReader(`{"populationSize": 8, "maxGenerations": 2}`))
	rec, resp := do(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success, resp.Message)

	var final domain.FinalReport
	require.NoError(t, json.Unmarshal(resp.Data, &final))
	assert.Len(t, final.Classes, 22)
	assert.LessOrEqual(t, final.Generations, 3)
	assert.NotEmpty(t, final.RunID)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "timetable_runs_total")
}

const inlineInputBody = `{"input": {
		"rooms": [{"id": 1, "number": "A", "capacity": 30}],
		"timeslots": [{"id": 1, "label": "Mon"}, {"id": 2, "label": "Tue"}],
		"professors": [{"id": 1, "name": "P"}],
		"modules": [{"id": 1, "code": "m", "name": "M", "professorIDs": [1]}],
		"groups": [{"id": 1, "size": 10, "moduleIDs": [1]}]
	}}`

func TestGenerateTimetableWithInlineInput(t *testing.T) {
	h := newTestHandler(t, testConfig())

	_, resp := do(t, h, httptest.NewRequest(http.MethodPost, "/timetables/generate", strings.NewReader(inlineInputBody)))
	require.True(t, resp.Success, resp.Message)

	var final domain.FinalReport
	require.NoError(t, json.Unmarshal(resp.Data, &final))
	assert.Len(t, final.Classes, 1)
	assert.True(t, final.Solved)
}

func TestGenerateTimetableRejectsBadRequest(t *testing.T) {
	h := newTestHandler(t, testConfig())

	bodies := []string{
		``,
		`not json`,
		`{"populationSize": 8} {"populationSize": 9}`,
		`{"populationsize": 8, "unknown": true}`,
		`{"input": {"rooms": [], "floors": 3}}`,
		`{"tournamentSize": 50}`,
		`{"mutationRate": 1.5}`,
		`{"maxGenerations": 1000000}`,
		`{"input": {"rooms": []}}`,
	}

	for _, body := range bodies {
		rec, resp := do(t, h, httptest.NewRequest(http.MethodPost, "/timetables/generate", strings.NewReader(body)))
		assert.Equal(t, http.StatusOK, rec.Code, body)
		assert.False(t, resp.Success, body)
		assert.NotEmpty(t, resp.Message, body)
	}
}

func TestGenerateTimetableRejectsEmptyAndOversizedBody(t *testing.T) {
	h := newTestHandler(t, testConfig())

	_, resp := do(t, h, httptest.NewRequest(http.MethodPost, "/timetables/generate", strings.NewReader("")))
	assert.Equal(t, "请求体不能为空", resp.Message)

	big := `{"seed": 1, "input": {"rooms": [` + strings.Repeat(`{"id": 1, "number": "A", "capacity": 30},`, 30000) + `{"id": 2}]}}`
	_, resp = do(t, h, httptest.NewRequest(http.MethodPost, "/timetables/generate", strings.NewReader(big)))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "请求体不能超过")
}

func TestGenerateTimetableWithoutStore(t *testing.T) {
	h := newTestHandlerWithStore(t, testConfig(), brokenStore{})

	// 使用请求中的排课数据时不会读取已保存的数据
	rec, resp := do(t, h, httptest.NewRequest(http.MethodPost, "/timetables/generate", strings.NewReader(inlineInputBody)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success, resp.Message)

	rec, resp = do(t, h, httptest.NewRequest(http.MethodPost, "/timetables/generate", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/timetables/input", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.Secret = "secret"
	h := newTestHandler(t, cfg)

	_, resp := do(t, h, httptest.NewRequest(http.MethodGet, "/timetables/input", nil))
	assert.False(t, resp.Success)
	assert.Equal(t, "缺少令牌", resp.Message)

	req := httptest.NewRequest(http.MethodGet, "/timetables/input", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	_, resp = do(t, h, req)
	assert.False(t, resp.Success)
	assert.Equal(t, "无效的令牌", resp.Message)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	ss, err := token.SignedString([]byte(cfg.JWT.Secret))
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/timetables/input", nil)
	req.Header.Set("Authorization", "Bearer "+ss)
	_, resp = do(t, h, req)
	assert.True(t, resp.Success)

	// /metrics 不需要令牌
	rec, _ := do(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
