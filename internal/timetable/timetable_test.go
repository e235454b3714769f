package timetable

import (
	"testing"

	"github.com/ionutmarisca/School-Timetable-AI/internal/domain"
	"github.com/ionutmarisca/School-Timetable-AI/internal/ga"
	"github.com/ionutmarisca/School-Timetable-AI/internal/seed"
	"github.com/ionutmarisca/School-Timetable-AI/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 两个小组各上一门课
func smallInput() domain.TimetableInput {
	return domain.TimetableInput{
		Rooms: []domain.Room{
			{ID: 1, Number: "A", Capacity: 10},
			{ID: 2, Number: "B", Capacity: 40},
		},
		Timeslots: []domain.Timeslot{
			{ID: 1, Label: "Mon"},
			{ID: 2, Label: "Tue"},
		},
		Professors: []domain.Professor{
			{ID: 1, Name: "P1"},
			{ID: 2, Name: "P2"},
		},
		Modules: []domain.Module{
			{ID: 1, Code: "m1", Name: "M1", ProfessorIDs: []int{1}},
			{ID: 2, Code: "m2", Name: "M2", ProfessorIDs: []int{1, 2}},
		},
		Groups: []domain.Group{
			{ID: 1, Size: 20, ModuleIDs: []int{1}},
			{ID: 2, Size: 5, ModuleIDs: []int{2}},
		},
	}
}

func newSmall(t *testing.T) *Timetable {
	t.Helper()

	tt, err := New(smallInput())
	require.NoError(t, err)
	return tt
}

func TestNewValidatesInput(t *testing.T) {
	tests := []struct {
		name   string
		modify func(input *domain.TimetableInput)
	}{
		{"no rooms", func(input *domain.TimetableInput) { input.Rooms = nil }},
		{"no timeslots", func(input *domain.TimetableInput) { input.Timeslots = nil }},
		{"module without professors", func(input *domain.TimetableInput) { input.Modules[0].ProfessorIDs = nil }},
		{"unknown professor", func(input *domain.TimetableInput) { input.Modules[1].ProfessorIDs = []int{9} }},
		{"unknown module", func(input *domain.TimetableInput) { input.Groups[0].ModuleIDs = []int{9} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := smallInput()
			tt.modify(&input)

			_, err := New(input)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSessionsFollowGroupOrder(t *testing.T) {
	tt, err := New(seed.SampleInput())
	require.NoError(t, err)

	assert.Equal(t, 22, tt.SessionCount())
	// 第一个小组的课程为 1, 3, 4
	assert.Equal(t, 1, tt.SessionModuleID(0))
	assert.Equal(t, 3, tt.SessionModuleID(1))
	assert.Equal(t, 4, tt.SessionModuleID(2))
	assert.Equal(t, 2, tt.SessionModuleID(3))
}

func TestRandomIDsComeFromInput(t *testing.T) {
	tt := newSmall(t)
	rng := utils.NewRand(4)

	for i := 0; i < 100; i++ {
		_, ok := tt.Room(tt.RandomRoomID(rng))
		assert.True(t, ok)
		_, ok = tt.Timeslot(tt.RandomTimeslotID(rng))
		assert.True(t, ok)
		assert.Equal(t, 1, tt.RandomProfessorID(rng, 1))
		assert.Contains(t, []int{1, 2}, tt.RandomProfessorID(rng, 2))
	}
}

func TestCreateClasses(t *testing.T) {
	tt := newSmall(t)

	classes, err := tt.CreateClasses([]int{1, 2, 1, 2, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []domain.Class{
		{ID: 0, GroupID: 1, ModuleID: 1, TimeslotID: 1, RoomID: 2, ProfessorID: 1},
		{ID: 1, GroupID: 2, ModuleID: 2, TimeslotID: 2, RoomID: 1, ProfessorID: 2},
	}, classes)

	_, err = tt.CreateClasses([]int{1, 2, 1})
	assert.ErrorIs(t, err, ErrChromosomeLength)

	_, err = tt.CreateClasses([]int{1, 2, 1, 2, 7, 2})
	assert.ErrorIs(t, err, ErrUnknownID)
}

func TestClashCount(t *testing.T) {
	tt := newSmall(t)

	tests := []struct {
		name       string
		chromosome []int
		want       int
	}{
		{"no clash", []int{1, 2, 1, 2, 1, 2}, 0},
		{"room too small", []int{1, 1, 1, 2, 2, 2}, 1},
		{"same room and timeslot", []int{1, 2, 1, 1, 2, 2}, 2},
		{"same professor and timeslot", []int{1, 2, 1, 1, 1, 1}, 2},
		{"everything clashes", []int{1, 1, 1, 1, 1, 1}, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clashes, err := tt.ClashCount(tc.chromosome)
			require.NoError(t, err)
			assert.Equal(t, tc.want, clashes)
		})
	}
}

func TestCodecRoundTrip(t *testing.T) {
	tt := newSmall(t)

	data, err := Codec{}.EncodeState(tt)
	require.NoError(t, err)

	ev, err := Codec{}.DecodeState(data)
	require.NoError(t, err)
	assert.Equal(t, tt.SessionCount(), ev.SessionCount())

	chromosome := []int{1, 1, 1, 1, 1, 1}
	want, _ := tt.ClashCount(chromosome)
	got, err := ev.ClashCount(chromosome)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTimetableAsEvaluator(t *testing.T) {
	tt, err := New(seed.SampleInput())
	require.NoError(t, err)

	ind := ga.NewRandomIndividual(tt, utils.NewRand(11))
	fitness, err := ga.CalcFitness(ind, tt)
	require.NoError(t, err)

	clashes, err := tt.ClashCount(ind.Chromosome())
	require.NoError(t, err)
	assert.Equal(t, 1/float64(clashes+1), fitness)
}
