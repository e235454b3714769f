package seed

import (
	"fmt"
	"math/rand"

	"github.com/ionutmarisca/School-Timetable-AI/internal/domain"
)

// SampleInput 返回默认的示例排课数据：4 个教室、15 个时间段、4 位教师、6 门课程、8 个小组
func SampleInput() domain.TimetableInput {
	return domain.TimetableInput{
		Rooms: []domain.Room{
			{ID: 1, Number: "100", Capacity: 15},
			{ID: 2, Number: "101", Capacity: 30},
			{ID: 4, Number: "102", Capacity: 20},
			{ID: 5, Number: "103", Capacity: 25},
		},
		Timeslots: []domain.Timeslot{
			{ID: 1, Label: "Luni 9:00 - 11:00"},
			{ID: 2, Label: "Luni 11:00 - 13:00"},
			{ID: 3, Label: "Luni 13:00 - 15:00"},
			{ID: 4, Label: "Marti 9:00 - 11:00"},
			{ID: 5, Label: "Marti 11:00 - 13:00"},
			{ID: 6, Label: "Marti 13:00 - 15:00"},
			{ID: 7, Label: "Marti 9:00 - 11:00"},
			{ID: 8, Label: "Miercuri 11:00 - 13:00"},
			{ID: 9, Label: "Miercuri 13:00 - 15:00"},
			{ID: 10, Label: "Joi 9:00 - 11:00"},
			{ID: 11, Label: "Joi 11:00 - 13:00"},
			{ID: 12, Label: "Joi 13:00 - 15:00"},
			{ID: 13, Label: "Vineri 9:00 - 11:00"},
			{ID: 14, Label: "Vineri 11:00 - 13:00"},
			{ID: 15, Label: "Vineri 13:00 - 15:00"},
		},
		Professors: []domain.Professor{
			{ID: 1, Name: "Pop Ioan"},
			{ID: 2, Name: "Avram Diana"},
			{ID: 3, Name: "Mihalache Andrei"},
			{ID: 4, Name: "Ivan Raluca"},
		},
		Modules: []domain.Module{
			{ID: 1, Code: "asc", Name: "ASC", ProfessorIDs: []int{1, 2}},
			{ID: 2, Code: "lct", Name: "Logica Computationala", ProfessorIDs: []int{1, 3}},
			{ID: 3, Code: "fp", Name: "Fundamentele Programarii", ProfessorIDs: []int{1, 2}},
			{ID: 4, Code: "rdc", Name: "Retele De Calculatoare", ProfessorIDs: []int{3, 4}},
			{ID: 5, Code: "map", Name: "Metode Avansate De Programare", ProfessorIDs: []int{4}},
			{ID: 6, Code: "pw", Name: "Programare Web", ProfessorIDs: []int{1, 4}},
		},
		Groups: []domain.Group{
			{ID: 1, Size: 10, ModuleIDs: []int{1, 3, 4}},
			{ID: 2, Size: 30, ModuleIDs: []int{2, 3, 5, 6}},
			{ID: 3, Size: 18, ModuleIDs: []int{3, 4, 5}},
			{ID: 4, Size: 25, ModuleIDs: []int{1, 4}},
			{ID: 5, Size: 20, ModuleIDs: []int{2, 3, 5}},
			{ID: 6, Size: 22, ModuleIDs: []int{1, 4, 5}},
			{ID: 7, Size: 16, ModuleIDs: []int{1, 3}},
			{ID: 8, Size: 18, ModuleIDs: []int{2, 6}},
		},
	}
}

// RandomInput 生成随机的排课数据，用于压测更大的规模
func RandomInput(rng *rand.Rand, rooms, timeslots, professors, modules, groups int) domain.TimetableInput {
	input := domain.TimetableInput{}

	for i := 1; i <= rooms; i++ {
		input.Rooms = append(input.Rooms, domain.Room{
			ID:       i,
			Number:   fmt.Sprintf("%d", 100+i),
			Capacity: 10 + rng.Intn(31),
		})
	}

	for i := 1; i <= timeslots; i++ {
		input.Timeslots = append(input.Timeslots, domain.Timeslot{
			ID:    i,
			Label: fmt.Sprintf("T%02d", i),
		})
	}

	for i := 1; i <= professors; i++ {
		input.Professors = append(input.Professors, domain.Professor{
			ID:   i,
			Name: fmt.Sprintf("Profesor %d", i),
		})
	}

	for i := 1; i <= modules; i++ {
		// 每门课随机选 1 到 3 位教师
		perm := rng.Perm(professors)
		n := min(1+rng.Intn(3), professors)
		professorIDs := make([]int, n)
		for j := 0; j < n; j++ {
			professorIDs[j] = perm[j] + 1
		}

		input.Modules = append(input.Modules, domain.Module{
			ID:           i,
			Code:         fmt.Sprintf("m%d", i),
			Name:         fmt.Sprintf("Modul %d", i),
			ProfessorIDs: professorIDs,
		})
	}

	for i := 1; i <= groups; i++ {
		perm := rng.Perm(modules)
		n := min(1+rng.Intn(4), modules)
		moduleIDs := make([]int, n)
		for j := 0; j < n; j++ {
			moduleIDs[j] = perm[j] + 1
		}

		input.Groups = append(input.Groups, domain.Group{
			ID:        i,
			Size:      10 + rng.Intn(21),
			ModuleIDs: moduleIDs,
		})
	}

	return input
}

// SampleStore 在没有配置数据库时提供内置的示例数据
type SampleStore struct{}

func (SampleStore) GetTimetableInput() (*domain.TimetableInput, error) {
	input := SampleInput()
	return &input, nil
}
