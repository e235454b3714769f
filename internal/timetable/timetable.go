package timetable

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/ionutmarisca/School-Timetable-AI/internal/domain"
)

var (
	ErrChromosomeLength = errors.New("染色体长度与课程数量不匹配")
	ErrUnknownID        = errors.New("染色体中存在未知的 id")
	ErrInvalidInput     = errors.New("排课数据不合法")
)

type session struct {
	groupID  int
	moduleID int
}

// Timetable 保存一次排课的全部数据，构造完成后只读，可以被多个 goroutine 同时使用
type Timetable struct {
	input domain.TimetableInput

	rooms      map[int]domain.Room
	timeslots  map[int]domain.Timeslot
	professors map[int]domain.Professor
	modules    map[int]domain.Module
	groups     map[int]domain.Group

	roomIDs     []int
	timeslotIDs []int
	sessions    []session
}

func New(input domain.TimetableInput) (*Timetable, error) {
	t := &Timetable{
		input:      input,
		rooms:      make(map[int]domain.Room),
		timeslots:  make(map[int]domain.Timeslot),
		professors: make(map[int]domain.Professor),
		modules:    make(map[int]domain.Module),
		groups:     make(map[int]domain.Group),
	}

	if len(input.Rooms) == 0 {
		return nil, fmt.Errorf("%w: 至少需要一个教室", ErrInvalidInput)
	}
	if len(input.Timeslots) == 0 {
		return nil, fmt.Errorf("%w: 至少需要一个时间段", ErrInvalidInput)
	}

	for _, room := range input.Rooms {
		t.rooms[room.ID] = room
		t.roomIDs = append(t.roomIDs, room.ID)
	}
	for _, timeslot := range input.Timeslots {
		t.timeslots[timeslot.ID] = timeslot
		t.timeslotIDs = append(t.timeslotIDs, timeslot.ID)
	}
	for _, professor := range input.Professors {
		t.professors[professor.ID] = professor
	}
	for _, module := range input.Modules {
		if len(module.ProfessorIDs) == 0 {
			return nil, fmt.Errorf("%w: 课程 %d 没有可以任课的教师", ErrInvalidInput, module.ID)
		}
		for _, professorID := range module.ProfessorIDs {
			if _, exists := t.professors[professorID]; !exists {
				return nil, fmt.Errorf("%w: 课程 %d 引用了不存在的教师 %d", ErrInvalidInput, module.ID, professorID)
			}
		}
		t.modules[module.ID] = module
	}

	// 按照小组、课程的顺序展开所有需要排的课，染色体中基因的顺序与此一致
	for _, group := range input.Groups {
		for _, moduleID := range group.ModuleIDs {
			if _, exists := t.modules[moduleID]; !exists {
				return nil, fmt.Errorf("%w: 小组 %d 引用了不存在的课程 %d", ErrInvalidInput, group.ID, moduleID)
			}
			t.sessions = append(t.sessions, session{groupID: group.ID, moduleID: moduleID})
		}
		t.groups[group.ID] = group
	}

	return t, nil
}

// Input 返回构造时使用的数据，用于序列化后发送给 worker
func (t *Timetable) Input() domain.TimetableInput {
	return t.input
}

func (t *Timetable) SessionCount() int {
	return len(t.sessions)
}

func (t *Timetable) SessionModuleID(i int) int {
	return t.sessions[i].moduleID
}

func (t *Timetable) RandomTimeslotID(rng *rand.Rand) int {
	return t.timeslotIDs[rng.Intn(len(t.timeslotIDs))]
}

func (t *Timetable) RandomRoomID(rng *rand.Rand) int {
	return t.roomIDs[rng.Intn(len(t.roomIDs))]
}

func (t *Timetable) RandomProfessorID(rng *rand.Rand, moduleID int) int {
	professorIDs := t.modules[moduleID].ProfessorIDs
	return professorIDs[rng.Intn(len(professorIDs))]
}

func (t *Timetable) Room(id int) (domain.Room, bool) {
	room, ok := t.rooms[id]
	return room, ok
}

func (t *Timetable) Timeslot(id int) (domain.Timeslot, bool) {
	timeslot, ok := t.timeslots[id]
	return timeslot, ok
}

func (t *Timetable) Professor(id int) (domain.Professor, bool) {
	professor, ok := t.professors[id]
	return professor, ok
}

func (t *Timetable) Module(id int) (domain.Module, bool) {
	module, ok := t.modules[id]
	return module, ok
}

// CreateClasses 将染色体还原为课表，每三个基因依次为时间段、教室、教师
func (t *Timetable) CreateClasses(chromosome []int) ([]domain.Class, error) {
	if len(chromosome) != 3*len(t.sessions) {
		return nil, fmt.Errorf("%w: 期望 %d, 实际 %d", ErrChromosomeLength, 3*len(t.sessions), len(chromosome))
	}

	classes := make([]domain.Class, len(t.sessions))
	for i, s := range t.sessions {
		class := domain.Class{
			ID:          i,
			GroupID:     s.groupID,
			ModuleID:    s.moduleID,
			TimeslotID:  chromosome[3*i],
			RoomID:      chromosome[3*i+1],
			ProfessorID: chromosome[3*i+2],
		}

		if _, exists := t.timeslots[class.TimeslotID]; !exists {
			return nil, fmt.Errorf("%w: 时间段 %d", ErrUnknownID, class.TimeslotID)
		}
		if _, exists := t.rooms[class.RoomID]; !exists {
			return nil, fmt.Errorf("%w: 教室 %d", ErrUnknownID, class.RoomID)
		}
		if _, exists := t.professors[class.ProfessorID]; !exists {
			return nil, fmt.Errorf("%w: 教师 %d", ErrUnknownID, class.ProfessorID)
		}

		classes[i] = class
	}

	return classes, nil
}

/**
 * 计算课表中的冲突数量，每节课最多贡献三个冲突：
 * 		1. 教室容量小于小组人数
 * 		2. 同一时间段同一教室有其他课
 * 		3. 同一时间段同一教师有其他课
 */
func (t *Timetable) CalcClashes(classes []domain.Class) int {
	clashes := 0

	for _, a := range classes {
		if t.rooms[a.RoomID].Capacity < t.groups[a.GroupID].Size {
			clashes++
		}

		for _, b := range classes {
			if a.ID != b.ID && a.RoomID == b.RoomID && a.TimeslotID == b.TimeslotID {
				clashes++
				break
			}
		}

		for _, b := range classes {
			if a.ID != b.ID && a.ProfessorID == b.ProfessorID && a.TimeslotID == b.TimeslotID {
				clashes++
				break
			}
		}
	}

	return clashes
}

func (t *Timetable) ClashCount(chromosome []int) (int, error) {
	classes, err := t.CreateClasses(chromosome)
	if err != nil {
		return 0, err
	}
	return t.CalcClashes(classes), nil
}
