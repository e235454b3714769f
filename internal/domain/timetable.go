package domain

type Room struct {
	ID       int    `json:"id"`
	Number   string `json:"number"`
	Capacity int    `json:"capacity"`
}

type Timeslot struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

type Professor struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Module 课程，ProfessorIDs 为可以担任这门课程的教师
type Module struct {
	ID           int    `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	ProfessorIDs []int  `json:"professorIDs"`
}

// Group 学生小组，ModuleIDs 为该小组需要上的课程
type Group struct {
	ID        int   `json:"id"`
	Size      int   `json:"size"`
	ModuleIDs []int `json:"moduleIDs"`
}

// Class 是排课结果中的一节课
type Class struct {
	ID          int `json:"id"`
	GroupID     int `json:"groupID"`
	ModuleID    int `json:"moduleID"`
	TimeslotID  int `json:"timeslotID"`
	RoomID      int `json:"roomID"`
	ProfessorID int `json:"professorID"`
}

// TimetableInput 是求解一次排课所需的全部数据
// 也作为分布式评估时发送给 worker 的快照
type TimetableInput struct {
	Rooms      []Room      `json:"rooms"`
	Timeslots  []Timeslot  `json:"timeslots"`
	Professors []Professor `json:"professors"`
	Modules    []Module    `json:"modules"`
	Groups     []Group     `json:"groups"`
}
