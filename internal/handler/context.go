package handler

type ContextKey string

var (
	SubCtxKey   ContextKey = "sub"
	InputCtxKey ContextKey = "timetableInput"
)
