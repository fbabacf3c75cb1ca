package app

import "mycelium/internal/runtime/lifecycle"

type StopReason = lifecycle.StopReason

const (
	StopUnknown     = lifecycle.StopUnknown
	StopSIGINT      = lifecycle.StopSIGINT
	StopSIGTERM     = lifecycle.StopSIGTERM
	StopFatalError  = lifecycle.StopFatalError
	StopAppStop     = lifecycle.StopAppStop
	StopTasksEnded  = lifecycle.StopTasksEnded
	StopRestart     = lifecycle.StopRestart
	StopContextDone = lifecycle.StopContextDone
)
