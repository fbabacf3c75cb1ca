package lifecycle

// StopReason records why the supervisor stopped. It is logged and stored with
// the "stopped" lifecycle event.
type StopReason string

const (
	StopUnknown     StopReason = "unknown"
	StopSIGINT      StopReason = "sigint"
	StopSIGTERM     StopReason = "sigterm"
	StopFatalError  StopReason = "fatal_error"
	StopAppStop     StopReason = "app_stop"
	StopTasksEnded  StopReason = "tasks_ended"
	StopRestart     StopReason = "restart"
	StopContextDone StopReason = "context_done"
)
