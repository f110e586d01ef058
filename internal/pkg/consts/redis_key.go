package consts

const (
	LiveQueueAllKey   = "live:queue:all"
	LiveQueueAgentKey = "live:queue:agent:"
	DispatchChannel   = "live:dispatch:events"
)

const (
	ReminderSweepLock = "lock:reminder:sweep"
)
