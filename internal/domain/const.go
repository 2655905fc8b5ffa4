package domain

const (
	RequesterIdCtxKey  = "pr-requesterId"
	RequestTraceCtxKey = "pr-traceId"
)

const (
	// RequesterIdHeader is set by the upstream authentication gateway.
	RequesterIdHeader = "pr-requester-id"
)
