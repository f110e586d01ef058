package logger

import (
	"context"
	log "log/slog"
)

// TraceIDKey Context 中的追踪键，HTTP 请求与后台扫描任务共用
const TraceIDKey = "trace_id"

// ContextHandler 包装器，把 ctx 里的 trace_id 附加到每条日志
type ContextHandler struct {
	log.Handler
}

func (h *ContextHandler) Handle(ctx context.Context, r log.Record) error {
	if ctx == nil {
		return h.Handler.Handle(ctx, r)
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		r.AddAttrs(log.String("trace_id", traceID))
	}
	return h.Handler.Handle(ctx, r)
}
