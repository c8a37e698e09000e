package mockserver

import (
	"io"
	"net/http"
	"time"

	"github.com/Pentahill/inopsflow/internal/transport"

	"github.com/zeromicro/go-zero/core/logx"
)

// SSEHandler 会话事件流端点，按顺序写出会话的步骤后结束响应
type SSEHandler struct {
	server *Server
}

func NewSSEHandler(server *Server) *SSEHandler {
	return &SSEHandler{server: server}
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if !h.server.authorized(req) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid search key"})
		return
	}

	sessionID := req.PathValue("sessionId")
	session := h.server.sessions.Get(sessionID)
	if session == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "session not found"})
		return
	}

	w.Header().Set("Content-Type", transport.ContentTypeSSE)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	n := session.Connect()
	logx.WithContext(ctx).Debugf("Session stream connected, session_id=%s, connections=%d", sessionID, n)

	for _, step := range session.Steps {
		if step.Delay > 0 {
			timer := time.NewTimer(step.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				logx.WithContext(ctx).Debugf("Client disconnected, session_id=%s", sessionID)
				return
			case <-timer.C:
			}
		}

		var err error
		if step.Raw != "" {
			_, err = io.WriteString(w, step.Raw)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		} else {
			_, err = transport.WriteFrame(w, step.Frame)
		}
		if err != nil {
			logx.WithContext(ctx).Errorf("Failed to write frame, session_id=%s, error=%v", sessionID, err)
			return
		}
	}
}
