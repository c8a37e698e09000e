// Package mockserver 进程内的 flow 服务模拟实现，提供启动与会话事件流两个端点
package mockserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Pentahill/inopsflow/internal/protocol"
	"github.com/Pentahill/inopsflow/internal/transport"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/jsonx"
	"github.com/zeromicro/go-zero/core/logx"
)

// Step 会话事件流中的一步
type Step struct {
	Frame transport.Frame
	// Delay 写出本帧之前的等待时间
	Delay time.Duration
	// Raw 非空时原样写出，忽略 Frame，用于构造畸形或分段的输入
	Raw string
}

// FlowHandlerFunc 根据启动请求生成会话要推送的步骤
type FlowHandlerFunc func(ctx context.Context, req *protocol.FlowRequest) ([]Step, error)

// GetSessionID 为启动请求分配会话 ID 的函数类型
type GetSessionID func(req *protocol.FlowRequest) string

// ServerOptional 模拟服务的可选配置
type ServerOptional struct {
	// SearchKey 期望的凭据，为空时不校验
	SearchKey string
	// FlowHandler 为 nil 时使用 DefaultFlowHandler
	FlowHandler FlowHandlerFunc
	// GetSessionID 为 nil 时沿用请求中的 sessionId，否则生成新的
	GetSessionID GetSessionID
}

// Server 模拟 flow 服务
type Server struct {
	searchKey    string
	flowHandler  FlowHandlerFunc
	getSessionID GetSessionID
	sessions     *SessionManager
}

// NewServer 创建模拟服务。opt 可为 nil
func NewServer(opt *ServerOptional) *Server {
	server := &Server{
		flowHandler:  DefaultFlowHandler,
		getSessionID: defaultGetSessionID,
		sessions:     NewSessionManager(),
	}

	if opt != nil {
		server.searchKey = opt.SearchKey
		if opt.FlowHandler != nil {
			server.flowHandler = opt.FlowHandler
		}
		if opt.GetSessionID != nil {
			server.getSessionID = opt.GetSessionID
		}
	}

	return server
}

// defaultGetSessionID 跟进轮次沿用请求中的 sessionId，否则生成新的
func defaultGetSessionID(req *protocol.FlowRequest) string {
	if req.SessionID != "" {
		return req.SessionID
	}
	return uuid.NewString()
}

// Sessions 返回会话管理器
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Handler 返回挂载了两个端点的 http.Handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /shop/flow/execute", s.ServeExecute)
	mux.Handle("GET /sse/session/{sessionId}", NewSSEHandler(s))
	return mux
}

// ServeExecute 处理启动请求，创建会话并返回 sessionId
func (s *Server) ServeExecute(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if !s.authorized(req) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": "unauthorized", "message": "invalid search key"})
		return
	}

	var flowReq protocol.FlowRequest
	if err := jsonx.UnmarshalFromReader(req.Body, &flowReq); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": "invalid_request", "message": err.Error()})
		return
	}
	if err := flowReq.UserInput.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": "invalid_request", "message": err.Error()})
		return
	}

	steps, err := s.flowHandler(ctx, &flowReq)
	if err != nil {
		logx.WithContext(ctx).Errorf("Flow handler failed, type=%s, error=%v", flowReq.UserInput.Type, err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	sessionID := s.getSessionID(&flowReq)
	s.sessions.Create(sessionID, &flowReq, steps)
	logx.WithContext(ctx).Debugf("Flow session created, session_id=%s, steps=%d", sessionID, len(steps))

	writeJSON(w, http.StatusOK, map[string]any{"sessionId": sessionID, "status": "started"})
}

// authorized 接受自定义头、Authorization 头或查询参数中任意一种凭据
func (s *Server) authorized(req *http.Request) bool {
	if s.searchKey == "" {
		return true
	}

	candidates := []string{
		req.Header.Get(transport.HeaderSearchKey),
		strings.TrimPrefix(req.Header.Get(transport.HeaderAuthorization), "SearchKey "),
		req.URL.Query().Get("searchKey"),
	}
	for _, c := range candidates {
		if c == s.searchKey {
			return true
		}
	}
	return false
}

// DefaultFlowHandler 返回一条摘要、三个商品和 flow-end
func DefaultFlowHandler(_ context.Context, req *protocol.FlowRequest) ([]Step, error) {
	subject := req.UserInput.Value
	if req.UserInput.Type == protocol.InputTypeCampaign {
		subject = "campaign " + req.UserInput.CampaignID
	}

	var widgets []map[string]any
	widgets = append(widgets, map[string]any{"type": protocol.WidgetTypeText, "text": "Results for " + subject})
	for i := 1; i <= 3; i++ {
		widgets = append(widgets, map[string]any{
			"type":      protocol.WidgetTypeProduct,
			"productId": fmt.Sprintf("p%d", i),
			"title":     fmt.Sprintf("Product %d", i),
		})
	}

	data, err := jsonx.Marshal(map[string]any{"widgets": widgets})
	if err != nil {
		return nil, err
	}

	return []Step{
		{Frame: transport.Frame{Name: "flow-start", Data: `{"status":"running"}`}},
		{Frame: transport.Frame{Name: "widgets", Data: string(data)}},
		{Frame: transport.Frame{Name: protocol.EventFlowEnd, Data: `{}`}},
		{Raw: "data: " + transport.DoneSentinel + "\n\n"},
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := jsonx.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
