package mockserver

import (
	"sync"

	"github.com/Pentahill/inopsflow/internal/protocol"

	"github.com/zeromicro/go-zero/core/logx"
)

// Session 一个已启动的 flow 会话
type Session struct {
	ID      string
	Request *protocol.FlowRequest
	Steps   []Step

	mu          sync.Mutex
	connections int
	closed      bool
}

// Connect 记录一次事件流连接，返回当前连接次数
func (s *Session) Connect() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections++
	return s.connections
}

// Connections 返回事件流连接次数
func (s *Session) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections
}

// Close 关闭会话
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// IsClosed 检查会话是否已关闭
func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SessionManager 管理所有会话，事件流连接可以重放同一会话的步骤
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewSessionManager 创建会话管理器
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
	}
}

// Create 创建会话；同 ID 的会话（跟进轮次）被替换
func (sm *SessionManager) Create(sessionID string, req *protocol.FlowRequest, steps []Step) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if existing, ok := sm.sessions[sessionID]; ok {
		existing.Close()
		logx.Debugf("Replacing session for follow-up turn, session_id=%s", sessionID)
	}

	session := &Session{ID: sessionID, Request: req, Steps: steps}
	sm.sessions[sessionID] = session
	return session
}

// Get 获取会话，不存在或已关闭时返回 nil
func (sm *SessionManager) Get(sessionID string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, ok := sm.sessions[sessionID]
	if !ok || session.IsClosed() {
		return nil
	}
	return session
}

// Close 关闭并删除会话
func (sm *SessionManager) Close(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if session, ok := sm.sessions[sessionID]; ok {
		session.Close()
		delete(sm.sessions, sessionID)
	}
}

// ListSessions 列出所有活跃的 session ID
func (sm *SessionManager) ListSessions() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	ids := make([]string, 0, len(sm.sessions))
	for id, session := range sm.sessions {
		if !session.IsClosed() {
			ids = append(ids, id)
		}
	}
	return ids
}
