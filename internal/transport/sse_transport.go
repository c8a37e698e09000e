package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/Pentahill/inopsflow/internal/envelope"
	"github.com/Pentahill/inopsflow/internal/protocol"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/syncx"
	"github.com/zeromicro/go-zero/core/threading"
	"github.com/zeromicro/go-zero/rest/httpc"
)

// SessionStreamOptional SessionStream 的配置
type SessionStreamOptional struct {
	// BaseURL 服务地址，不带结尾斜杠
	BaseURL string
	// SearchKey 公开凭据
	SearchKey string
	// Service 发起请求的 httpc 服务；为 nil 时创建一个默认服务
	Service httpc.Service
}

// SessionStream 会话事件流客户端，每次 Subscribe 拥有一个独立的连接
type SessionStream struct {
	baseURL   string
	searchKey string
	service   httpc.Service
}

// NewSessionStream 创建会话事件流客户端
func NewSessionStream(opt *SessionStreamOptional) *SessionStream {
	if opt == nil {
		opt = &SessionStreamOptional{}
	}

	svc := opt.Service
	if svc == nil {
		svc = httpc.NewServiceWithClient("inopsflow-sse", &http.Client{})
	}

	return &SessionStream{
		baseURL:   NormalizeBaseURL(opt.BaseURL),
		searchKey: opt.SearchKey,
		service:   svc,
	}
}

// Subscribe 打开会话事件流，并把规范化事件依次推送给 sink
// 连接与流式阶段的失败都以 flow-error 事件交给 sink，不会通过返回值抛出
// 调用方取消（Cancel 或 ctx 取消）不会产生 flow-error
func (s *SessionStream) Subscribe(ctx context.Context, sessionID string, sink Sink) Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &sseSubscription{
		id:        uuid.NewString(),
		sessionID: sessionID,
		cancel:    cancel,
		cancelled: syncx.NewAtomicBool(),
		done:      make(chan struct{}),
	}

	threading.GoSafe(func() {
		s.run(ctx, sub, sink)
	})

	return sub
}

func (s *SessionStream) run(ctx context.Context, sub *sseSubscription, sink Sink) {
	defer close(sub.done)
	defer sub.cancel()

	logger := logx.WithContext(ctx)
	url := SessionURL(s.baseURL, sub.sessionID, s.searchKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		sub.fail(ctx, sink, protocol.WrapError(protocol.KindNetwork, err.Error(), err))
		return
	}
	SetCredential(req.Header, s.searchKey)
	req.Header.Set(HeaderAccept, ContentTypeSSE)

	resp, err := s.service.DoRequest(req)
	if err != nil {
		if sub.aborted(ctx) {
			sub.setState(StateAborted)
			logger.Debugf("Subscription aborted before connect, session_id=%s, subscription_id=%s", sub.sessionID, sub.id)
			return
		}
		logger.Errorf("Failed to connect session stream, session_id=%s, error=%v", sub.sessionID, err)
		sub.fail(ctx, sink, protocol.WrapError(protocol.KindNetwork, err.Error(), err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices || resp.Body == http.NoBody {
		msg := fmt.Sprintf("SSE connection failed: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		logger.Errorf("Session stream rejected, session_id=%s, status=%d", sub.sessionID, resp.StatusCode)
		sub.fail(ctx, sink, &protocol.Error{Kind: protocol.KindSSEConnection, Message: msg, Status: resp.StatusCode})
		return
	}

	sub.setState(StateStreaming)
	logger.Debugf("Session stream opened, session_id=%s, subscription_id=%s", sub.sessionID, sub.id)

	dec := NewDecoder()
	for frame, err := range dec.Frames(ctx, resp.Body) {
		if err != nil {
			if sub.aborted(ctx) {
				break
			}
			logger.Errorf("Session stream read failed, session_id=%s, error=%v", sub.sessionID, err)
			sub.fail(ctx, sink, protocol.WrapError(protocol.KindNetwork, err.Error(), err))
			return
		}

		evt, ok := envelope.Normalize(frame.Data, frame.Name)
		if !ok {
			continue
		}
		if !sub.emit(ctx, sink, evt) {
			break
		}
		if evt.IsTerminal() {
			logger.Debugf("Terminal event delivered, session_id=%s, event=%s", sub.sessionID, evt.Kind)
		}
	}

	sub.setState(StateClosed)
	logger.Debugf("Session stream closed, session_id=%s, subscription_id=%s", sub.sessionID, sub.id)
}

type sseSubscription struct {
	id        string
	sessionID string
	cancel    context.CancelFunc
	cancelled *syncx.AtomicBool
	state     atomic.Int32
	done      chan struct{}
}

func (s *sseSubscription) ID() string {
	return s.id
}

// Cancel 取消订阅，只有第一次调用生效
func (s *sseSubscription) Cancel() {
	if s.cancelled.CompareAndSwap(false, true) {
		s.cancel()
	}
}

func (s *sseSubscription) Done() <-chan struct{} {
	return s.done
}

func (s *sseSubscription) State() State {
	return State(s.state.Load())
}

func (s *sseSubscription) setState(state State) {
	s.state.Store(int32(state))
}

// aborted 调用方取消时为 true，此时读循环静默退出
func (s *sseSubscription) aborted(ctx context.Context) bool {
	return s.cancelled.True() || ctx.Err() != nil
}

// emit 推送一个事件；已取消时不再推送并返回 false
// sink 内的 panic 被吞掉，不影响后续帧
func (s *sseSubscription) emit(ctx context.Context, sink Sink, evt protocol.Event) bool {
	if s.aborted(ctx) {
		return false
	}

	threading.RunSafe(func() {
		sink(ctx, evt)
	})
	return true
}

func (s *sseSubscription) fail(ctx context.Context, sink Sink, err *protocol.Error) {
	s.setState(StateErrored)
	s.emit(ctx, sink, protocol.FlowErrorEvent(err))
}
