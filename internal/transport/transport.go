package transport

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/Pentahill/inopsflow/internal/protocol"
)

const (
	HeaderSearchKey     = "X-Search-Key"
	HeaderAuthorization = "Authorization"
	HeaderAccept        = "Accept"
	ContentTypeSSE      = "text/event-stream"

	searchKeyParam = "searchKey"
)

// Sink 接收规范化事件的回调
// 同一订阅的回调按到达顺序串行调用，不会并发
type Sink func(ctx context.Context, evt protocol.Event)

// State 订阅的状态
type State int32

const (
	StateConnecting State = iota
	StateStreaming
	StateClosed
	StateErrored
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Subscription 一个会话事件流订阅的句柄
type Subscription interface {
	// ID 订阅标识，用于日志关联
	ID() string
	// Cancel 取消订阅；完成后调用为空操作
	Cancel()
	// Done 读循环退出后关闭
	Done() <-chan struct{}
	// State 返回当前状态
	State() State
}

// Subscriber 能够订阅会话事件流的组件
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID string, sink Sink) Subscription
}

// SetCredential 同时以自定义头和 Authorization 头附加 SearchKey
func SetCredential(h http.Header, searchKey string) {
	h.Set(HeaderSearchKey, searchKey)
	h.Set(HeaderAuthorization, "SearchKey "+searchKey)
}

// WithSearchKeyQuery 在路径后附加 searchKey 查询参数
func WithSearchKeyQuery(baseURL, path, searchKey string) string {
	return baseURL + path + "?" + searchKeyParam + "=" + url.QueryEscape(searchKey)
}

// SessionURL 返回会话事件流地址
func SessionURL(baseURL, sessionID, searchKey string) string {
	return WithSearchKeyQuery(baseURL, "/sse/session/"+url.PathEscape(sessionID), searchKey)
}

// NormalizeBaseURL 修剪空白并去掉一个结尾斜杠
func NormalizeBaseURL(baseURL string) string {
	return strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
}
