package protocol

import "errors"

// ErrorKind 错误分类
type ErrorKind string

const (
	// KindValidation 调用方输入不合法，在任何网络请求之前检测
	KindValidation ErrorKind = "validation"
	// KindNetwork 收到响应之前的传输失败
	KindNetwork ErrorKind = "network"
	// KindHTTP 非成功状态码
	KindHTTP ErrorKind = "http"
	// KindJSONParse 响应体不是合法 JSON
	KindJSONParse ErrorKind = "json_parse"
	// KindSSEConnection 事件流端点拒绝连接或没有响应体
	KindSSEConnection ErrorKind = "sse_connection"
	// KindFlow 服务端下发的 flow-error 帧
	KindFlow ErrorKind = "flow"
	// KindMalformedFrame data 帧负载非 JSON 且非空，可恢复
	KindMalformedFrame ErrorKind = "malformed_frame"
	// KindCancelled 调用方主动取消
	KindCancelled ErrorKind = "cancelled"
)

var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrNetwork        = &Error{Kind: KindNetwork}
	ErrHTTP           = &Error{Kind: KindHTTP}
	ErrJSONParse      = &Error{Kind: KindJSONParse}
	ErrSSEConnection  = &Error{Kind: KindSSEConnection}
	ErrFlow           = &Error{Kind: KindFlow}
	ErrMalformedFrame = &Error{Kind: KindMalformedFrame}
	ErrCancelled      = &Error{Kind: KindCancelled}
)

// Error SDK 统一错误类型
// Message 为面向用户的可读信息，Status 仅在 HTTP/SSE 连接错误时有值
type Error struct {
	Kind    ErrorKind
	Message string
	Status  int
	Err     error
}

// NewError 创建指定分类的错误
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError 创建携带底层原因的错误
func WrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 按分类比较，使 errors.Is(err, ErrHTTP) 之类的判断成立
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// KindOf 返回错误链中第一个 *Error 的分类，不存在时返回空
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
