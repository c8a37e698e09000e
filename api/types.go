package inopsflow

import (
	inops "github.com/Pentahill/inopsflow/internal"
	"github.com/Pentahill/inopsflow/internal/protocol"
	"github.com/Pentahill/inopsflow/internal/transport"
)

// 以下类型从 internal 重导出，供应用层使用。

// Client flow 客户端。
type Client = inops.Client

// Config 客户端配置，可通过 LoadConfig 从文件加载。
type Config = inops.Config

// ClientOptional 创建 Client 时的可选配置。
type ClientOptional = inops.ClientOptional

// RequestOptional 单次调用的可选参数。
type RequestOptional = inops.RequestOptional

// FlowRequest flow 启动请求。
type FlowRequest = protocol.FlowRequest

// UserInput 用户意图，使用 SearchInput 或 CampaignInput 构造。
type UserInput = protocol.UserInput

// FlowStartResponse 启动响应，SessionID 可能为空。
type FlowStartResponse = protocol.FlowStartResponse

// SearchResult 聚合结果：摘要与按 productId 去重的商品。
type SearchResult = protocol.SearchResult

// Event 规范化后的会话事件。
type Event = protocol.Event

// EventKind 事件类别。
type EventKind = protocol.EventKind

// Widget 及其具体类型。
type (
	Widget        = protocol.Widget
	TextWidget    = protocol.TextWidget
	ProductWidget = protocol.ProductWidget
	OpaqueWidget  = protocol.OpaqueWidget
)

// Error SDK 统一错误类型。
type Error = protocol.Error

// ErrorKind 错误分类。
type ErrorKind = protocol.ErrorKind

// Sink 会话事件回调。
type Sink = transport.Sink

// Subscription 会话订阅句柄。
type Subscription = transport.Subscription

// State 订阅状态。
type State = transport.State

const (
	EventKindWidgets   = protocol.EventKindWidgets
	EventKindFlowEnd   = protocol.EventKindFlowEnd
	EventKindFlowError = protocol.EventKindFlowError
	EventKindRaw       = protocol.EventKindRaw
)

// 错误分类哨兵值，配合 errors.Is 使用。
var (
	ErrValidation     = protocol.ErrValidation
	ErrNetwork        = protocol.ErrNetwork
	ErrHTTP           = protocol.ErrHTTP
	ErrJSONParse      = protocol.ErrJSONParse
	ErrSSEConnection  = protocol.ErrSSEConnection
	ErrFlow           = protocol.ErrFlow
	ErrMalformedFrame = protocol.ErrMalformedFrame
	ErrCancelled      = protocol.ErrCancelled
)
