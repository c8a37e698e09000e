package protocol

import "encoding/json"

// 终止类事件名
const (
	EventFlowEnd      = "flow-end"
	EventEnd          = "end"
	EventFlowError    = "flow-error"
	EventFlowsError   = "flows-error"
	DefaultFlowErrMsg = "Flow error"
	// ParseErrorMarker 标记无法解析为 JSON 的 data 帧
	ParseErrorMarker = "parse_error"
)

// EventKind 规范化事件的类别
type EventKind int

const (
	// EventKindWidgets 携带 widgets 的事件
	EventKindWidgets EventKind = iota
	// EventKindFlowEnd flow 结束标记
	EventKindFlowEnd
	// EventKindFlowError flow 错误标记
	EventKindFlowError
	// EventKindRaw 无法解析的原始帧
	EventKindRaw
)

func (k EventKind) String() string {
	switch k {
	case EventKindWidgets:
		return "widgets"
	case EventKindFlowEnd:
		return "flow-end"
	case EventKindFlowError:
		return "flow-error"
	case EventKindRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Event 规范化后的事件，每帧新建一个，由聚合器立即消费
type Event struct {
	Kind EventKind
	// Name 事件标签（envelope 中的 event，或者粘滞事件名）
	Name string
	// Widgets 仅 EventKindWidgets 有值
	Widgets []Widget
	// Err 仅 EventKindFlowError 与 EventKindRaw 有值
	Err *Error
	// Raw EventKindRaw 时为原始文本
	Raw string
	// Envelope 规范化后的 envelope，供透传消费者读取任一形状
	Envelope json.RawMessage
}

// Message 返回错误事件的消息
func (e Event) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Message
}

// IsTerminal 是否为 flow-end 或 flow-error
func (e Event) IsTerminal() bool {
	return e.Kind == EventKindFlowEnd || e.Kind == EventKindFlowError
}

// FlowErrorEvent 构造一个 flow-error 事件
func FlowErrorEvent(err *Error) Event {
	return Event{Kind: EventKindFlowError, Name: EventFlowError, Err: err}
}
