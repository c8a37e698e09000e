// Package envelope 把推送帧的各种响应形状规范化为统一的事件
package envelope

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/Pentahill/inopsflow/internal/protocol"

	"github.com/zeromicro/go-zero/core/jsonx"
)

// shapedEnvelope 已成形的 envelope：顶层带 event/response，或者 data 下带 event/response
type shapedEnvelope struct {
	Event    json.RawMessage `json:"event"`
	Response json.RawMessage `json:"response"`
	Data     json.RawMessage `json:"data"`
	Error    json.RawMessage `json:"error"`
	Message  json.RawMessage `json:"message"`
}

// nestedEnvelope data 字段下的内层形状
type nestedEnvelope struct {
	Event    json.RawMessage `json:"event"`
	Response json.RawMessage `json:"response"`
	Error    json.RawMessage `json:"error"`
	Message  json.RawMessage `json:"message"`
}

type responseBody struct {
	Widgets json.RawMessage `json:"widgets"`
	Error   json.RawMessage `json:"error"`
	Message json.RawMessage `json:"message"`
}

// Normalize 把一帧原始负载规范化为事件
// 第二个返回值为 false 表示该帧被丢弃（空负载）
func Normalize(payload, eventName string) (protocol.Event, bool) {
	raw := []byte(payload)
	if !json.Valid(raw) {
		return unparseable(payload, eventName)
	}

	if env, nested, ok := decodeShaped(raw); ok {
		return categorize(eventOf(env, nested), env, nested, json.RawMessage(raw)), true
	}

	return wrapWithEventName(raw, eventName), true
}

// unparseable 非 JSON 负载：非空时以原文和粘滞事件名产出 raw 事件
func unparseable(payload, eventName string) (protocol.Event, bool) {
	if strings.TrimSpace(payload) == "" {
		return protocol.Event{}, false
	}

	envelope, _ := jsonx.Marshal(map[string]any{
		"event": nullable(eventName),
		"data":  payload,
		"error": protocol.ParseErrorMarker,
	})
	return protocol.Event{
		Kind:     protocol.EventKindRaw,
		Name:     eventName,
		Raw:      payload,
		Err:      protocol.NewError(protocol.KindMalformedFrame, protocol.ParseErrorMarker),
		Envelope: envelope,
	}, true
}

// decodeShaped 尝试按已成形的 envelope 解码，非对象或缺少标志字段时返回 false
func decodeShaped(raw []byte) (shapedEnvelope, nestedEnvelope, bool) {
	var env shapedEnvelope
	var nested nestedEnvelope
	if err := jsonx.Unmarshal(raw, &env); err != nil {
		return env, nested, false
	}
	// data 也可能是字符串或数组，此时当作没有内层形状
	if truthy(env.Data) {
		if err := jsonx.Unmarshal(env.Data, &nested); err != nil {
			nested = nestedEnvelope{}
		}
	}

	shaped := truthy(env.Event) || truthy(env.Response) || truthy(nested.Event) || truthy(nested.Response)
	return env, nested, shaped
}

// wrapWithEventName 未成形的负载：粘滞事件名作为事件标签，整个值作为 response，
// 同时在 data 下保留一份副本
func wrapWithEventName(raw []byte, eventName string) protocol.Event {
	inner := map[string]any{
		"event":    nullable(eventName),
		"response": json.RawMessage(raw),
	}
	envelope, _ := jsonx.Marshal(map[string]any{
		"event":    nullable(eventName),
		"response": json.RawMessage(raw),
		"data":     inner,
	})

	env := shapedEnvelope{Response: raw}
	nested := nestedEnvelope{Response: raw}
	return categorize(strings.TrimSpace(eventName), env, nested, envelope)
}

func categorize(name string, env shapedEnvelope, nested nestedEnvelope, envelope json.RawMessage) protocol.Event {
	switch name {
	case protocol.EventFlowEnd, protocol.EventEnd:
		return protocol.Event{Kind: protocol.EventKindFlowEnd, Name: name, Envelope: envelope}
	case protocol.EventFlowError, protocol.EventFlowsError:
		return protocol.Event{
			Kind:     protocol.EventKindFlowError,
			Name:     name,
			Err:      protocol.NewError(protocol.KindFlow, errorMessage(env, nested)),
			Envelope: envelope,
		}
	default:
		return protocol.Event{
			Kind:     protocol.EventKindWidgets,
			Name:     name,
			Widgets:  protocol.DecodeWidgets(widgetsOf(env, nested)),
			Envelope: envelope,
		}
	}
}

func eventOf(env shapedEnvelope, nested nestedEnvelope) string {
	if name := stringOf(env.Event); name != "" {
		return strings.TrimSpace(name)
	}
	return strings.TrimSpace(stringOf(nested.Event))
}

// widgetsOf 优先读 response.widgets，其次 data.response.widgets
func widgetsOf(env shapedEnvelope, nested nestedEnvelope) json.RawMessage {
	if w := responseOf(env.Response).Widgets; truthy(w) {
		return w
	}
	return responseOf(nested.Response).Widgets
}

// errorMessage 依次读取 error、message，再到 data 与 response 中查找，都没有时使用默认消息
func errorMessage(env shapedEnvelope, nested nestedEnvelope) string {
	resp := responseOf(env.Response)
	candidates := []json.RawMessage{
		env.Error, env.Message,
		nested.Error, nested.Message,
		resp.Error, resp.Message,
	}
	for _, c := range candidates {
		if msg := messageOf(c); msg != "" {
			return msg
		}
	}
	return protocol.DefaultFlowErrMsg
}

func responseOf(raw json.RawMessage) responseBody {
	var body responseBody
	if truthy(raw) {
		_ = jsonx.Unmarshal(raw, &body)
	}
	return body
}

// messageOf 字符串直接返回；对象读取其 message 字段
func messageOf(raw json.RawMessage) string {
	if s := stringOf(raw); s != "" {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if truthy(raw) && jsonx.Unmarshal(raw, &obj) == nil {
		return obj.Message
	}
	return ""
}

func stringOf(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || jsonx.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// truthy 缺失、null、false、0 与空字符串视为不存在
func truthy(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	switch string(v) {
	case "", "null", "false", "0", `""`:
		return false
	default:
		return true
	}
}

func nullable(name string) any {
	if name == "" {
		return nil
	}
	return name
}
