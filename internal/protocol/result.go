package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zeromicro/go-zero/core/jsonx"
)

var errInvalidJSON = errors.New("body is not a single JSON value")

// FlowStartResponse flow 启动响应
// 除 sessionId 以外的字段原样保存在 Fields 与 Raw 中
type FlowStartResponse struct {
	SessionID string
	Fields    map[string]any
	Raw       json.RawMessage
}

// ParseFlowStartResponse 解析启动响应体；body 必须是合法 JSON
// jsonx 只解码第一个值，尾随内容需要先用 json.Valid 拒绝
func ParseFlowStartResponse(body []byte) (*FlowStartResponse, error) {
	if !json.Valid(body) {
		return nil, errInvalidJSON
	}

	var v any
	if err := jsonx.Unmarshal(body, &v); err != nil {
		return nil, err
	}

	resp := &FlowStartResponse{Raw: json.RawMessage(body)}
	if fields, ok := v.(map[string]any); ok {
		resp.Fields = fields
		resp.SessionID = stringValue(fields["sessionId"])
	}
	return resp, nil
}

// MarshalJSON 输出原始响应体
func (r *FlowStartResponse) MarshalJSON() ([]byte, error) {
	if r == nil || len(r.Raw) == 0 {
		return []byte("null"), nil
	}
	return r.Raw, nil
}

// SearchResult 一次聚合的结果，返回后不再修改
type SearchResult struct {
	// SessionID 启动响应中没有 sessionId 时为空
	SessionID string
	Summary   string
	Products  []ProductWidget
	Raw       *FlowStartResponse
}

func (r *SearchResult) String() string {
	return fmt.Sprintf("session_id=%s, summary=%q, products=%d", r.SessionID, r.Summary, len(r.Products))
}
