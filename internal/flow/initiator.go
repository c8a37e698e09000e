// Package flow 发起 flow 请求并把会话事件流聚合为最终结果
package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Pentahill/inopsflow/internal/protocol"
	"github.com/Pentahill/inopsflow/internal/transport"

	"github.com/zeromicro/go-zero/core/jsonx"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest/httpc"
)

const (
	executePath = "/shop/flow/execute"
	// maxErrorTextLen 非 JSON 错误响应体截断长度（字符）
	maxErrorTextLen = 200
)

// InitiatorOptional Initiator 的配置
type InitiatorOptional struct {
	BaseURL   string
	SearchKey string
	// Service 为 nil 时创建一个默认 httpc 服务
	Service httpc.Service
}

// Initiator 发送 flow 启动请求并解析启动响应
type Initiator struct {
	baseURL   string
	searchKey string
	service   httpc.Service
}

// NewInitiator 创建启动请求发送器
func NewInitiator(opt *InitiatorOptional) *Initiator {
	if opt == nil {
		opt = &InitiatorOptional{}
	}

	svc := opt.Service
	if svc == nil {
		svc = httpc.NewServiceWithClient("inopsflow", &http.Client{})
	}

	return &Initiator{
		baseURL:   transport.NormalizeBaseURL(opt.BaseURL),
		searchKey: opt.SearchKey,
		service:   svc,
	}
}

// Start 发送启动请求
// 校验失败时不发起网络请求；错误分类为 Validation、Network、HTTP 或 JSONParse
func (i *Initiator) Start(ctx context.Context, req *protocol.FlowRequest) (*protocol.FlowStartResponse, error) {
	if req == nil {
		return nil, protocol.NewError(protocol.KindValidation, "request.required")
	}
	if err := req.UserInput.Validate(); err != nil {
		return nil, err
	}

	body, err := jsonx.Marshal(req)
	if err != nil {
		return nil, protocol.WrapError(protocol.KindValidation, err.Error(), err)
	}

	url := transport.WithSearchKeyQuery(i.baseURL, executePath, i.searchKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, protocol.WrapError(protocol.KindNetwork, "Network error: "+err.Error(), err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	transport.SetCredential(httpReq.Header, i.searchKey)

	resp, err := i.service.DoRequest(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, protocol.WrapError(protocol.KindCancelled, ctxErr.Error(), ctxErr)
		}
		logx.WithContext(ctx).Errorf("Failed to start flow, type=%s, error=%v", req.UserInput.Type, err)
		return nil, protocol.WrapError(protocol.KindNetwork, "Network error: "+err.Error(), err)
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := httpErrorMessage(resp.StatusCode, resp.Status, data, readErr)
		logx.WithContext(ctx).Errorf("Flow start rejected, status=%d, message=%s", resp.StatusCode, msg)
		return nil, &protocol.Error{Kind: protocol.KindHTTP, Message: msg, Status: resp.StatusCode}
	}
	if readErr != nil {
		return nil, protocol.WrapError(protocol.KindJSONParse, "Invalid JSON response: "+readErr.Error(), readErr)
	}

	started, err := protocol.ParseFlowStartResponse(data)
	if err != nil {
		return nil, protocol.WrapError(protocol.KindJSONParse, "Invalid JSON response: "+err.Error(), err)
	}

	logx.WithContext(ctx).Debugf("Flow started, type=%s, session_id=%s", req.UserInput.Type, started.SessionID)
	return started, nil
}

// httpErrorMessage 依次尝试 JSON 中的 message/code/error、截断后的文本，最后是状态行
// status 为响应的状态行（如 "502 Bad Gateway"），其中的原因短语优先于标准文本
func httpErrorMessage(code int, status string, body []byte, readErr error) string {
	fallback := fmt.Sprintf("HTTP %d %s", code, reasonPhrase(code, status))
	if readErr != nil {
		return fallback
	}

	if json.Valid(body) {
		var v any
		if err := jsonx.Unmarshal(body, &v); err == nil {
			fields, ok := v.(map[string]any)
			if !ok {
				return fallback
			}
			for _, key := range []string{"message", "code", "error"} {
				if msg := scalarString(fields[key]); msg != "" {
					return msg
				}
			}
			return fallback
		}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return fallback
	}
	return truncate(string(body), maxErrorTextLen)
}

// reasonPhrase 去掉状态行开头的状态码，状态行缺失时使用标准文本
func reasonPhrase(code int, status string) string {
	if phrase := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code))); phrase != "" {
		return phrase
	}
	return http.StatusText(code)
}

func scalarString(v any) string {
	switch val := v.(type) {
	case nil, bool, map[string]any, []any:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
