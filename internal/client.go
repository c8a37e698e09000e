package inops

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Pentahill/inopsflow/internal/flow"
	"github.com/Pentahill/inopsflow/internal/protocol"
	"github.com/Pentahill/inopsflow/internal/transport"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest/httpc"
)

// DefaultCampaignParam 活动 ID 的默认查询参数名
const DefaultCampaignParam = "campaignId"

// ClientOptional 客户端的可选配置
type ClientOptional struct {
	// HTTPClient 自定义 HTTP 客户端（例如测试或代理场景）；不要设置 Timeout，否则会截断事件流
	HTTPClient *http.Client
	// Service 自定义 httpc 服务，设置后忽略 HTTPClient
	Service httpc.Service
}

// RequestOptional 单次调用的可选参数，空值回落到客户端配置
type RequestOptional struct {
	ShopConfigID string
	SessionID    string
	Language     string
	ReferenceID  string
	// Timeout 仅用于 *AndCollect 调用，0 表示使用配置中的超时
	Timeout time.Duration
}

// Client flow 客户端，组合启动请求、会话事件流与结果聚合
type Client struct {
	conf      Config
	baseURL   string
	initiator *flow.Initiator
	stream    *transport.SessionStream
	collector *flow.Collector
}

// NewClient 创建客户端。opt 可为 nil，使用默认 HTTP 客户端
func NewClient(c Config, opt *ClientOptional) *Client {
	if opt == nil {
		opt = &ClientOptional{}
	}
	c = c.withDefaults()

	svc := opt.Service
	if svc == nil {
		cli := opt.HTTPClient
		if cli == nil {
			cli = &http.Client{}
		}
		svc = httpc.NewServiceWithClient(c.Name, cli)
	}

	baseURL := ResolveBaseURL(c.BaseURL)
	stream := transport.NewSessionStream(&transport.SessionStreamOptional{
		BaseURL:   baseURL,
		SearchKey: c.SearchKey,
		Service:   svc,
	})

	return &Client{
		conf:    c,
		baseURL: baseURL,
		initiator: flow.NewInitiator(&flow.InitiatorOptional{
			BaseURL:   baseURL,
			SearchKey: c.SearchKey,
			Service:   svc,
		}),
		stream: stream,
		collector: flow.NewCollector(&flow.CollectorOptional{
			Subscriber: stream,
			Timeout:    c.Timeout,
			BufferSize: c.BufferSize,
		}),
	}
}

// BaseURL 返回解析后的服务地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Start 发送启动请求，未填写的 shopConfigId/language/referenceId 使用配置值
func (c *Client) Start(ctx context.Context, req protocol.FlowRequest) (*protocol.FlowStartResponse, error) {
	if req.ShopConfigID == "" {
		req.ShopConfigID = c.conf.ShopConfigID
	}
	if req.Language == "" {
		req.Language = c.conf.Language
	}
	if req.ReferenceID == "" {
		req.ReferenceID = c.conf.ReferenceID
	}

	return c.initiator.Start(ctx, &req)
}

// Search 以搜索词启动 flow；搜索词修剪后不足 3 个字符时直接返回校验错误
func (c *Client) Search(ctx context.Context, query string, opt *RequestOptional) (*protocol.FlowStartResponse, error) {
	q := strings.TrimSpace(query)
	if err := protocol.ValidateQuery(q); err != nil {
		return nil, err
	}

	return c.Start(ctx, buildRequest(protocol.SearchInput(q), opt))
}

// RunCampaign 以活动 ID 启动 flow
func (c *Client) RunCampaign(ctx context.Context, campaignID string, opt *RequestOptional) (*protocol.FlowStartResponse, error) {
	cid := strings.TrimSpace(campaignID)
	if err := protocol.ValidateCampaignID(cid); err != nil {
		return nil, err
	}

	return c.Start(ctx, buildRequest(protocol.CampaignInput(cid), opt))
}

// SearchAndCollect 搜索并等待 flow-end 或超时，返回摘要与商品
func (c *Client) SearchAndCollect(ctx context.Context, query string, opt *RequestOptional) (*protocol.SearchResult, error) {
	started, err := c.Search(ctx, query, opt)
	if err != nil {
		return nil, err
	}

	return c.Collect(ctx, started, timeoutOf(opt))
}

// RunCampaignAndCollect 运行活动并等待 flow-end 或超时，返回摘要与商品
func (c *Client) RunCampaignAndCollect(ctx context.Context, campaignID string, opt *RequestOptional) (*protocol.SearchResult, error) {
	started, err := c.RunCampaign(ctx, campaignID, opt)
	if err != nil {
		return nil, err
	}

	return c.Collect(ctx, started, timeoutOf(opt))
}

// Collect 聚合已启动 flow 的事件流，timeout 为 0 时使用配置中的超时
func (c *Client) Collect(ctx context.Context, started *protocol.FlowStartResponse, timeout time.Duration) (*protocol.SearchResult, error) {
	result, err := c.collector.Collect(ctx, started, timeout)
	if err != nil {
		logx.WithContext(ctx).Debugf("Collect failed, kind=%s, error=%v", protocol.KindOf(err), err)
		return nil, err
	}

	logx.WithContext(ctx).Debugf("Collected flow result, %s", result)
	return result, nil
}

// SubscribeToSession 订阅会话事件流，事件原样交给 sink，由调用方负责 Cancel
func (c *Client) SubscribeToSession(ctx context.Context, sessionID string, sink transport.Sink) transport.Subscription {
	return c.stream.Subscribe(ctx, sessionID, sink)
}

// CampaignIDFromURL 从 URL 查询参数中读取活动 ID，param 为空时使用 campaignId
// URL 无法解析时返回空字符串
func CampaignIDFromURL(rawURL, param string) string {
	if param == "" {
		param = DefaultCampaignParam
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(u.Query().Get(param))
}

func buildRequest(input protocol.UserInput, opt *RequestOptional) protocol.FlowRequest {
	req := protocol.FlowRequest{UserInput: input}
	if opt != nil {
		req.ShopConfigID = opt.ShopConfigID
		req.SessionID = opt.SessionID
		req.Language = opt.Language
		req.ReferenceID = opt.ReferenceID
	}
	return req
}

func timeoutOf(opt *RequestOptional) time.Duration {
	if opt == nil {
		return 0
	}
	return opt.Timeout
}
