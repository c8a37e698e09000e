package flow

import (
	"context"
	"time"

	"github.com/Pentahill/inopsflow/internal/channel"
	"github.com/Pentahill/inopsflow/internal/protocol"
	"github.com/Pentahill/inopsflow/internal/transport"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/timex"
)

// DefaultTimeout 聚合默认超时
const DefaultTimeout = 20 * time.Second

// CollectorOptional Collector 的配置
type CollectorOptional struct {
	Subscriber transport.Subscriber
	// Timeout 默认超时，<= 0 时使用 DefaultTimeout
	Timeout time.Duration
	// BufferSize 事件通道缓冲区大小
	BufferSize int
}

// Collector 消费一个订阅的事件，产生唯一的 SearchResult
type Collector struct {
	subscriber transport.Subscriber
	timeout    time.Duration
	bufferSize int
}

// NewCollector 创建结果聚合器
func NewCollector(opt *CollectorOptional) *Collector {
	if opt == nil {
		opt = &CollectorOptional{}
	}

	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Collector{
		subscriber: opt.Subscriber,
		timeout:    timeout,
		bufferSize: opt.BufferSize,
	}
}

// Collect 订阅启动响应对应的会话，直到 flow-end、flow-error 或超时
// flow-end 与超时返回已累积的结果；flow-error 返回错误；ctx 取消返回 Cancelled
// timeout 为 0 时使用默认值，负数为校验错误
// 任何出口都会取消订阅并停止计时器
func (c *Collector) Collect(ctx context.Context, started *protocol.FlowStartResponse, timeout time.Duration) (*protocol.SearchResult, error) {
	if timeout < 0 {
		return nil, protocol.NewError(protocol.KindValidation, "timeout.invalid: timeout must be positive")
	}
	if timeout == 0 {
		timeout = c.timeout
	}

	if started == nil || started.SessionID == "" {
		return &protocol.SearchResult{Products: []protocol.ProductWidget{}, Raw: started}, nil
	}

	sessionID := started.SessionID
	logger := logx.WithContext(ctx)
	startTime := timex.Now()

	ch := channel.NewDefaultChannel(c.bufferSize)
	defer ch.Close()

	sub := c.subscriber.Subscribe(ctx, sessionID, ch.Sink())
	defer sub.Cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	acc := newAccumulator()
	for {
		select {
		case <-ctx.Done():
			err := ctx.Err()
			logger.Debugf("Collect cancelled, session_id=%s, error=%v", sessionID, err)
			return nil, protocol.WrapError(protocol.KindCancelled, err.Error(), err)

		case <-timer.C:
			logger.Infof("Collect timed out, returning partial result, session_id=%s, products=%d, duration=%s",
				sessionID, acc.count(), timex.Since(startTime))
			return acc.result(sessionID, started), nil

		case evt := <-ch.Events():
			switch evt.Kind {
			case protocol.EventKindFlowEnd:
				logger.Debugf("Flow ended, session_id=%s, products=%d, duration=%s",
					sessionID, acc.count(), timex.Since(startTime))
				return acc.result(sessionID, started), nil

			case protocol.EventKindFlowError:
				err := evt.Err
				if err == nil {
					err = protocol.NewError(protocol.KindFlow, protocol.DefaultFlowErrMsg)
				}
				logger.Errorf("Flow failed, session_id=%s, error=%v", sessionID, err)
				return nil, err

			case protocol.EventKindWidgets:
				acc.add(evt.Widgets)

			default:
				logger.Debugf("Skipping unparseable frame, session_id=%s, event=%s", sessionID, evt.Name)
			}
		}
	}
}

// accumulator 累积摘要与去重后的商品
type accumulator struct {
	summary  string
	products []protocol.ProductWidget
	seen     map[string]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{
		products: []protocol.ProductWidget{},
		seen:     make(map[string]struct{}),
	}
}

// add 非空文本才覆盖摘要；商品按 productId 首次出现保留
func (a *accumulator) add(widgets []protocol.Widget) {
	if s := protocol.SummaryText(widgets); s != "" {
		a.summary = s
	}

	for _, p := range protocol.Products(widgets) {
		if _, ok := a.seen[p.ProductID]; ok {
			continue
		}
		a.seen[p.ProductID] = struct{}{}
		a.products = append(a.products, p)
	}
}

func (a *accumulator) count() int {
	return len(a.products)
}

func (a *accumulator) result(sessionID string, started *protocol.FlowStartResponse) *protocol.SearchResult {
	products := make([]protocol.ProductWidget, len(a.products))
	copy(products, a.products)
	return &protocol.SearchResult{
		SessionID: sessionID,
		Summary:   a.summary,
		Products:  products,
		Raw:       started,
	}
}
