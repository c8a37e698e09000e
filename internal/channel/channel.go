package channel

import (
	"context"
	"errors"

	"github.com/Pentahill/inopsflow/internal/protocol"

	"github.com/zeromicro/go-zero/core/syncx"
)

// ErrChannelClosed 通道已关闭错误
var ErrChannelClosed = errors.New("channel is closed")

const defaultBufferSize = 100

// DefaultChannel 有界事件通道
// 连接事件流（生产者）与结果聚合器（消费者），消费者通过 Events 在 select 中读取
// 关闭只通过 done 信号通知，底层 channel 不关闭，因此并发 Send 不会 panic
type DefaultChannel struct {
	events chan protocol.Event
	done   *syncx.DoneChan
}

// NewDefaultChannel 创建有界事件通道
func NewDefaultChannel(bufferSize int) *DefaultChannel {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	return &DefaultChannel{
		events: make(chan protocol.Event, bufferSize),
		done:   syncx.NewDoneChan(),
	}
}

// Send 发送事件到通道
func (c *DefaultChannel) Send(ctx context.Context, evt protocol.Event) error {
	if c.IsClosed() {
		return ErrChannelClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done.Done():
		return ErrChannelClosed
	case c.events <- evt:
		return nil
	}
}

// Events 返回只读的底层 channel，用于 select
func (c *DefaultChannel) Events() <-chan protocol.Event {
	return c.events
}

// Close 关闭通道，重复调用为空操作
func (c *DefaultChannel) Close() error {
	c.done.Close()
	return nil
}

// IsClosed 检查通道是否已关闭
func (c *DefaultChannel) IsClosed() bool {
	select {
	case <-c.done.Done():
		return true
	default:
		return false
	}
}

// Sink 返回一个把事件写入通道的回调，通道关闭或 ctx 取消后事件被丢弃
func (c *DefaultChannel) Sink() func(ctx context.Context, evt protocol.Event) {
	return func(ctx context.Context, evt protocol.Event) {
		_ = c.Send(ctx, evt)
	}
}
