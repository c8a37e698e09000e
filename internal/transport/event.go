package transport

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// DoneSentinel 流结束哨兵负载，解码时丢弃
const DoneSentinel = "[DONE]"

// Frame 一个推送帧：粘滞事件名与原始负载
type Frame struct {
	Name string // 当前粘滞的 "event" 字段，没有时为空
	Data string // "data" 字段的原始文本
}

// WriteFrame 以行格式写出帧；Name 为空时只写 data 行
// 供模拟服务端与测试使用
func WriteFrame(w io.Writer, f Frame) (int, error) {
	var b bytes.Buffer
	if f.Name != "" {
		fmt.Fprintf(&b, "event: %s\n", f.Name)
	}
	fmt.Fprintf(&b, "data: %s\n\n", f.Data)
	n, err := w.Write(b.Bytes())
	if fl, ok := w.(http.Flusher); ok {
		fl.Flush()
	}
	return n, err
}
