package transport

import (
	"bytes"
	"context"
	"io"
	"iter"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"
)

const (
	eventPrefix = "event: "
	dataPrefix  = "data: "

	defaultChunkSize = 4096
)

// Decoder 把任意边界切分的文本块解码为推送帧
// buf 保存跨块的未完成行，eventName 为粘滞事件名
type Decoder struct {
	buf       []byte
	eventName string
}

// NewDecoder 创建解码器
func NewDecoder() *Decoder {
	return &Decoder{}
}

// EventName 返回当前粘滞事件名
func (d *Decoder) EventName() string {
	return d.eventName
}

// Pending 返回缓冲区中未完成行的字节数
func (d *Decoder) Pending() int {
	return len(d.buf)
}

// Feed 追加一个文本块，返回其中所有完整行产生的帧
// 最后一个不完整的片段留在缓冲区等待下一个块
func (d *Decoder) Feed(chunk []byte) []Frame {
	d.buf = append(d.buf, chunk...)

	var frames []Frame
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		line := string(d.buf[:idx])
		d.buf = d.buf[idx+1:]

		if f, ok := d.decodeLine(line); ok {
			frames = append(frames, f)
		}
	}

	// 缓冲区耗尽时释放底层数组
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return frames
}

func (d *Decoder) decodeLine(line string) (Frame, bool) {
	s := strings.TrimSpace(line)
	if s == "" {
		return Frame{}, false
	}

	if after, ok := strings.CutPrefix(s, eventPrefix); ok {
		d.eventName = strings.TrimSpace(after)
		return Frame{}, false
	}

	if after, ok := strings.CutPrefix(s, dataPrefix); ok {
		if after == DoneSentinel {
			return Frame{}, false
		}
		return Frame{Name: d.eventName, Data: after}, true
	}

	return Frame{}, false
}

// Frames 从 r 逐块读取并惰性产出帧，不可重入
// 读到 io.EOF 时结束，缓冲区中没有换行结尾的残余片段被丢弃
// 其他读取错误（包括 ctx 取消）作为最后一个元素产出
func (d *Decoder) Frames(ctx context.Context, r io.Reader) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		chunk := make([]byte, defaultChunkSize)
		for {
			if err := ctx.Err(); err != nil {
				yield(Frame{}, err)
				return
			}

			n, err := r.Read(chunk)
			if n > 0 {
				for _, f := range d.Feed(chunk[:n]) {
					if !yield(f, nil) {
						return
					}
				}
			}

			if err == io.EOF {
				if d.Pending() > 0 {
					logx.WithContext(ctx).Debugf("Discarding unterminated trailing line, bytes=%d", d.Pending())
					d.buf = nil
				}
				return
			}
			if err != nil {
				yield(Frame{}, err)
				return
			}
		}
	}
}
