package transport

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder_Feed(t *testing.T) {
	t.Run("DataFrame", func(t *testing.T) {
		d := NewDecoder()
		frames := d.Feed([]byte("data: {\"a\":1}\n"))
		assert.Equal(t, []Frame{{Data: `{"a":1}`}}, frames)
	})

	t.Run("StickyEventName", func(t *testing.T) {
		d := NewDecoder()
		frames := d.Feed([]byte("event: widgets\ndata: 1\ndata: 2\nevent: flow-end\ndata: {}\n"))
		assert.Equal(t, []Frame{
			{Name: "widgets", Data: "1"},
			{Name: "widgets", Data: "2"},
			{Name: "flow-end", Data: "{}"},
		}, frames)
		assert.Equal(t, "flow-end", d.EventName())
	})

	t.Run("EventNameTrimmed", func(t *testing.T) {
		d := NewDecoder()
		frames := d.Feed([]byte("event:   spaced  \ndata: x\n"))
		assert.Equal(t, []Frame{{Name: "spaced", Data: "x"}}, frames)
	})

	t.Run("DoneSentinelDiscarded", func(t *testing.T) {
		d := NewDecoder()
		assert.Empty(t, d.Feed([]byte("data: [DONE]\n")))
	})

	t.Run("IgnoredLines", func(t *testing.T) {
		d := NewDecoder()
		frames := d.Feed([]byte("\n: comment\nid: 7\nretry: 100\ndata:nospace\n\n"))
		assert.Empty(t, frames)
	})

	t.Run("CRLF", func(t *testing.T) {
		d := NewDecoder()
		frames := d.Feed([]byte("event: widgets\r\ndata: {\"x\":true}\r\n\r\n"))
		assert.Equal(t, []Frame{{Name: "widgets", Data: `{"x":true}`}}, frames)
	})

	t.Run("CarryOver", func(t *testing.T) {
		d := NewDecoder()
		assert.Empty(t, d.Feed([]byte("data: {\"a\"")))
		assert.Equal(t, len(`data: {"a"`), d.Pending())
		frames := d.Feed([]byte(":1}\nda"))
		assert.Equal(t, []Frame{{Data: `{"a":1}`}}, frames)
		assert.Equal(t, 2, d.Pending())
	})

	t.Run("MultiByteSplit", func(t *testing.T) {
		line := []byte("data: {\"t\":\"鞋\"}\n")
		d := NewDecoder()
		var frames []Frame
		for _, b := range line {
			frames = append(frames, d.Feed([]byte{b})...)
		}
		assert.Equal(t, []Frame{{Data: `{"t":"鞋"}`}}, frames)
	})
}

// TestDecoder_FrameBoundaryProperty 在任意字节位置切分一行，解码结果与不切分时相同
func TestDecoder_FrameBoundaryProperty(t *testing.T) {
	const line = "data: {\"a\":1}\n"
	whole := NewDecoder().Feed([]byte(line))

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("split at any offset yields the same single frame", prop.ForAll(
		func(offset int) bool {
			d := NewDecoder()
			frames := d.Feed([]byte(line[:offset]))
			frames = append(frames, d.Feed([]byte(line[offset:]))...)
			if len(frames) != 1 || len(whole) != 1 {
				return false
			}
			return frames[0] == whole[0] && d.Pending() == 0
		},
		gen.IntRange(0, len(line)),
	))

	properties.Property("arbitrary chunking preserves frame sequence", prop.ForAll(
		func(sizes []int) bool {
			stream := "event: widgets\ndata: {\"widgets\":[]}\ndata: [DONE]\nevent: flow-end\ndata: {}\n"
			want := NewDecoder().Feed([]byte(stream))

			d := NewDecoder()
			var got []Frame
			rest := stream
			for _, size := range sizes {
				if rest == "" {
					break
				}
				n := min(size, len(rest))
				got = append(got, d.Feed([]byte(rest[:n]))...)
				rest = rest[n:]
			}
			got = append(got, d.Feed([]byte(rest))...)

			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i] != want[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(1, 8)),
	))

	properties.TestingRun(t)
}

func TestDecoder_Frames(t *testing.T) {
	t.Run("OneByteReader", func(t *testing.T) {
		r := iotest.OneByteReader(strings.NewReader("event: a\ndata: 1\ndata: 2\n"))
		var got []Frame
		for f, err := range NewDecoder().Frames(context.Background(), r) {
			require.NoError(t, err)
			got = append(got, f)
		}
		assert.Equal(t, []Frame{{Name: "a", Data: "1"}, {Name: "a", Data: "2"}}, got)
	})

	t.Run("TrailingPartialLineDiscarded", func(t *testing.T) {
		d := NewDecoder()
		var got []Frame
		for f, err := range d.Frames(context.Background(), strings.NewReader("data: 1\ndata: 2")) {
			require.NoError(t, err)
			got = append(got, f)
		}
		assert.Equal(t, []Frame{{Data: "1"}}, got)
		assert.Equal(t, 0, d.Pending())
	})

	t.Run("ReadError", func(t *testing.T) {
		r := io.MultiReader(strings.NewReader("data: 1\n"), iotest.ErrReader(io.ErrUnexpectedEOF))
		var frames []Frame
		var errs []error
		for f, err := range NewDecoder().Frames(context.Background(), r) {
			if err != nil {
				errs = append(errs, err)
				continue
			}
			frames = append(frames, f)
		}
		assert.Equal(t, []Frame{{Data: "1"}}, frames)
		require.Len(t, errs, 1)
		assert.True(t, errors.Is(errs[0], io.ErrUnexpectedEOF))
	})

	t.Run("CancelledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var errs []error
		for _, err := range NewDecoder().Frames(ctx, strings.NewReader("data: 1\n")) {
			errs = append(errs, err)
		}
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], context.Canceled)
	})

	t.Run("EarlyBreak", func(t *testing.T) {
		count := 0
		for range NewDecoder().Frames(context.Background(), strings.NewReader("data: 1\ndata: 2\ndata: 3\n")) {
			count++
			break
		}
		assert.Equal(t, 1, count)
	})
}
