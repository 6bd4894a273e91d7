package buffer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func pushSegment(t *testing.T, buff *Buffer, text string) {
	ok := buff.Append([]byte(text))
	require.True(t, ok)
	segment := buff.Finish()
	require.Equal(t, text, string(segment))
}

func BenchmarkBuffer(b *testing.B) {
	buff := New(1024, 4096)
	smallString := []byte(strings.Repeat("a", 1023))

	b.ReportAllocs()
	b.SetBytes(int64(len(smallString)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = buff.Append(smallString)
		buff.Clear()
	}
}

func TestBuffer(t *testing.T) {
	t.Run("segments survive growth", func(t *testing.T) {
		buff := New(10, 20)
		pushSegment(t, buff, "Hello, ")
		first := buff.memory[:7]
		pushSegment(t, buff, "World!")
		require.Equal(t, "Hello, ", string(first))
		require.Equal(t, 13, buff.Len())
	})

	t.Run("overflow over the limit", func(t *testing.T) {
		buff := New(10, 20)
		pushSegment(t, buff, "Hello, ")
		pushSegment(t, buff, "World!")
		pushSegment(t, buff, "Lorem ")
		require.False(t, buff.Append([]byte("overflow")))
		require.False(t, buff.AppendByte('x') && buff.AppendByte('y'))
	})

	t.Run("segment length", func(t *testing.T) {
		buff := New(10, 20)
		require.True(t, buff.Append([]byte("Hello, ")))
		require.True(t, buff.Append([]byte("World!")))
		require.Equal(t, 13, buff.SegmentLength())
		require.Equal(t, "Hello, World!", string(buff.Preview()))
	})

	t.Run("discard segment", func(t *testing.T) {
		buff := New(50, 50)
		require.True(t, buff.Append([]byte("Hello")))
		buff.Finish()
		require.True(t, buff.Append([]byte("World")))
		buff.Discard()
		require.Equal(t, "Hello", string(buff.memory))
	})

	t.Run("truncate", func(t *testing.T) {
		for _, n := range []int{1, 5} {
			buff := New(10, 20)
			require.True(t, buff.Append([]byte("Hello, world!")))
			segment := buff.Finish()
			require.True(t, buff.Append([]byte("Hi?")))
			buff.Trunc(n)
			require.Equal(t, "Hello, world!", string(segment))
			require.Equal(t, "Hi?"[:3-min(n, 3)], string(buff.Finish()))
		}
	})

	t.Run("sealed segments are capped", func(t *testing.T) {
		buff := New(50, 50)
		require.True(t, buff.Append([]byte("Hello")))
		segment := buff.Finish()
		require.Equal(t, len(segment), cap(segment))
	})
}

func TestStaging(t *testing.T) {
	t.Run("consume prefix", func(t *testing.T) {
		s := NewStaging(8)
		s.AppendString("Hello, ")
		s.Append([]byte("world!"))
		require.Equal(t, 13, s.Len())
		s.Consume(7)
		require.Equal(t, "world!", string(s.Bytes()))
		s.Consume(100)
		require.Zero(t, s.Len())
		require.Empty(t, s.Bytes())
	})

	t.Run("spare and commit", func(t *testing.T) {
		s := NewStaging(8)
		s.AppendString("abcdef")
		s.Consume(4)

		spare := s.Spare(6)
		require.GreaterOrEqual(t, len(spare), 6)
		n := copy(spare, "ghijkl")
		s.Commit(n)
		require.Equal(t, "efghijkl", string(s.Bytes()))
	})

	t.Run("grow", func(t *testing.T) {
		s := NewStaging(2)
		s.AppendString("xy")
		spare := s.Spare(100)
		require.GreaterOrEqual(t, len(spare), 100)
		s.Commit(copy(spare, strings.Repeat("z", 100)))
		require.Equal(t, "xy"+strings.Repeat("z", 100), string(s.Bytes()))
	})

	t.Run("reset", func(t *testing.T) {
		s := NewStaging(8)
		s.AppendString("data")
		s.Reset()
		require.Zero(t, s.Len())
	})
}
