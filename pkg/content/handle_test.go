package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHandle(t *testing.T, c *HandleCache, name string, fn func(h *Handle)) {
	t.Helper()
	require.NoError(t, c.WithHandle("", name, func(h *Handle) error {
		fn(h)
		return nil
	}))
}

func TestParseOrigin(t *testing.T) {
	for s, want := range map[string]Origin{"start": OriginStart, "current": OriginCurrent, "end": OriginEnd} {
		got, err := ParseOrigin(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, s, got.String())
	}

	_, err := ParseOrigin("middle")
	assert.ErrorIs(t, err, ErrInvalidOrigin)
}

func TestReadLine(t *testing.T) {
	c := newMemCache(t, 0)
	writeAt(t, c, "", "lines.txt", "first\nsecond\n\nlast")
	require.NoError(t, c.SetPosition("", "lines.txt", 0, OriginStart))

	withHandle(t, c, "lines.txt", func(h *Handle) {
		for _, want := range []string{"first", "second", "", "last", "", ""} {
			got, err := h.ReadLine("\n")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})
}

func TestReadLine_CRLF(t *testing.T) {
	c := newMemCache(t, 0)
	writeAt(t, c, "", "crlf.txt", "a\r\nb\r")
	require.NoError(t, c.SetPosition("", "crlf.txt", 0, OriginStart))

	withHandle(t, c, "crlf.txt", func(h *Handle) {
		line, err := h.ReadLine("\r\n")
		require.NoError(t, err)
		assert.Equal(t, "a", line)

		line, err = h.ReadLine("\r\n")
		require.NoError(t, err)
		assert.Equal(t, "b", line)

		atEnd, err := h.AtEnd()
		require.NoError(t, err)
		assert.True(t, atEnd)
	})
}

func TestReadLine_LongerThanChunk(t *testing.T) {
	c := newTestCache(t, 0)
	long := make([]byte, readChunkSize*2+10)
	for i := range long {
		long[i] = 'q'
	}
	writeAt(t, c, "", "long.txt", string(long)+"\ntail")
	require.NoError(t, c.SetPosition("", "long.txt", 0, OriginStart))

	withHandle(t, c, "long.txt", func(h *Handle) {
		line, err := h.ReadLine("\n")
		require.NoError(t, err)
		assert.Equal(t, string(long), line)

		line, err = h.ReadLine("\n")
		require.NoError(t, err)
		assert.Equal(t, "tail", line)
	})
}

func TestReadChars_Multibyte(t *testing.T) {
	c := newTestCache(t, 0)
	writeAt(t, c, "", "utf8.txt", "héllo→world")
	require.NoError(t, c.SetPosition("", "utf8.txt", 0, OriginStart))

	withHandle(t, c, "utf8.txt", func(h *Handle) {
		got, err := h.ReadChars(6)
		require.NoError(t, err)
		assert.Equal(t, "héllo→", got)

		pos, err := h.Position()
		require.NoError(t, err)
		assert.Equal(t, int64(len("héllo→")), pos)

		got, err = h.ReadChars(0)
		require.NoError(t, err)
		assert.Equal(t, "", got)

		_, err = h.ReadChars(-1)
		assert.Error(t, err)
	})
}

func TestReadChars_PastEnd(t *testing.T) {
	c := newMemCache(t, 0)
	writeAt(t, c, "", "short.txt", "ab")

	withHandle(t, c, "short.txt", func(h *Handle) {
		_, err := h.Seek(10, OriginStart)
		require.NoError(t, err)

		got, err := h.ReadChars(3)
		require.NoError(t, err)
		assert.Equal(t, "", got)
	})
}

func TestReadChars_HugeCount(t *testing.T) {
	c := newMemCache(t, 0)
	writeAt(t, c, "", "big.txt", "hello")
	require.NoError(t, c.SetPosition("", "big.txt", 1, OriginStart))

	withHandle(t, c, "big.txt", func(h *Handle) {
		got, err := h.ReadChars(4611686018427387903)
		require.NoError(t, err)
		assert.Equal(t, "ello", got)

		end, err := h.AtEnd()
		require.NoError(t, err)
		assert.True(t, end)
	})
}

func TestAppendAndReadAll(t *testing.T) {
	c := newMemCache(t, 0)

	withHandle(t, c, "log.txt", func(h *Handle) {
		_, err := h.Append([]byte("one\n"))
		require.NoError(t, err)
		_, err = h.Seek(0, OriginStart)
		require.NoError(t, err)
		_, err = h.Append([]byte("two\n"))
		require.NoError(t, err)

		data, err := h.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, "one\ntwo\n", string(data))

		atEnd, err := h.AtEnd()
		require.NoError(t, err)
		assert.True(t, atEnd)
	})
}

func TestWrite_Overwrites(t *testing.T) {
	c := newMemCache(t, 0)
	writeAt(t, c, "", "ow.txt", "aaaaaa")
	require.NoError(t, c.SetPosition("", "ow.txt", 2, OriginStart))
	writeAt(t, c, "", "ow.txt", "BB")

	assert.Equal(t, "aaBBaa", fileContent(t, c, "", "ow.txt"))
}
