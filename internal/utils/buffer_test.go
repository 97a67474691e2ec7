package utils

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCappedBufferUnderLimit(t *testing.T) {
	b := NewCappedBuffer(64)

	n, err := b.Write([]byte("hello "))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	_, err = b.Write([]byte("world"))
	require.NoError(t, err)

	assert.Equal(t, "hello world", b.String())
	assert.False(t, b.Truncated())
}

func TestCappedBufferTruncates(t *testing.T) {
	b := NewCappedBuffer(8)

	n, err := b.Write([]byte("0123456789abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 16, n, "Write must report full consumption even when dropping")

	assert.True(t, b.Truncated())
	assert.Equal(t, "01234567"+TruncationMarker, b.String())

	// Further writes past the cap are counted but dropped.
	_, err = b.Write([]byte("more"))
	require.NoError(t, err)
	assert.Equal(t, "01234567"+TruncationMarker, b.String())
}

func TestCappedBufferConcurrentWrites(t *testing.T) {
	b := NewCappedBuffer(1024)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = b.Write([]byte("line\n"))
			}
		}()
	}

	wg.Wait()

	out := strings.TrimSuffix(b.String(), TruncationMarker)
	assert.LessOrEqual(t, len(out), 1024)
	assert.True(t, b.Truncated())
}
