package utils

import "sync"

// TruncationMarker is appended to captured output that hit the cap.
const TruncationMarker = "\n... [output truncated]"

// CappedBuffer collects subprocess output up to a fixed byte limit.
// Writes past the limit are counted but discarded, bounding the memory
// held per job no matter how chatty the toolchain is. Safe for
// concurrent use, since a command's stdout and stderr may write from
// separate goroutines.
type CappedBuffer struct {
	mu      sync.Mutex
	buf     []byte
	max     int
	dropped int64
}

// NewCappedBuffer creates a buffer that retains at most max bytes.
func NewCappedBuffer(max int) *CappedBuffer {
	return &CappedBuffer{max: max}
}

// Write implements io.Writer. It never returns an error: losing excess
// diagnostics must not fail the command producing them.
func (b *CappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.max - len(b.buf)
	if room > 0 {
		if len(p) <= room {
			b.buf = append(b.buf, p...)
		} else {
			b.buf = append(b.buf, p[:room]...)
			b.dropped += int64(len(p) - room)
		}
	} else {
		b.dropped += int64(len(p))
	}

	return len(p), nil
}

// Truncated reports whether any output was discarded.
func (b *CappedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.dropped > 0
}

// String returns the captured output, with a marker appended when the
// buffer overflowed.
func (b *CappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dropped > 0 {
		return string(b.buf) + TruncationMarker
	}

	return string(b.buf)
}
