package bandwidth

import (
	"io"
	"time"
)

// chunkSize bounds how many bytes are consumed from the limiter at once
// so waits stay short and smooth.
const chunkSize = 64 * 1024

// throttledReader paces reads through a Limiter.
type throttledReader struct {
	r io.Reader
	l *Limiter
}

// NewReader returns a reader that consumes bandwidth tokens from l as
// data flows through it. With a nil limiter the reader is returned as is.
func NewReader(r io.Reader, l *Limiter) io.Reader {
	if l == nil {
		return r
	}
	return &throttledReader{r: r, l: l}
}

func (t *throttledReader) Read(p []byte) (int, error) {
	if len(p) > chunkSize {
		p = p[:chunkSize]
	}
	n, err := t.r.Read(p)
	if n > 0 {
		if wait := t.l.Allow(int64(n)); wait > 0 {
			time.Sleep(wait)
		}
	}
	return n, err
}
