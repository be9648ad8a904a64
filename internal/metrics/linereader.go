package metrics

import (
	"bufio"
	"io"
)

// lineReader yields newline-terminated lines with bounded memory. A line
// longer than limit is consumed up to its newline and reported as oversized
// so the caller can drop it and carry on.
type lineReader struct {
	r     *bufio.Reader
	buf   []byte
	limit int
}

func newLineReader(r io.Reader, limit int) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64<<10), limit: limit}
}

// next returns the next line without its terminator. The returned slice is
// only valid until the following call. io.EOF is returned once the input is
// exhausted.
func (l *lineReader) next() (line []byte, oversized bool, err error) {
	l.buf = l.buf[:0]
	read := 0

	for {
		chunk, err := l.r.ReadSlice('\n')
		read += len(chunk)

		if !oversized {
			if len(l.buf)+len(chunk) > l.limit+1 {
				oversized = true
				l.buf = l.buf[:0]
			} else {
				l.buf = append(l.buf, chunk...)
			}
		}

		switch {
		case err == bufio.ErrBufferFull:
			continue
		case err == io.EOF:
			if read == 0 {
				return nil, false, io.EOF
			}
			return l.buf, oversized, nil
		case err != nil:
			return nil, false, err
		}

		if n := len(l.buf); n > 0 && l.buf[n-1] == '\n' {
			l.buf = l.buf[:n-1]
		}
		return l.buf, oversized, nil
	}
}
