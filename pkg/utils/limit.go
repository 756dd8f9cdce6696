package utils

import (
	"errors"
	"io"
)

// ErrBodyTooLarge is returned by a reader from LimitReader once its limit is passed
var ErrBodyTooLarge = errors.New("body exceeds size limit")

// LimitReader returns a reader that yields at most n bytes of r and then fails
// with ErrBodyTooLarge if r has more. Unlike io.LimitReader it does not
// silently truncate.
func LimitReader(r io.Reader, n int64) io.Reader {
	return &limitedReader{r: r, remaining: n}
}

type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if l.remaining <= 0 {
		var extra [1]byte
		n, err := l.r.Read(extra[:])
		if n > 0 {
			return 0, ErrBodyTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}
