package middleware

import (
	"bytes"
	"io"
	"os"
)

// bodies above this size are moved out of memory while they are hashed
var spoolThreshold int64 = 1 << 20

// spooledBody keeps a request body in memory until it passes the threshold,
// then continues in a temp file. Cleanup removes the file.
type spooledBody struct {
	limit int64
	buf   bytes.Buffer
	file  *os.File
}

func newSpooledBody() *spooledBody {
	return &spooledBody{limit: spoolThreshold}
}

func (s *spooledBody) Write(p []byte) (int, error) {
	if s.file == nil && int64(s.buf.Len()+len(p)) <= s.limit {
		return s.buf.Write(p)
	}
	if s.file == nil {
		f, err := os.CreateTemp("", "inventory-body-*")
		if err != nil {
			return 0, err
		}
		if _, err := f.Write(s.buf.Bytes()); err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
			return 0, err
		}
		s.buf = bytes.Buffer{}
		s.file = f
	}
	return s.file.Write(p)
}

// Reader rewinds the spooled body for the next handler.
func (s *spooledBody) Reader() (io.ReadCloser, error) {
	if s.file == nil {
		return io.NopCloser(bytes.NewReader(s.buf.Bytes())), nil
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return s.file, nil
}

func (s *spooledBody) Cleanup() {
	if s.file == nil {
		return
	}
	name := s.file.Name()
	_ = s.file.Close()
	_ = os.Remove(name)
	s.file = nil
}
