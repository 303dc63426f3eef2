package runner

import (
	"bytes"
	"sync"

	"go.uber.org/zap"
)

// lineWriter logs each complete line written to it.
type lineWriter struct {
	mu     sync.Mutex
	log    *zap.Logger
	stream string
	buf    bytes.Buffer
}

func newLineWriter(log *zap.Logger, stream string) *lineWriter {
	return &lineWriter{log: log, stream: stream}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// Partial line; keep it for the next write.
			rest := append([]byte(nil), line...)
			w.buf.Reset()
			w.buf.Write(rest)
			return len(p), nil
		}
		w.emit(line[:len(line)-1])
	}
}

// Flush logs any trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.Bytes())
		w.buf.Reset()
	}
}

func (w *lineWriter) emit(line []byte) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	w.log.Info(string(line), zap.String("stream", w.stream))
}
