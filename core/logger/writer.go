package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// asyncWriter fans log lines out to the main sinks and, for error lines,
// to the dedicated error sinks.
type asyncWriter struct {
	queue    chan line
	flushReq chan chan error
	done     chan struct{}
	once     sync.Once
	sinks    []*bufio.Writer
	errSinks []*bufio.Writer
	sinkMu   sync.Mutex
	writeErr error
}

type line struct {
	data    []byte
	isError bool
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	return newSplitWriter(writers, nil, bufSize)
}

func newSplitWriter(writers, errWriters []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	aw := &asyncWriter{
		queue:    make(chan line, 256),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
		sinks:    wrapSinks(writers, bufSize),
		errSinks: wrapSinks(errWriters, bufSize),
	}
	go aw.loop()
	return aw
}

func wrapSinks(writers []io.Writer, bufSize int) []*bufio.Writer {
	sinks := make([]*bufio.Writer, 0, len(writers))
	for _, w := range writers {
		if w == nil {
			continue
		}
		sinks = append(sinks, bufio.NewWriterSize(w, bufSize))
	}
	return sinks
}

func (w *asyncWriter) loop() {
	for {
		select {
		case ln, ok := <-w.queue:
			if !ok {
				w.flushAll()
				close(w.done)
				return
			}
			if len(ln.data) == 0 {
				continue
			}
			if err := w.writeAll(ln); err != nil {
				w.setErr(err)
			}
		case ack := <-w.flushReq:
			ack <- w.flushAll()
		}
	}
}

// Write enqueues the payload for asynchronous fan-out to all sinks.
func (w *asyncWriter) Write(p []byte) error {
	return w.WriteLevel(p, false)
}

// WriteLevel enqueues the payload; error lines are copied to the error sinks too.
func (w *asyncWriter) WriteLevel(p []byte, isError bool) error {
	if err := w.getErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	data := make([]byte, len(p))
	copy(data, p)
	ln := line{data: data, isError: isError}
	select {
	case w.queue <- ln:
		return nil
	default:
		// queue full; block rather than drop
		w.queue <- ln
		return nil
	}
}

// Flush waits for the writer to flush all buffered content to sinks.
func (w *asyncWriter) Flush() error {
	if err := w.getErr(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	w.flushReq <- ack
	return <-ack
}

// Close drains the queue and reports the first encountered write error.
func (w *asyncWriter) Close() error {
	w.once.Do(func() {
		close(w.queue)
	})
	<-w.done
	return w.getErr()
}

func (w *asyncWriter) writeAll(ln line) error {
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	if err := writeSinks(w.sinks, ln.data); err != nil {
		return err
	}
	if ln.isError {
		return writeSinks(w.errSinks, ln.data)
	}
	return nil
}

func writeSinks(sinks []*bufio.Writer, p []byte) error {
	for _, sink := range sinks {
		if _, err := sink.Write(p); err != nil {
			return err
		}
		if err := sink.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flushAll() error {
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	var errs []error
	for _, sink := range append(append([]*bufio.Writer(nil), w.sinks...), w.errSinks...) {
		if err := sink.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) getErr() error {
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	return w.writeErr
}

func (w *asyncWriter) setErr(err error) {
	if err == nil {
		return
	}
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	if w.writeErr == nil {
		w.writeErr = err
	}
}
