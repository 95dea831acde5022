package gcsmock

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// errWriterClosed is returned by Writer.Write after Close.
var errWriterClosed = errors.New("gcsmock: writer is closed")

// Writer is a write stream for one object, returned by Object.NewWriter.
// Written bytes are buffered; Close atomically replaces the object's
// contents with the buffer. The object is already present from the moment
// the Writer is created.
type Writer struct {
	o      *Object
	buf    bytes.Buffer
	closed bool
}

// NewWriter opens a write stream for the object. Mirroring Save's mark step,
// the object transitions to present immediately, before any bytes are
// written. The stream path is not subject to the fault-injection protocol.
func (o *Object) NewWriter(ctx context.Context) *Writer {
	s := o.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	o.bucket.markPresentLocked(o.name)
	recordOp("createWriteStream", statusSuccess)
	return &Writer{o: o}
}

// Write buffers p. It fails after Close.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errWriterClosed
	}
	return w.buf.Write(p)
}

// Close commits the buffered bytes: they replace the object's contents as
// one atomic step. Closing an already-closed Writer is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	s := w.o.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	w.o.contents = append([]byte(nil), w.buf.Bytes()...)
	recordBytesStored(w.buf.Len())
	return nil
}

// NewReader opens a single-pass read stream over a snapshot of the object's
// contents taken now. It fails with ErrObjectNotExist when the object is
// absent. Each call yields a fresh pass; the stream path is not subject to
// the fault-injection protocol (inject on OpDownload and use Download to
// force a read failure).
func (o *Object) NewReader(ctx context.Context) (io.ReadCloser, error) {
	s := o.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	if !o.presentLocked() {
		recordOp("createReadStream", statusError)
		return nil, ErrObjectNotExist
	}
	data := append([]byte(nil), o.contents...)
	recordOp("createReadStream", statusSuccess)
	return io.NopCloser(bytes.NewReader(data)), nil
}
