package feed

import (
	"io"
)

// MockPort implements SerialPorter over an in-memory pipe. Tests and the
// dev fixture replay write lines in; the serial feed reads them out as if
// they came off the wire.
type MockPort struct {
	r *io.PipeReader
	w *io.PipeWriter
}

// NewMockPort creates a connected mock port.
func NewMockPort() *MockPort {
	r, w := io.Pipe()
	return &MockPort{r: r, w: w}
}

// Read reads whatever has been written and not yet consumed. It blocks
// until data arrives or the port is closed.
func (m *MockPort) Read(p []byte) (int, error) {
	return m.r.Read(p)
}

// WriteLine writes one feed line, appending the newline terminator. It
// blocks until a reader consumes the data.
func (m *MockPort) WriteLine(line string) error {
	_, err := m.w.Write([]byte(line + "\n"))
	return err
}

// CloseWrite ends the stream from the writer side; readers see EOF after
// draining.
func (m *MockPort) CloseWrite() error {
	return m.w.Close()
}

// Close closes both ends of the pipe.
func (m *MockPort) Close() error {
	m.w.CloseWithError(io.ErrClosedPipe)
	return m.r.Close()
}
