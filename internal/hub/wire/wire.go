// Package wire defines the byte-level protocol shared by the backend and
// frontend listeners: the fixed sentinel bytes, the textual error lines,
// and the one-read frame codec used to read a service name off a freshly
// accepted connection.
package wire

import "io"

// BufferSize is the default receive buffer for a single frame read.
const BufferSize = 4096

// Sentinel bytes exchanged on a control connection.
const (
	// RegisteredByte acknowledges a successful backend registration.
	RegisteredByte byte = '+'
	// ProbeByte is sent by the Hub down a control channel to test whether
	// the registered server is still alive.
	ProbeByte byte = '!'
	// PayloadByte accompanies every SCM_RIGHTS descriptor transfer.
	PayloadByte byte = '1'
)

// Textual error lines written to a socket before closing it.
var (
	ErrServiceNotFoundLine = []byte("-Service not found\r\n")
	ErrServiceExistsLine   = []byte("-Service already exists\r\n")
)

// ReadFrame reads at most one frame from r: a single Read call, no
// reassembly across short reads. A zero-byte read is reported as io.EOF;
// both endpoints close a connection whose first frame is empty.
func ReadFrame(r io.Reader) ([]byte, error) {
	buf := make([]byte, BufferSize)
	n, err := r.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil {
		err = io.EOF
	}
	return nil, err
}

// WriteBestEffort writes b to w, ignoring any error. Used for the error
// lines sent right before closing a connection: a partial write there is
// not actionable.
func WriteBestEffort(w io.Writer, b []byte) {
	_, _ = w.Write(b)
}
