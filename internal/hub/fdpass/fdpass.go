// Package fdpass transfers one open file descriptor across a local Unix
// domain stream socket using an SCM_RIGHTS ancillary message, alongside the
// single payload byte the wire protocol expects (wire.PayloadByte).
//
// This is inherently a syscall-level operation: no third-party library in
// the reference corpus wraps SCM_RIGHTS descriptor passing, so this package
// builds directly on net.UnixConn's message primitives and the syscall
// package, the same pattern used throughout the Go ecosystem (Docker,
// containerd) for descriptor handoff.
package fdpass

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/sockethub/sockethub/internal/hub/wire"
)

// Transfer sends fd down ctrl as an SCM_RIGHTS ancillary message with a
// single accompanying payload byte (wire.PayloadByte).
func Transfer(ctrl *net.UnixConn, fd int) error {
	rights := syscall.UnixRights(fd)
	n, oobn, err := ctrl.WriteMsgUnix([]byte{wire.PayloadByte}, rights, nil)
	if err != nil {
		return err
	}
	if n != 1 || oobn != len(rights) {
		return fmt.Errorf("fdpass: short ancillary write (n=%d oobn=%d)", n, oobn)
	}
	return nil
}

// Receive recovers one descriptor plus the marker payload byte from ctrl.
// The caller owns the returned fd and is responsible for closing it (or
// wrapping it, e.g. via net.FileConn).
func Receive(ctrl *net.UnixConn) (fd int, marker byte, err error) {
	buf := make([]byte, 1)
	oob := make([]byte, syscall.CmsgSpace(4))

	n, oobn, _, _, err := ctrl.ReadMsgUnix(buf, oob)
	if err != nil {
		return 0, 0, err
	}
	if n < 1 {
		return 0, 0, io.ErrUnexpectedEOF
	}
	marker = buf[0]

	scms, err := syscall.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return 0, marker, fmt.Errorf("fdpass: parse control message: %w", err)
	}
	if len(scms) == 0 {
		return 0, marker, errors.New("fdpass: no ancillary data in message")
	}

	fds, err := syscall.ParseUnixRights(&scms[0])
	if err != nil {
		return 0, marker, fmt.Errorf("fdpass: parse rights: %w", err)
	}
	if len(fds) == 0 {
		return 0, marker, errors.New("fdpass: ancillary message carried no descriptors")
	}
	return fds[0], marker, nil
}

// IsBrokenPipe reports whether err indicates the peer has gone away: a
// broken pipe, a connection reset, or a write/read on an already-closed
// connection. The registry and frontend listener both treat this as the
// deregistration trigger spec'd for control connections.
func IsBrokenPipe(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return IsBrokenPipe(opErr.Err)
	}
	return false
}
