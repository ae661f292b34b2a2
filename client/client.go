// Package client declares the dialer boundary a Hub client uses to reach a
// named service: dial the frontend, send the service name, and receive
// back a plain net.Conn indistinguishable from one accepted directly by
// the registered server. No concrete Dialer ships here — the handshake is
// three lines of socket code and belongs in whatever program needs it, not
// in a shared dependency.
package client

import (
	"context"
	"net"
)

// Dialer connects to a named service behind a Hub frontend.
type Dialer interface {
	Connect(ctx context.Context, service []byte) (net.Conn, error)
}
