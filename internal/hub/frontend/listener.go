// Package frontend implements the Hub's frontend listener: the public TCP
// socket clients connect to, request a service by name, and either receive
// a textual error or have their accepted socket handed off to the
// registered server via descriptor passing.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sockethub/sockethub/internal/hub/fdpass"
	"github.com/sockethub/sockethub/internal/hub/registry"
	"github.com/sockethub/sockethub/internal/hub/wire"
	"github.com/sockethub/sockethub/internal/logging"
	"github.com/sockethub/sockethub/internal/metrics"
	"github.com/sockethub/sockethub/internal/util/connid"
)

// Listener accepts client connections on a TCP socket and hands them off
// to registered services.
type Listener struct {
	addr          string
	backlog       int
	reg           *registry.Registry
	acceptTimeout time.Duration

	ln *net.TCPListener
}

// New creates a Listener bound to addr once Listen is called.
func New(addr string, backlog int, reg *registry.Registry, acceptTimeout time.Duration) *Listener {
	return &Listener{addr: addr, backlog: backlog, reg: reg, acceptTimeout: acceptTimeout}
}

// Listen binds the TCP listener with SO_REUSEADDR and the configured
// accept backlog.
func (l *Listener) Listen() error {
	ln, err := listenTCPWithBacklog(l.addr, l.backlog)
	if err != nil {
		return fmt.Errorf("listen tcp %s: %w", l.addr, err)
	}
	l.ln = ln
	return nil
}

// Close closes the underlying listener. Safe to call more than once.
func (l *Listener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}

// Addr returns the listener's bound address, or nil before Listen succeeds.
func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Serve runs the accept loop until ctx is cancelled or a fatal accept error
// occurs.
func (l *Listener) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			_ = l.Close()
			return nil
		default:
		}

		_ = l.ln.SetDeadline(time.Now().Add(l.acceptTimeout))
		conn, err := l.ln.AcceptTCP()
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("frontend accept: %w", err)
		}
		_ = conn.SetNoDelay(true)

		go l.handle(conn)
	}
}

// handle reads one name frame off conn, looks the service up, and either
// replies with an error or hands the accepted socket's descriptor off to
// the registered server.
func (l *Listener) handle(conn *net.TCPConn) {
	log := logging.WithConnID(connid.Generate())

	frame, err := wire.ReadFrame(conn)
	if err != nil || len(frame) == 0 {
		_ = conn.Close()
		return
	}
	name := string(frame)

	ctrl, ok := l.reg.Lookup(name)
	if !ok {
		wire.WriteBestEffort(conn, wire.ErrServiceNotFoundLine)
		_ = conn.Close()
		metrics.HandoffsTotal.WithLabelValues("not_found").Inc()
		log.Info("handoff failed: service not found", "service", name)
		return
	}

	// Detach: dup the socket's descriptor so we can pass it independently
	// of conn's own lifetime, the same dup-on-detach idiom net.TCPListener.File
	// documents for inherited listeners.
	f, err := conn.File()
	if err != nil {
		log.Warn("handoff failed: could not detach descriptor", "service", name, "error", err)
		wire.WriteBestEffort(conn, wire.ErrServiceNotFoundLine)
		_ = conn.Close()
		metrics.HandoffsTotal.WithLabelValues("not_found").Inc()
		return
	}

	if err := fdpass.Transfer(ctrl, int(f.Fd())); err != nil {
		_ = f.Close()
		if fdpass.IsBrokenPipe(err) {
			l.reg.Evict(name)
		}
		wire.WriteBestEffort(conn, wire.ErrServiceNotFoundLine)
		_ = conn.Close()
		metrics.HandoffsTotal.WithLabelValues("broken_pipe").Inc()
		log.Info("handoff failed: control connection broken, evicted", "service", name, "error", err)
		return
	}

	// Success: the server now owns its own duplicate of the socket from
	// the ancillary message. Close our copies; the open file description
	// stays alive via the server's descriptor.
	_ = f.Close()
	_ = conn.Close()
	metrics.HandoffsTotal.WithLabelValues("ok").Inc()
	log.Info("handoff complete", "service", name)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
