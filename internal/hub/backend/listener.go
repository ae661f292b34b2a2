// Package backend implements the Hub's backend listener: the Unix domain
// stream socket servers connect to in order to register under a name and
// hold a control connection open for descriptor transfers.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sockethub/sockethub/internal/hub/registry"
	"github.com/sockethub/sockethub/internal/hub/wire"
	"github.com/sockethub/sockethub/internal/logging"
	"github.com/sockethub/sockethub/internal/metrics"
	"github.com/sockethub/sockethub/internal/util/connid"
)

// Listener accepts server registrations on a Unix domain stream socket.
type Listener struct {
	path          string
	reg           *registry.Registry
	acceptTimeout time.Duration

	ln *net.UnixListener
}

// New creates a Listener bound to path once Listen is called.
func New(path string, reg *registry.Registry, acceptTimeout time.Duration) *Listener {
	return &Listener{path: path, reg: reg, acceptTimeout: acceptTimeout}
}

// Listen removes any stale socket file at path and binds a fresh Unix
// domain stream listener there.
func (l *Listener) Listen() error {
	if err := removeStaleSocket(l.path); err != nil {
		return fmt.Errorf("remove stale backend socket: %w", err)
	}
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: l.path, Net: "unix"})
	if err != nil {
		return fmt.Errorf("listen unix %s: %w", l.path, err)
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

// Serve runs the accept loop until ctx is cancelled or a fatal accept error
// occurs. A per-accept deadline keeps ctx cancellation observable within
// acceptTimeout even though net.Listener has no native context support.
func (l *Listener) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			_ = l.Close()
			return nil
		default:
		}

		_ = l.ln.SetDeadline(time.Now().Add(l.acceptTimeout))
		conn, err := l.ln.AcceptUnix()
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("backend accept: %w", err)
		}

		go l.handle(conn)
	}
}

// handle reads one name frame off conn and attempts registration. A
// successfully registered conn is handed to the registry and never read
// from again; the outgoing connection keeps it alive as a control channel.
func (l *Listener) handle(conn *net.UnixConn) {
	log := logging.WithConnID(connid.Generate())

	frame, err := wire.ReadFrame(conn)
	if err != nil || len(frame) == 0 {
		_ = conn.Close()
		return
	}
	name := string(frame)

	outcome, err := l.reg.Register(name, conn)
	if err != nil {
		log.Warn("backend registration error", "service", name, "error", err)
		_ = conn.Close()
		return
	}

	switch outcome {
	case registry.Registered:
		if _, werr := conn.Write([]byte{wire.RegisteredByte}); werr != nil {
			log.Info("registration ack failed, evicting", "service", name, "error", werr)
			l.reg.Evict(name)
			_ = conn.Close()
			return
		}
		metrics.RegistrationsTotal.WithLabelValues("ok").Inc()
		log.Info("service registered", "service", name)
	case registry.AlreadyExists:
		wire.WriteBestEffort(conn, wire.ErrServiceExistsLine)
		_ = conn.Close()
		metrics.RegistrationsTotal.WithLabelValues("already_exists").Inc()
		log.Info("registration rejected: service already exists", "service", name)
	}
}

func removeStaleSocket(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
