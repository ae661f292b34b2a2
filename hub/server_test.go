package hub

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sockethub/sockethub/internal/hub/config"
	"github.com/sockethub/sockethub/internal/hub/fdpass"
	"github.com/sockethub/sockethub/internal/hub/wire"
	"github.com/sockethub/sockethub/internal/util/testutil"
)

func newTestServer(t *testing.T) (*Server, func()) {
	t.Helper()
	cfg := config.Config{
		FrontendAddr:      "127.0.0.1:0",
		BackendSocketPath: filepath.Join(t.TempDir(), "hub.sock"),
		Backlog:           10,
		AcceptTimeout:     50 * time.Millisecond,
	}
	s, err := New(cfg)
	require.NoError(t, err)

	done := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		// Run binds synchronously inside the goroutine; give the test a
		// moment to observe the bound address before dialing.
		close(started)
		done <- s.Run()
	}()
	<-started
	testutil.RequireEventually(t, func() bool {
		return s.frontendAddr() != ""
	})

	stop := func() {
		s.Stop()
		require.NoError(t, <-done)
	}
	return s, stop
}

// frontendAddr returns the bound frontend address once Listen has run, or
// "" before that — used only by tests to know when it's safe to dial.
func (s *Server) frontendAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.front == nil {
		return ""
	}
	addr := s.front.Addr()
	if addr == nil {
		return ""
	}
	return addr.String()
}

func dialFrontend(t *testing.T, s *Server) net.Conn {
	t.Helper()
	var conn net.Conn
	testutil.RequireEventually(t, func() bool {
		addr := s.frontendAddr()
		if addr == "" {
			return false
		}
		c, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn = c
		return true
	})
	return conn
}

func dialBackend(t *testing.T, s *Server) *net.UnixConn {
	t.Helper()
	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: s.cfg.BackendSocketPath, Net: "unix"})
	require.NoError(t, err)
	return conn
}

// S1 — Register then connect.
func TestScenario_RegisterThenConnect(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()

	server := dialBackend(t, s)
	defer server.Close()

	_, err := server.Write([]byte("server0"))
	require.NoError(t, err)
	ack := make([]byte, 1)
	_, err = server.Read(ack)
	require.NoError(t, err)
	require.Equal(t, wire.RegisteredByte, ack[0])

	client := dialFrontend(t, s)
	defer client.Close()
	_, err = client.Write([]byte("server0"))
	require.NoError(t, err)

	fd, marker, err := fdpass.Receive(server)
	require.NoError(t, err)
	require.Equal(t, byte('1'), marker)

	f := os.NewFile(uintptr(fd), "handed-off")
	defer f.Close()
	serverSide, err := net.FileConn(f)
	require.NoError(t, err)
	defer serverSide.Close()

	_, err = client.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	n, err := serverSide.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))
}

// S2 — Unknown service.
func TestScenario_UnknownService(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()

	client := dialFrontend(t, s)
	defer client.Close()

	_, err := client.Write([]byte("missing"))
	require.NoError(t, err)

	out, err := readUntilEOF(client)
	require.NoError(t, err)
	require.Equal(t, "-Service not found\r\n", string(out))
}

// S3 — Duplicate registration, incumbent alive.
func TestScenario_DuplicateRegistrationIncumbentAlive(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()

	a := dialBackend(t, s)
	defer a.Close()
	_, err := a.Write([]byte("svc"))
	require.NoError(t, err)
	ack := make([]byte, 1)
	_, err = a.Read(ack)
	require.NoError(t, err)
	require.Equal(t, wire.RegisteredByte, ack[0])

	b := dialBackend(t, s)
	defer b.Close()
	_, err = b.Write([]byte("svc"))
	require.NoError(t, err)

	out, err := readUntilEOF(b)
	require.NoError(t, err)
	require.Equal(t, "-Service already exists\r\n", string(out))

	_, ok := s.Registry().Lookup("svc")
	require.True(t, ok)

	// The incumbent (a) is still the live registration: a probe byte sent
	// down it must still succeed.
	_, err = a.Write([]byte{wire.ProbeByte})
	require.NoError(t, err)
}

// S4 — Duplicate registration, incumbent dead.
func TestScenario_DuplicateRegistrationIncumbentDead(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()

	a := dialBackend(t, s)
	_, err := a.Write([]byte("svc"))
	require.NoError(t, err)
	ack := make([]byte, 1)
	_, err = a.Read(ack)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	var b *net.UnixConn
	testutil.RequireEventually(t, func() bool {
		b = dialBackend(t, s)
		_, err := b.Write([]byte("svc"))
		if err != nil {
			return false
		}
		_ = b.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, err := b.Read(ack)
		_ = b.SetReadDeadline(time.Time{})
		return err == nil && n == 1 && ack[0] == wire.RegisteredByte
	})
	defer b.Close()

	_, ok := s.Registry().Lookup("svc")
	require.True(t, ok)
}

// S5 — Handoff to crashed server.
func TestScenario_HandoffToCrashedServer(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()

	server := dialBackend(t, s)
	_, err := server.Write([]byte("svc"))
	require.NoError(t, err)
	ack := make([]byte, 1)
	_, err = server.Read(ack)
	require.NoError(t, err)
	require.NoError(t, server.Close())

	client := dialFrontend(t, s)
	defer client.Close()

	_, err = client.Write([]byte("svc"))
	require.NoError(t, err)
	out, err := readUntilEOF(client)
	require.NoError(t, err)
	require.Equal(t, "-Service not found\r\n", string(out))

	_, ok := s.Registry().Lookup("svc")
	require.False(t, ok)
}

// S6 — Graceful shutdown.
func TestScenario_GracefulShutdown(t *testing.T) {
	s, stop := newTestServer(t)

	server := dialBackend(t, s)
	defer server.Close()
	_, err := server.Write([]byte("svc"))
	require.NoError(t, err)
	ack := make([]byte, 1)
	_, err = server.Read(ack)
	require.NoError(t, err)

	s.Stop()

	require.Eventually(t, func() bool {
		_, err := server.Write([]byte{wire.ProbeByte})
		return err != nil
	}, 2*time.Second, 10*time.Millisecond, "control connection should observe EOF/reset after shutdown")

	stop()

	_, err = os.Stat(s.cfg.BackendSocketPath)
	require.True(t, errors.Is(err, os.ErrNotExist), "backend socket path should be unlinked on shutdown")
}

func readUntilEOF(conn net.Conn) ([]byte, error) {
	var out []byte
	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			return out, nil
		}
	}
}
