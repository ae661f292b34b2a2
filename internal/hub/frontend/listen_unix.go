//go:build unix

package frontend

import (
	"fmt"
	"net"
	"os"
	"syscall"
)

// listenTCPWithBacklog binds and listens on addr with an explicit accept
// backlog. net.Listen hard-codes its own backlog derived from the kernel's
// somaxconn and exposes no parameter for it, so honoring the spec's
// "backlog configurable (default 10)" requires building the socket by hand
// and handing the resulting descriptor back to the net package.
func listenTCPWithBacklog(addr string, backlog int) (*net.TCPListener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}

	domain := syscall.AF_INET
	if tcpAddr.IP != nil && tcpAddr.IP.To4() == nil {
		domain = syscall.AF_INET6
	}

	fd, err := syscall.Socket(domain, syscall.SOCK_STREAM, syscall.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	// Ensure the fd is always accounted for: either closed here on an error
	// path, or handed to os.NewFile below which os.File then owns.
	closeFD := true
	defer func() {
		if closeFD {
			_ = syscall.Close(fd)
		}
	}()

	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}

	if err := bindSockaddr(fd, domain, tcpAddr); err != nil {
		return nil, fmt.Errorf("bind: %w", err)
	}

	if err := syscall.Listen(fd, backlog); err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	f := os.NewFile(uintptr(fd), "sockethub-frontend")
	closeFD = false
	defer f.Close()

	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("FileListener: %w", err)
	}

	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		_ = ln.Close()
		return nil, fmt.Errorf("unexpected listener type %T", ln)
	}
	return tcpLn, nil
}

func bindSockaddr(fd int, domain int, addr *net.TCPAddr) error {
	if domain == syscall.AF_INET6 {
		sa := &syscall.SockaddrInet6{Port: addr.Port}
		if addr.IP != nil {
			copy(sa.Addr[:], addr.IP.To16())
		}
		return syscall.Bind(fd, sa)
	}
	sa := &syscall.SockaddrInet4{Port: addr.Port}
	if ip4 := addr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}
	return syscall.Bind(fd, sa)
}
