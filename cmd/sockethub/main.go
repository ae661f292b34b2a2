package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sockethub/sockethub/hub"
	"github.com/sockethub/sockethub/internal/hub/config"
	"github.com/sockethub/sockethub/internal/logging"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("sockethub", flag.ExitOnError)
	def := config.Default()
	addr := fs.String("addr", def.FrontendAddr, "frontend listen address")
	backend := fs.String("backend", def.BackendSocketPath, "backend registration socket path")
	backlog := fs.Int("backlog", def.Backlog, "frontend accept backlog")
	acceptTimeout := fs.Duration("accept-timeout", def.AcceptTimeout, "accept poll deadline, controls shutdown latency")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	metricsAddr := fs.String("metrics-addr", "", "address for the /metrics endpoint (empty disables it)")
	showVersion := fs.Bool("version", false, "print version and exit")
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(version)
		return
	}

	if err := logging.Setup(*logLevel); err != nil {
		slog.Warn("invalid log level, keeping default", "error", err)
	}

	logging.PrintBanner(version, *addr)

	cfg := config.Config{
		FrontendAddr:      *addr,
		BackendSocketPath: *backend,
		Backlog:           *backlog,
		AcceptTimeout:     *acceptTimeout,
		MetricsAddr:       *metricsAddr,
	}

	s, err := hub.New(cfg)
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	if err := s.Run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
