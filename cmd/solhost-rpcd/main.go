package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"fordefi.com/solhost/genesis"
	"fordefi.com/solhost/policy"
	"fordefi.com/solhost/rpc"
	"fordefi.com/solhost/runtime"
	"fordefi.com/solhost/storage/storeregistry"

	_ "fordefi.com/solhost/storage/localfs"
	_ "fordefi.com/solhost/storage/memcas"
)

func main() {
	fs := flag.NewFlagSet("solhost-rpcd", flag.ExitOnError)
	configPath := fs.String("config", "", "genesis config file (YAML); omit for the built-in deployments")
	listen := fs.String("listen", "", "listen address (overrides config)")
	listBackends := fs.Bool("list-backends", false, "List supported store backends and exit")
	debug := fs.Bool("debug", false, "Enable debug logging")

	_ = fs.Parse(os.Args[1:])
	if *listBackends {
		for _, b := range storeregistry.List(storeregistry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return
	}

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := genesis.Default()
	if *configPath != "" {
		cfg, err = genesis.LoadFile(*configPath)
		if err != nil {
			logger.Fatal("load config", zap.String("path", *configPath), zap.Error(err))
		}
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	mode, err := genesis.ParseMode(cfg.Mode)
	if err != nil {
		logger.Fatal("config mode", zap.Error(err))
	}

	// Fail fast on a malformed authority policy rather than at first use.
	if cfg.PolicyFile != "" {
		b, rerr := os.ReadFile(cfg.PolicyFile)
		if rerr != nil {
			logger.Fatal("read policy", zap.String("path", cfg.PolicyFile), zap.Error(rerr))
		}
		if _, perr := policy.ParseWithMode(b, mode); perr != nil {
			logger.Fatal("parse policy", zap.String("path", cfg.PolicyFile), zap.Error(perr))
		}
	}

	cas, closeFn, err := cfg.Store.Open(storeregistry.UsageDaemon, "")
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	if closeFn != nil {
		defer func() { _ = closeFn() }()
	}

	reg, err := cfg.BuildRegistry()
	if err != nil {
		logger.Fatal("build registry", zap.Error(err))
	}
	host := runtime.New(reg, append(cfg.HostOptions(), runtime.WithLogger(logger))...)

	lis, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		logger.Fatal("listen", zap.String("addr", cfg.ListenAddr()), zap.Error(err))
	}
	defer lis.Close()

	s := grpc.NewServer()
	rpc.RegisterHostServer(s, &rpc.Server{Host: host, CAS: cas, Logger: logger})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-stop
		logger.Info("shutting down", zap.String("signal", sig.String()))
		s.GracefulStop()
	}()

	logger.Info("solhost-rpcd listening",
		zap.String("addr", lis.Addr().String()),
		zap.Int("deployments", len(cfg.Deployments)),
	)
	if err := s.Serve(lis); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
