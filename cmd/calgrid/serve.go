package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/calgrid/internal/config"
	"github.com/janekbaraniewski/calgrid/internal/daemon"
)

func newServeCommand(cfg config.Config, flags *sourceFlags) *cobra.Command {
	var (
		addr       string
		socketPath string
		writeLimit int
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve records and grid layouts over HTTP",
		RunE: func(_ *cobra.Command, _ []string) error {
			backend := flags.backend
			if backend == "" {
				backend = cfg.Store.Backend
			}
			if backend == config.BackendDaemon && !flags.demo {
				return errors.New("serve: the daemon backend cannot back the daemon itself")
			}

			src, closeSource, err := openSource(context.Background(), cfg, *flags)
			if err != nil {
				return err
			}
			defer closeSource()

			dcfg := daemon.Config{
				Addr:                firstNonEmpty(addr, cfg.Server.Addr),
				SocketPath:          firstNonEmpty(socketPath, cfg.Server.SocketPath),
				WriteLimitPerMinute: cfg.Server.WriteLimitPerMinute,
				Grid:                cfg.Grid,
				Verbose:             verbose || os.Getenv("CALGRID_DEBUG") != "",
			}
			if writeLimit > 0 {
				dcfg.WriteLimitPerMinute = writeLimit
			}
			if dcfg.Addr == "" && dcfg.SocketPath == "" {
				if dcfg.SocketPath, err = daemon.DefaultSocketPath(); err != nil {
					return err
				}
			}
			return daemon.RunServer(dcfg, src)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "TCP listen address, e.g. 127.0.0.1:8787")
	cmd.Flags().StringVar(&socketPath, "socket", "", "unix socket path (default under the state dir)")
	cmd.Flags().IntVar(&writeLimit, "write-limit", 0, "record writes allowed per client per minute")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log requests and store activity")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
