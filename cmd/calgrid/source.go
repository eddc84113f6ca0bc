package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/janekbaraniewski/calgrid/internal/config"
	"github.com/janekbaraniewski/calgrid/internal/daemon"
	"github.com/janekbaraniewski/calgrid/internal/store"
)

const demoSeed = 42

// openSource resolves the record store from flags and config. The returned
// close func is always safe to call.
func openSource(ctx context.Context, cfg config.Config, flags sourceFlags) (store.Source, func(), error) {
	noop := func() {}
	if flags.demo {
		return store.NewDemo(time.Now(), demoSeed), noop, nil
	}

	backend := strings.TrimSpace(flags.backend)
	if backend == "" {
		backend = cfg.Store.Backend
	}
	log.Printf("calgrid level=info event=open_source backend=%s", backend)

	var (
		src store.Source
		err error
	)
	switch backend {
	case config.BackendMemory:
		return store.NewMemory(nil), noop, nil
	case config.BackendSQLite:
		path := cfg.Store.SQLitePath
		if path == "" {
			if path, err = store.DefaultDBPath(); err != nil {
				return nil, noop, err
			}
		}
		src, err = store.OpenSQLite(path)
	case config.BackendRedis:
		src, err = store.OpenRedis(ctx, store.RedisOptions{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			Key:      cfg.Store.RedisKey,
		})
	case config.BackendDaemon:
		src, err = openDaemonClient(ctx, cfg)
	default:
		return nil, noop, fmt.Errorf("unknown backend %q", backend)
	}
	if err != nil {
		return nil, noop, err
	}

	closeFn := noop
	if c, ok := src.(store.Closer); ok {
		closeFn = func() {
			if err := c.Close(); err != nil {
				log.Printf("calgrid level=warn event=close_source err=%v", err)
			}
		}
	}
	return src, closeFn, nil
}

func openDaemonClient(ctx context.Context, cfg config.Config) (*daemon.Client, error) {
	var client *daemon.Client
	if url := strings.TrimSpace(cfg.Store.DaemonURL); url != "" {
		client = daemon.NewHTTPClient(url)
	} else {
		socketPath := strings.TrimSpace(cfg.Store.DaemonSocket)
		if socketPath == "" {
			var err error
			if socketPath, err = daemon.DefaultSocketPath(); err != nil {
				return nil, fmt.Errorf("resolve daemon socket path: %w", err)
			}
		}
		client = daemon.NewClient(socketPath)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.CheckCompatible(checkCtx); err != nil {
		return nil, err
	}
	return client, nil
}
