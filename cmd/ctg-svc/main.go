// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ctg-svc serves a coincidence trigger generator over TCP.
//
// Usage: ctg-svc [OPTIONS]
//
// Example:
//
//	$> ctg-svc -cfg /etc/ctg/ctg.yaml
//	$> ctg-svc -addr :8866 -pmon -pmon-freq 5s
package main // import "github.com/go-lpc/ctg/cmd/ctg-svc"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/go-lpc/ctg"
	"github.com/go-lpc/ctg/coinc"
	"github.com/go-lpc/ctg/memodb"
	"github.com/sbinet/pmon"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		fname  = flag.String("cfg", "", "path to YAML configuration file")
		addr   = flag.String("addr", "", "[ip]:port to listen on (overrides configuration)")
		doMon  = flag.Bool("pmon", false, "enable pmon self-monitoring")
		doFreq = flag.Duration("pmon-freq", 1*time.Second, "pmon frequency")
		monOut = flag.String("pmon-out", "ctg-svc-pmon.log", "pmon output file")
		health = flag.Duration("health", 30*time.Second, "GPIO health probing interval")
	)

	flag.Parse()

	log.SetPrefix("ctg-svc: ")
	log.SetFlags(0)

	vers, sum := ctg.Version()
	log.Printf("version: %s (%s)", vers, sum)

	cfg := coinc.DefaultConfig()
	if *fname != "" {
		var err error
		cfg, err = coinc.LoadConfig(*fname)
		if err != nil {
			log.Fatalf("could not load configuration: %+v", err)
		}
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	opts := options{
		pmon:   *doMon,
		freq:   *doFreq,
		monOut: *monOut,
		health: *health,
	}

	err := run(cfg, opts, stop, nil)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

type options struct {
	pmon   bool
	freq   time.Duration
	monOut string
	health time.Duration
}

// run serves the configured controller until stop fires.
// ready, when not nil, receives the server address once it listens.
func run(cfg coinc.Config, opts options, stop chan os.Signal, ready chan<- string) error {
	if opts.pmon {
		kill, err := monitor(opts.monOut, opts.freq)
		if err != nil {
			return err
		}
		defer func() {
			err := kill()
			if err != nil {
				log.Printf("could not stop monitoring: %+v", err)
			}
		}()
	}

	ctl, dev, err := coinc.Open(cfg, log.New(os.Stdout, "coinc: ", 0))
	if err != nil {
		return fmt.Errorf("could not create controller: %w", err)
	}
	defer dev.Close()

	var sopts []coinc.ServerOption
	if cfg.Memo.DSN != "" {
		db, err := memodb.Open(cfg.Memo.DSN)
		if err != nil {
			return fmt.Errorf("could not open settings db: %w", err)
		}
		defer db.Close()

		err = db.Init(context.Background())
		if err != nil {
			return fmt.Errorf("could not initialize settings db: %w", err)
		}

		err = db.Restore(context.Background(), ctl)
		if err != nil {
			log.Printf("could not restore all settings: %+v", err)
		}
		if ctl.TriggerPaused() {
			log.Printf("triggering left paused by the restored settings")
		}
		sopts = append(sopts, coinc.WithMemorizer(db))
	}

	srv, err := coinc.NewServer(cfg.Server.Addr, ctl, sopts...)
	if err != nil {
		return fmt.Errorf("could not create server: %w", err)
	}
	log.Printf("serving %s controller on %q...", ctl.Profile().Name, srv.Addr())
	if ready != nil {
		ready <- srv.Addr().String()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(srv.Serve)
	grp.Go(func() error {
		newHealth(ctl, opts.health).run(ctx)
		return nil
	})
	grp.Go(func() error {
		select {
		case <-stop:
			log.Printf("received stop signal")
		case <-ctx.Done():
		}
		cancel()
		return srv.Close()
	})

	err = grp.Wait()
	if err != nil {
		return fmt.Errorf("could not run server: %w", err)
	}
	return nil
}

// monitor starts monitoring the current process and returns the
// function stopping it.
func monitor(fname string, freq time.Duration) (func() error, error) {
	p, err := pmon.Monitor(os.Getpid())
	if err != nil {
		return nil, fmt.Errorf("could not start monitoring (pid=%d): %w", os.Getpid(), err)
	}

	var w io.Writer = os.Stdout
	closef := func() error { return nil }
	if fname != "" {
		f, err := os.Create(fname)
		if err != nil {
			return nil, fmt.Errorf("could not create pmon log file: %w", err)
		}
		w = f
		closef = f.Close
	}
	p.W = w
	p.Freq = freq

	go func() {
		log.Printf("run pmon...")
		err := p.Run()
		if err != nil {
			log.Printf("could not run monitoring: %+v", err)
		}
	}()

	return func() error {
		err := p.Kill()
		if err != nil {
			_ = closef()
			return err
		}
		return closef()
	}, nil
}
