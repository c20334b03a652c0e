// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ctg-tdaq starts a TDAQ server driving a coincidence trigger
// generator.
//
// The controller configuration is read from the YAML file named by the
// CTG_CONFIG environment variable, when set.
package main // import "github.com/go-lpc/ctg/cmd/ctg-tdaq"

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/ctg/coinc"
)

func main() {
	cmd := flags.New()

	cfg := coinc.DefaultConfig()
	if fname := os.Getenv("CTG_CONFIG"); fname != "" {
		var err error
		cfg, err = coinc.LoadConfig(fname)
		if err != nil {
			log.Panicf("could not load configuration: %+v", err)
		}
	}

	dev := newNode(cmd.Args[0], cfg, 1*time.Second)

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/state", dev.state)

	srv.RunHandle(dev.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}
