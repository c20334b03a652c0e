// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ctg-ctl controls a remote coincidence trigger generator.
//
// Usage: ctg-ctl [OPTIONS] [CMD [ARGS...]]
//
// Without a command, ctg-ctl starts an interactive shell.
//
// Example:
//
//	$> ctg-ctl -addr ctg-rpi:8866 set time_window 50
//	77
//	$> ctg-ctl -addr ctg-rpi:8866 get laser_trig
//	MRF
//	$> ctg-ctl -addr ctg-rpi:8866
//	ctg> state
package main // import "github.com/go-lpc/ctg/cmd/ctg-ctl"

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-lpc/ctg/coinc"
	"github.com/peterh/liner"
)

func main() {
	var (
		addr = flag.String("addr", ":8866", "[ip]:port of the ctg-svc server")
	)

	flag.Parse()

	log.SetPrefix("ctg-ctl: ")
	log.SetFlags(0)

	cli, err := coinc.Dial(*addr)
	if err != nil {
		log.Fatalf("could not connect to server: %+v", err)
	}
	defer cli.Close()

	if flag.NArg() > 0 {
		err = do(cli, os.Stdout, flag.Args())
		if err != nil {
			log.Fatalf("%+v", err)
		}
		return
	}

	err = shell(cli, os.Stdout)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

var cmds = []string{"attrs", "get", "help", "quit", "set", "state"}

const usage = `commands:
  attrs              list the attributes of the device
  get NAME           print the value of attribute NAME
  set NAME VALUE     set attribute NAME to VALUE
  state              print the device state
  help               print this message
  quit               leave the shell
`

// do runs one command against the server.
func do(cli *coinc.Client, w io.Writer, args []string) error {
	if len(args) == 0 {
		return nil
	}

	switch name := strings.ToLower(args[0]); name {
	case "get":
		if len(args) != 2 {
			return fmt.Errorf("usage: get NAME")
		}
		v, err := cli.Get(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(w, v)

	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: set NAME VALUE")
		}
		v, err := cli.Set(args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Fprintln(w, v)

	case "state":
		st, err := cli.State()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)

	case "attrs":
		attrs, err := cli.Attrs()
		if err != nil {
			return err
		}
		for _, attr := range attrs {
			fmt.Fprintln(w, attr)
		}

	case "help":
		fmt.Fprint(w, usage)

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	return nil
}

func shell(cli *coinc.Client, w io.Writer) error {
	attrs, err := cli.Attrs()
	if err != nil {
		return fmt.Errorf("could not retrieve attributes: %w", err)
	}

	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(completer(attrs))

	hist := history()
	if f, err := os.Open(hist); err == nil {
		_, _ = term.ReadHistory(f)
		f.Close()
	}
	defer func() {
		f, err := os.Create(hist)
		if err != nil {
			return
		}
		defer f.Close()
		_, _ = term.WriteHistory(f)
	}()

	for {
		line, err := term.Prompt("ctg> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(w)
				return nil
			}
			return fmt.Errorf("could not read command: %w", err)
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		term.AppendHistory(line)

		if strings.ToLower(args[0]) == "quit" {
			return nil
		}

		err = do(cli, w, args)
		if err != nil {
			fmt.Fprintf(w, "error: %+v\n", err)
		}
	}
}

// completer completes command names, then attribute names.
func completer(attrs []string) liner.Completer {
	attrs = append([]string(nil), attrs...)
	sort.Strings(attrs)

	return func(line string) []string {
		var (
			out    []string
			fields = strings.Fields(line)
			word   = ""
		)
		if len(fields) > 0 && !strings.HasSuffix(line, " ") {
			word = fields[len(fields)-1]
			fields = fields[:len(fields)-1]
		}

		switch len(fields) {
		case 0:
			for _, cmd := range cmds {
				if strings.HasPrefix(cmd, word) {
					out = append(out, cmd)
				}
			}
		case 1:
			switch fields[0] {
			case "get", "set":
				for _, attr := range attrs {
					if strings.HasPrefix(attr, word) {
						out = append(out, fields[0]+" "+attr)
					}
				}
			}
		}
		return out
	}
}

func history() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "ctg-ctl.history")
}
