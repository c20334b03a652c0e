// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coinc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"sync"
)

// Request is a remote control command.
//
// Commands are:
//   - get   [name]
//   - set   [name, value]
//   - state []
//   - attrs []
//   - profile []
type Request struct {
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
}

// Reply is the answer to a Request.
// Msg is "ok" on success, the error message otherwise.
type Reply struct {
	Msg   string   `json:"msg"`
	Value string   `json:"value,omitempty"`
	State *State   `json:"state,omitempty"`
	Attrs []string `json:"attrs,omitempty"`
}

// Memorizer stores the last value set on a memorized attribute.
type Memorizer interface {
	Save(ctx context.Context, name, value string) error
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server logger. A nil logger discards messages.
func WithServerLogger(msg *log.Logger) ServerOption {
	return func(srv *Server) {
		if msg == nil {
			msg = log.New(io.Discard, "", 0)
		}
		srv.msg = msg
	}
}

// WithMemorizer forwards successful sets of memorized attributes to memo.
func WithMemorizer(memo Memorizer) ServerOption {
	return func(srv *Server) {
		srv.memo = memo
	}
}

// Server exposes a controller over TCP, with JSON requests and replies.
type Server struct {
	l    net.Listener
	msg  *log.Logger
	ctl  *Controller
	memo Memorizer
	smu  sync.Mutex // orders set requests with their memorization

	quit chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// Serve listens on addr and serves ctl until an error occurs.
func Serve(addr string, ctl *Controller, opts ...ServerOption) error {
	srv, err := NewServer(addr, ctl, opts...)
	if err != nil {
		return fmt.Errorf("coinc: could not create server: %w", err)
	}
	return srv.Serve()
}

// NewServer creates a server listening on addr.
func NewServer(addr string, ctl *Controller, opts ...ServerOption) (*Server, error) {
	if ctl == nil {
		return nil, fmt.Errorf("coinc: nil controller")
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("coinc: could not listen on %q: %w", addr, err)
	}

	srv := &Server{
		l:     l,
		msg:   log.New(os.Stdout, "ctg-srv: ", 0),
		ctl:   ctl,
		quit:  make(chan struct{}),
		conns: make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(srv)
	}

	return srv, nil
}

// Addr returns the address the server listens on.
func (srv *Server) Addr() net.Addr {
	return srv.l.Addr()
}

// Serve accepts connections and serves each of them in its own goroutine.
// Serve returns nil once Close has been called.
func (srv *Server) Serve() error {
	defer srv.wg.Wait()

	for {
		conn, err := srv.l.Accept()
		if err != nil {
			select {
			case <-srv.quit:
				return nil
			default:
			}
			return fmt.Errorf("coinc: could not accept connection: %w", err)
		}

		srv.mu.Lock()
		select {
		case <-srv.quit:
			srv.mu.Unlock()
			_ = conn.Close()
			return nil
		default:
			srv.conns[conn] = struct{}{}
		}
		srv.mu.Unlock()

		srv.wg.Add(1)
		go func() {
			defer srv.wg.Done()
			srv.handle(conn)
		}()
	}
}

// Close stops the listener and closes all client connections.
func (srv *Server) Close() error {
	var err error
	srv.once.Do(func() {
		close(srv.quit)
		err = srv.l.Close()

		srv.mu.Lock()
		defer srv.mu.Unlock()
		for conn := range srv.conns {
			_ = conn.Close()
		}
	})
	return err
}

func (srv *Server) handle(conn net.Conn) {
	defer func() {
		srv.mu.Lock()
		delete(srv.conns, conn)
		srv.mu.Unlock()
		_ = conn.Close()
	}()

	srv.msg.Printf("serving %v...", conn.RemoteAddr())
	defer srv.msg.Printf("serving %v... [done]", conn.RemoteAddr())

	var (
		dec = json.NewDecoder(conn)
		enc = json.NewEncoder(conn)
	)

	for {
		var req Request
		err := dec.Decode(&req)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			srv.msg.Printf("could not decode command request: %+v", err)
			_ = enc.Encode(Reply{Msg: err.Error()})
			return
		}
		srv.msg.Printf("received request: name=%q, args=%q", req.Name, req.Args)

		rep := srv.dispatch(req)
		err = enc.Encode(rep)
		if err != nil {
			srv.msg.Printf("could not send reply: %+v", err)
			return
		}
	}
}

func (srv *Server) dispatch(req Request) Reply {
	rep := Reply{Msg: "ok"}
	fail := func(err error) Reply {
		srv.msg.Printf("could not run %q command: %+v", req.Name, err)
		return Reply{Msg: err.Error()}
	}

	switch strings.ToLower(req.Name) {
	case "get":
		if len(req.Args) != 1 {
			return fail(fmt.Errorf("coinc: get: invalid number of arguments (got=%d, want=1)", len(req.Args)))
		}
		v, err := srv.ctl.Get(req.Args[0])
		if err != nil {
			return fail(err)
		}
		rep.Value = v

	case "set":
		if len(req.Args) != 2 {
			return fail(fmt.Errorf("coinc: set: invalid number of arguments (got=%d, want=2)", len(req.Args)))
		}
		name := req.Args[0]
		srv.smu.Lock()
		v, err := srv.ctl.Set(name, req.Args[1])
		if err == nil {
			srv.memorize(name, v)
		}
		srv.smu.Unlock()
		if err != nil {
			return fail(err)
		}
		rep.Value = v

	case "state":
		st := srv.ctl.State()
		rep.State = &st

	case "attrs":
		rep.Attrs = AllAttributes(srv.ctl.Profile())

	case "profile":
		rep.Value = srv.ctl.Profile().Name

	default:
		return fail(fmt.Errorf("coinc: unknown command %q", req.Name))
	}

	return rep
}

// memorize saves the canonical value of a memorized attribute.
// Failures are logged: the hardware has already been updated.
func (srv *Server) memorize(name, value string) {
	if srv.memo == nil || !Memorized(name) {
		return
	}
	name = strings.ToLower(strings.TrimSpace(name))
	err := srv.memo.Save(context.Background(), name, value)
	if err != nil {
		srv.msg.Printf("could not memorize %s=%q: %+v", name, value, err)
	}
}

// Client is a remote control client of a Server.
type Client struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

// Dial connects to the server at addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("coinc: could not dial %q: %w", addr, err)
	}
	return &Client{
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(conn),
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Do sends req and waits for its reply.
// A reply whose message is not "ok" is returned as an error.
func (c *Client) Do(req Request) (Reply, error) {
	var rep Reply
	err := c.enc.Encode(req)
	if err != nil {
		return rep, fmt.Errorf("coinc: could not send %q request: %w", req.Name, err)
	}

	err = c.dec.Decode(&rep)
	if err != nil {
		return rep, fmt.Errorf("coinc: could not receive %q reply: %w", req.Name, err)
	}

	if rep.Msg != "ok" {
		return rep, fmt.Errorf("coinc: %q request failed: %s", req.Name, rep.Msg)
	}
	return rep, nil
}

func (c *Client) Get(name string) (string, error) {
	rep, err := c.Do(Request{Name: "get", Args: []string{name}})
	return rep.Value, err
}

// Set sets the attribute name and returns its new canonical value.
func (c *Client) Set(name, value string) (string, error) {
	rep, err := c.Do(Request{Name: "set", Args: []string{name, value}})
	return rep.Value, err
}

func (c *Client) State() (State, error) {
	rep, err := c.Do(Request{Name: "state"})
	if err != nil {
		return State{}, err
	}
	if rep.State == nil {
		return State{}, fmt.Errorf("coinc: empty state reply")
	}
	return *rep.State, nil
}

func (c *Client) Attrs() ([]string, error) {
	rep, err := c.Do(Request{Name: "attrs"})
	return rep.Attrs, err
}
