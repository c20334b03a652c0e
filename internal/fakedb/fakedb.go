// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakedb holds types to fake an in-memory DB.
package fakedb // import "github.com/go-lpc/ctg/internal/fakedb"

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"sync"
)

// Session holds the rows served to queries and records the statements
// executed while a Run function is running.
type Session struct {
	Rows  Rows
	Execs []Exec
	Err   error // returned by every statement, when non-nil
}

// Exec is a recorded statement.
type Exec struct {
	Query string
	Args  []driver.Value
}

var cur struct {
	mu   sync.Mutex
	sess *Session
}

// Run runs f with sess as the fake DB content.
// Calls to Run are serialized.
func Run(ctx context.Context, sess *Session, f func(ctx context.Context) error) error {
	cur.mu.Lock()
	defer cur.mu.Unlock()
	cur.sess = sess
	defer func() { cur.sess = nil }()

	return f(ctx)
}

func session() *Session {
	if cur.sess == nil {
		return &Session{}
	}
	return cur.sess
}

func init() {
	sql.Register("fakedb", &Driver{})
}

type Driver struct{}

// Open returns a new connection to the database.
func (drv *Driver) Open(name string) (driver.Conn, error) {
	return &Conn{}, nil
}

type Conn struct{}

// Prepare returns a prepared statement, bound to this connection.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &Stmt{query: query}, nil
}

func (c *Conn) Close() error {
	return nil
}

// Begin starts and returns a new transaction.
//
// Deprecated: Drivers should implement ConnBeginTx instead (or additionally).
func (c *Conn) Begin() (driver.Tx, error) {
	panic("not implemented")
}

type Stmt struct {
	query string
}

func (stmt *Stmt) Close() error {
	return nil
}

// NumInput returns -1: the sql package does not check argument counts.
func (stmt *Stmt) NumInput() int {
	return -1
}

// Exec records the statement and its arguments.
//
// Deprecated: Drivers should implement StmtExecContext instead (or additionally).
func (stmt *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	sess := session()
	if sess.Err != nil {
		return nil, sess.Err
	}
	sess.Execs = append(sess.Execs, Exec{
		Query: stmt.query,
		Args:  append([]driver.Value(nil), args...),
	})
	return driver.RowsAffected(1), nil
}

// Query serves the session rows.
//
// Deprecated: Drivers should implement StmtQueryContext instead (or additionally).
func (stmt *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	sess := session()
	if sess.Err != nil {
		return nil, sess.Err
	}
	rows := sess.Rows
	return &rows, nil
}

type Rows struct {
	Names  []string
	Values [][]driver.Value
}

// Columns returns the names of the columns.
func (rows *Rows) Columns() []string {
	return rows.Names
}

// Close closes the rows iterator.
func (rows *Rows) Close() error {
	return nil
}

// Next is called to populate the next row of data into
// the provided slice. The provided slice will be the same
// size as the Columns() are wide.
//
// Next should return io.EOF when there are no more rows.
func (rows *Rows) Next(dest []driver.Value) error {
	if len(rows.Values) == 0 {
		return io.EOF
	}
	copy(dest, rows.Values[0])
	rows.Values = rows.Values[1:]
	return nil
}

var (
	_ driver.Driver = (*Driver)(nil)
	_ driver.Conn   = (*Conn)(nil)
	_ driver.Stmt   = (*Stmt)(nil)
	_ driver.Rows   = (*Rows)(nil)
)
