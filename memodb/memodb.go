// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memodb memorizes the last value set on the attributes of a
// coincidence trigger generator, so they can be restored after a restart.
package memodb // import "github.com/go-lpc/ctg/memodb"

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-lpc/ctg/coinc"
	"github.com/go-sql-driver/mysql"
)

var drvName = "mysql"

const timeout = 5 * time.Second

// Setting is a memorized attribute value.
type Setting struct {
	Name  string
	Value string
}

// DB is a connection to the settings database.
type DB struct {
	db   *sql.DB
	name string // name of the settings database
}

// Open opens a connection to the MySQL settings database described by dsn,
// e.g. "user:pass@tcp(localhost:3306)/ctg".
func Open(dsn string) (*DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("memodb: could not parse DSN: %w", err)
	}
	cfg.Timeout = timeout

	db, err := sql.Open(drvName, cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("memodb: could not open %q db: %w", cfg.DBName, err)
	}

	err = ping(db, cfg.DBName)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db, name: cfg.DBName}, nil
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("memodb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// Init creates the settings table if needed.
func (db *DB) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := db.db.ExecContext(
		ctx,
		`CREATE TABLE IF NOT EXISTS settings (
			name    VARCHAR(64) NOT NULL PRIMARY KEY,
			value   VARCHAR(255) NOT NULL,
			updated DATETIME NOT NULL
		)`,
	)
	if err != nil {
		return fmt.Errorf("memodb: could not create settings table in %q: %w", db.name, err)
	}
	return nil
}

// Save memorizes value as the last value of the attribute name.
func (db *DB) Save(ctx context.Context, name, value string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := db.db.ExecContext(
		ctx,
		"REPLACE INTO settings (name, value, updated) VALUES (?, ?, ?)",
		name, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("memodb: could not save %s=%q: %w", name, value, err)
	}
	return nil
}

// Settings returns all memorized values.
func (db *DB) Settings(ctx context.Context) ([]Setting, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var settings []Setting
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name, value FROM settings ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("memodb: could not query settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s Setting
		err = rows.Scan(&s.Name, &s.Value)
		if err != nil {
			return nil, fmt.Errorf("memodb: could not get setting value: %w", err)
		}
		settings = append(settings, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memodb: could not scan db for settings: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("memodb: context error while retrieving settings: %w", err)
	}

	return settings, nil
}

// Restore applies the memorized values to ctl, in the order given by
// coinc.Attributes, with coinc.Controller.Restore.
// Values of attributes ctl's profile lacks are ignored.
// Restore keeps going after a failed attribute and reports all failures.
func (db *DB) Restore(ctx context.Context, ctl *coinc.Controller) error {
	settings, err := db.Settings(ctx)
	if err != nil {
		return err
	}

	vals := make(map[string]string, len(settings))
	for _, s := range settings {
		vals[s.Name] = s.Value
	}

	var errs []error
	for _, name := range coinc.Attributes(ctl.Profile()) {
		v, ok := vals[name]
		if !ok {
			continue
		}
		_, err := ctl.Restore(name, v)
		if err != nil {
			errs = append(errs, fmt.Errorf("memodb: could not restore %s=%q: %w", name, v, err))
		}
	}

	return errors.Join(errs...)
}
